package parsers

import (
	"iter"
	"regexp"
	"strconv"
	"strings"
	"time"

	"unilog/pkg/types"
)

var (
	syslog3164Pattern = regexp.MustCompile(
		`^(?:<(?P<pri>\d{1,3})>)?` +
			`(?P<timestamp>[A-Z][a-z]{2}\s+\d{1,2}\s+\d{2}:\d{2}:\d{2})\s+` +
			`(?P<hostname>\S+)\s+` +
			`(?P<tag>\S+?)(?:\[(?P<pid>\d+)\])?:\s*` +
			`(?P<message>.*)`)

	syslog3164AltPattern = regexp.MustCompile(
		`^(?:<(?P<pri>\d{1,3})>)?` +
			`(?P<timestamp>[A-Z][a-z]{2}\s+\d{1,2}\s+\d{2}:\d{2}:\d{2})\s+` +
			`(?P<hostname>\S+)\s+` +
			`(?P<message>.*)`)

	syslog5424Pattern = regexp.MustCompile(
		`^<(?P<pri>\d{1,3})>(?P<version>\d+)\s+` +
			`(?P<timestamp>\S+)\s+` +
			`(?P<hostname>\S+)\s+` +
			`(?P<appname>\S+)\s+` +
			`(?P<procid>\S+)\s+` +
			`(?P<msgid>\S+)\s+` +
			`(?P<sd>-|\[.*?\](?:\s*\[.*?\])*)\s*` +
			`(?P<message>.*)?`)

	sdElementPattern = regexp.MustCompile(`\[([^\]]+)\]`)
	sdParamPattern   = regexp.MustCompile(`(\S+)="([^"]*)"`)
)

// SyslogRFC3164Parser handles BSD syslog: optional <PRI>, year-less
// timestamp, hostname, tag with optional pid, message.
type SyslogRFC3164Parser struct{}

func NewSyslogRFC3164Parser() *SyslogRFC3164Parser { return &SyslogRFC3164Parser{} }

func (p *SyslogRFC3164Parser) Name() string { return "syslog_rfc3164" }

func (p *SyslogRFC3164Parser) SupportedFormats() []string {
	return []string{"syslog_rfc3164", "syslog_bsd", "syslog"}
}

func (p *SyslogRFC3164Parser) ParseLine(line string) *types.Record {
	trimmed := strings.TrimSpace(line)
	groups := namedGroups(syslog3164Pattern, trimmed)
	if groups == nil {
		groups = namedGroups(syslog3164AltPattern, trimmed)
	}
	if groups == nil {
		return errorRecord(p.Name(), line, "Line does not match RFC 3164 format")
	}

	r := types.NewRecord(line)
	r.ParserName = p.Name()
	r.FormatDetected = "syslog_rfc3164"
	r.ParserConfidence = 0.90

	if pri := groups["pri"]; pri != "" {
		n, _ := strconv.Atoi(pri)
		facility := n >> 3
		severity := n & 0x07
		r.Level = types.LevelFromSeverity(severity)
		r.Extra["facility"] = facility
		r.Extra["severity"] = severity
	} else {
		r.Level = inferLevelFromMessage(groups["message"])
	}

	if ts := parseBSDTimestamp(groups["timestamp"], time.Now()); ts != nil {
		r.Timestamp = ts
		r.TimestampPrecision = types.PrecisionSeconds
	}

	r.Source.Hostname = groups["hostname"]
	r.Source.Service = groups["tag"]
	if pid := groups["pid"]; pid != "" {
		if n, err := strconv.Atoi(pid); err == nil {
			r.Extra["pid"] = n
		}
	}
	r.Message = groups["message"]
	return r
}

func (p *SyslogRFC3164Parser) CanParse(sample []string) float64 {
	return matchFraction(sample, func(line string) bool {
		return syslog3164Pattern.MatchString(line) || syslog3164AltPattern.MatchString(line)
	})
}

func (p *SyslogRFC3164Parser) ParseStream(lines iter.Seq[string]) iter.Seq[*types.Record] {
	return streamWith(p.ParseLine, lines)
}

// parseBSDTimestamp reconstructs a year-less BSD timestamp against now.
func parseBSDTimestamp(value string, now time.Time) *time.Time {
	normalized := normalizeSpaces(value)
	parsed, err := time.Parse("Jan 2 15:04:05 2006", normalized+" "+strconv.Itoa(now.Year()))
	if err != nil {
		return nil
	}
	year := reconstructYear(parsed.Month(), now)
	ts := time.Date(year, parsed.Month(), parsed.Day(),
		parsed.Hour(), parsed.Minute(), parsed.Second(), 0, time.UTC)
	return &ts
}

// SyslogRFC5424Parser handles the structured syslog format
// `<PRI>VERSION TIMESTAMP HOSTNAME APP PROCID MSGID SD MSG`.
type SyslogRFC5424Parser struct{}

func NewSyslogRFC5424Parser() *SyslogRFC5424Parser { return &SyslogRFC5424Parser{} }

func (p *SyslogRFC5424Parser) Name() string { return "syslog_rfc5424" }

func (p *SyslogRFC5424Parser) SupportedFormats() []string {
	return []string{"syslog_rfc5424"}
}

func (p *SyslogRFC5424Parser) ParseLine(line string) *types.Record {
	groups := namedGroups(syslog5424Pattern, strings.TrimSpace(line))
	if groups == nil {
		return errorRecord(p.Name(), line, "Line does not match RFC 5424 format")
	}

	r := types.NewRecord(line)
	r.ParserName = p.Name()
	r.FormatDetected = "syslog_rfc5424"
	r.ParserConfidence = 0.95

	pri, _ := strconv.Atoi(groups["pri"])
	facility := pri >> 3
	severity := pri & 0x07
	r.Level = types.LevelFromSeverity(severity)
	r.Extra["facility"] = facility
	r.Extra["severity"] = severity

	if ts := groups["timestamp"]; ts != "-" {
		if parsed := parseTimestamp(ts); parsed != nil {
			r.Timestamp = parsed
			r.TimestampPrecision = detectPrecision(ts)
		}
	}

	if hostname := groups["hostname"]; hostname != "-" {
		r.Source.Hostname = hostname
	}
	if app := groups["appname"]; app != "-" {
		r.Source.Service = app
	}
	if procid := groups["procid"]; procid != "-" {
		r.Extra["procid"] = procid
	}
	if msgid := groups["msgid"]; msgid != "-" {
		r.Extra["msgid"] = msgid
	}
	if sd := groups["sd"]; sd != "-" {
		r.StructuredData = parseStructuredData(sd)
	}
	r.Message = groups["message"]
	return r
}

func (p *SyslogRFC5424Parser) CanParse(sample []string) float64 {
	return matchFraction(sample, syslog5424Pattern.MatchString)
}

func (p *SyslogRFC5424Parser) ParseStream(lines iter.Seq[string]) iter.Seq[*types.Record] {
	return streamWith(p.ParseLine, lines)
}

// parseStructuredData decodes `[sd-id key="val" ...]` blocks into nested
// maps keyed by sd-id.
func parseStructuredData(sd string) map[string]interface{} {
	result := make(map[string]interface{})
	for _, element := range sdElementPattern.FindAllStringSubmatch(sd, -1) {
		block := element[1]
		id, rest, _ := strings.Cut(block, " ")
		params := make(map[string]interface{})
		for _, param := range sdParamPattern.FindAllStringSubmatch(rest, -1) {
			params[param[1]] = param[2]
		}
		result[id] = params
	}
	return result
}
