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
	apacheCommonPattern = regexp.MustCompile(
		`^(?P<ip>\S+)\s+` +
			`(?P<ident>\S+)\s+` +
			`(?P<user>\S+)\s+` +
			`\[(?P<timestamp>[^\]]+)\]\s+` +
			`"(?P<request>[^"]*)"\s+` +
			`(?P<status>\d+)\s+` +
			`(?P<size>\S+)`)

	apacheCombinedPattern = regexp.MustCompile(
		`^(?P<ip>\S+)\s+` +
			`(?P<ident>\S+)\s+` +
			`(?P<user>\S+)\s+` +
			`\[(?P<timestamp>[^\]]+)\]\s+` +
			`"(?P<request>[^"]*)"\s+` +
			`(?P<status>\d+)\s+` +
			`(?P<size>\S+)\s+` +
			`"(?P<referer>[^"]*)"\s+` +
			`"(?P<useragent>[^"]*)"`)
)

// requestLine is the decomposed `"METHOD /path?query HTTP/1.1"` part of
// an access log line.
type requestLine struct {
	method  string
	path    string
	query   string
	version string
}

func parseRequestLine(request string) requestLine {
	var rl requestLine
	parts := strings.Fields(request)
	if len(parts) >= 1 {
		rl.method = parts[0]
	}
	if len(parts) >= 2 {
		if path, query, found := strings.Cut(parts[1], "?"); found {
			rl.path = path
			rl.query = query
		} else {
			rl.path = parts[1]
		}
	}
	if len(parts) >= 3 {
		rl.version = parts[2]
	}
	return rl
}

// parseCLFTimestamp handles the bracketed access-log timestamp, with and
// without zone offset.
func parseCLFTimestamp(value string) *time.Time {
	if ts, err := time.Parse("02/Jan/2006:15:04:05 -0700", value); err == nil {
		return &ts
	}
	bare := strings.Fields(value)
	if len(bare) > 0 {
		if ts, err := time.Parse("02/Jan/2006:15:04:05", bare[0]); err == nil {
			return &ts
		}
	}
	return nil
}

// namedGroups extracts submatches by group name.
func namedGroups(re *regexp.Regexp, line string) map[string]string {
	match := re.FindStringSubmatch(line)
	if match == nil {
		return nil
	}
	groups := make(map[string]string)
	for i, name := range re.SubexpNames() {
		if name != "" {
			groups[name] = match[i]
		}
	}
	return groups
}

// buildAccessRecord fills the fields shared by the CLF-family parsers.
func buildAccessRecord(r *types.Record, groups map[string]string, format string, confidence float64) {
	r.FormatDetected = format
	r.ParserConfidence = confidence

	if ts := parseCLFTimestamp(groups["timestamp"]); ts != nil {
		r.Timestamp = ts
		r.TimestampPrecision = types.PrecisionSeconds
	}

	rl := parseRequestLine(groups["request"])
	httpInfo := &types.HTTPInfo{
		Method:      rl.method,
		Path:        rl.path,
		Query:       rl.query,
		HTTPVersion: rl.version,
	}
	if status, err := strconv.Atoi(groups["status"]); err == nil {
		httpInfo.StatusCode = status
	}
	if size, err := strconv.ParseInt(groups["size"], 10, 64); err == nil {
		httpInfo.ResponseSize = size
	}
	r.HTTP = httpInfo

	network := &types.NetworkInfo{SourceIP: groups["ip"]}
	if referer := groups["referer"]; referer != "" && referer != "-" {
		network.Referer = referer
	}
	if ua := groups["useragent"]; ua != "" && ua != "-" {
		network.UserAgent = ua
	}
	r.Network = network

	r.Level = levelFromStatus(httpInfo.StatusCode)

	method, path := rl.method, rl.path
	if method == "" {
		method = "-"
	}
	if path == "" {
		path = "-"
	}
	r.Message = method + " " + path + " -> " + groups["status"]

	if user := groups["user"]; user != "-" && user != "" {
		r.Correlation.UserID = user
	}
}

// ApacheCommonParser handles the Apache Common Log Format:
// host ident authuser [date] "request" status bytes.
type ApacheCommonParser struct{}

func NewApacheCommonParser() *ApacheCommonParser { return &ApacheCommonParser{} }

func (p *ApacheCommonParser) Name() string { return "apache_common" }

func (p *ApacheCommonParser) SupportedFormats() []string {
	return []string{"apache_common", "clf"}
}

func (p *ApacheCommonParser) ParseLine(line string) *types.Record {
	groups := namedGroups(apacheCommonPattern, strings.TrimSpace(line))
	if groups == nil {
		return errorRecord(p.Name(), line, "Line does not match Apache Common format")
	}
	r := types.NewRecord(line)
	r.ParserName = p.Name()
	buildAccessRecord(r, groups, "apache_common", 0.95)
	return r
}

func (p *ApacheCommonParser) CanParse(sample []string) float64 {
	return matchFraction(sample, apacheCommonPattern.MatchString)
}

func (p *ApacheCommonParser) ParseStream(lines iter.Seq[string]) iter.Seq[*types.Record] {
	return streamWith(p.ParseLine, lines)
}

// ApacheCombinedParser handles the Combined Log Format, which appends
// quoted referer and user-agent fields to the common form. Lines that
// only match the common form fall back to that parser's behavior.
type ApacheCombinedParser struct {
	common *ApacheCommonParser
}

func NewApacheCombinedParser() *ApacheCombinedParser {
	return &ApacheCombinedParser{common: NewApacheCommonParser()}
}

func (p *ApacheCombinedParser) Name() string { return "apache_combined" }

func (p *ApacheCombinedParser) SupportedFormats() []string {
	return []string{"apache_combined", "combined"}
}

func (p *ApacheCombinedParser) ParseLine(line string) *types.Record {
	groups := namedGroups(apacheCombinedPattern, strings.TrimSpace(line))
	if groups == nil {
		return p.common.ParseLine(line)
	}
	r := types.NewRecord(line)
	r.ParserName = p.Name()
	buildAccessRecord(r, groups, "apache_combined", 0.98)
	return r
}

func (p *ApacheCombinedParser) CanParse(sample []string) float64 {
	combined := matchFraction(sample, apacheCombinedPattern.MatchString)
	if combined > 0 {
		// slight boost over the common form for tie-breaking
		boosted := combined * 1.1
		if boosted > 1 {
			return 1
		}
		return boosted
	}
	return p.common.CanParse(sample) * 0.9
}

func (p *ApacheCombinedParser) ParseStream(lines iter.Seq[string]) iter.Seq[*types.Record] {
	return streamWith(p.ParseLine, lines)
}
