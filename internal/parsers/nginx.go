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
	// default nginx access format; referer/user-agent pair is optional
	nginxAccessPattern = regexp.MustCompile(
		`^(?P<ip>\S+)\s+` +
			`(?P<ident>\S+)\s+` +
			`(?P<user>\S+)\s+` +
			`\[(?P<timestamp>[^\]]+)\]\s+` +
			`"(?P<request>[^"]*)"\s+` +
			`(?P<status>\d+)\s+` +
			`(?P<size>\S+)` +
			`(?:\s+"(?P<referer>[^"]*)"\s+` +
			`"(?P<useragent>[^"]*)")?`)

	// YYYY/MM/DD HH:MM:SS [level] PID#TID: *CID message
	nginxErrorPattern = regexp.MustCompile(
		`^(?P<timestamp>\d{4}/\d{2}/\d{2}\s+\d{2}:\d{2}:\d{2})\s+` +
			`\[(?P<level>\w+)\]\s+` +
			`(?P<pid>\d+)#(?P<tid>\d+):\s*` +
			`(?:\*(?P<cid>\d+)\s+)?` +
			`(?P<message>.*)`)
)

// NginxAccessParser handles the default nginx access log format, which
// mirrors Apache Combined with an optional trailing referer/user-agent
// pair.
type NginxAccessParser struct{}

func NewNginxAccessParser() *NginxAccessParser { return &NginxAccessParser{} }

func (p *NginxAccessParser) Name() string { return "nginx_access" }

func (p *NginxAccessParser) SupportedFormats() []string {
	return []string{"nginx_access", "nginx_default", "nginx"}
}

func (p *NginxAccessParser) ParseLine(line string) *types.Record {
	groups := namedGroups(nginxAccessPattern, strings.TrimSpace(line))
	if groups == nil {
		return errorRecord(p.Name(), line, "Line does not match Nginx access format")
	}
	r := types.NewRecord(line)
	r.ParserName = p.Name()
	buildAccessRecord(r, groups, "nginx_access", 0.95)
	return r
}

func (p *NginxAccessParser) CanParse(sample []string) float64 {
	return matchFraction(sample, nginxAccessPattern.MatchString)
}

func (p *NginxAccessParser) ParseStream(lines iter.Seq[string]) iter.Seq[*types.Record] {
	return streamWith(p.ParseLine, lines)
}

// NginxErrorParser handles the nginx error log format
// `YYYY/MM/DD HH:MM:SS [level] PID#TID: *CID message`.
type NginxErrorParser struct{}

func NewNginxErrorParser() *NginxErrorParser { return &NginxErrorParser{} }

func (p *NginxErrorParser) Name() string { return "nginx_error" }

func (p *NginxErrorParser) SupportedFormats() []string {
	return []string{"nginx_error"}
}

func (p *NginxErrorParser) ParseLine(line string) *types.Record {
	groups := namedGroups(nginxErrorPattern, strings.TrimSpace(line))
	if groups == nil {
		return errorRecord(p.Name(), line, "Line does not match Nginx error format")
	}

	r := types.NewRecord(line)
	r.ParserName = p.Name()
	r.FormatDetected = "nginx_error"
	r.ParserConfidence = 0.95

	if ts, err := time.Parse("2006/01/02 15:04:05", normalizeSpaces(groups["timestamp"])); err == nil {
		r.Timestamp = &ts
		r.TimestampPrecision = types.PrecisionSeconds
	}

	r.Level = types.ParseLevel(groups["level"])
	r.Message = groups["message"]

	if pid, err := strconv.Atoi(groups["pid"]); err == nil {
		r.Extra["pid"] = pid
	}
	if tid, err := strconv.Atoi(groups["tid"]); err == nil {
		r.Extra["tid"] = tid
	}
	if cid := groups["cid"]; cid != "" {
		if n, err := strconv.Atoi(cid); err == nil {
			r.Extra["connection_id"] = n
		}
	}

	r.Source.Service = "nginx"
	return r
}

func (p *NginxErrorParser) CanParse(sample []string) float64 {
	return matchFraction(sample, nginxErrorPattern.MatchString)
}

func (p *NginxErrorParser) ParseStream(lines iter.Seq[string]) iter.Seq[*types.Record] {
	return streamWith(p.ParseLine, lines)
}

// normalizeSpaces collapses repeated whitespace to single spaces so
// strict layouts match regex-captured text.
func normalizeSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
