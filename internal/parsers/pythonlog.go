package parsers

import (
	"iter"
	"regexp"
	"strings"
	"time"

	"unilog/pkg/types"
)

// Patterns for the default logging format of Python applications
// (`asctime - name - LEVEL - message`) and its common variations, tried
// in order of specificity.
var (
	pythonThreadedPattern = regexp.MustCompile(
		`^(?P<timestamp>\d{4}-\d{2}-\d{2}\s+\d{2}:\d{2}:\d{2}[,.]\d{3})\s+` +
			`[-:]\s*` +
			`(?P<name>\S+)\s+` +
			`[-:]\s*` +
			`(?P<level>DEBUG|INFO|WARNING|ERROR|CRITICAL)\s+` +
			`[-:]\s*` +
			`\[(?P<thread>[^\]]+)\]\s+` +
			`[-:]\s*` +
			`(?P<message>.*)`)

	pythonFullPattern = regexp.MustCompile(
		`^(?P<timestamp>\d{4}-\d{2}-\d{2}\s+\d{2}:\d{2}:\d{2}[,.]\d{3})\s+` +
			`[-:]\s*` +
			`(?P<name>\S+)\s+` +
			`[-:]\s*` +
			`(?P<level>DEBUG|INFO|WARNING|ERROR|CRITICAL)\s+` +
			`[-:]\s*` +
			`(?P<message>.*)`)

	pythonAltPattern = regexp.MustCompile(
		`^(?P<timestamp>\d{4}-\d{2}-\d{2}\s+\d{2}:\d{2}:\d{2}[,.]\d{3})\s+` +
			`(?P<level>DEBUG|INFO|WARNING|ERROR|CRITICAL)\s+` +
			`(?P<name>\S+)\s+` +
			`(?P<message>.*)`)

	pythonSimplePattern = regexp.MustCompile(
		`^(?P<level>DEBUG|INFO|WARNING|ERROR|CRITICAL):(?P<name>\S+):(?P<message>.*)`)

	pythonPatterns = []*regexp.Regexp{
		pythonThreadedPattern, pythonFullPattern, pythonAltPattern, pythonSimplePattern,
	}
)

// PythonLoggingParser handles the standard logging output of Python
// applications, accepting both the comma and dot millisecond separators.
type PythonLoggingParser struct{}

func NewPythonLoggingParser() *PythonLoggingParser { return &PythonLoggingParser{} }

func (p *PythonLoggingParser) Name() string { return "python_logging" }

func (p *PythonLoggingParser) SupportedFormats() []string {
	return []string{"python_logging", "python_default", "python"}
}

func (p *PythonLoggingParser) ParseLine(line string) *types.Record {
	trimmed := strings.TrimSpace(line)
	for _, pattern := range pythonPatterns {
		if groups := namedGroups(pattern, trimmed); groups != nil {
			return p.buildRecord(line, groups)
		}
	}
	return errorRecord(p.Name(), line, "Line does not match Python logging format")
}

func (p *PythonLoggingParser) buildRecord(line string, groups map[string]string) *types.Record {
	r := types.NewRecord(line)
	r.ParserName = p.Name()
	r.FormatDetected = "python_logging"
	r.ParserConfidence = 0.95

	if raw := groups["timestamp"]; raw != "" {
		normalized := normalizeSpaces(normalizeFraction(raw))
		if ts, err := time.Parse("2006-01-02 15:04:05.000", normalized); err == nil {
			r.Timestamp = &ts
			r.TimestampPrecision = types.PrecisionMilliseconds
		}
	}

	r.Level = types.ParseLevel(groups["level"])
	r.Message = groups["message"]
	r.Source.Service = groups["name"]
	if thread := groups["thread"]; thread != "" {
		r.Extra["thread"] = thread
	}
	return r
}

func (p *PythonLoggingParser) CanParse(sample []string) float64 {
	return matchFraction(sample, func(line string) bool {
		for _, pattern := range pythonPatterns {
			if pattern.MatchString(line) {
				return true
			}
		}
		return false
	})
}

func (p *PythonLoggingParser) ParseStream(lines iter.Seq[string]) iter.Seq[*types.Record] {
	return streamWith(p.ParseLine, lines)
}
