package parsers

import (
	"iter"
	"regexp"
	"strconv"
	"strings"
	"time"

	"unilog/pkg/types"
)

// genericTimestampPatterns are tried in order against the start of a
// line; the name selects the decoding strategy for the captured text.
var genericTimestampPatterns = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"iso", regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:?\d{2})?)`)},
	{"datetime", regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}\s+\d{2}:\d{2}:\d{2}(?:[,.]\d+)?)`)},
	{"slash_date", regexp.MustCompile(`^(\d{4}/\d{2}/\d{2}\s+\d{2}:\d{2}:\d{2})`)},
	{"us_date", regexp.MustCompile(`^(\d{2}/\d{2}/\d{4}\s+\d{2}:\d{2}:\d{2})`)},
	{"time_only", regexp.MustCompile(`^(\d{2}:\d{2}:\d{2}(?:[,.]\d+)?)`)},
	{"unix", regexp.MustCompile(`^(\d{10})(?:\s|$)`)},
	{"unix_ms", regexp.MustCompile(`^(\d{13})(?:\s|$)`)},
}

// genericLevelPatterns scan the whole line for severity words, most
// severe first so ERROR wins over a later INFO.
var genericLevelPatterns = []struct {
	level   types.Level
	pattern *regexp.Regexp
}{
	{types.LevelEmergency, regexp.MustCompile(`\b(?:EMERG|EMERGENCY)\b`)},
	{types.LevelAlert, regexp.MustCompile(`\bALERT\b`)},
	{types.LevelCritical, regexp.MustCompile(`\b(?:CRIT|CRITICAL|FATAL)\b`)},
	{types.LevelError, regexp.MustCompile(`\b(?:ERR|ERROR)\b`)},
	{types.LevelWarning, regexp.MustCompile(`\b(?:WARN|WARNING)\b`)},
	{types.LevelNotice, regexp.MustCompile(`\bNOTICE\b`)},
	{types.LevelInfo, regexp.MustCompile(`\bINFO\b`)},
	{types.LevelDebug, regexp.MustCompile(`\b(?:DEBUG|TRACE|VERBOSE)\b`)},
}

// GenericParser is the fallback for unrecognized formats: it extracts a
// leading timestamp and a severity word when present and reports low
// confidence so any specific parser outranks it.
type GenericParser struct{}

func NewGenericParser() *GenericParser { return &GenericParser{} }

func (p *GenericParser) Name() string { return "generic" }

func (p *GenericParser) SupportedFormats() []string {
	return []string{"generic", "unknown", "plain", "text"}
}

func (p *GenericParser) ParseLine(line string) *types.Record {
	trimmed := strings.TrimSpace(line)

	r := types.NewRecord(line)
	r.ParserName = p.Name()
	r.FormatDetected = "generic"
	confidence := 0.3

	message := trimmed
	if ts, rest, ok := extractLeadingTimestamp(trimmed); ok {
		r.Timestamp = ts
		confidence = 0.5
		message = strings.TrimSpace(rest)
		if message == "" {
			message = trimmed
		}
	}

	if level, ok := scanLevelWord(trimmed); ok {
		r.Level = level
		confidence += 0.2
	} else {
		r.Level = types.LevelInfo
	}
	if confidence > 0.7 {
		confidence = 0.7
	}

	r.Message = message
	r.ParserConfidence = confidence
	return r
}

// extractLeadingTimestamp matches the line start against the known
// timestamp shapes and returns the remainder of the line.
func extractLeadingTimestamp(line string) (*time.Time, string, bool) {
	for _, candidate := range genericTimestampPatterns {
		match := candidate.pattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		raw := match[1]
		var ts *time.Time
		switch candidate.name {
		case "unix":
			if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
				t := time.Unix(n, 0).UTC()
				ts = &t
			}
		case "unix_ms":
			if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
				t := time.UnixMilli(n).UTC()
				ts = &t
			}
		case "time_only":
			normalized := normalizeFraction(raw)
			if parsed, err := time.Parse("15:04:05.999999999", normalized); err == nil {
				now := time.Now().UTC()
				t := time.Date(now.Year(), now.Month(), now.Day(),
					parsed.Hour(), parsed.Minute(), parsed.Second(), parsed.Nanosecond(), time.UTC)
				ts = &t
			}
		default:
			ts = parseTimestamp(raw)
		}
		if ts == nil {
			continue
		}
		return ts, line[len(match[0]):], true
	}
	return nil, line, false
}

// scanLevelWord returns the most severe level word found in the line.
func scanLevelWord(line string) (types.Level, bool) {
	upper := strings.ToUpper(line)
	for _, candidate := range genericLevelPatterns {
		if candidate.pattern.MatchString(upper) {
			return candidate.level, true
		}
	}
	return types.LevelUnknown, false
}

func (p *GenericParser) CanParse(sample []string) float64 {
	if len(sample) == 0 {
		return 0
	}
	withTimestamp := 0
	withLevel := 0
	for _, line := range sample {
		line = strings.TrimSpace(line)
		if _, _, ok := extractLeadingTimestamp(line); ok {
			withTimestamp++
		}
		if _, ok := scanLevelWord(line); ok {
			withLevel++
		}
	}
	tsRatio := float64(withTimestamp) / float64(len(sample))
	levelRatio := float64(withLevel) / float64(len(sample))
	confidence := 0.3 + tsRatio*0.2 + levelRatio*0.1
	if confidence > 0.6 {
		return 0.6
	}
	return confidence
}

func (p *GenericParser) ParseStream(lines iter.Seq[string]) iter.Seq[*types.Record] {
	return streamWith(p.ParseLine, lines)
}
