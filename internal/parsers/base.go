// Package parsers converts log lines of known formats into normalized
// records. Every parser satisfies types.Parser: ParseLine never fails
// out-of-band, it marks unparseable lines on the record instead, and
// CanParse scores how strongly a sample matches the parser's format.
package parsers

import (
	"iter"
	"strings"
	"time"

	"unilog/pkg/types"
)

// timestampLayouts is the ordered list of explicit formats tried before
// giving up on a timestamp. Comma fraction separators are normalized to
// dots before matching.
var timestampLayouts = []string{
	// ISO 8601 variants
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	// common datetime
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	// CLF
	"02/Jan/2006:15:04:05 -0700",
	"02/Jan/2006:15:04:05",
	// BSD syslog (year added by the caller)
	"Jan _2 15:04:05 2006",
	// slash date
	"2006/01/02 15:04:05",
	// other common orders
	"02-01-2006 15:04:05",
	"01/02/2006 15:04:05",
}

// parseTimestamp tries the explicit layout list and returns nil when no
// layout matches.
func parseTimestamp(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	normalized := normalizeFraction(value)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, normalized); err == nil {
			return &ts
		}
	}
	return nil
}

// normalizeFraction rewrites the "seconds,millis" separator some formats
// use into the dot form the layouts expect.
func normalizeFraction(value string) string {
	if i := strings.Index(value, ","); i > 0 && i+1 < len(value) &&
		value[i-1] >= '0' && value[i-1] <= '9' &&
		value[i+1] >= '0' && value[i+1] <= '9' {
		return value[:i] + "." + value[i+1:]
	}
	return value
}

// detectPrecision infers timestamp precision from the fractional seconds
// present in the original representation.
func detectPrecision(value string) string {
	value = normalizeFraction(value)
	dot := strings.LastIndex(value, ".")
	if dot < 0 {
		return types.PrecisionSeconds
	}
	fraction := value[dot+1:]
	digits := 0
	for _, r := range fraction {
		if r < '0' || r > '9' {
			break
		}
		digits++
	}
	switch {
	case digits >= 9:
		return types.PrecisionNanoseconds
	case digits >= 6:
		return types.PrecisionMicroseconds
	case digits >= 3:
		return types.PrecisionMilliseconds
	default:
		return types.PrecisionSeconds
	}
}

// inferLevelFromMessage keyword-scans a message for severity indicators.
func inferLevelFromMessage(message string) types.Level {
	lower := strings.ToLower(message)

	for _, kw := range []string{"error", "exception", "failed", "failure", "fatal", "panic"} {
		if strings.Contains(lower, kw) {
			return types.LevelError
		}
	}
	for _, kw := range []string{"warn", "warning", "deprecated", "caution"} {
		if strings.Contains(lower, kw) {
			return types.LevelWarning
		}
	}
	for _, kw := range []string{"debug", "trace", "verbose"} {
		if strings.Contains(lower, kw) {
			return types.LevelDebug
		}
	}
	return types.LevelInfo
}

// levelFromStatus maps an HTTP status code to a severity.
func levelFromStatus(status int) types.Level {
	switch {
	case status <= 0:
		return types.LevelUnknown
	case status >= 500:
		return types.LevelError
	case status >= 400:
		return types.LevelWarning
	default:
		return types.LevelInfo
	}
}

// errorRecord builds the graceful-failure record for a line the parser
// could not handle.
func errorRecord(parserName, line, reason string) *types.Record {
	r := types.NewRecord(line)
	r.ParserName = parserName
	r.FormatDetected = "unknown"
	r.Message = line
	r.ParserConfidence = 0
	r.ParseErrors = append(r.ParseErrors, reason)
	return r
}

// streamWith maps parseLine over the non-empty lines of a stream; the
// default ParseStream of every parser.
func streamWith(parseLine func(string) *types.Record, lines iter.Seq[string]) iter.Seq[*types.Record] {
	return func(yield func(*types.Record) bool) {
		for line := range lines {
			if strings.TrimSpace(line) == "" {
				continue
			}
			if !yield(parseLine(line)) {
				return
			}
		}
	}
}

// matchFraction scores a sample by the fraction of lines the predicate
// accepts.
func matchFraction(sample []string, match func(string) bool) float64 {
	if len(sample) == 0 {
		return 0
	}
	matches := 0
	for _, line := range sample {
		if match(strings.TrimSpace(line)) {
			matches++
		}
	}
	return float64(matches) / float64(len(sample))
}

// reconstructYear resolves a year-less month to a concrete year: the
// current one, rolled back when the month is more than one month in the
// future relative to now.
func reconstructYear(month time.Month, now time.Time) int {
	year := now.Year()
	if int(month) > int(now.Month())+1 {
		year--
	}
	return year
}
