package types

import "iter"

// LineSource is a lazy line producer. ReadLines yields decoded lines
// without trailing newline characters; iteration stops on the first
// non-nil error. Abandoning the sequence releases any held handles.
type LineSource interface {
	ReadLines() iter.Seq2[string, error]
	Metadata() map[string]string
}

// Parser converts lines of one format into normalized records.
//
// ParseLine never panics and never signals failure out-of-band: a line
// that does not conform yields a record with ParserConfidence 0 and a
// non-empty ParseErrors. CanParse reports how strongly a sample matches
// the parser's format, in [0,1].
type Parser interface {
	Name() string
	SupportedFormats() []string
	ParseLine(line string) *Record
	CanParse(sample []string) float64
	ParseStream(lines iter.Seq[string]) iter.Seq[*Record]
}

// Strategy groups related records. Correlate consumes the record stream
// and lazily emits groups; bufferSize bounds how many records a
// non-streaming strategy may accumulate before flushing.
type Strategy interface {
	Name() string
	SupportsStreaming() bool
	Correlate(records iter.Seq[*Record], bufferSize int) iter.Seq[*CorrelationGroup]
}

// Step is one normalization stage. Normalize may mutate and return the
// record it is given.
type Step interface {
	Name() string
	Normalize(record *Record) (*Record, error)
}

// Signature is a format-detection rule: patterns to try against a sample
// plus the weight its matches contribute.
type Signature struct {
	Name          string
	Description   string
	MagicPatterns []string
	LinePatterns  []string
	IsJSON        bool
	Weight        float64
	MinLineLength int
	MaxLineLength int
	Parser        string
}

// FormatScore is one entry of a ranked detection result.
type FormatScore struct {
	Format     string  `json:"format"`
	Confidence float64 `json:"confidence"`
}
