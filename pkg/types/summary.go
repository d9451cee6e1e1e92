package types

// ParseSummary aggregates the outcome of parsing one input.
type ParseSummary struct {
	Format        string  `json:"format"`
	Confidence    float64 `json:"confidence"`
	TotalLines    int     `json:"total_lines"`
	ParsedOK      int     `json:"parsed_ok"`
	ParseFailures int     `json:"parse_failures"`
}

// Observe updates the counters for one parsed record.
func (s *ParseSummary) Observe(r *Record) {
	s.TotalLines++
	if len(r.ParseErrors) > 0 {
		s.ParseFailures++
	} else {
		s.ParsedOK++
	}
}

// FilterByLevel returns the records whose level is at least min.
func FilterByLevel(records []*Record, min Level) []*Record {
	var out []*Record
	for _, r := range records {
		if r.Level >= min {
			out = append(out, r)
		}
	}
	return out
}
