package correlate

import (
	"iter"
	"time"

	"unilog/pkg/types"
)

// TimeWindowStrategy groups records that fall within a fixed time gap
// of the window start. It assumes a roughly timestamp-ordered stream,
// which the merge stage provides.
type TimeWindowStrategy struct {
	window          time.Duration
	minGroupSize    int
	multipleSources bool
}

// NewTimeWindowStrategy builds a window strategy. requireMultipleSources
// suppresses groups whose records all come from one file, the usual
// setting when correlating across services.
func NewTimeWindowStrategy(window time.Duration, minGroupSize int, requireMultipleSources bool) *TimeWindowStrategy {
	if window <= 0 {
		window = time.Second
	}
	if minGroupSize < 2 {
		minGroupSize = 2
	}
	return &TimeWindowStrategy{
		window:          window,
		minGroupSize:    minGroupSize,
		multipleSources: requireMultipleSources,
	}
}

func (s *TimeWindowStrategy) Name() string { return "timestamp_window" }

// SupportsStreaming is true: windows close as soon as a record falls
// outside them.
func (s *TimeWindowStrategy) SupportsStreaming() bool { return true }

// Correlate emits one group per time window. Records without
// timestamps are skipped. A window reaching bufferSize records is
// flushed early.
func (s *TimeWindowStrategy) Correlate(records iter.Seq[*types.Record], bufferSize int) iter.Seq[*types.CorrelationGroup] {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return func(yield func(*types.CorrelationGroup) bool) {
		var window []*types.Record
		var windowStart *time.Time

		emit := func() bool {
			group := s.maybeCreateGroup(window)
			if group == nil {
				return true
			}
			return yield(group)
		}

		for r := range records {
			if r.Timestamp == nil {
				continue
			}

			switch {
			case windowStart == nil:
				windowStart = r.Timestamp
				window = []*types.Record{r}
			case r.Timestamp.Sub(*windowStart) <= s.window:
				window = append(window, r)
			default:
				if !emit() {
					return
				}
				windowStart = r.Timestamp
				window = []*types.Record{r}
			}

			if len(window) >= bufferSize {
				if !emit() {
					return
				}
				window = nil
				windowStart = nil
			}
		}
		if len(window) > 0 {
			if !emit() {
				return
			}
		}
	}
}

func (s *TimeWindowStrategy) maybeCreateGroup(records []*types.Record) *types.CorrelationGroup {
	if len(records) < s.minGroupSize {
		return nil
	}
	if s.multipleSources && distinctSources(records) < 2 {
		return nil
	}

	var minTS *time.Time
	for _, r := range records {
		if r.Timestamp != nil && (minTS == nil || r.Timestamp.Before(*minTS)) {
			minTS = r.Timestamp
		}
	}
	key := ""
	if minTS != nil {
		key = minTS.Format(time.RFC3339Nano)
	}

	return types.NewCorrelationGroup(key, s.Name(), records, map[string]interface{}{
		"window_seconds": s.window.Seconds(),
	})
}

// distinctSources counts unique source files, records without one
// collapsing into a single unknown bucket.
func distinctSources(records []*types.Record) int {
	seen := make(map[string]struct{})
	for _, r := range records {
		path := r.Source.FilePath
		if path == "" {
			path = "<unknown>"
		}
		seen[path] = struct{}{}
	}
	return len(seen)
}
