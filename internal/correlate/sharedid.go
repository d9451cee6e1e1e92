package correlate

import (
	"fmt"
	"iter"

	"github.com/sirupsen/logrus"

	"unilog/internal/security"
	"unilog/pkg/types"
)

// defaultIDFields are the structured-data keys probed when the parsed
// correlation block carries no identifier.
var defaultIDFields = []string{
	"request_id", "trace_id", "correlation_id",
	"span_id", "transaction_id", "x_request_id",
}

// SharedIDStrategy groups records by a shared correlation identifier.
// The most reliable strategy whenever the logs carry IDs at all.
type SharedIDStrategy struct {
	idFields   []string
	maxOrphans int
	logger     *logrus.Logger

	orphanCount    int
	overflowWarned bool
}

func NewSharedIDStrategy(idFields []string, logger *logrus.Logger) *SharedIDStrategy {
	if idFields == nil {
		idFields = defaultIDFields
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &SharedIDStrategy{
		idFields:   idFields,
		maxOrphans: security.MaxOrphanRecords,
		logger:     logger,
	}
}

func (s *SharedIDStrategy) Name() string { return "request_id" }

// SupportsStreaming is false: every record must be seen before groups
// are complete.
func (s *SharedIDStrategy) SupportsStreaming() bool { return false }

// Correlate groups records by shared ID. Groups of a single record are
// not emitted. When more than bufferSize records accumulate, current
// groups are flushed to bound memory.
func (s *SharedIDStrategy) Correlate(records iter.Seq[*types.Record], bufferSize int) iter.Seq[*types.CorrelationGroup] {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return func(yield func(*types.CorrelationGroup) bool) {
		groups := make(map[string][]*types.Record)
		order := make([]string, 0)
		count := 0

		flush := func() bool {
			for _, key := range order {
				members := groups[key]
				if len(members) < 2 {
					continue
				}
				if !yield(types.NewCorrelationGroup(key, s.Name(), members, nil)) {
					return false
				}
			}
			groups = make(map[string][]*types.Record)
			order = order[:0]
			return true
		}

		for r := range records {
			count++
			if count > bufferSize {
				if !flush() {
					return
				}
				count = 0
			}

			id := s.extractID(r)
			if id == "" {
				s.trackOrphan()
				continue
			}
			if _, ok := groups[id]; !ok {
				order = append(order, id)
			}
			groups[id] = append(groups[id], r)
		}
		flush()
	}
}

func (s *SharedIDStrategy) extractID(r *types.Record) string {
	switch {
	case r.Correlation.RequestID != "":
		return r.Correlation.RequestID
	case r.Correlation.TraceID != "":
		return r.Correlation.TraceID
	case r.Correlation.CorrelationID != "":
		return r.Correlation.CorrelationID
	case r.Correlation.SessionID != "":
		return r.Correlation.SessionID
	}
	for _, field := range s.idFields {
		if v, ok := r.StructuredData[field]; ok {
			return fmt.Sprintf("%v", v)
		}
	}
	return ""
}

// trackOrphan counts records without any identifier, warning once when
// the cap is reached.
func (s *SharedIDStrategy) trackOrphan() {
	s.orphanCount++
	if s.orphanCount > s.maxOrphans && !s.overflowWarned {
		s.logger.WithField("max_orphans", s.maxOrphans).
			Warn("Orphan record limit exceeded, additional records without correlation IDs are not tracked")
		s.overflowWarned = true
	}
}
