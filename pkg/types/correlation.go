package types

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// CorrelationGroup is a set of related records under one strategy-assigned
// key. Derived attributes (sources, time range) are computed at
// construction.
type CorrelationGroup struct {
	ID              uuid.UUID              `json:"id"`
	CorrelationKey  string                 `json:"correlation_key"`
	CorrelationType string                 `json:"correlation_type"`
	Records         []*Record              `json:"records"`
	Sources         []string               `json:"sources"`
	MinTimestamp    *time.Time             `json:"min_timestamp,omitempty"`
	MaxTimestamp    *time.Time             `json:"max_timestamp,omitempty"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
}

// NewCorrelationGroup builds a group over records, deriving the distinct
// source set and the timestamp range. Records keep their given order.
func NewCorrelationGroup(key, correlationType string, records []*Record, metadata map[string]interface{}) *CorrelationGroup {
	g := &CorrelationGroup{
		ID:              uuid.New(),
		CorrelationKey:  key,
		CorrelationType: correlationType,
		Records:         records,
		Metadata:        metadata,
	}

	seen := make(map[string]struct{})
	for _, r := range records {
		if r.Source.FilePath != "" {
			if _, ok := seen[r.Source.FilePath]; !ok {
				seen[r.Source.FilePath] = struct{}{}
				g.Sources = append(g.Sources, r.Source.FilePath)
			}
		}
		if r.Timestamp == nil {
			continue
		}
		if g.MinTimestamp == nil || r.Timestamp.Before(*g.MinTimestamp) {
			ts := *r.Timestamp
			g.MinTimestamp = &ts
		}
		if g.MaxTimestamp == nil || r.Timestamp.After(*g.MaxTimestamp) {
			ts := *r.Timestamp
			g.MaxTimestamp = &ts
		}
	}
	sort.Strings(g.Sources)
	return g
}

// Size returns the number of member records.
func (g *CorrelationGroup) Size() int {
	return len(g.Records)
}

// Duration returns the time span covered by the group, zero when fewer
// than two timestamps are known.
func (g *CorrelationGroup) Duration() time.Duration {
	if g.MinTimestamp == nil || g.MaxTimestamp == nil {
		return 0
	}
	return g.MaxTimestamp.Sub(*g.MinTimestamp)
}

// CorrelationStats summarizes a correlation run.
type CorrelationStats struct {
	TotalEntries      int     `json:"total_entries"`
	CorrelatedEntries int     `json:"correlated_entries"`
	OrphanEntries     int     `json:"orphan_entries"`
	GroupCount        int     `json:"group_count"`
	SourcesCovered    int     `json:"sources_covered"`
	AvgGroupSize      float64 `json:"avg_group_size"`
	CorrelationRate   float64 `json:"correlation_rate"`
}

// CorrelationResult is the outcome of running one or more strategies:
// groups, the records no strategy claimed, and derived statistics.
type CorrelationResult struct {
	Groups  []*CorrelationGroup `json:"groups"`
	Orphans []*Record           `json:"orphans"`
	Stats   CorrelationStats    `json:"stats"`
}

// NewCorrelationResult assembles a result and computes its statistics.
func NewCorrelationResult(groups []*CorrelationGroup, orphans []*Record) *CorrelationResult {
	result := &CorrelationResult{Groups: groups, Orphans: orphans}

	correlated := 0
	sources := make(map[string]struct{})
	for _, g := range groups {
		correlated += len(g.Records)
		for _, s := range g.Sources {
			sources[s] = struct{}{}
		}
	}
	for _, r := range orphans {
		if r.Source.FilePath != "" {
			sources[r.Source.FilePath] = struct{}{}
		}
	}

	total := correlated + len(orphans)
	result.Stats = CorrelationStats{
		TotalEntries:      total,
		CorrelatedEntries: correlated,
		OrphanEntries:     len(orphans),
		GroupCount:        len(groups),
		SourcesCovered:    len(sources),
	}
	if len(groups) > 0 {
		result.Stats.AvgGroupSize = float64(correlated) / float64(len(groups))
	}
	if total > 0 {
		result.Stats.CorrelationRate = float64(correlated) / float64(total)
	}
	return result
}
