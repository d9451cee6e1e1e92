package correlate

import (
	"iter"
	"slices"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	apperrors "unilog/pkg/errors"
	"unilog/pkg/types"
)

// Correlator merges record streams and applies strategies in priority
// order: records claimed by an earlier strategy are invisible to later
// ones, whatever no strategy claims becomes an orphan.
type Correlator struct {
	strategies []types.Strategy
	windowSize int
	logger     *logrus.Logger
}

func NewCorrelator(strategies []types.Strategy, windowSize int, logger *logrus.Logger) *Correlator {
	if windowSize <= 0 {
		windowSize = 10000
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Correlator{strategies: strategies, windowSize: windowSize, logger: logger}
}

// Correlate merges the sources by timestamp and runs every strategy,
// returning the groups, the unclaimed records and the run statistics.
func (c *Correlator) Correlate(sources []iter.Seq[*types.Record]) *types.CorrelationResult {
	if len(sources) == 0 {
		return types.NewCorrelationResult(nil, nil)
	}

	remaining := slices.Collect(Merge(sources))

	var allGroups []*types.CorrelationGroup
	for _, strategy := range c.strategies {
		if len(remaining) == 0 {
			break
		}

		var groups []*types.CorrelationGroup
		claimed := make(map[uuid.UUID]struct{})
		for g := range strategy.Correlate(slices.Values(remaining), c.windowSize) {
			groups = append(groups, g)
			for _, r := range g.Records {
				claimed[r.ID] = struct{}{}
			}
		}
		if len(groups) == 0 {
			continue
		}

		c.logger.WithFields(logrus.Fields{
			"strategy": strategy.Name(),
			"groups":   len(groups),
			"claimed":  len(claimed),
		}).Debug("Correlation strategy finished")

		allGroups = append(allGroups, groups...)
		remaining = slices.DeleteFunc(remaining, func(r *types.Record) bool {
			_, ok := claimed[r.ID]
			return ok
		})
	}

	return types.NewCorrelationResult(allGroups, remaining)
}

// CorrelateStreaming runs a single streaming-capable strategy over the
// merged sources without buffering the whole stream.
func (c *Correlator) CorrelateStreaming(sources []iter.Seq[*types.Record], strategy types.Strategy) (iter.Seq[*types.CorrelationGroup], error) {
	if !strategy.SupportsStreaming() {
		return nil, apperrors.ConfigError("correlate_streaming",
			"strategy "+strategy.Name()+" does not support streaming")
	}
	return strategy.Correlate(Merge(sources), c.windowSize), nil
}

// StrategyByName resolves a single strategy by its canonical name or one
// of its accepted aliases, with default settings.
func StrategyByName(name string, logger *logrus.Logger) (types.Strategy, error) {
	switch name {
	case "request_id", "shared_id", "id":
		return NewSharedIDStrategy(nil, logger), nil
	case "timestamp", "timestamp_window", "window", "time":
		return NewTimeWindowStrategy(0, 0, true), nil
	case "session":
		return NewSessionStrategy(nil, 0, logger), nil
	default:
		return nil, apperrors.ConfigError("strategy_lookup", "unknown correlation strategy "+name)
	}
}
