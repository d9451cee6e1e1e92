// Package pipeline chains normalization steps over record streams.
package pipeline

import (
	"fmt"
	"iter"

	"github.com/sirupsen/logrus"

	"unilog/pkg/types"
)

// Stats counts what a pipeline has processed so far.
type Stats struct {
	Processed int `json:"processed"`
	Errors    int `json:"errors"`
	Steps     int `json:"steps"`
}

// Pipeline applies normalization steps in sequence. By default a
// failing step annotates the record and lets it through; with
// StopOnError the stream ends with that error instead.
type Pipeline struct {
	steps       []types.Step
	stopOnError bool
	logger      *logrus.Logger

	processed int
	errors    int
}

func New(steps []types.Step, stopOnError bool, logger *logrus.Logger) *Pipeline {
	if logger == nil {
		logger = logrus.New()
	}
	return &Pipeline{steps: steps, stopOnError: stopOnError, logger: logger}
}

// AddStep appends a step and returns the pipeline for chaining.
func (p *Pipeline) AddStep(step types.Step) *Pipeline {
	p.steps = append(p.steps, step)
	return p
}

// Process normalizes a record stream. The error of a yielded pair is
// non-nil only in StopOnError mode, and ends the stream.
func (p *Pipeline) Process(records iter.Seq[*types.Record]) iter.Seq2[*types.Record, error] {
	return func(yield func(*types.Record, error) bool) {
		for r := range records {
			normalized, err := p.ProcessOne(r)
			if err != nil {
				p.errors++
				if p.stopOnError {
					yield(nil, err)
					return
				}
				// keep the original record, marked
				r.Extra["normalization_error"] = err.Error()
				p.logger.WithError(err).Debug("Normalization step failed")
				if !yield(r, nil) {
					return
				}
				continue
			}
			p.processed++
			if !yield(normalized, nil) {
				return
			}
		}
	}
}

// ProcessOne runs every step over a single record.
func (p *Pipeline) ProcessOne(r *types.Record) (*types.Record, error) {
	result := r
	for _, step := range p.steps {
		var err error
		result, err = step.Normalize(result)
		if err != nil {
			return nil, fmt.Errorf("step %s: %w", step.Name(), err)
		}
	}
	return result, nil
}

// Stats reports processing counters.
func (p *Pipeline) Stats() Stats {
	return Stats{Processed: p.processed, Errors: p.errors, Steps: len(p.steps)}
}

// ResetStats zeroes the counters.
func (p *Pipeline) ResetStats() {
	p.processed = 0
	p.errors = 0
}

type conditionalRule struct {
	condition func(*types.Record) bool
	step      types.Step
}

// ConditionalPipeline applies steps gated on record predicates, after
// an unconditional default chain. A predicate that panics skips its
// step rather than killing the stream.
type ConditionalPipeline struct {
	rules        []conditionalRule
	defaultSteps []types.Step
}

func NewConditional() *ConditionalPipeline {
	return &ConditionalPipeline{}
}

// When registers a step applied only to records the condition accepts.
func (p *ConditionalPipeline) When(condition func(*types.Record) bool, step types.Step) *ConditionalPipeline {
	p.rules = append(p.rules, conditionalRule{condition: condition, step: step})
	return p
}

// Always registers a step applied to every record.
func (p *ConditionalPipeline) Always(step types.Step) *ConditionalPipeline {
	p.defaultSteps = append(p.defaultSteps, step)
	return p
}

// Process normalizes a record stream.
func (p *ConditionalPipeline) Process(records iter.Seq[*types.Record]) iter.Seq2[*types.Record, error] {
	return func(yield func(*types.Record, error) bool) {
		for r := range records {
			normalized, err := p.ProcessOne(r)
			if err != nil {
				if !yield(r, nil) {
					return
				}
				continue
			}
			if !yield(normalized, nil) {
				return
			}
		}
	}
}

// ProcessOne runs the default chain and then every matching rule.
func (p *ConditionalPipeline) ProcessOne(r *types.Record) (*types.Record, error) {
	result := r
	for _, step := range p.defaultSteps {
		var err error
		result, err = step.Normalize(result)
		if err != nil {
			return nil, fmt.Errorf("step %s: %w", step.Name(), err)
		}
	}
	for _, rule := range p.rules {
		if !evalCondition(rule.condition, result) {
			continue
		}
		var err error
		result, err = rule.step.Normalize(result)
		if err != nil {
			return nil, fmt.Errorf("step %s: %w", rule.step.Name(), err)
		}
	}
	return result, nil
}

func evalCondition(condition func(*types.Record) bool, r *types.Record) (matched bool) {
	defer func() {
		if recover() != nil {
			matched = false
		}
	}()
	return condition(r)
}
