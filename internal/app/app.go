// Package app is the application facade: it wires sources, detection,
// parsers, normalization and correlation into the operations the CLI
// exposes. Everything here is plain library code, the CLI layer only adds
// flag handling and rendering on top.
package app

import (
	"iter"
	"slices"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"unilog/internal/config"
	"unilog/internal/correlate"
	"unilog/internal/detect"
	"unilog/internal/parsers"
	"unilog/internal/pipeline"
	"unilog/internal/security"
	"unilog/internal/sources"
	apperrors "unilog/pkg/errors"
	"unilog/pkg/types"
)

// App bundles the long-lived components shared by all operations.
type App struct {
	cfg      *config.Config
	logger   *logrus.Logger
	registry *parsers.Registry
	detector *detect.Detector
}

// New assembles the facade from a loaded configuration.
func New(cfg *config.Config, logger *logrus.Logger) *App {
	if cfg == nil {
		cfg = &config.Config{}
	}
	if logger == nil {
		logger = logrus.New()
	}
	detector := detect.NewDetector(detect.BuiltinSignatures(), logger)
	if cfg.DetectionSampleSize > 0 {
		detector.SetSampleSize(cfg.DetectionSampleSize)
	}
	return &App{
		cfg:      cfg,
		logger:   logger,
		registry: parsers.NewRegistry(),
		detector: detector,
	}
}

// Registry exposes the parser registry, mainly for the formats listing.
func (a *App) Registry() *parsers.Registry {
	return a.registry
}

// DetectFormat samples the file and returns the best-matching format with
// its confidence.
func (a *App) DetectFormat(path string) (string, float64, error) {
	security.CheckSymlink(path, true, a.logger)
	return a.detector.DetectFile(path)
}

// DetectAllFormats samples the file and returns every candidate format
// ranked by confidence.
func (a *App) DetectAllFormats(path string) ([]types.FormatScore, error) {
	security.CheckSymlink(path, true, a.logger)
	src, err := sources.NewFileSource(path)
	if err != nil {
		return nil, err
	}
	sample, err := a.sampleLines(src)
	if err != nil {
		return nil, err
	}
	return a.detector.DetectAll(sample), nil
}

// sampleLines collects up to the detection sample size of lines from the
// start of a source.
func (a *App) sampleLines(src types.LineSource) ([]string, error) {
	limit := a.cfg.DetectionSampleSize
	if limit <= 0 {
		limit = detect.DefaultSampleSize
	}
	var sample []string
	for line, err := range src.ReadLines() {
		if err != nil {
			return nil, err
		}
		sample = append(sample, line)
		if len(sample) >= limit {
			break
		}
	}
	return sample, nil
}

// Parse reads the whole file into records. An empty format triggers
// detection on a leading sample; unknown formats fall back to the generic
// parser. Records are stamped with the file path and their 1-based line
// number. When normalize is set the records pass through the
// normalization pipeline.
func (a *App) Parse(path, format string, normalize bool) ([]*types.Record, *types.ParseSummary, error) {
	security.CheckSymlink(path, true, a.logger)
	src, err := a.openSource(path)
	if err != nil {
		return nil, nil, err
	}
	return a.ParseFrom(src, path, format, normalize)
}

// ParseFrom parses records from an already-open source. filePath is what
// gets stamped into Record.Source; pass "" for anonymous streams.
func (a *App) ParseFrom(src types.LineSource, filePath, format string, normalize bool) ([]*types.Record, *types.ParseSummary, error) {
	norm, closeNorm, err := a.buildPipeline(normalize)
	if err != nil {
		return nil, nil, err
	}
	defer closeNorm()

	summary := &types.ParseSummary{}
	var records []*types.Record

	var parser types.Parser
	var pending []string
	pendingStart := 1

	sampleSize := a.cfg.DetectionSampleSize
	if sampleSize <= 0 {
		sampleSize = detect.DefaultSampleSize
	}

	emit := func(line string, lineNumber int) {
		if strings.TrimSpace(line) == "" {
			return
		}
		r := parser.ParseLine(line)
		r.Source.FilePath = filePath
		r.Source.LineNumber = lineNumber
		if norm != nil {
			if normalized, err := norm.ProcessOne(r); err == nil {
				r = normalized
			} else {
				r.Extra["normalization_error"] = err.Error()
			}
		}
		summary.Observe(r)
		records = append(records, r)
	}

	resolve := func(sample []string) {
		parser = a.resolveParser(sample, format, summary)
	}

	lineNumber := 0
	for line, err := range src.ReadLines() {
		if err != nil {
			return nil, nil, err
		}
		lineNumber++

		if parser == nil {
			pending = append(pending, line)
			if len(pending) >= sampleSize {
				resolve(pending)
				for i, buffered := range pending {
					emit(buffered, pendingStart+i)
				}
				pending = nil
			}
			continue
		}
		emit(line, lineNumber)
	}

	if parser == nil {
		resolve(pending)
		for i, buffered := range pending {
			emit(buffered, pendingStart+i)
		}
	}
	return records, summary, nil
}

// StreamParse lazily parses a large file without buffering. The format
// must be given explicitly: detection would require buffering a sample,
// which this path avoids. progress may be nil.
func (a *App) StreamParse(path, format string, progress sources.ProgressFunc) (iter.Seq2[*types.Record, error], error) {
	if format == "" {
		return nil, apperrors.ConfigError("stream_parse",
			"streaming requires an explicit format (detection needs buffering)")
	}
	parser, err := a.registry.Get(format)
	if err != nil {
		return nil, err
	}
	security.CheckSymlink(path, true, a.logger)
	src, err := sources.NewChunkedFileSource(path, progress, a.cfg.ProgressInterval)
	if err != nil {
		return nil, err
	}
	return a.parseLazy(src, path, parser), nil
}

// StreamFollow parses a growing file in follow mode, blocking for new
// lines as they are appended.
func (a *App) StreamFollow(path, format string) (iter.Seq2[*types.Record, error], error) {
	if format == "" {
		return nil, apperrors.ConfigError("stream_follow",
			"follow mode requires an explicit format")
	}
	parser, err := a.registry.Get(format)
	if err != nil {
		return nil, err
	}
	src, err := sources.NewFollowSource(path)
	if err != nil {
		return nil, err
	}
	return a.parseLazy(src, path, parser), nil
}

func (a *App) parseLazy(src types.LineSource, filePath string, parser types.Parser) iter.Seq2[*types.Record, error] {
	return func(yield func(*types.Record, error) bool) {
		lineNumber := 0
		for line, err := range src.ReadLines() {
			if err != nil {
				yield(nil, err)
				return
			}
			lineNumber++
			if strings.TrimSpace(line) == "" {
				continue
			}
			r := parser.ParseLine(line)
			r.Source.FilePath = filePath
			r.Source.LineNumber = lineNumber
			if !yield(r, nil) {
				return
			}
		}
	}
}

// Correlate parses every path and runs the selected correlation
// strategies over the merged record streams. strategy is one of
// request_id, timestamp, session or all. At least two readable sources
// are required.
func (a *App) Correlate(paths []string, strategy, format string, windowSeconds float64) (*types.CorrelationResult, error) {
	if len(paths) < 2 {
		return nil, apperrors.ConfigError("correlate", "correlation requires at least 2 files")
	}

	strategies, err := a.buildStrategies(strategy, windowSeconds)
	if err != nil {
		return nil, err
	}

	var streams []iter.Seq[*types.Record]
	for _, path := range paths {
		records, _, err := a.Parse(path, format, false)
		if err != nil {
			a.logger.WithFields(logrus.Fields{
				"path":  path,
				"error": err.Error(),
			}).Error("Skipping unreadable correlation source")
			continue
		}
		streams = append(streams, slices.Values(records))
	}
	if len(streams) < 2 {
		return nil, apperrors.ConfigError("correlate",
			"need at least 2 readable sources for correlation")
	}

	correlator := correlate.NewCorrelator(strategies, 0, a.logger)
	return correlator.Correlate(streams), nil
}

func (a *App) buildStrategies(strategy string, windowSeconds float64) ([]types.Strategy, error) {
	window := secondsToDuration(windowSeconds)

	var strategies []types.Strategy
	if strategy == "request_id" || strategy == "all" {
		strategies = append(strategies, correlate.NewSharedIDStrategy(nil, a.logger))
	}
	if strategy == "timestamp" || strategy == "all" {
		strategies = append(strategies, correlate.NewTimeWindowStrategy(window, 0, true))
	}
	if strategy == "session" || strategy == "all" {
		strategies = append(strategies, correlate.NewSessionStrategy(nil, 0, a.logger))
	}
	if len(strategies) == 0 {
		return nil, apperrors.ConfigError("correlate", "unknown correlation strategy "+strategy)
	}
	return strategies, nil
}

// resolveParser picks the parser for a sample, preferring an explicit
// format hint and falling back to generic when detection is inconclusive.
func (a *App) resolveParser(sample []string, format string, summary *types.ParseSummary) types.Parser {
	if format != "" {
		if parser, err := a.registry.Get(format); err == nil {
			summary.Format = format
			summary.Confidence = 1.0
			return parser
		}
		a.logger.WithField("format", format).Warn("Unknown format hint, falling back to detection")
	}

	name, confidence := a.detector.Detect(sample)
	summary.Format = name
	summary.Confidence = confidence

	parser, err := a.registry.Get(name)
	if err != nil {
		parser = parsers.NewGenericParser()
	}
	return parser
}

// buildPipeline assembles the normalization pipeline from configuration.
// The returned close function releases the geo database handle, if any.
func (a *App) buildPipeline(normalize bool) (*pipeline.Pipeline, func(), error) {
	if !normalize {
		return nil, func() {}, nil
	}

	tsStep, err := pipeline.NewTimestampStep(a.cfg.Timezone)
	if err != nil {
		return nil, nil, err
	}
	steps := []types.Step{
		tsStep,
		pipeline.NewLevelStep(),
		pipeline.NewFieldStep(fieldAliases(a.cfg.FieldMappings), true),
	}

	closeFn := func() {}
	if a.cfg.GeoDatabasePath != "" {
		geo, err := pipeline.NewGeoStep(a.cfg.GeoDatabasePath, nil)
		if err != nil {
			return nil, nil, err
		}
		steps = append(steps, geo)
		closeFn = func() { geo.Close() }
	}
	return pipeline.New(steps, false, a.logger), closeFn, nil
}

// openSource picks the read path by file size: memory-mapped above the
// large-file threshold, plain buffered reads otherwise.
func (a *App) openSource(path string) (types.LineSource, error) {
	file, err := sources.NewFileSource(path)
	if err != nil {
		return nil, err
	}
	if file.Size() > sources.LargeFileThreshold {
		return sources.NewLargeFileSource(path)
	}
	return file, nil
}

// fieldAliases inverts the flat config mapping (source key -> canonical
// name) into the canonical -> aliases shape the field step expects.
func fieldAliases(mappings map[string]string) map[string][]string {
	if len(mappings) == 0 {
		return nil
	}
	out := make(map[string][]string)
	for alias, canonical := range mappings {
		out[canonical] = append(out[canonical], alias)
	}
	return out
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
