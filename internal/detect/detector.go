// Package detect identifies log formats from content samples by scoring
// weighted format signatures.
package detect

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"unilog/internal/sources"
	"unilog/pkg/types"
)

// DefaultSampleSize is how many lines are inspected when the caller
// does not say otherwise.
const DefaultSampleSize = 50

type compiledSignature struct {
	sig   types.Signature
	magic []*regexp.Regexp
	line  []*regexp.Regexp
}

// Detector scores format signatures against line samples. Magic
// patterns are strong anchored fingerprints, line patterns weak shared
// traits; JSON-shaped signatures additionally require that most of the
// sample decodes.
type Detector struct {
	compiled   []compiledSignature
	sampleSize int
	logger     *logrus.Logger
}

// NewDetector builds a detector over the given signatures, or the
// built-in set when nil. Invalid patterns are skipped, not fatal.
func NewDetector(signatures []types.Signature, logger *logrus.Logger) *Detector {
	if signatures == nil {
		signatures = BuiltinSignatures()
	}
	if logger == nil {
		logger = logrus.New()
	}

	d := &Detector{sampleSize: DefaultSampleSize, logger: logger}
	for _, sig := range signatures {
		cs := compiledSignature{sig: sig}
		for _, pattern := range sig.MagicPatterns {
			// magic patterns only count when they match at line start
			re, err := regexp.Compile("^(?:" + pattern + ")")
			if err != nil {
				logger.WithFields(logrus.Fields{
					"signature": sig.Name,
					"pattern":   pattern,
				}).Warn("Skipping invalid magic pattern")
				continue
			}
			cs.magic = append(cs.magic, re)
		}
		for _, pattern := range sig.LinePatterns {
			re, err := regexp.Compile(pattern)
			if err != nil {
				logger.WithFields(logrus.Fields{
					"signature": sig.Name,
					"pattern":   pattern,
				}).Warn("Skipping invalid line pattern")
				continue
			}
			cs.line = append(cs.line, re)
		}
		d.compiled = append(d.compiled, cs)
	}
	return d
}

// SetSampleSize overrides the number of lines inspected per detection.
func (d *Detector) SetSampleSize(n int) {
	if n > 0 {
		d.sampleSize = n
	}
}

// Detect returns the best-matching format and a 0..1 confidence. Empty
// samples report ("unknown", 0); samples no signature matches fall back
// to ("generic", 0.3).
func (d *Detector) Detect(lines []string) (string, float64) {
	ranked := d.DetectAll(lines)
	return ranked[0].Format, ranked[0].Confidence
}

// DetectAll scores every signature and returns the matches ranked by
// confidence, the best first.
func (d *Detector) DetectAll(lines []string) []types.FormatScore {
	sample := cleanSample(lines, d.sampleSize)
	if len(sample) == 0 {
		return []types.FormatScore{{Format: "unknown", Confidence: 0}}
	}

	type scored struct {
		name  string
		score float64
	}
	var scores []scored
	maxScore := 0.0
	for _, cs := range d.compiled {
		score := scoreSignature(cs, sample)
		if score > 0 {
			scores = append(scores, scored{cs.sig.Name, score})
			if score > maxScore {
				maxScore = score
			}
		}
	}
	if len(scores) == 0 {
		return []types.FormatScore{{Format: "generic", Confidence: 0.3}}
	}

	if maxScore < 1 {
		maxScore = 1
	}
	results := make([]types.FormatScore, 0, len(scores))
	for _, s := range scores {
		confidence := s.score / maxScore
		if confidence > 1 {
			confidence = 1
		}
		results = append(results, types.FormatScore{Format: s.name, Confidence: confidence})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Confidence > results[j].Confidence
	})
	return results
}

// DetectSource samples a line source and detects its format.
func (d *Detector) DetectSource(src types.LineSource) (string, float64, error) {
	var sample []string
	for line, err := range src.ReadLines() {
		if err != nil {
			return "unknown", 0, err
		}
		sample = append(sample, line)
		if len(sample) >= d.sampleSize {
			break
		}
	}
	format, confidence := d.Detect(sample)
	return format, confidence, nil
}

// DetectFile detects the format of a log file, transparently handling
// gzip and oversized files the way parsing does.
func (d *Detector) DetectFile(path string) (string, float64, error) {
	src, err := sources.NewFileSource(path)
	if err != nil {
		return "unknown", 0, err
	}
	return d.DetectSource(src)
}

// cleanSample trims, drops blank lines and caps the sample size.
func cleanSample(lines []string, limit int) []string {
	sample := make([]string, 0, limit)
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		sample = append(sample, line)
		if len(sample) >= limit {
			break
		}
	}
	return sample
}

func scoreSignature(cs compiledSignature, sample []string) float64 {
	score := 0.0

	if cs.sig.IsJSON {
		jsonRatio := jsonStructureRatio(sample)
		if jsonRatio <= 0.5 {
			// claims to be JSON but the sample is not
			return 0
		}
		score += jsonRatio * cs.sig.Weight * 2.0
	}

	magicMatches := 0
	for _, line := range sample {
		for _, re := range cs.magic {
			if re.MatchString(line) {
				magicMatches++
				break
			}
		}
	}
	if magicMatches > 0 {
		score += float64(magicMatches) / float64(len(sample)) * cs.sig.Weight * 3.0
	}

	lineMatches := 0
	for _, line := range sample {
		for _, re := range cs.line {
			if re.MatchString(line) {
				lineMatches++
				break
			}
		}
	}
	if lineMatches > 0 {
		score += float64(lineMatches) / float64(len(sample)) * cs.sig.Weight * 1.0
	}

	return score
}

// jsonStructureRatio reports the fraction of lines that are valid JSON
// documents wrapped in braces.
func jsonStructureRatio(sample []string) float64 {
	if len(sample) == 0 {
		return 0
	}
	count := 0
	for _, line := range sample {
		if !strings.HasPrefix(line, "{") || !strings.HasSuffix(line, "}") {
			continue
		}
		if json.Valid([]byte(line)) {
			count++
		}
	}
	return float64(count) / float64(len(sample))
}
