package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"unilog/pkg/types"
)

// barWidth is how many cells a confidence bar occupies.
const barWidth = 10

// maxDetectCandidates bounds how many ranked formats are shown per file.
const maxDetectCandidates = 5

// ConfidenceBar renders a fixed-width bar for a confidence in [0,1],
// colored by how trustworthy the detection is.
func ConfidenceBar(confidence float64) string {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	filled := int(confidence * barWidth)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	switch {
	case confidence >= 0.8:
		return color.GreenString(bar)
	case confidence >= 0.5:
		return color.YellowString(bar)
	default:
		return color.RedString(bar)
	}
}

// RenderDetection writes a single-format detection line for one file.
func RenderDetection(w io.Writer, name, format string, confidence float64) error {
	_, err := fmt.Fprintf(w, "%s: %s %s %.0f%%\n",
		name, format, ConfidenceBar(confidence), confidence*100)
	return err
}

// RenderDetectionAll writes the ranked candidates for one file, at most
// maxDetectCandidates of them.
func RenderDetectionAll(w io.Writer, name string, scores []types.FormatScore) error {
	if _, err := fmt.Fprintf(w, "%s:\n", name); err != nil {
		return err
	}
	if len(scores) > maxDetectCandidates {
		scores = scores[:maxDetectCandidates]
	}
	for _, score := range scores {
		if _, err := fmt.Fprintf(w, "  %-20s %s %.0f%%\n",
			score.Format, ConfidenceBar(score.Confidence), score.Confidence*100); err != nil {
			return err
		}
	}
	return nil
}
