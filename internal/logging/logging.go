// Package logging configures the shared diagnostic logger. All warnings
// the core emits (orphan overflow, session overflow, symlink detection,
// transient read errors) go through this logger on stderr, keeping stdout
// clean for rendered records.
package logging

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New builds a logger for the given level and format. Unknown levels fall
// back to warning, unknown formats to text.
func New(level, format string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	parsed, err := logrus.ParseLevel(normalizeLevel(level))
	if err != nil {
		parsed = logrus.WarnLevel
	}
	logger.SetLevel(parsed)

	if strings.EqualFold(format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			DisableTimestamp: true,
		})
	}
	return logger
}

// Quiet returns a logger that only reports errors.
func Quiet() *logrus.Logger {
	return New("error", "text")
}

func normalizeLevel(level string) string {
	// logrus spells it "warning" but accepts "warn"; map our aliases first
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "warn", "warning":
		return "warning"
	case "":
		return "warning"
	default:
		return strings.ToLower(level)
	}
}
