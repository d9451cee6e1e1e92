// Package security holds the input validation applied at the module's
// documented boundaries: line length, JSON depth, regex vetting, CSV cell
// escaping and symlink detection. These checks are always on, not opt-in.
package security

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

// Hard limits. Every unbounded accumulator in the module is capped by one
// of these, with a documented diagnostic on overflow.
const (
	MaxLineLength    = 10 * 1024 * 1024
	MaxJSONDepth     = 50
	MaxRegexLength   = 1000
	MaxOrphanRecords = 10000
	MaxSessionGroups = 100000
)

// Validation failure kinds.
const (
	KindLineLength  = "line_length"
	KindJSONDepth   = "json_depth"
	KindRegexLength = "regex_length"
	KindRegexSyntax = "regex_syntax"
	KindRegexReDoS  = "regex_redos"
)

// ValidationError is the typed failure every validator returns.
type ValidationError struct {
	Kind    string
	Message string
	Details map[string]interface{}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed (%s): %s", e.Kind, e.Message)
}

func newValidationError(kind, message string, details map[string]interface{}) *ValidationError {
	return &ValidationError{Kind: kind, Message: message, Details: details}
}

// redosPatterns are heuristics for nested unbounded quantifiers, the
// classic catastrophic-backtracking shapes.
var redosPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\(\?.*\+.*\+`),
	regexp.MustCompile(`\(\?.*\*.*\*`),
	regexp.MustCompile(`\([^)]*\+\)[^)]*\+`),
	regexp.MustCompile(`\([^)]*\*\)[^)]*\*`),
}

// ValidateLineLength checks that the UTF-8 byte length of line, with
// invalid sequences counted at replacement-character width, does not
// exceed max. max <= 0 selects MaxLineLength.
func ValidateLineLength(line string, max int) error {
	if max <= 0 {
		max = MaxLineLength
	}
	length := utf8ByteLength(line)
	if length > max {
		return newValidationError(KindLineLength,
			fmt.Sprintf("line exceeds maximum length: %d bytes (max %d)", length, max),
			map[string]interface{}{"length": length, "max": max})
	}
	return nil
}

// ErrLineTooLong builds the line_length failure for callers that detect
// the breach without materializing the line.
func ErrLineTooLong(max int) error {
	return newValidationError(KindLineLength,
		fmt.Sprintf("line exceeds maximum length (max %d bytes)", max),
		map[string]interface{}{"max": max})
}

// ValidateJSONDepth walks a decoded JSON value and fails on the first path
// deeper than max. max <= 0 selects MaxJSONDepth.
func ValidateJSONDepth(value interface{}, max int) error {
	if max <= 0 {
		max = MaxJSONDepth
	}
	return checkDepth(value, 0, max)
}

func checkDepth(value interface{}, depth, max int) error {
	if depth > max {
		return newValidationError(KindJSONDepth,
			fmt.Sprintf("JSON nesting exceeds maximum depth %d", max),
			map[string]interface{}{"max": max})
	}
	switch v := value.(type) {
	case map[string]interface{}:
		for _, child := range v {
			if err := checkDepth(child, depth+1, max); err != nil {
				return err
			}
		}
	case []interface{}:
		for _, child := range v {
			if err := checkDepth(child, depth+1, max); err != nil {
				return err
			}
		}
	}
	return nil
}

// ValidateRegexPattern vets a user-supplied pattern and compiles it
// case-insensitively. Over-length patterns, patterns matching the nested
// quantifier heuristics, and syntax errors are rejected.
func ValidateRegexPattern(pattern string) (*regexp.Regexp, error) {
	if len(pattern) > MaxRegexLength {
		return nil, newValidationError(KindRegexLength,
			fmt.Sprintf("pattern too long: %d chars (max %d)", len(pattern), MaxRegexLength),
			map[string]interface{}{"length": len(pattern)})
	}
	for _, heuristic := range redosPatterns {
		if heuristic.MatchString(pattern) {
			return nil, newValidationError(KindRegexReDoS,
				"pattern rejected: nested quantifiers can cause catastrophic backtracking",
				map[string]interface{}{"pattern": pattern})
		}
	}
	compiled, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, newValidationError(KindRegexSyntax,
			fmt.Sprintf("invalid pattern: %v", err),
			map[string]interface{}{"pattern": pattern})
	}
	return compiled, nil
}

// csvTriggerPrefixes are the characters spreadsheet software interprets as
// formula starts.
var csvTriggerPrefixes = []string{"=", "+", "-", "@", "\t", "\r"}

// SanitizeCSVCell neutralizes formula injection by prefixing trigger cells
// with a single quote.
func SanitizeCSVCell(cell string) string {
	for _, prefix := range csvTriggerPrefixes {
		if strings.HasPrefix(cell, prefix) {
			return "'" + cell
		}
	}
	return cell
}

// CheckSymlink reports whether path is a symbolic link and resolves its
// target. When warn is set and the path is a link, a warning is emitted on
// the diagnostic channel.
func CheckSymlink(path string, warn bool, logger *logrus.Logger) (bool, string, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return false, "", err
	}
	if info.Mode()&os.ModeSymlink == 0 {
		return false, "", nil
	}
	target, err := filepath.EvalSymlinks(path)
	if err != nil {
		return true, "", err
	}
	if warn && logger != nil {
		logger.WithFields(logrus.Fields{
			"path":   path,
			"target": target,
		}).Warn("input path is a symbolic link")
	}
	return true, target, nil
}

// utf8ByteLength measures the UTF-8 byte length of s with invalid
// sequences counted at the width of the replacement character.
func utf8ByteLength(s string) int {
	if utf8.ValidString(s) {
		return len(s)
	}
	n := 0
	for _, r := range s {
		n += utf8.RuneLen(r)
	}
	return n
}
