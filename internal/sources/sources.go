// Package sources provides line-oriented input readers behind the
// types.LineSource contract: regular files (with transparent gzip),
// memory-mapped large files, chunked reads with progress callbacks, stdin
// with optional peek buffering, and a follow mode for growing files.
//
// Lines are decoded as UTF-8 with replacement of invalid sequences, carry
// no trailing newline characters, and are length-validated on the way out
// so oversize input fails fast instead of ballooning memory.
package sources

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"

	"unilog/internal/security"
)

// LargeFileThreshold is the size above which LargeFileSource switches to
// the memory-mapped read path.
const LargeFileThreshold = 100 * 1024 * 1024

// DefaultPeekLines is how many lines PeekSource retains for inspection.
const DefaultPeekLines = 50

// DefaultProgressInterval is how many lines pass between progress
// callbacks of ChunkedFileSource.
const DefaultProgressInterval = 10000

// ProgressFunc receives ingestion progress from ChunkedFileSource.
type ProgressFunc func(bytesRead, totalBytes int64, linesRead int)

// sourceID derives a stable identifier for a path.
func sourceID(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return fmt.Sprintf("%016x", xxhash.Sum64String(abs))
}

// decodeLine strips an optional trailing carriage return and repairs
// invalid UTF-8.
func decodeLine(raw string) string {
	return strings.ToValidUTF8(strings.TrimSuffix(raw, "\r"), "�")
}

// newLineScanner builds a scanner sized so that any line passing the
// length validator fits in its buffer; longer lines surface as a
// line_length validation failure rather than ErrTooLong.
func newLineScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), security.MaxLineLength+1)
	return scanner
}

// scanError converts scanner failures into their documented shape.
func scanError(err error) error {
	if errors.Is(err, bufio.ErrTooLong) {
		return security.ErrLineTooLong(security.MaxLineLength)
	}
	return err
}
