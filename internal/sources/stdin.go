package sources

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"os"
)

// StdinSource streams lines from standard input (or any reader, for
// tests). Metadata reports running totals.
type StdinSource struct {
	reader io.Reader

	bytesRead int64
	linesRead int
}

// NewStdinSource reads the process's standard input.
func NewStdinSource() *StdinSource {
	return NewStdinSourceFrom(os.Stdin)
}

// NewStdinSourceFrom reads an arbitrary stream behind the stdin contract.
func NewStdinSourceFrom(r io.Reader) *StdinSource {
	return &StdinSource{reader: r}
}

// ReadLines yields lines as they arrive.
func (s *StdinSource) ReadLines() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		scanner := newLineScanner(s.reader)
		for scanner.Scan() {
			raw := scanner.Text()
			s.bytesRead += int64(len(raw)) + 1
			s.linesRead++
			if !yield(decodeLine(raw), nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield("", scanError(err))
		}
	}
}

// Metadata reports the totals consumed so far.
func (s *StdinSource) Metadata() map[string]string {
	return map[string]string{
		"source_type": "stdin",
		"path":        "<stdin>",
		"bytes_read":  fmt.Sprintf("%d", s.bytesRead),
		"lines_read":  fmt.Sprintf("%d", s.linesRead),
	}
}

// PeekSource buffers the first lines of a stream so they can be inspected
// (for format detection) without losing them: ReadLines replays the
// buffered lines first and then continues from the underlying stream.
type PeekSource struct {
	scanner   *bufio.Scanner
	peekLines int

	buffered []string
	peeked   bool
	scanErr  error

	bytesRead int64
	linesRead int
}

// NewPeekSource wraps r with a peek buffer of peekLines lines.
// peekLines <= 0 selects DefaultPeekLines.
func NewPeekSource(r io.Reader, peekLines int) *PeekSource {
	if peekLines <= 0 {
		peekLines = DefaultPeekLines
	}
	return &PeekSource{scanner: newLineScanner(r), peekLines: peekLines}
}

// Peek returns up to the configured number of leading lines. It consumes
// the underlying stream at most once; repeated calls return the same
// slice.
func (s *PeekSource) Peek() []string {
	if s.peeked {
		return s.buffered
	}
	s.peeked = true
	for len(s.buffered) < s.peekLines && s.scanner.Scan() {
		s.buffered = append(s.buffered, decodeLine(s.scanner.Text()))
	}
	if err := s.scanner.Err(); err != nil {
		s.scanErr = scanError(err)
	}
	return s.buffered
}

// ReadLines yields the peeked lines first, then continues streaming.
func (s *PeekSource) ReadLines() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, line := range s.Peek() {
			s.bytesRead += int64(len(line)) + 1
			s.linesRead++
			if !yield(line, nil) {
				return
			}
		}
		if s.scanErr != nil {
			yield("", s.scanErr)
			return
		}
		for s.scanner.Scan() {
			raw := s.scanner.Text()
			s.bytesRead += int64(len(raw)) + 1
			s.linesRead++
			if !yield(decodeLine(raw), nil) {
				return
			}
		}
		if err := s.scanner.Err(); err != nil {
			yield("", scanError(err))
		}
	}
}

// Metadata reports the totals consumed so far.
func (s *PeekSource) Metadata() map[string]string {
	return map[string]string{
		"source_type": "stdin",
		"path":        "<stdin>",
		"peek_lines":  fmt.Sprintf("%d", s.peekLines),
		"bytes_read":  fmt.Sprintf("%d", s.bytesRead),
		"lines_read":  fmt.Sprintf("%d", s.linesRead),
	}
}
