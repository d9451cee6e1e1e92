package sources

import (
	"iter"
	"os"

	apperrors "unilog/pkg/errors"
)

// ChunkedFileSource reads a file while reporting progress to a callback:
// cumulative encoded bytes consumed, total file size and lines read. The
// callback fires every interval lines and exactly once more at
// end-of-stream.
type ChunkedFileSource struct {
	file     *FileSource
	progress ProgressFunc
	interval int

	bytesRead int64
	linesRead int
}

// NewChunkedFileSource wraps path with progress reporting. interval <= 0
// selects DefaultProgressInterval; a nil progress callback is allowed.
func NewChunkedFileSource(path string, progress ProgressFunc, interval int) (*ChunkedFileSource, error) {
	file, err := NewFileSource(path)
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		interval = DefaultProgressInterval
	}
	return &ChunkedFileSource{file: file, progress: progress, interval: interval}, nil
}

// ReadLines yields the file's lines, firing the progress callback on the
// configured cadence.
func (s *ChunkedFileSource) ReadLines() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		f, err := os.Open(s.file.Path())
		if err != nil {
			yield("", apperrors.IOError("read_source", "failed to open file").
				WithMetadata("path", s.file.Path()).Wrap(err))
			return
		}
		defer f.Close()

		s.bytesRead = 0
		s.linesRead = 0
		total := s.file.Size()

		scanner := newLineScanner(f)
		for scanner.Scan() {
			raw := scanner.Text()
			s.bytesRead += int64(len(raw)) + 1
			s.linesRead++
			if !yield(decodeLine(raw), nil) {
				return
			}
			if s.progress != nil && s.linesRead%s.interval == 0 {
				s.progress(s.bytesRead, total, s.linesRead)
			}
		}
		if err := scanner.Err(); err != nil {
			yield("", scanError(err))
			return
		}
		if s.progress != nil {
			s.progress(s.bytesRead, total, s.linesRead)
		}
	}
}

// Metadata describes the chunked source.
func (s *ChunkedFileSource) Metadata() map[string]string {
	m := s.file.Metadata()
	m["source_type"] = "chunked_file"
	return m
}
