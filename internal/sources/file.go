package sources

import (
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	apperrors "unilog/pkg/errors"
)

// FileSource reads a regular file line by line. Files ending in .gz are
// decompressed transparently.
type FileSource struct {
	path string
	size int64
}

// NewFileSource stats the file up front so a missing path fails the
// caller at construction, not mid-stream.
func NewFileSource(path string) (*FileSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, apperrors.IOError("open_source", "file not found").
			WithMetadata("path", path).Wrap(err)
	}
	if info.IsDir() {
		return nil, apperrors.IOError("open_source", "path is a directory").
			WithMetadata("path", path)
	}
	return &FileSource{path: path, size: info.Size()}, nil
}

// Path returns the file path backing the source.
func (s *FileSource) Path() string {
	return s.path
}

// Size returns the file size observed at construction.
func (s *FileSource) Size() int64 {
	return s.size
}

// ReadLines lazily yields the file's lines. The file handle is released
// when iteration ends, including consumer abandonment.
func (s *FileSource) ReadLines() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		f, err := os.Open(s.path)
		if err != nil {
			yield("", apperrors.IOError("read_source", "failed to open file").
				WithMetadata("path", s.path).Wrap(err))
			return
		}
		defer f.Close()

		var reader io.Reader = f
		if strings.HasSuffix(s.path, ".gz") {
			gz, err := gzip.NewReader(f)
			if err != nil {
				yield("", apperrors.IOError("read_source", "failed to open gzip stream").
					WithMetadata("path", s.path).Wrap(err))
				return
			}
			defer gz.Close()
			reader = gz
		}

		scanner := newLineScanner(reader)
		for scanner.Scan() {
			if !yield(decodeLine(scanner.Text()), nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield("", scanError(err))
		}
	}
}

// Metadata describes the file source.
func (s *FileSource) Metadata() map[string]string {
	return map[string]string{
		"source_type": "file",
		"source_id":   sourceID(s.path),
		"path":        s.path,
		"name":        filepath.Base(s.path),
		"size_bytes":  fmt.Sprintf("%d", s.size),
		"size_mb":     fmt.Sprintf("%.2f", float64(s.size)/(1024*1024)),
	}
}
