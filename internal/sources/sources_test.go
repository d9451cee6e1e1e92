package sources

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "unilog/pkg/errors"
	"unilog/pkg/types"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func collect(t *testing.T, src types.LineSource) []string {
	t.Helper()
	var lines []string
	for line, err := range src.ReadLines() {
		require.NoError(t, err)
		lines = append(lines, line)
	}
	return lines
}

func TestFileSource(t *testing.T) {
	t.Run("reads lines without terminators", func(t *testing.T) {
		path := writeFile(t, "app.log", "first\nsecond\r\n\nfourth")
		src, err := NewFileSource(path)
		require.NoError(t, err)

		assert.Equal(t, []string{"first", "second", "", "fourth"}, collect(t, src))
	})

	t.Run("missing file fails at construction", func(t *testing.T) {
		_, err := NewFileSource("/no/such/file.log")
		require.Error(t, err)
		assert.True(t, apperrors.IsKind(err, apperrors.KindIO))
	})

	t.Run("directory fails at construction", func(t *testing.T) {
		_, err := NewFileSource(t.TempDir())
		assert.Error(t, err)
	})

	t.Run("metadata", func(t *testing.T) {
		path := writeFile(t, "app.log", "hello\n")
		src, err := NewFileSource(path)
		require.NoError(t, err)

		m := src.Metadata()
		assert.Equal(t, "file", m["source_type"])
		assert.Equal(t, path, m["path"])
		assert.Equal(t, "app.log", m["name"])
		assert.Equal(t, "6", m["size_bytes"])
		assert.Len(t, m["source_id"], 16)
	})

	t.Run("transparent gzip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.log.gz")
		f, err := os.Create(path)
		require.NoError(t, err)
		gz := gzip.NewWriter(f)
		_, err = gz.Write([]byte("compressed one\ncompressed two\n"))
		require.NoError(t, err)
		require.NoError(t, gz.Close())
		require.NoError(t, f.Close())

		src, err := NewFileSource(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"compressed one", "compressed two"}, collect(t, src))
	})

	t.Run("abandonment stops iteration", func(t *testing.T) {
		path := writeFile(t, "app.log", "a\nb\nc\nd\n")
		src, err := NewFileSource(path)
		require.NoError(t, err)

		var got []string
		for line, err := range src.ReadLines() {
			require.NoError(t, err)
			got = append(got, line)
			if len(got) == 2 {
				break
			}
		}
		assert.Equal(t, []string{"a", "b"}, got)
	})

	t.Run("invalid utf8 replaced", func(t *testing.T) {
		path := writeFile(t, "app.log", "ok\nbad\xff\xfebytes\n")
		src, err := NewFileSource(path)
		require.NoError(t, err)

		lines := collect(t, src)
		require.Len(t, lines, 2)
		assert.Equal(t, "bad��bytes", lines[1])
	})
}

func TestLargeFileSource(t *testing.T) {
	t.Run("small files use buffered path", func(t *testing.T) {
		path := writeFile(t, "small.log", "one\ntwo\n")
		src, err := NewLargeFileSource(path)
		require.NoError(t, err)

		assert.False(t, src.UsingMmap())
		assert.Equal(t, []string{"one", "two"}, collect(t, src))
		assert.Equal(t, "false", src.Metadata()["using_mmap"])
	})

	t.Run("mmap path handles trailing partial line", func(t *testing.T) {
		path := writeFile(t, "forced.log", "alpha\nbeta\ngamma")
		src, err := NewLargeFileSource(path)
		require.NoError(t, err)
		src.usingMmap = true

		assert.Equal(t, []string{"alpha", "beta", "gamma"}, collect(t, src))
	})

	t.Run("mmap path decompresses gzip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "big.log.gz")
		f, err := os.Create(path)
		require.NoError(t, err)
		gz := gzip.NewWriter(f)
		_, err = gz.Write([]byte("compressed one\ncompressed two\n"))
		require.NoError(t, err)
		require.NoError(t, gz.Close())
		require.NoError(t, f.Close())

		src, err := NewLargeFileSource(path)
		require.NoError(t, err)
		src.usingMmap = true

		assert.Equal(t, []string{"compressed one", "compressed two"}, collect(t, src))
	})

	t.Run("mmap path supports abandonment", func(t *testing.T) {
		path := writeFile(t, "forced.log", "a\nb\nc\n")
		src, err := NewLargeFileSource(path)
		require.NoError(t, err)
		src.usingMmap = true

		for line, err := range src.ReadLines() {
			require.NoError(t, err)
			assert.Equal(t, "a", line)
			break
		}
	})
}

func TestChunkedFileSource(t *testing.T) {
	t.Run("progress fires on interval and at end", func(t *testing.T) {
		content := strings.Repeat("line\n", 25)
		path := writeFile(t, "chunked.log", content)

		type call struct {
			bytes int64
			total int64
			lines int
		}
		var calls []call
		src, err := NewChunkedFileSource(path, func(bytesRead, totalBytes int64, linesRead int) {
			calls = append(calls, call{bytesRead, totalBytes, linesRead})
		}, 10)
		require.NoError(t, err)

		lines := collect(t, src)
		assert.Len(t, lines, 25)

		// every 10 lines plus the final report
		require.Len(t, calls, 3)
		assert.Equal(t, 10, calls[0].lines)
		assert.Equal(t, 20, calls[1].lines)
		assert.Equal(t, 25, calls[2].lines)
		assert.Equal(t, int64(125), calls[2].bytes)
		assert.Equal(t, int64(125), calls[2].total)
	})

	t.Run("nil callback is allowed", func(t *testing.T) {
		path := writeFile(t, "chunked.log", "x\ny\n")
		src, err := NewChunkedFileSource(path, nil, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"x", "y"}, collect(t, src))
	})
}

func TestStdinSource(t *testing.T) {
	src := NewStdinSourceFrom(strings.NewReader("one\ntwo\nthree\n"))
	assert.Equal(t, []string{"one", "two", "three"}, collect(t, src))

	m := src.Metadata()
	assert.Equal(t, "stdin", m["source_type"])
	assert.Equal(t, "3", m["lines_read"])
	assert.Equal(t, "14", m["bytes_read"])
}

func TestPeekSource(t *testing.T) {
	t.Run("peek then full read", func(t *testing.T) {
		src := NewPeekSource(strings.NewReader("a\nb\nc\nd\ne\n"), 3)

		peeked := src.Peek()
		assert.Equal(t, []string{"a", "b", "c"}, peeked)

		// idempotent
		assert.Equal(t, peeked, src.Peek())

		assert.Equal(t, []string{"a", "b", "c", "d", "e"}, collect(t, src))
	})

	t.Run("read without explicit peek", func(t *testing.T) {
		src := NewPeekSource(strings.NewReader("a\nb\n"), 50)
		assert.Equal(t, []string{"a", "b"}, collect(t, src))
	})

	t.Run("short input", func(t *testing.T) {
		src := NewPeekSource(strings.NewReader("only\n"), 50)
		assert.Equal(t, []string{"only"}, src.Peek())
	})
}

func TestFollowSource(t *testing.T) {
	path := writeFile(t, "follow.log", "existing one\nexisting two\n")
	src, err := NewFollowSource(path)
	require.NoError(t, err)

	var got []string
	for line, err := range src.ReadLines() {
		require.NoError(t, err)
		got = append(got, line)
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"existing one", "existing two"}, got)

	_, err = NewFollowSource("/no/such/file.log")
	assert.Error(t, err)
}
