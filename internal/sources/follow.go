package sources

import (
	"iter"
	"os"
	"path/filepath"

	"github.com/nxadm/tail"

	apperrors "unilog/pkg/errors"
)

// FollowSource tails a local file, yielding new lines as they are
// appended. It backs the CLI's follow mode; rotation is handled by
// reopening the path.
type FollowSource struct {
	path string
}

// NewFollowSource verifies the path exists before tailing starts.
func NewFollowSource(path string) (*FollowSource, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, apperrors.IOError("open_source", "file not found").
			WithMetadata("path", path).Wrap(err)
	}
	return &FollowSource{path: path}, nil
}

// ReadLines yields existing content and then blocks for appended lines.
// The tailer is stopped when the consumer abandons the sequence.
func (s *FollowSource) ReadLines() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		t, err := tail.TailFile(s.path, tail.Config{
			Follow: true,
			ReOpen: true,
			Logger: tail.DiscardingLogger,
		})
		if err != nil {
			yield("", apperrors.IOError("read_source", "failed to tail file").
				WithMetadata("path", s.path).Wrap(err))
			return
		}
		defer func() {
			t.Stop()
			t.Cleanup()
		}()

		for line := range t.Lines {
			if line.Err != nil {
				yield("", line.Err)
				return
			}
			if !yield(decodeLine(line.Text), nil) {
				return
			}
		}
	}
}

// Metadata describes the followed file.
func (s *FollowSource) Metadata() map[string]string {
	return map[string]string{
		"source_type": "follow",
		"source_id":   sourceID(s.path),
		"path":        s.path,
		"name":        filepath.Base(s.path),
	}
}
