package correlate

import (
	"iter"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"unilog/internal/logging"
	"unilog/pkg/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var testBase = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

func rec(offset time.Duration, source string) *types.Record {
	r := types.NewRecord("line")
	ts := testBase.Add(offset)
	r.Timestamp = &ts
	r.Source.FilePath = source
	return r
}

func recNoTS(source string) *types.Record {
	r := types.NewRecord("line")
	r.Source.FilePath = source
	return r
}

func seqOf(records ...*types.Record) iter.Seq[*types.Record] {
	return slices.Values(records)
}

func TestMerge(t *testing.T) {
	t.Run("orders by timestamp across sources", func(t *testing.T) {
		a := seqOf(rec(0, "a.log"), rec(2*time.Second, "a.log"))
		b := seqOf(rec(time.Second, "b.log"), rec(3*time.Second, "b.log"))

		merged := slices.Collect(Merge([]iter.Seq[*types.Record]{a, b}))
		require.Len(t, merged, 4)
		for i := 1; i < len(merged); i++ {
			assert.False(t, merged[i].Timestamp.Before(*merged[i-1].Timestamp))
		}
	})

	t.Run("missing timestamps sort first", func(t *testing.T) {
		a := seqOf(rec(time.Second, "a.log"))
		b := seqOf(recNoTS("b.log"))

		merged := slices.Collect(Merge([]iter.Seq[*types.Record]{a, b}))
		require.Len(t, merged, 2)
		assert.Nil(t, merged[0].Timestamp)
	})

	t.Run("ties break by source position", func(t *testing.T) {
		a := seqOf(rec(0, "a.log"))
		b := seqOf(rec(0, "b.log"))

		merged := slices.Collect(Merge([]iter.Seq[*types.Record]{a, b}))
		require.Len(t, merged, 2)
		assert.Equal(t, "a.log", merged[0].Source.FilePath)
		assert.Equal(t, "b.log", merged[1].Source.FilePath)
	})

	t.Run("abandoning the stream releases sources", func(t *testing.T) {
		a := seqOf(rec(0, "a.log"), rec(time.Second, "a.log"))
		b := seqOf(rec(2*time.Second, "b.log"))

		for range Merge([]iter.Seq[*types.Record]{a, b}) {
			break
		}
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, slices.Collect(Merge(nil)))
	})
}

func TestSharedIDStrategy(t *testing.T) {
	logger := logging.New("error", "text")

	t.Run("groups by request id", func(t *testing.T) {
		s := NewSharedIDStrategy(nil, logger)

		r1 := rec(0, "a.log")
		r1.Correlation.RequestID = "req-1"
		r2 := rec(time.Second, "b.log")
		r2.Correlation.RequestID = "req-1"
		r3 := rec(2*time.Second, "a.log")
		r3.Correlation.RequestID = "req-2" // single member, not emitted
		r4 := rec(3*time.Second, "a.log") // no ID at all

		groups := slices.Collect(s.Correlate(seqOf(r1, r2, r3, r4), 0))
		require.Len(t, groups, 1)
		assert.Equal(t, "req-1", groups[0].CorrelationKey)
		assert.Equal(t, "request_id", groups[0].CorrelationType)
		assert.Equal(t, 2, groups[0].Size())
		assert.Equal(t, []string{"a.log", "b.log"}, groups[0].Sources)
	})

	t.Run("falls back to structured data fields", func(t *testing.T) {
		s := NewSharedIDStrategy(nil, logger)

		r1 := rec(0, "a.log")
		r1.StructuredData["x_request_id"] = "x-9"
		r2 := rec(time.Second, "a.log")
		r2.StructuredData["x_request_id"] = "x-9"

		groups := slices.Collect(s.Correlate(seqOf(r1, r2), 0))
		require.Len(t, groups, 1)
		assert.Equal(t, "x-9", groups[0].CorrelationKey)
	})

	t.Run("trace id used when request id absent", func(t *testing.T) {
		s := NewSharedIDStrategy(nil, logger)

		r1 := rec(0, "a.log")
		r1.Correlation.TraceID = "t-1"
		r2 := rec(time.Second, "a.log")
		r2.Correlation.TraceID = "t-1"
		r2.Correlation.RequestID = "req-override"

		groups := slices.Collect(s.Correlate(seqOf(r1, r2), 0))
		// the two records resolve to different keys, so no group forms
		assert.Empty(t, groups)
	})

	t.Run("buffer overflow flushes groups", func(t *testing.T) {
		s := NewSharedIDStrategy(nil, logger)

		var records []*types.Record
		for i := 0; i < 4; i++ {
			r := rec(time.Duration(i)*time.Second, "a.log")
			r.Correlation.RequestID = "req-1"
			records = append(records, r)
		}

		groups := slices.Collect(s.Correlate(seqOf(records...), 2))
		// flushed twice: two partial groups for the same key
		require.Len(t, groups, 2)
		assert.Equal(t, "req-1", groups[0].CorrelationKey)
	})
}

func TestTimeWindowStrategy(t *testing.T) {
	t.Run("groups temporally close records across sources", func(t *testing.T) {
		s := NewTimeWindowStrategy(time.Second, 2, true)

		records := seqOf(
			rec(0, "a.log"),
			rec(500*time.Millisecond, "b.log"),
			rec(5*time.Second, "a.log"),
			rec(5500*time.Millisecond, "b.log"),
		)
		groups := slices.Collect(s.Correlate(records, 0))
		require.Len(t, groups, 2)
		assert.Equal(t, "timestamp_window", groups[0].CorrelationType)
		assert.Equal(t, 2, groups[0].Size())
		assert.Equal(t, testBase.Format(time.RFC3339Nano), groups[0].CorrelationKey)
		assert.Equal(t, 1.0, groups[0].Metadata["window_seconds"])
	})

	t.Run("single-source windows suppressed", func(t *testing.T) {
		s := NewTimeWindowStrategy(time.Second, 2, true)
		groups := slices.Collect(s.Correlate(seqOf(rec(0, "a.log"), rec(time.Millisecond, "a.log")), 0))
		assert.Empty(t, groups)

		relaxed := NewTimeWindowStrategy(time.Second, 2, false)
		groups = slices.Collect(relaxed.Correlate(seqOf(rec(0, "a.log"), rec(time.Millisecond, "a.log")), 0))
		assert.Len(t, groups, 1)
	})

	t.Run("records without timestamps are skipped", func(t *testing.T) {
		s := NewTimeWindowStrategy(time.Second, 2, false)
		groups := slices.Collect(s.Correlate(seqOf(recNoTS("a.log"), rec(0, "a.log"), rec(time.Millisecond, "b.log")), 0))
		require.Len(t, groups, 1)
		assert.Equal(t, 2, groups[0].Size())
	})

	t.Run("undersized windows dropped", func(t *testing.T) {
		s := NewTimeWindowStrategy(time.Second, 3, false)
		groups := slices.Collect(s.Correlate(seqOf(rec(0, "a.log"), rec(time.Millisecond, "b.log")), 0))
		assert.Empty(t, groups)
	})
}

func TestSessionStrategy(t *testing.T) {
	logger := logging.New("error", "text")

	t.Run("groups by session then user", func(t *testing.T) {
		s := NewSessionStrategy(nil, 0, logger)

		r1 := rec(0, "a.log")
		r1.Correlation.SessionID = "s-1"
		r2 := rec(time.Minute, "b.log")
		r2.Correlation.SessionID = "s-1"
		r3 := rec(0, "a.log")
		r3.Correlation.UserID = "alice"
		r4 := rec(time.Minute, "a.log")
		r4.Correlation.UserID = "alice"

		groups := slices.Collect(s.Correlate(seqOf(r1, r2, r3, r4), 0))
		require.Len(t, groups, 2)
		keys := []string{groups[0].CorrelationKey, groups[1].CorrelationKey}
		assert.Contains(t, keys, "session:s-1")
		assert.Contains(t, keys, "user:alice")
	})

	t.Run("structured fallback fields", func(t *testing.T) {
		s := NewSessionStrategy(nil, 0, logger)

		r1 := rec(0, "a.log")
		r1.StructuredData["client_ip"] = "10.0.0.9"
		r2 := rec(time.Minute, "a.log")
		r2.StructuredData["client_ip"] = "10.0.0.9"

		groups := slices.Collect(s.Correlate(seqOf(r1, r2), 0))
		require.Len(t, groups, 1)
		assert.Equal(t, "client_ip:10.0.0.9", groups[0].CorrelationKey)
	})

	t.Run("idle timeout splits sessions", func(t *testing.T) {
		s := NewSessionStrategy(nil, 30*time.Minute, logger)

		var records []*types.Record
		for _, offset := range []time.Duration{0, time.Minute, 2 * time.Hour, 2*time.Hour + time.Minute} {
			r := rec(offset, "a.log")
			r.Correlation.SessionID = "s-1"
			records = append(records, r)
		}

		groups := slices.Collect(s.Correlate(seqOf(records...), 0))
		require.Len(t, groups, 2)
		assert.Equal(t, 2, groups[0].Size())
		assert.Equal(t, 2, groups[1].Size())
	})

	t.Run("session cap drops new sessions with one warning", func(t *testing.T) {
		s := NewSessionStrategy(nil, 0, logger)
		s.maxSessions = 1

		r1 := rec(0, "a.log")
		r1.Correlation.SessionID = "s-1"
		r2 := rec(time.Second, "a.log")
		r2.Correlation.SessionID = "s-1"
		r3 := rec(0, "a.log")
		r3.Correlation.SessionID = "s-2"
		r4 := rec(time.Second, "a.log")
		r4.Correlation.SessionID = "s-2"

		groups := slices.Collect(s.Correlate(seqOf(r1, r2, r3, r4), 0))
		require.Len(t, groups, 1)
		assert.Equal(t, "session:s-1", groups[0].CorrelationKey)
		assert.True(t, s.overflowWarned)
	})
}

func TestCorrelator(t *testing.T) {
	logger := logging.New("error", "text")

	t.Run("strategies claim records in priority order", func(t *testing.T) {
		// two records share an ID, two are only temporally close, one is alone
		r1 := rec(0, "a.log")
		r1.Correlation.RequestID = "req-1"
		r2 := rec(100*time.Millisecond, "b.log")
		r2.Correlation.RequestID = "req-1"
		r3 := rec(10*time.Second, "a.log")
		r4 := rec(10100*time.Millisecond, "b.log")
		r5 := rec(30*time.Second, "a.log")

		c := NewCorrelator([]types.Strategy{
			NewSharedIDStrategy(nil, logger),
			NewTimeWindowStrategy(time.Second, 2, true),
		}, 0, logger)

		result := c.Correlate([]iter.Seq[*types.Record]{
			seqOf(r1, r3, r5),
			seqOf(r2, r4),
		})

		require.Len(t, result.Groups, 2)
		assert.Equal(t, "request_id", result.Groups[0].CorrelationType)
		assert.Equal(t, "timestamp_window", result.Groups[1].CorrelationType)
		require.Len(t, result.Orphans, 1)
		assert.Equal(t, r5.ID, result.Orphans[0].ID)

		assert.Equal(t, 5, result.Stats.TotalEntries)
		assert.Equal(t, 4, result.Stats.CorrelatedEntries)
		assert.Equal(t, 1, result.Stats.OrphanEntries)
		assert.Equal(t, 2, result.Stats.GroupCount)
		assert.InDelta(t, 0.8, result.Stats.CorrelationRate, 1e-9)
	})

	t.Run("no sources", func(t *testing.T) {
		c := NewCorrelator(nil, 0, logger)
		result := c.Correlate(nil)
		assert.Empty(t, result.Groups)
		assert.Empty(t, result.Orphans)
		assert.Equal(t, 0, result.Stats.TotalEntries)
	})

	t.Run("streaming requires a streaming strategy", func(t *testing.T) {
		c := NewCorrelator(nil, 0, logger)

		_, err := c.CorrelateStreaming(nil, NewSharedIDStrategy(nil, logger))
		assert.Error(t, err)

		seq, err := c.CorrelateStreaming([]iter.Seq[*types.Record]{
			seqOf(rec(0, "a.log"), rec(time.Millisecond, "b.log")),
		}, NewTimeWindowStrategy(time.Second, 2, true))
		require.NoError(t, err)
		assert.Len(t, slices.Collect(seq), 1)
	})
}

func TestStrategyByName(t *testing.T) {
	logger := logging.New("error", "text")

	for name, want := range map[string]string{
		"request_id":       "request_id",
		"shared_id":        "request_id",
		"timestamp":        "timestamp_window",
		"window":           "timestamp_window",
		"timestamp_window": "timestamp_window",
		"session":          "session",
	} {
		s, err := StrategyByName(name, logger)
		require.NoError(t, err, name)
		assert.Equal(t, want, s.Name())
	}

	_, err := StrategyByName("bogus", logger)
	assert.Error(t, err)
}
