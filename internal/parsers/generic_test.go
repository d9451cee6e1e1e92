package parsers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unilog/pkg/types"
)

func TestGenericParser(t *testing.T) {
	p := NewGenericParser()

	t.Run("timestamp and level", func(t *testing.T) {
		r := p.ParseLine(`2024-01-15 10:30:45 ERROR something broke`)
		assert.Equal(t, "generic", r.FormatDetected)
		assert.Equal(t, 0.7, r.ParserConfidence)
		assert.Equal(t, types.LevelError, r.Level)
		assert.Equal(t, "ERROR something broke", r.Message)
		require.NotNil(t, r.Timestamp)
		assert.Equal(t, time.Date(2024, 1, 15, 10, 30, 45, 0, time.UTC), *r.Timestamp)
	})

	t.Run("timestamp only", func(t *testing.T) {
		r := p.ParseLine(`2024-01-15T10:30:45Z request served`)
		assert.Equal(t, 0.5, r.ParserConfidence)
		assert.Equal(t, types.LevelInfo, r.Level)
		require.NotNil(t, r.Timestamp)
	})

	t.Run("level only", func(t *testing.T) {
		r := p.ParseLine(`WARN: disk usage above threshold`)
		assert.Equal(t, 0.5, r.ParserConfidence)
		assert.Equal(t, types.LevelWarning, r.Level)
		assert.Nil(t, r.Timestamp)
	})

	t.Run("plain text floor", func(t *testing.T) {
		r := p.ParseLine(`hello world`)
		assert.Equal(t, 0.3, r.ParserConfidence)
		assert.Equal(t, types.LevelInfo, r.Level)
		assert.Equal(t, "hello world", r.Message)
	})

	t.Run("unix epoch seconds", func(t *testing.T) {
		r := p.ParseLine(`1705315845 service started`)
		require.NotNil(t, r.Timestamp)
		assert.Equal(t, time.Date(2024, 1, 15, 10, 50, 45, 0, time.UTC), *r.Timestamp)
		assert.Equal(t, "service started", r.Message)
	})

	t.Run("unix epoch milliseconds", func(t *testing.T) {
		r := p.ParseLine(`1705315845123 service started`)
		require.NotNil(t, r.Timestamp)
		assert.Equal(t, time.Date(2024, 1, 15, 10, 50, 45, 123_000_000, time.UTC), *r.Timestamp)
	})

	t.Run("most severe level word wins", func(t *testing.T) {
		r := p.ParseLine(`INFO retrying after FATAL failure`)
		assert.Equal(t, types.LevelCritical, r.Level)
	})
}

func TestGenericParserCanParse(t *testing.T) {
	p := NewGenericParser()

	t.Run("plain text baseline", func(t *testing.T) {
		assert.InDelta(t, 0.3, p.CanParse([]string{"one", "two"}), 1e-9)
	})

	t.Run("timestamps and levels raise the score", func(t *testing.T) {
		sample := []string{
			`2024-01-15 10:30:45 ERROR a`,
			`2024-01-15 10:30:46 INFO b`,
		}
		assert.InDelta(t, 0.6, p.CanParse(sample), 1e-9)
	})

	t.Run("score is capped below specific parsers", func(t *testing.T) {
		sample := []string{`2024-01-15T10:30:45Z ERROR x`}
		assert.LessOrEqual(t, p.CanParse(sample), 0.6)
	})

	t.Run("empty sample", func(t *testing.T) {
		assert.Equal(t, 0.0, p.CanParse(nil))
	})
}
