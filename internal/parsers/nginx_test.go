package parsers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unilog/pkg/types"
)

func TestNginxAccessParser(t *testing.T) {
	p := NewNginxAccessParser()

	t.Run("full line with referer and agent", func(t *testing.T) {
		r := p.ParseLine(`192.168.1.10 - - [15/Jan/2024:10:30:00 +0000] "GET /index.html HTTP/1.1" 200 1024 "https://example.com" "curl/8.0"`)
		require.Empty(t, r.ParseErrors)
		assert.Equal(t, "nginx_access", r.FormatDetected)
		assert.Equal(t, 0.95, r.ParserConfidence)
		assert.Equal(t, "192.168.1.10", r.Network.SourceIP)
		assert.Equal(t, "https://example.com", r.Network.Referer)
		assert.Equal(t, "curl/8.0", r.Network.UserAgent)
	})

	t.Run("line without trailing pair", func(t *testing.T) {
		r := p.ParseLine(`192.168.1.10 - - [15/Jan/2024:10:30:00 +0000] "GET /index.html HTTP/1.1" 404 0`)
		require.Empty(t, r.ParseErrors)
		assert.Equal(t, types.LevelWarning, r.Level)
		assert.Empty(t, r.Network.Referer)
	})
}

func TestNginxErrorParser(t *testing.T) {
	p := NewNginxErrorParser()

	t.Run("connection error", func(t *testing.T) {
		r := p.ParseLine(`2024/01/15 10:30:00 [error] 1234#5678: *91011 connect() failed (111: Connection refused) while connecting to upstream`)
		require.Empty(t, r.ParseErrors)
		assert.Equal(t, "nginx_error", r.FormatDetected)
		assert.Equal(t, types.LevelError, r.Level)
		require.NotNil(t, r.Timestamp)
		assert.Equal(t, time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), *r.Timestamp)
		assert.Equal(t, 1234, r.Extra["pid"])
		assert.Equal(t, 5678, r.Extra["tid"])
		assert.Equal(t, 91011, r.Extra["connection_id"])
		assert.Equal(t, "nginx", r.Source.Service)
		assert.Contains(t, r.Message, "connect() failed")
	})

	t.Run("line without connection id", func(t *testing.T) {
		r := p.ParseLine(`2024/01/15 10:30:00 [warn] 1#1: low worker_connections`)
		require.Empty(t, r.ParseErrors)
		assert.Equal(t, types.LevelWarning, r.Level)
		assert.NotContains(t, r.Extra, "connection_id")
	})

	t.Run("unmatched line", func(t *testing.T) {
		r := p.ParseLine("plain text")
		assert.NotEmpty(t, r.ParseErrors)
	})
}
