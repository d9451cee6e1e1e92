package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unilog/pkg/types"
)

func init() {
	// deterministic output regardless of the test terminal
	color.NoColor = true
}

func makeRecord(t *testing.T, level types.Level, message string) *types.Record {
	t.Helper()
	ts := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	r := types.NewRecord(message)
	r.Timestamp = &ts
	r.Level = level
	r.Message = message
	r.FormatDetected = "json_structured"
	r.Source.FilePath = "/var/log/api.log"
	r.Source.LineNumber = 7
	r.Source.Service = "api"
	return r
}

func TestRenderTable(t *testing.T) {
	records := []*types.Record{
		makeRecord(t, types.LevelInfo, "started"),
		makeRecord(t, types.LevelError, strings.Repeat("x", 250)),
	}

	var buf bytes.Buffer
	require.NoError(t, RenderTable(&buf, records))

	out := buf.String()
	assert.Contains(t, out, "2024-01-15 10:30:00")
	assert.Contains(t, out, "ERROR")
	assert.Contains(t, out, "api:7")
	assert.Contains(t, out, "Total: 2 entries")
	// long messages are truncated with an ellipsis
	assert.Contains(t, out, strings.Repeat("x", 197)+"...")
	assert.NotContains(t, out, strings.Repeat("x", 198))
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderJSON(&buf, []*types.Record{makeRecord(t, types.LevelWarning, "careful")}))

	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "careful", decoded[0]["message"])
	assert.Equal(t, "WARNING", decoded[0]["level"])

	buf.Reset()
	require.NoError(t, RenderJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestRenderCSV(t *testing.T) {
	records := []*types.Record{
		makeRecord(t, types.LevelInfo, "plain message"),
		makeRecord(t, types.LevelError, "=SUM(A1:A9)"),
	}

	var buf bytes.Buffer
	require.NoError(t, RenderCSV(&buf, records))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, csvColumns, rows[0])
	assert.Equal(t, "INFO", rows[1][1])
	assert.Equal(t, "/var/log/api.log", rows[1][3])
	assert.Equal(t, "7", rows[1][4])
	// formula-looking cells are neutralized
	assert.Equal(t, "'=SUM(A1:A9)", rows[2][2])
}

func TestRenderCompact(t *testing.T) {
	t.Run("with timestamp and service", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, RenderCompact(&buf, []*types.Record{makeRecord(t, types.LevelError, "boom")}))
		assert.Equal(t, "10:30:00 ERROR [api] boom\n", buf.String())
	})

	t.Run("no timestamp, long level name", func(t *testing.T) {
		r := types.NewRecord("raw")
		r.Level = types.LevelCritical
		r.Message = "disk full"

		var buf bytes.Buffer
		require.NoError(t, WriteCompact(&buf, r))
		assert.Equal(t, "-------- CRITI disk full\n", buf.String())
	})

	t.Run("short level is padded", func(t *testing.T) {
		r := makeRecord(t, types.LevelInfo, "ok")
		r.Source.Service = ""

		var buf bytes.Buffer
		require.NoError(t, WriteCompact(&buf, r))
		assert.Equal(t, "10:30:00 INFO  ok\n", buf.String())
	})
}

func TestConfidenceBar(t *testing.T) {
	assert.Equal(t, strings.Repeat("█", 10), ConfidenceBar(1.0))
	assert.Equal(t, strings.Repeat("█", 5)+strings.Repeat("░", 5), ConfidenceBar(0.5))
	assert.Equal(t, strings.Repeat("░", 10), ConfidenceBar(0.0))
	assert.Equal(t, strings.Repeat("█", 10), ConfidenceBar(1.7))
	assert.Equal(t, strings.Repeat("░", 10), ConfidenceBar(-0.2))
}

func TestRenderDetection(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderDetection(&buf, "api.log", "nginx_error", 0.92))
	assert.Equal(t, "api.log: nginx_error "+ConfidenceBar(0.92)+" 92%\n", buf.String())
}

func TestRenderDetectionAll(t *testing.T) {
	scores := []types.FormatScore{
		{Format: "json_structured", Confidence: 1.0},
		{Format: "docker_json", Confidence: 0.8},
		{Format: "generic", Confidence: 0.3},
		{Format: "python_logging", Confidence: 0.2},
		{Format: "syslog_rfc3164", Confidence: 0.1},
		{Format: "apache_common", Confidence: 0.05},
	}

	var buf bytes.Buffer
	require.NoError(t, RenderDetectionAll(&buf, "api.log", scores))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "api.log:\n"))
	assert.Contains(t, out, "json_structured")
	assert.Contains(t, out, "100%")
	// only the top candidates are shown
	assert.NotContains(t, out, "apache_common")
}

func TestRecordSource(t *testing.T) {
	r := makeRecord(t, types.LevelInfo, "m")
	assert.Equal(t, "api:7", recordSource(r))

	r.Source.Service = ""
	assert.Equal(t, "api.log:7", recordSource(r))

	r.Source.LineNumber = 0
	assert.Equal(t, "api.log", recordSource(r))

	assert.Equal(t, "-", recordSource(types.NewRecord("")))
}
