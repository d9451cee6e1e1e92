package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	config, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "warning", config.LogLevel)
	assert.Equal(t, "text", config.LogFormat)
	assert.Equal(t, "UTC", config.Timezone)
	assert.Equal(t, 50, config.DetectionSampleSize)
	assert.Equal(t, 10000, config.ProgressInterval)
	assert.Empty(t, config.GeoDatabasePath)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "unilog.yml")
	content := `
log_level: debug
timezone: Europe/Berlin
detection_sample_size: 25
field_mappings:
  req_id: request_id
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	config, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", config.LogLevel)
	assert.Equal(t, "Europe/Berlin", config.Timezone)
	assert.Equal(t, 25, config.DetectionSampleSize)
	assert.Equal(t, "request_id", config.FieldMappings["req_id"])
	// untouched keys still get defaults
	assert.Equal(t, 10000, config.ProgressInterval)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	assert.Error(t, err)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("UNILOG_LOG_LEVEL", "debug")
	t.Setenv("UNILOG_TIMEZONE", "America/New_York")
	t.Setenv("UNILOG_DETECTION_SAMPLE_SIZE", "10")

	config, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "debug", config.LogLevel)
	assert.Equal(t, "America/New_York", config.Timezone)
	assert.Equal(t, 10, config.DetectionSampleSize)
}

func TestEnvironmentOverridesIgnoreMalformedInts(t *testing.T) {
	t.Setenv("UNILOG_PROGRESS_INTERVAL", "not-a-number")

	config, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 10000, config.ProgressInterval)
}
