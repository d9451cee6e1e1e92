package parsers

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryGet(t *testing.T) {
	reg := NewRegistry()

	t.Run("by name", func(t *testing.T) {
		p, err := reg.Get("syslog_rfc3164")
		require.NoError(t, err)
		assert.Equal(t, "syslog_rfc3164", p.Name())
	})

	t.Run("by alias", func(t *testing.T) {
		for alias, want := range map[string]string{
			"ndjson":   "json",
			"clf":      "apache_common",
			"combined": "apache_combined",
			"dockerd":  "docker_daemon",
			"klog":     "kubernetes_component",
		} {
			p, err := reg.Get(alias)
			require.NoError(t, err)
			assert.Equal(t, want, p.Name(), "alias %s", alias)
		}
	})

	t.Run("unknown format falls back to generic", func(t *testing.T) {
		p, err := reg.Get("no-such-format")
		require.NoError(t, err)
		assert.Equal(t, "generic", p.Name())
	})
}

func TestRegistryBest(t *testing.T) {
	reg := NewRegistry()

	cases := []struct {
		name   string
		sample []string
		want   string
	}{
		{
			name: "structured json",
			sample: []string{
				`{"timestamp":"2024-01-15T10:30:00Z","level":"info","message":"a"}`,
				`{"timestamp":"2024-01-15T10:30:01Z","level":"error","message":"b"}`,
			},
			want: "json",
		},
		{
			name:   "apache combined",
			sample: []string{apacheCombinedLine, apacheCombinedLine},
			want:   "apache_combined",
		},
		{
			name: "docker daemon logfmt",
			sample: []string{
				`time="2024-01-15T10:30:00Z" level=info msg="ready"`,
				`time="2024-01-15T10:30:01Z" level=error msg="failed"`,
			},
			want: "docker_daemon",
		},
		{
			name: "klog",
			sample: []string{
				`I0115 10:30:45.123456 1 main.go:10] up`,
				`E0115 10:30:46.123456 1 main.go:11] down`,
			},
			want: "kubernetes_component",
		},
		{
			name:   "leveled free text falls through to generic",
			sample: []string{"ERROR disk failure detected", "ERROR retry scheduled"},
			want:   "generic",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, score := reg.Best(tc.sample)
			require.NotNil(t, p)
			assert.Equal(t, tc.want, p.Name())
			assert.Greater(t, score, 0.0)
		})
	}
}

func TestRegistryFormats(t *testing.T) {
	reg := NewRegistry()
	formats := reg.Formats()

	assert.Contains(t, formats, "json")
	assert.Contains(t, formats, "generic")
	assert.Contains(t, formats, "kubernetes_audit")
	assert.True(t, sort.StringsAreSorted(formats))

	assert.Len(t, reg.Parsers(), 15)
}
