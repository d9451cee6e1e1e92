package security

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateLineLength(t *testing.T) {
	t.Run("accepts lines within limit", func(t *testing.T) {
		assert.NoError(t, ValidateLineLength("short line", 100))
		assert.NoError(t, ValidateLineLength(strings.Repeat("a", 100), 100))
		assert.NoError(t, ValidateLineLength("", 100))
	})

	t.Run("rejects oversize lines", func(t *testing.T) {
		err := ValidateLineLength(strings.Repeat("a", 101), 100)
		require.Error(t, err)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, KindLineLength, vErr.Kind)
	})

	t.Run("measures multibyte runes by encoded width", func(t *testing.T) {
		// four runes, twelve bytes
		line := strings.Repeat("日", 4)
		assert.NoError(t, ValidateLineLength(line, 12))
		assert.Error(t, ValidateLineLength(line, 11))
	})

	t.Run("zero max selects default", func(t *testing.T) {
		assert.NoError(t, ValidateLineLength("anything", 0))
	})
}

func TestValidateJSONDepth(t *testing.T) {
	nested := func(depth int) interface{} {
		var v interface{} = "leaf"
		for i := 0; i < depth; i++ {
			v = map[string]interface{}{"k": v}
		}
		return v
	}

	t.Run("accepts shallow values", func(t *testing.T) {
		assert.NoError(t, ValidateJSONDepth(nested(10), 50))
		assert.NoError(t, ValidateJSONDepth("scalar", 50))
		assert.NoError(t, ValidateJSONDepth(nil, 50))
	})

	t.Run("rejects deep nesting", func(t *testing.T) {
		err := ValidateJSONDepth(nested(60), 50)
		require.Error(t, err)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, KindJSONDepth, vErr.Kind)
	})

	t.Run("counts array nesting", func(t *testing.T) {
		var v interface{} = "leaf"
		for i := 0; i < 60; i++ {
			v = []interface{}{v}
		}
		assert.Error(t, ValidateJSONDepth(v, 50))
	})

	t.Run("real decoded document", func(t *testing.T) {
		var doc interface{}
		require.NoError(t, json.Unmarshal([]byte(`{"a":{"b":{"c":[1,2,{"d":"e"}]}}}`), &doc))
		assert.NoError(t, ValidateJSONDepth(doc, 50))
	})
}

func TestValidateRegexPattern(t *testing.T) {
	t.Run("accepts ordinary patterns", func(t *testing.T) {
		re, err := ValidateRegexPattern(`error|warn`)
		require.NoError(t, err)
		assert.True(t, re.MatchString("ERROR: disk full"))
	})

	t.Run("compiles case-insensitive", func(t *testing.T) {
		re, err := ValidateRegexPattern(`timeout`)
		require.NoError(t, err)
		assert.True(t, re.MatchString("Connection TIMEOUT"))
	})

	t.Run("rejects over-length patterns", func(t *testing.T) {
		_, err := ValidateRegexPattern(strings.Repeat("a", MaxRegexLength+1))
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, KindRegexLength, vErr.Kind)
	})

	t.Run("rejects nested quantifiers", func(t *testing.T) {
		for _, pattern := range []string{`(a+)+b`, `(a*)*b`, `(?:x+)y+z+`} {
			_, err := ValidateRegexPattern(pattern)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr, "pattern %q", pattern)
			assert.Equal(t, KindRegexReDoS, vErr.Kind, "pattern %q", pattern)
		}
	})

	t.Run("rejects syntax errors", func(t *testing.T) {
		_, err := ValidateRegexPattern(`[unclosed`)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, KindRegexSyntax, vErr.Kind)
	})
}

func TestSanitizeCSVCell(t *testing.T) {
	t.Run("prefixes trigger cells", func(t *testing.T) {
		assert.Equal(t, "'=SUM(A1)", SanitizeCSVCell("=SUM(A1)"))
		assert.Equal(t, "'+1", SanitizeCSVCell("+1"))
		assert.Equal(t, "'-1", SanitizeCSVCell("-1"))
		assert.Equal(t, "'@cmd", SanitizeCSVCell("@cmd"))
		assert.Equal(t, "'\tx", SanitizeCSVCell("\tx"))
		assert.Equal(t, "'\rx", SanitizeCSVCell("\rx"))
	})

	t.Run("leaves safe cells unchanged", func(t *testing.T) {
		assert.Equal(t, "hello", SanitizeCSVCell("hello"))
		assert.Equal(t, "", SanitizeCSVCell(""))
		assert.Equal(t, "a=b", SanitizeCSVCell("a=b"))
	})
}

func TestCheckSymlink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "real.log")
	require.NoError(t, os.WriteFile(target, []byte("x\n"), 0o644))
	link := filepath.Join(dir, "link.log")
	require.NoError(t, os.Symlink(target, link))

	t.Run("detects symlink", func(t *testing.T) {
		isLink, resolved, err := CheckSymlink(link, false, nil)
		require.NoError(t, err)
		assert.True(t, isLink)
		assert.Contains(t, resolved, "real.log")
	})

	t.Run("regular file is not a symlink", func(t *testing.T) {
		isLink, _, err := CheckSymlink(target, false, nil)
		require.NoError(t, err)
		assert.False(t, isLink)
	})

	t.Run("missing path fails", func(t *testing.T) {
		_, _, err := CheckSymlink(filepath.Join(dir, "absent"), false, nil)
		assert.Error(t, err)
	})
}
