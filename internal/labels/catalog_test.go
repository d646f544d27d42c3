package labels

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/hanzi-api/internal/apperror"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	indices := writeFile(t, dir, "class_indices.json", `{"0": "U+4E00", "1": "U+4E8C", "2": 30003}`)
	names := writeFile(t, dir, "ID_to_chinese.json", `{"U+4E00": "一", "U+4E8C": "二"}`)

	c, err := Load(indices, names)
	require.NoError(t, err)

	assert.Equal(t, "U+4E00", c.CanonicalID(0))
	assert.Equal(t, "U+4E8C", c.CanonicalID(1))
	assert.Equal(t, "30003", c.CanonicalID(2))
	assert.Equal(t, "一", c.DisplayLabel("U+4E00"))
	assert.Equal(t, "二", c.DisplayLabel(c.CanonicalID(1)))

	i, l := c.Len()
	assert.Equal(t, 3, i)
	assert.Equal(t, 2, l)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.json", `{"0": "a"}`)

	tests := []struct {
		name     string
		indices  string
		labels   string
		contains string
	}{
		{
			name:     "missing index mapping",
			indices:  filepath.Join(dir, "missing.json"),
			labels:   good,
			contains: "label mapping missing.json does not exist",
		},
		{
			name:     "missing label mapping",
			indices:  good,
			labels:   filepath.Join(dir, "gone.json"),
			contains: "label mapping gone.json does not exist",
		},
		{
			name:     "invalid json",
			indices:  writeFile(t, dir, "broken.json", `{"0": `),
			labels:   good,
			contains: "label mapping broken.json is malformed",
		},
		{
			name:     "array instead of object",
			indices:  good,
			labels:   writeFile(t, dir, "array.json", `["a", "b"]`),
			contains: "label mapping array.json is malformed",
		},
		{
			name:     "null document",
			indices:  writeFile(t, dir, "null.json", `null`),
			labels:   good,
			contains: "label mapping null.json is malformed",
		},
		{
			name:     "trailing garbage",
			indices:  writeFile(t, dir, "trailing.json", `{"0":"x"} }garbage{`),
			labels:   good,
			contains: "label mapping trailing.json is malformed",
		},
		{
			name:     "two concatenated objects",
			indices:  good,
			labels:   writeFile(t, dir, "concat.json", `{"a": "b"}{"c": "d"}`),
			contains: "label mapping concat.json is malformed",
		},
		{
			name:     "nested value",
			indices:  good,
			labels:   writeFile(t, dir, "nested.json", `{"a": {"b": "c"}}`),
			contains: "label mapping nested.json is malformed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Load(tt.indices, tt.labels)
			require.Error(t, err)
			assert.Nil(t, c)
			assert.True(t, errors.Is(err, apperror.ErrCatalogLoad))
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestLoad_AllowsTrailingWhitespace(t *testing.T) {
	dir := t.TempDir()
	indices := writeFile(t, dir, "class_indices.json", "{\"0\": \"a\"}\n\n")
	names := writeFile(t, dir, "ID_to_chinese.json", "  {\"a\": \"一\"}  \n")

	c, err := Load(indices, names)
	require.NoError(t, err)
	assert.Equal(t, "一", c.DisplayLabel(c.CanonicalID(0)))
}

func TestCanonicalID_FallsBackToIndex(t *testing.T) {
	c := New(map[string]string{"0": "zero"}, nil)

	assert.Equal(t, "zero", c.CanonicalID(0))
	assert.Equal(t, "7", c.CanonicalID(7))
	assert.Equal(t, "-1", c.CanonicalID(-1))
}

func TestDisplayLabel_FallsBackToUnknown(t *testing.T) {
	c := New(nil, map[string]string{"zero": "零"})

	assert.Equal(t, "零", c.DisplayLabel("zero"))
	assert.Equal(t, Unknown, c.DisplayLabel("one"))
	assert.Equal(t, Unknown, c.DisplayLabel(""))
}

func TestNew_CopiesMappings(t *testing.T) {
	src := map[string]string{"0": "a"}
	c := New(src, nil)
	src["0"] = "b"

	assert.Equal(t, "a", c.CanonicalID(0))
}
