package obelib

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitNewStyle(t *testing.T) {
	src := "# EXPTIME: exposure time in seconds\n:START\nOPEN_SHUTTER;\n:END\n"
	s := Split(src)
	assert.Contains(t, s.Header, "EXPTIME")
	assert.Contains(t, s.Body, ":START")
}

func TestSplitOldStyle(t *testing.T) {
	src := "<Header>\n# EXPTIME: exposure time\n</Header>\n:START\n:END\n"
	s := Split(src)
	assert.Contains(t, s.Header, "EXPTIME")
	assert.Contains(t, s.Body, ":START")
}

func TestCollectParams(t *testing.T) {
	header := "# EXPTIME: exposure time in seconds\n# FILTER: filter wheel position\nsome other text\n"
	params := CollectParams(header)
	require.Equal(t, "exposure time in seconds", params["EXPTIME"])
	require.Equal(t, "filter wheel position", params["FILTER"])
}

func TestResolveLoadsExpandsRecursively(t *testing.T) {
	files := map[string]string{
		"a": "LET x = 1;\n*LOAD \"b\"\nLET z = 3;\n",
		"b": "LET y = 2;\n",
	}
	load := func(name string) (string, error) { return files[name], nil }
	out, err := ResolveLoads(files["a"], load, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "LET x = 1;")
	assert.Contains(t, out, "LET y = 2;")
	assert.Contains(t, out, "LET z = 3;")
}

func TestResolveLoadsDetectsCycle(t *testing.T) {
	files := map[string]string{
		"a": "*LOAD \"b\"\n",
		"b": "*LOAD \"a\"\n",
	}
	load := func(name string) (string, error) { return files[name], nil }
	_, err := ResolveLoads(files["a"], load, []string{"a"})
	require.Error(t, err)
}
