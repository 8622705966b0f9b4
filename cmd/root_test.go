package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeInput(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestRunWritesFileChunks(t *testing.T) {
	dir := t.TempDir()
	doc := writeInput(t, dir, "doc.lit", "# <<@file out.txt>>=\nHello\n# @\n")

	o := DefaultOptions()
	o.Gen = filepath.Join(dir, "gen")
	o.PrivDir = filepath.Join(dir, "priv")
	o.CommentMarkers = "#"

	var out, errOut bytes.Buffer
	err := Run(o, []string{doc}, &out, &errOut)
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(o.Gen, "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Hello\n", string(got))
}

func TestRunExtractsNamedChunks(t *testing.T) {
	dir := t.TempDir()
	doc := writeInput(t, dir, "doc.lit", "# <<greeting>>=\nHello\n# @\n")

	o := DefaultOptions()
	o.Gen = filepath.Join(dir, "gen")
	o.PrivDir = filepath.Join(dir, "priv")
	o.CommentMarkers = "#"
	o.Chunks = "greeting"

	var out, errOut bytes.Buffer
	err := Run(o, []string{doc}, &out, &errOut)
	require.NoError(t, err)
	assert.Equal(t, "Hello\n\n", out.String())
}

func TestRunSurfacesUndefinedChunk(t *testing.T) {
	dir := t.TempDir()
	doc := writeInput(t, dir, "doc.lit", "# <<@file out.txt>>=\n# <<missing>>\n# @\n")

	o := DefaultOptions()
	o.Gen = filepath.Join(dir, "gen")
	o.PrivDir = filepath.Join(dir, "priv")
	o.CommentMarkers = "#"

	var out, errOut bytes.Buffer
	err := Run(o, []string{doc}, &out, &errOut)
	require.Error(t, err)
}

func TestSplitNonEmpty(t *testing.T) {
	assert.Equal(t, []string(nil), splitNonEmpty(""))
	assert.Equal(t, []string{"#", "//"}, splitNonEmpty("#,//"))
	assert.Equal(t, []string{"a"}, splitNonEmpty("a,"))
}
