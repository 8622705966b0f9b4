package clip

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azadi-go/azadi/internal/chunkstore"
	"github.com/azadi-go/azadi/internal/writer"
)

func newTestClip(t *testing.T) (*Clip, string) {
	t.Helper()
	root := t.TempDir()
	store := chunkstore.New(chunkstore.DefaultConfig(), nil)
	w := writer.New(
		filepath.Join(root, "gen"),
		filepath.Join(root, "priv"),
		filepath.Join(root, "old"),
		writer.DefaultConfig(),
		nil,
	)
	c := New(store, w, nil)
	return c, root
}

func TestWriteFilesMaterializesFileChunk(t *testing.T) {
	c, root := newTestClip(t)
	c.Read("<<@file sub/out.txt>>=\nA\nB\n@\n", "doc.lit")

	require.NoError(t, c.WriteFiles())

	got, err := os.ReadFile(filepath.Join(root, "gen", "sub", "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "A\nB\n", string(got))
}

func TestWriteFilesTwiceIsIdempotent(t *testing.T) {
	c, root := newTestClip(t)
	c.Read("<<@file out.txt>>=\nsame\n@\n", "doc.lit")

	require.NoError(t, c.WriteFiles())
	require.NoError(t, c.WriteFiles())

	got, err := os.ReadFile(filepath.Join(root, "gen", "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "same\n", string(got))
}

func TestWriteFilesPrintsUnusedChunkWarnings(t *testing.T) {
	c, _ := newTestClip(t)
	var diag bytes.Buffer
	c.Diagnostics = &diag

	c.Read("<<@file out.txt>>=\nA\n@\n<<dead>>=\nnever used\n@\n", "doc.lit")
	require.NoError(t, c.WriteFiles())

	assert.Contains(t, diag.String(), "chunk 'dead' is defined but never referenced")
}

func TestGetChunkWritesTrailingNewline(t *testing.T) {
	c, _ := newTestClip(t)
	c.Read("<<greeting>>=\nhello\n@\n", "doc.lit")

	var out bytes.Buffer
	require.NoError(t, c.GetChunk("greeting", &out))
	assert.Equal(t, "hello\n\n", out.String())
}

func TestReadFilesStopsAtFirstError(t *testing.T) {
	c, _ := newTestClip(t)
	err := c.ReadFiles([]string{"/nonexistent/doc.lit"})
	require.Error(t, err)
}

func TestWriteFilesRejectsPathTraversalFileChunk(t *testing.T) {
	c, _ := newTestClip(t)
	c.Read("<<@file ../escape.txt>>=\nnope\n@\n", "doc.lit")

	// The invalid file-chunk name was never stored, so there is
	// nothing to write and no file-chunk to fail on.
	require.NoError(t, c.WriteFiles())
	assert.Empty(t, c.Store.GetFileChunks())
}
