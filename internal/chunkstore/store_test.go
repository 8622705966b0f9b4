package chunkstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() *Store {
	return New(Config{
		OpenDelim:      "<<",
		CloseDelim:     ">>",
		ChunkEnd:       "@",
		CommentMarkers: []string{"#"},
	}, nil)
}

func TestBasicChunk(t *testing.T) {
	s := newTestStore()
	s.Read("\n# <<t>>=\nHello\n# @\n", "doc.lit")

	require.True(t, s.HasChunk("t"))
	lines, err := s.Expand("t", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello\n"}, lines)
}

func TestFileChunkMaterializesName(t *testing.T) {
	s := newTestStore()
	s.Read("# <<@file sub/out.txt>>=\nA\nB\n# @\n", "doc.lit")

	require.Equal(t, []string{"@file sub/out.txt"}, s.GetFileChunks())
	assert.Equal(t, "sub/out.txt", FilePath(s.GetFileChunks()[0]))
}

func TestInvalidFileChunkPathIsNotStored(t *testing.T) {
	s := newTestStore()
	s.Read("# <<@file ../outside.txt>>=\nnope\n# @\n", "doc.lit")

	assert.Empty(t, s.GetFileChunks())
	assert.False(t, s.HasChunk("@file ../outside.txt"))
}

func TestInvalidAbsoluteFileChunkPathIsNotStored(t *testing.T) {
	s := newTestStore()
	s.Read("# <<@file /etc/passwd>>=\nnope\n# @\n", "doc.lit")

	assert.Empty(t, s.GetFileChunks())
}

func TestReplaceDirectiveDiscardsPriorBody(t *testing.T) {
	s := newTestStore()
	s.Read("# <<x>>=\nold\n# @\n", "a.lit")
	s.Read("    # <<@replace x>>=\n    new\n# @\n", "b.lit")

	lines, err := s.Expand("x", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"new\n"}, lines)

	c := s.chunks["x"]
	assert.Equal(t, "b.lit", c.Location.File)
	assert.Equal(t, 4, c.BaseIndent)
}

func TestBareReopenAppendsAndKeepsFirstLocation(t *testing.T) {
	s := newTestStore()
	s.Read("# <<x>>=\nfirst\n# @\n", "a.lit")
	s.Read("      # <<x>>=\nsecond\n# @\n", "b.lit")

	lines, err := s.Expand("x", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"first\n", "second\n"}, lines)

	c := s.chunks["x"]
	assert.Equal(t, "a.lit", c.Location.File)
	assert.Equal(t, 0, c.BaseIndent)
}

func TestCheckUnusedChunksSortedAndExcludesFileChunks(t *testing.T) {
	s := newTestStore()
	s.Read("# <<zeta>>=\nz\n# @\n# <<alpha>>=\na\n# @\n# <<@file out.txt>>=\nf\n# @\n", "doc.lit")

	warnings := s.CheckUnusedChunks()
	require.Len(t, warnings, 2)
	// Sorted lexicographically by the full message string, not by name:
	// "doc.lit 1: ... zeta" sorts before "doc.lit 4: ... alpha" because
	// '1' < '4' in the line-number segment.
	assert.Equal(t, "Warning: doc.lit 1: chunk 'zeta' is defined but never referenced", warnings[0])
	assert.Equal(t, "Warning: doc.lit 4: chunk 'alpha' is defined but never referenced", warnings[1])
}

func TestExpandIncrementsReferenceCount(t *testing.T) {
	s := newTestStore()
	s.Read("# <<outer>>=\n# <<inner>>\n# <<inner>>\n# @\n# <<inner>>=\nx\n# @\n", "doc.lit")

	_, err := s.Expand("outer", "")
	require.NoError(t, err)
	assert.Equal(t, 2, s.chunks["inner"].ReferenceCount)
	assert.Empty(t, s.CheckUnusedChunks())
}

func TestResetClearsStoreButNotReadable(t *testing.T) {
	s := newTestStore()
	s.Read("# <<t>>=\nx\n# @\n", "doc.lit")
	require.True(t, s.HasChunk("t"))

	s.Reset()
	assert.False(t, s.HasChunk("t"))
	assert.Empty(t, s.GetFileChunks())
}

func TestEmptyCommentMarkersAccepted(t *testing.T) {
	s := New(Config{OpenDelim: "<<", CloseDelim: ">>", ChunkEnd: "@"}, nil)
	s.Read("<<t>>=\nhi\n@\n", "doc.lit")

	lines, err := s.Expand("t", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"hi\n"}, lines)
}

func TestEmptyChunkExpandsToEmptySequence(t *testing.T) {
	s := newTestStore()
	s.Read("# <<t>>=\n# @\n", "doc.lit")

	lines, err := s.Expand("t", "")
	require.NoError(t, err)
	assert.Empty(t, lines)
}
