// Package chunkstore implements the data model, parser, recursive
// expander, and unused-chunk diagnostics for a literate-programming
// chunk store.
package chunkstore

import (
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/azadi-go/azadi/internal/chunkerr"
)

// FileChunkPrefix is the literal marker that turns a chunk name into a
// file-chunk name.
const FileChunkPrefix = "@file "

// Chunk is a named, ordered sequence of raw lines plus the bookkeeping
// needed to expand and report on it: the indentation column of its
// opening directive, its source location, and a reference counter.
type Chunk struct {
	Name           string
	Lines          []string
	BaseIndent     int
	Location       chunkerr.Location
	ReferenceCount int
}

func (c *Chunk) clone() *Chunk {
	cp := *c
	cp.Lines = append([]string(nil), c.Lines...)
	return &cp
}

// IsFileChunk reports whether name begins with the file-chunk prefix.
func IsFileChunk(name string) bool {
	return strings.HasPrefix(name, FileChunkPrefix)
}

// FilePath extracts and trims the path portion of a file-chunk name. It
// is only meaningful when IsFileChunk(name) is true.
func FilePath(name string) string {
	return strings.TrimSpace(strings.TrimPrefix(name, FileChunkPrefix))
}

// Store holds chunk definitions parsed from one or more input
// documents and the derived list of file-chunk names.
type Store struct {
	Config Config

	chunks      map[string]*Chunk
	fileChunks  []string
	insertOrder []string

	open  *regexp.Regexp
	slot  *regexp.Regexp
	close *regexp.Regexp

	log logrus.FieldLogger
}

// Config configures the delimiters, comment markers, and end marker
// the parser recognizes.
type Config struct {
	OpenDelim      string
	CloseDelim     string
	ChunkEnd       string
	CommentMarkers []string
}

// DefaultConfig returns the conventional angle-bracket delimiters and
// a "#"/"//" comment-marker set.
func DefaultConfig() Config {
	return Config{
		OpenDelim:      "<<",
		CloseDelim:     ">>",
		ChunkEnd:       "@",
		CommentMarkers: []string{"#", "//"},
	}
}

// New builds a Store from cfg. log may be nil, in which case diagnostic
// tracing is discarded.
func New(cfg Config, log logrus.FieldLogger) *Store {
	if log == nil {
		log = noopLogger()
	}
	s := &Store{
		Config: cfg,
		chunks: make(map[string]*Chunk),
		log:    log,
	}
	s.compile()
	return s
}

func noopLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Reset clears the map and the file-chunks list. It does not touch
// writer state, since the store owns none.
func (s *Store) Reset() {
	s.chunks = make(map[string]*Chunk)
	s.fileChunks = nil
	s.insertOrder = nil
}

// HasChunk reports whether name is present in the store.
func (s *Store) HasChunk(name string) bool {
	_, ok := s.chunks[name]
	return ok
}

// GetFileChunks returns the current file-chunk names, insertion order.
func (s *Store) GetFileChunks() []string {
	out := make([]string, len(s.fileChunks))
	copy(out, s.fileChunks)
	return out
}

// rebuildFileChunks recomputes the auxiliary list from the map after a
// parse. It preserves the insertion order recorded in insertOrder, so
// WriteFiles materializes file-chunks in the order their directives
// first appeared, while skipping any name not present in the map and
// never duplicating a key (a @replace records its key in insertOrder
// again when it re-inserts it).
func (s *Store) rebuildFileChunks() {
	seen := make(map[string]bool, len(s.insertOrder))
	out := make([]string, 0, len(s.insertOrder))
	for _, n := range s.insertOrder {
		if seen[n] {
			continue
		}
		if _, ok := s.chunks[n]; !ok {
			continue
		}
		if !IsFileChunk(n) {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	s.fileChunks = out
}

// CheckUnusedChunks returns the lexicographically sorted warning
// strings for every non-file chunk whose reference count is zero.
func (s *Store) CheckUnusedChunks() []string {
	var warnings []string
	for name, c := range s.chunks {
		if IsFileChunk(name) {
			continue
		}
		if c.ReferenceCount == 0 {
			warnings = append(warnings, chunkerr.FormatMessage(
				chunkerr.Warning,
				c.Location,
				"chunk '"+name+"' is defined but never referenced",
			))
		}
	}
	sort.Strings(warnings)
	return warnings
}
