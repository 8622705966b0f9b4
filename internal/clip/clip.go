// Package clip provides a thin façade composing a chunk store and a
// safe file writer to read input documents, materialize file-chunks,
// and extract named chunks on demand.
package clip

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/azadi-go/azadi/internal/chunkerr"
	"github.com/azadi-go/azadi/internal/chunkstore"
	"github.com/azadi-go/azadi/internal/writer"
)

// Clip combines a chunk Store with a SafeFileWriter.
type Clip struct {
	Store  *chunkstore.Store
	Writer *writer.SafeFileWriter

	// Diagnostics receives the unused-chunk warnings printed after a
	// successful WriteFiles. Defaults to os.Stderr.
	Diagnostics io.Writer

	log logrus.FieldLogger
}

// New builds a Clip from an already-constructed Store and Writer.
func New(store *chunkstore.Store, w *writer.SafeFileWriter, log logrus.FieldLogger) *Clip {
	return &Clip{Store: store, Writer: w, Diagnostics: os.Stderr, log: log}
}

// Read delegates to the store.
func (c *Clip) Read(text, fileLabel string) {
	c.Store.Read(text, fileLabel)
}

// ReadFile loads path and reads its contents into the store, labeling
// diagnostics with path.
func (c *Clip) ReadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return chunkerr.WrapIO(err, "reading "+path)
	}
	c.Read(string(data), path)
	return nil
}

// ReadFiles reads each path in order, stopping at the first error.
func (c *Clip) ReadFiles(paths []string) error {
	for _, p := range paths {
		if err := c.ReadFile(p); err != nil {
			return err
		}
	}
	return nil
}

// Expand is a pass-through to the store's expander.
func (c *Clip) Expand(name, indent string) ([]string, error) {
	return c.Store.Expand(name, indent)
}

// WriteFiles expands every file-chunk snapshotted at call time and
// commits each through the SafeFileWriter, then prints unused-chunk
// warnings to Diagnostics. The first file-chunk failure aborts and is
// returned; no further file-chunks are attempted.
func (c *Clip) WriteFiles() error {
	fileChunks := c.Store.GetFileChunks()

	for _, key := range fileChunks {
		relPath := chunkstore.FilePath(key)

		lines, err := c.Store.Expand(key, "")
		if err != nil {
			return err
		}

		staged, err := c.Writer.BeforeWrite(relPath)
		if err != nil {
			return err
		}

		if err := writeLinesToPath(staged, lines); err != nil {
			return chunkerr.WrapIO(err, "writing staged file "+staged)
		}

		if err := c.Writer.AfterWrite(relPath, staged); err != nil {
			return err
		}

		if c.log != nil {
			c.log.WithField("path", relPath).Info("materialized file-chunk")
		}
	}

	for _, warning := range c.Store.CheckUnusedChunks() {
		fmt.Fprintln(c.Diagnostics, warning)
	}

	return nil
}

// GetChunk expands name and writes its lines verbatim to sink, followed
// by a single trailing newline, for CLI "print a chunk" mode.
func (c *Clip) GetChunk(name string, sink io.Writer) error {
	lines, err := c.Store.Expand(name, "")
	if err != nil {
		return err
	}
	if err := writeLines(sink, lines); err != nil {
		return chunkerr.WrapIO(err, "writing chunk "+name)
	}
	if _, err := io.WriteString(sink, "\n"); err != nil {
		return chunkerr.WrapIO(err, "writing trailing newline for chunk "+name)
	}
	return nil
}

// writeLines writes each line verbatim, in order, to dst.
func writeLines(dst io.Writer, lines []string) error {
	for _, l := range lines {
		if _, err := io.WriteString(dst, l); err != nil {
			return err
		}
	}
	return nil
}

// writeLinesToPath creates (or truncates) the file at path and writes
// lines to it verbatim, for staging a file-chunk's expanded content
// into SafeFileWriter's private directory before commit.
func writeLinesToPath(path string, lines []string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeLines(f, lines); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
