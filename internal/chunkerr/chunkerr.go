// Package chunkerr defines the error taxonomy shared by the chunk
// store, the expander, and the safe file writer, and formats them into
// the user-visible diagnostic strings printed by the CLI.
package chunkerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Level distinguishes errors from warnings when rendering a diagnostic.
type Level int

const (
	// Error marks a diagnostic that aborts the operation that produced it.
	Error Level = iota
	// Warning marks a diagnostic that never affects exit status.
	Warning
)

func (l Level) String() string {
	if l == Warning {
		return "Warning"
	}
	return "Error"
}

// Location pins a diagnostic to a zero-based line in a named source.
// Line is stored zero-based internally and rendered as Line+1.
type Location struct {
	File string
	Line int
}

func (l Location) String() string {
	return fmt.Sprintf("%s %d", l.File, l.Line+1)
}

// RecursionLimit is returned when expansion recurses deeper than the
// engine allows.
type RecursionLimit struct {
	Chunk    string
	Location Location
}

func (e *RecursionLimit) Error() string {
	return fmt.Sprintf("%s: %s", e.Location, e.message())
}

func (e *RecursionLimit) message() string {
	return fmt.Sprintf("chunk '%s' exceeds maximum expansion depth", e.Chunk)
}

// RecursiveReference is returned when a chunk (directly or mutually)
// references itself during expansion.
type RecursiveReference struct {
	Chunk    string
	Location Location
}

func (e *RecursiveReference) Error() string {
	return fmt.Sprintf("%s: %s", e.Location, e.message())
}

func (e *RecursiveReference) message() string {
	return fmt.Sprintf("chunk '%s' is recursively referenced", e.Chunk)
}

// UndefinedChunk is returned when a reference names a chunk absent from
// the store.
type UndefinedChunk struct {
	Chunk    string
	Location Location
}

func (e *UndefinedChunk) Error() string {
	return fmt.Sprintf("%s: %s", e.Location, e.message())
}

func (e *UndefinedChunk) message() string {
	return fmt.Sprintf("chunk '%s' is not defined", e.Chunk)
}

// SecurityViolation is returned by PathGuard-rejected paths.
type SecurityViolation struct {
	Reason string
}

func (e *SecurityViolation) Error() string {
	return e.Reason
}

// ModifiedExternally is returned when SafeFileWriter detects that a
// destination file's mtime no longer matches the mtime recorded at its
// last successful commit.
type ModifiedExternally struct {
	Path string
}

func (e *ModifiedExternally) Error() string {
	return fmt.Sprintf("%s was modified externally since last write, refusing to overwrite", e.Path)
}

// IoError wraps a filesystem failure. Cause returns the underlying
// error for callers (and logrus hooks) that want the original.
type IoError struct {
	Cause error
}

func (e *IoError) Error() string {
	return e.Cause.Error()
}

// Unwrap lets errors.Is/errors.As see through IoError to the wrapped cause.
func (e *IoError) Unwrap() error {
	return e.Cause
}

// WrapIO wraps err as an *IoError annotated with message, using
// github.com/pkg/errors so the cause chain carries a stack trace. It
// returns nil if err is nil.
func WrapIO(err error, message string) error {
	if err == nil {
		return nil
	}
	return &IoError{Cause: errors.Wrap(err, message)}
}

// FormatMessage renders a plain location-bearing diagnostic that has no
// dedicated ChunkError type (currently only the unused-chunk warning),
// as "<Level>: <file> <line+1>: <message>".
func FormatMessage(level Level, loc Location, message string) string {
	return fmt.Sprintf("%s: %s: %s", level, loc, message)
}

// Format renders err as a user-visible diagnostic line:
//
//	Error: <file> <line+1>: <message>
//	Warning: <file> <line+1>: <message>
//
// for location-bearing ChunkError variants, or
//
//	Error: I/O error: <cause>
//
// for *IoError (regardless of level, since I/O failures are never
// reported as warnings).
func Format(level Level, err error) string {
	switch e := err.(type) {
	case *RecursionLimit:
		return fmt.Sprintf("%s: %s: %s", level, e.Location, e.message())
	case *RecursiveReference:
		return fmt.Sprintf("%s: %s: %s", level, e.Location, e.message())
	case *UndefinedChunk:
		return fmt.Sprintf("%s: %s: %s", level, e.Location, e.message())
	case *SecurityViolation:
		return fmt.Sprintf("%s: %s", level, e.Reason)
	case *ModifiedExternally:
		return fmt.Sprintf("%s: %s", level, e.Error())
	case *IoError:
		return fmt.Sprintf("Error: I/O error: %s", e.Cause)
	default:
		return fmt.Sprintf("%s: %s", level, err)
	}
}
