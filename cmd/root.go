// Package cmd implements the azadi command-line front end: flag
// parsing, config assembly, and invocation of the extraction engine.
// It is a thin adapter over internal/clip.
package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/azadi-go/azadi/internal/chunkerr"
	"github.com/azadi-go/azadi/internal/chunkstore"
	"github.com/azadi-go/azadi/internal/clip"
	"github.com/azadi-go/azadi/internal/writer"
)

// Options holds the command-line flag values. It is kept separate
// from the cobra.Command so tests can drive Run directly without
// going through flag parsing.
type Options struct {
	Output         string
	Chunks         string
	PrivDir        string
	Gen            string
	OpenDelim      string
	CloseDelim     string
	ChunkEnd       string
	CommentMarkers string
	Verbose        bool
}

// DefaultOptions returns the flag defaults applied when a user passes
// none of the corresponding flags.
func DefaultOptions() Options {
	return Options{
		Output:         "",
		Chunks:         "",
		PrivDir:        "_azadi_work",
		Gen:            "gen",
		OpenDelim:      "<<",
		CloseDelim:     ">>",
		ChunkEnd:       "@",
		CommentMarkers: "#,//",
		Verbose:        false,
	}
}

var opts = DefaultOptions()

// Root is the top-level command. azadi has no subcommands: its whole
// surface is its flag table plus one or more positional input files.
var Root = &cobra.Command{
	Use:   "azadi <file>...",
	Short: "Extract source files from literate-programming documents",
	Long: `azadi reads one or more literate-programming documents, resolves
named, interleaved code chunks and their cross-references, and
materializes the resulting source files under a confined output root.`,
	Args:          cobra.MinimumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(c *cobra.Command, args []string) error {
		return Run(opts, args, c.OutOrStdout(), errWriter())
	},
}

func init() {
	flags := Root.Flags()
	flags.StringVar(&opts.Output, "output", opts.Output, "sink file for --chunks extraction (default stdout)")
	flags.StringVar(&opts.Chunks, "chunks", opts.Chunks, "comma-separated chunk names to extract")
	flags.StringVar(&opts.PrivDir, "priv-dir", opts.PrivDir, "staging directory")
	flags.StringVar(&opts.Gen, "gen", opts.Gen, "output root")
	flags.StringVar(&opts.OpenDelim, "open-delim", opts.OpenDelim, "chunk open delimiter")
	flags.StringVar(&opts.CloseDelim, "close-delim", opts.CloseDelim, "chunk close delimiter")
	flags.StringVar(&opts.ChunkEnd, "chunk-end", opts.ChunkEnd, "end-marker literal")
	flags.StringVar(&opts.CommentMarkers, "comment-markers", opts.CommentMarkers, "comma-separated comment markers")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", opts.Verbose, "log each materialized file-chunk to stderr")
	flags.SetNormalizeFunc(normalizeFlagName)
}

// normalizeFlagName accepts underscore spellings of the multi-word
// flags (--priv_dir, --comment_markers, ...) as aliases for the
// canonical dashed names.
func normalizeFlagName(f *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

// Execute parses os.Args and runs the root command: exit status 0 on
// success, non-zero on any surfaced error, with the error text on
// stderr prefixed "Error:".
func Execute() {
	if err := Root.Execute(); err != nil {
		fmt.Fprintln(errWriter(), colorize(false, "Error: "+errorText(err)))
		os.Exit(1)
	}
}

// errorText strips chunkerr.Format's "Error: " prefix so the caller
// can re-prefix and colorize the message itself, whether or not err
// originated from cobra's own flag-parsing path.
func errorText(err error) string {
	switch err.(type) {
	case *chunkerr.RecursionLimit, *chunkerr.RecursiveReference,
		*chunkerr.UndefinedChunk, *chunkerr.SecurityViolation,
		*chunkerr.ModifiedExternally, *chunkerr.IoError:
		return chunkerr.Format(chunkerr.Error, err)[len("Error: "):]
	default:
		return err.Error()
	}
}

// errWriter returns stderr wrapped so ANSI escapes survive on Windows
// terminals that don't natively interpret them.
func errWriter() io.Writer {
	return colorable.NewColorable(os.Stderr)
}

// colorize wraps msg in red (yellow when warning is true) when stderr
// is a TTY and NO_COLOR is
// unset; the literal "Error:"/"Warning:" message text is left intact,
// so only the ANSI escape is added here, never reformatted content.
func colorize(warning bool, msg string) string {
	if os.Getenv("NO_COLOR") != "" || !isatty.IsTerminal(os.Stderr.Fd()) {
		return msg
	}
	code := "31" // red
	if warning {
		code = "33" // yellow
	}
	return "\x1b[" + code + "m" + msg + "\x1b[0m"
}

// colorLineWriter wraps Clip's diagnostics sink so the unused-chunk
// warnings it prints (each already a complete "Warning: ..." line,
// newline-terminated) get the same TTY coloring as the top-level
// error path, without Clip itself knowing anything about color.
type colorLineWriter struct {
	dst io.Writer
}

func (w *colorLineWriter) Write(p []byte) (int, error) {
	line := strings.TrimSuffix(string(p), "\n")
	if _, err := io.WriteString(w.dst, colorize(true, line)+"\n"); err != nil {
		return 0, err
	}
	return len(p), nil
}

// engineLogger returns the logrus logger wired into the store, writer,
// and Clip. By default it discards everything, so a plain run prints
// only the Error:/Warning: diagnostic lines to stderr; --verbose
// switches it to logrus's standard logger at Info level, which adds a
// line per materialized file-chunk.
func engineLogger(verbose bool) logrus.FieldLogger {
	if !verbose {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		return discard
	}
	return logrus.StandardLogger()
}

// Run builds a Clip from opts, reads every glob-expanded input path in
// args, and either writes files (the default) or extracts the
// --chunks list to out.
func Run(o Options, args []string, out io.Writer, errOut io.Writer) error {
	paths, err := expandGlobs(args)
	if err != nil {
		return chunkerr.WrapIO(err, "expanding input file arguments")
	}

	log := engineLogger(o.Verbose)

	store := chunkstore.New(chunkstore.Config{
		OpenDelim:      o.OpenDelim,
		CloseDelim:     o.CloseDelim,
		ChunkEnd:       o.ChunkEnd,
		CommentMarkers: splitNonEmpty(o.CommentMarkers),
	}, log)

	w := writer.New(o.Gen, o.PrivDir, oldDirFor(o.PrivDir), writer.DefaultConfig(), log)

	c := clip.New(store, w, log)
	c.Diagnostics = &colorLineWriter{dst: errOut}

	if err := c.ReadFiles(paths); err != nil {
		return err
	}

	if o.Chunks != "" {
		return extractChunks(c, splitNonEmpty(o.Chunks), o.Output, out)
	}

	return c.WriteFiles()
}

// oldDirFor derives the backup tree's root from the staging directory,
// keeping both transient trees siblings under the same parent rather
// than introducing a separate flag for the backup location.
func oldDirFor(privDir string) string {
	return privDir + "_old"
}

func extractChunks(c *clip.Clip, names []string, output string, stdout io.Writer) error {
	sink := stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return chunkerr.WrapIO(err, "opening --output "+output)
		}
		defer f.Close()
		sink = f
	}
	for _, name := range names {
		if err := c.GetChunk(name, sink); err != nil {
			return err
		}
	}
	return nil
}

// expandGlobs resolves doublestar patterns in args against the
// filesystem, so positional input file arguments accept "**" glob
// patterns even on shells without globstar support. An argument that
// matches nothing (a plain path with no glob metacharacters, or a
// pattern that happens to match zero files) is passed through
// unchanged and left for ReadFiles to fail on if it doesn't exist.
func expandGlobs(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		matches, err := doublestar.FilepathGlob(arg)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			out = append(out, arg)
			continue
		}
		out = append(out, matches...)
	}
	return out, nil
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
