package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/modwrap/pkg/compiler"
)

// ErrOutputConflict is returned when --output is combined with several
// inputs or with --out-dir.
var ErrOutputConflict = errors.New("--output takes a single input and excludes --out-dir")

const (
	defaultStdinName = "stdin.js"
	outputExt        = ".js"
	dirPerm          = 0o755
	filePerm         = 0o644
)

type wrapOptions struct {
	output    string
	outDir    string
	stdinName string
}

func wrapCmd(opts *rootOptions) *cobra.Command {
	var (
		flags compileFlags
		wopts wrapOptions
	)

	cmd := &cobra.Command{
		Use:   "wrap [files...]",
		Short: "Rewrite modules into loader factories",
		Long: `Rewrite modules into loader factories. Reads stdin when no file is given.

Examples:
  modwrap wrap src/app.ts                    # Print the factory to stdout
  modwrap wrap --strategy live a.js b.js     # Live bindings, both to stdout
  modwrap wrap --out-dir dist src/*.ts       # One .js file per input
  cat app.js | modwrap wrap -o app.wrapped.js`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWrap(cmd, opts, &flags, wopts, args)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&wopts.output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVar(&wopts.outDir, "out-dir", "", "write each output below this directory")
	cmd.Flags().StringVar(&wopts.stdinName, "stdin-filename", defaultStdinName, "file name used to detect the dialect of stdin")

	return cmd
}

func runWrap(cmd *cobra.Command, opts *rootOptions, flags *compileFlags, wopts wrapOptions, args []string) error {
	if wopts.output != "" && (len(args) > 1 || wopts.outDir != "") {
		return ErrOutputConflict
	}

	sess, err := opts.openSession(cmd, flags)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	defer sess.close(ctx)

	comp, err := sess.compiler(flags, "")
	if err != nil {
		return err
	}

	sink := &outputSink{
		stdout: cmd.OutOrStdout(),
		output: wopts.output,
		outDir: wopts.outDir,
		header: len(args) > 1 && wopts.outDir == "",
	}

	if len(args) == 0 {
		src, readErr := io.ReadAll(cmd.InOrStdin())
		if readErr != nil {
			return fmt.Errorf("read stdin: %w", readErr)
		}

		out, compileErr := comp.Compile(ctx, wopts.stdinName, src)
		if compileErr != nil {
			return compileErr
		}

		return sink.write(out)
	}

	if err := comp.CompileFiles(ctx, args, sess.cfg.Workers, sink.write); err != nil {
		return err
	}

	sess.logger.DebugContext(ctx, "wrapped modules",
		"files", sink.files, "warnings", sink.warnings, "cached", sink.cached)

	return nil
}

// outputSink writes compiled modules to stdout, one file, or a directory tree.
type outputSink struct {
	stdout io.Writer
	output string
	outDir string
	header bool

	files    int
	warnings int
	cached   int
}

func (s *outputSink) write(out *compiler.Output) error {
	s.files++
	s.warnings += out.Warnings()

	if out.Cached {
		s.cached++
	}

	code := ensureNewline(out.Code)

	switch {
	case s.outDir != "":
		path := filepath.Join(s.outDir, outputPath(out.Name))

		if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}

		return writeFile(path, code)
	case s.output != "":
		return writeFile(s.output, code)
	default:
		if s.header {
			if _, err := fmt.Fprintf(s.stdout, "// %s\n", out.Name); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
		}

		if _, err := io.WriteString(s.stdout, code); err != nil {
			return fmt.Errorf("write output: %w", err)
		}

		return nil
	}
}

func writeFile(path, code string) error {
	//nolint:gosec // output files are meant to be readable by the bundler.
	if err := os.WriteFile(path, []byte(code), filePerm); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}

// outputPath maps an input name to its path below --out-dir. Relative paths
// keep their directories; anything else is flattened to its base name.
func outputPath(name string) string {
	rel := filepath.Clean(name)
	if !filepath.IsLocal(rel) {
		rel = filepath.Base(rel)
	}

	return strings.TrimSuffix(rel, filepath.Ext(rel)) + outputExt
}

func ensureNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}

	return s + "\n"
}
