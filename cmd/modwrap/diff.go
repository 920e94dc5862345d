package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/modwrap/pkg/rewrite"
)

type diffOptions struct {
	stdinName string
	colorize  bool
	noColor   bool
}

func diffCmd(opts *rootOptions) *cobra.Command {
	var (
		flags compileFlags
		dopts diffOptions
	)

	cmd := &cobra.Command{
		Use:   "diff <file|->",
		Short: "Compare the static and live output of a module",
		Long: `Compile a module with both export strategies and print a line diff of
the two factories. Lines only in the static output start with "-", lines only
in the live output with "+".

Examples:
  modwrap diff src/app.ts
  modwrap diff --no-color - < app.js`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(cmd, opts, &flags, dopts, args[0])
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&dopts.stdinName, "stdin-filename", defaultStdinName, "file name used to detect the dialect of stdin")
	cmd.Flags().BoolVar(&dopts.colorize, "color", false, "force colored output")
	cmd.Flags().BoolVar(&dopts.noColor, "no-color", false, "disable colored output")

	return cmd
}

func runDiff(cmd *cobra.Command, opts *rootOptions, flags *compileFlags, dopts diffOptions, file string) error {
	name, src, err := readInput(cmd, file, dopts.stdinName)
	if err != nil {
		return err
	}

	sess, err := opts.openSession(cmd, flags)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	defer sess.close(ctx)

	codes := make(map[rewrite.Strategy]string, 2)

	for _, strategy := range []rewrite.Strategy{rewrite.StrategyStatic, rewrite.StrategyLive} {
		comp, compErr := sess.compiler(flags, strategy)
		if compErr != nil {
			return compErr
		}

		out, compileErr := comp.Compile(ctx, name, src)
		if compileErr != nil {
			return compileErr
		}

		codes[strategy] = out.Code
	}

	palette := newDiffPalette(dopts)

	return writeLineDiff(cmd.OutOrStdout(), palette, codes[rewrite.StrategyStatic], codes[rewrite.StrategyLive])
}

type diffPalette struct {
	header  *color.Color
	removed *color.Color
	added   *color.Color
}

func newDiffPalette(dopts diffOptions) diffPalette {
	p := diffPalette{
		header:  color.New(color.Bold),
		removed: color.New(color.FgRed),
		added:   color.New(color.FgGreen),
	}

	for _, c := range []*color.Color{p.header, p.removed, p.added} {
		switch {
		case dopts.noColor:
			c.DisableColor()
		case dopts.colorize:
			c.EnableColor()
		}
	}

	return p
}

// writeLineDiff prints a full-context line diff of from and to.
func writeLineDiff(w io.Writer, p diffPalette, from, to string) error {
	dmp := diffmatchpatch.New()
	src, dst, lines := dmp.DiffLinesToRunes(from, to)
	diffs := dmp.DiffCharsToLines(dmp.DiffMainRunes(src, dst, false), lines)

	var sb strings.Builder

	p.header.Fprintln(&sb, "--- "+string(rewrite.StrategyStatic))
	p.header.Fprintln(&sb, "+++ "+string(rewrite.StrategyLive))

	for _, d := range diffs {
		for _, line := range splitLines(d.Text) {
			switch d.Type {
			case diffmatchpatch.DiffDelete:
				p.removed.Fprintln(&sb, "-"+line)
			case diffmatchpatch.DiffInsert:
				p.added.Fprintln(&sb, "+"+line)
			case diffmatchpatch.DiffEqual:
				sb.WriteString(" " + line + "\n")
			}
		}
	}

	if _, err := io.WriteString(w, sb.String()); err != nil {
		return fmt.Errorf("write diff: %w", err)
	}

	return nil
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}

	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}
