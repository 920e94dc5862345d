package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/modwrap/pkg/compiler"
	"github.com/Sumatoshi-tech/modwrap/pkg/rewrite"
)

// ErrUnsupportedFormat is returned for an unknown --format value.
var ErrUnsupportedFormat = errors.New("unsupported format")

// stdinArg selects stdin as the input file.
const stdinArg = "-"

// inspectReport is the bookkeeping of one compilation, without the code.
type inspectReport struct {
	File        string                 `json:"file" yaml:"file"`
	Dialect     string                 `json:"dialect" yaml:"dialect"`
	Strategy    string                 `json:"strategy" yaml:"strategy"`
	Imports     []rewrite.ImportRecord `json:"imports" yaml:"imports"`
	Exports     []string               `json:"exports" yaml:"exports"`
	Excluded    []string               `json:"excluded" yaml:"excluded"`
	Diagnostics []rewrite.Diagnostic   `json:"diagnostics" yaml:"diagnostics"`
}

func inspectCmd(opts *rootOptions) *cobra.Command {
	var (
		flags     compileFlags
		format    string
		stdinName string
	)

	cmd := &cobra.Command{
		Use:   "inspect <file|->",
		Short: "Show the imports, exports and diagnostics of a module",
		Long: `Compile a module and report its import records, excluded sources,
export names and diagnostics instead of the code.

Examples:
  modwrap inspect src/app.ts
  modwrap inspect -f json src/app.ts
  modwrap inspect --hash sha256 -f yaml - < app.js`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, opts, &flags, args[0], stdinName, format)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "output format (table, json, yaml)")
	cmd.Flags().StringVar(&stdinName, "stdin-filename", defaultStdinName, "file name used to detect the dialect of stdin")

	return cmd
}

func runInspect(cmd *cobra.Command, opts *rootOptions, flags *compileFlags, file, stdinName, format string) error {
	switch format {
	case formatTable, formatJSON, formatYAML:
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	name, src, err := readInput(cmd, file, stdinName)
	if err != nil {
		return err
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

	out, err := comp.Compile(ctx, name, src)
	if err != nil {
		return err
	}

	report := inspectReport{
		File:        out.Name,
		Dialect:     string(out.Dialect),
		Strategy:    string(comp.Strategy()),
		Imports:     nonNil(out.Imports),
		Exports:     nonNil(out.Exports),
		Excluded:    nonNil(out.Excluded),
		Diagnostics: nonNil(out.Diagnostics),
	}

	return writeReport(cmd.OutOrStdout(), report, format)
}

// readInput reads file, or stdin when file is "-".
func readInput(cmd *cobra.Command, file, stdinName string) (string, []byte, error) {
	if file == stdinArg {
		src, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", nil, fmt.Errorf("read stdin: %w", err)
		}

		return stdinName, src, nil
	}

	src, err := compiler.ReadSource(file)
	if err != nil {
		return "", nil, err
	}

	return file, src, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}

	return s
}

func writeReport(w io.Writer, report inspectReport, format string) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}

		return nil
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)

		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}

		return enc.Close()
	default:
		_, err := io.WriteString(w, renderReport(report))
		if err != nil {
			return fmt.Errorf("write report: %w", err)
		}

		return nil
	}
}

func newTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false

	return tbl
}

func renderReport(report inspectReport) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s (%s, %s)\n\n", report.File, report.Dialect, report.Strategy)

	imports := newTable()
	imports.SetTitle("Imports")
	imports.AppendHeader(table.Row{"Namespace", "Hash", "Path"})

	for _, rec := range report.Imports {
		imports.AppendRow(table.Row{rec.Namespace, rec.Hash, rec.Path})
	}

	imports.AppendFooter(table.Row{fmt.Sprintf("Total: %d", len(report.Imports))})
	sb.WriteString(imports.Render())
	sb.WriteString("\n\n")

	names := newTable()
	names.AppendHeader(table.Row{"Exports", "Excluded"})

	for i := range max(len(report.Exports), len(report.Excluded)) {
		names.AppendRow(table.Row{at(report.Exports, i), at(report.Excluded, i)})
	}

	sb.WriteString(names.Render())
	sb.WriteString("\n")

	if len(report.Diagnostics) > 0 {
		diags := newTable()
		diags.SetTitle("Diagnostics")
		diags.AppendHeader(table.Row{"Position", "Severity", "Message"})

		for _, d := range report.Diagnostics {
			diags.AppendRow(table.Row{fmt.Sprintf("%d:%d", d.Line, d.Column), string(d.Severity), d.Message})
		}

		sb.WriteString("\n")
		sb.WriteString(diags.Render())
		sb.WriteString("\n")
	}

	return sb.String()
}

func at(s []string, i int) string {
	if i < len(s) {
		return s[i]
	}

	return ""
}
