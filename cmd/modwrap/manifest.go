package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/modwrap/pkg/compiler"
	"github.com/Sumatoshi-tech/modwrap/pkg/modhash"
)

// ErrManifestInvalid is returned when manifest validation finds violations.
var ErrManifestInvalid = errors.New("manifest validation failed")

func manifestCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Validate and generate module hash manifests",
	}

	cmd.AddCommand(manifestValidateCmd())
	cmd.AddCommand(manifestSchemaCmd())
	cmd.AddCommand(manifestGenerateCmd(opts))

	return cmd
}

func manifestValidateCmd() *cobra.Command {
	var noColor bool

	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a hash manifest against the manifest schema",
		Long: `Validate a YAML or JSON hash manifest against the embedded JSON schema.

Examples:
  modwrap manifest validate hashes.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runManifestValidate(cmd.OutOrStdout(), args[0], noColor)
		},
	}

	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")

	return cmd
}

func runManifestValidate(w io.Writer, path string, noColor bool) error {
	data, err := compiler.ReadSource(path)
	if err != nil {
		return err
	}

	violations, err := modhash.ValidateManifest(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	ok := color.New(color.FgGreen)
	bad := color.New(color.FgRed)

	if noColor {
		ok.DisableColor()
		bad.DisableColor()
	}

	if len(violations) == 0 {
		ok.Fprintf(w, "manifest is valid (%s)\n", path)

		return nil
	}

	bad.Fprintf(w, "manifest validation failed (%s)\n", path)

	for _, v := range violations {
		bad.Fprintf(w, "  - %s\n", v)
	}

	return fmt.Errorf("%w: %d violation(s)", ErrManifestInvalid, len(violations))
}

func manifestSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the manifest JSON schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := cmd.OutOrStdout().Write(modhash.Schema())

			return err
		},
	}
}

func manifestGenerateCmd(opts *rootOptions) *cobra.Command {
	var length int

	cmd := &cobra.Command{
		Use:   "generate <files...>",
		Short: "Generate a sha256 manifest for the imports of modules",
		Long: `Compile the given modules and write a manifest that maps every imported
source path to its sha256 hash. Excluded sources are left out.

Examples:
  modwrap manifest generate --length 12 src/*.ts > hashes.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runManifestGenerate(cmd, opts, args, length)
		},
	}

	cmd.Flags().IntVar(&length, "length", 0, "truncate hashes to this many hex digits (0 = full digest)")

	return cmd
}

func runManifestGenerate(cmd *cobra.Command, opts *rootOptions, files []string, length int) error {
	hash, err := modhash.SHA256(length)
	if err != nil {
		return err
	}

	sess, err := opts.openSession(cmd, nil)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	defer sess.close(ctx)

	comp, err := sess.compiler(nil, "")
	if err != nil {
		return err
	}

	manifest := modhash.Manifest{Version: modhash.ManifestVersion, Modules: map[string]string{}}

	err = comp.CompileFiles(ctx, files, sess.cfg.Workers, func(out *compiler.Output) error {
		for _, rec := range out.Imports {
			manifest.Modules[rec.Path] = hash(rec.Path)
		}

		return nil
	})
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)

	if err := enc.Encode(manifest); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	return enc.Close()
}
