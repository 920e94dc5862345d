package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/modwrap/pkg/modhash"
	"github.com/Sumatoshi-tech/modwrap/pkg/rewrite"
)

const appModule = `import { a } from "lib";
import type { T } from "types";
export const b = a + 1;
`

type cliResult struct {
	stdout string
	stderr string
	err    error
}

// runCLI executes the root command against an empty config file.
func runCLI(t *testing.T, stdin string, args ...string) cliResult {
	t.Helper()

	return runCLIConfig(t, "", stdin, args...)
}

func runCLIConfig(t *testing.T, cfg, stdin string, args ...string) cliResult {
	t.Helper()

	cfgPath := filepath.Join(t.TempDir(), ".modwrap.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))

	rootCmd := newRootCmd()

	var stdout, stderr bytes.Buffer

	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(append([]string{"--config", cfgPath}, args...))

	err := rootCmd.Execute()

	return cliResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestCLI_HelpAndSubcommands(t *testing.T) {
	t.Parallel()

	tests := []struct {
		args    []string
		wantOut string
		wantErr bool
	}{
		{args: []string{"--help"}, wantOut: "hash-addressed loader"},
		{args: []string{"wrap", "--help"}, wantOut: "Reads stdin when no file is given."},
		{args: []string{"inspect", "--help"}, wantOut: "export names and diagnostics"},
		{args: []string{"diff", "--help"}, wantOut: "both export strategies"},
		{args: []string{"manifest", "validate", "--help"}, wantOut: "embedded JSON schema"},
		{args: []string{"version"}, wantOut: "modwrap "},
		{args: []string{"unknown"}, wantErr: true},
	}

	for _, tt := range tests {
		res := runCLI(t, "", tt.args...)

		if tt.wantErr {
			require.Error(t, res.err, tt.args)

			continue
		}

		require.NoError(t, res.err, tt.args)
		assert.Contains(t, res.stdout, tt.wantOut, tt.args)
	}
}

func TestWrap_Stdin(t *testing.T) {
	t.Parallel()

	res := runCLI(t, appModule, "-q", "wrap")
	require.NoError(t, res.err)

	assert.True(t, strings.HasPrefix(res.stdout, "(function (m, e, r) {"), res.stdout)
	assert.Contains(t, res.stdout, `var _i0 = __imp("lib", "lib") || { __esModule: true };`)
	assert.NotContains(t, res.stdout, `"types"`)
	assert.True(t, strings.HasSuffix(res.stdout, "\n"))
}

func TestWrap_FlagsOverrideConfig(t *testing.T) {
	t.Parallel()

	res := runCLI(t, appModule, "-q", "wrap", "--strategy", "live", "--hash", "sha256", "--hash-length", "8",
		"--diag-tag", "Loader")
	require.NoError(t, res.err)

	hash, err := modhash.SHA256(8)
	require.NoError(t, err)

	assert.Contains(t, res.stdout, "r.r(e);")
	assert.Contains(t, res.stdout, `__imp("`+hash("lib")+`", "lib")`)
	assert.Contains(t, res.stdout, "[Loader]")
}

func TestWrap_InvalidStrategy(t *testing.T) {
	t.Parallel()

	res := runCLI(t, appModule, "wrap", "--strategy", "eager")
	require.ErrorIs(t, res.err, rewrite.ErrUnknownStrategy)
}

func TestWrap_FilesToStdout(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := writeFile(t, dir, "a.js", `export const a = 1;`)
	b := writeFile(t, dir, "b.ts", appModule)

	res := runCLI(t, "", "-q", "wrap", "-w", "2", a, b)
	require.NoError(t, res.err)

	first := strings.Index(res.stdout, "// "+a+"\n")
	second := strings.Index(res.stdout, "// "+b+"\n")

	require.GreaterOrEqual(t, first, 0)
	require.Greater(t, second, first)
}

func TestWrap_OutDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "dist")
	src := writeFile(t, dir, "app.ts", appModule)

	res := runCLI(t, "", "-q", "wrap", "--out-dir", outDir, src)
	require.NoError(t, res.err)
	assert.Empty(t, res.stdout)

	code, err := os.ReadFile(filepath.Join(outDir, "app.js"))
	require.NoError(t, err)
	assert.Contains(t, string(code), `__imp("lib", "lib")`)
}

func TestWrap_OutputFile(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "app.wrapped.js")

	res := runCLI(t, appModule, "-q", "wrap", "-o", out)
	require.NoError(t, res.err)

	code, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(code), "(function (m, e, r) {")
}

func TestWrap_OutputConflict(t *testing.T) {
	t.Parallel()

	res := runCLI(t, "", "wrap", "-o", "x.js", "a.js", "b.js")
	require.ErrorIs(t, res.err, ErrOutputConflict)
}

func TestWrap_MissingFile(t *testing.T) {
	t.Parallel()

	res := runCLI(t, "", "-q", "wrap", filepath.Join(t.TempDir(), "absent.js"))
	require.ErrorIs(t, res.err, os.ErrNotExist)
}

func TestWrap_PersistentCache(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cacheDir := filepath.Join(dir, "cache")
	src := writeFile(t, dir, "app.ts", appModule)
	cfg := "cache:\n  dir: " + cacheDir + "\n"

	first := runCLIConfig(t, cfg, "", "wrap", src)
	require.NoError(t, first.err)
	assert.FileExists(t, filepath.Join(cacheDir, cacheFile))

	second := runCLIConfig(t, cfg, "", "-v", "wrap", src)
	require.NoError(t, second.err)
	assert.Equal(t, first.stdout, second.stdout)
	assert.Contains(t, second.stderr, "cache snapshot loaded")
	assert.Contains(t, second.stderr, "entries=1")
}

func TestInspect_JSON(t *testing.T) {
	t.Parallel()

	res := runCLI(t, appModule, "-q", "inspect", "-f", "json", "--stdin-filename", "app.ts", "-")
	require.NoError(t, res.err)

	var report inspectReport
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &report))

	assert.Equal(t, "app.ts", report.File)
	assert.Equal(t, "typescript", report.Dialect)
	assert.Equal(t, "static", report.Strategy)
	assert.Equal(t, []rewrite.ImportRecord{{Namespace: "_i0", Hash: "lib", Path: "lib"}}, report.Imports)
	assert.Equal(t, []string{"b"}, report.Exports)
	assert.Equal(t, []string{"types"}, report.Excluded)
	assert.Empty(t, report.Diagnostics)
}

func TestInspect_YAMLAndTable(t *testing.T) {
	t.Parallel()

	src := writeFile(t, t.TempDir(), "dup.js", "export default 1;\nexport default 2;\n")

	res := runCLI(t, "", "-q", "inspect", "-f", "yaml", src)
	require.NoError(t, res.err)

	var report inspectReport
	require.NoError(t, yaml.Unmarshal([]byte(res.stdout), &report))
	require.Len(t, report.Diagnostics, 1)
	assert.Equal(t, 2, report.Diagnostics[0].Line)
	assert.Equal(t, []string{"default"}, report.Exports)

	res = runCLI(t, "", "-q", "inspect", src)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Imports")
	assert.Contains(t, res.stdout, "Diagnostics")
	assert.Contains(t, res.stdout, "duplicate default export")
}

func TestInspect_UnsupportedFormat(t *testing.T) {
	t.Parallel()

	res := runCLI(t, appModule, "inspect", "-f", "xml", "-")
	require.ErrorIs(t, res.err, ErrUnsupportedFormat)
}

func TestDiff(t *testing.T) {
	t.Parallel()

	res := runCLI(t, "export const x = 1;\n", "-q", "diff", "--no-color", "-")
	require.NoError(t, res.err)

	assert.Contains(t, res.stdout, "--- static\n+++ live\n")
	assert.Contains(t, res.stdout, "\n-  Object.defineProperty(e, \"__esModule\"")
	assert.Contains(t, res.stdout, "\n+  r.r(e);")
	assert.Contains(t, res.stdout, "\n   const x = 1;")
}

func TestManifestValidate(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := writeFile(t, dir, "good.yaml", "version: 1\nmodules:\n  lib: abc\n")
	bad := writeFile(t, dir, "bad.yaml", "version: 3\nmodules: {}\n")

	res := runCLI(t, "", "manifest", "validate", "--no-color", good)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "manifest is valid")

	res = runCLI(t, "", "manifest", "validate", "--no-color", bad)
	require.ErrorIs(t, res.err, ErrManifestInvalid)
	assert.Contains(t, res.stdout, "  - version")
}

func TestManifestSchema(t *testing.T) {
	t.Parallel()

	res := runCLI(t, "", "manifest", "schema")
	require.NoError(t, res.err)
	assert.JSONEq(t, string(modhash.Schema()), res.stdout)
}

func TestManifestGenerate(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := writeFile(t, dir, "a.ts", appModule)
	b := writeFile(t, dir, "b.js", `export * from "./shared";`)

	res := runCLI(t, "", "-q", "manifest", "generate", "--length", "10", a, b)
	require.NoError(t, res.err)

	m, err := modhash.ParseManifest([]byte(res.stdout))
	require.NoError(t, err)

	hash, err := modhash.SHA256(10)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"lib": hash("lib"), "./shared": hash("./shared")}, m.Modules)
}

func TestCompletion(t *testing.T) {
	t.Parallel()

	res := runCLI(t, "", "completion", "bash")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "modwrap")

	res = runCLI(t, "", "completion", "tcsh")
	require.ErrorIs(t, res.err, ErrUnsupportedShell)
}

func TestOutputPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, filepath.Join("src", "app.js"), outputPath(filepath.Join("src", "app.ts")))
	assert.Equal(t, "app.js", outputPath("/abs/dir/app.tsx"))
	assert.Equal(t, "up.js", outputPath(filepath.Join("..", "up.mjs")))
}
