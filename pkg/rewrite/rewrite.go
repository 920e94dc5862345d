// Package rewrite turns a parsed ES module into a factory function for a
// hash-addressed loader: (function (m, e, r) { ... }).
//
// Imports become bindings on per-dependency namespaces that are resolved
// through a guarded require helper; exports become writes into the exports
// object, either as static values or as live getters.
package rewrite

import (
	"fmt"
	"strings"

	"github.com/Sumatoshi-tech/modwrap/pkg/esm"
	"github.com/Sumatoshi-tech/modwrap/pkg/jsast"
)

// Severity grades a diagnostic.
type Severity string

// Diagnostic severities.
const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Diagnostic is a compile-time note about input the rewriter handled on a
// best-effort basis. Diagnostics never stop a compilation.
type Diagnostic struct {
	Severity Severity `json:"severity" yaml:"severity"`
	Line     int      `json:"line" yaml:"line"`
	Column   int      `json:"column" yaml:"column"`
	Message  string   `json:"message" yaml:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%d:%d: %s: %s", d.Line, d.Column, d.Severity, d.Message)
}

// Result is the outcome of one compilation.
type Result struct {
	Program     *jsast.Program
	Imports     []ImportRecord
	Exports     []string
	Excluded    []string
	Diagnostics []Diagnostic
}

// Code prints the emitted factory.
func (r *Result) Code() string {
	return jsast.Print(r.Program)
}

// Context holds the state of one compilation. It is created per module and
// must not be shared between compilations.
type Context struct {
	cfg          Config
	exclude      excludeSet
	cache        ImportCache
	exports      []string
	excluded     []string
	diagnostics  []Diagnostic
	reexports    []jsast.Stmt
	deferred     []jsast.Stmt
	usesReexport bool
	hasDefault   bool
}

// NewContext creates a compilation context for cfg.
func NewContext(cfg Config) *Context {
	cfg = cfg.withDefaults()

	return &Context{cfg: cfg, exclude: newExcludeSet(cfg.Exclude)}
}

// Enter resets all per-compilation state.
func (c *Context) Enter() {
	c.cache.Reset()
	c.exports = nil
	c.excluded = nil
	c.diagnostics = nil
	c.reexports = nil
	c.deferred = nil
	c.usesReexport = false
	c.hasDefault = false
}

// Visit rewrites one top-level statement into its replacement statements.
func (c *Context) Visit(stmt esm.Statement) []jsast.Stmt {
	switch st := stmt.(type) {
	case *esm.Import:
		return c.visitImport(st)
	case *esm.ExportDecl:
		return c.visitExportDecl(st)
	case *esm.ExportDefault:
		return c.visitExportDefault(st)
	case *esm.ExportList:
		return c.visitExportList(st)
	case *esm.ExportAll:
		return c.visitExportAll(st)
	case *esm.ExportAssign:
		return c.visitExportAssign(st)
	case *esm.Other:
		return c.visitOther(st)
	default:
		panic(fmt.Sprintf("rewrite: unknown statement %T", stmt))
	}
}

// Exit assembles the factory around the rewritten body.
func (c *Context) Exit(body []jsast.Stmt) *jsast.Program {
	stmts := make([]jsast.Stmt, 0, len(body)+len(c.deferred)+len(c.reexports)+c.cache.Len()+4)
	stmts = append(stmts, c.markerStmt())

	if c.cfg.Strategy == StrategyStatic {
		stmts = append(stmts, jsast.Source(interopSource))
	}

	stmts = append(stmts, c.safeRequireDecl())

	if c.usesReexport {
		stmts = append(stmts, c.reexportDecl())
	}

	for _, rec := range c.cache.Records() {
		stmts = append(stmts, importDecl(rec))
	}

	stmts = append(stmts, separate(body)...)
	stmts = append(stmts, c.deferred...)
	stmts = append(stmts, c.reexports...)

	factory := jsast.Fn([]string{ModuleParam, ExportsParam, RequireParam}, stmts...)

	return &jsast.Program{Body: []jsast.Stmt{jsast.Do(jsast.Group(factory))}}
}

// Result returns the program and the bookkeeping of the compilation.
func (c *Context) Result(prog *jsast.Program) *Result {
	return &Result{
		Program:     prog,
		Imports:     c.cache.Records(),
		Exports:     append([]string(nil), c.exports...),
		Excluded:    append([]string(nil), c.excluded...),
		Diagnostics: append([]Diagnostic(nil), c.diagnostics...),
	}
}

// Compile rewrites mod in a single forward pass.
func Compile(mod *esm.Module, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ctx := NewContext(cfg)
	ctx.Enter()

	if mod.HashBang != "" {
		ctx.note(esm.Span{Line: 1, Column: 1}, SeverityInfo, "hash-bang line dropped")
	}

	body := make([]jsast.Stmt, 0, len(mod.Body))
	for _, stmt := range mod.Body {
		body = append(body, ctx.Visit(stmt)...)
	}

	return ctx.Result(ctx.Exit(body)), nil
}

func (c *Context) visitOther(st *esm.Other) []jsast.Stmt {
	if st.Comment {
		return []jsast.Stmt{jsast.Source(st.Text)}
	}

	head := strings.TrimSpace(st.Text)
	if strings.HasPrefix(head, "export") || strings.HasPrefix(head, "import ") {
		c.warn(st.Pos(), "unsupported module syntax kept verbatim")
	}

	return []jsast.Stmt{jsast.Source(terminate(st.Text))}
}

// separate prefixes a semicolon to raw statements that would otherwise
// continue a preceding raw statement ending in a closing brace. Removing an
// excluded import can leave "const o = {}" directly before "[1, 2].map(f)".
func separate(body []jsast.Stmt) []jsast.Stmt {
	var prev string

	for i, st := range body {
		raw, ok := st.(*jsast.RawStmt)
		if !ok {
			prev = ""

			continue
		}

		text := strings.TrimSpace(raw.Text)
		if text == "" || strings.HasPrefix(text, "//") || strings.HasPrefix(text, "/*") {
			continue
		}

		if strings.HasSuffix(prev, "}") && strings.ContainsRune("([`+-/", rune(text[0])) {
			body[i] = jsast.Source(";" + raw.Text)
		}

		prev = text
	}

	return body
}

func (c *Context) resolve(path string) ImportRecord {
	return c.cache.Resolve(path, c.cfg.ModuleHash(path))
}

func (c *Context) noteExcluded(path string) {
	for _, p := range c.excluded {
		if p == path {
			return
		}
	}

	c.excluded = append(c.excluded, path)
}

func (c *Context) warn(span esm.Span, msg string) {
	c.note(span, SeverityWarning, msg)
}

func (c *Context) note(span esm.Span, sev Severity, msg string) {
	c.diagnostics = append(c.diagnostics, Diagnostic{
		Severity: sev,
		Line:     span.Line,
		Column:   span.Column,
		Message:  msg,
	})
}
