package rewrite

import (
	"strings"

	"github.com/Sumatoshi-tech/modwrap/pkg/esm"
	"github.com/Sumatoshi-tech/modwrap/pkg/jsast"
)

// ExportKind tags an export binding.
type ExportKind int

// Export binding kinds.
const (
	ExportNamed ExportKind = iota
	ExportDefault
)

const (
	defaultKey   = "default"
	defineFunc   = "d"
	defaultLocal = "_default"
)

// ExportBinding is one write into the exports object.
type ExportBinding struct {
	Kind  ExportKind
	Name  string
	Value jsast.Expr
}

// Key returns the exports property the binding writes.
func (b ExportBinding) Key() string {
	if b.Kind == ExportDefault {
		return defaultKey
	}

	return b.Name
}

// bindExport emits the write for b under the configured strategy.
func (c *Context) bindExport(b ExportBinding) jsast.Stmt {
	c.exports = append(c.exports, b.Key())

	if c.cfg.Strategy == StrategyLive {
		return jsast.Do(jsast.CallOf(
			jsast.Path(RequireParam, defineFunc),
			jsast.Id(ExportsParam),
			jsast.Str(b.Key()),
			jsast.Thunk(b.Value),
		))
	}

	return jsast.Do(jsast.Set(jsast.Dot(jsast.Id(ExportsParam), b.Key()), b.Value))
}

func (c *Context) visitExportDecl(exp *esm.ExportDecl) []jsast.Stmt {
	if exp.Decl.Kind == esm.DeclType {
		return nil
	}

	out := []jsast.Stmt{jsast.Source(terminate(exp.Decl.Text))}

	if len(exp.Decl.Names) == 0 {
		c.warn(exp.Pos(), "exported declaration binds no names")
	}

	for _, name := range exp.Decl.Names {
		out = append(out, c.bindExport(ExportBinding{Kind: ExportNamed, Name: name, Value: jsast.Id(name)}))
	}

	return out
}

func (c *Context) visitExportDefault(exp *esm.ExportDefault) []jsast.Stmt {
	if c.hasDefault {
		c.warn(exp.Pos(), "duplicate default export")
	}

	c.hasDefault = true

	if exp.Decl != nil && len(exp.Decl.Names) > 0 {
		name := exp.Decl.Names[0]

		return []jsast.Stmt{
			jsast.Source(exp.Decl.Text),
			c.bindExport(ExportBinding{Kind: ExportDefault, Value: jsast.Id(name)}),
		}
	}

	expr := exp.Expr
	if exp.Decl != nil {
		expr = exp.Decl.Text
	}

	if c.cfg.Strategy == StrategyLive {
		return []jsast.Stmt{
			jsast.Var(defaultLocal, jsast.Verbatim(expr)),
			c.bindExport(ExportBinding{Kind: ExportDefault, Value: jsast.Id(defaultLocal)}),
		}
	}

	return []jsast.Stmt{c.bindExport(ExportBinding{Kind: ExportDefault, Value: jsast.Verbatim(expr)})}
}

func (c *Context) visitExportList(exp *esm.ExportList) []jsast.Stmt {
	if exp.TypeOnly {
		return nil
	}

	var ns string

	if exp.Source != "" {
		if c.exclude.has(exp.Source) {
			c.noteExcluded(exp.Source)

			return nil
		}

		ns = c.resolve(exp.Source).Namespace
	}

	out := make([]jsast.Stmt, 0, len(exp.Specifiers))

	for _, spec := range exp.Specifiers {
		var value jsast.Expr = jsast.Id(spec.Local)
		if ns != "" {
			value = jsast.Dot(jsast.Id(ns), spec.Local)
		}

		b := ExportBinding{Kind: ExportNamed, Name: spec.Exported, Value: value}
		if spec.Exported == defaultKey {
			b = ExportBinding{Kind: ExportDefault, Value: value}
		}

		stmt := c.bindExport(b)

		// Static writes copy the value, so local bindings are read after the
		// body has initialized them.
		if ns == "" && c.cfg.Strategy == StrategyStatic {
			c.deferred = append(c.deferred, stmt)

			continue
		}

		out = append(out, stmt)
	}

	return out
}

func (c *Context) visitExportAll(exp *esm.ExportAll) []jsast.Stmt {
	if c.exclude.has(exp.Source) {
		c.noteExcluded(exp.Source)

		return nil
	}

	ns := c.resolve(exp.Source).Namespace

	if exp.Alias != "" {
		return []jsast.Stmt{c.bindExport(ExportBinding{Kind: ExportNamed, Name: exp.Alias, Value: jsast.Id(ns)})}
	}

	c.usesReexport = true
	// Star re-exports run after the body so that local exports of the same
	// name take precedence.
	c.reexports = append(c.reexports, jsast.Do(jsast.CallOf(jsast.Id(reexportHelper), jsast.Id(ExportsParam), jsast.Id(ns))))

	return nil
}

func (c *Context) visitExportAssign(exp *esm.ExportAssign) []jsast.Stmt {
	return []jsast.Stmt{jsast.Do(jsast.Set(jsast.Path(ModuleParam, "exports"), jsast.Verbatim(exp.Expr)))}
}

// terminate appends a semicolon to statement text that relies on automatic
// semicolon insertion, so that concatenated statements keep their meaning.
func terminate(text string) string {
	trimmed := strings.TrimRight(text, " \t\r\n")
	if trimmed == "" || strings.HasSuffix(trimmed, ";") || strings.HasSuffix(trimmed, "}") {
		return trimmed
	}

	return trimmed + ";"
}
