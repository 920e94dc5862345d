package rewrite

import (
	"github.com/Sumatoshi-tech/modwrap/pkg/esm"
	"github.com/Sumatoshi-tech/modwrap/pkg/jsast"
)

// Live-strategy module accessor: r.n(ns) returns a getter object whose "a"
// property is the default export of ns.
const (
	accessorFunc = "n"
	accessorProp = "a"
)

// bindSpecifier produces the variable declaration for one import specifier
// bound from namespace ns.
func (c *Context) bindSpecifier(ns string, spec esm.Specifier) jsast.Stmt {
	switch spec.Kind {
	case esm.SpecifierDefault:
		return jsast.Var(spec.Local, c.defaultOf(ns))
	case esm.SpecifierNamespace:
		return jsast.Var(spec.Local, jsast.Id(ns))
	case esm.SpecifierNamed:
		return jsast.Var(spec.Local, jsast.Dot(jsast.Id(ns), importedName(spec)))
	default:
		panic("rewrite: unknown specifier kind " + spec.Kind.String())
	}
}

func (c *Context) defaultOf(ns string) jsast.Expr {
	if c.cfg.Strategy == StrategyLive {
		return jsast.Dot(jsast.CallOf(jsast.Path(RequireParam, accessorFunc), jsast.Id(ns)), accessorProp)
	}

	return jsast.Dot(jsast.Id(ns), "default")
}

func importedName(spec esm.Specifier) string {
	if spec.Imported != "" {
		return spec.Imported
	}

	return spec.Local
}

// visitImport rewrites an import declaration in place into zero or more
// bindings, allocating its namespace in the import cache.
func (c *Context) visitImport(imp *esm.Import) []jsast.Stmt {
	if c.exclude.has(imp.Source) {
		c.noteExcluded(imp.Source)

		return nil
	}

	if imp.TypeOnly {
		c.note(imp.Pos(), SeverityInfo, "type-only import of "+imp.Source+" dropped")

		return nil
	}

	if imp.Require {
		c.note(imp.Pos(), SeverityInfo, "import = require of "+imp.Source+" bound as a namespace import")
	}

	specs := make([]esm.Specifier, 0, len(imp.Specifiers))

	for _, spec := range imp.Specifiers {
		if !spec.TypeOnly {
			specs = append(specs, spec)
		}
	}

	// Every specifier was a type: the declaration has no runtime effect.
	if len(imp.Specifiers) > 0 && len(specs) == 0 {
		return nil
	}

	rec := c.resolve(imp.Source)
	out := make([]jsast.Stmt, 0, len(specs))

	for _, spec := range specs {
		out = append(out, c.bindSpecifier(rec.Namespace, spec))
	}

	return out
}
