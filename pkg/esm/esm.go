// Package esm parses the top level of an ECMAScript (or TypeScript) module
// into a closed set of statement kinds: imports, the export forms and
// everything else as opaque source.
package esm

import "fmt"

// Dialect selects the grammar used to parse a module.
type Dialect string

// Supported dialects.
const (
	DialectJavaScript Dialect = "javascript"
	DialectTypeScript Dialect = "typescript"
	DialectTSX        Dialect = "tsx"
)

// Span locates a statement in the source. Line and Column are 1-based.
type Span struct {
	Start  int
	End    int
	Line   int
	Column int
}

// Pos returns the span itself so that embedding types satisfy Statement.
func (s Span) Pos() Span { return s }

// String formats the span as line:column.
func (s Span) String() string { return fmt.Sprintf("%d:%d", s.Line, s.Column) }

// Statement is one top-level statement. The implementations are Import,
// ExportDecl, ExportDefault, ExportList, ExportAll, ExportAssign and Other.
type Statement interface {
	Pos() Span
	statement()
}

// SpecifierKind tags an import specifier.
type SpecifierKind int

// Specifier kinds.
const (
	SpecifierDefault SpecifierKind = iota
	SpecifierNamespace
	SpecifierNamed
)

func (k SpecifierKind) String() string {
	switch k {
	case SpecifierDefault:
		return "default"
	case SpecifierNamespace:
		return "namespace"
	case SpecifierNamed:
		return "named"
	default:
		return fmt.Sprintf("SpecifierKind(%d)", int(k))
	}
}

// Specifier is one binding of an import declaration. Imported is empty for
// default and namespace specifiers.
type Specifier struct {
	Kind     SpecifierKind
	Imported string
	Local    string
	TypeOnly bool
}

// Import is an import declaration. A declaration without specifiers is a
// side-effect import.
type Import struct {
	Span
	Source     string
	Specifiers []Specifier
	TypeOnly   bool
	// Require marks the TypeScript form import x = require("m"). Its single
	// specifier is a namespace binding.
	Require bool
}

// DeclKind classifies an exported declaration.
type DeclKind int

// Declaration kinds. DeclType covers declarations that only exist in the
// type system and have no runtime value.
const (
	DeclVariable DeclKind = iota
	DeclFunction
	DeclClass
	DeclEnum
	DeclType
)

func (k DeclKind) String() string {
	switch k {
	case DeclVariable:
		return "variable"
	case DeclFunction:
		return "function"
	case DeclClass:
		return "class"
	case DeclEnum:
		return "enum"
	case DeclType:
		return "type"
	default:
		return fmt.Sprintf("DeclKind(%d)", int(k))
	}
}

// Declaration is the declaration part of an export statement.
type Declaration struct {
	Kind DeclKind
	// Keyword is const, let or var for variable declarations.
	Keyword string
	// Names lists the bound names in declaration order.
	Names []string
	// Init is the first declarator's initializer, if any.
	Init string
	// Text is the declaration source.
	Text string
}

// ExportDecl is export <declaration>.
type ExportDecl struct {
	Span
	Decl Declaration
}

// ExportDefault is export default. Exactly one of Expr and Decl is set; Decl
// is used for named function and class declarations.
type ExportDefault struct {
	Span
	Expr string
	Decl *Declaration
}

// ExportSpecifier is one entry of an export clause.
type ExportSpecifier struct {
	Local    string
	Exported string
}

// ExportList is export { a, b as c } with an optional from clause.
type ExportList struct {
	Span
	Specifiers []ExportSpecifier
	Source     string
	TypeOnly   bool
}

// ExportAll is export * from "m" or, with Alias set, export * as ns from "m".
type ExportAll struct {
	Span
	Source string
	Alias  string
}

// ExportAssign is the TypeScript export = expr form.
type ExportAssign struct {
	Span
	Expr string
}

// Other is any statement the rewriter passes through unchanged.
type Other struct {
	Span
	Text    string
	Comment bool
}

func (*Import) statement()        {}
func (*ExportDecl) statement()    {}
func (*ExportDefault) statement() {}
func (*ExportList) statement()    {}
func (*ExportAll) statement()     {}
func (*ExportAssign) statement()  {}
func (*Other) statement()         {}

// Module is one parsed compilation unit.
type Module struct {
	Path    string
	Dialect Dialect
	Body    []Statement
	// HashBang is the leading #! line. It is not part of Body because it
	// cannot appear inside a function.
	HashBang string
}
