package esm

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"

	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/Sumatoshi-tech/modwrap/pkg/safeconv"
)

// Tree-sitter node kinds used by the converter.
const (
	kindImport          = "import_statement"
	kindExport          = "export_statement"
	kindComment         = "comment"
	kindHashBang        = "hash_bang_line"
	kindImportClause    = "import_clause"
	kindImportRequire   = "import_require_clause"
	kindNamespaceImport = "namespace_import"
	kindNamedImports    = "named_imports"
	kindImportSpecifier = "import_specifier"
	kindExportClause    = "export_clause"
	kindExportSpecifier = "export_specifier"
	kindNamespaceExport = "namespace_export"
	kindIdentifier      = "identifier"
	kindString          = "string"
	kindDeclarator      = "variable_declarator"
)

// typeDeclarations have no runtime value.
var typeDeclarations = map[string]bool{
	"interface_declaration":  true,
	"type_alias_declaration": true,
	"ambient_declaration":    true,
	"function_signature":     true,
	"module":                 true,
	"internal_module":        true,
}

var valueDeclarations = map[string]DeclKind{
	"lexical_declaration":            DeclVariable,
	"variable_declaration":           DeclVariable,
	"function_declaration":           DeclFunction,
	"generator_function_declaration": DeclFunction,
	"class_declaration":              DeclClass,
	"abstract_class_declaration":     DeclClass,
	"enum_declaration":               DeclEnum,
}

type converter struct {
	src []byte
}

func (conv converter) text(n sitter.Node) string {
	window, ok := safeconv.Slice(conv.src, n.StartByte(), n.EndByte())
	if !ok {
		return ""
	}

	return string(window)
}

func (conv converter) span(n sitter.Node) Span {
	start := n.StartPoint()

	return Span{
		Start:  safeconv.MustUintToInt(n.StartByte()),
		End:    safeconv.MustUintToInt(n.EndByte()),
		Line:   int(start.Row) + 1,
		Column: int(start.Column) + 1,
	}
}

// statement converts one top-level node. It returns nil for the hash-bang
// line, which the parser records on the module instead.
func (conv converter) statement(n sitter.Node) Statement {
	switch n.Type() {
	case kindImport:
		return conv.importStatement(n)
	case kindExport:
		return conv.exportStatement(n)
	case kindHashBang:
		return nil
	case kindComment:
		return &Other{Span: conv.span(n), Text: conv.text(n), Comment: true}
	default:
		return &Other{Span: conv.span(n), Text: conv.text(n)}
	}
}

func (conv converter) importStatement(n sitter.Node) Statement {
	imp := &Import{
		Span:     conv.span(n),
		TypeOnly: hasToken(n, "type") || hasToken(n, "typeof"),
	}

	if source := n.ChildByFieldName("source"); !source.IsNull() {
		imp.Source = conv.stringValue(source)
	}

	for idx := range n.NamedChildCount() {
		child := n.NamedChild(idx)

		switch child.Type() {
		case kindImportClause:
			imp.Specifiers = conv.importClause(child)
		case kindImportRequire:
			// import x = require("m") binds the whole module.
			imp.Source = conv.stringValue(child.ChildByFieldName("source"))
			imp.Require = true

			if id := firstNamed(child, kindIdentifier); !id.IsNull() {
				imp.Specifiers = []Specifier{{Kind: SpecifierNamespace, Local: conv.text(id)}}
			}
		}
	}

	return imp
}

func (conv converter) importClause(n sitter.Node) []Specifier {
	var specs []Specifier

	for idx := range n.NamedChildCount() {
		child := n.NamedChild(idx)

		switch child.Type() {
		case kindIdentifier:
			specs = append(specs, Specifier{Kind: SpecifierDefault, Local: conv.text(child)})
		case kindNamespaceImport:
			if id := firstNamed(child, kindIdentifier); !id.IsNull() {
				specs = append(specs, Specifier{Kind: SpecifierNamespace, Local: conv.text(id)})
			}
		case kindNamedImports:
			for j := range child.NamedChildCount() {
				spec := child.NamedChild(j)
				if spec.Type() != kindImportSpecifier {
					continue
				}

				specs = append(specs, conv.importSpecifier(spec))
			}
		}
	}

	return specs
}

func (conv converter) importSpecifier(n sitter.Node) Specifier {
	imported := conv.moduleExportName(n.ChildByFieldName("name"))
	local := imported

	if alias := n.ChildByFieldName("alias"); !alias.IsNull() {
		local = conv.text(alias)
	}

	spec := Specifier{
		Kind:     SpecifierNamed,
		Imported: imported,
		Local:    local,
		TypeOnly: hasToken(n, "type") || hasToken(n, "typeof"),
	}

	if imported == "default" {
		spec.Kind = SpecifierDefault
		spec.Imported = ""
	}

	return spec
}

func (conv converter) exportStatement(n sitter.Node) Statement {
	span := conv.span(n)
	source := ""

	if src := n.ChildByFieldName("source"); !src.IsNull() {
		source = conv.stringValue(src)
	}

	if decl := n.ChildByFieldName("declaration"); !decl.IsNull() {
		d := conv.declaration(decl)
		if hasToken(n, "default") && d.Kind != DeclType {
			return &ExportDefault{Span: span, Decl: &d}
		}

		return &ExportDecl{Span: span, Decl: d}
	}

	if value := n.ChildByFieldName("value"); !value.IsNull() {
		if hasToken(n, "default") {
			return &ExportDefault{Span: span, Expr: conv.text(value)}
		}

		// export = value.
		return &ExportAssign{Span: span, Expr: conv.text(value)}
	}

	for idx := range n.NamedChildCount() {
		child := n.NamedChild(idx)

		switch child.Type() {
		case kindExportClause:
			return &ExportList{
				Span:       span,
				Specifiers: conv.exportClause(child),
				Source:     source,
				TypeOnly:   hasToken(n, "type"),
			}
		case kindNamespaceExport:
			return &ExportAll{Span: span, Source: source, Alias: conv.namespaceAlias(child)}
		case kindIdentifier:
			// export as namespace X is a type-level declaration.
			if hasToken(n, "namespace") {
				return &ExportDecl{Span: span, Decl: Declaration{Kind: DeclType, Text: conv.text(n)}}
			}
		}
	}

	if hasToken(n, "*") {
		return &ExportAll{Span: span, Source: source}
	}

	if equals := findToken(n, "="); !equals.IsNull() {
		if expr := nextNamedSibling(n, equals); !expr.IsNull() {
			return &ExportAssign{Span: span, Expr: conv.text(expr)}
		}
	}

	return &Other{Span: span, Text: conv.text(n)}
}

func (conv converter) exportClause(n sitter.Node) []ExportSpecifier {
	var specs []ExportSpecifier

	for idx := range n.NamedChildCount() {
		child := n.NamedChild(idx)
		if child.Type() != kindExportSpecifier || hasToken(child, "type") {
			continue
		}

		local := conv.moduleExportName(child.ChildByFieldName("name"))
		exported := local

		if alias := child.ChildByFieldName("alias"); !alias.IsNull() {
			exported = conv.moduleExportName(alias)
		}

		specs = append(specs, ExportSpecifier{Local: local, Exported: exported})
	}

	return specs
}

func (conv converter) namespaceAlias(n sitter.Node) string {
	for idx := range n.NamedChildCount() {
		child := n.NamedChild(idx)
		if child.Type() == kindIdentifier || child.Type() == kindString {
			return conv.moduleExportName(child)
		}
	}

	return ""
}

func (conv converter) declaration(n sitter.Node) Declaration {
	kind := n.Type()

	if typeDeclarations[kind] {
		return Declaration{Kind: DeclType, Text: conv.text(n)}
	}

	declKind, ok := valueDeclarations[kind]
	if !ok {
		return Declaration{Kind: DeclType, Text: conv.text(n)}
	}

	decl := Declaration{Kind: declKind, Text: conv.text(n)}

	if declKind != DeclVariable {
		if name := n.ChildByFieldName("name"); !name.IsNull() {
			decl.Names = []string{conv.text(name)}
		}

		return decl
	}

	decl.Keyword = conv.text(n.Child(0))

	for idx := range n.NamedChildCount() {
		child := n.NamedChild(idx)
		if child.Type() != kindDeclarator {
			continue
		}

		decl.Names = append(decl.Names, conv.bindingNames(child.ChildByFieldName("name"))...)

		if value := child.ChildByFieldName("value"); !value.IsNull() && decl.Init == "" && len(decl.Names) > 0 {
			decl.Init = conv.text(value)
		}
	}

	return decl
}

// bindingNames collects the identifiers bound by a declarator target, which
// may be a destructuring pattern.
func (conv converter) bindingNames(n sitter.Node) []string {
	if n.IsNull() {
		return nil
	}

	switch n.Type() {
	case kindIdentifier, "shorthand_property_identifier_pattern":
		return []string{conv.text(n)}
	case "assignment_pattern", "object_assignment_pattern":
		return conv.bindingNames(n.ChildByFieldName("left"))
	case "pair_pattern":
		return conv.bindingNames(n.ChildByFieldName("value"))
	}

	var names []string

	for idx := range n.NamedChildCount() {
		names = append(names, conv.bindingNames(n.NamedChild(idx))...)
	}

	return names
}

func (conv converter) moduleExportName(n sitter.Node) string {
	if n.IsNull() {
		return ""
	}

	if n.Type() == kindString {
		return conv.stringValue(n)
	}

	return conv.text(n)
}

// stringValue decodes a string literal node.
func (conv converter) stringValue(n sitter.Node) string {
	if n.IsNull() {
		return ""
	}

	return Unquote(conv.text(n))
}

// Unquote decodes a single- or double-quoted JavaScript string literal.
// Text that is not a quoted literal is returned unchanged.
func Unquote(lit string) string {
	if len(lit) < 2 {
		return lit
	}

	quote := lit[0]
	if (quote != '"' && quote != '\'') || lit[len(lit)-1] != quote {
		return lit
	}

	body := lit[1 : len(lit)-1]
	if !strings.Contains(body, `\`) {
		return body
	}

	var sb strings.Builder

	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 == len(body) {
			sb.WriteByte(c)

			continue
		}

		i++

		switch esc := body[i]; esc {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case 'v':
			sb.WriteByte('\v')
		case '0':
			sb.WriteByte(0)
		case 'x':
			i += writeHexEscape(&sb, body[i+1:], 2)
		case 'u':
			if r, n := unicodeEscape(body[i+1:]); n > 0 {
				sb.WriteRune(r)

				i += n
			}
		case '\n':
			// Line continuation.
		default:
			sb.WriteByte(esc)
		}
	}

	return sb.String()
}

func writeHexEscape(sb *strings.Builder, rest string, digits int) int {
	if len(rest) < digits {
		return 0
	}

	code, err := strconv.ParseUint(rest[:digits], 16, 32)
	if err != nil {
		return 0
	}

	sb.WriteRune(rune(code))

	return digits
}

// unicodeEscape decodes what follows the "u" of a \u escape: four hex digits
// or a braced code point. An escaped surrogate pair decodes as one rune. It
// returns the number of bytes consumed, zero for a malformed escape.
func unicodeEscape(rest string) (rune, int) {
	if strings.HasPrefix(rest, "{") {
		end := strings.IndexByte(rest, '}')
		if end < 2 {
			return 0, 0
		}

		code, err := strconv.ParseUint(rest[1:end], 16, 32)
		if err != nil || code > unicode.MaxRune {
			return 0, 0
		}

		return rune(code), end + 1
	}

	r, ok := hexUnit(rest)
	if !ok {
		return 0, 0
	}

	const pairLen = 10 // XXXX\uXXXX

	if utf16.IsSurrogate(r) && len(rest) >= pairLen && rest[4:6] == `\u` {
		if low, ok := hexUnit(rest[6:]); ok {
			if pair := utf16.DecodeRune(r, low); pair != unicode.ReplacementChar {
				return pair, pairLen
			}
		}
	}

	return r, 4
}

func hexUnit(s string) (rune, bool) {
	if len(s) < 4 {
		return 0, false
	}

	code, err := strconv.ParseUint(s[:4], 16, 16)
	if err != nil {
		return 0, false
	}

	return rune(code), true
}

func hasToken(n sitter.Node, token string) bool {
	return !findToken(n, token).IsNull()
}

// findToken returns the first direct child whose kind is token.
func findToken(n sitter.Node, token string) sitter.Node {
	for idx := range n.ChildCount() {
		child := n.Child(idx)
		if child.Type() == token {
			return child
		}
	}

	return sitter.Node{}
}

func firstNamed(n sitter.Node, kind string) sitter.Node {
	for idx := range n.NamedChildCount() {
		child := n.NamedChild(idx)
		if child.Type() == kind {
			return child
		}
	}

	return sitter.Node{}
}

func nextNamedSibling(parent, after sitter.Node) sitter.Node {
	for idx := range parent.NamedChildCount() {
		child := parent.NamedChild(idx)
		if child.StartByte() >= after.EndByte() {
			return child
		}
	}

	return sitter.Node{}
}
