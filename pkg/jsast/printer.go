package jsast

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Operator precedence levels used for parenthesization.
const (
	levelLowest  = 0
	levelAssign  = 2
	levelLogical = 4
	levelEquals  = 9
	levelAdd     = 12
	levelMul     = 13
	levelCall    = 18
	levelPrimary = 20
)

const defaultIndent = "  "

var binaryLevels = map[string]int{
	"||":  levelLogical,
	"&&":  levelLogical + 1,
	"==":  levelEquals,
	"!=":  levelEquals,
	"===": levelEquals,
	"!==": levelEquals,
	"+":   levelAdd,
	"-":   levelAdd,
	"*":   levelMul,
	"/":   levelMul,
}

// Options controls printing.
type Options struct {
	// Indent is the per-level indentation. Empty means two spaces.
	Indent string
}

// Print renders a program as JavaScript source.
func Print(prog *Program) string {
	return PrintWith(prog, Options{})
}

// PrintWith renders a program with the given options.
func PrintWith(prog *Program, opts Options) string {
	pr := newPrinter(opts)
	for _, s := range prog.Body {
		pr.stmt(s)
	}

	return pr.sb.String()
}

// PrintExpr renders a single expression.
func PrintExpr(x Expr) string {
	pr := newPrinter(Options{})
	pr.expr(x, levelLowest)

	return pr.sb.String()
}

type printer struct {
	sb     strings.Builder
	indent string
	depth  int
}

func newPrinter(opts Options) *printer {
	indent := opts.Indent
	if indent == "" {
		indent = defaultIndent
	}

	return &printer{indent: indent}
}

func (pr *printer) writeIndent() {
	for range pr.depth {
		pr.sb.WriteString(pr.indent)
	}
}

func (pr *printer) stmt(s Stmt) {
	pr.writeIndent()

	switch st := s.(type) {
	case *ExprStmt:
		if startsAmbiguous(st.X) {
			pr.sb.WriteByte('(')
			pr.expr(st.X, levelLowest)
			pr.sb.WriteByte(')')
		} else {
			pr.expr(st.X, levelLowest)
		}

		pr.sb.WriteString(";\n")
	case *VarDecl:
		pr.sb.WriteString(st.Kind)
		pr.sb.WriteByte(' ')
		pr.sb.WriteString(st.Name)

		if st.Init != nil {
			pr.sb.WriteString(" = ")
			pr.expr(st.Init, levelAssign)
		}

		pr.sb.WriteString(";\n")
	case *FuncDecl:
		pr.function(st.Func)
		pr.sb.WriteByte('\n')
	case *Return:
		pr.sb.WriteString("return")

		if st.Value != nil {
			pr.sb.WriteByte(' ')
			pr.expr(st.Value, levelLowest)
		}

		pr.sb.WriteString(";\n")
	case *Try:
		pr.sb.WriteString("try ")
		pr.block(st.Body)
		pr.sb.WriteString(" catch (")
		pr.sb.WriteString(st.Param)
		pr.sb.WriteString(") ")
		pr.block(st.Catch)
		pr.sb.WriteByte('\n')
	case *RawStmt:
		pr.sb.WriteString(st.Text)
		pr.sb.WriteByte('\n')
	}
}

func (pr *printer) block(body []Stmt) {
	if len(body) == 0 {
		pr.sb.WriteString("{}")

		return
	}

	pr.sb.WriteString("{\n")
	pr.depth++

	for _, s := range body {
		pr.stmt(s)
	}

	pr.depth--
	pr.writeIndent()
	pr.sb.WriteByte('}')
}

func (pr *printer) function(fn *Func) {
	pr.sb.WriteString("function ")

	if fn.Name != "" {
		pr.sb.WriteString(fn.Name)
	}

	pr.sb.WriteByte('(')
	pr.sb.WriteString(strings.Join(fn.Params, ", "))
	pr.sb.WriteString(") ")
	pr.block(fn.Body)
}

func (pr *printer) expr(x Expr, level int) {
	own := precedence(x)
	wrap := own < level

	if wrap {
		pr.sb.WriteByte('(')
	}

	switch ex := x.(type) {
	case *Ident:
		pr.sb.WriteString(ex.Name)
	case *String:
		pr.sb.WriteString(Quote(ex.Value))
	case *Bool:
		if ex.Value {
			pr.sb.WriteString("true")
		} else {
			pr.sb.WriteString("false")
		}
	case *Member:
		pr.expr(ex.Object, levelCall)

		if IsIdentifierName(ex.Property) {
			pr.sb.WriteByte('.')
			pr.sb.WriteString(ex.Property)
		} else {
			pr.sb.WriteByte('[')
			pr.sb.WriteString(Quote(ex.Property))
			pr.sb.WriteByte(']')
		}
	case *Call:
		pr.expr(ex.Callee, levelCall)
		pr.sb.WriteByte('(')

		for i, arg := range ex.Args {
			if i > 0 {
				pr.sb.WriteString(", ")
			}

			pr.expr(arg, levelAssign)
		}

		pr.sb.WriteByte(')')
	case *Func:
		pr.function(ex)
	case *Binary:
		opLevel := binaryLevels[ex.Op]
		pr.expr(ex.Left, opLevel)
		pr.sb.WriteByte(' ')
		pr.sb.WriteString(ex.Op)
		pr.sb.WriteByte(' ')
		pr.expr(ex.Right, opLevel+1)
	case *Assign:
		pr.expr(ex.Target, levelCall)
		pr.sb.WriteString(" = ")
		pr.expr(ex.Value, levelAssign)
	case *Object:
		pr.object(ex)
	case *Paren:
		pr.sb.WriteByte('(')
		pr.expr(ex.X, levelLowest)
		pr.sb.WriteByte(')')
	case *Raw:
		pr.sb.WriteString(ex.Text)
	}

	if wrap {
		pr.sb.WriteByte(')')
	}
}

func (pr *printer) object(obj *Object) {
	if len(obj.Props) == 0 {
		pr.sb.WriteString("{}")

		return
	}

	pr.sb.WriteString("{ ")

	for i, p := range obj.Props {
		if i > 0 {
			pr.sb.WriteString(", ")
		}

		if IsIdentifierName(p.Key) {
			pr.sb.WriteString(p.Key)
		} else {
			pr.sb.WriteString(Quote(p.Key))
		}

		pr.sb.WriteString(": ")
		pr.expr(p.Value, levelAssign)
	}

	pr.sb.WriteString(" }")
}

func precedence(x Expr) int {
	switch ex := x.(type) {
	case *Assign, *Raw:
		return levelAssign
	case *Binary:
		return binaryLevels[ex.Op]
	case *Call, *Member:
		return levelCall
	default:
		return levelPrimary
	}
}

// startsAmbiguous reports whether an expression statement would begin with
// "function" or "{" and so be parsed as a declaration or block.
func startsAmbiguous(x Expr) bool {
	for {
		switch ex := x.(type) {
		case *Func, *Object:
			return true
		case *Member:
			x = ex.Object
		case *Call:
			x = ex.Callee
		case *Binary:
			x = ex.Left
		case *Assign:
			x = ex.Target
		default:
			return false
		}
	}
}

// IsIdentifierName reports whether name can be written as a bare identifier
// name, for example after a dot or as an object literal key.
func IsIdentifierName(name string) bool {
	if name == "" {
		return false
	}

	for i, r := range name {
		switch {
		case r == '$' || r == '_':
		case unicode.IsLetter(r):
		case i > 0 && unicode.IsDigit(r):
		default:
			return false
		}
	}

	return true
}

// Quote returns text as a double-quoted JavaScript string literal.
func Quote(text string) string {
	var sb strings.Builder

	sb.Grow(len(text) + 2)
	sb.WriteByte('"')

	for i := 0; i < len(text); {
		r, width := utf8.DecodeRuneInString(text[i:])

		switch {
		case r == utf8.RuneError && width == 1:
			writeUnicodeEscape(&sb, rune(text[i]))
		case r == '"':
			sb.WriteString(`\"`)
		case r == '\\':
			sb.WriteString(`\\`)
		case r == '\n':
			sb.WriteString(`\n`)
		case r == '\r':
			sb.WriteString(`\r`)
		case r == '\t':
			sb.WriteString(`\t`)
		case r == '\b':
			sb.WriteString(`\b`)
		case r == '\f':
			sb.WriteString(`\f`)
		case r < 0x20 || r == 0x7f || r == '\u2028' || r == '\u2029' || r == '\uFEFF':
			writeUnicodeEscape(&sb, r)
		default:
			sb.WriteString(text[i : i+width])
		}

		i += width
	}

	sb.WriteByte('"')

	return sb.String()
}

const hexChars = "0123456789ABCDEF"

func writeUnicodeEscape(sb *strings.Builder, r rune) {
	sb.WriteString(`\u`)
	sb.WriteByte(hexChars[(r>>12)&0xF])
	sb.WriteByte(hexChars[(r>>8)&0xF])
	sb.WriteByte(hexChars[(r>>4)&0xF])
	sb.WriteByte(hexChars[r&0xF])
}
