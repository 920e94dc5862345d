// Package jsast provides the typed JavaScript syntax nodes emitted by the
// module rewriter, a small builder API for them, and a printer.
//
// The node set is closed: only the expression and statement shapes the
// rewriter needs exist. Source fragments carried over from the input module
// are represented by Raw and RawStmt and printed verbatim.
package jsast

// Node is any printable syntax node.
type Node interface {
	node()
}

// Expr is an expression node.
type Expr interface {
	Node
	expr()
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmt()
}

// Expressions.

// Ident is an identifier reference.
type Ident struct{ Name string }

// String is a string literal holding the decoded value.
type String struct{ Value string }

// Bool is a boolean literal.
type Bool struct{ Value bool }

// Member is a property access. Property is printed with dot notation when it
// is a valid identifier name and with a quoted index otherwise.
type Member struct {
	Object   Expr
	Property string
}

// Call is a function call.
type Call struct {
	Callee Expr
	Args   []Expr
}

// Func is a function expression. A non-empty Name makes it a named function.
type Func struct {
	Name   string
	Params []string
	Body   []Stmt
}

// Binary is a binary operator expression.
type Binary struct {
	Op    string
	Left  Expr
	Right Expr
}

// Assign is a simple assignment expression.
type Assign struct {
	Target Expr
	Value  Expr
}

// Property is one key/value pair of an object literal.
type Property struct {
	Key   string
	Value Expr
}

// Object is an object literal.
type Object struct{ Props []Property }

// Paren is an explicitly parenthesized expression.
type Paren struct{ X Expr }

// Raw is an opaque source expression printed verbatim.
type Raw struct{ Text string }

// Statements.

// ExprStmt is an expression statement.
type ExprStmt struct{ X Expr }

// VarDecl declares a single binding.
type VarDecl struct {
	Kind string
	Name string
	Init Expr
}

// FuncDecl is a function declaration.
type FuncDecl struct{ Func *Func }

// Return is a return statement. Value may be nil.
type Return struct{ Value Expr }

// Try is a try/catch statement.
type Try struct {
	Body  []Stmt
	Param string
	Catch []Stmt
}

// RawStmt is an opaque source statement printed verbatim.
type RawStmt struct{ Text string }

// Program is the root of an emitted module.
type Program struct{ Body []Stmt }

func (*Ident) node()  {}
func (*String) node() {}
func (*Bool) node()   {}
func (*Member) node() {}
func (*Call) node()   {}
func (*Func) node()   {}
func (*Binary) node() {}
func (*Assign) node() {}
func (*Object) node() {}
func (*Paren) node()  {}
func (*Raw) node()    {}

func (*Ident) expr()  {}
func (*String) expr() {}
func (*Bool) expr()   {}
func (*Member) expr() {}
func (*Call) expr()   {}
func (*Func) expr()   {}
func (*Binary) expr() {}
func (*Assign) expr() {}
func (*Object) expr() {}
func (*Paren) expr()  {}
func (*Raw) expr()    {}

func (*ExprStmt) node() {}
func (*VarDecl) node()  {}
func (*FuncDecl) node() {}
func (*Return) node()   {}
func (*Try) node()      {}
func (*RawStmt) node()  {}
func (*Program) node()  {}

func (*ExprStmt) stmt() {}
func (*VarDecl) stmt()  {}
func (*FuncDecl) stmt() {}
func (*Return) stmt()   {}
func (*Try) stmt()      {}
func (*RawStmt) stmt()  {}
