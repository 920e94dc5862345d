package jsast

// Id returns an identifier reference.
func Id(name string) *Ident { return &Ident{Name: name} }

// Str returns a string literal.
func Str(value string) *String { return &String{Value: value} }

// True returns the boolean literal true.
func True() *Bool { return &Bool{Value: true} }

// Dot returns obj.prop, or obj["prop"] when prop is not an identifier name.
func Dot(obj Expr, prop string) *Member { return &Member{Object: obj, Property: prop} }

// Path returns a chained member access rooted at the identifier root.
func Path(root string, props ...string) Expr {
	var out Expr = Id(root)
	for _, p := range props {
		out = Dot(out, p)
	}

	return out
}

// CallOf returns callee(args...).
func CallOf(callee Expr, args ...Expr) *Call { return &Call{Callee: callee, Args: args} }

// Fn returns an anonymous function expression.
func Fn(params []string, body ...Stmt) *Func { return &Func{Params: params, Body: body} }

// Thunk returns function () { return value; }.
func Thunk(value Expr) *Func { return Fn(nil, Ret(value)) }

// Concat returns left + right.
func Concat(left, right Expr) *Binary { return &Binary{Op: "+", Left: left, Right: right} }

// Or builds left || right.
func Or(left, right Expr) *Binary { return &Binary{Op: "||", Left: left, Right: right} }

// Set returns target = value.
func Set(target, value Expr) *Assign { return &Assign{Target: target, Value: value} }

// Obj returns an object literal with the given properties in order.
func Obj(props ...Property) *Object { return &Object{Props: props} }

// Prop returns one object literal property.
func Prop(key string, value Expr) Property { return Property{Key: key, Value: value} }

// Group wraps x in parentheses.
func Group(x Expr) *Paren { return &Paren{X: x} }

// Verbatim returns an opaque source expression.
func Verbatim(text string) *Raw { return &Raw{Text: text} }

// Do returns an expression statement.
func Do(x Expr) *ExprStmt { return &ExprStmt{X: x} }

// Var returns var name = init;.
func Var(name string, init Expr) *VarDecl { return &VarDecl{Kind: "var", Name: name, Init: init} }

// Ret returns return value;.
func Ret(value Expr) *Return { return &Return{Value: value} }

// Declare returns a named function declaration.
func Declare(name string, params []string, body ...Stmt) *FuncDecl {
	return &FuncDecl{Func: &Func{Name: name, Params: params, Body: body}}
}

// TryCatch returns try { body } catch (param) { handler }.
func TryCatch(body []Stmt, param string, handler ...Stmt) *Try {
	return &Try{Body: body, Param: param, Catch: handler}
}

// Source returns an opaque source statement.
func Source(text string) *RawStmt { return &RawStmt{Text: text} }
