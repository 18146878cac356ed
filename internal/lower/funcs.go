package lower

import (
	"github.com/open-vela/ts2wasm/ast"
	"github.com/open-vela/ts2wasm/internal/ir"
	"github.com/open-vela/ts2wasm/internal/mangle"
	"github.com/open-vela/ts2wasm/internal/scope"
	"github.com/open-vela/ts2wasm/internal/types"
)

func (l *Lowerer) lowerFreeFunction(decl *ast.FuncDecl) {
	symbol := mangle.Function(decl.Name)
	result := resultOf(decl, l)
	resultTyp := physType(result)
	fn := l.b.NewFunction(symbol, paramTypes(l, decl.Params, false), resultTyp)
	if decl.Name == "main" {
		fn.Exported = true
	}
	l.curResultType = result
	l.lowerFunctionBody(fn, decl.Params, decl.Body, l.tree.ScopeOf[decl], nil, false)
}

// resultOf resolves a FuncDecl's declared return type via the Resolver
// directly (Checker only tracks expression/decl types, not function
// declarations themselves).
func resultOf(decl *ast.FuncDecl, l *Lowerer) *types.Type {
	return l.resolver.ResolveFuncReturnType(decl)
}

func paramTypes(l *Lowerer, params []*ast.Param, withReceiver bool) []ir.Type {
	var out []ir.Type
	if withReceiver {
		out = append(out, ir.TypeRef)
	}
	for _, p := range params {
		out = append(out, physType(l.checker.DeclType(p)))
	}
	return out
}

func (l *Lowerer) lowerClass(decl *ast.ClassDecl) {
	ct := l.resolver.Class(decl.Name)
	classScope := l.tree.ScopeOf[decl]

	l.lowerConstructor(decl, ct, classScope)

	for _, m := range decl.Methods {
		l.lowerMethod(decl, ct, m, classScope)
	}
}

// lowerConstructor synthesizes the class's constructor as a function
// taking the declared constructor parameters (if any user-written
// constructor method exists, named "constructor" by convention) and
// returning a new instance: it evaluates field initializers in slot order
// (inherited fields already initialized by a super call, own fields next)
// and wraps them in OpNewObject.
func (l *Lowerer) lowerConstructor(decl *ast.ClassDecl, ct *types.ClassType, classScope *scope.Scope) {
	var userCtor *ast.FuncDecl
	for _, m := range decl.Methods {
		if m.Kind == ast.FuncConstructor {
			userCtor = m
			break
		}
	}

	symbol := mangle.Constructor(decl.Name)
	var params []*ast.Param
	if userCtor != nil {
		params = userCtor.Params
	}
	fn := l.b.NewFunction(symbol, paramTypes(l, params, false), ir.TypeRef)

	l.fn = fn
	l.localOf = make(map[*scope.Symbol]uint32)
	l.curClass = ct
	fnScope := classScope
	if userCtor != nil {
		fnScope = l.tree.ScopeOf[userCtor]
	}
	l.curScope = fnScope
	l.bindParams(params, fnScope, false)

	cursor := &fn.Body
	fieldVals := make([]ir.Value, len(ct.Fields))
	for i, f := range ct.Fields {
		if f.Static {
			continue
		}
		if userCtor != nil {
			if init := l.fieldInitFromCtor(userCtor, f.Name); init != nil {
				fieldVals[i] = l.coerce(cursor, init, f.Type)
				continue
			}
		}
		fieldVals[i] = l.zeroValue(cursor, f.Type)
	}
	obj := l.b.NewObject(cursor, ct.LayoutID, fieldVals)
	l.b.Return(cursor, obj)
}

// fieldInitFromCtor looks for a `this.<name> = <expr>` assignment
// statement in the constructor body's top level, the pattern surface
// syntax uses to set a field from a constructor parameter.
func (l *Lowerer) fieldInitFromCtor(ctor *ast.FuncDecl, field string) ast.Expr {
	for _, st := range ctor.Body {
		es, ok := st.(*ast.ExprStmt)
		if !ok {
			continue
		}
		assign, ok := es.X.(*ast.AssignExpr)
		if !ok {
			continue
		}
		member, ok := assign.Target.(*ast.MemberExpr)
		if !ok {
			continue
		}
		if _, isThis := member.X.(*ast.ThisExpr); !isThis {
			continue
		}
		if member.Name == field {
			return assign.Value
		}
	}
	return nil
}

func (l *Lowerer) zeroValue(cursor *[]*ir.Instr, t *types.Type) ir.Value {
	switch physType(t) {
	case ir.TypeF64:
		return l.b.ConstF64(cursor, 0)
	case ir.TypeI32:
		return l.b.ConstI32(cursor, 0)
	default:
		return l.b.ConstNull(cursor)
	}
}

func (l *Lowerer) lowerMethod(decl *ast.ClassDecl, ct *types.ClassType, m *ast.FuncDecl, classScope *scope.Scope) {
	if m.Kind == ast.FuncConstructor {
		return
	}
	symbol := mangle.Method(decl.Name, m.Name)
	result := resultOf(m, l)
	resultTyp := physType(result)
	fn := l.b.NewFunction(symbol, paramTypes(l, m.Params, true), resultTyp)

	l.fn = fn
	l.localOf = make(map[*scope.Symbol]uint32)
	l.curClass = ct
	l.curResultType = result
	methodScope := l.tree.ScopeOf[m]
	l.curScope = methodScope

	// Receiver occupies param slot 0; bindParams offsets user params by
	// one to leave room for it.
	l.bindParams(m.Params, methodScope, true)
	l.lowerStmts(&fn.Body, methodScope, m.Body)
	l.ensureTrailingReturn(fn)
}

// lowerFunctionBody is the shared tail of lowering a free function or a
// closure body once the Function has been allocated.
func (l *Lowerer) lowerFunctionBody(fn *ir.Function, params []*ast.Param, body []ast.Stmt, fnScope *scope.Scope, env map[*scope.Symbol]uint32, hasReceiver bool) {
	l.fn = fn
	l.localOf = make(map[*scope.Symbol]uint32)
	l.curScope = fnScope
	l.env = env
	l.bindParams(params, fnScope, hasReceiver)
	l.lowerStmts(&fn.Body, fnScope, body)
	l.ensureTrailingReturn(fn)
}

// bindParams records each parameter Symbol's local slot; slot 0 is
// reserved for the receiver when hasReceiver is set.
func (l *Lowerer) bindParams(params []*ast.Param, fnScope *scope.Scope, hasReceiver bool) {
	offset := uint32(0)
	if hasReceiver {
		offset = 1
	}
	for i, p := range params {
		sym := fnScope.LookupLocal(p.Name)
		if sym != nil {
			l.localOf[sym] = uint32(i) + offset
		}
	}
}

// ensureTrailingReturn appends an implicit `return` (with a null/zero
// result for a non-void function) if the body doesn't end in one, since
// wasm functions must end their value stack exactly at the declared
// result arity.
func (l *Lowerer) ensureTrailingReturn(fn *ir.Function) {
	if len(fn.Body) > 0 {
		if last := fn.Body[len(fn.Body)-1]; last.Op == ir.OpReturn {
			return
		}
	}
	cursor := &fn.Body
	switch fn.Result {
	case ir.TypeInvalid:
		l.b.Return(cursor, ir.Value{})
	case ir.TypeF64:
		l.b.Return(cursor, l.b.ConstF64(cursor, 0))
	case ir.TypeI32:
		l.b.Return(cursor, l.b.ConstI32(cursor, 0))
	default:
		l.b.Return(cursor, l.b.ConstNull(cursor))
	}
}
