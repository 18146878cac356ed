package lower

import (
	"github.com/open-vela/ts2wasm/ast"
	"github.com/open-vela/ts2wasm/internal/diag"
	"github.com/open-vela/ts2wasm/internal/ir"
	"github.com/open-vela/ts2wasm/internal/mangle"
	"github.com/open-vela/ts2wasm/internal/scope"
	"github.com/open-vela/ts2wasm/internal/types"
)

// lowerCall dispatches a CallExpr to a static call, a virtual method call
// through the callee class's vtable, a structural call through an
// interface's DispatchRecord, or an indirect call through a closure value,
// depending on what the callee resolves to.
func (l *Lowerer) lowerCall(cursor *[]*ir.Instr, expr *ast.CallExpr) ir.Value {
	resultTyp := physType(l.checker.TypeOf(expr))

	switch callee := expr.Callee.(type) {
	case *ast.Ident:
		sym := l.tree.Refs[callee]
		if sym != nil && sym.Kind == scope.KindFunction {
			return l.b.StaticCall(cursor, mangle.Function(callee.Name), l.lowerArgs(cursor, expr.Args), resultTyp)
		}
		closure := l.lowerIdent(cursor, callee)
		return l.b.CallClosure(cursor, closure, l.lowerArgs(cursor, expr.Args), resultTyp)

	case *ast.MemberExpr:
		return l.lowerMemberCall(cursor, callee, expr.Args, resultTyp)

	default:
		closure := l.lowerExpr(cursor, expr.Callee)
		return l.b.CallClosure(cursor, closure, l.lowerArgs(cursor, expr.Args), resultTyp)
	}
}

func (l *Lowerer) lowerArgs(cursor *[]*ir.Instr, args []ast.Expr) []ir.Value {
	out := make([]ir.Value, len(args))
	for i, a := range args {
		out[i] = l.lowerExpr(cursor, a)
	}
	return out
}

func (l *Lowerer) lowerMemberCall(cursor *[]*ir.Instr, callee *ast.MemberExpr, argExprs []ast.Expr, resultTyp ir.Type) ir.Value {
	if _, isSuper := callee.X.(*ast.SuperExpr); isSuper {
		if l.curClass == nil || l.curClass.Extends == nil {
			l.diags.Addf(diag.CodeInvalidSuperCall, callee.Pos(), "super call outside a derived class method")
			return l.b.ConstNull(cursor)
		}
		recv := l.b.LocalGet(cursor, 0, ir.TypeRef)
		symbol := mangle.Method(l.curClass.Extends.Name, callee.Name)
		return l.b.SuperCall(cursor, recv, symbol, l.lowerArgs(cursor, argExprs), resultTyp)
	}

	xt := l.checker.TypeOf(callee.X)
	if xt == nil {
		l.diags.Addf(diag.CodeUnsupportedLowering, callee.Pos(), "call on unresolved receiver")
		return l.b.ConstNull(cursor)
	}

	switch xt.Kind {
	case types.KindClass:
		m := xt.Class.FindMethod(callee.Name)
		if m == nil {
			l.diags.Addf(diag.CodeUnknownMember, callee.Pos(), "unknown method %q", callee.Name)
			return l.b.ConstNull(cursor)
		}
		recv := l.lowerExpr(cursor, callee.X)
		args := l.coerceArgs(cursor, argExprs, m.Sig)
		return l.b.MethodCall(cursor, recv, args, m.VTableSlot, xt.Class.LayoutID, mangle.Method(xt.Class.Name, callee.Name), resultTyp)

	case types.KindInterface:
		memberSlot := -1
		for i, mem := range xt.Interface.Members {
			if mem.Name == callee.Name {
				memberSlot = i
				break
			}
		}
		if memberSlot < 0 {
			l.diags.Addf(diag.CodeUnknownMember, callee.Pos(), "unknown interface member %q", callee.Name)
			return l.b.ConstNull(cursor)
		}
		view := l.lowerExpr(cursor, callee.X)
		return l.b.InterfaceCall(cursor, view, l.lowerArgs(cursor, argExprs), uint32(memberSlot), xt.Interface.LayoutID, resultTyp)

	default:
		l.diags.Addf(diag.CodeUnsupportedLowering, callee.Pos(), "method call on unsupported receiver type")
		return l.b.ConstNull(cursor)
	}
}

// coerceArgs lowers call arguments against a known signature, boxing into
// `any` where a parameter is any-typed and the argument's static type is
// concrete (spec.md's explicit any-boundary rule).
func (l *Lowerer) coerceArgs(cursor *[]*ir.Instr, args []ast.Expr, sig *types.FuncType) []ir.Value {
	out := make([]ir.Value, len(args))
	for i, a := range args {
		var expected *types.Type
		if sig != nil && i < len(sig.Params) {
			expected = sig.Params[i]
		}
		out[i] = l.coerce(cursor, a, expected)
	}
	return out
}
