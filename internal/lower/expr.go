package lower

import (
	"github.com/open-vela/ts2wasm/ast"
	"github.com/open-vela/ts2wasm/internal/diag"
	"github.com/open-vela/ts2wasm/internal/ir"
	"github.com/open-vela/ts2wasm/internal/mangle"
	"github.com/open-vela/ts2wasm/internal/scope"
	"github.com/open-vela/ts2wasm/internal/types"
)

func (l *Lowerer) lowerExpr(cursor *[]*ir.Instr, e ast.Expr) ir.Value {
	switch expr := e.(type) {
	case *ast.Literal:
		return l.lowerLiteral(cursor, expr)
	case *ast.Ident:
		return l.lowerIdent(cursor, expr)
	case *ast.ThisExpr:
		return l.b.LocalGet(cursor, 0, ir.TypeRef)
	case *ast.SuperExpr:
		return l.b.LocalGet(cursor, 0, ir.TypeRef)
	case *ast.BinaryExpr:
		return l.lowerBinary(cursor, expr)
	case *ast.UnaryExpr:
		return l.lowerUnary(cursor, expr)
	case *ast.AssignExpr:
		return l.lowerAssign(cursor, expr)
	case *ast.CallExpr:
		return l.lowerCall(cursor, expr)
	case *ast.NewExpr:
		return l.lowerNew(cursor, expr)
	case *ast.MemberExpr:
		return l.lowerMember(cursor, expr)
	case *ast.IndexExpr:
		x := l.lowerExpr(cursor, expr.X)
		idx := l.lowerExpr(cursor, expr.Index)
		elemT := l.checker.TypeOf(e)
		return l.b.ArrayGet(cursor, x, idx, physType(elemT))
	case *ast.ArrayLiteral:
		elemT := elemTypeOf(l.checker.TypeOf(e))
		vals := make([]ir.Value, len(expr.Elems))
		for i, el := range expr.Elems {
			vals[i] = l.coerce(cursor, el, elemT)
		}
		return l.b.NewArray(cursor, physType(elemT), vals)
	case *ast.FunctionExpr:
		return l.lowerClosureLiteral(cursor, expr)
	case *ast.AsAnyExpr:
		v := l.lowerExpr(cursor, expr.X)
		srcT := l.checker.TypeOf(expr.X)
		return l.b.AnyBox(cursor, v, physType(srcT))
	default:
		l.diags.Addf(diag.CodeUnsupportedLowering, e.Pos(), "unsupported expression")
		return l.b.ConstNull(cursor)
	}
}

func elemTypeOf(arrT *types.Type) *types.Type {
	if arrT != nil && arrT.Kind == types.KindArray {
		return arrT.Elem
	}
	return types.Any
}

func (l *Lowerer) lowerLiteral(cursor *[]*ir.Instr, lit *ast.Literal) ir.Value {
	switch lit.Kind {
	case ast.LitNumber:
		return l.b.ConstF64(cursor, lit.Num)
	case ast.LitString:
		return l.b.ConstString(cursor, lit.Str)
	case ast.LitBool:
		return l.b.ConstBool(cursor, lit.Bool)
	default:
		return l.b.ConstNull(cursor)
	}
}

func (l *Lowerer) lowerIdent(cursor *[]*ir.Instr, id *ast.Ident) ir.Value {
	sym := l.tree.Refs[id]
	if sym == nil {
		l.diags.Addf(diag.CodeUnresolvedIdentifier, id.Pos(), "undefined identifier %q", id.Name)
		return l.b.ConstNull(cursor)
	}
	t := l.symbolType(sym)
	if l.env != nil {
		if slot, ok := l.env[sym]; ok {
			envVal := l.b.LocalGet(cursor, l.envLocalSlot(), ir.TypeRef)
			return l.b.EnvGet(cursor, envVal, slot, l.envLayoutID, physType(t))
		}
	}
	if slot, ok := l.localOf[sym]; ok {
		return l.b.LocalGet(cursor, slot, physType(t))
	}
	if idx, ok := l.globalOf[sym]; ok {
		return l.b.GlobalGet(cursor, idx, physType(t))
	}
	l.diags.Addf(diag.CodeUnsupportedLowering, id.Pos(), "%q is captured in an unsupported way", id.Name)
	return l.b.ConstNull(cursor)
}

// symbolType resolves a Symbol's semantic type by consulting the Checker's
// per-node type table for the declaration node it was bound to.
func (l *Lowerer) symbolType(sym *scope.Symbol) *types.Type {
	return l.checker.DeclType(sym.Node)
}

// envLocalSlot is the local index the closure's environment record is
// passed in at. Closures reserve slot 0 for it, the same convention
// methods use for their receiver (see bindParams).
func (l *Lowerer) envLocalSlot() uint32 {
	return 0
}

func (l *Lowerer) lowerBinary(cursor *[]*ir.Instr, expr *ast.BinaryExpr) ir.Value {
	if v, ok := l.foldConstant(expr); ok {
		return l.materializeConstant(cursor, v, l.checker.TypeOf(expr))
	}
	x := l.lowerExpr(cursor, expr.X)
	y := l.lowerExpr(cursor, expr.Y)
	xt := l.checker.TypeOf(expr.X)
	switch expr.Op {
	case ast.OpAdd:
		if xt != nil && xt.Kind == types.KindString {
			return l.b.StringConcat(cursor, x, y)
		}
		return l.b.Add(cursor, x, y)
	case ast.OpSub:
		return l.b.Sub(cursor, x, y)
	case ast.OpMul:
		return l.b.Mul(cursor, x, y)
	case ast.OpDiv:
		return l.b.Div(cursor, x, y)
	case ast.OpMod:
		return l.b.Mod(cursor, x, y)
	case ast.OpEq:
		if xt != nil && xt.Kind == types.KindString {
			return l.b.StringEq(cursor, x, y)
		}
		return l.b.Eq(cursor, x, y)
	case ast.OpNe:
		return l.b.Ne(cursor, x, y)
	case ast.OpLt:
		return l.b.Lt(cursor, x, y)
	case ast.OpLe:
		return l.b.Le(cursor, x, y)
	case ast.OpGt:
		return l.b.Gt(cursor, x, y)
	case ast.OpGe:
		return l.b.Ge(cursor, x, y)
	case ast.OpAnd:
		return l.b.And(cursor, x, y)
	case ast.OpOr:
		return l.b.Or(cursor, x, y)
	default:
		l.diags.Addf(diag.CodeUnsupportedLowering, expr.Pos(), "unsupported binary operator")
		return l.b.ConstNull(cursor)
	}
}

func (l *Lowerer) lowerUnary(cursor *[]*ir.Instr, expr *ast.UnaryExpr) ir.Value {
	x := l.lowerExpr(cursor, expr.X)
	if expr.Op == ast.OpSub {
		return l.b.Neg(cursor, x)
	}
	return l.b.Not(cursor, x)
}

func (l *Lowerer) lowerAssign(cursor *[]*ir.Instr, expr *ast.AssignExpr) ir.Value {
	targetT := l.checker.TypeOf(expr.Target)
	val := l.coerce(cursor, expr.Value, targetT)

	switch target := expr.Target.(type) {
	case *ast.Ident:
		sym := l.tree.Refs[target]
		if sym == nil {
			return val
		}
		if l.env != nil {
			if slot, ok := l.env[sym]; ok {
				envVal := l.b.LocalGet(cursor, l.envLocalSlot(), ir.TypeRef)
				l.b.EnvSet(cursor, envVal, val, slot, l.envLayoutID)
				return val
			}
		}
		if slot, ok := l.localOf[sym]; ok {
			l.b.LocalSet(cursor, slot, val)
			return val
		}
		if idx, ok := l.globalOf[sym]; ok {
			l.b.GlobalSet(cursor, idx, val)
			return val
		}
	case *ast.MemberExpr:
		l.lowerFieldAssign(cursor, target, val)
		return val
	case *ast.IndexExpr:
		arr := l.lowerExpr(cursor, target.X)
		idx := l.lowerExpr(cursor, target.Index)
		l.b.ArraySet(cursor, arr, idx, val)
		return val
	}
	l.diags.Addf(diag.CodeUnsupportedLowering, expr.Pos(), "unsupported assignment target")
	return val
}

func (l *Lowerer) lowerFieldAssign(cursor *[]*ir.Instr, target *ast.MemberExpr, val ir.Value) {
	xt := l.checker.TypeOf(target.X)
	if xt == nil || xt.Kind != types.KindClass {
		l.diags.Addf(diag.CodeUnsupportedLowering, target.Pos(), "field assignment on non-class receiver")
		return
	}
	f := xt.Class.FindField(target.Name)
	if f == nil {
		l.diags.Addf(diag.CodeUnknownMember, target.Pos(), "unknown field %q", target.Name)
		return
	}
	if f.Static {
		idx := l.staticGlobalOf[f]
		l.b.GlobalSet(cursor, idx, val)
		return
	}
	recv := l.lowerExpr(cursor, target.X)
	l.b.FieldSet(cursor, recv, val, f.Slot, xt.Class.LayoutID)
}

// coerce lowers e and, if its static type and the expected type disagree
// on the any boundary, inserts the explicit box/unbox operation spec.md's
// dynamic-typing model requires instead of an implicit conversion.
func (l *Lowerer) coerce(cursor *[]*ir.Instr, e ast.Expr, expected *types.Type) ir.Value {
	v := l.lowerExpr(cursor, e)
	actual := l.checker.TypeOf(e)
	if expected == nil || actual == nil {
		return v
	}
	if expected.Kind == types.KindAny && actual.Kind != types.KindAny {
		return l.b.AnyBox(cursor, v, physType(actual))
	}
	if expected.Kind != types.KindAny && actual.Kind == types.KindAny {
		return l.b.AnyUnbox(cursor, v, physType(expected))
	}
	if expected.Kind == types.KindInterface && actual.Kind == types.KindClass {
		rec := l.layouts.DispatchRecordFor(actual.Class, expected.Interface)
		return l.b.WidenInterface(cursor, v, rec.ID)
	}
	return v
}

func (l *Lowerer) lowerNew(cursor *[]*ir.Instr, expr *ast.NewExpr) ir.Value {
	ct := l.resolver.Class(expr.ClassName)
	if ct == nil {
		l.diags.Addf(diag.CodeUnresolvedIdentifier, expr.Pos(), "unknown class %q", expr.ClassName)
		return l.b.ConstNull(cursor)
	}
	args := make([]ir.Value, len(expr.Args))
	for i, a := range expr.Args {
		args[i] = l.lowerExpr(cursor, a)
	}
	return l.b.StaticCall(cursor, mangle.Constructor(expr.ClassName), args, ir.TypeRef)
}

func (l *Lowerer) lowerMember(cursor *[]*ir.Instr, expr *ast.MemberExpr) ir.Value {
	xt := l.checker.TypeOf(expr.X)
	if xt == nil {
		l.diags.Addf(diag.CodeUnsupportedLowering, expr.Pos(), "member access on unresolved type")
		return l.b.ConstNull(cursor)
	}
	if xt.Kind == types.KindClass {
		if f := xt.Class.FindField(expr.Name); f != nil {
			if f.Static {
				return l.b.GlobalGet(cursor, l.staticGlobalOf[f], physType(f.Type))
			}
			recv := l.lowerExpr(cursor, expr.X)
			return l.b.FieldGet(cursor, recv, f.Slot, xt.Class.LayoutID, physType(f.Type))
		}
	}
	l.diags.Addf(diag.CodeUnknownMember, expr.Pos(), "unknown member %q", expr.Name)
	return l.b.ConstNull(cursor)
}
