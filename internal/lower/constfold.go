package lower

import (
	"github.com/open-vela/ts2wasm/ast"
	"github.com/open-vela/ts2wasm/internal/ir"
	"github.com/open-vela/ts2wasm/internal/types"
)

// constant is a folded compile-time value; exactly one field is meaningful,
// selected by kind.
type constant struct {
	kind ast.LiteralKind
	num  float64
	str  string
	b    bool
}

// foldConstant evaluates expr at compile time when both operands are
// themselves literals, the supplemented constant-folding feature. It
// recurses through nested BinaryExprs so `1 + 2 + 3` folds to a single
// constant rather than only folding its outermost operation.
func (l *Lowerer) foldConstant(expr *ast.BinaryExpr) (constant, bool) {
	x, ok := l.asConstant(expr.X)
	if !ok {
		return constant{}, false
	}
	y, ok := l.asConstant(expr.Y)
	if !ok {
		return constant{}, false
	}
	return evalBinary(expr.Op, x, y)
}

func (l *Lowerer) asConstant(e ast.Expr) (constant, bool) {
	switch expr := e.(type) {
	case *ast.Literal:
		switch expr.Kind {
		case ast.LitNumber:
			return constant{kind: ast.LitNumber, num: expr.Num}, true
		case ast.LitString:
			return constant{kind: ast.LitString, str: expr.Str}, true
		case ast.LitBool:
			return constant{kind: ast.LitBool, b: expr.Bool}, true
		}
		return constant{}, false
	case *ast.BinaryExpr:
		return l.foldConstant(expr)
	default:
		return constant{}, false
	}
}

func evalBinary(op ast.BinaryOp, x, y constant) (constant, bool) {
	if x.kind == ast.LitString || y.kind == ast.LitString {
		if op == ast.OpAdd {
			return constant{kind: ast.LitString, str: constStr(x) + constStr(y)}, true
		}
		if op == ast.OpEq {
			return constant{kind: ast.LitBool, b: x.kind == y.kind && constStr(x) == constStr(y)}, true
		}
		if op == ast.OpNe {
			return constant{kind: ast.LitBool, b: !(x.kind == y.kind && constStr(x) == constStr(y))}, true
		}
		return constant{}, false
	}
	if x.kind != ast.LitNumber || y.kind != ast.LitNumber {
		return constant{}, false
	}
	switch op {
	case ast.OpAdd:
		return constant{kind: ast.LitNumber, num: x.num + y.num}, true
	case ast.OpSub:
		return constant{kind: ast.LitNumber, num: x.num - y.num}, true
	case ast.OpMul:
		return constant{kind: ast.LitNumber, num: x.num * y.num}, true
	case ast.OpDiv:
		if y.num == 0 {
			return constant{}, false
		}
		return constant{kind: ast.LitNumber, num: x.num / y.num}, true
	case ast.OpMod:
		if y.num == 0 {
			return constant{}, false
		}
		return constant{kind: ast.LitNumber, num: float64(int64(x.num) % int64(y.num))}, true
	case ast.OpEq:
		return constant{kind: ast.LitBool, b: x.num == y.num}, true
	case ast.OpNe:
		return constant{kind: ast.LitBool, b: x.num != y.num}, true
	case ast.OpLt:
		return constant{kind: ast.LitBool, b: x.num < y.num}, true
	case ast.OpLe:
		return constant{kind: ast.LitBool, b: x.num <= y.num}, true
	case ast.OpGt:
		return constant{kind: ast.LitBool, b: x.num > y.num}, true
	case ast.OpGe:
		return constant{kind: ast.LitBool, b: x.num >= y.num}, true
	default:
		return constant{}, false
	}
}

func constStr(c constant) string {
	if c.kind == ast.LitString {
		return c.str
	}
	return ""
}

func (l *Lowerer) materializeConstant(cursor *[]*ir.Instr, c constant, t *types.Type) ir.Value {
	switch c.kind {
	case ast.LitNumber:
		return l.b.ConstF64(cursor, c.num)
	case ast.LitString:
		return l.b.ConstString(cursor, c.str)
	case ast.LitBool:
		return l.b.ConstBool(cursor, c.b)
	default:
		return l.b.ConstNull(cursor)
	}
}
