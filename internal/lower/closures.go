package lower

import (
	"github.com/open-vela/ts2wasm/ast"
	"github.com/open-vela/ts2wasm/internal/ir"
	"github.com/open-vela/ts2wasm/internal/mangle"
	"github.com/open-vela/ts2wasm/internal/scope"
	"github.com/open-vela/ts2wasm/internal/types"
)

// lowerClosureLiteral lowers a FunctionExpr: it collects the free variables
// the closure body reads or writes (including ones only reached through a
// further-nested closure, flattened directly into this one's environment
// rather than chained through it), allocates a module Function for the
// closure body with the environment as an implicit receiver-like first
// parameter, and emits an OpNewClosure capturing each one's current value.
func (l *Lowerer) lowerClosureLiteral(cursor *[]*ir.Instr, expr *ast.FunctionExpr) ir.Value {
	fnScope := l.tree.ScopeOf[expr]
	captured := l.collectCaptures(fnScope, expr.Body)

	env := make(map[*scope.Symbol]uint32, len(captured))
	envTypes := make([]ir.Type, len(captured))
	captureVals := make([]ir.Value, len(captured))
	for i, sym := range captured {
		env[sym] = uint32(i)
		t := l.symbolType(sym)
		envTypes[i] = physType(t)
		captureVals[i] = l.lowerOuterCapture(cursor, sym)
	}

	l.closureSeq++
	symbol := mangle.Closure(l.currentFuncSymbol(), l.closureSeq)
	funcT := l.checker.TypeOf(expr)
	var result *types.Type
	if funcT != nil && funcT.Func != nil {
		result = funcT.Func.Result
	}
	fn := l.b.NewFunction(symbol, append([]ir.Type{ir.TypeRef}, paramTypes(l, expr.Params, false)...), physType(result))
	envLayoutID := l.b.NewEnvLayout(envTypes)

	savedFn, savedLocalOf, savedScope, savedEnv, savedEnvLayoutID, savedResult := l.fn, l.localOf, l.curScope, l.env, l.envLayoutID, l.curResultType
	l.curResultType = result
	l.envLayoutID = envLayoutID
	l.lowerFunctionBody(fn, expr.Params, expr.Body, fnScope, env, true)
	l.fn, l.localOf, l.curScope, l.env, l.envLayoutID, l.curResultType = savedFn, savedLocalOf, savedScope, savedEnv, savedEnvLayoutID, savedResult

	return l.b.NewClosure(cursor, symbol, envLayoutID, captureVals)
}

// lowerOuterCapture lowers a reference to sym as seen from the *defining*
// scope (before entering the closure), so a captured local reads its
// current value and a captured outer-closure capture re-reads through that
// outer closure's own env access.
func (l *Lowerer) lowerOuterCapture(cursor *[]*ir.Instr, sym *scope.Symbol) ir.Value {
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
	return l.b.ConstNull(cursor)
}

// currentFuncSymbol names the function currently being lowered, used as the
// mangling prefix for any closure literal defined within it.
func (l *Lowerer) currentFuncSymbol() string {
	if l.fn == nil {
		return "module"
	}
	return l.fn.Symbol
}

// collectCaptures walks body (recursing into nested FunctionExprs, since a
// deeper closure's free variable is flattened into every enclosing
// closure's environment that needs to pass it along) and returns, in
// first-use order, every Symbol it references that is declared outside
// fnScope's own function.
func (l *Lowerer) collectCaptures(fnScope *scope.Scope, body []ast.Stmt) []*scope.Symbol {
	var order []*scope.Symbol
	seen := make(map[*scope.Symbol]bool)
	add := func(sym *scope.Symbol) {
		if sym == nil || seen[sym] {
			return
		}
		if !scope.CrossesFunctionBoundary(fnScope, sym) {
			return
		}
		seen[sym] = true
		order = append(order, sym)
	}
	var walkStmts func([]ast.Stmt)
	var walkStmt func(ast.Stmt)
	var walkExpr func(ast.Expr)

	walkExpr = func(e ast.Expr) {
		switch expr := e.(type) {
		case nil:
		case *ast.Ident:
			add(l.tree.Refs[expr])
		case *ast.BinaryExpr:
			walkExpr(expr.X)
			walkExpr(expr.Y)
		case *ast.UnaryExpr:
			walkExpr(expr.X)
		case *ast.AssignExpr:
			walkExpr(expr.Target)
			walkExpr(expr.Value)
		case *ast.CallExpr:
			walkExpr(expr.Callee)
			for _, a := range expr.Args {
				walkExpr(a)
			}
		case *ast.NewExpr:
			for _, a := range expr.Args {
				walkExpr(a)
			}
		case *ast.MemberExpr:
			walkExpr(expr.X)
		case *ast.IndexExpr:
			walkExpr(expr.X)
			walkExpr(expr.Index)
		case *ast.ArrayLiteral:
			for _, el := range expr.Elems {
				walkExpr(el)
			}
		case *ast.AsAnyExpr:
			walkExpr(expr.X)
		case *ast.FunctionExpr:
			walkStmts(expr.Body)
		}
	}

	walkStmt = func(st ast.Stmt) {
		switch stmt := st.(type) {
		case *ast.ExprStmt:
			walkExpr(stmt.X)
		case *ast.DeclStmt:
			walkExpr(stmt.Decl.Init)
		case *ast.BlockStmt:
			walkStmts(stmt.Stmts)
		case *ast.IfStmt:
			walkExpr(stmt.Cond)
			walkStmts(stmt.Then)
			walkStmts(stmt.Else)
		case *ast.WhileStmt:
			walkExpr(stmt.Cond)
			walkStmts(stmt.Body)
		case *ast.ForStmt:
			if stmt.Init != nil {
				walkStmt(stmt.Init)
			}
			walkExpr(stmt.Cond)
			walkExpr(stmt.Post)
			walkStmts(stmt.Body)
		case *ast.ReturnStmt:
			walkExpr(stmt.Result)
		}
	}
	walkStmts = func(stmts []ast.Stmt) {
		for _, st := range stmts {
			walkStmt(st)
		}
	}

	walkStmts(body)
	return order
}
