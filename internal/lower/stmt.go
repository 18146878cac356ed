package lower

import (
	"github.com/open-vela/ts2wasm/ast"
	"github.com/open-vela/ts2wasm/internal/ir"
	"github.com/open-vela/ts2wasm/internal/scope"
)

func (l *Lowerer) lowerStmts(cursor *[]*ir.Instr, s *scope.Scope, stmts []ast.Stmt) {
	for _, st := range stmts {
		l.lowerStmt(cursor, s, st)
	}
}

func (l *Lowerer) lowerStmt(cursor *[]*ir.Instr, s *scope.Scope, st ast.Stmt) {
	switch stmt := st.(type) {
	case *ast.ExprStmt:
		l.b.ExprStmt(cursor, l.lowerExpr(cursor, stmt.X))
	case *ast.DeclStmt:
		l.lowerLocalDecl(cursor, s, stmt.Decl)
	case *ast.BlockStmt:
		inner := l.b.Block(cursor)
		l.lowerStmts(inner, l.tree.ScopeOf[stmt], stmt.Stmts)
	case *ast.IfStmt:
		cond := l.lowerExpr(cursor, stmt.Cond)
		then, els := l.b.If(cursor, cond)
		l.lowerStmts(then, l.tree.ScopeOf[stmt], stmt.Then)
		if stmt.Else != nil {
			l.lowerStmts(els, l.tree.ScopeOf[&stmt.Else], stmt.Else)
		}
	case *ast.WhileStmt:
		loop := l.b.Loop(cursor)
		cond := l.lowerExpr(loop, stmt.Cond)
		notCond := l.b.Not(loop, cond)
		breakThen, _ := l.b.If(loop, notCond)
		l.b.Break(breakThen, 0)
		l.lowerStmts(loop, l.tree.ScopeOf[stmt], stmt.Body)
		l.b.Continue(loop, 0)
	case *ast.ForStmt:
		forScope := l.tree.ScopeOf[stmt]
		if stmt.Init != nil {
			l.lowerStmt(cursor, forScope, stmt.Init)
		}
		loop := l.b.Loop(cursor)
		if stmt.Cond != nil {
			cond := l.lowerExpr(loop, stmt.Cond)
			notCond := l.b.Not(loop, cond)
			breakThen, _ := l.b.If(loop, notCond)
			l.b.Break(breakThen, 0)
		}
		l.lowerStmts(loop, forScope, stmt.Body)
		if stmt.Post != nil {
			l.b.ExprStmt(loop, l.lowerExpr(loop, stmt.Post))
		}
		l.b.Continue(loop, 0)
	case *ast.ReturnStmt:
		if stmt.Result == nil {
			l.b.Return(cursor, ir.Value{})
			return
		}
		l.b.Return(cursor, l.coerce(cursor, stmt.Result, l.curResultType))
	case *ast.BreakStmt:
		l.b.Break(cursor, 0)
	case *ast.ContinueStmt:
		l.b.Continue(cursor, 0)
	}
}

func (l *Lowerer) lowerLocalDecl(cursor *[]*ir.Instr, s *scope.Scope, decl *ast.VarDecl) {
	sym := s.LookupLocal(decl.Name)
	t := l.checker.DeclType(decl)
	slot := l.fn.AddLocal(physType(t))
	if sym != nil {
		l.localOf[sym] = slot
	}
	var v ir.Value
	if decl.Init != nil {
		v = l.coerce(cursor, decl.Init, t)
	} else {
		v = l.zeroValue(cursor, t)
	}
	l.b.LocalSet(cursor, slot, v)
}
