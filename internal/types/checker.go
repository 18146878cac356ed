package types

import (
	"github.com/open-vela/ts2wasm/ast"
	"github.com/open-vela/ts2wasm/internal/diag"
	"github.com/open-vela/ts2wasm/internal/scope"
)

// Checker is the second half of pass 2 (spec.md §4.2): once Resolver has
// produced the class/interface lattice, Checker walks every function and
// method body, assigns a semantic Type to each variable/parameter
// declaration and to every expression node, and reports CodeTypeMismatch
// where an initializer or assignment doesn't fit. internal/lower consumes
// DeclType/TypeOf directly instead of re-deriving types during lowering.
type Checker struct {
	r      *Resolver
	tree   *scope.Tree
	diags  *diag.Collector

	ExprType map[ast.Expr]*Type
	// declType associates a *ast.VarDecl/*ast.Param node with its resolved
	// Type; looking declarations up by node identity avoids needing a
	// separate Symbol->node reverse index on top of scope.Scope's
	// name->Symbol map.
	declType map[ast.Node]*Type
	// currentClass tracks the enclosing ClassType while checking a
	// method body, so `this`/`super` resolve.
	currentClass *ClassType
}

// NewChecker returns a Checker bound to an already-Resolve'd Resolver.
func NewChecker(r *Resolver, tree *scope.Tree, diags *diag.Collector) *Checker {
	return &Checker{
		r:        r,
		tree:     tree,
		diags:    diags,
		ExprType: make(map[ast.Expr]*Type),
		declType: make(map[ast.Node]*Type),
	}
}

// TypeOf returns e's previously-computed Type; Check must have run first.
func (c *Checker) TypeOf(e ast.Expr) *Type {
	if t, ok := c.ExprType[e]; ok {
		return t
	}
	return Any
}

// DeclType returns the resolved Type of a *ast.VarDecl or *ast.Param node.
func (c *Checker) DeclType(node ast.Node) *Type {
	if t, ok := c.declType[node]; ok {
		return t
	}
	return Any
}

// Check walks forest and populates declType/ExprType.
func (c *Checker) Check(forest *ast.Forest) {
	for _, f := range forest.Files {
		c.checkDecls(f.Decls)
	}
}

func (c *Checker) checkDecls(decls []ast.Decl) {
	for _, d := range decls {
		switch decl := d.(type) {
		case *ast.VarDecl:
			c.checkVarDecl(decl)
		case *ast.FuncDecl:
			c.checkFunc(decl)
		case *ast.ClassDecl:
			c.checkClass(decl)
		case *ast.NamespaceDecl:
			c.checkDecls(decl.Decls)
		}
	}
}

func (c *Checker) checkVarDecl(decl *ast.VarDecl) {
	c.checkVarDeclIn(c.tree.Global, decl)
}

func (c *Checker) checkFunc(decl *ast.FuncDecl) {
	fnScope := c.tree.ScopeOf[decl]
	prevClass := c.currentClass
	for _, p := range decl.Params {
		pt := c.r.resolveTypeExpr(p.Type)
		c.declType[p] = pt
		if p.Default != nil {
			c.inferExpr(fnScope, p.Default)
		}
	}
	c.checkStmts(fnScope, decl.Body)
	c.currentClass = prevClass
}

func (c *Checker) checkClass(decl *ast.ClassDecl) {
	ct := c.r.Class(decl.Name)
	prevClass := c.currentClass
	c.currentClass = ct
	for _, f := range decl.Fields {
		if f.Init != nil {
			c.inferExpr(c.tree.ScopeOf[decl], f.Init)
		}
	}
	for _, m := range decl.Methods {
		c.checkFunc(m)
	}
	c.currentClass = prevClass
}

func (c *Checker) checkStmts(s *scope.Scope, stmts []ast.Stmt) {
	for _, st := range stmts {
		c.checkStmt(s, st)
	}
}

func (c *Checker) checkStmt(s *scope.Scope, st ast.Stmt) {
	switch stmt := st.(type) {
	case *ast.ExprStmt:
		c.inferExpr(s, stmt.X)
	case *ast.DeclStmt:
		c.checkVarDeclIn(s, stmt.Decl)
	case *ast.BlockStmt:
		c.checkStmts(c.tree.ScopeOf[stmt], stmt.Stmts)
	case *ast.IfStmt:
		c.inferExpr(s, stmt.Cond)
		c.checkStmts(c.tree.ScopeOf[stmt], stmt.Then)
		if stmt.Else != nil {
			c.checkStmts(c.tree.ScopeOf[&stmt.Else], stmt.Else)
		}
	case *ast.WhileStmt:
		c.inferExpr(s, stmt.Cond)
		c.checkStmts(c.tree.ScopeOf[stmt], stmt.Body)
	case *ast.ForStmt:
		forScope := c.tree.ScopeOf[stmt]
		if stmt.Init != nil {
			c.checkStmt(forScope, stmt.Init)
		}
		if stmt.Cond != nil {
			c.inferExpr(forScope, stmt.Cond)
		}
		if stmt.Post != nil {
			c.inferExpr(forScope, stmt.Post)
		}
		c.checkStmts(forScope, stmt.Body)
	case *ast.ReturnStmt:
		if stmt.Result != nil {
			c.inferExpr(s, stmt.Result)
		}
	}
}

func (c *Checker) checkVarDeclIn(s *scope.Scope, decl *ast.VarDecl) {
	declared := c.r.resolveTypeExpr(decl.Type)
	if decl.Type == nil && decl.Init != nil {
		declared = c.inferExpr(s, decl.Init)
	} else if decl.Init != nil {
		initT := c.inferExpr(s, decl.Init)
		if !IsAssignable(initT, declared) {
			c.diags.Addf(diag.CodeTypeMismatch, decl.Pos(), "cannot initialize %q: incompatible types", decl.Name)
		}
	}
	c.declType[decl] = declared
}

// inferExpr computes and memoizes the Type of e, consulting s to resolve
// identifiers to their declared Type.
func (c *Checker) inferExpr(s *scope.Scope, e ast.Expr) *Type {
	if t, ok := c.ExprType[e]; ok {
		return t
	}
	t := c.inferExprUncached(s, e)
	c.ExprType[e] = t
	return t
}

func (c *Checker) inferExprUncached(s *scope.Scope, e ast.Expr) *Type {
	switch expr := e.(type) {
	case *ast.Literal:
		switch expr.Kind {
		case ast.LitNumber:
			return Number
		case ast.LitString:
			return StringT
		case ast.LitBool:
			return Bool
		case ast.LitNull, ast.LitUndefined:
			return NullConst
		}
		return Any
	case *ast.Ident:
		sym := c.tree.Refs[expr]
		if sym == nil {
			return Any
		}
		if t, ok := c.declType[sym.Node]; ok {
			return t
		}
		return Any
	case *ast.ThisExpr:
		if c.currentClass == nil {
			return Any
		}
		return &Type{Kind: KindClass, Class: c.currentClass}
	case *ast.SuperExpr:
		if c.currentClass == nil || c.currentClass.Extends == nil {
			return Any
		}
		return &Type{Kind: KindClass, Class: c.currentClass.Extends}
	case *ast.BinaryExpr:
		x := c.inferExpr(s, expr.X)
		y := c.inferExpr(s, expr.Y)
		switch expr.Op {
		case ast.OpEq, ast.OpNe, ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe, ast.OpAnd, ast.OpOr:
			_ = x
			_ = y
			return Bool
		case ast.OpAdd:
			if x.Kind == KindString || y.Kind == KindString {
				return StringT
			}
			return Number
		default:
			return Number
		}
	case *ast.UnaryExpr:
		return c.inferExpr(s, expr.X)
	case *ast.AssignExpr:
		valT := c.inferExpr(s, expr.Value)
		targetT := c.inferExpr(s, expr.Target)
		if !IsAssignable(valT, targetT) && targetT.Kind != KindAny {
			c.diags.Addf(diag.CodeTypeMismatch, expr.Pos(), "cannot assign incompatible type")
		}
		return targetT
	case *ast.CallExpr:
		return c.inferCall(s, expr)
	case *ast.NewExpr:
		ct := c.r.Class(expr.ClassName)
		for _, a := range expr.Args {
			c.inferExpr(s, a)
		}
		if ct == nil {
			return Any
		}
		return &Type{Kind: KindClass, Class: ct}
	case *ast.MemberExpr:
		xt := c.inferExpr(s, expr.X)
		if xt.Kind == KindClass {
			if f := xt.Class.FindField(expr.Name); f != nil {
				return f.Type
			}
			if m := xt.Class.FindMethod(expr.Name); m != nil {
				return &Type{Kind: KindFunction, Func: m.Sig}
			}
		}
		if xt.Kind == KindInterface {
			for _, m := range xt.Interface.Members {
				if m.Name == expr.Name {
					if m.Func != nil {
						return &Type{Kind: KindFunction, Func: m.Func}
					}
					return m.Prop
				}
			}
		}
		return Any
	case *ast.IndexExpr:
		xt := c.inferExpr(s, expr.X)
		c.inferExpr(s, expr.Index)
		if xt.Kind == KindArray {
			return xt.Elem
		}
		return Any
	case *ast.ArrayLiteral:
		var elem *Type
		for _, el := range expr.Elems {
			elem = c.inferExpr(s, el)
		}
		if elem == nil {
			elem = Any
		}
		return &Type{Kind: KindArray, Elem: elem}
	case *ast.FunctionExpr:
		fnScope := c.tree.ScopeOf[expr]
		ft := &FuncType{Result: c.r.resolveTypeExpr(expr.ReturnType)}
		for _, p := range expr.Params {
			pt := c.r.resolveTypeExpr(p.Type)
			c.declType[p] = pt
			ft.Params = append(ft.Params, pt)
		}
		c.checkStmts(fnScope, expr.Body)
		return &Type{Kind: KindFunction, Func: ft}
	case *ast.AsAnyExpr:
		c.inferExpr(s, expr.X)
		return Any
	default:
		return Any
	}
}

func (c *Checker) inferCall(s *scope.Scope, expr *ast.CallExpr) *Type {
	for _, a := range expr.Args {
		c.inferExpr(s, a)
	}
	calleeT := c.inferExpr(s, expr.Callee)
	if calleeT.Kind == KindFunction && calleeT.Func.Result != nil {
		return calleeT.Func.Result
	}
	return Any
}
