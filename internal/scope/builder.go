package scope

import (
	"github.com/open-vela/ts2wasm/ast"
	"github.com/open-vela/ts2wasm/internal/diag"
)

// Tree is the finished output of Build: the scope rooted at the program's
// single global scope, plus a resolution map from every identifier use
// site to the Symbol it names (`this` and `super` are not recorded).
type Tree struct {
	Global *Scope
	// Refs maps an ast.Ident to the Symbol it resolves to. MemberExpr and
	// NewExpr resolution happens in internal/types instead, since member
	// lookup needs the type lattice, not just lexical scoping.
	Refs map[*ast.Ident]*Symbol
	// ScopeOf maps each scope-introducing node (function, method, function
	// expression, class, namespace, block, if, while, for) to the Scope
	// introduced for it, so internal/lower can look up captured variables
	// per function.
	ScopeOf map[ast.Node]*Scope
}

// Build runs both sub-passes over forest and returns the resulting Tree.
// Diagnostics from either sub-pass are recorded in diags; Build does not
// stop at the first error so a single invocation reports everything it
// can (per spec.md §7).
func Build(forest *ast.Forest, diags *diag.Collector) *Tree {
	t := &Tree{
		Global:  newScope(TagGlobal, nil),
		Refs:    make(map[*ast.Ident]*Symbol),
		ScopeOf: make(map[ast.Node]*Scope),
	}
	b := &builder{tree: t, diags: diags}
	for _, f := range forest.Files {
		b.declareDecls(t.Global, f.Decls)
	}
	for _, f := range forest.Files {
		b.resolveDecls(t.Global, f.Decls)
	}
	return t
}

type builder struct {
	tree  *Tree
	diags *diag.Collector
}

// --- declare sub-pass ---------------------------------------------------

func (b *builder) declareDecls(s *Scope, decls []ast.Decl) {
	for _, d := range decls {
		b.declareDecl(s, d)
	}
}

func (b *builder) declareDecl(s *Scope, d ast.Decl) {
	switch decl := d.(type) {
	case *ast.VarDecl:
		kind := KindVar
		if decl.Const {
			kind = KindConst
		}
		s.Declare(decl.Name, kind, decl, b.diags)
	case *ast.FuncDecl:
		s.Declare(decl.Name, KindFunction, decl, b.diags)
		fnScope := newScope(TagFunction, s)
		b.tree.ScopeOf[decl] = fnScope
		b.declareParams(fnScope, decl.Params)
		b.declareStmts(fnScope, decl.Body)
	case *ast.ClassDecl:
		sym := s.Declare(decl.Name, KindClass, decl, b.diags)
		classScope := newScope(TagClass, s)
		b.tree.ScopeOf[decl] = classScope
		sym.Scope = s
		for _, field := range decl.Fields {
			classScope.Declare(field.Name, KindField, field, b.diags)
		}
		for _, m := range decl.Methods {
			methodSym := classScope.Declare(m.Name, KindMethod, m, b.diags)
			_ = methodSym
			methodScope := newScope(TagFunction, classScope)
			b.tree.ScopeOf[m] = methodScope
			b.declareParams(methodScope, m.Params)
			b.declareStmts(methodScope, m.Body)
		}
	case *ast.InterfaceDecl:
		s.Declare(decl.Name, KindInterface, decl, b.diags)
	case *ast.NamespaceDecl:
		// Namespace members get their own nested scope for shadowing
		// purposes. No pass prefixes their symbols with the namespace
		// name: they are lowered under their unqualified names.
		s.Declare(decl.Name, KindNamespace, decl, b.diags)
		nsScope := newScope(TagNamespace, s)
		b.tree.ScopeOf[decl] = nsScope
		b.declareDecls(nsScope, decl.Decls)
	}
}

func (b *builder) declareParams(s *Scope, params []*ast.Param) {
	for _, p := range params {
		s.Declare(p.Name, KindParam, p, b.diags)
	}
}

func (b *builder) declareStmts(s *Scope, stmts []ast.Stmt) {
	for _, st := range stmts {
		b.declareStmt(s, st)
	}
}

func (b *builder) declareStmt(s *Scope, st ast.Stmt) {
	switch stmt := st.(type) {
	case *ast.DeclStmt:
		kind := KindVar
		if stmt.Decl.Const {
			kind = KindConst
		}
		s.Declare(stmt.Decl.Name, kind, stmt.Decl, b.diags)
	case *ast.BlockStmt:
		blk := newScope(TagBlock, s)
		b.tree.ScopeOf[stmt] = blk
		b.declareStmts(blk, stmt.Stmts)
	case *ast.IfStmt:
		then := newScope(TagBlock, s)
		b.tree.ScopeOf[stmt] = then
		b.declareStmts(then, stmt.Then)
		if stmt.Else != nil {
			els := newScope(TagBlock, s)
			b.tree.ScopeOf[&stmt.Else] = els
			b.declareStmts(els, stmt.Else)
		}
	case *ast.WhileStmt:
		body := newScope(TagBlock, s)
		b.tree.ScopeOf[stmt] = body
		b.declareStmts(body, stmt.Body)
	case *ast.ForStmt:
		forScope := newScope(TagBlock, s)
		b.tree.ScopeOf[stmt] = forScope
		if stmt.Init != nil {
			b.declareStmt(forScope, stmt.Init)
		}
		b.declareStmts(forScope, stmt.Body)
	}
}

// --- resolve sub-pass ----------------------------------------------------

func (b *builder) resolveDecls(s *Scope, decls []ast.Decl) {
	for _, d := range decls {
		b.resolveDecl(s, d)
	}
}

func (b *builder) resolveDecl(s *Scope, d ast.Decl) {
	switch decl := d.(type) {
	case *ast.VarDecl:
		if decl.Init != nil {
			b.resolveExpr(s, decl.Init)
		}
	case *ast.FuncDecl:
		fnScope := b.tree.ScopeOf[decl]
		b.resolveParamDefaults(fnScope, decl.Params)
		b.resolveStmts(fnScope, decl.Body)
	case *ast.ClassDecl:
		classScope := b.tree.ScopeOf[decl]
		for _, field := range decl.Fields {
			if field.Init != nil {
				b.resolveExpr(classScope, field.Init)
			}
		}
		for _, m := range decl.Methods {
			methodScope := b.tree.ScopeOf[m]
			b.resolveParamDefaults(methodScope, m.Params)
			b.resolveStmts(methodScope, m.Body)
		}
	case *ast.NamespaceDecl:
		b.resolveDecls(b.tree.ScopeOf[decl], decl.Decls)
	}
}

func (b *builder) resolveParamDefaults(s *Scope, params []*ast.Param) {
	for _, p := range params {
		if p.Default != nil {
			b.resolveExpr(s, p.Default)
		}
	}
}

func (b *builder) resolveStmts(s *Scope, stmts []ast.Stmt) {
	for _, st := range stmts {
		b.resolveStmt(s, st)
	}
}

func (b *builder) resolveStmt(s *Scope, st ast.Stmt) {
	switch stmt := st.(type) {
	case *ast.ExprStmt:
		b.resolveExpr(s, stmt.X)
	case *ast.DeclStmt:
		if stmt.Decl.Init != nil {
			b.resolveExpr(s, stmt.Decl.Init)
		}
	case *ast.BlockStmt:
		b.resolveStmts(b.tree.ScopeOf[stmt], stmt.Stmts)
	case *ast.IfStmt:
		b.resolveExpr(s, stmt.Cond)
		b.resolveStmts(b.tree.ScopeOf[stmt], stmt.Then)
		if stmt.Else != nil {
			b.resolveStmts(b.tree.ScopeOf[&stmt.Else], stmt.Else)
		}
	case *ast.WhileStmt:
		b.resolveExpr(s, stmt.Cond)
		b.resolveStmts(b.tree.ScopeOf[stmt], stmt.Body)
	case *ast.ForStmt:
		forScope := b.tree.ScopeOf[stmt]
		if stmt.Init != nil {
			b.resolveStmt(forScope, stmt.Init)
		}
		if stmt.Cond != nil {
			b.resolveExpr(forScope, stmt.Cond)
		}
		if stmt.Post != nil {
			b.resolveExpr(forScope, stmt.Post)
		}
		b.resolveStmts(forScope, stmt.Body)
	case *ast.ReturnStmt:
		if stmt.Result != nil {
			b.resolveExpr(s, stmt.Result)
		}
	}
}

func (b *builder) resolveExpr(s *Scope, e ast.Expr) {
	switch expr := e.(type) {
	case *ast.Ident:
		sym := s.Lookup(expr.Name)
		if sym == nil {
			b.diags.Addf(diag.CodeUnresolvedIdentifier, expr.Pos(), "undefined identifier %q", expr.Name)
			return
		}
		sym.Used = true
		b.tree.Refs[expr] = sym
	case *ast.BinaryExpr:
		b.resolveExpr(s, expr.X)
		b.resolveExpr(s, expr.Y)
	case *ast.UnaryExpr:
		b.resolveExpr(s, expr.X)
	case *ast.AssignExpr:
		b.resolveExpr(s, expr.Target)
		b.resolveExpr(s, expr.Value)
	case *ast.CallExpr:
		b.resolveExpr(s, expr.Callee)
		for _, a := range expr.Args {
			b.resolveExpr(s, a)
		}
	case *ast.NewExpr:
		if sym := s.Lookup(expr.ClassName); sym == nil {
			b.diags.Addf(diag.CodeUnresolvedIdentifier, expr.Pos(), "undefined class %q", expr.ClassName)
		}
		for _, a := range expr.Args {
			b.resolveExpr(s, a)
		}
	case *ast.MemberExpr:
		b.resolveExpr(s, expr.X)
	case *ast.IndexExpr:
		b.resolveExpr(s, expr.X)
		b.resolveExpr(s, expr.Index)
	case *ast.ArrayLiteral:
		for _, el := range expr.Elems {
			b.resolveExpr(s, el)
		}
	case *ast.FunctionExpr:
		fnScope := newScope(TagFunction, s)
		b.tree.ScopeOf[expr] = fnScope
		for _, p := range expr.Params {
			fnScope.Declare(p.Name, KindParam, p, b.diags)
		}
		b.declareStmts(fnScope, expr.Body)
		b.resolveParamDefaults(fnScope, expr.Params)
		b.resolveStmts(fnScope, expr.Body)
	case *ast.AsAnyExpr:
		b.resolveExpr(s, expr.X)
	}
}
