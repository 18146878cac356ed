package scope

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/open-vela/ts2wasm/ast"
	"github.com/open-vela/ts2wasm/internal/diag"
)

func TestBuildResolvesSimpleLet(t *testing.T) {
	xDecl := &ast.VarDecl{Name: "x", Init: &ast.Literal{Kind: ast.LitNumber, Num: 1}}
	use := &ast.Ident{Name: "x"}
	forest := &ast.Forest{Files: []*ast.File{{
		Path: "a.ts",
		Decls: []ast.Decl{
			xDecl,
			&ast.FuncDecl{Name: "f", Body: []ast.Stmt{
				&ast.ExprStmt{X: use},
			}},
		},
	}}}

	var diags diag.Collector
	tree := Build(forest, &diags)
	require.False(t, diags.HasErrors())
	sym := tree.Refs[use]
	require.NotNil(t, sym)
	require.Equal(t, "x", sym.Name)
	require.True(t, sym.Used)
}

func TestBuildReportsUnresolvedIdentifier(t *testing.T) {
	use := &ast.Ident{Name: "missing"}
	forest := &ast.Forest{Files: []*ast.File{{
		Decls: []ast.Decl{
			&ast.FuncDecl{Name: "f", Body: []ast.Stmt{&ast.ExprStmt{X: use}}},
		},
	}}}

	var diags diag.Collector
	Build(forest, &diags)
	require.True(t, diags.HasErrors())
	require.Equal(t, diag.CodeUnresolvedIdentifier, diags.Diagnostics()[0].Code)
}

func TestBuildReportsDuplicateIdentifier(t *testing.T) {
	forest := &ast.Forest{Files: []*ast.File{{
		Decls: []ast.Decl{
			&ast.VarDecl{Name: "x"},
			&ast.VarDecl{Name: "x"},
		},
	}}}

	var diags diag.Collector
	Build(forest, &diags)
	require.True(t, diags.HasErrors())
	require.Equal(t, diag.CodeDuplicateIdentifier, diags.Diagnostics()[0].Code)
}

func TestCrossesFunctionBoundaryDetectsCapture(t *testing.T) {
	counterDecl := &ast.VarDecl{Name: "counter", Init: &ast.Literal{Kind: ast.LitNumber, Num: 0}}
	inner := &ast.FuncDecl{Name: "inc"}
	outer := &ast.FuncDecl{Name: "make", Body: []ast.Stmt{
		&ast.DeclStmt{Decl: counterDecl},
		&ast.ExprStmt{X: &ast.FunctionExpr{}},
	}}
	// `inc` is never added to the forest and plays no part; what matters
	// is that the FunctionExpr's scope nests inside `make`'s function scope.
	_ = inner
	forest := &ast.Forest{Files: []*ast.File{{
		Decls: []ast.Decl{outer},
	}}}
	var diags diag.Collector
	tree := Build(forest, &diags)

	outerScope := tree.ScopeOf[outer]
	sym := outerScope.LookupLocal("counter")
	require.NotNil(t, sym)

	innerFnExpr := outer.Body[1].(*ast.ExprStmt).X.(*ast.FunctionExpr)
	innerScope := tree.ScopeOf[innerFnExpr]
	require.True(t, CrossesFunctionBoundary(innerScope, sym))
}
