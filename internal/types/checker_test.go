package types

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/open-vela/ts2wasm/ast"
	"github.com/open-vela/ts2wasm/internal/diag"
	"github.com/open-vela/ts2wasm/internal/scope"
)

func TestCheckerInfersLetFromLiteral(t *testing.T) {
	decl := &ast.VarDecl{Name: "x", Init: &ast.Literal{Kind: ast.LitNumber, Num: 1}}
	forest := &ast.Forest{Files: []*ast.File{{Decls: []ast.Decl{decl}}}}

	var diags diag.Collector
	tree := scope.Build(forest, &diags)
	r := NewResolver(tree, &diags)
	r.Resolve(forest)
	c := NewChecker(r, tree, &diags)
	c.Check(forest)

	require.False(t, diags.HasErrors())
	require.Equal(t, KindNumber, c.DeclType(decl).Kind)
}

func TestCheckerReportsMismatchedInit(t *testing.T) {
	decl := &ast.VarDecl{
		Name: "x",
		Type: &ast.NamedType{Name: "number"},
		Init: &ast.Literal{Kind: ast.LitString, Str: "nope"},
	}
	forest := &ast.Forest{Files: []*ast.File{{Decls: []ast.Decl{decl}}}}

	var diags diag.Collector
	tree := scope.Build(forest, &diags)
	r := NewResolver(tree, &diags)
	r.Resolve(forest)
	c := NewChecker(r, tree, &diags)
	c.Check(forest)

	require.True(t, diags.HasErrors())
	require.Equal(t, diag.CodeTypeMismatch, diags.Diagnostics()[0].Code)
}

func TestCheckerBinaryAddOnStringsYieldsString(t *testing.T) {
	add := &ast.BinaryExpr{
		Op: ast.OpAdd,
		X:  &ast.Literal{Kind: ast.LitString, Str: "a"},
		Y:  &ast.Literal{Kind: ast.LitString, Str: "b"},
	}
	decl := &ast.VarDecl{Name: "s", Init: add}
	forest := &ast.Forest{Files: []*ast.File{{Decls: []ast.Decl{decl}}}}

	var diags diag.Collector
	tree := scope.Build(forest, &diags)
	r := NewResolver(tree, &diags)
	r.Resolve(forest)
	c := NewChecker(r, tree, &diags)
	c.Check(forest)

	require.False(t, diags.HasErrors())
	require.Equal(t, KindString, c.TypeOf(add).Kind)
}
