package types

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/open-vela/ts2wasm/ast"
	"github.com/open-vela/ts2wasm/internal/diag"
	"github.com/open-vela/ts2wasm/internal/scope"
)

// TestResolveCyclicClassReference exercises the two-phase placeholder
// resolution: Node.next : Node must resolve even though Node is still
// being filled in when the field's type annotation is processed.
func TestResolveCyclicClassReference(t *testing.T) {
	nodeDecl := &ast.ClassDecl{
		Name: "Node",
		Fields: []*ast.VarDecl{
			{Name: "next", Type: &ast.NullableType{Elem: &ast.NamedType{Name: "Node"}}},
			{Name: "value", Type: &ast.NamedType{Name: "number"}},
		},
	}
	forest := &ast.Forest{Files: []*ast.File{{Decls: []ast.Decl{nodeDecl}}}}

	var diags diag.Collector
	tree := scope.Build(forest, &diags)
	r := NewResolver(tree, &diags)
	r.Resolve(forest)

	require.False(t, diags.HasErrors())
	node := r.Class("Node")
	require.NotNil(t, node)
	next := node.FindField("next")
	require.NotNil(t, next)
	require.Equal(t, KindClass, next.Type.Kind)
	require.Same(t, node, next.Type.Class)
	require.True(t, next.Type.Nullable)
}

func TestClassSatisfiesStructuralInterface(t *testing.T) {
	shape := &ast.InterfaceDecl{
		Name: "Shaped",
		Members: []*ast.InterfaceMember{
			{Name: "area", ReturnType: &ast.NamedType{Name: "number"}, Params: []*ast.Param{}},
		},
	}
	circle := &ast.ClassDecl{
		Name:       "Circle",
		Implements: []string{"Shaped"},
		Methods: []*ast.FuncDecl{
			{Name: "area", Params: nil, ReturnType: &ast.NamedType{Name: "number"}},
		},
	}
	forest := &ast.Forest{Files: []*ast.File{{Decls: []ast.Decl{shape, circle}}}}

	var diags diag.Collector
	tree := scope.Build(forest, &diags)
	r := NewResolver(tree, &diags)
	r.Resolve(forest)

	require.False(t, diags.HasErrors())
	circleT := r.Class("Circle")
	shapedT := r.Interface("Shaped")
	require.True(t, IsAssignable(&Type{Kind: KindClass, Class: circleT}, &Type{Kind: KindInterface, Interface: shapedT}))
}

func TestNonConformingClassReportsDiagnostic(t *testing.T) {
	shape := &ast.InterfaceDecl{
		Name: "Shaped",
		Members: []*ast.InterfaceMember{
			{Name: "area", ReturnType: &ast.NamedType{Name: "number"}, Params: []*ast.Param{}},
		},
	}
	square := &ast.ClassDecl{Name: "Square", Implements: []string{"Shaped"}}
	forest := &ast.Forest{Files: []*ast.File{{Decls: []ast.Decl{shape, square}}}}

	var diags diag.Collector
	tree := scope.Build(forest, &diags)
	r := NewResolver(tree, &diags)
	r.Resolve(forest)

	require.True(t, diags.HasErrors())
	require.Equal(t, diag.CodeNotAssignable, diags.Diagnostics()[0].Code)
}
