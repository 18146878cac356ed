package ts2wasm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/open-vela/ts2wasm/api"
	"github.com/open-vela/ts2wasm/ast"
)

func mainReturning(n float64) *ast.Forest {
	main := &ast.FuncDecl{
		Name:       "main",
		ReturnType: &ast.NamedType{Name: "number"},
		Body: []ast.Stmt{
			&ast.ReturnStmt{Result: &ast.Literal{Kind: ast.LitNumber, Num: n}},
		},
	}
	return &ast.Forest{Files: []*ast.File{{Path: "main.ts", Decls: []ast.Decl{main}}}}
}

// TestCompileExportsMain exercises the whole pipeline end to end: a
// single top-level `main` function compiles down to one exported
// function whose wire signature is reported back through api.Module.
func TestCompileExportsMain(t *testing.T) {
	mod, diags := Compile(mainReturning(42), NewCompileOptions())

	require.Empty(t, diags)
	require.NotNil(t, mod)
	names := mod.ExportedFunctionNames()
	require.Contains(t, names, "main")

	def, ok := mod.ExportedFunction("main")
	require.True(t, ok)
	require.Empty(t, def.ParamTypes)
	require.Equal(t, []api.ValueType{api.ValueTypeF64}, def.ResultTypes)
}

// TestCompileIsDeterministic exercises spec.md §8's determinism
// property directly through the public surface: the same forest
// compiled twice with freshly-constructed, never-mutated-afterward
// options produces the same exported function names and the same `main`
// signature.
func TestCompileIsDeterministic(t *testing.T) {
	forest := mainReturning(7)

	a, diagsA := Compile(forest, NewCompileOptions())
	b, diagsB := Compile(forest, NewCompileOptions())

	require.Empty(t, diagsA)
	require.Empty(t, diagsB)
	require.Equal(t, a.ExportedFunctionNames(), b.ExportedFunctionNames())
	defA, _ := a.ExportedFunction("main")
	defB, _ := b.ExportedFunction("main")
	require.Equal(t, defA, defB)
}

// TestCompileOptionsCloneIsolatesMutation is the determinism guarantee
// one level down: a With* call returns a copy and leaves the receiver
// unchanged, and mutating the copy afterwards does not change the
// original, the clone-before-mutate discipline config.go's With* methods
// implement.
func TestCompileOptionsCloneIsolatesMutation(t *testing.T) {
	base := NewCompileOptions()
	derived := base.WithDisableAny(true)

	require.False(t, base.disableAny)
	require.True(t, derived.disableAny)

	derived.opt = 3
	require.Zero(t, base.opt)
}

// TestCompileDisableAnyRejectsAny exercises WithDisableAny's documented
// failure mode: compiling a file that uses `any` with the dynamic-type
// runtime disabled reports a diagnostic instead of silently ignoring
// the option.
func TestCompileDisableAnyRejectsAny(t *testing.T) {
	decl := &ast.VarDecl{
		Name: "x",
		Type: &ast.NamedType{Name: "any"},
		Init: &ast.BinaryExpr{
			Op: ast.OpAdd,
			X:  &ast.Literal{Kind: ast.LitNumber, Num: 1},
			Y:  &ast.Literal{Kind: ast.LitNumber, Num: 1},
		},
	}
	forest := &ast.Forest{Files: []*ast.File{{Path: "any.ts", Decls: []ast.Decl{decl}}}}

	_, diags := Compile(forest, NewCompileOptions().WithDisableAny(true))

	require.NotEmpty(t, diags)
}
