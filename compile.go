// Package ts2wasm is the public entry point: Compile, CompileOptions,
// and the translation from a finished internal/backend.Module into the
// api package's public Module view. It plays the role the teacher's own
// root package plays for wazero — builder.go/config.go's functional
// options and wasm.go's top-level CompileModule — generalized from
// "configure and instantiate a runtime" to "configure and run this
// project's own compile pipeline" (spec.md §6), since this project never
// instantiates what it emits.
package ts2wasm

import (
	"github.com/open-vela/ts2wasm/api"
	"github.com/open-vela/ts2wasm/ast"
	"github.com/open-vela/ts2wasm/internal/backend"
	"github.com/open-vela/ts2wasm/internal/diag"
	"github.com/open-vela/ts2wasm/internal/lower"
	"github.com/open-vela/ts2wasm/internal/scope"
	"github.com/open-vela/ts2wasm/internal/types"
)

// Compile runs every pass spec.md §4 names, in order, over forest: scope
// building (internal/scope), type resolution and checking
// (internal/types), IR lowering (internal/lower), and wasm emission
// (internal/backend) — the driver tying passes 2 through 5 together
// behind the one entry point spec.md §6 documents.
//
// Every pass shares a single diag.Collector and follows spec.md §7's
// collect-all-then-halt discipline: a pass whose own errors would make
// every later pass's assumptions unsound (scope building, resolution,
// checking) stops the pipeline immediately and returns its diagnostics
// with a nil Module, but within a pass, every file is still walked to
// completion before that check happens, so a caller always sees every
// error a given stage can report, not just the first.
func Compile(forest *ast.Forest, opts CompileOptions) (*api.Module, []*diag.Diagnostic) {
	diags := &diag.Collector{}

	tree := scope.Build(forest, diags)
	if diags.HasErrors() {
		return nil, diags.Diagnostics()
	}

	resolver := types.NewResolver(tree, diags)
	resolver.Resolve(forest)
	if diags.HasErrors() {
		return nil, diags.Diagnostics()
	}

	checker := types.NewChecker(resolver, tree, diags)
	checker.Check(forest)
	if diags.HasErrors() {
		return nil, diags.Diagnostics()
	}

	classNames := resolver.ClassNames()
	classes := make(map[string]*types.ClassType, len(classNames))
	for _, name := range classNames {
		classes[name] = resolver.Class(name)
	}
	layouts := types.BuildLayouts(classes)

	irMod := lower.Lower(forest, tree, resolver, checker, layouts, diags)
	if diags.HasErrors() {
		return nil, diags.Diagnostics()
	}

	backendMod := backend.Emit(irMod, resolver, layouts, opts.toBackendOptions(), diags)
	if diags.HasErrors() {
		return nil, diags.Diagnostics()
	}

	return toAPIModule(opts.moduleName, backendMod), diags.Diagnostics()
}

// toAPIModule projects a finished internal/backend.Module down onto the
// api package's public, read-only export surface: every defined
// function that carries a non-empty Exported name, translated to its
// wire-level FunctionDefinition. Everything else backend.Module carries
// (locals, instruction bodies, the type table's struct/array layouts,
// the name section) stays internal, the same boundary the teacher draws
// between its public api.Module and its internal wasm.Module.
func toAPIModule(name string, m *backend.Module) *api.Module {
	mod := api.NewModule(name)
	defs := m.Types.Defs()
	for _, fn := range m.Funcs {
		if fn.Exported == "" {
			continue
		}
		sig := defs[fn.SigIdx].Func
		mod.AddFunction(api.FunctionDefinition{
			Name:        fn.Exported,
			ParamTypes:  valueTypes(sig.Params, defs),
			ResultTypes: valueTypes(sig.Results, defs),
		})
	}
	return mod
}

func valueTypes(vs []backend.ValType, defs []backend.TypeDef) []api.ValueType {
	out := make([]api.ValueType, len(vs))
	for i, v := range vs {
		out[i] = valueType(v, defs)
	}
	return out
}

// valueType narrows one backend.ValType down to the single-byte tag
// api.ValueType reports to a caller, resolving a concrete struct/array/
// function type-section reference to whichever of those three kinds it
// actually names.
func valueType(v backend.ValType, defs []backend.TypeDef) api.ValueType {
	switch v.Kind {
	case backend.ValI32:
		return api.ValueTypeI32
	case backend.ValF64:
		return api.ValueTypeF64
	case backend.ValRef:
		return refValueType(v, defs)
	default:
		// The physical type lattice this project lowers to (internal/ir's
		// i32/f64/ref) never produces ValI64 or ValF32; fall back to the
		// closest numeric tag rather than panic on an unreachable case.
		return api.ValueTypeI32
	}
}

func refValueType(v backend.ValType, defs []backend.TypeDef) api.ValueType {
	switch v.Heap.Abstract {
	case backend.HeapAny:
		return api.ValueTypeAnyref
	case backend.HeapEq:
		return api.ValueTypeEqref
	case backend.HeapI31:
		return api.ValueTypeI31ref
	case backend.HeapStruct:
		return api.ValueTypeStructref
	case backend.HeapArray:
		return api.ValueTypeArrayref
	case backend.HeapFunc:
		return api.ValueTypeFuncref
	case backend.HeapExtern:
		return api.ValueTypeExternref
	case backend.HeapNoneRef:
		return api.ValueTypeNullref
	default:
		// HeapNone: a concrete type-section entry. Report it by
		// whichever of struct/array/func that entry actually declares.
		def := defs[v.Heap.Index]
		switch {
		case def.Array != nil:
			return api.ValueTypeArrayref
		case def.Func != nil:
			return api.ValueTypeFuncref
		default:
			return api.ValueTypeStructref
		}
	}
}
