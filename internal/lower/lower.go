// Package lower implements spec.md §4.3: translating a resolved, scope-
// and type-checked syntax forest into an internal/ir.Module. It is the
// direct analogue of the teacher's internal/engine/wazevo/frontend
// package, which lowers wasm bytecode into SSA — here the input is surface
// syntax instead of another bytecode, and the output is a structured
// statement tree instead of a CFG, but the overall shape (one big
// per-node-kind switch driving a shared Builder) is the same.
package lower

import (
	"github.com/open-vela/ts2wasm/ast"
	"github.com/open-vela/ts2wasm/internal/diag"
	"github.com/open-vela/ts2wasm/internal/ir"
	"github.com/open-vela/ts2wasm/internal/mangle"
	"github.com/open-vela/ts2wasm/internal/scope"
	"github.com/open-vela/ts2wasm/internal/types"
)

// Lowerer carries everything the per-node lowering methods need: the
// resolved scope/type information from passes 1 and 2, the shared IR
// Builder, and the module-wide symbol tables (globals, closures) built up
// as lowering proceeds.
type Lowerer struct {
	tree     *scope.Tree
	resolver *types.Resolver
	checker  *types.Checker
	layouts  *types.Layouts
	diags    *diag.Collector

	b *ir.Builder

	globalOf       map[*scope.Symbol]uint32
	staticGlobalOf map[*types.Field]uint32
	closureSeq     int
	// pendingInits holds the non-constant global initializers deferred to
	// the module's start function, in declaration order.
	pendingInits []pendingInit

	// per-function state, reset by lowerFunctionBody, lowerMethod and
	// lowerConstructor
	fn            *ir.Function
	localOf       map[*scope.Symbol]uint32
	curClass      *types.ClassType
	curScope      *scope.Scope
	curResultType *types.Type
	// env is non-nil while lowering a closure body; it maps a captured
	// Symbol to its slot in the closure's environment record.
	env     map[*scope.Symbol]uint32
	envType *envLayout
	// envLayoutID identifies env's record layout to the IR and backend,
	// the closure-side counterpart of the class layout id a receiver
	// carries. Only meaningful while env is non-nil.
	envLayoutID uint32
}

// envLayout describes one closure's captured-variable record.
type envLayout struct {
	fields []ir.Type
	slotOf map[*scope.Symbol]uint32
}

// pendingInit is a global whose initializer was not literal-foldable at
// declaration time and must instead run in the module's start function.
type pendingInit struct {
	global uint32
	expr   ast.Expr
	typ    *types.Type
}

// Lower runs pass 3 over forest using the results of passes 1 (tree) and 2
// (resolver/checker/layouts), returning the finished Module alongside any
// diagnostics raised while lowering (e.g. an unsupported construct).
func Lower(forest *ast.Forest, tree *scope.Tree, resolver *types.Resolver, checker *types.Checker, layouts *types.Layouts, diags *diag.Collector) *ir.Module {
	l := &Lowerer{
		tree:           tree,
		resolver:       resolver,
		checker:        checker,
		layouts:        layouts,
		diags:          diags,
		b:              ir.NewBuilder(),
		globalOf:       make(map[*scope.Symbol]uint32),
		staticGlobalOf: make(map[*types.Field]uint32),
	}
	l.declareGlobals(forest)
	l.lowerTopLevel(forest)
	l.lowerStartFunction()
	l.b.Module().Freeze()
	return l.b.Module()
}

// physType maps a semantic Type to its physical IR representation.
func physType(t *types.Type) ir.Type {
	if t == nil {
		return ir.TypeRef
	}
	switch t.Kind {
	case types.KindNumber:
		return ir.TypeF64
	case types.KindBool:
		return ir.TypeI32
	case types.KindVoid:
		return ir.TypeInvalid
	case types.KindNull:
		return ir.TypeNullRef
	default:
		return ir.TypeRef
	}
}

// declareGlobals assigns a module Global to every module-level var
// declaration and every static class field, walking the forest in file
// declaration order so global indices are stable across compiles of the
// same input (spec.md §8's determinism property).
func (l *Lowerer) declareGlobals(forest *ast.Forest) {
	for _, f := range forest.Files {
		l.declareGlobalsInDecls(f.Decls)
	}
}

func (l *Lowerer) declareGlobalsInDecls(decls []ast.Decl) {
	for _, d := range decls {
		switch decl := d.(type) {
		case *ast.VarDecl:
			l.declareModuleLet(decl)
		case *ast.ClassDecl:
			for _, f := range decl.Fields {
				if !f.IsStatic {
					continue
				}
				l.declareStaticField(decl, f)
			}
		case *ast.NamespaceDecl:
			l.declareGlobalsInDecls(decl.Decls)
		}
	}
}

func (l *Lowerer) declareModuleLet(decl *ast.VarDecl) {
	sym := l.tree.Global.LookupLocal(decl.Name)
	t := l.checker.DeclType(decl)
	init := l.constInitOrNil(decl.Init, t)
	l.b.NewGlobal(mangle.ModuleLet(decl.Name), physType(t), !decl.Const, init)
	idx := uint32(len(l.b.Module().Globals) - 1)
	l.globalOf[sym] = idx
	if init == nil && decl.Init != nil {
		l.pendingInits = append(l.pendingInits, pendingInit{global: idx, expr: decl.Init, typ: t})
	}
}

func (l *Lowerer) declareStaticField(decl *ast.ClassDecl, f *ast.VarDecl) {
	ct := l.resolver.Class(decl.Name)
	field := ct.FindField(f.Name)
	t := field.Type
	init := l.constInitOrNil(f.Init, t)
	l.b.NewGlobal(mangle.StaticField(decl.Name, f.Name), physType(t), true, init)
	idx := uint32(len(l.b.Module().Globals) - 1)
	l.staticGlobalOf[field] = idx
	if init == nil && f.Init != nil {
		l.pendingInits = append(l.pendingInits, pendingInit{global: idx, expr: f.Init, typ: t})
	}
}

// lowerStartFunction lowers every deferred non-constant global initializer
// into a synthesized module start function, run once before any exported
// function executes.
func (l *Lowerer) lowerStartFunction() {
	if len(l.pendingInits) == 0 {
		return
	}
	fn := l.b.NewFunction(mangle.Sanitize("$start"), nil, ir.TypeInvalid)
	l.fn = fn
	l.localOf = make(map[*scope.Symbol]uint32)
	l.curScope = l.tree.Global
	l.curClass = nil
	l.env = nil
	cursor := &fn.Body
	for _, p := range l.pendingInits {
		v := l.coerce(cursor, p.expr, p.typ)
		l.b.GlobalSet(cursor, p.global, v)
	}
	l.b.Return(cursor, ir.Value{})
	l.b.Module().Start = fn
}

// constInitOrNil returns a constant initializer Instr when init is a
// literal constant-foldable at this point, or nil when it needs evaluating
// at module start (handled by the start function lowering instead).
func (l *Lowerer) constInitOrNil(init ast.Expr, t *types.Type) *ir.Instr {
	lit, ok := init.(*ast.Literal)
	if !ok {
		return nil
	}
	switch lit.Kind {
	case ast.LitNumber:
		return &ir.Instr{Op: ir.OpConstF64, Typ: ir.TypeF64, Imm: ir.Imm{F64: lit.Num}}
	case ast.LitBool:
		v := int64(0)
		if lit.Bool {
			v = 1
		}
		return &ir.Instr{Op: ir.OpConstI32, Typ: ir.TypeI32, Imm: ir.Imm{I64: v}}
	case ast.LitString:
		return &ir.Instr{Op: ir.OpConstString, Typ: ir.TypeRef, Imm: ir.Imm{Str: lit.Str}}
	default:
		return nil
	}
}

func (l *Lowerer) lowerTopLevel(forest *ast.Forest) {
	for _, f := range forest.Files {
		l.lowerDecls(f.Decls)
	}
}

func (l *Lowerer) lowerDecls(decls []ast.Decl) {
	for _, d := range decls {
		switch decl := d.(type) {
		case *ast.FuncDecl:
			l.lowerFreeFunction(decl)
		case *ast.ClassDecl:
			l.lowerClass(decl)
		case *ast.NamespaceDecl:
			l.lowerDecls(decl.Decls)
		}
	}
}
