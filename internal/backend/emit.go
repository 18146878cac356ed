package backend

import (
	"fmt"
	"sort"

	"github.com/open-vela/ts2wasm/internal/diag"
	"github.com/open-vela/ts2wasm/internal/ir"
	"github.com/open-vela/ts2wasm/internal/mangle"
	"github.com/open-vela/ts2wasm/internal/types"
)

// emitter carries the state threaded through one Emit call: the type
// table under construction and the lookup tables that let instruction
// lowering turn an IR-level layout/field/slot id into a concrete wasm
// type or field index. It is discarded once Emit returns, unlike
// internal/lower's Lowerer, nothing here survives across functions.
type emitter struct {
	opts  Options
	diags *diag.Collector
	mod   *Module
	types *TypeTable

	// instanceType maps a ClassType.LayoutID to its instance struct type
	// index. Field 0 of every instance struct is the class's vtable
	// reference; declared fields follow at +1 from their semantic Slot.
	instanceType map[uint32]uint32
	// vtableType maps a LayoutID to its dispatch-table struct type index.
	vtableType map[uint32]uint32
	// vtableGlobal maps a LayoutID to the module global holding that
	// class's single shared vtable instance.
	vtableGlobal map[uint32]uint32
	// ifaceViewType maps an InterfaceType.LayoutID to the two-field
	// (instance, dispatch) view struct type OpWidenInterface constructs.
	ifaceViewType map[uint32]uint32
	// ifaceFuncsType maps an InterfaceType.LayoutID to its per-member
	// dispatch struct type: one funcref field per method member, one i32
	// field (the member's field slot) per property member. No lowered
	// instruction reads the i32 fields.
	ifaceFuncsType map[uint32]uint32
	// dispatchGlobal maps a DispatchRecord.ID to the global holding that
	// record's resolved member table, used by OpInterfaceCall.
	dispatchGlobal map[uint32]uint32
	// dispatchByID maps a DispatchRecord.ID back to the record itself, so
	// OpWidenInterface (which only carries the ID) can recover which
	// interface's view type to produce.
	dispatchByID map[uint32]*types.DispatchRecord
	// envType maps an EnvLayouts index to its closure environment struct
	// type index.
	envType []uint32
	// closureType is the single struct type every closure literal builds
	// into: an opaque env reference plus the typed function reference of
	// its body, shared across every closure regardless of what it
	// captures, the closure-side counterpart of a class instance's vtable
	// indirection.
	closureType uint32
	// arrayType maps a physical element ir.Type to its array type index,
	// keyed by physical type since that is all OpNewArray/OpArrayGet/Set
	// carry post-lowering, see SPEC_FULL.md note in DESIGN.md.
	arrayType map[ir.Type]uint32
	// funcIndex maps a mangled function symbol to its absolute index in
	// the combined import+defined function index space.
	funcIndex map[string]uint32
	// funcSigIdx maps a mangled function symbol to its type-section
	// signature index, for call_ref typing at closure call sites.
	funcSigIdx map[string]uint32

	importFuncCount uint32
	startPrelude    []Instr // prelude prepended to the module's start function

	// strings is the IR module's interned string pool, used to resolve an
	// OpConstString literal to a data-segment offset/length pair.
	strings *ir.StringPool
	// globalOffset is how many vtable/dispatch globals precede the IR's
	// own globals in e.mod.Globals; OpGlobalGet/OpGlobalSet's Imm.Index is
	// 0-based into the IR's own global list alone and needs this added.
	globalOffset uint32
}

// Emit walks a fully lowered module plus its resolved class/interface
// layout into a finished backend.Module, ready for internal/backend/
// encoding or internal/backend/text to serialize. A runtime import or call
// target that cannot be resolved (a disabled import namespace, an unknown
// static or closure symbol) is recorded in diags as UnresolvedBuiltin and
// a placeholder instruction is emitted in its place, so the caller must
// check diags before using the result; other input invariants violated
// here are bugs in an earlier pass and panic.
func Emit(m *ir.Module, resolver *types.Resolver, layouts *types.Layouts, opts Options, diags *diag.Collector) *Module {
	e := &emitter{
		opts:           opts,
		diags:          diags,
		types:          NewTypeTable(),
		instanceType:   map[uint32]uint32{},
		vtableType:     map[uint32]uint32{},
		vtableGlobal:   map[uint32]uint32{},
		ifaceViewType:  map[uint32]uint32{},
		ifaceFuncsType: map[uint32]uint32{},
		dispatchGlobal: map[uint32]uint32{},
		dispatchByID:   map[uint32]*types.DispatchRecord{},
		arrayType:      map[ir.Type]uint32{},
		funcIndex:      map[string]uint32{},
		funcSigIdx:     map[string]uint32{},
	}
	e.mod = &Module{Types: e.types}
	e.strings = m.Strings

	e.declareClassTypes(resolver)
	e.declareInterfaceViewTypes(resolver)
	e.declareEnvTypes(m)
	e.declareClosureType()
	e.declareImports()
	e.assignFunctionIndices(m)
	e.declareVTableGlobals(resolver)
	e.declareDispatchGlobals(layouts)
	// Every OpConstString anywhere in the module must be interned before
	// m.Freeze assigns data-segment offsets, and Freeze must run before any
	// lowering below reads StringPool.Offset, so this pre-scan and the
	// resulting Freeze both have to happen between the type/global
	// declarations above and the body lowering below.
	e.internStrings(m)
	m.Freeze()
	e.declareFunctions(m)
	e.declareGlobals(m)
	e.declareMemoryAndTable()
	e.declareData(m)
	e.declareStart(m)
	e.declareNames(m)

	return e.mod
}

// internStrings walks every function body and global initializer, interning
// each string literal it finds into the module's StringPool. Run once,
// before m.Freeze, so every literal has a data-segment offset by the time
// body lowering needs one.
func (e *emitter) internStrings(m *ir.Module) {
	var walk func(list []*ir.Instr)
	walk = func(list []*ir.Instr) {
		for _, instr := range list {
			if instr.Op == ir.OpConstString {
				m.Strings.Intern(instr.Imm.Str)
			}
			walk(instr.Body)
			walk(instr.Else)
		}
	}
	for _, fn := range m.Functions {
		walk(fn.Body)
	}
	for _, g := range m.Globals {
		if g.Init != nil && g.Init.Op == ir.OpConstString {
			m.Strings.Intern(g.Init.Imm.Str)
		}
	}
}

// --- type section -----------------------------------------------------

// declareClassTypes declares one instance struct type per class,
// extends-first so a derived class's struct is emitted as a real wasm GC
// subtype of its base's (an upcast is then a no-op at the wasm level,
// matching the nominal subtyping ClassType.IsSubclassOf already encodes
// at the semantic level), plus one independent vtable struct type per
// class holding a funcref per flattened vtable slot.
func (e *emitter) declareClassTypes(r *types.Resolver) {
	visited := map[*types.ClassType]bool{}
	var visit func(c *types.ClassType)
	visit = func(c *types.ClassType) {
		if visited[c] {
			return
		}
		if c.Extends != nil {
			visit(c.Extends)
		}
		visited[c] = true

		var super *uint32
		if c.Extends != nil {
			idx := e.instanceType[c.Extends.LayoutID]
			super = &idx
		}
		fields := []StructField{{Name: "vtable", Type: Concrete(e.vtableTypeFor(c), false), Mutable: false}}
		for _, f := range allFields(c) {
			fields = append(fields, StructField{Name: f.Name, Type: e.valOf(f.Type), Mutable: true})
		}
		idx := e.types.AddStruct("instance."+c.Name, &StructSig{Fields: fields}, super)
		e.instanceType[c.LayoutID] = idx
	}
	for _, c := range r.Classes() {
		visit(c)
	}
}

// vtableTypeFor declares (once) class c's vtable struct type: one nullable
// funcref field per entry in its flattened vtable, sized to the full
// inherited-plus-own count so an override and its overridden slot always
// land at the identical field index.
func (e *emitter) vtableTypeFor(c *types.ClassType) uint32 {
	if idx, ok := e.vtableType[c.LayoutID]; ok {
		return idx
	}
	n := vtableSlotCount(c)
	fields := make([]StructField, n)
	for i := range fields {
		fields[i] = StructField{Name: fmt.Sprintf("slot%d", i), Type: FuncRef, Mutable: false}
	}
	idx := e.types.AddStruct("vtable."+c.Name, &StructSig{Fields: fields}, nil)
	e.vtableType[c.LayoutID] = idx
	return idx
}

// allFields returns every non-static field reachable from c, inherited
// fields first, in exactly the order types.BuildLayouts assigned Slot
// values, so this list's index i always equals Field.Slot for the
// field it holds.
func allFields(c *types.ClassType) []*types.Field {
	var out []*types.Field
	if c.Extends != nil {
		out = append(out, allFields(c.Extends)...)
	}
	for _, f := range c.Fields {
		if !f.Static {
			out = append(out, f)
		}
	}
	return out
}

// vtableSlotCount returns the number of distinct vtable slots c's method
// set occupies, inherited ones included.
func vtableSlotCount(c *types.ClassType) uint32 {
	var max uint32
	for cur := c; cur != nil; cur = cur.Extends {
		for _, m := range cur.Methods {
			if m.VTableSlot+1 > max {
				max = m.VTableSlot + 1
			}
		}
	}
	return max
}

// declareInterfaceViewTypes declares, per interface, the member dispatch
// struct (one field per interface member, method members typed funcref,
// property members typed i32) and the two-field (instance, dispatch) view
// struct OpWidenInterface constructs. A widened reference never touches
// the source instance's own struct beyond this; a method call resolves
// straight off the dispatch struct's pre-bound funcref. The property
// members' slot indexes are stored but not used: property access through
// an interface-typed value is not lowered (internal/lower reports it as
// an unknown member), and nothing calls libdstructdyn's struct_get_dyn/
// struct_set_dyn.
func (e *emitter) declareInterfaceViewTypes(r *types.Resolver) {
	for _, it := range r.Interfaces() {
		dfields := make([]StructField, len(it.Members))
		for i, m := range it.Members {
			name := fmt.Sprintf("member%d", i)
			if m.Func != nil {
				dfields[i] = StructField{Name: name, Type: FuncRef, Mutable: false}
			} else {
				dfields[i] = StructField{Name: name, Type: I32, Mutable: false}
			}
		}
		dispatchIdx := e.types.AddStruct("dispatch."+it.Name, &StructSig{Fields: dfields}, nil)
		e.ifaceFuncsType[it.LayoutID] = dispatchIdx

		fields := []StructField{
			{Name: "instance", Type: EqRef, Mutable: false},
			{Name: "dispatch", Type: Concrete(dispatchIdx, false), Mutable: false},
		}
		idx := e.types.AddStruct("view."+it.Name, &StructSig{Fields: fields}, nil)
		e.ifaceViewType[it.LayoutID] = idx
	}
}

// declareEnvTypes declares one struct type per closure literal's captured-
// variable record, in EnvLayouts order (itself assigned in closure
// lowering order, which is deterministic since lowering walks the AST
// depth-first).
func (e *emitter) declareEnvTypes(m *ir.Module) {
	e.envType = make([]uint32, len(m.EnvLayouts))
	for i, layout := range m.EnvLayouts {
		fields := make([]StructField, len(layout.Fields))
		for j, t := range layout.Fields {
			fields[j] = StructField{Name: fmt.Sprintf("capture%d", j), Type: physToVal(t), Mutable: true}
		}
		e.envType[i] = e.types.AddStruct(fmt.Sprintf("env.%d", i), &StructSig{Fields: fields}, nil)
	}
}

// declareClosureType declares the one struct type every closure literal
// in the module builds into and every OpCallClosure casts down to before
// reading its env/fn pair back out, see the closureType doc comment above.
func (e *emitter) declareClosureType() {
	fields := []StructField{
		{Name: "env", Type: EqRef, Mutable: false},
		{Name: "fn", Type: FuncRef, Mutable: false},
	}
	e.closureType = e.types.AddStruct("closure", &StructSig{Fields: fields}, nil)
}

// arrayTypeFor returns the array type index backing an array whose
// element physical type is elem, declaring it on first use. Array
// literals only ever carry a physical element type by the time lowering
// reaches the backend (OpNewArray.Imm.Index is an ir.Type tag, not a
// semantic types.Type), so two semantically distinct element types that
// share a physical representation, e.g. two unrelated classes, both
// TypeRef, also share one array type here.
func (e *emitter) arrayTypeFor(elem ir.Type) uint32 {
	if idx, ok := e.arrayType[elem]; ok {
		return idx
	}
	idx := e.types.AddArray(fmt.Sprintf("array.%s", elem), &ArraySig{Elem: physToVal(elem), Mutable: true})
	e.arrayType[elem] = idx
	return idx
}

// valOf maps a semantic types.Type to the ValType its instance fields and
// globals are declared with.
func (e *emitter) valOf(t *types.Type) ValType {
	if t == nil {
		return AnyRef
	}
	switch t.Kind {
	case types.KindNumber:
		return F64
	case types.KindBool:
		return I32
	case types.KindString:
		return ValType{Kind: ValRef, Heap: HeapType{Abstract: HeapEq}, Nullable: t.Nullable}
	case types.KindClass:
		if idx, ok := e.instanceType[t.Class.LayoutID]; ok {
			return Concrete(idx, t.Nullable)
		}
		return AnyRef
	case types.KindInterface:
		if idx, ok := e.ifaceViewType[t.Interface.LayoutID]; ok {
			return Concrete(idx, t.Nullable)
		}
		return AnyRef
	case types.KindArray:
		return Concrete(e.arrayTypeFor(physOf(t.Elem)), t.Nullable)
	case types.KindFunction:
		return FuncRef
	case types.KindVoid, types.KindNull:
		return ValType{Kind: ValRef, Heap: HeapType{Abstract: HeapNoneRef}, Nullable: true}
	default: // KindAny
		return AnyRef
	}
}

// physOf mirrors internal/lower's physType mapping from a semantic type
// to its physical representation, duplicated here rather than imported
// since internal/lower depends on internal/ir, not internal/backend, and
// the mapping is four lines, not worth a shared-package dependency
// edge for.
func physOf(t *types.Type) ir.Type {
	if t == nil {
		return ir.TypeRef
	}
	switch t.Kind {
	case types.KindNumber:
		return ir.TypeF64
	case types.KindBool:
		return ir.TypeI32
	default:
		return ir.TypeRef
	}
}

// physToVal maps a physical ir.Type (all structural distinctions already
// erased by internal/lower) to the ValType the backend declares locals,
// env fields and array elements with.
func physToVal(t ir.Type) ValType {
	switch t {
	case ir.TypeI32:
		return I32
	case ir.TypeF64:
		return F64
	case ir.TypeNullRef:
		return ValType{Kind: ValRef, Heap: HeapType{Abstract: HeapNoneRef}, Nullable: true}
	default:
		return AnyRef
	}
}

// --- imports ------------------------------------------------------------

// importSig names one import's parameter/result shape.
type importSig struct {
	params  []ValType
	results []ValType
}

// declareImports registers the three host-provided import namespaces
// spec.md §6 names, skipping any Options disables to trim a module that
// never exercises a boundary it doesn't need. Each entry gets its own
// precise signature rather than one generic any-to-any shape, since a
// physical i32/f64/ref operand can't be passed through a wasm import
// boundary typed any differently than it actually is.
func (e *emitter) declareImports() {
	if !e.opts.DisableAny {
		for _, kv := range []struct {
			name string
			sig  importSig
		}{
			{"box_i32", importSig{[]ValType{I32}, []ValType{AnyRef}}},
			{"box_f64", importSig{[]ValType{F64}, []ValType{AnyRef}}},
			{"box_ref", importSig{[]ValType{EqRef}, []ValType{AnyRef}}},
			{"unbox_i32", importSig{[]ValType{AnyRef}, []ValType{I32}}},
			{"unbox_f64", importSig{[]ValType{AnyRef}, []ValType{F64}}},
			{"unbox_ref", importSig{[]ValType{AnyRef}, []ValType{EqRef}}},
			{"type_test", importSig{[]ValType{AnyRef, I32}, []ValType{I32}}},
			{"get_property", importSig{[]ValType{AnyRef, EqRef}, []ValType{AnyRef}}},
			{"set_property", importSig{[]ValType{AnyRef, EqRef, AnyRef}, nil}},
			{"new_object", importSig{nil, []ValType{AnyRef}}},
		} {
			e.addImportFunc("libdyntype", kv.name, kv.sig)
		}
	}
	if !e.opts.DisableInterface {
		for _, kv := range []struct {
			name string
			sig  importSig
		}{
			{"struct_get_dyn", importSig{[]ValType{EqRef, I32}, []ValType{AnyRef}}},
			{"struct_set_dyn", importSig{[]ValType{EqRef, I32, AnyRef}, nil}},
		} {
			e.addImportFunc("libdstructdyn", kv.name, kv.sig)
		}
	}
	if !e.opts.DisableBuiltIn {
		for _, kv := range []struct {
			name string
			sig  importSig
		}{
			{"string_length", importSig{[]ValType{AnyRef}, []ValType{F64}}},
			{"string_slice", importSig{[]ValType{AnyRef, F64, F64}, []ValType{AnyRef}}},
			{"string_concat", importSig{[]ValType{AnyRef, AnyRef}, []ValType{AnyRef}}},
			{"string_eq", importSig{[]ValType{AnyRef, AnyRef}, []ValType{I32}}},
			{"string_from_data", importSig{[]ValType{I32, I32}, []ValType{EqRef}}},
			{"math_sqrt", importSig{[]ValType{F64}, []ValType{F64}}},
			{"math_abs", importSig{[]ValType{F64}, []ValType{F64}}},
			{"math_ceil", importSig{[]ValType{F64}, []ValType{F64}}},
			{"math_floor", importSig{[]ValType{F64}, []ValType{F64}}},
			{"math_trunc", importSig{[]ValType{F64}, []ValType{F64}}},
			{"math_fmod", importSig{[]ValType{F64, F64}, []ValType{F64}}},
			{"array_isarray", importSig{[]ValType{AnyRef}, []ValType{I32}}},
			{"console_log", importSig{[]ValType{AnyRef}, nil}},
		} {
			e.addImportFunc("builtIn", kv.name, kv.sig)
		}
	}
}

func (e *emitter) addImportFunc(module, name string, sig importSig) {
	sigIdx := e.types.InternFunc("$"+module+"."+name, &FuncSig{Params: sig.params, Results: sig.results})
	symbol := module + "." + name
	e.mod.Imports = append(e.mod.Imports, Import{Module: module, Name: name, Kind: ImportFunc, SigIdx: sigIdx})
	e.funcIndex[symbol] = e.importFuncCount
	e.funcSigIdx[symbol] = sigIdx
	e.importFuncCount++
}

// builtinCall returns the call-target function index for a builtIn.*
// helper, or false (recording an UnresolvedBuiltin diagnostic) if
// Options.DisableBuiltIn dropped the import a lowered instruction still
// needs.
func (e *emitter) builtinCall(name string) (uint32, bool) {
	return e.importCall("builtIn", name)
}

// dyntypeCall returns the call-target function index for a libdyntype.*
// helper.
func (e *emitter) dyntypeCall(name string) (uint32, bool) {
	return e.importCall("libdyntype", name)
}

// structDynCall returns the call-target function index for a
// libdstructdyn.* helper.
func (e *emitter) structDynCall(name string) (uint32, bool) {
	return e.importCall("libdstructdyn", name)
}

func (e *emitter) importCall(module, name string) (uint32, bool) {
	idx, ok := e.funcIndex[module+"."+name]
	if !ok {
		e.diags.Addf(diag.CodeUnresolvedBuiltin, diag.Pos{}, "%s.%s required but disabled", module, name)
	}
	return idx, ok
}

// --- functions ------------------------------------------------------------

// assignFunctionIndices fixes the absolute function index of every
// defined function before any body is lowered, so a direct call or
// ref.func to a function declared later in m.Functions still resolves.
// mutual recursion and forward references are both common in class
// method bodies.
func (e *emitter) assignFunctionIndices(m *ir.Module) {
	for i, fn := range m.Functions {
		e.funcIndex[fn.Symbol] = e.importFuncCount + uint32(i)
	}
}

func (e *emitter) declareFunctions(m *ir.Module) {
	for _, fn := range m.Functions {
		sig := &FuncSig{Results: resultSlice(fn.Result)}
		for _, p := range fn.Params {
			sig.Params = append(sig.Params, physToVal(p))
		}
		sigIdx := e.types.InternFunc("$fn."+fn.Symbol, sig)
		e.funcSigIdx[fn.Symbol] = sigIdx

		bf := &Func{Name: fn.Symbol, SigIdx: sigIdx}
		for _, l := range fn.Locals {
			bf.Locals = append(bf.Locals, physToVal(l))
		}
		be := newBodyEmitter(e, fn, uint32(len(fn.Params)+len(fn.Locals)))
		bf.Body = be.lowerList(fn.Body)
		bf.Locals = append(bf.Locals, be.extraLocals...)
		if fn.Exported {
			bf.Exported = fn.Symbol
		}
		e.mod.Funcs = append(e.mod.Funcs, bf)
	}
}

func resultSlice(t ir.Type) []ValType {
	if t == ir.TypeInvalid {
		return nil
	}
	return []ValType{physToVal(t)}
}

// --- vtables & dispatch records ---------------------------------------

// declareVTableGlobals allocates one module global per class, each
// holding that class's single shared vtable instance, and queues the
// struct.new-plus-ref.func sequence that builds it into the module's
// start-function prelude, wasm's constant-expression globals cannot
// construct a GC struct directly, only import/numeric/ref.null
// initializers, so the actual build has to run as ordinary code.
func (e *emitter) declareVTableGlobals(r *types.Resolver) {
	for _, c := range r.Classes() {
		vtIdx := e.vtableType[c.LayoutID]
		g := Global{Name: mangle.VTable(c.Name), Type: Concrete(vtIdx, true), Mutable: true, Init: []Instr{{Op: OpRefNull}}}
		e.mod.Globals = append(e.mod.Globals, g)
		gIdx := uint32(len(e.mod.Globals) - 1)
		e.vtableGlobal[c.LayoutID] = gIdx

		methodArgs := make([]Instr, vtableSlotCount(c))
		for i := range methodArgs {
			methodArgs[i] = Instr{Op: OpRefNull}
		}
		// Ancestors first, so a derived class's override, which shares
		// its base's VTableSlot, is the one left standing at that slot.
		var chain []*types.ClassType
		for cur := c; cur != nil; cur = cur.Extends {
			chain = append(chain, cur)
		}
		for i := len(chain) - 1; i >= 0; i-- {
			cur := chain[i]
			for _, m := range cur.Methods {
				symbol := mangle.Method(cur.Name, m.Name)
				methodArgs[m.VTableSlot] = Instr{Op: OpRefFunc, Idx: e.funcIndex[symbol]}
			}
		}
		e.startPrelude = append(e.startPrelude,
			buildSeq(methodArgs, Instr{Op: OpStructNew, TypeIdx: vtIdx})...)
		e.startPrelude = append(e.startPrelude, Instr{Op: OpGlobalSet, Idx: gIdx})
	}
}

// declareDispatchGlobals allocates one module global per DispatchRecord,
// holding that (class, interface) pair's resolved member dispatch struct:
// a method member's field is the class's actual override, ref.func-bound;
// a property member's field is its instance field slot, left as a plain
// i32 for struct_get_dyn/struct_set_dyn to index with. Like the vtable
// globals, the struct.new has to run in the start prelude, a dispatch
// struct holding a funcref field can't be built by a constant initializer.
func (e *emitter) declareDispatchGlobals(layouts *types.Layouts) {
	var ids []uint32
	for _, rec := range layouts.Dispatch {
		ids = append(ids, rec.ID)
		e.dispatchByID[rec.ID] = rec
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		rec := e.dispatchByID[id]
		dispatchIdx := e.ifaceFuncsType[rec.Interface.LayoutID]
		g := Global{
			Name:    fmt.Sprintf("dispatch.%s.%s", rec.Class.Name, rec.Interface.Name),
			Type:    Concrete(dispatchIdx, true),
			Mutable: true,
			Init:    []Instr{{Op: OpRefNull}},
		}
		e.mod.Globals = append(e.mod.Globals, g)
		gIdx := uint32(len(e.mod.Globals) - 1)
		e.dispatchGlobal[id] = gIdx

		args := make([]Instr, len(rec.Interface.Members))
		for i, member := range rec.Interface.Members {
			if member.Func != nil {
				owner := findMethodOwner(rec.Class, member.Name)
				args[i] = Instr{Op: OpRefFunc, Idx: e.funcIndex[mangle.Method(owner.Name, member.Name)]}
			} else {
				args[i] = Instr{Op: OpI32Const, I32: int32(rec.MemberSlots[i])}
			}
		}
		e.startPrelude = append(e.startPrelude, buildSeq(args, Instr{Op: OpStructNew, TypeIdx: dispatchIdx})...)
		e.startPrelude = append(e.startPrelude, Instr{Op: OpGlobalSet, Idx: gIdx})
	}
}

// findMethodOwner returns the class in c's Extends chain, starting from c
// itself, that declares name: the class whose method body the name's
// nearest override actually resolves to.
func findMethodOwner(c *types.ClassType, name string) *types.ClassType {
	for cur := c; cur != nil; cur = cur.Extends {
		for _, m := range cur.Methods {
			if m.Name == name {
				return cur
			}
		}
	}
	return nil
}

// buildSeq appends each element's instruction sequence (here always a
// single Instr) followed by ctor, producing the flat operand-then-op
// shape a stack machine expects for a struct.new/array.new_fixed.
func buildSeq(args []Instr, ctor Instr) []Instr {
	out := make([]Instr, 0, len(args)+1)
	out = append(out, args...)
	ctor.Idx = uint32(len(args))
	out = append(out, ctor)
	return out
}

// --- globals, memory, data, start ---------------------------------------

// declareGlobals declares the IR's own module-level globals (hoisted
// top-level lets, static fields), appended after the vtable/dispatch
// globals declareVTableGlobals/declareDispatchGlobals already added.
// globalOffset records where this region starts, OpGlobalGet/OpGlobalSet's
// Imm.Index is 0-based into this region alone and needs that offset added.
func (e *emitter) declareGlobals(m *ir.Module) {
	e.globalOffset = uint32(len(e.mod.Globals))
	for _, g := range m.Globals {
		typ := physToVal(g.Typ)
		bg := Global{Name: g.Symbol, Type: typ, Mutable: g.Mutable}
		switch {
		case g.Init == nil:
			bg.Init = []Instr{zeroOf(typ)}
		case g.Init.Op == ir.OpConstI32:
			bg.Init = []Instr{{Op: OpI32Const, I32: int32(g.Init.Imm.I64)}}
		case g.Init.Op == ir.OpConstF64:
			bg.Init = []Instr{{Op: OpF64Const, F64: g.Init.Imm.F64}}
		case g.Init.Op == ir.OpConstNull:
			bg.Init = []Instr{{Op: OpRefNull}}
		case g.Init.Op == ir.OpConstString:
			// A GC string value can't be built by a constant initializer
			// (it takes a call into string_from_data), so this global
			// starts null and the real value is assigned in the start
			// prelude, same workaround as the vtable/dispatch globals.
			bg.Init = []Instr{{Op: OpRefNull}}
			gIdx := uint32(len(e.mod.Globals))
			e.startPrelude = append(e.startPrelude, e.constStringCode(g.Init.Imm.Str)...)
			e.startPrelude = append(e.startPrelude, Instr{Op: OpGlobalSet, Idx: gIdx})
		default:
			panic("backend: unsupported global initializer op")
		}
		e.mod.Globals = append(e.mod.Globals, bg)
	}
}

// constStringCode returns the instruction sequence that materializes
// string literal s as an EqRef, via the interned string pool's offset/
// length and the string_from_data builtin import.
func (e *emitter) constStringCode(s string) []Instr {
	idx := e.strings.Intern(s)
	offset := dataSegmentOffset + e.strings.Offset(idx)
	length := len(s)
	callee, ok := e.builtinCall("string_from_data")
	if !ok {
		return []Instr{{Op: OpRefNull}}
	}
	return []Instr{
		{Op: OpI32Const, I32: int32(offset)},
		{Op: OpI32Const, I32: int32(length)},
		{Op: OpCall, Idx: callee},
	}
}

func zeroOf(v ValType) Instr {
	switch v.Kind {
	case ValI32:
		return Instr{Op: OpI32Const}
	case ValF64:
		return Instr{Op: OpF64Const}
	default:
		return Instr{Op: OpRefNull}
	}
}

func (e *emitter) declareMemoryAndTable() {
	e.mod.Memory = Memory{InitialPages: memoryInitialPages, MaxPages: memoryMaxPages}
	e.mod.Table = Table{ElemType: FuncRef, InitialPages: tableInitialPages, MaxPages: tableMaxPages, GrowthDelta: tableGrowthDelta}
}

func (e *emitter) declareData(m *ir.Module) {
	strBytes := m.Strings.Bytes()
	dataBytes := m.Data.Bytes()
	layout := computeDataLayout(uint32(len(strBytes) + len(dataBytes)))
	if len(strBytes) > 0 {
		e.mod.Data = append(e.mod.Data, DataSegment{Offset: dataSegmentOffset, Bytes: strBytes})
	}
	if len(dataBytes) > 0 {
		e.mod.Data = append(e.mod.Data, DataSegment{Offset: dataSegmentOffset + uint32(len(strBytes)), Bytes: dataBytes})
	}

	globalI32 := func(name string, v uint32) {
		e.mod.Globals = append(e.mod.Globals, Global{Name: name, Type: I32, Mutable: false, Init: []Instr{{Op: OpI32Const, I32: int32(v)}}})
	}
	globalI32("__data_end", layout.DataEnd)
	globalI32("__stack_pointer", layout.StackPointer)
	globalI32("__heap_base", layout.HeapBase)
}

// declareStart prepends the vtable-construction prelude this Emit call
// queued to the lowered module's own non-constant-initializer start
// function (creating one if the module never needed one), then exports
// it under the name spec.md's "~start" convention.
func (e *emitter) declareStart(m *ir.Module) {
	if len(e.startPrelude) == 0 && m.Start == nil {
		return
	}
	var idx uint32
	if m.Start != nil {
		idx = e.funcIndex[m.Start.Symbol]
		fn := e.mod.Funcs[idx-e.importFuncCount]
		fn.Body = append(append([]Instr(nil), e.startPrelude...), fn.Body...)
		fn.Exported = "~start"
	} else {
		sigIdx := e.types.InternFunc("$start_sig", &FuncSig{})
		fn := &Func{Name: "~start", SigIdx: sigIdx, Body: e.startPrelude, Exported: "~start"}
		e.mod.Funcs = append(e.mod.Funcs, fn)
		idx = e.importFuncCount + uint32(len(e.mod.Funcs)-1)
	}
	e.mod.Start = &idx
}

func (e *emitter) declareNames(m *ir.Module) {
	names := NameSection{ModuleName: "module", FunctionNames: map[uint32]string{}}
	for _, fn := range m.Functions {
		names.FunctionNames[e.funcIndex[fn.Symbol]] = fn.Symbol
	}
	e.mod.Names = names
}
