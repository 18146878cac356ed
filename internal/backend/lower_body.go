package backend

import (
	"github.com/open-vela/ts2wasm/internal/diag"
	"github.com/open-vela/ts2wasm/internal/ir"
)

// bodyEmitter lowers one ir.Function's statement tree into a backend
// instruction tree. It holds the per-function state newBodyEmitter resets
// for every function declareFunctions processes; nothing here survives
// past the Func it was created for.
//
// Every ir.Value-producing Instr is spilled into a fresh "shadow" local
// immediately after being computed, and every later reference to that
// Value is a local.get against that shadow local rather than relying on
// wasm operand-stack adjacency. An ir.Value can be read by more than one
// later instruction (e.g. an assignment's stored value and the
// assignment expression's own result), which a naive direct stack
// translation cannot express without either re-evaluating side effects
// or inserting a local anyway, so the shadow-local scheme is applied
// uniformly rather than only where a value happens to be shared.
type bodyEmitter struct {
	e  *emitter
	fn *ir.Function

	// nextLocal is the next free local index, starting just past the
	// function's own declared params+locals.
	nextLocal   uint32
	extraLocals []ValType
	// valueLocal maps an ir.Value's dense id to the shadow local holding
	// it, populated as each value-producing instruction is lowered.
	valueLocal map[ir.ValueID]uint32

	// labels is the stack of structured-control-flow labels currently
	// open, innermost last, mirroring the nested block/loop/if wasm
	// instructions this function has emitted so far. OpBreak/OpContinue
	// carry a depth counted only over Block/Loop (break) or Loop alone
	// (continue) per ir/instructions.go; labels records enough to turn
	// that into the true wasm branch depth, which also counts any
	// intervening if the IR's own depth numbering ignores.
	labels []labelEntry
}

// labelEntry is one open structured-control-flow construct.
type labelEntry struct {
	isBreakTarget    bool
	isContinueTarget bool
}

func newBodyEmitter(e *emitter, fn *ir.Function, localBase uint32) *bodyEmitter {
	return &bodyEmitter{
		e:          e,
		fn:         fn,
		nextLocal:  localBase,
		valueLocal: map[ir.ValueID]uint32{},
	}
}

// newLocal reserves a fresh shadow local of type t.
func (be *bodyEmitter) newLocal(t ValType) uint32 {
	idx := be.nextLocal
	be.nextLocal++
	be.extraLocals = append(be.extraLocals, t)
	return idx
}

// spill appends a local.set into a fresh shadow local typed for v's
// physical type, recording it so later loadArg(v) calls can local.get it
// back.
func (be *bodyEmitter) spill(out *[]Instr, v ir.Value) {
	local := be.newLocal(physToVal(v.Type()))
	*out = append(*out, Instr{Op: OpLocalSet, Idx: local})
	be.valueLocal[v.ID()] = local
}

// loadArg returns the code that pushes a previously-produced Value back
// onto the stack from its shadow local.
func (be *bodyEmitter) loadArg(v ir.Value) []Instr {
	local, ok := be.valueLocal[v.ID()]
	if !ok {
		panic("backend: value referenced before it was produced")
	}
	return []Instr{{Op: OpLocalGet, Idx: local}}
}

func (be *bodyEmitter) loadArgs(vs []ir.Value) []Instr {
	var out []Instr
	for _, v := range vs {
		out = append(out, be.loadArg(v)...)
	}
	return out
}

// lowerList lowers a flat statement/expression list (a Function's own
// Body, or an OpBlock/OpLoop/OpIf's nested Body/Else) into backend code.
func (be *bodyEmitter) lowerList(list []*ir.Instr) []Instr {
	var out []Instr
	for _, instr := range list {
		be.lowerInstr(&out, instr)
	}
	return out
}

// pushLabel opens a structured-control-flow nesting level, lowers body
// through lowerList, then closes it, so label depth bookkeeping can never leak
// past the construct it belongs to.
func (be *bodyEmitter) pushLabel(entry labelEntry, body []*ir.Instr) []Instr {
	be.labels = append(be.labels, entry)
	out := be.lowerList(body)
	be.labels = be.labels[:len(be.labels)-1]
	return out
}

// branchDepth translates an ir-level relative label index (counting only
// break targets, or only continue targets, per continueKind) into the
// true wasm branch depth, which also counts any non-target (if) label
// nested in between.
func (be *bodyEmitter) branchDepth(n uint32, continueKind bool) uint32 {
	matched := -1
	for i := len(be.labels) - 1; i >= 0; i-- {
		entry := be.labels[i]
		isTarget := entry.isBreakTarget
		if continueKind {
			isTarget = entry.isContinueTarget
		}
		if isTarget {
			matched++
			if uint32(matched) == n {
				return uint32(len(be.labels) - 1 - i)
			}
		}
	}
	panic("backend: break/continue depth exceeds enclosing block nest")
}

// lowerInstr appends instr's translation to *out. Value-producing
// instructions end with a spill into a fresh shadow local; statement
// instructions leave nothing on the stack.
func (be *bodyEmitter) lowerInstr(out *[]Instr, instr *ir.Instr) {
	switch instr.Op {

	// --- constants ---
	case ir.OpConstI32:
		*out = append(*out, Instr{Op: OpI32Const, I32: int32(instr.Imm.I64)})
		be.spill(out, instr.Result())
	case ir.OpConstF64:
		*out = append(*out, Instr{Op: OpF64Const, F64: instr.Imm.F64})
		be.spill(out, instr.Result())
	case ir.OpConstString:
		*out = append(*out, be.e.constStringCode(instr.Imm.Str)...)
		be.spill(out, instr.Result())
	case ir.OpConstNull:
		*out = append(*out, Instr{Op: OpRefNull})
		be.spill(out, instr.Result())

	// --- locals & globals ---
	case ir.OpLocalGet:
		*out = append(*out, Instr{Op: OpLocalGet, Idx: instr.Imm.Index})
		be.spill(out, instr.Result())
	case ir.OpLocalSet:
		*out = append(*out, be.loadArg(instr.Args[0])...)
		*out = append(*out, Instr{Op: OpLocalSet, Idx: instr.Imm.Index})
	case ir.OpGlobalGet:
		*out = append(*out, Instr{Op: OpGlobalGet, Idx: instr.Imm.Index + be.e.globalOffset})
		be.spill(out, instr.Result())
	case ir.OpGlobalSet:
		*out = append(*out, be.loadArg(instr.Args[0])...)
		*out = append(*out, Instr{Op: OpGlobalSet, Idx: instr.Imm.Index + be.e.globalOffset})

	// --- arithmetic / comparison / logical ---
	case ir.OpAdd:
		be.binaryNumeric(out, instr, OpF64Add)
	case ir.OpSub:
		be.binaryNumeric(out, instr, OpF64Sub)
	case ir.OpMul:
		be.binaryNumeric(out, instr, OpF64Mul)
	case ir.OpDiv:
		be.binaryNumeric(out, instr, OpF64Div)
	case ir.OpMod:
		be.lowerMod(out, instr)
	case ir.OpNeg:
		*out = append(*out, be.loadArg(instr.Args[0])...)
		*out = append(*out, Instr{Op: OpF64Neg})
		be.spill(out, instr.Result())
	case ir.OpEq:
		be.equality(out, instr, OpI32Eq, OpF64Eq, false)
	case ir.OpNe:
		be.equality(out, instr, OpI32Ne, OpF64Ne, true)
	case ir.OpLt:
		be.compare(out, instr, OpI32LtS, OpF64Lt)
	case ir.OpLe:
		be.compare(out, instr, OpI32LeS, OpF64Le)
	case ir.OpGt:
		be.compare(out, instr, OpI32GtS, OpF64Gt)
	case ir.OpGe:
		be.compare(out, instr, OpI32GeS, OpF64Ge)
	case ir.OpAnd:
		*out = append(*out, be.loadArg(instr.Args[0])...)
		*out = append(*out, be.loadArg(instr.Args[1])...)
		*out = append(*out, Instr{Op: OpI32And})
		be.spill(out, instr.Result())
	case ir.OpOr:
		*out = append(*out, be.loadArg(instr.Args[0])...)
		*out = append(*out, be.loadArg(instr.Args[1])...)
		*out = append(*out, Instr{Op: OpI32Or})
		be.spill(out, instr.Result())
	case ir.OpNot:
		*out = append(*out, be.loadArg(instr.Args[0])...)
		*out = append(*out, Instr{Op: OpI32Eqz})
		be.spill(out, instr.Result())

	// --- strings ---
	case ir.OpStringConcat:
		be.callBuiltin(out, instr, "string_concat")
	case ir.OpStringEq:
		be.callBuiltin(out, instr, "string_eq")

	// --- objects ---
	case ir.OpNewObject:
		be.lowerNewObject(out, instr)
	case ir.OpFieldGet:
		be.lowerFieldGet(out, instr)
	case ir.OpFieldSet:
		be.lowerFieldSet(out, instr)
	case ir.OpMethodCall:
		be.lowerMethodCall(out, instr)
	case ir.OpStaticCall:
		be.lowerStaticCall(out, instr)
	case ir.OpSuperCall:
		be.lowerSuperCall(out, instr)
	case ir.OpInstanceOf:
		*out = append(*out, be.loadArg(instr.Args[0])...)
		*out = append(*out, Instr{Op: OpRefTest, TypeIdx: be.e.instanceType[instr.Imm.Index]})
		be.spill(out, instr.Result())

	// --- interfaces ---
	case ir.OpWidenInterface:
		be.lowerWidenInterface(out, instr)
	case ir.OpInterfaceCall:
		be.lowerInterfaceCall(out, instr)

	// --- arrays ---
	case ir.OpNewArray:
		be.lowerNewArray(out, instr, ir.Type(instr.Imm.Index))
	case ir.OpRestArrayBuild:
		be.lowerNewArray(out, instr, ir.Type(instr.Imm.Index))
	case ir.OpArrayGet:
		be.lowerArrayGet(out, instr)
	case ir.OpArraySet:
		be.lowerArraySet(out, instr)
	case ir.OpArrayLen:
		*out = append(*out, be.loadArg(instr.Args[0])...)
		*out = append(*out, Instr{Op: OpArrayLen})
		be.spill(out, instr.Result())

	// --- closures ---
	case ir.OpNewClosure:
		be.lowerNewClosure(out, instr)
	case ir.OpEnvGet:
		be.lowerEnvGet(out, instr)
	case ir.OpEnvSet:
		be.lowerEnvSet(out, instr)
	case ir.OpCallClosure:
		be.lowerCallClosure(out, instr)

	// --- any boundary ---
	case ir.OpAnyBox:
		be.lowerAnyBox(out, instr)
	case ir.OpAnyUnbox:
		be.lowerAnyUnbox(out, instr)
	case ir.OpAnyTypeTest:
		be.lowerAnyTypeTest(out, instr)

	// --- statements ---
	case ir.OpExprStmt:
		// The expression's code (and its spill) already ran when its
		// producing instruction was lowered; nothing further to emit,
		// the shadow local is simply left unread.
	case ir.OpBlock:
		*out = append(*out, Instr{Op: OpBlock, Body: be.pushLabel(labelEntry{isBreakTarget: true}, instr.Body)})
	case ir.OpLoop:
		*out = append(*out, be.lowerLoop(instr)...)
	case ir.OpIf:
		be.lowerIf(out, instr)
	case ir.OpBreak:
		*out = append(*out, Instr{Op: OpBr, Idx: be.branchDepth(instr.Imm.Index, false)})
	case ir.OpContinue:
		*out = append(*out, Instr{Op: OpBr, Idx: be.branchDepth(instr.Imm.Index, true)})
	case ir.OpReturn:
		if len(instr.Args) > 0 {
			*out = append(*out, be.loadArg(instr.Args[0])...)
		}
		*out = append(*out, Instr{Op: OpReturn})

	default:
		panic("backend: unhandled ir op in body lowering")
	}
}

// binaryNumeric lowers a language-level arithmetic op, whose operands are
// always TypeF64 (the language's single numeric type), directly to its
// f64 wasm counterpart.
func (be *bodyEmitter) binaryNumeric(out *[]Instr, instr *ir.Instr, op WasmOp) {
	*out = append(*out, be.loadArg(instr.Args[0])...)
	*out = append(*out, be.loadArg(instr.Args[1])...)
	*out = append(*out, Instr{Op: op})
	be.spill(out, instr.Result())
}

// equality lowers == and != between two operands of the same physical
// type. Reference operands (class instances, closures, interface views,
// or null) have no native wasm != instruction, so negate is handled with
// ref.eq followed by i32.eqz rather than a dedicated WasmOp.
func (be *bodyEmitter) equality(out *[]Instr, instr *ir.Instr, i32Op, f64Op WasmOp, negate bool) {
	*out = append(*out, be.loadArg(instr.Args[0])...)
	*out = append(*out, be.loadArg(instr.Args[1])...)
	switch instr.Args[0].Type() {
	case ir.TypeI32:
		*out = append(*out, Instr{Op: i32Op})
	case ir.TypeF64:
		*out = append(*out, Instr{Op: f64Op})
	default:
		*out = append(*out, Instr{Op: OpRefEq})
		if negate {
			*out = append(*out, Instr{Op: OpI32Eqz})
		}
	}
	be.spill(out, instr.Result())
}

// compare picks the i32 or f64 wasm comparison instruction by the
// operand's own physical type; ordering has no reference-typed case since
// only numbers are ordered.
func (be *bodyEmitter) compare(out *[]Instr, instr *ir.Instr, i32Op, f64Op WasmOp) {
	*out = append(*out, be.loadArg(instr.Args[0])...)
	*out = append(*out, be.loadArg(instr.Args[1])...)
	op := f64Op
	if instr.Args[0].Type() == ir.TypeI32 {
		op = i32Op
	}
	*out = append(*out, Instr{Op: op})
	be.spill(out, instr.Result())
}

// lowerMod has no native wasm instruction for floating-point remainder, so
// it calls the builtIn math_fmod helper in its place.
func (be *bodyEmitter) lowerMod(out *[]Instr, instr *ir.Instr) {
	callee, ok := be.e.builtinCall("math_fmod")
	*out = append(*out, be.loadArg(instr.Args[0])...)
	*out = append(*out, be.loadArg(instr.Args[1])...)
	if ok {
		*out = append(*out, Instr{Op: OpCall, Idx: callee})
	} else {
		*out = append(*out, Instr{Op: OpF64Const})
	}
	be.spill(out, instr.Result())
}

// callBuiltin lowers a binary op to a call against a builtIn.* import of
// the same name, used for the string operations wasm has no native
// instruction for.
func (be *bodyEmitter) callBuiltin(out *[]Instr, instr *ir.Instr, name string) {
	*out = append(*out, be.loadArgs(instr.Args)...)
	callee, ok := be.e.builtinCall(name)
	if ok {
		*out = append(*out, Instr{Op: OpCall, Idx: callee})
	} else {
		*out = append(*out, Instr{Op: OpRefNull})
	}
	be.spill(out, instr.Result())
}

// --- objects --------------------------------------------------------------

func (be *bodyEmitter) lowerNewObject(out *[]Instr, instr *ir.Instr) {
	layoutID := instr.Imm.Index
	vtIdx := be.e.vtableGlobal[layoutID]
	*out = append(*out, Instr{Op: OpGlobalGet, Idx: vtIdx})
	*out = append(*out, be.loadArgs(instr.Args)...)
	*out = append(*out, Instr{Op: OpStructNew, TypeIdx: be.e.instanceType[layoutID], Idx: uint32(len(instr.Args) + 1)})
	be.spill(out, instr.Result())
}

// castReceiver loads recv, ref.casts it down to its static class's
// instance struct type (undoing the erasure to a generic ref every
// physical-type boundary — array elements, `any`, a shared-vtable-slot
// parameter — otherwise imposes), and stashes the cast result in a fresh
// local so the caller can read it more than once without re-evaluating
// recv's own side effects.
func (be *bodyEmitter) castReceiver(out *[]Instr, recv ir.Value, classLayoutID uint32) uint32 {
	instTypeIdx := be.e.instanceType[classLayoutID]
	*out = append(*out, be.loadArg(recv)...)
	*out = append(*out, Instr{Op: OpRefCast, TypeIdx: instTypeIdx})
	local := be.newLocal(Concrete(instTypeIdx, false))
	*out = append(*out, Instr{Op: OpLocalSet, Idx: local})
	return local
}

func (be *bodyEmitter) lowerFieldGet(out *[]Instr, instr *ir.Instr) {
	classLayoutID := instr.Imm.Aux
	local := be.castReceiver(out, instr.Args[0], classLayoutID)
	*out = append(*out, Instr{Op: OpLocalGet, Idx: local})
	*out = append(*out, Instr{Op: OpStructGet, TypeIdx: be.e.instanceType[classLayoutID], Idx: instr.Imm.Index + 1})
	be.spill(out, instr.Result())
}

func (be *bodyEmitter) lowerFieldSet(out *[]Instr, instr *ir.Instr) {
	classLayoutID := instr.Imm.Aux
	local := be.castReceiver(out, instr.Args[0], classLayoutID)
	*out = append(*out, Instr{Op: OpLocalGet, Idx: local})
	*out = append(*out, be.loadArg(instr.Args[1])...)
	*out = append(*out, Instr{Op: OpStructSet, TypeIdx: be.e.instanceType[classLayoutID], Idx: instr.Imm.Index + 1})
}

// lowerMethodCall resolves a virtual call through the receiver's vtable:
// struct.get the vtable reference off field 0 of the cast instance, then
// struct.get the funcref at Imm.Index off that vtable's struct type, and
// call_ref it with the receiver (shared-vtable-slot trick means every
// override at this slot has an identical signature, see SPEC_FULL.md)
// plus the call's own arguments.
func (be *bodyEmitter) lowerMethodCall(out *[]Instr, instr *ir.Instr) {
	classLayoutID := instr.Imm.Aux
	instTypeIdx := be.e.instanceType[classLayoutID]
	vtTypeIdx := be.e.vtableType[classLayoutID]
	recv := instr.Args[0]
	args := instr.Args[1:]

	local := be.castReceiver(out, recv, classLayoutID)

	*out = append(*out, Instr{Op: OpLocalGet, Idx: local})
	*out = append(*out, be.loadArgs(args)...)

	*out = append(*out, Instr{Op: OpLocalGet, Idx: local})
	*out = append(*out, Instr{Op: OpStructGet, TypeIdx: instTypeIdx, Idx: 0})
	*out = append(*out, Instr{Op: OpStructGet, TypeIdx: vtTypeIdx, Idx: instr.Imm.Index})

	sigIdx := be.e.types.InternFunc("$call.method", &FuncSig{Params: argValTypes(args, AnyRef), Results: resultValTypes(instr.Typ)})
	*out = append(*out, Instr{Op: OpCallRef, TypeIdx: sigIdx})
	be.spillIfValue(out, instr)
}

func (be *bodyEmitter) lowerStaticCall(out *[]Instr, instr *ir.Instr) {
	*out = append(*out, be.loadArgs(instr.Args)...)
	callee, ok := be.e.funcIndex[instr.Imm.Str]
	if !ok {
		be.e.diags.Addf(diag.CodeUnresolvedBuiltin, diag.Pos{}, "unresolved static call target %q", instr.Imm.Str)
	}
	*out = append(*out, Instr{Op: OpCall, Idx: callee})
	be.spillIfValue(out, instr)
}

func (be *bodyEmitter) lowerSuperCall(out *[]Instr, instr *ir.Instr) {
	*out = append(*out, be.loadArgs(instr.Args)...)
	callee := be.e.funcIndex[instr.Imm.Str]
	*out = append(*out, Instr{Op: OpCall, Idx: callee})
	be.spillIfValue(out, instr)
}

// --- interfaces -------------------------------------------------------

func (be *bodyEmitter) lowerWidenInterface(out *[]Instr, instr *ir.Instr) {
	rec := be.e.dispatchByID[instr.Imm.Index]
	viewIdx := be.e.ifaceViewType[rec.Interface.LayoutID]
	*out = append(*out, be.loadArg(instr.Args[0])...)
	*out = append(*out, Instr{Op: OpGlobalGet, Idx: be.e.dispatchGlobal[instr.Imm.Index]})
	*out = append(*out, Instr{Op: OpStructNew, TypeIdx: viewIdx, Idx: 2})
	be.spill(out, instr.Result())
}

func (be *bodyEmitter) lowerInterfaceCall(out *[]Instr, instr *ir.Instr) {
	ifaceLayoutID := instr.Imm.Aux
	viewIdx := be.e.ifaceViewType[ifaceLayoutID]
	dispatchIdx := be.e.ifaceFuncsType[ifaceLayoutID]
	view := instr.Args[0]
	args := instr.Args[1:]

	*out = append(*out, be.loadArg(view)...)
	*out = append(*out, Instr{Op: OpRefCast, TypeIdx: viewIdx})
	viewLocal := be.newLocal(Concrete(viewIdx, false))
	*out = append(*out, Instr{Op: OpLocalSet, Idx: viewLocal})

	*out = append(*out, Instr{Op: OpLocalGet, Idx: viewLocal})
	*out = append(*out, Instr{Op: OpStructGet, TypeIdx: viewIdx, Idx: 0})
	thisLocal := be.newLocal(EqRef)
	*out = append(*out, Instr{Op: OpLocalSet, Idx: thisLocal})

	*out = append(*out, Instr{Op: OpLocalGet, Idx: thisLocal})
	*out = append(*out, be.loadArgs(args)...)

	*out = append(*out, Instr{Op: OpLocalGet, Idx: viewLocal})
	*out = append(*out, Instr{Op: OpStructGet, TypeIdx: viewIdx, Idx: 1})
	*out = append(*out, Instr{Op: OpStructGet, TypeIdx: dispatchIdx, Idx: instr.Imm.Index})

	sigIdx := be.e.types.InternFunc("$call.iface", &FuncSig{Params: argValTypes(args, AnyRef), Results: resultValTypes(instr.Typ)})
	*out = append(*out, Instr{Op: OpCallRef, TypeIdx: sigIdx})
	be.spillIfValue(out, instr)
}

// --- arrays -------------------------------------------------------------

func (be *bodyEmitter) lowerNewArray(out *[]Instr, instr *ir.Instr, elem ir.Type) {
	arrIdx := be.e.arrayTypeFor(elem)
	*out = append(*out, be.loadArgs(instr.Args)...)
	*out = append(*out, Instr{Op: OpArrayNewFixed, TypeIdx: arrIdx, Idx: uint32(len(instr.Args))})
	be.spill(out, instr.Result())
}

// toI32Index converts a language-level number (always physically f64)
// into the i32 wasm arrays index with, truncating toward zero.
func (be *bodyEmitter) toI32Index(out *[]Instr, idx ir.Value) {
	*out = append(*out, be.loadArg(idx)...)
	*out = append(*out, Instr{Op: OpI32TruncF64S})
}

func (be *bodyEmitter) lowerArrayGet(out *[]Instr, instr *ir.Instr) {
	arrIdx := be.e.arrayTypeFor(instr.Typ)
	*out = append(*out, be.loadArg(instr.Args[0])...)
	be.toI32Index(out, instr.Args[1])
	*out = append(*out, Instr{Op: OpArrayGet, TypeIdx: arrIdx})
	be.spill(out, instr.Result())
}

func (be *bodyEmitter) lowerArraySet(out *[]Instr, instr *ir.Instr) {
	arrIdx := be.e.arrayTypeFor(instr.Args[2].Type())
	*out = append(*out, be.loadArg(instr.Args[0])...)
	be.toI32Index(out, instr.Args[1])
	*out = append(*out, be.loadArg(instr.Args[2])...)
	*out = append(*out, Instr{Op: OpArraySet, TypeIdx: arrIdx})
}

// --- closures -----------------------------------------------------------

func (be *bodyEmitter) lowerNewClosure(out *[]Instr, instr *ir.Instr) {
	envLayoutID := instr.Imm.Index
	envTypeIdx := be.e.envType[envLayoutID]
	*out = append(*out, be.loadArgs(instr.Args)...)
	*out = append(*out, Instr{Op: OpStructNew, TypeIdx: envTypeIdx, Idx: uint32(len(instr.Args))})

	callee, ok := be.e.funcIndex[instr.Imm.Str]
	if !ok {
		be.e.diags.Addf(diag.CodeUnresolvedBuiltin, diag.Pos{}, "unresolved closure target %q", instr.Imm.Str)
	}
	*out = append(*out, Instr{Op: OpRefFunc, Idx: callee})
	*out = append(*out, Instr{Op: OpStructNew, TypeIdx: be.e.closureType, Idx: 2})
	be.spill(out, instr.Result())
}

func (be *bodyEmitter) lowerEnvGet(out *[]Instr, instr *ir.Instr) {
	envTypeIdx := be.e.envType[instr.Imm.Aux]
	*out = append(*out, be.loadArg(instr.Args[0])...)
	*out = append(*out, Instr{Op: OpRefCast, TypeIdx: envTypeIdx})
	*out = append(*out, Instr{Op: OpStructGet, TypeIdx: envTypeIdx, Idx: instr.Imm.Index})
	be.spill(out, instr.Result())
}

func (be *bodyEmitter) lowerEnvSet(out *[]Instr, instr *ir.Instr) {
	envTypeIdx := be.e.envType[instr.Imm.Aux]
	*out = append(*out, be.loadArg(instr.Args[0])...)
	*out = append(*out, Instr{Op: OpRefCast, TypeIdx: envTypeIdx})
	*out = append(*out, be.loadArg(instr.Args[1])...)
	*out = append(*out, Instr{Op: OpStructSet, TypeIdx: envTypeIdx, Idx: instr.Imm.Index})
}

// lowerCallClosure casts the closure ref down to the shared closure
// struct type, reads its env/funcref pair back out, and call_refs the
// funcref with the env as the closure function's implicit first
// parameter, the same generic-receiver convention a method's `this` uses.
func (be *bodyEmitter) lowerCallClosure(out *[]Instr, instr *ir.Instr) {
	closure := instr.Args[0]
	args := instr.Args[1:]

	*out = append(*out, be.loadArg(closure)...)
	*out = append(*out, Instr{Op: OpRefCast, TypeIdx: be.e.closureType})
	closureLocal := be.newLocal(Concrete(be.e.closureType, false))
	*out = append(*out, Instr{Op: OpLocalSet, Idx: closureLocal})

	*out = append(*out, Instr{Op: OpLocalGet, Idx: closureLocal})
	*out = append(*out, Instr{Op: OpStructGet, TypeIdx: be.e.closureType, Idx: 0})
	*out = append(*out, be.loadArgs(args)...)

	*out = append(*out, Instr{Op: OpLocalGet, Idx: closureLocal})
	*out = append(*out, Instr{Op: OpStructGet, TypeIdx: be.e.closureType, Idx: 1})

	sigIdx := be.e.types.InternFunc("$call.closure", &FuncSig{Params: argValTypes(args, AnyRef), Results: resultValTypes(instr.Typ)})
	*out = append(*out, Instr{Op: OpCallRef, TypeIdx: sigIdx})
	be.spillIfValue(out, instr)
}

// --- any boundary ---------------------------------------------------------

// dyntypeTag encodes the physical representation a box/unbox/type_test
// call crosses the libdyntype boundary with. The exact values are only a
// private convention between this emitter and that import; nothing else
// in the compiler inspects them.
func dyntypeTag(t ir.Type) int32 {
	switch t {
	case ir.TypeI32:
		return 0
	case ir.TypeF64:
		return 1
	default:
		return 2
	}
}

func (be *bodyEmitter) lowerAnyBox(out *[]Instr, instr *ir.Instr) {
	srcTyp := ir.Type(instr.Imm.Index)
	name := "box_ref"
	switch srcTyp {
	case ir.TypeI32:
		name = "box_i32"
	case ir.TypeF64:
		name = "box_f64"
	}
	*out = append(*out, be.loadArg(instr.Args[0])...)
	callee, ok := be.e.dyntypeCall(name)
	if ok {
		*out = append(*out, Instr{Op: OpCall, Idx: callee})
	} else {
		*out = append(*out, Instr{Op: OpRefNull})
	}
	be.spill(out, instr.Result())
}

func (be *bodyEmitter) lowerAnyUnbox(out *[]Instr, instr *ir.Instr) {
	dstTyp := ir.Type(instr.Imm.Index)
	name := "unbox_ref"
	switch dstTyp {
	case ir.TypeI32:
		name = "unbox_i32"
	case ir.TypeF64:
		name = "unbox_f64"
	}
	*out = append(*out, be.loadArg(instr.Args[0])...)
	callee, ok := be.e.dyntypeCall(name)
	if ok {
		*out = append(*out, Instr{Op: OpCall, Idx: callee})
	} else {
		*out = append(*out, zeroOf(physToVal(dstTyp)))
	}
	be.spill(out, instr.Result())
}

func (be *bodyEmitter) lowerAnyTypeTest(out *[]Instr, instr *ir.Instr) {
	testTyp := ir.Type(instr.Imm.Index)
	*out = append(*out, be.loadArg(instr.Args[0])...)
	*out = append(*out, Instr{Op: OpI32Const, I32: dyntypeTag(testTyp)})
	callee, ok := be.e.dyntypeCall("type_test")
	if ok {
		*out = append(*out, Instr{Op: OpCall, Idx: callee})
	} else {
		*out = append(*out, Instr{Op: OpI32Const})
	}
	be.spill(out, instr.Result())
}

// --- control flow ---------------------------------------------------------

// lowerLoop wraps the ir.OpLoop's single construct in the two physical
// wasm labels it needs: an outer block (the break target, since a br to
// a loop's own label restarts it rather than exiting) and the loop proper
// (the continue target).
func (be *bodyEmitter) lowerLoop(instr *ir.Instr) []Instr {
	be.labels = append(be.labels, labelEntry{isBreakTarget: true})
	loopBody := be.pushLabel(labelEntry{isContinueTarget: true}, instr.Body)
	be.labels = be.labels[:len(be.labels)-1]
	return []Instr{{Op: OpBlock, Body: []Instr{{Op: OpLoop, Body: loopBody}}}}
}

func (be *bodyEmitter) lowerIf(out *[]Instr, instr *ir.Instr) {
	*out = append(*out, be.loadArg(instr.Args[0])...)
	then := be.pushLabel(labelEntry{}, instr.Body)
	var els []Instr
	if len(instr.Else) > 0 {
		els = be.pushLabel(labelEntry{}, instr.Else)
	}
	*out = append(*out, Instr{Op: OpIf, Body: then, Else: els})
}

// --- shared helpers --------------------------------------------------------

// spillIfValue spills instr's result only when it actually has one: a
// call's result type can be TypeInvalid (a void method/function), in
// which case there is nothing on the stack to stash.
func (be *bodyEmitter) spillIfValue(out *[]Instr, instr *ir.Instr) {
	if instr.Typ != ir.TypeInvalid {
		be.spill(out, instr.Result())
	}
}

// argValTypes returns the physical ValType of each arg, for a call_ref
// site's dynamically-built signature; recvTyp is prepended as the
// receiver/env/closure-env parameter every such call carries at index 0.
func argValTypes(args []ir.Value, recvTyp ValType) []ValType {
	out := make([]ValType, 0, len(args)+1)
	out = append(out, recvTyp)
	for _, a := range args {
		out = append(out, physToVal(a.Type()))
	}
	return out
}

func resultValTypes(t ir.Type) []ValType {
	if t == ir.TypeInvalid {
		return nil
	}
	return []ValType{physToVal(t)}
}
