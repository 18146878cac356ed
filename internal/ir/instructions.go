package ir

// Op identifies the operation an Instr performs. Unlike the teacher's wasm
// opcode set (one entry per native wasm instruction plus its SSA-level
// equivalents), this is a small, closed set of domain operations: a single
// Op often expands into several wasm instructions during backend emission
// (e.g. OpFieldGet expands to a local.get of the receiver followed by a
// struct.get of the resolved field index).
type Op uint32

const (
	OpInvalid Op = iota

	// --- constants ---
	OpConstI32    // Imm.I64 holds the bool (0/1) or raw i32 payload.
	OpConstF64    // Imm.F64 holds the numeric literal.
	OpConstString // Imm.Str holds the literal text; interned into the string pool at emission.
	OpConstNull   // produces TypeNullRef.

	// --- locals & globals ---
	OpLocalGet  // Imm.Index is the local slot.
	OpLocalSet  // Args[0] is the value; Imm.Index is the local slot.
	OpGlobalGet // Imm.Index is the global slot (used for static class fields and hoisted module-level lets).
	OpGlobalSet // Args[0] is the value; Imm.Index is the global slot.

	// --- arithmetic / comparison (number operands are always TypeF64, bool results TypeI32) ---
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpNeg
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd // logical, operands/result TypeI32
	OpOr
	OpNot

	// --- strings ---
	OpStringConcat
	OpStringEq

	// --- objects ---
	OpNewObject    // Imm.Index is the class's layout id; Args are constructor-evaluated field initializers in slot order.
	OpFieldGet     // Args[0] is the receiver; Imm.Index is the resolved field slot, Imm.Aux is the receiver's static class layout id.
	OpFieldSet     // Args[0] receiver, Args[1] value; Imm.Index is the resolved field slot, Imm.Aux is the receiver's static class layout id.
	OpMethodCall   // Args[0] receiver, Args[1:] are call arguments; Imm.Index is the vtable slot, Imm.Aux is the receiver's static class layout id, Imm.Str is the member name (diagnostics only).
	OpStaticCall   // Args are call arguments; Imm.Str is the mangled function symbol.
	OpSuperCall    // Args[0] receiver (this), Args[1:] are call arguments; Imm.Str is the mangled parent constructor/method symbol.
	OpInstanceOf   // Args[0] is the value; Imm.Index is the class layout id being tested against.

	// --- interfaces ---
	OpWidenInterface     // Args[0] is a class instance; Imm.Index selects the (class,interface) dispatch record.
	OpInterfaceCall      // Args[0] is an interface view, Args[1:] call arguments; Imm.Index is the interface member slot, Imm.Aux is the interface's layout id.

	// --- arrays ---
	OpNewArray  // Args are initial elements; Imm.Index is the element physical Type tag.
	OpArrayGet  // Args[0] array, Args[1] index.
	OpArraySet  // Args[0] array, Args[1] index, Args[2] value.
	OpArrayLen  // Args[0] array.
	OpRestArrayBuild // Args are the trailing actual arguments captured by a rest parameter.

	// --- closures ---
	OpNewClosure // Args are captured-variable initial values; Imm.Str is the mangled function symbol, Imm.Index is the env layout id.
	OpEnvGet     // Args[0] closure env ref; Imm.Index is the captured slot, Imm.Aux is the env layout id.
	OpEnvSet     // Args[0] closure env ref, Args[1] value; Imm.Index is the captured slot, Imm.Aux is the env layout id.
	OpCallClosure // Args[0] closure ref, Args[1:] call arguments — emitted as call_ref against the closure's typed function reference.

	// --- any boundary ---
	OpAnyBox      // Args[0] is a concrete-typed value; Imm.Index is its physical Type tag, wrapped in the any struct.
	OpAnyUnbox    // Args[0] is an any ref; Imm.Index is the expected physical Type tag; traps at runtime on mismatch.
	OpAnyTypeTest // Args[0] is an any ref; Imm.Index is the physical Type tag being tested; result is TypeI32 bool.

	// --- statements (no result value; Typ == TypeInvalid) ---
	OpExprStmt // Args[0] is an expression evaluated for side effects only, e.g. a bare call.
	OpBlock    // Body is the nested statement list of a labeled block (break target).
	OpLoop     // Body is the loop's statement list (continue target is the top).
	OpIf       // Args[0] is the condition; Body is the then-branch, Else is the else-branch.
	OpBreak    // Imm.Index is the relative label depth of the enclosing OpBlock/OpLoop.
	OpContinue // Imm.Index is the relative label depth of the enclosing OpLoop.
	OpReturn   // Args[0] is the return value, absent for a void function.
)

// Imm is the small auxiliary payload an Instr carries alongside its operand
// Values. Only the fields relevant to Op are populated; the rest are zero.
type Imm struct {
	I64   int64
	F64   float64
	Str   string
	Index uint32
	// Aux is a second Index-shaped immediate the handful of ops that need
	// two (e.g. a slot plus the class layout it resolves the slot
	// against) carry alongside Index, rather than growing Instr with an
	// op-specific field for every such pair.
	Aux uint32
}

// Instr is a single IR node. Expression instructions produce a Value
// (Typ != TypeInvalid); statement instructions do not. Control-flow
// instructions additionally carry nested statement lists in Body/Else,
// making the IR a structured tree rather than a control-flow graph — the
// backend walks it directly into wasm's structured block/loop/if.
type Instr struct {
	Op   Op
	Typ  Type
	Args []Value
	Imm  Imm
	Body []*Instr
	Else []*Instr

	result Value
}

// Result returns the Value this instruction defines. Calling it on a
// statement instruction (Typ == TypeInvalid) is a bug in the caller.
func (i *Instr) Result() Value {
	if i.Typ == TypeInvalid {
		panic("ir: Result of a statement instruction")
	}
	return i.result
}
