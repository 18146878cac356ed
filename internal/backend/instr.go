package backend

// WasmOp is a real wasm-level instruction opcode tag, the backend's
// equivalent of the teacher's internal/wasm.Opcode* constants. Unlike
// ir.Op (one domain concept, possibly several wasm instructions), each
// WasmOp here corresponds to exactly one instruction internal/backend/
// encoding and internal/backend/text know how to serialize.
type WasmOp byte

const (
	OpUnreachable WasmOp = iota
	OpBlock
	OpLoop
	OpIf
	OpBr
	OpBrIf
	OpReturn
	OpCall
	OpCallRef
	OpDrop

	OpLocalGet
	OpLocalSet
	OpGlobalGet
	OpGlobalSet

	OpI32Const
	OpF64Const
	OpRefNull

	OpI32Add
	OpI32Sub
	OpI32Mul
	OpI32Eq
	OpI32Ne
	OpI32LtS
	OpI32LeS
	OpI32GtS
	OpI32GeS
	OpI32And
	OpI32Or
	OpI32Eqz

	OpF64Add
	OpF64Sub
	OpF64Mul
	OpF64Div
	OpF64Eq
	OpF64Ne
	OpF64Lt
	OpF64Le
	OpF64Gt
	OpF64Ge
	OpF64Neg
	// OpF64Rem has no native wasm instruction; the backend lowers the
	// language's `%` via a call into the builtIn math helpers instead (see
	// internal/backend/builtin), so there is no WasmOp for it, a bare
	// OpCall to the builtin's fmod export is emitted in its place.

	// OpRefEq is ref.eq, used for == / != between two references (class
	// instances, closures, or null) rather than an i32/f64 comparison.
	OpRefEq
	// OpI32TruncF64S converts the language's one numeric type (always
	// physically f64) down to the i32 index array.get/array.set require.
	OpI32TruncF64S

	OpStructNew
	OpStructGet
	OpStructSet
	OpArrayNew
	OpArrayNewFixed
	OpArrayGet
	OpArraySet
	OpArrayLen
	OpRefCast
	OpRefTest
	OpRefFunc
)

// Instr is one emitted wasm instruction. Control-flow instructions nest
// further Instrs in Body/Else, the same structured-tree shape
// internal/ir.Instr uses, the backend's job is a fold over one tree into
// another, not a graph linearization.
type Instr struct {
	Op WasmOp

	I32    int32
	I64    int64
	F64    float64
	Str    string // callee/import name, debug label
	Idx    uint32 // local/global/function/field/branch-depth index, meaning depends on Op
	// TypeIdx is the declaring struct/array/function type index an
	// instruction needs alongside Idx, e.g. struct.get's type immediate,
	// distinct from the field index itself.
	TypeIdx uint32
	BlockT  ValType

	Body []Instr
	Else []Instr
}
