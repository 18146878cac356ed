package ir

// Builder constructs a Module one Function at a time. It holds an Instr
// Pool (mirroring the teacher's wazevoapi.Pool) that Reset clears, but
// its instruction constructors allocate each Instr individually rather
// than from that pool.
type Builder struct {
	pool    Pool[Instr]
	module  *Module
	nextVal ValueID
}

// NewBuilder returns a Builder producing into a fresh Module.
func NewBuilder() *Builder {
	return &Builder{
		pool:   NewPool[Instr](),
		module: NewModule(),
	}
}

// Module returns the Module under construction.
func (b *Builder) Module() *Module { return b.module }

// Reset reclaims the Instr pool and starts a fresh Module, so a Builder can
// be reused across independent Compile invocations without retaining the
// previous one's allocations.
func (b *Builder) Reset() {
	b.pool.Reset()
	b.module = NewModule()
	b.nextVal = 0
}

func (b *Builder) allocValue(typ Type) Value {
	id := b.nextVal
	b.nextVal++
	return Value{id: id, typ: typ}
}

// alloc returns a pooled, zeroed Instr ready to be filled in.
func (b *Builder) alloc() *Instr {
	instr := b.pool.Allocate()
	*instr = Instr{}
	return instr
}

// Emit appends instr to *cursor. If instr produces a value (Typ !=
// TypeInvalid) a fresh Value is allocated and both stored on the
// instruction and returned; for statement instructions it returns the
// invalid Value.
func (b *Builder) Emit(cursor *[]*Instr, instr *Instr) Value {
	if instr.Typ != TypeInvalid {
		instr.result = b.allocValue(instr.Typ)
	}
	*cursor = append(*cursor, instr)
	if instr.Typ != TypeInvalid {
		return instr.result
	}
	return invalidValue
}

// --- expression convenience constructors -----------------------------------
//
// These mirror the teacher's As*/Data() constructor-pair style (e.g.
// AsIadd, AsIconst64) but return the produced Value directly, since every
// expression Op here yields exactly one result.

func (b *Builder) ConstI32(cursor *[]*Instr, v int32) Value {
	return b.Emit(cursor, &Instr{Op: OpConstI32, Typ: TypeI32, Imm: Imm{I64: int64(v)}})
}

func (b *Builder) ConstBool(cursor *[]*Instr, v bool) Value {
	var i int32
	if v {
		i = 1
	}
	return b.ConstI32(cursor, i)
}

func (b *Builder) ConstF64(cursor *[]*Instr, v float64) Value {
	return b.Emit(cursor, &Instr{Op: OpConstF64, Typ: TypeF64, Imm: Imm{F64: v}})
}

func (b *Builder) ConstString(cursor *[]*Instr, s string) Value {
	return b.Emit(cursor, &Instr{Op: OpConstString, Typ: TypeRef, Imm: Imm{Str: s}})
}

func (b *Builder) ConstNull(cursor *[]*Instr) Value {
	return b.Emit(cursor, &Instr{Op: OpConstNull, Typ: TypeNullRef})
}

func (b *Builder) LocalGet(cursor *[]*Instr, slot uint32, typ Type) Value {
	return b.Emit(cursor, &Instr{Op: OpLocalGet, Typ: typ, Imm: Imm{Index: slot}})
}

func (b *Builder) LocalSet(cursor *[]*Instr, slot uint32, v Value) {
	b.Emit(cursor, &Instr{Op: OpLocalSet, Args: []Value{v}, Imm: Imm{Index: slot}})
}

func (b *Builder) GlobalGet(cursor *[]*Instr, slot uint32, typ Type) Value {
	return b.Emit(cursor, &Instr{Op: OpGlobalGet, Typ: typ, Imm: Imm{Index: slot}})
}

func (b *Builder) GlobalSet(cursor *[]*Instr, slot uint32, v Value) {
	b.Emit(cursor, &Instr{Op: OpGlobalSet, Args: []Value{v}, Imm: Imm{Index: slot}})
}

func (b *Builder) binary(cursor *[]*Instr, op Op, resultTyp Type, x, y Value) Value {
	return b.Emit(cursor, &Instr{Op: op, Typ: resultTyp, Args: []Value{x, y}})
}

func (b *Builder) Add(cursor *[]*Instr, x, y Value) Value { return b.binary(cursor, OpAdd, TypeF64, x, y) }
func (b *Builder) Sub(cursor *[]*Instr, x, y Value) Value { return b.binary(cursor, OpSub, TypeF64, x, y) }
func (b *Builder) Mul(cursor *[]*Instr, x, y Value) Value { return b.binary(cursor, OpMul, TypeF64, x, y) }
func (b *Builder) Div(cursor *[]*Instr, x, y Value) Value { return b.binary(cursor, OpDiv, TypeF64, x, y) }
func (b *Builder) Mod(cursor *[]*Instr, x, y Value) Value { return b.binary(cursor, OpMod, TypeF64, x, y) }

func (b *Builder) Eq(cursor *[]*Instr, x, y Value) Value { return b.binary(cursor, OpEq, TypeI32, x, y) }
func (b *Builder) Ne(cursor *[]*Instr, x, y Value) Value { return b.binary(cursor, OpNe, TypeI32, x, y) }
func (b *Builder) Lt(cursor *[]*Instr, x, y Value) Value { return b.binary(cursor, OpLt, TypeI32, x, y) }
func (b *Builder) Le(cursor *[]*Instr, x, y Value) Value { return b.binary(cursor, OpLe, TypeI32, x, y) }
func (b *Builder) Gt(cursor *[]*Instr, x, y Value) Value { return b.binary(cursor, OpGt, TypeI32, x, y) }
func (b *Builder) Ge(cursor *[]*Instr, x, y Value) Value { return b.binary(cursor, OpGe, TypeI32, x, y) }

func (b *Builder) And(cursor *[]*Instr, x, y Value) Value { return b.binary(cursor, OpAnd, TypeI32, x, y) }
func (b *Builder) Or(cursor *[]*Instr, x, y Value) Value  { return b.binary(cursor, OpOr, TypeI32, x, y) }

func (b *Builder) Not(cursor *[]*Instr, x Value) Value {
	return b.Emit(cursor, &Instr{Op: OpNot, Typ: TypeI32, Args: []Value{x}})
}

func (b *Builder) Neg(cursor *[]*Instr, x Value) Value {
	return b.Emit(cursor, &Instr{Op: OpNeg, Typ: TypeF64, Args: []Value{x}})
}

func (b *Builder) StringConcat(cursor *[]*Instr, x, y Value) Value {
	return b.binary(cursor, OpStringConcat, TypeRef, x, y)
}

func (b *Builder) StringEq(cursor *[]*Instr, x, y Value) Value {
	return b.binary(cursor, OpStringEq, TypeI32, x, y)
}

func (b *Builder) NewObject(cursor *[]*Instr, layoutID uint32, fieldInits []Value) Value {
	return b.Emit(cursor, &Instr{Op: OpNewObject, Typ: TypeRef, Args: fieldInits, Imm: Imm{Index: layoutID}})
}

func (b *Builder) FieldGet(cursor *[]*Instr, recv Value, slot uint32, classLayoutID uint32, typ Type) Value {
	return b.Emit(cursor, &Instr{Op: OpFieldGet, Typ: typ, Args: []Value{recv}, Imm: Imm{Index: slot, Aux: classLayoutID}})
}

func (b *Builder) FieldSet(cursor *[]*Instr, recv, v Value, slot uint32, classLayoutID uint32) {
	b.Emit(cursor, &Instr{Op: OpFieldSet, Args: []Value{recv, v}, Imm: Imm{Index: slot, Aux: classLayoutID}})
}

func (b *Builder) MethodCall(cursor *[]*Instr, recv Value, args []Value, vtableSlot uint32, classLayoutID uint32, name string, resultTyp Type) Value {
	allArgs := append([]Value{recv}, args...)
	return b.Emit(cursor, &Instr{Op: OpMethodCall, Typ: resultTyp, Args: allArgs, Imm: Imm{Index: vtableSlot, Aux: classLayoutID, Str: name}})
}

func (b *Builder) StaticCall(cursor *[]*Instr, symbol string, args []Value, resultTyp Type) Value {
	return b.Emit(cursor, &Instr{Op: OpStaticCall, Typ: resultTyp, Args: args, Imm: Imm{Str: symbol}})
}

func (b *Builder) SuperCall(cursor *[]*Instr, recv Value, symbol string, args []Value, resultTyp Type) Value {
	allArgs := append([]Value{recv}, args...)
	return b.Emit(cursor, &Instr{Op: OpSuperCall, Typ: resultTyp, Args: allArgs, Imm: Imm{Str: symbol}})
}

func (b *Builder) InstanceOf(cursor *[]*Instr, v Value, layoutID uint32) Value {
	return b.Emit(cursor, &Instr{Op: OpInstanceOf, Typ: TypeI32, Args: []Value{v}, Imm: Imm{Index: layoutID}})
}

func (b *Builder) WidenInterface(cursor *[]*Instr, v Value, dispatchRecordID uint32) Value {
	return b.Emit(cursor, &Instr{Op: OpWidenInterface, Typ: TypeRef, Args: []Value{v}, Imm: Imm{Index: dispatchRecordID}})
}

func (b *Builder) InterfaceCall(cursor *[]*Instr, view Value, args []Value, memberSlot, ifaceLayoutID uint32, resultTyp Type) Value {
	allArgs := append([]Value{view}, args...)
	return b.Emit(cursor, &Instr{Op: OpInterfaceCall, Typ: resultTyp, Args: allArgs, Imm: Imm{Index: memberSlot, Aux: ifaceLayoutID}})
}

func (b *Builder) NewArray(cursor *[]*Instr, elemTyp Type, elems []Value) Value {
	return b.Emit(cursor, &Instr{Op: OpNewArray, Typ: TypeRef, Args: elems, Imm: Imm{Index: uint32(elemTyp)}})
}

func (b *Builder) ArrayGet(cursor *[]*Instr, arr, idx Value, elemTyp Type) Value {
	return b.Emit(cursor, &Instr{Op: OpArrayGet, Typ: elemTyp, Args: []Value{arr, idx}})
}

func (b *Builder) ArraySet(cursor *[]*Instr, arr, idx, v Value) {
	b.Emit(cursor, &Instr{Op: OpArraySet, Args: []Value{arr, idx, v}})
}

func (b *Builder) ArrayLen(cursor *[]*Instr, arr Value) Value {
	return b.Emit(cursor, &Instr{Op: OpArrayLen, Typ: TypeI32, Args: []Value{arr}})
}

func (b *Builder) RestArrayBuild(cursor *[]*Instr, elemTyp Type, trailing []Value) Value {
	return b.Emit(cursor, &Instr{Op: OpRestArrayBuild, Typ: TypeRef, Args: trailing, Imm: Imm{Index: uint32(elemTyp)}})
}

func (b *Builder) NewClosure(cursor *[]*Instr, symbol string, envLayoutID uint32, captures []Value) Value {
	return b.Emit(cursor, &Instr{Op: OpNewClosure, Typ: TypeRef, Args: captures, Imm: Imm{Str: symbol, Index: envLayoutID}})
}

func (b *Builder) EnvGet(cursor *[]*Instr, env Value, slot uint32, envLayoutID uint32, typ Type) Value {
	return b.Emit(cursor, &Instr{Op: OpEnvGet, Typ: typ, Args: []Value{env}, Imm: Imm{Index: slot, Aux: envLayoutID}})
}

func (b *Builder) EnvSet(cursor *[]*Instr, env, v Value, slot uint32, envLayoutID uint32) {
	b.Emit(cursor, &Instr{Op: OpEnvSet, Args: []Value{env, v}, Imm: Imm{Index: slot, Aux: envLayoutID}})
}

func (b *Builder) CallClosure(cursor *[]*Instr, closure Value, args []Value, resultTyp Type) Value {
	allArgs := append([]Value{closure}, args...)
	return b.Emit(cursor, &Instr{Op: OpCallClosure, Typ: resultTyp, Args: allArgs})
}

func (b *Builder) AnyBox(cursor *[]*Instr, v Value, srcTyp Type) Value {
	return b.Emit(cursor, &Instr{Op: OpAnyBox, Typ: TypeRef, Args: []Value{v}, Imm: Imm{Index: uint32(srcTyp)}})
}

func (b *Builder) AnyUnbox(cursor *[]*Instr, v Value, dstTyp Type) Value {
	return b.Emit(cursor, &Instr{Op: OpAnyUnbox, Typ: dstTyp, Args: []Value{v}, Imm: Imm{Index: uint32(dstTyp)}})
}

func (b *Builder) AnyTypeTest(cursor *[]*Instr, v Value, testTyp Type) Value {
	return b.Emit(cursor, &Instr{Op: OpAnyTypeTest, Typ: TypeI32, Args: []Value{v}, Imm: Imm{Index: uint32(testTyp)}})
}

// --- statements --------------------------------------------------------

func (b *Builder) ExprStmt(cursor *[]*Instr, v Value) {
	*cursor = append(*cursor, &Instr{Op: OpExprStmt, Args: []Value{v}})
}

// If appends an OpIf node and returns pointers to its then/else bodies so
// the caller can keep lowering into them.
func (b *Builder) If(cursor *[]*Instr, cond Value) (then *[]*Instr, els *[]*Instr) {
	instr := &Instr{Op: OpIf, Args: []Value{cond}}
	*cursor = append(*cursor, instr)
	return &instr.Body, &instr.Else
}

// Loop appends an OpLoop node and returns a pointer to its body.
func (b *Builder) Loop(cursor *[]*Instr) *[]*Instr {
	instr := &Instr{Op: OpLoop}
	*cursor = append(*cursor, instr)
	return &instr.Body
}

// Block appends an OpBlock node (a break target with no looping) and
// returns a pointer to its body.
func (b *Builder) Block(cursor *[]*Instr) *[]*Instr {
	instr := &Instr{Op: OpBlock}
	*cursor = append(*cursor, instr)
	return &instr.Body
}

func (b *Builder) Break(cursor *[]*Instr, depth uint32) {
	*cursor = append(*cursor, &Instr{Op: OpBreak, Imm: Imm{Index: depth}})
}

func (b *Builder) Continue(cursor *[]*Instr, depth uint32) {
	*cursor = append(*cursor, &Instr{Op: OpContinue, Imm: Imm{Index: depth}})
}

func (b *Builder) Return(cursor *[]*Instr, v Value) {
	instr := &Instr{Op: OpReturn}
	if v.Valid() {
		instr.Args = []Value{v}
	}
	*cursor = append(*cursor, instr)
}
