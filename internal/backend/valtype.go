package backend

// AbstractHeap names one of the abbreviated GC heap types the
// reference-types/GC proposals define, used by ValType when a reference
// does not point at one of this module's own concrete struct/array/func
// type-section entries.
type AbstractHeap byte

const (
	HeapNone AbstractHeap = iota // not abstract; see HeapType.Index instead
	HeapAny
	HeapEq
	HeapI31
	HeapStruct
	HeapArray
	HeapFunc
	HeapExtern
	HeapNoneRef // the bottom type of the any hierarchy ("none")
)

// HeapType names what a reference points at: either one of the abstract
// kinds above, or a concrete entry in the module's type section (a class's
// struct type, an interface's view struct type, a closure's env/func pair,
// or a function signature).
type HeapType struct {
	Abstract AbstractHeap
	Index    uint32 // meaningful only when Abstract == HeapNone
}

// ValType is a wasm value type as it appears in a function signature,
// struct field, array element, global, or local declaration. Unlike
// api.ValueType (a single byte sufficient for the numeric MVP types this
// project's teacher targets), a GC reference type additionally carries a
// heap type and nullability, so it cannot be squeezed into one byte here.
type ValType struct {
	// Kind distinguishes the unboxed numeric representations from a GC
	// reference; when Kind == ValRef, Heap/Nullable describe the
	// reference, otherwise they are zero.
	Kind     ValKind
	Heap     HeapType
	Nullable bool
}

type ValKind byte

const (
	ValI32 ValKind = iota
	ValI64
	ValF32
	ValF64
	ValRef
)

// Convenience constructors mirroring the physical ir.Type lattice.
var (
	I32 = ValType{Kind: ValI32}
	F64 = ValType{Kind: ValF64}
	// AnyRef is the nullable top reference type, used for a boxed `any`
	// value and as the object table's root element type.
	AnyRef = ValType{Kind: ValRef, Heap: HeapType{Abstract: HeapAny}, Nullable: true}
	// EqRef backs values participating in ref.eq (objects, arrays, boxed
	// primitives), the common supertype struct/array types are declared
	// against.
	EqRef = ValType{Kind: ValRef, Heap: HeapType{Abstract: HeapEq}, Nullable: true}
	// FuncRef backs the object table's element type and any first-class
	// function reference not yet resolved to a typed function reference.
	FuncRef = ValType{Kind: ValRef, Heap: HeapType{Abstract: HeapFunc}, Nullable: true}
)

// Concrete returns a reference, nullable or not as nullable says, to the
// type-section entry at index idx (a struct, array, or func type), as used for a `this`
// receiver, an interface view, or a typed function reference.
func Concrete(idx uint32, nullable bool) ValType {
	return ValType{Kind: ValRef, Heap: HeapType{Index: idx}, Nullable: nullable}
}
