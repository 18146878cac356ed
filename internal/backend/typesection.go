package backend

// TypeDef is one entry of the module's combined type section. GC types
// (struct/array) share the same index space as function types, and a
// struct type may declare itself a subtype of an earlier struct type.
// the encoding of a class's Extends chain into the GC proposal's
// declared-subtyping rule, so a derived class's struct type is a true wasm
// subtype of its base, letting an upcast be a no-op at the wasm level.
type TypeDef struct {
	Name string // for the name section / WAT output only, never load-bearing.

	Func   *FuncSig
	Struct *StructSig
	Array  *ArraySig

	// Super, if non-nil, names the type index this one is declared a
	// subtype of (struct subtyping for class inheritance). Final, if
	// false, lets subtypes be declared against this type; it is true for
	// every entry except a struct that a later AddStruct names as its
	// super.
	Super *uint32
	Final bool
}

// FuncSig is a function signature: either a plain call target or the
// target of a typed function reference (closures, interface methods).
type FuncSig struct {
	Params  []ValType
	Results []ValType
}

// StructField is one field of a StructSig, in declaration order.
type StructField struct {
	Name    string
	Type    ValType
	Mutable bool
}

// StructSig backs one class's instance layout, one interface's view
// layout, or one closure's environment record.
type StructSig struct {
	Fields []StructField
}

// ArraySig backs one array<T> element type.
type ArraySig struct {
	Elem    ValType
	Mutable bool
}

// TypeTable interns TypeDefs and assigns each a stable index, built up in
// a single deterministic pass (never by map iteration) so repeated
// compiles of the same input produce the same type section, per spec.md
// §8.
type TypeTable struct {
	defs    []TypeDef
	funcIdx map[funcKey]uint32
}

type funcKey struct{ params, results string }

func NewTypeTable() *TypeTable {
	return &TypeTable{funcIdx: make(map[funcKey]uint32)}
}

// AddStruct appends a new struct type (one per class/interface-view/
// closure-env, never deduplicated, each has distinct field semantics
// even when two happen to share a shape) and returns its index.
func (t *TypeTable) AddStruct(name string, sig *StructSig, super *uint32) uint32 {
	idx := uint32(len(t.defs))
	if super != nil {
		t.defs[*super].Final = false
	}
	t.defs = append(t.defs, TypeDef{Name: name, Struct: sig, Super: super, Final: true})
	return idx
}

// AddArray appends a new array type and returns its index.
func (t *TypeTable) AddArray(name string, sig *ArraySig) uint32 {
	idx := uint32(len(t.defs))
	t.defs = append(t.defs, TypeDef{Name: name, Array: sig, Final: true})
	return idx
}

// InternFunc returns the index of a function type matching sig, declaring
// a new one if this exact (params, results) pair hasn't been seen before
//, the type-deduplication wasm modules conventionally perform to keep
// the type section small.
func (t *TypeTable) InternFunc(name string, sig *FuncSig) uint32 {
	key := funcKey{params: valTypesKey(sig.Params), results: valTypesKey(sig.Results)}
	if idx, ok := t.funcIdx[key]; ok {
		return idx
	}
	idx := uint32(len(t.defs))
	t.defs = append(t.defs, TypeDef{Name: name, Func: sig, Final: true})
	t.funcIdx[key] = idx
	return idx
}

func (t *TypeTable) Defs() []TypeDef { return t.defs }

func valTypesKey(vs []ValType) string {
	buf := make([]byte, 0, len(vs)*3)
	for _, v := range vs {
		buf = append(buf, byte(v.Kind))
		if v.Kind == ValRef {
			buf = append(buf, byte(v.Heap.Abstract))
			buf = append(buf, byte(v.Heap.Index), byte(v.Heap.Index>>8), byte(v.Heap.Index>>16), byte(v.Heap.Index>>24))
			if v.Nullable {
				buf = append(buf, 1)
			}
		}
	}
	return string(buf)
}
