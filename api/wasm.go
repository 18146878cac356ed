// Package api is the public facade this project hands callers of
// Compile: wire-level type tags and a read-only view of a compiled
// module's export surface. It plays the role the teacher's own api
// package plays for wazero's Module/ValueType, generalized from
// "describes a runtime instantiation" to "describes a compiled
// artifact" — compiling to a wasm module is this project's whole job,
// running the result is out of scope.
package api

// ExternType classifies one entry of a module's export section.
type ExternType byte

const (
	ExternTypeFunc ExternType = iota
	ExternTypeMemory
	ExternTypeTable
	ExternTypeGlobal
)

// ExternTypeName returns the Text Format field name of the given type.
func ExternTypeName(et ExternType) string {
	switch et {
	case ExternTypeFunc:
		return "func"
	case ExternTypeMemory:
		return "memory"
	case ExternTypeTable:
		return "table"
	case ExternTypeGlobal:
		return "global"
	default:
		return "unknown"
	}
}

// ValueType describes one wasm value type as it appears in an exported
// function's signature. The teacher's own ValueType only ever needed
// wasm 1.0's four numeric types plus one opaque externref; this
// project's surface language lowers to the reference-types/GC
// proposals instead, so ValueType also carries the GC heap-type tags
// that distinguish a boxed `any`, a class instance, an array, and a
// first-class function from one another at the granularity a caller
// inspecting a Module's export signatures needs, without exposing
// internal/backend.ValType's full concrete-type-index machinery.
type ValueType byte

const (
	// ValueTypeI32 backs the language's array indices and booleans, the
	// only i32-shaped surface values.
	ValueTypeI32 ValueType = iota
	// ValueTypeF64 backs the language's one numeric type.
	ValueTypeF64
	// ValueTypeFuncref backs a first-class function value not pinned to
	// one concrete signature.
	ValueTypeFuncref
	// ValueTypeExternref is kept for parity with the teacher's own
	// externref, an opaque host-owned reference this project never
	// produces on its own but may need to describe if embedded.
	ValueTypeExternref
	// ValueTypeEqref backs values compared with reference equality:
	// class instances, closures, boxed primitives.
	ValueTypeEqref
	// ValueTypeStructref backs a bare class instance or closure struct.
	ValueTypeStructref
	// ValueTypeArrayref backs the language's array<T>.
	ValueTypeArrayref
	// ValueTypeI31ref backs a boxed small integer packed without a heap
	// allocation.
	ValueTypeI31ref
	// ValueTypeAnyref backs the language's `any`.
	ValueTypeAnyref
	// ValueTypeNullref is the bottom type of the any hierarchy, the type
	// of the literal `null`.
	ValueTypeNullref
)

// ValueTypeName returns the type name of the given ValueType as a
// string. Returns "unknown" for an undefined ValueType value.
func ValueTypeName(t ValueType) string {
	switch t {
	case ValueTypeI32:
		return "i32"
	case ValueTypeF64:
		return "f64"
	case ValueTypeFuncref:
		return "funcref"
	case ValueTypeExternref:
		return "externref"
	case ValueTypeEqref:
		return "eqref"
	case ValueTypeStructref:
		return "structref"
	case ValueTypeArrayref:
		return "arrayref"
	case ValueTypeI31ref:
		return "i31ref"
	case ValueTypeAnyref:
		return "anyref"
	case ValueTypeNullref:
		return "nullref"
	default:
		return "unknown"
	}
}

// FunctionDefinition describes one exported function's name and wire
// signature: the subset of the teacher's own FunctionDefinition this
// project's static, non-instantiating Module needs to report.
type FunctionDefinition struct {
	Name        string
	ParamTypes  []ValueType
	ResultTypes []ValueType
}

// Module is the public, read-only view of one successfully compiled
// module: its name and its exported functions' wire signatures, the
// data a caller linking this output into a host embedder needs without
// reaching into internal/backend.Module's full section layout (types,
// locals, instruction bodies, the name section) — the same boundary the
// teacher draws between its public api.Module and its internal
// wasm.Module.
type Module struct {
	name      string
	functions map[string]FunctionDefinition
	order     []string // export order, for deterministic iteration
}

// NewModule returns an empty Module with the given name. Compile is the
// only caller; it populates exports via AddFunction while translating a
// finished internal/backend.Module into the public surface.
func NewModule(name string) *Module {
	return &Module{name: name, functions: map[string]FunctionDefinition{}}
}

// Name returns the compiled module's name, as given to Compile.
func (m *Module) Name() string { return m.name }

// AddFunction records one exported function's public signature.
func (m *Module) AddFunction(def FunctionDefinition) {
	if _, ok := m.functions[def.Name]; !ok {
		m.order = append(m.order, def.Name)
	}
	m.functions[def.Name] = def
}

// ExportedFunction looks up one exported function's public signature by
// name.
func (m *Module) ExportedFunction(name string) (FunctionDefinition, bool) {
	d, ok := m.functions[name]
	return d, ok
}

// ExportedFunctionNames returns every exported function's name, in
// export order.
func (m *Module) ExportedFunctionNames() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}
