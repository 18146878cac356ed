package backend

// Module is the backend's finished output: every section a wasm binary
// needs, already deduplicated and index-resolved, ready for
// internal/backend/encoding or internal/backend/text to serialize. It is
// the direct structural analogue of the teacher's internal/wasm.Module
// (decoded-module value, pre-instantiation), generalized from "what a
// decoder produced" to "what this project's own emitter produced".
type Module struct {
	Types   *TypeTable
	Imports []Import
	Funcs   []*Func
	Globals []Global
	Memory  Memory
	Table   Table
	Exports []Export
	// Start, if non-nil, is the index (into Funcs, after Imports) of the
	// function run once at instantiation, the synthesized module start
	// function internal/lower built (spec.md §4.4's `~start`).
	Start *uint32
	Data  []DataSegment
	Names NameSection
}

// ImportKind distinguishes what an Import introduces.
type ImportKind byte

const (
	ImportFunc ImportKind = iota
	ImportMemory
	ImportTable
	ImportGlobal
)

// Import is one entry of the import section, used for the dynamic-type
// runtime (libdyntype.*), struct-dynamic helpers (libdstructdyn.*) and the
// builtIn.* namespace (spec.md §6).
type Import struct {
	Module string
	Name   string
	Kind   ImportKind
	// SigIdx is meaningful when Kind == ImportFunc: the index into Types.
	SigIdx uint32
}

// Func is one function-section/code-section pair: a defined (non-import)
// function body.
type Func struct {
	Name    string
	SigIdx  uint32
	Locals  []ValType // beyond the signature's own params.
	Body    []Instr
	Exported string // non-empty when this function is also in Exports under this name.
}

// Global is one module-level global.
type Global struct {
	Name    string
	Type    ValType
	Mutable bool
	Init    []Instr // a constant expression, per the wasm binary format's restriction.
}

// Memory describes the module's single linear memory.
type Memory struct {
	InitialPages uint32
	MaxPages     uint32
}

// Table describes the module's single object table, seeded with the GC
// root type and growable in fixed deltas (spec.md §4.4).
type Table struct {
	ElemType     ValType
	InitialPages uint32
	MaxPages     uint32
	GrowthDelta  uint32
}

// ExportKind distinguishes what an Export refers to.
type ExportKind byte

const (
	ExportFunc ExportKind = iota
	ExportMemory
	ExportTable
	ExportGlobal
)

// Export is one entry of the export section.
type Export struct {
	Name  string
	Kind  ExportKind
	Index uint32
}

// DataSegment is one passive-free, memory-index-0 active data segment.
// this project never needs more than one memory, so every segment is
// active against it.
type DataSegment struct {
	Offset uint32
	Bytes  []byte
}

// NameSection carries the custom "name" section's module/function/local
// subsections, matching the teacher's own wasm.NameSection shape.
type NameSection struct {
	ModuleName    string
	FunctionNames map[uint32]string
	LocalNames    map[uint32]map[uint32]string
}
