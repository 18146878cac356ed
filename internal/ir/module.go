package ir

// Module is the complete lowered output of internal/lower, ready for
// internal/backend to emit as a wasm binary. It plays the role the
// teacher's ssa.Builder's finished function list plays for wazevo's
// backend, generalized to a whole-program unit instead of one function at
// a time, since our backend emits a single wasm module per compile.
type Module struct {
	Functions []*Function
	Globals   []*Global
	Strings   *StringPool
	Data      *DataPool
	// Start, if non-nil, is the function run to initialize module-level
	// state (non-constant global initializers, static field initializers)
	// before any exported function may be called.
	Start *Function
	// EnvLayouts holds one entry per closure literal lowered, describing
	// the physical type of each captured-variable slot in declaration
	// order. OpNewClosure's Imm.Index and every OpEnvGet/OpEnvSet against
	// that closure's env value index into this slice, giving
	// internal/backend the field list it needs to declare that closure's
	// environment-record struct type.
	EnvLayouts []*EnvLayout
}

// EnvLayout is one closure's captured-variable record shape.
type EnvLayout struct {
	Fields []Type
}

// NewModule returns an empty Module with fresh pools.
func NewModule() *Module {
	return &Module{
		Strings: NewStringPool(),
		Data:    NewDataPool(),
	}
}

// Freeze finalizes the pools' offset tables. Call once lowering has
// produced every string/data constant it will ever produce.
func (m *Module) Freeze() {
	m.Strings.Freeze()
	m.Data.Freeze()
}
