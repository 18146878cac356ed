package ir

// Function is a single compiled function body: a flat parameter/local
// frame plus a structured statement tree, rather than the teacher's
// basic-block graph — see SPEC_FULL.md domain-stack notes for why.
type Function struct {
	// Symbol is the mangled name this function is emitted under.
	Symbol string
	// Params lists the physical type of each incoming parameter, receiver
	// (this) included at index 0 for methods.
	Params []Type
	// Locals lists the physical type of every local slot beyond the
	// parameters; LocalGet/LocalSet index into Params++Locals as one
	// contiguous space, matching wasm's local index space.
	Locals []Type
	// Result is the physical return type, or TypeInvalid for a void
	// function.
	Result Type
	// Body is the top-level statement list.
	Body []*Instr
	// Exported marks a function reachable from the module's public API;
	// internal/lower sets it only on the free function named `main`.
	Exported bool
	// SignatureIndex is not written by any pass: the backend keeps its
	// own symbol-to-signature-index table instead.
	SignatureIndex uint32
}

// AddLocal reserves a new local slot of the given type and returns its
// index in the combined params+locals local space.
func (f *Function) AddLocal(t Type) uint32 {
	idx := uint32(len(f.Params) + len(f.Locals))
	f.Locals = append(f.Locals, t)
	return idx
}

// Global is a module-level mutable or immutable storage slot, used for
// hoisted top-level lets and static class fields.
type Global struct {
	Symbol  string
	Typ     Type
	Mutable bool
	// Init is the constant initializer expression tree; non-constant
	// initializers are instead assigned from the module's start function.
	Init *Instr
}

// NewFunction returns a Function declared in the given Builder's Module and
// appended to it.
func (b *Builder) NewFunction(symbol string, params []Type, result Type) *Function {
	fn := &Function{Symbol: symbol, Params: append([]Type(nil), params...), Result: result}
	b.module.Functions = append(b.module.Functions, fn)
	return fn
}

// NewGlobal declares a module-level Global and appends it to the Module.
func (b *Builder) NewGlobal(symbol string, typ Type, mutable bool, init *Instr) *Global {
	g := &Global{Symbol: symbol, Typ: typ, Mutable: mutable, Init: init}
	b.module.Globals = append(b.module.Globals, g)
	return g
}

// NewEnvLayout records a new closure environment-record shape and returns
// its index, the value OpNewClosure's Imm.Index and that closure's
// OpEnvGet/OpEnvSet both reference.
func (b *Builder) NewEnvLayout(fields []Type) uint32 {
	idx := uint32(len(b.module.EnvLayouts))
	b.module.EnvLayouts = append(b.module.EnvLayouts, &EnvLayout{Fields: append([]Type(nil), fields...)})
	return idx
}
