package ts2wasm

import "github.com/open-vela/ts2wasm/internal/backend"

// CompileOptions controls Compile's behavior, with the default
// implementation as NewCompileOptions. It follows the same
// functional-options-with-defensive-clone shape as the teacher's own
// RuntimeConfig: every With* method clones before mutating, so a
// CompileOptions held by the caller and mutated after a compile already
// ran never retroactively changes that compile's result, the discipline
// spec.md §8's determinism property depends on.
type CompileOptions struct {
	moduleName       string
	isBuiltIn        bool
	disableAny       bool
	disableInterface bool
	disableBuiltIn   bool
	opt              int
}

// NewCompileOptions returns the default CompileOptions: the built-in
// library itself is not assumed, and every optional dispatch surface
// (`any`, interfaces, builtIn.*) is enabled.
func NewCompileOptions() CompileOptions {
	return CompileOptions{}
}

// clone ensures all fields are copied even if a future field is a
// reference type, matching the teacher's own clone rationale in
// config.go.
func (o *CompileOptions) clone() *CompileOptions {
	ret := *o
	return &ret
}

// WithModuleName sets the name Compile's resulting api.Module reports
// from Name(). Defaults to the empty string.
func (o CompileOptions) WithModuleName(name string) CompileOptions {
	ret := o.clone()
	ret.moduleName = name
	return *ret
}

// WithIsBuiltIn marks the compiled files as the built-in library itself.
// The flag is passed on as backend.Options.IsBuiltIn, which no pass
// reads, so the emitted module is the same with or without it.
func (o CompileOptions) WithIsBuiltIn(v bool) CompileOptions {
	ret := o.clone()
	ret.isBuiltIn = v
	return *ret
}

// WithDisableAny removes the dynamic-type runtime import (libdyntype.*)
// from the emitted module. With this set, compiling a file that boxes a
// value into `any`, unboxes one out of it or type-tests it produces a
// diagnostic rather than a module; a file that only declares `any`-typed
// values without any of those steps still compiles.
func (o CompileOptions) WithDisableAny(v bool) CompileOptions {
	ret := o.clone()
	ret.disableAny = v
	return *ret
}

// WithDisableInterface leaves the libdstructdyn.* imports out of the
// emitted module. Interfaces are still compiled as usual (view and
// dispatch types, interface method calls) and no diagnostic is reported.
func (o CompileOptions) WithDisableInterface(v bool) CompileOptions {
	ret := o.clone()
	ret.disableInterface = v
	return *ret
}

// WithDisableBuiltIn omits the builtIn.* import namespace entirely from
// the emitted module; a lowered reference to a builtin aborts emission
// instead of importing it.
func (o CompileOptions) WithDisableBuiltIn(v bool) CompileOptions {
	ret := o.clone()
	ret.disableBuiltIn = v
	return *ret
}

// WithOptimizationLevel sets the optimization hint threaded down to
// internal/backend.Options.Opt. The backend performs no optimization of
// its own beyond constant folding (spec.md Non-goals); this exists only
// so a future pass has somewhere to read a caller's intent from.
func (o CompileOptions) WithOptimizationLevel(level int) CompileOptions {
	ret := o.clone()
	ret.opt = level
	return *ret
}

func (o CompileOptions) toBackendOptions() backend.Options {
	return backend.Options{
		IsBuiltIn:        o.isBuiltIn,
		DisableAny:       o.disableAny,
		DisableInterface: o.disableInterface,
		DisableBuiltIn:   o.disableBuiltIn,
		Opt:              o.opt,
	}
}
