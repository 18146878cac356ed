// Package backend implements spec.md §4.4: turning a frozen internal/ir.Module
// (plus the class/interface layout tables internal/types produced) into a
// WebAssembly module value, emittable as either binary or text. It plays the
// role the teacher's internal/engine/wazevo/backend package plays for
// wazevo's SSA: the last stage that walks a finished IR and produces
// concrete machine-consumable output, here that output is a wasm module
// instead of native code.
package backend

// Options mirrors the subset of the root CompileOptions (spec.md §6) the
// backend itself needs to change emission behavior. The root package maps
// its own CompileOptions onto this at the Emit call site, keeping
// internal/backend free of a dependency on the root package.
type Options struct {
	// IsBuiltIn marks the compiled files as the built-in library itself.
	// No part of the backend reads it; emission is the same either way.
	IsBuiltIn bool
	// DisableAny removes the dynamic-type runtime import (libdyntype.*)
	// from the emitted import section. A box, unbox or type test across
	// the `any` boundary then reports UnresolvedBuiltin; code typed `any`
	// that needs none of these emits without a diagnostic.
	DisableAny bool
	// DisableInterface leaves the libdstructdyn.* imports out of the
	// import section. Interface view and dispatch types are still emitted
	// and no diagnostic is reported.
	DisableInterface bool
	// DisableBuiltIn omits the builtIn.* import namespace entirely; any
	// lowered reference to a builtin aborts emission instead.
	DisableBuiltIn bool
	// Opt is an optimization hint. The backend performs no optimization of
	// its own (spec.md Non-goals); it is threaded through only so a future
	// pass has somewhere to read it from.
	Opt int
}
