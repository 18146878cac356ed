// Package diag implements the compiler's error taxonomy: a closed set of
// user-facing diagnostic codes collected per-pass, versus implementation-bug
// panics that abort the compile outright. No pass attempts to recover from
// a user error mid-pass; it records a Diagnostic and keeps analyzing the
// rest of the input so a single invocation can report more than one
// mistake, mirroring the teacher's own "collect what you can, fail loud on
// what you can't" discipline in its module-instantiation validation path.
package diag

import "fmt"

// Code identifies the category of a user-facing compiler error. It is a
// closed enum: every value a pass may produce is named here, so a missing
// case in an exhaustive switch is a compile-time-reviewable omission.
type Code int

const (
	_ Code = iota

	// Scope & symbol errors (pass 1).
	CodeDuplicateIdentifier
	CodeUnresolvedIdentifier

	// Type errors (pass 2).
	CodeTypeMismatch
	CodeNotAssignable
	CodeUnknownMember
	CodeCyclicTypeReference

	// Lowering errors (pass 3).
	CodeUnsupportedLowering
	CodeInvalidSuperCall
	CodeInvalidAnyConversion

	// Backend errors (pass 4).
	CodeModuleTooLarge
	CodeUnresolvedBuiltin
)

func (c Code) String() string {
	switch c {
	case CodeDuplicateIdentifier:
		return "DuplicateIdentifier"
	case CodeUnresolvedIdentifier:
		return "UnresolvedIdentifier"
	case CodeTypeMismatch:
		return "TypeMismatch"
	case CodeNotAssignable:
		return "NotAssignable"
	case CodeUnknownMember:
		return "UnknownMember"
	case CodeCyclicTypeReference:
		return "CyclicTypeReference"
	case CodeUnsupportedLowering:
		return "UnsupportedLowering"
	case CodeInvalidSuperCall:
		return "InvalidSuperCall"
	case CodeInvalidAnyConversion:
		return "InvalidAnyConversion"
	case CodeModuleTooLarge:
		return "ModuleTooLarge"
	case CodeUnresolvedBuiltin:
		return "UnresolvedBuiltin"
	default:
		return "Unknown"
	}
}

// Pos is the source position a Diagnostic points at. It is deliberately a
// plain value type with no dependency on the ast package, so diag stays a
// leaf package every other pass can import without a cycle.
type Pos struct {
	File   string
	Line   int
	Column int
}

func (p Pos) String() string {
	if p.File == "" {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// Diagnostic is one reported user-facing compiler error.
type Diagnostic struct {
	Code    Code
	Pos     Pos
	Message string
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s: %s", d.Pos, d.Code, d.Message)
}

// New constructs a Diagnostic with a formatted message.
func New(code Code, pos Pos, format string, args ...any) *Diagnostic {
	return &Diagnostic{Code: code, Pos: pos, Message: fmt.Sprintf(format, args...)}
}

// Collector accumulates Diagnostics across a single pass, or across the
// whole compile when shared between passes. It never panics on a user
// error; panics remain reserved for invariant violations that indicate a
// bug in the compiler itself.
type Collector struct {
	diags []*Diagnostic
}

// Add records a Diagnostic.
func (c *Collector) Add(d *Diagnostic) {
	c.diags = append(c.diags, d)
}

// Addf is a convenience wrapper around Add(New(...)).
func (c *Collector) Addf(code Code, pos Pos, format string, args ...any) {
	c.Add(New(code, pos, format, args...))
}

// HasErrors reports whether any Diagnostic has been recorded.
func (c *Collector) HasErrors() bool {
	return len(c.diags) > 0
}

// Diagnostics returns every Diagnostic recorded so far, in report order.
func (c *Collector) Diagnostics() []*Diagnostic {
	return c.diags
}

// Merge appends another Collector's diagnostics into c, used to combine
// per-file collectors into a single per-compile report.
func (c *Collector) Merge(other *Collector) {
	c.diags = append(c.diags, other.diags...)
}
