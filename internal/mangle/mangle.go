// Package mangle computes the stable wasm-level symbol names the lowering
// and backend passes agree on, so a function/global can be referenced by
// name before its final section index is known. Characters wasm's own
// name section tooling handles awkwardly (`/ . | @ -`) are folded to `_`,
// and a small set of fixed templates name the synthetic symbols the
// compiler itself introduces (constructors, vtables, closures, dispatch
// records) that have no corresponding surface-syntax name.
package mangle

import "strings"

var replacer = strings.NewReplacer("/", "_", ".", "_", "|", "_", "@", "_", "-", "_")

// Sanitize folds characters illegal or awkward in a wasm symbol name to
// underscore.
func Sanitize(name string) string {
	return replacer.Replace(name)
}

// Function returns the mangled symbol for a free function or namespace-
// qualified function, joined with '.', e.g. "ns.helper" -> "ns_helper".
func Function(qualifiedName string) string {
	return Sanitize(qualifiedName)
}

// Method returns the mangled symbol for an instance method of class.
func Method(class, method string) string {
	return Sanitize(class) + "|" + Sanitize(method)
}

// Constructor returns the mangled symbol for class's constructor.
func Constructor(class string) string {
	return Sanitize(class) + "|ctor"
}

// VTable returns the mangled symbol for class's shared dispatch-table
// global and its backing struct type.
func VTable(class string) string {
	return Sanitize(class) + "|vtable"
}

// StaticField returns the mangled symbol for a static field's backing
// global.
func StaticField(class, field string) string {
	return Sanitize(class) + "|static|" + Sanitize(field)
}

// ModuleLet returns the mangled symbol for a hoisted module-level
// variable's backing global.
func ModuleLet(name string) string {
	return "global|" + Sanitize(name)
}

// Closure returns the mangled symbol for one lexical instantiation site of
// a closure, disambiguated by a caller-supplied sequence number since two
// textually-identical arrow functions at different call sites are
// distinct functions.
func Closure(enclosing string, seq int) string {
	return Sanitize(enclosing) + "|closure" + itoa(seq)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
