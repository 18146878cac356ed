// Package scope builds the lexical scope tree and resolves every
// identifier reference to the Symbol it names, per spec.md §4.1. It runs
// in two sub-passes over each file's forest: Declare registers every
// binding a scope introduces (so forward references and hoisting work
// regardless of textual order within a function/namespace body), then
// Resolve walks every identifier use and attaches its Symbol.
package scope

import (
	"github.com/open-vela/ts2wasm/ast"
	"github.com/open-vela/ts2wasm/internal/diag"
)

// Tag identifies what kind of lexical construct a Scope represents.
type Tag int

const (
	TagGlobal Tag = iota
	TagNamespace
	TagFunction
	TagBlock
	TagClass
)

// Kind identifies what a Symbol names.
type Kind int

const (
	KindVar Kind = iota
	KindConst
	KindParam
	KindFunction
	KindClass
	KindInterface
	KindField
	KindMethod
	KindNamespace
)

// Symbol is one named binding: a variable, parameter, function, class,
// interface, or class member.
type Symbol struct {
	Name  string
	Kind  Kind
	Scope *Scope
	Node  ast.Node
	// Used is set by Resolve the first time an identifier resolves to
	// this Symbol; reserved for a future dead-declaration diagnostic, not
	// yet enforced as an error (see DESIGN.md).
	Used bool
}

// Scope is one node of the lexical scope tree. It mirrors a parent-pointer
// tree with a per-scope symbol table, the same shape used throughout the
// retrieval pack's hand-rolled symbol tables, but kept terse: no scope
// "owns" comments explaining why a tree is the right structure for this —
// it simply is one.
type Scope struct {
	Tag      Tag
	Parent   *Scope
	Children []*Scope
	Symbols  map[string]*Symbol
	// Func is the enclosing TagFunction scope (or nil at global/namespace
	// scope), used to resolve which Function's frame a captured variable
	// belongs to when lowering closures.
	Func *Scope
	// Depth is the distance to the global scope, root at 0.
	Depth int
}

func newScope(tag Tag, parent *Scope) *Scope {
	s := &Scope{
		Tag:     tag,
		Parent:  parent,
		Symbols: make(map[string]*Symbol),
	}
	if parent != nil {
		s.Depth = parent.Depth + 1
		s.Func = parent.Func
		parent.Children = append(parent.Children, s)
	}
	if tag == TagFunction {
		s.Func = s
	}
	return s
}

// Declare registers a new Symbol in s. It reports CodeDuplicateIdentifier
// if name is already bound directly in s (shadowing an outer scope's
// binding of the same name is allowed and is the common case for
// parameters shadowing module-level lets).
func (s *Scope) Declare(name string, kind Kind, node ast.Node, diags *diag.Collector) *Symbol {
	if existing, ok := s.Symbols[name]; ok {
		diags.Addf(diag.CodeDuplicateIdentifier, node.Pos(), "%q is already declared in this scope", name)
		return existing
	}
	sym := &Symbol{Name: name, Kind: kind, Scope: s, Node: node}
	s.Symbols[name] = sym
	return sym
}

// Lookup searches s and its ancestors for name, returning nil if unbound
// anywhere up to the global scope.
func (s *Scope) Lookup(name string) *Symbol {
	for cur := s; cur != nil; cur = cur.Parent {
		if sym, ok := cur.Symbols[name]; ok {
			return sym
		}
	}
	return nil
}

// LookupLocal searches only s itself, not its ancestors.
func (s *Scope) LookupLocal(name string) *Symbol {
	return s.Symbols[name]
}

// CrossesFunctionBoundary reports whether use, resolved from useScope,
// refers to a Symbol declared in an outer function's scope — i.e. whether
// reading it is a closure capture rather than a plain local reference.
func CrossesFunctionBoundary(useScope *Scope, sym *Symbol) bool {
	return useScope.Func != nil && sym.Scope.Func != nil && useScope.Func != sym.Scope.Func
}
