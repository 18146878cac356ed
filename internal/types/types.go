// Package types implements the semantic type lattice, subtyping rules and
// the two-phase resolver spec.md §4.2 and §9 describe. It sits between
// internal/scope (which only resolves identifiers) and internal/lower
// (which needs a fully resolved Type, including cyclic class/interface
// references, before it can lower a single expression).
package types

// Kind is the tag of the semantic type lattice.
type Kind int

const (
	KindInvalid Kind = iota
	KindNumber
	KindString
	KindBool
	KindVoid
	KindAny
	KindNull
	KindClass
	KindInterface
	KindArray
	KindFunction
)

// Type is a semantic surface type. Only the field matching Kind is
// meaningful; the rest are nil/zero. Unlike ir.Type (the physical
// lowering target), distinct Types here can share a physical
// representation — e.g. every KindClass Type lowers to ir.TypeRef.
type Type struct {
	Kind      Kind
	Class     *ClassType
	Interface *InterfaceType
	Elem      *Type // KindArray's element type
	Func      *FuncType
	// Nullable marks a `T | null` annotation; only meaningful on
	// reference-kinded Types (class/interface/array/string/function).
	Nullable bool
}

// Member is one structural member of a class or interface: a method
// signature or a property type.
type Member struct {
	Name   string
	Func   *FuncType // non-nil for a method/accessor member
	Prop   *Type     // non-nil for a plain property member
	Static bool
}

// FuncType is a function/closure signature.
type FuncType struct {
	Params []*Type
	Result *Type
}

// Field is one declared field slot of a ClassType, in declaration order
// before any inherited-slot reordering the backend performs.
type Field struct {
	Name    string
	Type    *Type
	Static  bool
	HasInit bool
	// Slot is this field's index in the flattened instance layout
	// (inherited fields first, then this class's own), filled in by
	// BuildLayouts. Static fields are not part of the instance layout;
	// internal/lower assigns them a module Global in source declaration
	// order instead, to keep global numbering deterministic across
	// compiles (map iteration order is not).
	Slot uint32
}

// Method is one declared method of a ClassType.
type Method struct {
	Name string
	Sig  *FuncType
	// VTableSlot is filled in once the class's vtable is flattened (see
	// BuildLayouts).
	VTableSlot uint32
}

// ClassType is a nominal class: subtyping between two ClassTypes follows
// the Extends chain only, never member-set comparison.
type ClassType struct {
	Name       string
	Extends    *ClassType // nil for a class with no explicit base
	Implements []*InterfaceType
	Fields     []*Field
	Methods    []*Method
	// LayoutID identifies this class's field/vtable layout to the IR and
	// backend once flattened.
	LayoutID uint32
}

// InterfaceType is a structural interface: any ClassType (or other
// InterfaceType) whose member set is compatible satisfies it, regardless
// of declared `implements` clauses — those clauses only pre-flatten a
// dispatch record at compile time, they are not what makes the assignment
// legal.
type InterfaceType struct {
	Name    string
	Members []*Member
	// LayoutID identifies this interface's dispatch-struct layout to the
	// IR and backend once flattened, the interface-side counterpart of
	// ClassType.LayoutID.
	LayoutID uint32
}

// IsSubclassOf reports whether c is exactly base or inherits from it,
// walking the Extends chain.
func (c *ClassType) IsSubclassOf(base *ClassType) bool {
	for cur := c; cur != nil; cur = cur.Extends {
		if cur == base {
			return true
		}
	}
	return false
}

// FindMethod looks up name in c's own methods, then its ancestors.
func (c *ClassType) FindMethod(name string) *Method {
	for cur := c; cur != nil; cur = cur.Extends {
		for _, m := range cur.Methods {
			if m.Name == name {
				return m
			}
		}
	}
	return nil
}

// FindField looks up name in c's own fields, then its ancestors.
func (c *ClassType) FindField(name string) *Field {
	for cur := c; cur != nil; cur = cur.Extends {
		for _, f := range cur.Fields {
			if f.Name == name {
				return f
			}
		}
	}
	return nil
}

// Convenience constructors for the primitive singletons.
var (
	Number    = &Type{Kind: KindNumber}
	StringT   = &Type{Kind: KindString}
	Bool      = &Type{Kind: KindBool}
	Void      = &Type{Kind: KindVoid}
	Any       = &Type{Kind: KindAny}
	NullConst = &Type{Kind: KindNull}
)
