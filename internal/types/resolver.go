package types

import (
	"github.com/open-vela/ts2wasm/ast"
	"github.com/open-vela/ts2wasm/internal/diag"
	"github.com/open-vela/ts2wasm/internal/scope"
)

// Resolver resolves every ast.TypeExpr in a Forest into a semantic *Type,
// and every ClassDecl/InterfaceDecl into a *ClassType/*InterfaceType.
//
// Class and interface references may be cyclic (two classes each holding a
// field typed as the other), so resolution runs in two phases per
// spec.md §9: Declare creates a placeholder ClassType/InterfaceType for
// every declaration with only its Name set, so any reference encountered
// while filling in one declaration's members can already find the
// placeholder for another; Fill then populates Extends/Implements/Fields/
// Methods/Members against those placeholders.
type Resolver struct {
	Tree     *scope.Tree
	classes  map[string]*ClassType
	ifaces   map[string]*InterfaceType
	nextLay  uint32
	diags    *diag.Collector
	exprType map[ast.Expr]*Type

	// classOrder/ifaceOrder record declaration order (map iteration is not
	// deterministic in Go, but spec.md §8 requires the backend's type
	// section to be emitted in a stable order across compiles of the same
	// input).
	classOrder []string
	ifaceOrder []string
}

// NewResolver returns a Resolver bound to a previously-built scope Tree.
func NewResolver(tree *scope.Tree, diags *diag.Collector) *Resolver {
	return &Resolver{
		Tree:     tree,
		classes:  make(map[string]*ClassType),
		ifaces:   make(map[string]*InterfaceType),
		diags:    diags,
		exprType: make(map[ast.Expr]*Type),
	}
}

// Resolve runs both phases over forest and fills the class/interface
// tables, which internal/lower then queries by name through Class and
// Interface.
func (r *Resolver) Resolve(forest *ast.Forest) {
	for _, f := range forest.Files {
		r.declarePlaceholders(f.Decls)
	}
	for _, f := range forest.Files {
		r.fillDecls(f.Decls)
	}
}

// Class returns the resolved ClassType for name, or nil if undeclared.
func (r *Resolver) Class(name string) *ClassType { return r.classes[name] }

// Interface returns the resolved InterfaceType for name, or nil if
// undeclared.
func (r *Resolver) Interface(name string) *InterfaceType { return r.ifaces[name] }

// ClassNames returns every declared class name in source declaration
// order, for backend components that must emit one entry per class
// deterministically.
func (r *Resolver) ClassNames() []string { return r.classOrder }

// InterfaceNames returns every declared interface name in source
// declaration order.
func (r *Resolver) InterfaceNames() []string { return r.ifaceOrder }

// Classes returns the resolved ClassType for every name in ClassNames, in
// the same order.
func (r *Resolver) Classes() []*ClassType {
	out := make([]*ClassType, len(r.classOrder))
	for i, name := range r.classOrder {
		out[i] = r.classes[name]
	}
	return out
}

// Interfaces returns the resolved InterfaceType for every name in
// InterfaceNames, in the same order.
func (r *Resolver) Interfaces() []*InterfaceType {
	out := make([]*InterfaceType, len(r.ifaceOrder))
	for i, name := range r.ifaceOrder {
		out[i] = r.ifaces[name]
	}
	return out
}

// --- phase 1: placeholders -------------------------------------------

func (r *Resolver) declarePlaceholders(decls []ast.Decl) {
	for _, d := range decls {
		switch decl := d.(type) {
		case *ast.ClassDecl:
			r.classes[decl.Name] = &ClassType{Name: decl.Name, LayoutID: r.nextLay}
			r.classOrder = append(r.classOrder, decl.Name)
			r.nextLay++
		case *ast.InterfaceDecl:
			r.ifaces[decl.Name] = &InterfaceType{Name: decl.Name, LayoutID: r.nextLay}
			r.ifaceOrder = append(r.ifaceOrder, decl.Name)
			r.nextLay++
		case *ast.NamespaceDecl:
			r.declarePlaceholders(decl.Decls)
		}
	}
}

// --- phase 2: fill ------------------------------------------------------

func (r *Resolver) fillDecls(decls []ast.Decl) {
	for _, d := range decls {
		switch decl := d.(type) {
		case *ast.ClassDecl:
			r.fillClass(decl)
		case *ast.InterfaceDecl:
			r.fillInterface(decl)
		case *ast.NamespaceDecl:
			r.fillDecls(decl.Decls)
		}
	}
}

func (r *Resolver) fillClass(decl *ast.ClassDecl) {
	ct := r.classes[decl.Name]
	if decl.Extends != "" {
		base, ok := r.classes[decl.Extends]
		if !ok {
			r.diags.Addf(diag.CodeUnresolvedIdentifier, decl.Pos(), "unknown base class %q", decl.Extends)
		} else {
			ct.Extends = base
		}
	}
	for _, name := range decl.Implements {
		iface, ok := r.ifaces[name]
		if !ok {
			r.diags.Addf(diag.CodeUnresolvedIdentifier, decl.Pos(), "unknown interface %q", name)
			continue
		}
		ct.Implements = append(ct.Implements, iface)
	}
	for _, f := range decl.Fields {
		ct.Fields = append(ct.Fields, &Field{
			Name:    f.Name,
			Type:    r.resolveTypeExpr(f.Type),
			Static:  f.IsStatic,
			HasInit: f.Init != nil,
		})
	}
	for _, m := range decl.Methods {
		ct.Methods = append(ct.Methods, &Method{Name: m.Name, Sig: r.resolveFuncSig(m)})
	}
	for _, iface := range ct.Implements {
		if !classSatisfiesInterface(ct, iface) {
			r.diags.Addf(diag.CodeNotAssignable, decl.Pos(),
				"class %q does not satisfy interface %q it declares implementing", decl.Name, iface.Name)
		}
	}
}

func (r *Resolver) fillInterface(decl *ast.InterfaceDecl) {
	it := r.ifaces[decl.Name]
	for _, m := range decl.Members {
		member := &Member{Name: m.Name}
		if m.Params != nil {
			member.Func = &FuncType{Result: r.resolveTypeExpr(m.ReturnType)}
			for _, p := range m.Params {
				member.Func.Params = append(member.Func.Params, r.resolveTypeExpr(p.Type))
			}
		} else {
			member.Prop = r.resolveTypeExpr(m.ReturnType)
		}
		it.Members = append(it.Members, member)
	}
}

// ResolveFuncReturnType resolves decl's declared return type annotation,
// for callers outside this package (internal/lower) that need it without
// the full FuncType a method signature carries.
func (r *Resolver) ResolveFuncReturnType(decl *ast.FuncDecl) *Type {
	return r.resolveTypeExpr(decl.ReturnType)
}

// ResolveParamType resolves a single parameter's declared type.
func (r *Resolver) ResolveParamType(p *ast.Param) *Type {
	return r.resolveTypeExpr(p.Type)
}

func (r *Resolver) resolveFuncSig(decl *ast.FuncDecl) *FuncType {
	ft := &FuncType{Result: r.resolveTypeExpr(decl.ReturnType)}
	for _, p := range decl.Params {
		ft.Params = append(ft.Params, r.resolveTypeExpr(p.Type))
	}
	return ft
}

// resolveTypeExpr resolves a syntactic annotation into a semantic Type. A
// nil annotation resolves to Any (inference is the front-end facade's
// responsibility before the forest reaches this package; a still-nil
// annotation at this point means "not specified", which this package
// treats permissively rather than panicking on missing inference data).
func (r *Resolver) resolveTypeExpr(te ast.TypeExpr) *Type {
	if te == nil {
		return Any
	}
	switch t := te.(type) {
	case *ast.NamedType:
		switch t.Name {
		case "number":
			return Number
		case "string":
			return StringT
		case "boolean", "bool":
			return Bool
		case "void":
			return Void
		case "any":
			return Any
		}
		if ct, ok := r.classes[t.Name]; ok {
			return &Type{Kind: KindClass, Class: ct}
		}
		if it, ok := r.ifaces[t.Name]; ok {
			return &Type{Kind: KindInterface, Interface: it}
		}
		r.diags.Addf(diag.CodeUnresolvedIdentifier, t.Pos(), "unknown type %q", t.Name)
		return Any
	case *ast.ArrayType:
		return &Type{Kind: KindArray, Elem: r.resolveTypeExpr(t.Elem)}
	case *ast.FunctionType:
		ft := &FuncType{Result: r.resolveTypeExpr(t.Result)}
		for _, p := range t.Params {
			ft.Params = append(ft.Params, r.resolveTypeExpr(p))
		}
		return &Type{Kind: KindFunction, Func: ft}
	case *ast.NullableType:
		inner := r.resolveTypeExpr(t.Elem)
		dup := *inner
		dup.Nullable = true
		return &dup
	default:
		return Any
	}
}
