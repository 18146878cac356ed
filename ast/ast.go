// Package ast defines the read-only syntax forest contract the core
// compiler consumes. The front-end facade (parser, external to this
// module per SPEC_FULL.md §1) is the only producer of these types; nothing
// in this package parses source text.
package ast

import "github.com/open-vela/ts2wasm/internal/diag"

// Node is implemented by every syntax tree node; Pos anchors diagnostics
// back to source text.
type Node interface {
	Pos() diag.Pos
}

// File is one source file's parsed forest, the unit the front-end hands
// the core one of per input file.
type File struct {
	Path  string
	Decls []Decl
}

func (f *File) Pos() diag.Pos { return diag.Pos{File: f.Path, Line: 1, Column: 1} }

// Forest is the whole program: every File the facade parsed, in the
// caller-supplied order. Declaration order across files does not affect
// the result (scope building is order-independent across files, order
// sensitive only within a file for hoisting) per spec.md §4.1.
type Forest struct {
	Files []*File
}

// --- declarations -----------------------------------------------------

// Decl is any top-level or namespace-level declaration.
type Decl interface {
	Node
	declNode()
}

type baseNode struct {
	P diag.Pos
}

func (b baseNode) Pos() diag.Pos { return b.P }

// VarDecl declares a `let`/`const` binding, at module, namespace, function
// or block scope depending on where it appears.
type VarDecl struct {
	baseNode
	Name     string
	Const    bool
	Type     TypeExpr // nil if inferred from Init
	Init     Expr     // nil if uninitialized
	IsStatic bool     // true only when this VarDecl is a class field
}

func (*VarDecl) declNode() {}

// Param is a single function parameter.
type Param struct {
	baseNode
	Name     string
	Type     TypeExpr
	Optional bool
	Rest     bool // true for the single trailing `...name` parameter
	Default  Expr // non-nil for an optional parameter with a default value
}

// FuncDecl declares a free function, method, constructor, getter or
// setter; Kind says which of these it is.
type FuncDecl struct {
	baseNode
	Name       string
	Params     []*Param
	ReturnType TypeExpr // nil for inferred/void
	Body       []Stmt
	IsAsync    bool
	Kind       FuncKind
}

func (*FuncDecl) declNode() {}

// FuncKind distinguishes the surface-syntax role a FuncDecl plays, since
// constructors and accessors lower differently from plain methods.
type FuncKind int

const (
	FuncPlain FuncKind = iota
	FuncMethod
	FuncConstructor
	FuncGetter
	FuncSetter
	FuncStaticMethod
)

// ClassDecl declares a class: fields, methods and an optional base class
// and implemented interfaces.
type ClassDecl struct {
	baseNode
	Name       string
	Extends    string   // "" if no explicit base class
	Implements []string
	Fields     []*VarDecl
	Methods    []*FuncDecl
}

func (*ClassDecl) declNode() {}

// InterfaceDecl declares a structural interface: a named member set with
// no implementation.
type InterfaceDecl struct {
	baseNode
	Name    string
	Members []*InterfaceMember
}

func (*InterfaceDecl) declNode() {}

// InterfaceMember is one method or property signature of an InterfaceDecl.
type InterfaceMember struct {
	baseNode
	Name       string
	Params     []*Param // nil for a property member
	ReturnType TypeExpr
}

// NamespaceDecl groups declarations under a dotted name. The scope
// builder gives it its own nested scope; its members are lowered under
// their unqualified names, with no namespace prefix.
type NamespaceDecl struct {
	baseNode
	Name  string
	Decls []Decl
}

func (*NamespaceDecl) declNode() {}

// --- type expressions ---------------------------------------------------

// TypeExpr is a syntactic type annotation, resolved into internal/types'
// semantic Type by internal/types.Resolver.
type TypeExpr interface {
	Node
	typeExprNode()
}

// NamedType is a reference to a class, interface or primitive by name
// (number, string, bool, any, void, or a user-defined name).
type NamedType struct {
	baseNode
	Name string
}

func (*NamedType) typeExprNode() {}

// ArrayType is `T[]`.
type ArrayType struct {
	baseNode
	Elem TypeExpr
}

func (*ArrayType) typeExprNode() {}

// FunctionType is a function-typed annotation, e.g. for a closure-valued
// parameter or field.
type FunctionType struct {
	baseNode
	Params []TypeExpr
	Result TypeExpr
}

func (*FunctionType) typeExprNode() {}

// NullableType is `T | null` / `T | undefined`.
type NullableType struct {
	baseNode
	Elem TypeExpr
}

func (*NullableType) typeExprNode() {}

// --- statements -----------------------------------------------------------

// Stmt is any executable statement.
type Stmt interface {
	Node
	stmtNode()
}

type ExprStmt struct {
	baseNode
	X Expr
}

func (*ExprStmt) stmtNode() {}

type DeclStmt struct {
	baseNode
	Decl *VarDecl
}

func (*DeclStmt) stmtNode() {}

type BlockStmt struct {
	baseNode
	Stmts []Stmt
}

func (*BlockStmt) stmtNode() {}

type IfStmt struct {
	baseNode
	Cond Expr
	Then []Stmt
	Else []Stmt // nil if no else branch
}

func (*IfStmt) stmtNode() {}

type WhileStmt struct {
	baseNode
	Cond Expr
	Body []Stmt
}

func (*WhileStmt) stmtNode() {}

// ForStmt is the C-style `for (init; cond; post)` loop; `for...of` is
// desugared by the front-end facade into this form plus an iterator
// protocol call, per spec.md's Non-goals (no bespoke iterator protocol in
// the core).
type ForStmt struct {
	baseNode
	Init Stmt // *DeclStmt or *ExprStmt, nil if absent
	Cond Expr // nil if absent
	Post Expr // nil if absent
	Body []Stmt
}

func (*ForStmt) stmtNode() {}

type ReturnStmt struct {
	baseNode
	Result Expr // nil for a bare `return`
}

func (*ReturnStmt) stmtNode() {}

type BreakStmt struct{ baseNode }

func (*BreakStmt) stmtNode() {}

type ContinueStmt struct{ baseNode }

func (*ContinueStmt) stmtNode() {}

// --- expressions ------------------------------------------------------

// Expr is any expression.
type Expr interface {
	Node
	exprNode()
}

type Ident struct {
	baseNode
	Name string
}

func (*Ident) exprNode() {}

type ThisExpr struct{ baseNode }

func (*ThisExpr) exprNode() {}

type SuperExpr struct{ baseNode }

func (*SuperExpr) exprNode() {}

// Literal covers number, string, bool, null and undefined literals; Kind
// distinguishes them since they lower to different IR constant ops.
type Literal struct {
	baseNode
	Kind LiteralKind
	Num  float64
	Str  string
	Bool bool
}

func (*Literal) exprNode() {}

type LiteralKind int

const (
	LitNumber LiteralKind = iota
	LitString
	LitBool
	LitNull
	LitUndefined
)

type BinaryExpr struct {
	baseNode
	Op  BinaryOp
	X   Expr
	Y   Expr
}

func (*BinaryExpr) exprNode() {}

type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
)

type UnaryExpr struct {
	baseNode
	Op BinaryOp // OpSub means negation; any other Op lowers as logical `!`
	X  Expr
}

func (*UnaryExpr) exprNode() {}

type AssignExpr struct {
	baseNode
	Target Expr
	Value  Expr
}

func (*AssignExpr) exprNode() {}

type CallExpr struct {
	baseNode
	Callee Expr
	Args   []Expr
}

func (*CallExpr) exprNode() {}

type NewExpr struct {
	baseNode
	ClassName string
	Args      []Expr
}

func (*NewExpr) exprNode() {}

// MemberExpr is `X.Name` — field access, method reference or static
// member access depending on what X resolves to.
type MemberExpr struct {
	baseNode
	X    Expr
	Name string
}

func (*MemberExpr) exprNode() {}

// IndexExpr is `X[Index]`, array element access.
type IndexExpr struct {
	baseNode
	X     Expr
	Index Expr
}

func (*IndexExpr) exprNode() {}

type ArrayLiteral struct {
	baseNode
	Elems []Expr
}

func (*ArrayLiteral) exprNode() {}

// FunctionExpr is a closure literal (arrow function or function
// expression); it becomes an ir.OpNewClosure once internal/lower has
// collected its captured variables.
type FunctionExpr struct {
	baseNode
	Params     []*Param
	ReturnType TypeExpr
	Body       []Stmt
}

func (*FunctionExpr) exprNode() {}

// AsAnyExpr is an explicit upcast to `any` written by the user; the
// implicit boundary case (assigning a concrete value where `any` is
// expected) is inserted by internal/lower itself, not represented here.
type AsAnyExpr struct {
	baseNode
	X Expr
}

func (*AsAnyExpr) exprNode() {}
