package lang

import (
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
)

// BinaryOp enumerates the binary operators of the structured program
type BinaryOp int

const (
	// Add is field addition
	Add BinaryOp = iota

	// Sub is field subtraction
	Sub

	// Mul is field multiplication
	Mul

	// Eq compares two values of the same type and produces a Bool
	Eq

	// And is boolean conjunction
	And

	// Or is boolean disjunction
	Or
)

// String returns the operator's surface spelling
func (op BinaryOp) String() string {
	switch op {
	case Add:
		return "+"
	case Sub:
		return "-"
	case Mul:
		return "*"
	case Eq:
		return "=="
	case And:
		return "&&"
	case Or:
		return "||"
	default:
		return "?"
	}
}

// Expr is a node of the expression tree. The set of variants is closed:
// constants, variable references, binary operations, function calls, table
// reads, and hint consumption. The codegen driver dispatches over these with
// an exhaustive type switch.
type Expr interface {
	exprNode()
}

// ConstExpr pushes a compile-time constant. Limbs holds one field element
// per stack slot of Type; len(Limbs) must equal Type.Width().
type ConstExpr struct {
	Type  Type
	Limbs []field.Element
}

// Const builds a single-slot field constant
func Const(v uint64) *ConstExpr {
	return &ConstExpr{Type: Field(), Limbs: []field.Element{field.New(v)}}
}

// ConstBool builds a boolean constant
func ConstBool(b bool) *ConstExpr {
	limb := field.Zero
	if b {
		limb = field.One
	}
	return &ConstExpr{Type: Bool(), Limbs: []field.Element{limb}}
}

// RefExpr reads a named local declared earlier in the enclosing scopes
type RefExpr struct {
	Name string
}

// Ref builds a reference to a named local
func Ref(name string) *RefExpr {
	return &RefExpr{Name: name}
}

// BinaryExpr applies a binary operator to two operand expressions
type BinaryExpr struct {
	Op   BinaryOp
	X, Y Expr
}

// Binary builds a binary operation
func Binary(op BinaryOp, x, y Expr) *BinaryExpr {
	return &BinaryExpr{Op: op, X: x, Y: y}
}

// CallExpr invokes a declared function. In expression position the callee
// must declare exactly one result; multi-result calls bind through LetStmt.
type CallExpr struct {
	Func string
	Args []Expr
}

// Call builds a function call
func Call(fn string, args ...Expr) *CallExpr {
	return &CallExpr{Func: fn, Args: args}
}

// TableReadExpr copies entry Index of a declared lookup table to the top of
// the stack. The index is a compile-time constant; tables are read-only.
type TableReadExpr struct {
	Table string
	Index int
}

// TableRead builds a table entry read
func TableRead(table string, index int) *TableReadExpr {
	return &TableReadExpr{Table: table, Index: index}
}

// HintExpr consumes the next externally supplied witness value of the given
// type. Hints are numbered in compilation order; the trace generator must
// supply witnesses in the same order.
type HintExpr struct {
	Type Type
}

// Hint builds a hint consumption of the given type
func Hint(t Type) *HintExpr {
	return &HintExpr{Type: t}
}

func (*ConstExpr) exprNode()     {}
func (*RefExpr) exprNode()       {}
func (*BinaryExpr) exprNode()    {}
func (*CallExpr) exprNode()      {}
func (*TableReadExpr) exprNode() {}
func (*HintExpr) exprNode()      {}

// Stmt is a node of the statement list. Variants: local declaration,
// bare expression evaluation, lookup table declaration, and conditional.
type Stmt interface {
	stmtNode()
}

// LetStmt declares one or more named locals from a single initializer.
// More than one name is only legal when the initializer is a call to a
// multi-result function.
type LetStmt struct {
	Names []string
	Expr  Expr
}

// Let builds a single-name local declaration
func Let(name string, expr Expr) *LetStmt {
	return &LetStmt{Names: []string{name}, Expr: expr}
}

// LetMulti builds a multi-name declaration from a multi-result call
func LetMulti(names []string, expr Expr) *LetStmt {
	return &LetStmt{Names: names, Expr: expr}
}

// ExprStmt evaluates an expression for effect and discards the result
type ExprStmt struct {
	Expr Expr
}

// TableStmt declares a lookup table: a fixed, contiguous block of entries
// pushed once and read by index until the enclosing scope ends. Each entry
// holds EntryType.Width() field elements.
type TableStmt struct {
	Name      string
	EntryType Type
	Entries   [][]field.Element
}

// Table builds a lookup table declaration with single-slot field entries
func Table(name string, entries ...uint64) *TableStmt {
	rows := make([][]field.Element, len(entries))
	for i, e := range entries {
		rows[i] = []field.Element{field.New(e)}
	}
	return &TableStmt{Name: name, EntryType: Field(), Entries: rows}
}

// Binding names a value produced by both arms of a conditional
type Binding struct {
	Name string
	Type Type
}

// IfStmt compiles both arms against the same entry stack state. Each arm
// may yield values; the yielded shapes must be identical across arms and
// are bound to Bind in the enclosing scope after the join.
type IfStmt struct {
	Cond Expr
	Then Block
	Else Block
	Bind []Binding
}

// If builds a conditional with no join bindings
func If(cond Expr, then, els Block) *IfStmt {
	return &IfStmt{Cond: cond, Then: then, Else: els}
}

func (*LetStmt) stmtNode()   {}
func (*ExprStmt) stmtNode()  {}
func (*TableStmt) stmtNode() {}
func (*IfStmt) stmtNode()    {}

// Block is a statement sequence forming a scope. Yield lists the values the
// block exposes to its parent (conditional arms and function bodies); all
// other locals die when the block ends.
type Block struct {
	Stmts []Stmt
	Yield []Expr
}

// Param is a declared function parameter
type Param struct {
	Name string
	Type Type
}

// FuncDecl declares a function: an ordered parameter list, an ordered
// result list, and a body. Bodies are compiled once per call site, so
// stack depths inside a body are call-site specific. Body.Yield supplies
// the declared results, in order.
type FuncDecl struct {
	Name    string
	Params  []Param
	Results []Type
	Body    Block
}

// Program is the structured program handed to the compiler: function
// declarations, a top-level statement sequence, and the names of the
// top-level locals exposed as program outputs.
type Program struct {
	Funcs   []FuncDecl
	Body    []Stmt
	Outputs []string
}

// Func looks up a declared function by name
func (p *Program) Func(name string) *FuncDecl {
	for i := range p.Funcs {
		if p.Funcs[i].Name == name {
			return &p.Funcs[i]
		}
	}
	return nil
}
