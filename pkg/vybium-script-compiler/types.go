package vybiumscriptcompiler

import (
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"

	"github.com/vybium/vybium-script-compiler/internal/vybium-script-compiler/codegen"
	"github.com/vybium/vybium-script-compiler/internal/vybium-script-compiler/lang"
	"github.com/vybium/vybium-script-compiler/internal/vybium-script-compiler/script"
	"github.com/vybium/vybium-script-compiler/internal/vybium-script-compiler/utils"
)

// FieldElement represents an element of the VM's scalar field
type FieldElement = field.Element

// Type describes the stack shape of a program value
type Type = lang.Type

// Program is a structured program handed to the compiler
type Program = lang.Program

// FuncDecl declares a function of a program
type FuncDecl = lang.FuncDecl

// Param is a declared function parameter
type Param = lang.Param

// Block is a statement sequence forming a scope
type Block = lang.Block

// Binding names a value produced by both arms of a conditional
type Binding = lang.Binding

// Expr is a node of the expression tree
type Expr = lang.Expr

// Stmt is a node of the statement list
type Stmt = lang.Stmt

// IfStmt is a conditional statement with shape-checked arms
type IfStmt = lang.IfStmt

// ExprStmt evaluates an expression for effect and discards the result
type ExprStmt = lang.ExprStmt

// BinaryOp enumerates the binary operators
type BinaryOp = lang.BinaryOp

// Binary operators
const (
	Add = lang.Add
	Sub = lang.Sub
	Mul = lang.Mul
	Eq  = lang.Eq
	And = lang.And
	Or  = lang.Or
)

// Script is the compiled linear instruction sequence
type Script = script.Script

// Instruction is one target VM instruction
type Instruction = script.Instruction

// Opcode identifies a target VM instruction
type Opcode = script.Opcode

// ExecutionResult is the machine state after simulating a script
type ExecutionResult = script.Result

// HintSlot is one entry of the hint manifest
type HintSlot = codegen.HintSlot

// OutputSlot describes one declared program output in the final layout
type OutputSlot = codegen.OutputSlot

// Config represents the configuration for a single compilation
type Config = utils.Config

// DefaultConfig returns the default compilation configuration
func DefaultConfig() *Config {
	return utils.DefaultConfig()
}

// NewElement builds a field element from an unsigned integer
func NewElement(v uint64) FieldElement {
	return field.New(v)
}

// FieldType returns the single-slot field value type
func FieldType() Type {
	return lang.Field()
}

// BoolType returns the single-slot boolean type
func BoolType() Type {
	return lang.Bool()
}

// CompositeType returns a composite type occupying the given slot count
func CompositeType(slots int) Type {
	return lang.Composite(slots)
}

// Const builds a single-slot field constant
func Const(v uint64) Expr {
	return lang.Const(v)
}

// ConstBool builds a boolean constant
func ConstBool(b bool) Expr {
	return lang.ConstBool(b)
}

// Ref builds a reference to a named local
func Ref(name string) Expr {
	return lang.Ref(name)
}

// Binary builds a binary operation
func Binary(op BinaryOp, x, y Expr) Expr {
	return lang.Binary(op, x, y)
}

// Call builds a function call
func Call(fn string, args ...Expr) Expr {
	return lang.Call(fn, args...)
}

// TableRead builds a table entry read with a compile-time index
func TableRead(table string, index int) Expr {
	return lang.TableRead(table, index)
}

// Hint builds a consumption of the next externally supplied witness value
func Hint(t Type) Expr {
	return lang.Hint(t)
}

// Let builds a single-name local declaration
func Let(name string, expr Expr) Stmt {
	return lang.Let(name, expr)
}

// LetMulti builds a multi-name declaration from a multi-result call
func LetMulti(names []string, expr Expr) Stmt {
	return lang.LetMulti(names, expr)
}

// Table builds a lookup table declaration with single-slot field entries
func Table(name string, entries ...uint64) Stmt {
	return lang.Table(name, entries...)
}
