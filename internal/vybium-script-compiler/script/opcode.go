// Package script defines the target VM's instruction vocabulary and a
// reference executor for it. The vocabulary is Bitcoin-script shaped: the
// only addressing mode is a distance from the top of the operand stack.
package script

import "fmt"

// Opcode identifies a target VM instruction
type Opcode uint8

const (
	// ========== Stack Manipulation ==========

	// PushConst pushes an immediate field element
	PushConst Opcode = iota

	// Dup duplicates the top element
	Dup

	// Over copies the second element to the top
	Over

	// Pick copies the element at the given depth to the top
	Pick

	// Swap exchanges the top two elements
	Swap

	// Rot moves the third element to the top
	Rot

	// Roll moves the element at the given depth to the top
	Roll

	// Drop removes the top element
	Drop

	// Drop2 removes the top two elements
	Drop2

	// ToAlt moves the top element to the alt stack
	ToAlt

	// FromAlt moves the top alt-stack element back to the stack
	FromAlt

	// Witness pushes the next externally supplied witness value.
	// Witness values are consumed in the order the instructions execute.
	Witness

	// ========== Control Flow ==========

	// If pops the top element and executes the following branch when it
	// is nonzero
	If

	// Else delimits the alternative branch of the innermost If
	Else

	// EndIf closes the innermost If
	EndIf

	// ========== Field Arithmetic ==========

	// Add pops two elements and pushes their sum
	Add

	// Sub pops two elements and pushes the deeper minus the shallower
	Sub

	// Mul pops two elements and pushes their product
	Mul

	// Neg negates the top element
	Neg

	// Eq pops two elements and pushes 1 if equal, 0 otherwise
	Eq

	// ========== Boolean Logic ==========

	// Not pops one element and pushes 1 if it was zero, 0 otherwise
	Not

	// BoolAnd pops two elements and pushes 1 if both are nonzero
	BoolAnd

	// BoolOr pops two elements and pushes 1 if either is nonzero
	BoolOr
)

var opcodeNames = map[Opcode]string{
	PushConst: "PUSH",
	Dup:       "DUP",
	Over:      "OVER",
	Pick:      "PICK",
	Swap:      "SWAP",
	Rot:       "ROT",
	Roll:      "ROLL",
	Drop:      "DROP",
	Drop2:     "2DROP",
	ToAlt:     "TOALT",
	FromAlt:   "FROMALT",
	Witness:   "WITNESS",
	If:        "IF",
	Else:      "ELSE",
	EndIf:     "ENDIF",
	Add:       "ADD",
	Sub:       "SUB",
	Mul:       "MUL",
	Neg:       "NEG",
	Eq:        "EQ",
	Not:       "NOT",
	BoolAnd:   "BOOLAND",
	BoolOr:    "BOOLOR",
}

// String returns the opcode mnemonic
func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("OP(%d)", uint8(op))
}

// HasDepth reports whether the opcode carries a depth operand
func (op Opcode) HasDepth() bool {
	return op == Pick || op == Roll
}
