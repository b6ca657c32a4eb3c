package script

import (
	"fmt"
	"strings"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
)

// Instruction is one target VM instruction. Depth is meaningful only for
// Pick and Roll; Value only for PushConst.
type Instruction struct {
	Opcode Opcode
	Depth  int
	Value  field.Element
}

// String renders the instruction in disassembly form
func (ins Instruction) String() string {
	switch {
	case ins.Opcode == PushConst:
		return fmt.Sprintf("PUSH %d", ins.Value.Value())
	case ins.Opcode.HasDepth():
		return fmt.Sprintf("%d %s", ins.Depth, ins.Opcode)
	default:
		return ins.Opcode.String()
	}
}

// Script is the linear instruction sequence produced by the compiler
type Script []Instruction

// String renders the script one instruction per line
func (s Script) String() string {
	lines := make([]string, len(s))
	for i, ins := range s {
		lines[i] = ins.String()
	}
	return strings.Join(lines, "\n")
}

// Builder accumulates the instruction sequence during compilation. The
// instruction emitter is the sole writer; everything else reads.
type Builder struct {
	ins []Instruction
}

// NewBuilder returns an empty builder
func NewBuilder() *Builder {
	return &Builder{}
}

// Op appends a plain instruction
func (b *Builder) Op(op Opcode) {
	b.ins = append(b.ins, Instruction{Opcode: op})
}

// OpDepth appends a depth-carrying instruction
func (b *Builder) OpDepth(op Opcode, depth int) {
	b.ins = append(b.ins, Instruction{Opcode: op, Depth: depth})
}

// PushConst appends a constant push
func (b *Builder) PushConst(v field.Element) {
	b.ins = append(b.ins, Instruction{Opcode: PushConst, Value: v})
}

// Len returns the number of appended instructions
func (b *Builder) Len() int {
	return len(b.ins)
}

// Script returns the accumulated instruction sequence
func (b *Builder) Script() Script {
	out := make(Script, len(b.ins))
	copy(out, b.ins)
	return out
}
