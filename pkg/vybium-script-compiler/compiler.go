package vybiumscriptcompiler

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"

	"github.com/vybium/vybium-script-compiler/internal/vybium-script-compiler/codegen"
	"github.com/vybium/vybium-script-compiler/internal/vybium-script-compiler/script"
)

// CompiledScript is the result of a successful compilation
type CompiledScript struct {
	// Script is the linear instruction sequence
	Script Script

	// Hints lists every witness slot in consumption order; the witness
	// queue supplied at run time must follow this order
	Hints []HintSlot

	// MaxStackDepth is the stack high-water mark the script reaches on
	// any execution path
	MaxStackDepth int

	// Outputs describes the final stack layout, first declared deepest
	Outputs []OutputSlot
}

// Compile lowers a structured program into a VM script. A nil config
// compiles with DefaultConfig.
func Compile(prog *Program, config *Config) (*CompiledScript, error) {
	res, err := codegen.Compile(prog, config)
	if err != nil {
		return nil, err
	}
	return &CompiledScript{
		Script:        res.Script,
		Hints:         res.Hints,
		MaxStackDepth: res.MaxStackDepth,
		Outputs:       res.Outputs,
	}, nil
}

// Simulate runs the compiled script on the reference executor with the
// given witness queue
func (c *CompiledScript) Simulate(witness []FieldElement) (*ExecutionResult, error) {
	return script.Execute(c.Script, witness)
}

// Digest returns the SHA3-256 digest of the canonical instruction
// encoding. Two compilations of the same program under the same
// configuration produce the same digest.
func (c *CompiledScript) Digest() [32]byte {
	h := sha3.New256()
	var buf [17]byte
	for _, ins := range c.Script {
		buf[0] = byte(ins.Opcode)
		binary.LittleEndian.PutUint64(buf[1:9], uint64(ins.Depth))
		binary.LittleEndian.PutUint64(buf[9:17], ins.Value.Value())
		h.Write(buf[:])
	}
	var out [32]byte
	h.Sum(out[:0])
	return out
}

// WitnessWidth returns the total slot count the hint manifest expects in
// the witness queue
func (c *CompiledScript) WitnessWidth() int {
	total := 0
	for _, slot := range c.Hints {
		total += slot.Type.Width()
	}
	return total
}
