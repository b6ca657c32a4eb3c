package vybiumscriptcompiler

import (
	"bytes"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/vybium/vybium-script-compiler/internal/vybium-script-compiler/lang"
	"github.com/vybium/vybium-script-compiler/internal/vybium-script-compiler/script"
)

// ArtifactVersion is the current encoding version of the compiled artifact
const ArtifactVersion = 1

// artifact is the portable wire form of a compiled script. Field elements
// flatten to their canonical integer value; the digest binds the
// instruction sequence so a tampered artifact fails decoding.
type artifact struct {
	Version       int                   `cbor:"1,keyasint"`
	Instructions  []artifactInstruction `cbor:"2,keyasint"`
	Hints         []artifactHint        `cbor:"3,keyasint"`
	MaxStackDepth int                   `cbor:"4,keyasint"`
	Outputs       []artifactOutput      `cbor:"5,keyasint"`
	Digest        []byte                `cbor:"6,keyasint"`
}

type artifactInstruction struct {
	Op    uint8  `cbor:"1,keyasint"`
	Depth int    `cbor:"2,keyasint,omitempty"`
	Value uint64 `cbor:"3,keyasint,omitempty"`
}

type artifactHint struct {
	Seq   int    `cbor:"1,keyasint"`
	Kind  int    `cbor:"2,keyasint"`
	Slots int    `cbor:"3,keyasint"`
	Name  string `cbor:"4,keyasint,omitempty"`
}

type artifactOutput struct {
	Name  string `cbor:"1,keyasint"`
	Kind  int    `cbor:"2,keyasint"`
	Slots int    `cbor:"3,keyasint"`
}

// MarshalArtifact encodes a compiled script into its portable CBOR form
func MarshalArtifact(c *CompiledScript) ([]byte, error) {
	art := artifact{
		Version:       ArtifactVersion,
		Instructions:  make([]artifactInstruction, len(c.Script)),
		Hints:         make([]artifactHint, len(c.Hints)),
		MaxStackDepth: c.MaxStackDepth,
		Outputs:       make([]artifactOutput, len(c.Outputs)),
	}
	for i, ins := range c.Script {
		art.Instructions[i] = artifactInstruction{
			Op:    uint8(ins.Opcode),
			Depth: ins.Depth,
			Value: ins.Value.Value(),
		}
	}
	for i, h := range c.Hints {
		art.Hints[i] = artifactHint{
			Seq:   h.Seq,
			Kind:  int(h.Type.Kind),
			Slots: h.Type.Width(),
			Name:  h.Name,
		}
	}
	for i, o := range c.Outputs {
		art.Outputs[i] = artifactOutput{
			Name:  o.Name,
			Kind:  int(o.Type.Kind),
			Slots: o.Type.Width(),
		}
	}
	digest := c.Digest()
	art.Digest = digest[:]

	return cbor.Marshal(art)
}

// UnmarshalArtifact decodes a compiled script from its portable CBOR form
// and verifies the embedded digest
func UnmarshalArtifact(data []byte) (*CompiledScript, error) {
	var art artifact
	if err := cbor.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("decoding artifact: %w", err)
	}
	if art.Version != ArtifactVersion {
		return nil, fmt.Errorf("unsupported artifact version %d", art.Version)
	}

	c := &CompiledScript{
		Script:        make(Script, len(art.Instructions)),
		Hints:         make([]HintSlot, len(art.Hints)),
		MaxStackDepth: art.MaxStackDepth,
		Outputs:       make([]OutputSlot, len(art.Outputs)),
	}
	for i, ins := range art.Instructions {
		c.Script[i] = script.Instruction{
			Opcode: script.Opcode(ins.Op),
			Depth:  ins.Depth,
			Value:  NewElement(ins.Value),
		}
	}
	for i, h := range art.Hints {
		c.Hints[i] = HintSlot{
			Seq:  h.Seq,
			Type: lang.Type{Kind: lang.TypeKind(h.Kind), Slots: h.Slots},
			Name: h.Name,
		}
	}
	for i, o := range art.Outputs {
		c.Outputs[i] = OutputSlot{
			Name: o.Name,
			Type: lang.Type{Kind: lang.TypeKind(o.Kind), Slots: o.Slots},
		}
	}

	digest := c.Digest()
	if !bytes.Equal(digest[:], art.Digest) {
		return nil, fmt.Errorf("artifact digest mismatch")
	}
	return c, nil
}
