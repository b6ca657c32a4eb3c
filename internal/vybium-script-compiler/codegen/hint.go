package codegen

import (
	"github.com/vybium/vybium-script-compiler/internal/vybium-script-compiler/lang"
	"github.com/vybium/vybium-script-compiler/internal/vybium-script-compiler/script"
)

// HintSlot is one entry of the hint manifest: the contract between the
// compiler and the external trace generator. Witnesses must be supplied in
// ascending sequence order.
type HintSlot struct {
	// Seq is the global hint sequence index, assigned in strict
	// compilation order
	Seq int

	// Type of the expected witness value
	Type lang.Type

	// Name of the local the hint was bound to, if any
	Name string
}

// hintAllocator reserves stack slots for externally supplied witness
// values. The sequence index increases monotonically across the whole
// compilation, including inside per-call-site function bodies. The driver
// rejects hints inside conditional arms, so every manifest entry is
// consumed on every execution path.
type hintAllocator struct {
	nextSeq  int
	manifest []HintSlot
}

func newHintAllocator() *hintAllocator {
	return &hintAllocator{}
}

// consume emits one witness marker per slot of the hint's type, registers
// the fresh value on the tracker, and appends to the manifest
func (h *hintAllocator) consume(e *emitter, t lang.Type) lang.ValueID {
	seq := h.nextSeq
	h.nextSeq++

	info := e.reg.new(t, lang.OriginHint, "", seq)
	for i := 0; i < t.Width(); i++ {
		e.b.Op(script.Witness)
	}
	e.tr.Push(info.val.ID, t.Width())

	h.manifest = append(h.manifest, HintSlot{Seq: seq, Type: t})
	return info.val.ID
}

// setName records the bound local name on the manifest entry for the hint
func (h *hintAllocator) setName(seq int, name string) {
	for i := range h.manifest {
		if h.manifest[i].Seq == seq {
			h.manifest[i].Name = name
			return
		}
	}
}
