package codegen

import (
	"errors"
	"fmt"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"

	"github.com/vybium/vybium-script-compiler/internal/vybium-script-compiler/lang"
	"github.com/vybium/vybium-script-compiler/internal/vybium-script-compiler/script"
	"github.com/vybium/vybium-script-compiler/internal/vybium-script-compiler/stack"
)

// Mode selects how a value is brought to the top of the stack
type Mode int

const (
	// Copy duplicates the value, leaving the original in place. Copy
	// semantics are never implicit: even a value already on top is
	// duplicated, because operators consume their operands.
	Copy Mode = iota

	// Move relocates the value, retiring its original position. Legal
	// only on a value's last use.
	Move
)

// emitter is the single authority translating "bring this value to the
// top" into copy/move instructions. No other component appends positional
// instructions; every append is mirrored by one tracker mutation.
type emitter struct {
	b   *script.Builder
	tr  *stack.Tracker
	reg *registry
}

func newEmitter(b *script.Builder, tr *stack.Tracker, reg *registry) *emitter {
	return &emitter{b: b, tr: tr, reg: reg}
}

// materialize brings the value to the top of the stack and returns the ID
// of the block now on top: a fresh temporary for Copy, the value itself
// for Move. Multi-slot values lower into per-slot instructions, deepest
// slot first, so the offset-0 slot ends on top.
func (e *emitter) materialize(id lang.ValueID, mode Mode) (lang.ValueID, error) {
	info := e.reg.get(id)
	if info == nil {
		return lang.NoValue, &Error{Code: ErrUseAfterDrop,
			Message: fmt.Sprintf("value %d was never materialized", id)}
	}
	switch info.state {
	case stateRetired:
		return lang.NoValue, &Error{Code: ErrUseAfterRetire,
			Message:  fmt.Sprintf("value %s was consumed by a move", info.val),
			Snapshot: e.tr.String()}
	case stateDropped:
		return lang.NoValue, &Error{Code: ErrUseAfterDrop,
			Message:  fmt.Sprintf("value %s went out of scope", info.val),
			Snapshot: e.tr.String()}
	}

	if mode == Move {
		if info.val.Origin == lang.OriginTable {
			return lang.NoValue, &Error{Code: ErrIllegalMove,
				Message: fmt.Sprintf("lookup table %s is read-only", info.val)}
		}
		if info.reads > 1 || info.output {
			return lang.NoValue, &Error{Code: ErrIllegalMove,
				Message: fmt.Sprintf("value %s still has readers", info.val)}
		}
	}

	depth, err := e.tr.DepthOf(id)
	if err != nil {
		return lang.NoValue, e.wrapStackErr(err, info)
	}
	width := info.val.Type.Width()

	if mode == Move {
		if depth > 0 {
			// every slot of the block travels the same distance
			for i := 0; i < width; i++ {
				e.rollOp(depth + width - 1)
			}
		}
		if err := e.tr.MoveToTop(id); err != nil {
			return lang.NoValue, e.wrapStackErr(err, info)
		}
		return id, nil
	}

	for i := 0; i < width; i++ {
		e.pickOp(depth + width - 1)
	}
	dup := e.reg.new(info.val.Type, lang.OriginExpr, "", -1)
	e.tr.Push(dup.val.ID, width)
	return dup.val.ID, nil
}

// pushConst pushes a constant block, deepest limb first, and registers the
// resulting value
func (e *emitter) pushConst(t lang.Type, limbs []field.Element) lang.ValueID {
	for _, limb := range limbs {
		e.b.PushConst(limb)
	}
	info := e.reg.new(t, lang.OriginConst, "", -1)
	e.tr.Push(info.val.ID, t.Width())
	return info.val.ID
}

// consumeTop pops the operand blocks an operator instruction consumed and
// retires them. Call after appending the operator.
func (e *emitter) consumeTop(n int) error {
	for i := 0; i < n; i++ {
		b, err := e.tr.PopTop()
		if err != nil {
			return &Error{Code: ErrStackUnderflow, Message: "operator consumed missing operand",
				Snapshot: e.tr.String(), Cause: err}
		}
		e.reg.get(b.ID).state = stateRetired
	}
	return nil
}

// dropTop drops the value, which must be on top of the stack
func (e *emitter) dropTop(id lang.ValueID) error {
	info := e.reg.get(id)
	width := info.val.Type.Width()
	depth, err := e.tr.DepthOf(id)
	if err != nil {
		return e.wrapStackErr(err, info)
	}
	if depth != 0 {
		return &Error{Code: ErrStackUnderflow,
			Message:  fmt.Sprintf("drop of %s at depth %d, want top", info.val, depth),
			Snapshot: e.tr.String()}
	}
	for i := 0; i < width; i++ {
		e.b.Op(script.Drop)
	}
	if _, err := e.tr.PopTop(); err != nil {
		return e.wrapStackErr(err, info)
	}
	info.state = stateDropped
	return nil
}

// clearAbove drops every block above the floor height with paired drop
// instructions, cheapest first, and marks the owners dropped
func (e *emitter) clearAbove(floor int) error {
	blocks, err := e.tr.FrameBlocks(floor)
	if err != nil {
		return &Error{Code: ErrStackUnderflow, Message: "frame does not align with floor",
			Snapshot: e.tr.String(), Cause: err}
	}
	slots := e.tr.Height() - floor
	for i := 0; i < slots/2; i++ {
		e.b.Op(script.Drop2)
	}
	if slots%2 == 1 {
		e.b.Op(script.Drop)
	}
	for range blocks {
		b, err := e.tr.PopTop()
		if err != nil {
			return &Error{Code: ErrStackUnderflow, Message: "frame clear underflow",
				Snapshot: e.tr.String(), Cause: err}
		}
		e.reg.get(b.ID).state = stateDropped
	}
	return nil
}

// stageToAlt moves the top block to the alt stack, slot by slot
func (e *emitter) stageToAlt(id lang.ValueID) error {
	info := e.reg.get(id)
	depth, err := e.tr.DepthOf(id)
	if err != nil {
		return e.wrapStackErr(err, info)
	}
	if depth != 0 {
		return &Error{Code: ErrStackUnderflow,
			Message:  fmt.Sprintf("staging %s at depth %d, want top", info.val, depth),
			Snapshot: e.tr.String()}
	}
	for i := 0; i < info.val.Type.Width(); i++ {
		e.b.Op(script.ToAlt)
	}
	if _, err := e.tr.PopTop(); err != nil {
		return e.wrapStackErr(err, info)
	}
	return nil
}

// unstageFromAlt restores a staged block from the alt stack and registers
// it on the tracker under the given value
func (e *emitter) unstageFromAlt(id lang.ValueID) {
	info := e.reg.get(id)
	for i := 0; i < info.val.Type.Width(); i++ {
		e.b.Op(script.FromAlt)
	}
	e.tr.Push(id, info.val.Type.Width())
}

// pickOp appends the cheapest copy-from-depth encoding
func (e *emitter) pickOp(distance int) {
	switch distance {
	case 0:
		e.b.Op(script.Dup)
	case 1:
		e.b.Op(script.Over)
	default:
		e.b.OpDepth(script.Pick, distance)
	}
}

// rollOp appends the cheapest move-from-depth encoding. Distance 0 never
// reaches here: a move of the top block emits nothing.
func (e *emitter) rollOp(distance int) {
	switch distance {
	case 1:
		e.b.Op(script.Swap)
	case 2:
		e.b.Op(script.Rot)
	default:
		e.b.OpDepth(script.Roll, distance)
	}
}

func (e *emitter) wrapStackErr(err error, info *valueInfo) error {
	code := ErrStackUnderflow
	if errors.Is(err, stack.ErrNotFound) {
		code = ErrUseAfterRetire
	}
	return &Error{Code: code,
		Message:  fmt.Sprintf("resolving %s", info.val),
		Snapshot: e.tr.String(),
		Cause:    err}
}
