// Package stack maintains the compile-time model of the target VM's operand
// stack. Every emitted instruction is mirrored by exactly one mutation here,
// so a value's depth can be resolved at any program point without replaying
// the instruction sequence. Depths are only valid for the instant they were
// computed; callers must re-query after any mutation.
package stack

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vybium/vybium-script-compiler/internal/vybium-script-compiler/lang"
)

var (
	// ErrNotFound reports a depth query for a value that is not on the
	// modeled stack (retired, dropped, or never materialized)
	ErrNotFound = errors.New("value not on the stack")

	// ErrUnderflow reports an operation reaching beyond the modeled
	// stack height
	ErrUnderflow = errors.New("stack underflow")
)

// Block is one contiguous run of slots owned by a single value. Multi-slot
// values always occupy one block; the slot at the block's shallowest depth
// is the value's offset-0 slot.
type Block struct {
	ID    lang.ValueID
	Width int
}

// Tracker is the ordered model of the runtime stack. Index 0 of the block
// sequence is the top of the stack. The modeled slot count always equals
// the real VM stack height at the current program point.
type Tracker struct {
	blocks    []Block
	height    int
	maxHeight int
}

// New returns an empty tracker
func New() *Tracker {
	return &Tracker{}
}

// Height returns the current modeled stack height in slots
func (t *Tracker) Height() int {
	return t.height
}

// MaxHeight returns the high-water mark of the modeled height. The driver
// checks it against the configured VM stack limit.
func (t *Tracker) MaxHeight() int {
	return t.maxHeight
}

// Contains reports whether the value currently occupies stack slots
func (t *Tracker) Contains(id lang.ValueID) bool {
	_, err := t.find(id)
	return err == nil
}

// DepthOf returns the depth of the value's shallowest slot, 0 meaning the
// top of the stack. The value's remaining slots sit at depth+1 ... +width-1.
func (t *Tracker) DepthOf(id lang.ValueID) (int, error) {
	i, err := t.find(id)
	if err != nil {
		return 0, err
	}
	depth := 0
	for _, b := range t.blocks[:i] {
		depth += b.Width
	}
	return depth, nil
}

// WidthOf returns the slot width of the value's block
func (t *Tracker) WidthOf(id lang.ValueID) (int, error) {
	i, err := t.find(id)
	if err != nil {
		return 0, err
	}
	return t.blocks[i].Width, nil
}

// Push places a new block of the given width on top of the stack
func (t *Tracker) Push(id lang.ValueID, width int) {
	t.blocks = append([]Block{{ID: id, Width: width}}, t.blocks...)
	t.grow(width)
}

// PopTop removes and returns the topmost block
func (t *Tracker) PopTop() (Block, error) {
	if len(t.blocks) == 0 {
		return Block{}, ErrUnderflow
	}
	top := t.blocks[0]
	t.blocks = t.blocks[1:]
	t.height -= top.Width
	return top, nil
}

// MoveToTop relocates the value's block to the top of the stack, shifting
// every shallower block down by the block's width. Moving the block that is
// already on top is a no-op, matching the emitter's zero-instruction move.
func (t *Tracker) MoveToTop(id lang.ValueID) error {
	i, err := t.find(id)
	if err != nil {
		return err
	}
	if i == 0 {
		return nil
	}
	b := t.blocks[i]
	t.blocks = append(t.blocks[:i], t.blocks[i+1:]...)
	t.blocks = append([]Block{b}, t.blocks...)
	return nil
}

// DropBlock removes the value's block from anywhere in the stack, shifting
// shallower blocks toward the bottom of the removed gap
func (t *Tracker) DropBlock(id lang.ValueID) error {
	i, err := t.find(id)
	if err != nil {
		return err
	}
	t.height -= t.blocks[i].Width
	t.blocks = append(t.blocks[:i], t.blocks[i+1:]...)
	return nil
}

// Rename transfers ownership of a block to a new value ID without moving
// it. Used at conditional joins, where the arms' yield blocks unify into
// one fresh value.
func (t *Tracker) Rename(old, new lang.ValueID) error {
	i, err := t.find(old)
	if err != nil {
		return err
	}
	t.blocks[i].ID = new
	return nil
}

// FrameBlocks returns, top first, the blocks sitting strictly above the
// given floor height. A block straddling the floor is an internal
// inconsistency and reported as underflow.
func (t *Tracker) FrameBlocks(floor int) ([]Block, error) {
	if floor < 0 || floor > t.height {
		return nil, ErrUnderflow
	}
	var out []Block
	remaining := t.height - floor
	for _, b := range t.blocks {
		if remaining == 0 {
			break
		}
		if b.Width > remaining {
			return nil, fmt.Errorf("%w: block %d straddles frame floor %d", ErrUnderflow, b.ID, floor)
		}
		out = append(out, b)
		remaining -= b.Width
	}
	return out, nil
}

// Snapshot returns an independent copy of the tracker. Conditionals compile
// both arms against snapshots of the entry state.
func (t *Tracker) Snapshot() *Tracker {
	cp := &Tracker{
		blocks:    make([]Block, len(t.blocks)),
		height:    t.height,
		maxHeight: t.maxHeight,
	}
	copy(cp.blocks, t.blocks)
	return cp
}

// Restore overwrites this tracker with the snapshot's layout. The high-water
// mark keeps the maximum of both, since instructions emitted since the
// snapshot still execute.
func (t *Tracker) Restore(snap *Tracker) {
	t.blocks = make([]Block, len(snap.blocks))
	copy(t.blocks, snap.blocks)
	t.height = snap.height
	if snap.maxHeight > t.maxHeight {
		t.maxHeight = snap.maxHeight
	}
}

// Layout returns a copy of the block sequence, top first
func (t *Tracker) Layout() []Block {
	out := make([]Block, len(t.blocks))
	copy(out, t.blocks)
	return out
}

// String renders the layout for error snapshots, top first
func (t *Tracker) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("height=%d [", t.height))
	for i, b := range t.blocks {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(fmt.Sprintf("%d:%dw", b.ID, b.Width))
	}
	sb.WriteString("]")
	return sb.String()
}

func (t *Tracker) find(id lang.ValueID) (int, error) {
	for i, b := range t.blocks {
		if b.ID == id {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: value %d", ErrNotFound, id)
}

func (t *Tracker) grow(width int) {
	t.height += width
	if t.height > t.maxHeight {
		t.maxHeight = t.height
	}
}
