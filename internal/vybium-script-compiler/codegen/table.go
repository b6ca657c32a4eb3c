package codegen

import (
	"fmt"

	"github.com/vybium/vybium-script-compiler/internal/vybium-script-compiler/lang"
)

// tableHandle identifies a declared lookup table: one contiguous block on
// the stack, owned by a single table value, entry 0 deepest
type tableHandle struct {
	id        lang.ValueID
	name      string
	entryType lang.Type
	count     int
}

// tableManager places lookup tables and answers entry-depth queries.
// Depth is derived from the tracker at query time, never cached: with the
// block's top-slot depth d, entry i's top slot sits at
// d + (count-1-i)*w, which is the closed form
// height - base - i*w - w for a base offset measured from the stack
// bottom.
type tableManager struct {
	tables map[lang.ValueID]*tableHandle
}

func newTableManager() *tableManager {
	return &tableManager{tables: make(map[lang.ValueID]*tableHandle)}
}

// declare pushes the table block (entry 0 first, so deepest) and registers
// the handle
func (tm *tableManager) declare(e *emitter, st *lang.TableStmt) (*tableHandle, error) {
	width := st.EntryType.Width()
	info := e.reg.new(lang.Composite(len(st.Entries)*width), lang.OriginTable, st.Name, -1)
	// the table value's type carries the whole block width; the entry
	// type lives on the handle
	info.val.Type = lang.Type{Kind: lang.KindComposite, Slots: len(st.Entries) * width}
	info.reads = 0

	for _, row := range st.Entries {
		for _, limb := range row {
			e.b.PushConst(limb)
		}
	}
	e.tr.Push(info.val.ID, len(st.Entries)*width)

	h := &tableHandle{
		id:        info.val.ID,
		name:      st.Name,
		entryType: st.EntryType,
		count:     len(st.Entries),
	}
	tm.tables[h.id] = h
	return h, nil
}

// entryDepth returns the current depth of entry index's top slot
func (tm *tableManager) entryDepth(e *emitter, h *tableHandle, index int) (int, error) {
	if index < 0 || index >= h.count {
		return 0, &Error{Code: ErrTableIndexOutOfBounds,
			Message: fmt.Sprintf("table %q index %d, have %d entries", h.name, index, h.count)}
	}
	blockDepth, err := e.tr.DepthOf(h.id)
	if err != nil {
		return 0, e.wrapStackErr(err, e.reg.get(h.id))
	}
	return blockDepth + (h.count-1-index)*h.entryType.Width(), nil
}

// readEntry copies the entry to the top of the stack and returns the fresh
// value. Table reads are always copies; the block never breaks contiguity
// until the whole table is torn down at scope exit.
func (tm *tableManager) readEntry(e *emitter, h *tableHandle, index int) (lang.ValueID, error) {
	depth, err := tm.entryDepth(e, h, index)
	if err != nil {
		return lang.NoValue, err
	}
	width := h.entryType.Width()
	for i := 0; i < width; i++ {
		e.pickOp(depth + width - 1)
	}
	dup := e.reg.new(h.entryType, lang.OriginExpr, "", -1)
	e.tr.Push(dup.val.ID, width)
	return dup.val.ID, nil
}
