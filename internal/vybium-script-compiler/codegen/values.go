package codegen

import (
	"github.com/vybium/vybium-script-compiler/internal/vybium-script-compiler/lang"
)

// valueState tracks a value through its lifecycle: live on the stack,
// retired by a move or operator consumption, or dropped
type valueState int

const (
	stateLive valueState = iota
	stateRetired
	stateDropped
)

// valueInfo is the registry's record for one value: the immutable symbol
// plus the mutable liveness bookkeeping
type valueInfo struct {
	val   *lang.Value
	state valueState

	// reads is the number of remaining reads, including the one being
	// compiled. Anonymous temporaries start at 1 (their single
	// consumption); named locals get the liveness tally on binding.
	reads int

	// output marks declared program outputs; they are staged by the
	// epilogue and never auto-moved before it
	output bool
}

// registry owns every value created during one compilation. IDs are
// assigned in creation order and never reused, so a retired value's record
// stays addressable for error reporting.
type registry struct {
	infos map[lang.ValueID]*valueInfo
	next  lang.ValueID
}

func newRegistry() *registry {
	return &registry{infos: make(map[lang.ValueID]*valueInfo)}
}

func (r *registry) new(t lang.Type, origin lang.ValueOrigin, name string, hintSeq int) *valueInfo {
	id := r.next
	r.next++
	info := &valueInfo{
		val: &lang.Value{
			ID:      id,
			Type:    t,
			Origin:  origin,
			Name:    name,
			HintSeq: hintSeq,
		},
		state: stateLive,
		reads: 1,
	}
	r.infos[id] = info
	return info
}

func (r *registry) get(id lang.ValueID) *valueInfo {
	return r.infos[id]
}

// valueMut is the mutable slice of a value record, captured by snapshots
type valueMut struct {
	state  valueState
	reads  int
	output bool
}

// regSnapshot captures the mutable state of every value known at snapshot
// time, together with the ID watermark separating pre-existing values from
// ones created later
type regSnapshot struct {
	muts      map[lang.ValueID]valueMut
	watermark lang.ValueID
}

func (r *registry) snapshot() *regSnapshot {
	snap := &regSnapshot{
		muts:      make(map[lang.ValueID]valueMut, len(r.infos)),
		watermark: r.next,
	}
	for id, info := range r.infos {
		snap.muts[id] = valueMut{state: info.state, reads: info.reads, output: info.output}
	}
	return snap
}

// restore rewinds the mutable state of pre-snapshot values. Values created
// after the snapshot keep their records (IDs are never reused) but are no
// longer reachable by name.
func (r *registry) restore(snap *regSnapshot) {
	for id, mut := range snap.muts {
		info := r.infos[id]
		info.state = mut.state
		info.reads = mut.reads
		info.output = mut.output
	}
}

// joinReads merges the read counts of pre-branch values after both
// conditional arms compiled. Keeping the maximum remaining count is
// conservative: it can only turn a later move into a copy, never retire a
// value one arm still needs.
func (r *registry) joinReads(thenSide *regSnapshot, entry *regSnapshot) {
	for id, mut := range thenSide.muts {
		if id >= entry.watermark {
			continue
		}
		info := r.infos[id]
		if mut.reads > info.reads {
			info.reads = mut.reads
		}
	}
}
