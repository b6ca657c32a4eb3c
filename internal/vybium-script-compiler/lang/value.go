package lang

import "fmt"

// ValueID uniquely identifies a value created during compilation.
// IDs are assigned in creation order and are never reused within one
// compilation.
type ValueID int

// NoValue is the zero ValueID, never assigned to a real value
const NoValue ValueID = -1

// ValueOrigin identifies how a value came into existence
type ValueOrigin int

const (
	// OriginExpr is a value computed by an in-script expression
	OriginExpr ValueOrigin = iota

	// OriginConst is a pushed constant
	OriginConst

	// OriginHint is an externally supplied witness value
	OriginHint

	// OriginTable is a lookup table block
	OriginTable

	// OriginParam is a function parameter slot
	OriginParam
)

// Value is an immutable, uniquely identified unit produced by some
// expression. It carries no stack knowledge; the tracker owns positions.
type Value struct {
	ID     ValueID
	Type   Type
	Origin ValueOrigin

	// Name is an optional diagnostic name, set for named locals and
	// program outputs. Empty for anonymous temporaries.
	Name string

	// HintSeq is the global hint sequence index for OriginHint values,
	// -1 otherwise.
	HintSeq int
}

// String renders the value for diagnostics
func (v *Value) String() string {
	if v.Name != "" {
		return fmt.Sprintf("%s#%d:%s", v.Name, v.ID, v.Type)
	}
	return fmt.Sprintf("v#%d:%s", v.ID, v.Type)
}
