// Package lang defines the structured program representation consumed by the
// script compiler: value types, the symbol model, and the statement and
// expression tree produced by a front end.
package lang

import "fmt"

// TypeKind identifies the semantic kind of a value type
type TypeKind int

const (
	// KindField is a single base field element
	KindField TypeKind = iota

	// KindBool is a boolean encoded as a field element (0 or 1)
	KindBool

	// KindComposite is a fixed-width block of field elements, e.g. a
	// degree-4 extension field element occupying 4 contiguous slots
	KindComposite
)

// Type describes the semantic type of a value and its width in stack slots
type Type struct {
	Kind TypeKind

	// Slots is the number of contiguous stack slots the value occupies.
	// Field and Bool are always 1; Composite is >= 2.
	Slots int
}

// Field returns the base field element type
func Field() Type {
	return Type{Kind: KindField, Slots: 1}
}

// Bool returns the boolean type
func Bool() Type {
	return Type{Kind: KindBool, Slots: 1}
}

// Composite returns a composite type spanning n contiguous slots
func Composite(n int) Type {
	return Type{Kind: KindComposite, Slots: n}
}

// Width returns the number of stack slots occupied by the type
func (t Type) Width() int {
	if t.Slots <= 0 {
		return 1
	}
	return t.Slots
}

// Equal reports whether two types are identical in kind and width
func (t Type) Equal(other Type) bool {
	return t.Kind == other.Kind && t.Width() == other.Width()
}

// String returns a human-readable name for the type
func (t Type) String() string {
	switch t.Kind {
	case KindField:
		return "field"
	case KindBool:
		return "bool"
	case KindComposite:
		return fmt.Sprintf("composite<%d>", t.Width())
	default:
		return fmt.Sprintf("type(%d)", int(t.Kind))
	}
}
