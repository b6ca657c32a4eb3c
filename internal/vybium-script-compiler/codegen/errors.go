package codegen

import (
	"errors"
	"fmt"
)

// ErrorCode represents a compile error category. All failures are
// compile-time, structural errors; compilation aborts on the first one.
type ErrorCode int

const (
	// ErrUnknown represents an unknown error
	ErrUnknown ErrorCode = iota

	// ErrInvalidConfig represents an invalid compiler configuration
	ErrInvalidConfig

	// ErrInvalidProgram represents a structurally invalid program
	ErrInvalidProgram

	// ErrUseAfterRetire represents a reference to a value already
	// consumed by a move
	ErrUseAfterRetire

	// ErrUseAfterDrop represents a reference to a dropped value
	ErrUseAfterDrop

	// ErrIllegalMove represents a move of a value that still has
	// readers, or of a lookup table entry
	ErrIllegalMove

	// ErrStackUnderflow represents an access beyond the modeled stack;
	// from well-formed input this indicates a tracker invariant bug
	ErrStackUnderflow

	// ErrTableIndexOutOfBounds represents a table read outside the
	// declared entry count
	ErrTableIndexOutOfBounds

	// ErrCallSignatureMismatch represents a call whose arguments do not
	// match the declared signature
	ErrCallSignatureMismatch

	// ErrReturnShapeMismatch represents a function body whose live
	// values at exit differ from the declared results
	ErrReturnShapeMismatch

	// ErrBranchShapeMismatch represents conditional arms that produce
	// different stack shapes at the join point
	ErrBranchShapeMismatch

	// ErrStackDepthExceeded represents a compilation whose modeled
	// stack high-water mark exceeds the configured VM limit
	ErrStackDepthExceeded
)

var errorCodeNames = map[ErrorCode]string{
	ErrUnknown:               "unknown",
	ErrInvalidConfig:         "invalid config",
	ErrInvalidProgram:        "invalid program",
	ErrUseAfterRetire:        "use after retire",
	ErrUseAfterDrop:          "use after drop",
	ErrIllegalMove:           "illegal move",
	ErrStackUnderflow:        "stack underflow",
	ErrTableIndexOutOfBounds: "table index out of bounds",
	ErrCallSignatureMismatch: "call signature mismatch",
	ErrReturnShapeMismatch:   "return shape mismatch",
	ErrBranchShapeMismatch:   "branch shape mismatch",
	ErrStackDepthExceeded:    "stack depth exceeded",
}

// String returns the error category name
func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// Error represents a compile error with the offending source construct and
// the tracker snapshot at the point of failure
type Error struct {
	Code    ErrorCode
	Message string

	// Where identifies the offending statement or expression, e.g.
	// "body[3].then[1]"
	Where string

	// Snapshot is the rendered tracker state at the failure point
	Snapshot string

	Cause error
}

// Error returns the error message
func (e *Error) Error() string {
	msg := fmt.Sprintf("compile error [%s]", e.Code)
	if e.Where != "" {
		msg += " at " + e.Where
	}
	msg += ": " + e.Message
	if e.Snapshot != "" {
		msg += " (stack " + e.Snapshot + ")"
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(" (caused by: %v)", e.Cause)
	}
	return msg
}

// Unwrap returns the cause of the error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target error by code
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// CodeOf extracts the error code, ErrUnknown for foreign errors
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrUnknown
}
