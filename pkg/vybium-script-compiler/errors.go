package vybiumscriptcompiler

import (
	"github.com/vybium/vybium-script-compiler/internal/vybium-script-compiler/codegen"
)

// ErrorCode represents a compile error category
type ErrorCode = codegen.ErrorCode

const (
	// ErrUnknown represents an unknown error
	ErrUnknown = codegen.ErrUnknown

	// ErrInvalidConfig represents an invalid compiler configuration
	ErrInvalidConfig = codegen.ErrInvalidConfig

	// ErrInvalidProgram represents a structurally invalid program
	ErrInvalidProgram = codegen.ErrInvalidProgram

	// ErrUseAfterRetire represents a reference to a value already consumed
	// by a move
	ErrUseAfterRetire = codegen.ErrUseAfterRetire

	// ErrUseAfterDrop represents a reference to a dropped value
	ErrUseAfterDrop = codegen.ErrUseAfterDrop

	// ErrIllegalMove represents a move of a value that still has readers,
	// or of a lookup table
	ErrIllegalMove = codegen.ErrIllegalMove

	// ErrStackUnderflow represents an access beyond the modeled stack
	ErrStackUnderflow = codegen.ErrStackUnderflow

	// ErrTableIndexOutOfBounds represents a table read outside the
	// declared entry count
	ErrTableIndexOutOfBounds = codegen.ErrTableIndexOutOfBounds

	// ErrCallSignatureMismatch represents a call whose arguments do not
	// match the declared signature
	ErrCallSignatureMismatch = codegen.ErrCallSignatureMismatch

	// ErrReturnShapeMismatch represents a function body whose live values
	// at exit differ from the declared results
	ErrReturnShapeMismatch = codegen.ErrReturnShapeMismatch

	// ErrBranchShapeMismatch represents conditional arms that produce
	// different stack shapes at the join point
	ErrBranchShapeMismatch = codegen.ErrBranchShapeMismatch

	// ErrStackDepthExceeded represents a compilation whose modeled stack
	// high-water mark exceeds the configured VM limit
	ErrStackDepthExceeded = codegen.ErrStackDepthExceeded
)

// CompileError represents a compile error with the offending source
// construct and the stack snapshot at the point of failure
type CompileError = codegen.Error

// CodeOf extracts the error code from a compile error, ErrUnknown for
// foreign errors
func CodeOf(err error) ErrorCode {
	return codegen.CodeOf(err)
}
