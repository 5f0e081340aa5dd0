package errors

import (
	"fmt"
)

// Load diagnostic codes (LOD400-499)
const (
	// ErrInvalidIdentifier indicates an id outside the identifier pattern
	ErrInvalidIdentifier ErrorCode = "LOD400"
	// ErrDuplicateIdentifier indicates an id used by more than one record
	ErrDuplicateIdentifier ErrorCode = "LOD401"
)

// NewInvalidIdentifier creates a LOD400 diagnostic
func NewInvalidIdentifier(id string) *CompilerError {
	return newError(
		ErrInvalidIdentifier,
		"invalid_identifier",
		CategoryLoad,
		SeverityWarning,
		fmt.Sprintf("Identifier '%s' does not match ^[A-Za-z0-9_]{5,}$", id),
		Origin{Node: id},
	)
}

// NewDuplicateIdentifier creates a LOD401 diagnostic
func NewDuplicateIdentifier(id string) *CompilerError {
	return newError(
		ErrDuplicateIdentifier,
		"duplicate_identifier",
		CategoryLoad,
		SeverityWarning,
		fmt.Sprintf("Identifier '%s' is used by more than one record; the last one wins", id),
		Origin{Node: id},
	)
}
