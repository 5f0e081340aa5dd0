package errors

import (
	"fmt"
)

// Reference diagnostic codes (REF100-199)
const (
	// ErrDanglingReference indicates an id that is not in the node table
	ErrDanglingReference ErrorCode = "REF100"
	// ErrWrongKindReference indicates an id that resolves to a node of the wrong kind
	ErrWrongKindReference ErrorCode = "REF101"
)

// NewDanglingReference creates a REF100 diagnostic
func NewDanglingReference(node, field, ref string) *CompilerError {
	return newError(
		ErrDanglingReference,
		"dangling_reference",
		CategoryReference,
		SeverityError,
		fmt.Sprintf("Reference '%s' does not resolve to any node", ref),
		Origin{Node: node, Field: field, Reference: ref},
	).WithSuggestion(fmt.Sprintf("Define a node with id '%s' or remove it from %s", ref, field))
}

// NewWrongKindReference creates a REF101 diagnostic
func NewWrongKindReference(node, field, ref, expected, actual string) *CompilerError {
	return newError(
		ErrWrongKindReference,
		"wrong_kind_reference",
		CategoryReference,
		SeverityError,
		fmt.Sprintf("Reference '%s' resolves to a %s node", ref, actual),
		Origin{Node: node, Field: field, Reference: ref},
	).WithExpected(expected).
		WithActual(actual)
}
