// Package errors provides structured diagnostics for the schema compiler.
// It defines diagnostic codes, categories and formatting for both human-readable
// terminal output and machine-parseable JSON.
package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorCode represents a unique diagnostic code
type ErrorCode string

// ErrorCategory represents the category of a diagnostic
type ErrorCategory string

const (
	// CategoryReference represents unresolved or mistyped references (REF100-199)
	CategoryReference ErrorCategory = "reference"
	// CategoryAssociation represents association problems (ASC200-299)
	CategoryAssociation ErrorCategory = "association"
	// CategoryDefinition represents definition table notes (DEF300-399)
	CategoryDefinition ErrorCategory = "definition"
	// CategoryLoad represents input loading findings (LOD400-499)
	CategoryLoad ErrorCategory = "load"
)

// ErrorSeverity indicates the severity level of a diagnostic
type ErrorSeverity string

const (
	// SeverityError indicates a finding that fails a strict compilation
	SeverityError ErrorSeverity = "error"
	// SeverityWarning indicates a finding that was tolerated
	SeverityWarning ErrorSeverity = "warning"
	// SeverityInfo indicates informational messages
	SeverityInfo ErrorSeverity = "info"
)

// Origin locates a diagnostic in the metamodel graph
type Origin struct {
	// Node is the id of the node holding the offending reference
	Node string `json:"node,omitempty"`
	// Field is the node field the reference was read from
	Field string `json:"field,omitempty"`
	// Reference is the id that could not be used
	Reference string `json:"reference,omitempty"`
}

// CompilerError is one diagnostic produced while loading or compiling a metamodel
type CompilerError struct {
	// Code is the unique diagnostic code (e.g., "REF100")
	Code ErrorCode `json:"code"`
	// Type is a machine-readable identifier
	Type string `json:"type"`
	// Category is the diagnostic category
	Category ErrorCategory `json:"category"`
	// Severity is the diagnostic severity level
	Severity ErrorSeverity `json:"severity"`
	// Message is the primary message
	Message string `json:"message"`
	// Origin is where in the graph the problem was found
	Origin Origin `json:"origin"`
	// File is the source file name (optional)
	File string `json:"file,omitempty"`
	// Expected describes what was expected (optional)
	Expected string `json:"expected,omitempty"`
	// Actual describes what was actually found (optional)
	Actual string `json:"actual,omitempty"`
	// Suggestion provides a hint for fixing the problem (optional)
	Suggestion string `json:"suggestion,omitempty"`
	// Documentation is an anchor to detailed documentation
	Documentation string `json:"documentation,omitempty"`
}

// Error implements the error interface
func (e *CompilerError) Error() string {
	return FormatCompact(e)
}

// Format returns a human-readable message for terminal output
func (e *CompilerError) Format() string {
	return FormatError(e)
}

// ToJSON returns the diagnostic as a JSON string
func (e *CompilerError) ToJSON() (string, error) {
	bytes, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// WithFile sets the source file name
func (e *CompilerError) WithFile(file string) *CompilerError {
	e.File = file
	return e
}

// WithExpected sets the expected value
func (e *CompilerError) WithExpected(expected string) *CompilerError {
	e.Expected = expected
	return e
}

// WithActual sets the actual value
func (e *CompilerError) WithActual(actual string) *CompilerError {
	e.Actual = actual
	return e
}

// WithSuggestion sets a suggestion for fixing the problem
func (e *CompilerError) WithSuggestion(suggestion string) *CompilerError {
	e.Suggestion = suggestion
	return e
}

// ErrorList is a collection of diagnostics
type ErrorList []*CompilerError

// Error implements the error interface
func (el ErrorList) Error() string {
	if len(el) == 0 {
		return "no errors"
	}
	return FormatErrorList(el)
}

// HasErrors returns true if the list contains any errors (excludes warnings/info)
func (el ErrorList) HasErrors() bool {
	for _, err := range el {
		if err.Severity == SeverityError {
			return true
		}
	}
	return false
}

// HasWarnings returns true if the list contains any warnings
func (el ErrorList) HasWarnings() bool {
	for _, err := range el {
		if err.Severity == SeverityWarning {
			return true
		}
	}
	return false
}

// ByCode returns the diagnostics carrying code
func (el ErrorList) ByCode(code ErrorCode) ErrorList {
	var out ErrorList
	for _, err := range el {
		if err.Code == code {
			out = append(out, err)
		}
	}
	return out
}

// WithFile sets the source file on every diagnostic of the list
func (el ErrorList) WithFile(file string) ErrorList {
	for _, err := range el {
		err.WithFile(file)
	}
	return el
}

// ToJSON returns all diagnostics as a JSON array
func (el ErrorList) ToJSON() (string, error) {
	if el == nil {
		el = ErrorList{}
	}
	bytes, err := json.MarshalIndent(el, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// ErrorCount returns the number of diagnostics by severity
func (el ErrorList) ErrorCount() (errors, warnings, info int) {
	for _, err := range el {
		switch err.Severity {
		case SeverityError:
			errors++
		case SeverityWarning:
			warnings++
		case SeverityInfo:
			info++
		}
	}
	return
}

// documentationURL returns the documentation anchor for a code
func documentationURL(code ErrorCode) string {
	return fmt.Sprintf("docs/diagnostics.md#%s", code)
}

// newError creates a new CompilerError with the given parameters
func newError(
	code ErrorCode,
	typ string,
	category ErrorCategory,
	severity ErrorSeverity,
	message string,
	origin Origin,
) *CompilerError {
	return &CompilerError{
		Code:          code,
		Type:          typ,
		Category:      category,
		Severity:      severity,
		Message:       message,
		Origin:        origin,
		Documentation: documentationURL(code),
	}
}
