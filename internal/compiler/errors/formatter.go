package errors

import (
	"fmt"
	"strings"
)

// FormatError returns a human-readable message for terminal output
func FormatError(e *CompilerError) string {
	var b strings.Builder

	icon := severityIcon(e.Severity)

	file := e.File
	if file == "" {
		file = "<metamodel>"
	}

	fmt.Fprintf(&b, "%s %s in %s [%s]\n", icon, categoryDisplayName(e.Category), file, e.Code)

	if e.Origin.Node != "" {
		if e.Origin.Field != "" {
			fmt.Fprintf(&b, "Node %s, field %s:\n", e.Origin.Node, e.Origin.Field)
		} else {
			fmt.Fprintf(&b, "Node %s:\n", e.Origin.Node)
		}
	}
	fmt.Fprintf(&b, "  %s\n", e.Message)

	if e.Expected != "" || e.Actual != "" {
		b.WriteString("\n")
		if e.Expected != "" {
			fmt.Fprintf(&b, "  Expected: %s\n", e.Expected)
		}
		if e.Actual != "" {
			fmt.Fprintf(&b, "  Actual:   %s\n", e.Actual)
		}
	}

	if e.Suggestion != "" {
		fmt.Fprintf(&b, "\n💡 %s\n", e.Suggestion)
	}

	if e.Documentation != "" {
		fmt.Fprintf(&b, "\nLearn more: %s\n", e.Documentation)
	}

	return b.String()
}

// FormatErrorList returns a formatted string of all diagnostics
func FormatErrorList(errors ErrorList) string {
	if len(errors) == 0 {
		return "no errors"
	}

	var b strings.Builder

	errCount, warnCount, infoCount := errors.ErrorCount()
	fmt.Fprintf(&b, "Compilation finished with %d error(s), %d warning(s), %d info\n\n",
		errCount, warnCount, infoCount)

	for i, err := range errors {
		if i > 0 {
			b.WriteString("\n" + strings.Repeat("-", 80) + "\n\n")
		}
		b.WriteString(err.Format())
	}

	return b.String()
}

// FormatCompact returns a compact one-line format
func FormatCompact(e *CompilerError) string {
	file := e.File
	if file == "" {
		file = "<metamodel>"
	}
	where := e.Origin.Node
	if e.Origin.Field != "" {
		where += "." + e.Origin.Field
	}
	if where == "" {
		return fmt.Sprintf("%s: %s: %s [%s]", file, e.Severity, e.Message, e.Code)
	}
	return fmt.Sprintf("%s:%s: %s: %s [%s]", file, where, e.Severity, e.Message, e.Code)
}

// severityIcon returns the emoji/icon for a severity level
func severityIcon(severity ErrorSeverity) string {
	switch severity {
	case SeverityError:
		return "❌"
	case SeverityWarning:
		return "⚠️ "
	case SeverityInfo:
		return "ℹ️ "
	default:
		return "❓"
	}
}

// categoryDisplayName returns a human-readable category name
func categoryDisplayName(category ErrorCategory) string {
	switch category {
	case CategoryReference:
		return "Reference Problem"
	case CategoryAssociation:
		return "Association Problem"
	case CategoryDefinition:
		return "Definition Note"
	case CategoryLoad:
		return "Load Problem"
	default:
		return "Compiler Diagnostic"
	}
}
