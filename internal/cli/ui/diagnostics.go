package ui

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/needs-tools/needschema/internal/compiler/errors"
)

// DiagnosticOptions configures diagnostic output
type DiagnosticOptions struct {
	NoColor bool
	// KnownIDs feeds "did you mean" suggestions for dangling references
	KnownIDs []string
}

func levelOf(sev errors.ErrorSeverity) ErrorLevel {
	switch sev {
	case errors.SeverityWarning:
		return ErrorLevelWarning
	case errors.SeverityInfo:
		return ErrorLevelInfo
	default:
		return ErrorLevelError
	}
}

// WriteDiagnostics prints each diagnostic followed by a summary line
func WriteDiagnostics(w io.Writer, list errors.ErrorList, opts DiagnosticOptions) {
	for _, d := range list {
		msg := ErrorOptions{
			Level:   levelOf(d.Severity),
			Problem: fmt.Sprintf("%s %s: %s", d.Code, location(d), d.Message),
			NoColor: opts.NoColor,
		}
		if d.Code == errors.ErrDanglingReference && len(opts.KnownIDs) > 0 {
			msg.Suggestions = SimilarIDs(d.Origin.Reference, opts.KnownIDs)
		}
		if d.Suggestion != "" && len(msg.Suggestions) == 0 {
			msg.HelpCommands = []string{d.Suggestion}
		}
		WriteError(w, msg)
	}
	fmt.Fprintln(w, Summary(list, opts.NoColor))
}

// location renders file:node.field for a diagnostic
func location(d *errors.CompilerError) string {
	loc := d.Origin.Node
	if d.Origin.Field != "" {
		loc += "." + d.Origin.Field
	}
	switch {
	case d.File == "":
		return loc
	case loc == "":
		return d.File
	default:
		return d.File + ":" + loc
	}
}

// Summary returns the one-line count of a diagnostic list
func Summary(list errors.ErrorList, noColor bool) string {
	errCount, warnCount, infoCount := list.ErrorCount()
	msg := fmt.Sprintf("%d error(s), %d warning(s), %d info", errCount, warnCount, infoCount)
	if errCount > 0 {
		_, body, _ := levelStyle(ErrorLevelError, noColor)
		return body.Sprint(msg)
	}
	return FormatSuccess(msg, noColor)
}

// WriteDiagnosticTable prints diagnostics as one row each
func WriteDiagnosticTable(w io.Writer, list errors.ErrorList, noColor bool) {
	table := NewTable(w, noColor, "CODE", "SEVERITY", "NODE", "FIELD", "REFERENCE")
	for _, d := range list {
		table.AddRow(string(d.Code), string(d.Severity), d.Origin.Node, d.Origin.Field, d.Origin.Reference)
	}
	table.Render()
}

// Report is the machine-readable form of a compilation outcome
type Report struct {
	Success     bool             `json:"success"`
	Input       string           `json:"input,omitempty"`
	Output      string           `json:"output,omitempty"`
	Error       string           `json:"error,omitempty"`
	Diagnostics errors.ErrorList `json:"diagnostics"`
}

// WriteJSON writes reports as indented JSON: a single object for one report,
// an array otherwise.
func WriteJSON(w io.Writer, reports ...Report) error {
	for i := range reports {
		if reports[i].Diagnostics == nil {
			reports[i].Diagnostics = errors.ErrorList{}
		}
	}

	var v any = reports
	if len(reports) == 1 {
		v = reports[0]
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
