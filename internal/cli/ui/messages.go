package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// ErrorLevel represents the severity of a message
type ErrorLevel int

const (
	ErrorLevelError ErrorLevel = iota
	ErrorLevelWarning
	ErrorLevelInfo
)

// ErrorOptions configures message formatting
type ErrorOptions struct {
	Level        ErrorLevel
	Context      string
	Problem      string
	Consequence  string
	Suggestions  []string
	HelpCommands []string
	NoColor      bool
}

// levelStyle returns the header color, body color and symbol of a level
func levelStyle(level ErrorLevel, noColor bool) (*color.Color, *color.Color, string) {
	var header, body *color.Color
	var symbol string
	switch level {
	case ErrorLevelWarning:
		header, body, symbol = color.New(color.FgYellow, color.Bold), color.New(color.FgYellow), "⚠️"
	case ErrorLevelInfo:
		header, body, symbol = color.New(color.FgCyan, color.Bold), color.New(color.FgCyan), "ℹ️"
	default:
		header, body, symbol = color.New(color.FgRed, color.Bold), color.New(color.FgRed), "❌"
	}
	if noColor {
		header.DisableColor()
		body.DisableColor()
	}
	return header, body, symbol
}

// FormatError creates a standardized message with suggestions and help commands
//
// Example output:
//
//	❌ LOAD FAILED
//	   needs.json: invalid JSON: unexpected end of JSON input
//
//	   → Check the export: sphinx-build -b needs docs docs/_build
//	   → Get help: needschema compile --help
func FormatError(opts ErrorOptions) string {
	var b strings.Builder
	header, body, symbol := levelStyle(opts.Level, opts.NoColor)

	if opts.Context != "" {
		header.Fprintf(&b, "%s %s\n", symbol, strings.ToUpper(opts.Context))
		if opts.Problem != "" {
			body.Fprintf(&b, "   %s\n", opts.Problem)
		}
	} else {
		header.Fprintf(&b, "%s %s\n", symbol, opts.Problem)
	}

	if opts.Consequence != "" {
		b.WriteString("\n")
		body.Fprintf(&b, "   %s\n", opts.Consequence)
	}

	if len(opts.Suggestions) > 0 {
		b.WriteString("\n")
		yellow := color.New(color.FgYellow)
		if opts.NoColor {
			yellow.DisableColor()
		}
		yellow.Fprintf(&b, "   Did you mean: %s?\n", strings.Join(opts.Suggestions, ", "))
	}

	if len(opts.HelpCommands) > 0 {
		b.WriteString("\n")
		cyan := color.New(color.FgCyan)
		if opts.NoColor {
			cyan.DisableColor()
		}
		for _, cmd := range opts.HelpCommands {
			cyan.Fprintf(&b, "   → %s\n", cmd)
		}
	}

	return b.String()
}

// WriteError writes a formatted message to the writer
func WriteError(w io.Writer, opts ErrorOptions) {
	fmt.Fprint(w, FormatError(opts))
}

// FormatSuccess creates a success message
func FormatSuccess(message string, noColor bool) string {
	green := color.New(color.FgGreen, color.Bold)
	if noColor {
		green.DisableColor()
	}
	return green.Sprintf("✓ %s", message)
}

// WriteSuccess writes a success message to the writer
func WriteSuccess(w io.Writer, message string, noColor bool) {
	fmt.Fprintln(w, FormatSuccess(message, noColor))
}

// LoadError reports a metamodel that could not be read or parsed. path may be
// empty when err already names the file.
func LoadError(path string, err error, noColor bool) string {
	problem := err.Error()
	if path != "" {
		problem = fmt.Sprintf("%s: %v", path, err)
	}
	return FormatError(ErrorOptions{
		Level:   ErrorLevelError,
		Context: "load failed",
		Problem: problem,
		HelpCommands: []string{
			"Check the export: sphinx-build -b needs docs docs/_build",
			"Get help: needschema compile --help",
		},
		NoColor: noColor,
	})
}

// CompileFailed reports a strict compilation that produced errors
func CompileFailed(path string, errCount int, noColor bool) string {
	return FormatError(ErrorOptions{
		Level:       ErrorLevelError,
		Context:     "compile failed",
		Problem:     fmt.Sprintf("%s: %d error(s) under the strict policy.", path, errCount),
		Consequence: "No schema was written.",
		HelpCommands: []string{
			"List findings: needschema check " + path,
			"Tolerate them: needschema compile --strict=false " + path,
		},
		NoColor: noColor,
	})
}

// ConfigError creates a standardized configuration error
func ConfigError(message string, noColor bool) string {
	return FormatError(ErrorOptions{
		Level:   ErrorLevelError,
		Context: "CONFIGURATION ERROR",
		Problem: message,
		HelpCommands: []string{
			"View config: cat needschema.yaml",
			"Recreate it: needschema init",
		},
		NoColor: noColor,
	})
}

// Warning creates a standardized warning message
func Warning(message string, noColor bool) string {
	return FormatError(ErrorOptions{Level: ErrorLevelWarning, Problem: message, NoColor: noColor})
}

// Info creates a standardized info message
func Info(message string, noColor bool) string {
	return FormatError(ErrorOptions{Level: ErrorLevelInfo, Problem: message, NoColor: noColor})
}
