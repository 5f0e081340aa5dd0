package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Table renders aligned columns with a colored header row
type Table struct {
	writer  io.Writer
	headers []string
	rows    [][]string
	noColor bool
}

// NewTable creates a new table with the given headers
func NewTable(w io.Writer, noColor bool, headers ...string) *Table {
	return &Table{
		writer:  w,
		headers: headers,
		noColor: noColor,
	}
}

// AddRow adds a row. Missing cells render empty, extra cells are dropped.
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.rows)
}

// Render writes the table
func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = len(h)
	}
	for _, row := range t.rows {
		for i := 0; i < len(widths) && i < len(row); i++ {
			widths[i] = max(widths[i], len(row[i]))
		}
	}

	bold := color.New(color.Bold, color.FgCyan)
	gray := color.New(color.FgHiBlack)
	if t.noColor {
		bold.DisableColor()
		gray.DisableColor()
	}

	header := make([]string, len(widths))
	rule := make([]string, len(widths))
	for i, h := range t.headers {
		header[i] = bold.Sprint(padRight(h, widths[i]))
		rule[i] = gray.Sprint(strings.Repeat("─", widths[i]))
	}
	fmt.Fprintln(t.writer, strings.TrimRight(strings.Join(header, "  "), " "))
	fmt.Fprintln(t.writer, strings.Join(rule, "  "))

	for _, row := range t.rows {
		cells := make([]string, len(widths))
		for i := range widths {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			cells[i] = padRight(cell, widths[i])
		}
		fmt.Fprintln(t.writer, strings.TrimRight(strings.Join(cells, "  "), " "))
	}
}

// padRight pads a string with spaces on the right to reach the target width
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// Header writes a bold section title
func Header(w io.Writer, title string, noColor bool) {
	bold := color.New(color.Bold)
	if noColor {
		bold.DisableColor()
	}
	bold.Fprintln(w, title)
}
