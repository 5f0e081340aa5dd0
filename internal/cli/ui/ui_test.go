package ui

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/needs-tools/needschema/internal/compiler/errors"
)

func TestFormatError(t *testing.T) {
	out := FormatError(ErrorOptions{
		Level:        ErrorLevelError,
		Context:      "load failed",
		Problem:      "invalid JSON",
		Consequence:  "No schema was written.",
		Suggestions:  []string{"needs.json"},
		HelpCommands: []string{"Get help: needschema --help"},
		NoColor:      true,
	})

	assert.Equal(t, "❌ LOAD FAILED\n"+
		"   invalid JSON\n"+
		"\n   No schema was written.\n"+
		"\n   Did you mean: needs.json?\n"+
		"\n   → Get help: needschema --help\n", out)

	assert.Equal(t, "⚠️ careful\n", Warning("careful", true))
	assert.Equal(t, "ℹ️ note\n", Info("note", true))
	assert.Equal(t, "✓ done", FormatSuccess("done", true))
}

func TestCannedMessages(t *testing.T) {
	assert.Contains(t, LoadError("needs.json", stderrors.New("boom"), true), "LOAD FAILED\n   needs.json: boom")
	assert.Contains(t, CompileFailed("needs.json", 2, true), "2 error(s)")
	assert.Contains(t, ConfigError("policy: unknown", true), "needschema init")
}

func TestSimilarIDs(t *testing.T) {
	ids := []string{"TYPE_REQ", "TYPE_SPEC", "ATTR_STATUS", "type_reqs"}

	assert.Equal(t, []string{"TYPE_REQ", "type_reqs"}, SimilarIDs("TYPE_RQ", ids))
	assert.Empty(t, SimilarIDs("COMPLETELY_OTHER", ids))
	assert.Equal(t, []string{"type_reqs", "TYPE_SPEC"}, SimilarIDs("TYPE_REQ", ids))
}

func TestLevenshteinDistance(t *testing.T) {
	assert.Equal(t, 3, LevenshteinDistance("kitten", "sitting"))
	assert.Equal(t, 3, LevenshteinDistance("saturday", "sunday"))
	assert.Equal(t, 4, LevenshteinDistance("", "abcd"))
	assert.Equal(t, 0, LevenshteinDistance("same", "same"))
}

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, true, "CODE", "NODE")
	table.AddRow("REF100", "TYPE_REQ")
	table.AddRow("DEF300")
	table.Render()

	assert.Equal(t, 2, table.Len())
	assert.Equal(t, "CODE    NODE\n"+
		"──────  ────────\n"+
		"REF100  TYPE_REQ\n"+
		"DEF300\n", buf.String())
}

func sampleDiagnostics() errors.ErrorList {
	return errors.ErrorList{
		errors.NewDanglingReference("TYPE_REQ", "mandatory", "ATTR_STATU").WithFile("needs.json"),
		errors.NewDefinitionOverwritten("select_req", "TYPE_REQ2"),
	}
}

func TestWriteDiagnostics(t *testing.T) {
	var buf bytes.Buffer
	list := sampleDiagnostics()
	WriteDiagnostics(&buf, list, DiagnosticOptions{NoColor: true, KnownIDs: []string{"ATTR_STATUS", "TYPE_REQ"}})

	out := buf.String()
	assert.Contains(t, out, "❌ REF100 needs.json:TYPE_REQ.mandatory: Reference 'ATTR_STATU' does not resolve to any node")
	assert.Contains(t, out, "Did you mean: ATTR_STATUS?")
	assert.Contains(t, out, "ℹ️ DEF300")
	assert.True(t, strings.HasSuffix(out, "1 error(s), 0 warning(s), 1 info\n"))
}

func TestWriteDiagnosticTable(t *testing.T) {
	var buf bytes.Buffer
	WriteDiagnosticTable(&buf, sampleDiagnostics(), true)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[2], "REF100  error"))
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "✓ 0 error(s), 0 warning(s), 0 info", Summary(nil, true))
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, Report{Success: true, Input: "needs.json"}))

	var single map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &single))
	assert.Equal(t, true, single["success"])
	assert.Equal(t, []any{}, single["diagnostics"])

	buf.Reset()
	require.NoError(t, WriteJSON(&buf, Report{Input: "a.json"}, Report{Input: "b.json", Diagnostics: sampleDiagnostics()}))

	var many []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &many))
	require.Len(t, many, 2)
	assert.Len(t, many[1]["diagnostics"], 2)
}

func TestSpinner(t *testing.T) {
	var buf bytes.Buffer
	s := NewSpinner(&buf, "compiling", time.Millisecond, true)
	s.Start()
	s.Start()
	time.Sleep(10 * time.Millisecond)
	s.Success("compiled")
	s.Stop()

	assert.Contains(t, buf.String(), "compiling")
	assert.True(t, strings.HasSuffix(buf.String(), "✓ compiled\n"))
}

func TestWithSpinner(t *testing.T) {
	var buf bytes.Buffer
	err := WithSpinner(&buf, "compile", true, func() error { return stderrors.New("boom") })
	assert.EqualError(t, err, "boom")
	assert.Contains(t, buf.String(), "❌ compile failed")

	buf.Reset()
	require.NoError(t, WithSpinner(&buf, "compile", true, func() error { return nil }))
	assert.Contains(t, buf.String(), "✓ compile")
}
