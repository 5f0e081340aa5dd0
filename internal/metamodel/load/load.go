// Package load reads metamodel documents into a node table.
//
// Supported shapes, in JSON or YAML:
//
//   - a sphinx-needs needs.json envelope
//     {"current_version": v, "versions": {v: {"needs": {id: record}}}}
//   - a flat object {id: record}
//   - a list [record]
//
// Key order of the document becomes node table order.
package load

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/needs-tools/needschema/internal/compiler/errors"
	"github.com/needs-tools/needschema/internal/metamodel"
)

// Format is the encoding of a metamodel document
type Format int

const (
	// FormatAuto picks JSON or YAML by file extension, then by content
	FormatAuto Format = iota
	FormatJSON
	FormatYAML
)

// String returns the format name
func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	default:
		return "auto"
	}
}

// Result is a loaded node table plus the findings made while loading
type Result struct {
	Table       *metamodel.Table
	Diagnostics errors.ErrorList
}

// keyedRecord is one raw record and the mapping key it was found under
type keyedRecord struct {
	key    string
	record map[string]any
}

// File loads the metamodel stored at path
func File(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	res, err := Bytes(data, FormatFor(path))
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	res.Diagnostics.WithFile(path)
	return res, nil
}

// FormatFor returns the format implied by a file name
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatAuto
	}
}

// Bytes loads a metamodel document from memory
func Bytes(data []byte, format Format) (*Result, error) {
	if format == FormatAuto {
		format = sniff(data)
	}

	var (
		records []keyedRecord
		err     error
	)
	switch format {
	case FormatJSON:
		records, err = jsonRecords(data)
	case FormatYAML:
		records, err = yamlRecords(data)
	default:
		return nil, fmt.Errorf("unsupported format %s", format)
	}
	if err != nil {
		return nil, err
	}

	return build(records)
}

// sniff treats documents starting with '{' or '[' as JSON and everything
// else as YAML.
func sniff(data []byte) Format {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return FormatJSON
	}
	return FormatYAML
}

// build converts raw records into nodes and reports identifier findings.
func build(records []keyedRecord) (*Result, error) {
	var diags errors.ErrorList
	nodes := make([]metamodel.Node, 0, len(records))
	seen := make(map[string]bool, len(records))

	for _, kr := range records {
		n, err := nodeFromRecord(kr.key, kr.record)
		if err != nil {
			return nil, err
		}
		id := n.ID()
		if !metamodel.ValidIdentifier(id) {
			diags = append(diags, errors.NewInvalidIdentifier(id))
		}
		if seen[id] {
			diags = append(diags, errors.NewDuplicateIdentifier(id))
		}
		seen[id] = true
		nodes = append(nodes, n)
	}

	return &Result{
		Table:       metamodel.New(nodes),
		Diagnostics: diags,
	}, nil
}
