// Package schema compiles a metamodel node table into a JSON Schema document.
//
// The document has two parts: a flat definitions table ($defs) holding
// attribute fragments, selectors and structural definitions, and an ordered
// list of schema entries, one per entity type (plus overflow entries for
// colliding link options). A validator picks the first entry whose selector
// matches a record's type and applies the entry's local and network rules.
package schema

import (
	"encoding/json"
)

// Fragment is a JSON Schema fragment
type Fragment = map[string]any

// Ref points at a definition of the same document
type Ref struct {
	Ref string `json:"$ref"`
}

// DefRef returns a reference to the definition stored under key
func DefRef(key string) Ref {
	return Ref{Ref: "#/$defs/" + key}
}

// SelectorKey returns the $defs key of the selector for name
func SelectorKey(name string) string {
	return "select_" + name
}

// Document is the compiled schema artifact
type Document struct {
	Defs    map[string]Fragment `json:"$defs"`
	Schemas []Entry             `json:"schemas"`
}

// Entry pairs a selector with the rules an instance of the selected type must
// satisfy
type Entry struct {
	ID       string     `json:"id"`
	Select   Ref        `json:"select"`
	Validate Validation `json:"validate"`
}

// Validation holds the rules of one entry. Local is nil on overflow entries;
// Network is omitted when no link-derived rule exists.
type Validation struct {
	Local   *LocalRule             `json:"local,omitempty"`
	Network map[string]NetworkRule `json:"network,omitempty"`
}

// LocalRule is the structural check of a single record: the record must
// satisfy every referenced definition and carry no other property.
type LocalRule struct {
	AllOf                 []Ref `json:"allOf"`
	UnevaluatedProperties bool  `json:"unevaluatedProperties"`
}

// NetworkRule constrains the records referenced under one link option to the
// listed type directives.
type NetworkRule struct {
	Contains    Fragment `json:"contains"`
	MinContains int      `json:"minContains"`
}

// newNetworkRule builds the containment rule for a set of allowed directives.
func newNetworkRule(directives []string) NetworkRule {
	enum := make([]string, len(directives))
	copy(enum, directives)
	return NetworkRule{
		Contains: Fragment{
			"local": Fragment{
				"properties": Fragment{
					"type": Fragment{"enum": enum},
				},
			},
		},
		MinContains: 0,
	}
}

// NewDocument returns an empty document
func NewDocument() *Document {
	return &Document{
		Defs:    make(map[string]Fragment),
		Schemas: []Entry{},
	}
}

// MarshalJSON emits exactly the two top-level keys, with empty collections
// instead of null.
func (d *Document) MarshalJSON() ([]byte, error) {
	type document Document
	out := document(*d)
	if out.Defs == nil {
		out.Defs = make(map[string]Fragment)
	}
	if out.Schemas == nil {
		out.Schemas = []Entry{}
	}
	return json.Marshal(out)
}

// Entry returns the schema entry with the given id
func (d *Document) Entry(id string) (Entry, bool) {
	for _, e := range d.Schemas {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}
