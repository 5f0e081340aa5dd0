package load

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/needs-tools/needschema/internal/metamodel"
)

// nodeFromRecord converts one raw record into its node variant. The record id
// falls back to the mapping key it was stored under.
func nodeFromRecord(key string, rec map[string]any) (metamodel.Node, error) {
	id := stringField(rec, "id")
	if id == "" {
		id = key
	}
	if id == "" {
		return nil, fmt.Errorf("record without id")
	}

	rawKind := stringField(rec, "kind", "type")
	switch metamodel.ParseKind(rawKind) {
	case metamodel.KindAttribute:
		frag, err := fragmentField(rec, "schemaFragment", "schema_fragment", "schema")
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", id, err)
		}
		return &metamodel.Attribute{
			NodeID:   id,
			Name:     stringField(rec, "name"),
			Fragment: frag,
		}, nil
	case metamodel.KindEntityType:
		return &metamodel.EntityType{
			NodeID:    id,
			Directive: stringField(rec, "directive"),
			Groups:    listField(rec, "groups"),
			Shape:     shapeFields(rec),
		}, nil
	case metamodel.KindTypeGroup:
		return &metamodel.TypeGroup{
			NodeID:     id,
			GroupsBack: listField(rec, "groupsBack", "groups_back"),
			Shape:      shapeFields(rec),
		}, nil
	case metamodel.KindLinkKind:
		return &metamodel.LinkKind{
			NodeID: id,
			Option: stringField(rec, "option"),
		}, nil
	case metamodel.KindAssociation:
		return &metamodel.Association{
			NodeID:  id,
			Parent:  stringField(rec, "parent", "parentNeed", "parent_need"),
			Link:    listField(rec, "link", "links"),
			Targets: listField(rec, "targets"),
		}, nil
	default:
		return &metamodel.Unknown{NodeID: id, Raw: rawKind}, nil
	}
}

func shapeFields(rec map[string]any) metamodel.Shape {
	return metamodel.Shape{
		Mandatory:       listField(rec, "mandatory"),
		Optional:        listField(rec, "optional"),
		ParentNeedsBack: listField(rec, "parentNeedsBack", "parent_needs_back"),
	}
}

// stringField returns the first non-empty string stored under one of names.
func stringField(rec map[string]any, names ...string) string {
	for _, name := range names {
		if s, ok := rec[name].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// listField returns the ids stored under the first present name. Lists,
// single strings and comma separated strings are accepted.
func listField(rec map[string]any, names ...string) []string {
	for _, name := range names {
		v, ok := rec[name]
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case string:
			return splitList(val)
		case []any:
			var out []string
			for _, item := range val {
				if s, ok := item.(string); ok {
					out = append(out, splitList(s)...)
				}
			}
			return out
		}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// fragmentField returns a schema fragment given either as an object or as a
// string holding a JSON object (sphinx-needs stores option values as strings).
func fragmentField(rec map[string]any, names ...string) (map[string]any, error) {
	for _, name := range names {
		v, ok := rec[name]
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case map[string]any:
			return val, nil
		case string:
			if strings.TrimSpace(val) == "" {
				continue
			}
			var frag map[string]any
			if err := json.Unmarshal([]byte(val), &frag); err != nil {
				return nil, fmt.Errorf("%s is not a JSON object: %w", name, err)
			}
			return frag, nil
		default:
			return nil, fmt.Errorf("%s must be an object, got %T", name, v)
		}
	}
	return nil, nil
}
