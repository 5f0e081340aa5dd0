package load

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// yamlRecords extracts the records of a YAML metamodel document. yaml.Node
// keeps mapping order, which plain map decoding would lose.
func yamlRecords(data []byte) ([]keyedRecord, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		records := make([]keyedRecord, 0, len(root.Content))
		for i, item := range root.Content {
			rec, err := yamlRecord(item)
			if err != nil {
				return nil, fmt.Errorf("node %d: %w", i, err)
			}
			records = append(records, keyedRecord{record: rec})
		}
		return records, nil
	case yaml.MappingNode:
		if versions := mappingValue(root, "versions"); versions != nil {
			return yamlEnvelope(root, versions)
		}
		return yamlMapRecords(root)
	default:
		return nil, fmt.Errorf("expected a YAML mapping or sequence at the top level")
	}
}

func yamlEnvelope(root, versions *yaml.Node) ([]keyedRecord, error) {
	if versions.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("invalid versions: expected a mapping")
	}
	if len(versions.Content) == 0 {
		return nil, nil
	}

	var current string
	if cv := mappingValue(root, "current_version"); cv != nil && cv.Kind == yaml.ScalarNode {
		current = cv.Value
	}

	chosen := mappingValue(versions, current)
	if chosen == nil {
		chosen = versions.Content[len(versions.Content)-1]
	}
	if chosen.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("invalid version %q: expected a mapping", current)
	}

	needs := mappingValue(chosen, "needs")
	if needs == nil {
		return nil, nil
	}
	if needs.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("invalid needs: expected a mapping")
	}
	return yamlMapRecords(needs)
}

func yamlMapRecords(m *yaml.Node) ([]keyedRecord, error) {
	records := make([]keyedRecord, 0, len(m.Content)/2)
	for i := 0; i+1 < len(m.Content); i += 2 {
		key := m.Content[i].Value
		rec, err := yamlRecord(m.Content[i+1])
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", key, err)
		}
		records = append(records, keyedRecord{key: key, record: rec})
	}
	return records, nil
}

func yamlRecord(n *yaml.Node) (map[string]any, error) {
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("record must be a mapping (line %d)", n.Line)
	}
	var rec map[string]any
	if err := n.Decode(&rec); err != nil {
		return nil, fmt.Errorf("line %d: %w", n.Line, err)
	}
	return rec, nil
}

// mappingValue returns the value node stored under key, or nil.
func mappingValue(m *yaml.Node, key string) *yaml.Node {
	if m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}
