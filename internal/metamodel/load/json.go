package load

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// rawEntry is one member of a JSON object, in document order
type rawEntry struct {
	key   string
	value json.RawMessage
}

// jsonRecords extracts the records of a JSON metamodel document.
func jsonRecords(data []byte) ([]keyedRecord, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("invalid JSON node list: %w", err)
		}
		records := make([]keyedRecord, 0, len(list))
		for i, raw := range list {
			rec, err := jsonRecord(raw)
			if err != nil {
				return nil, fmt.Errorf("node %d: %w", i, err)
			}
			records = append(records, keyedRecord{record: rec})
		}
		return records, nil
	}

	top, err := orderedObject(trimmed)
	if err != nil {
		return nil, err
	}
	if versions, ok := lookup(top, "versions"); ok {
		return jsonEnvelope(top, versions)
	}
	return jsonMapRecords(top)
}

// jsonEnvelope extracts the needs of the current version of a needs.json
// document. Without a usable current_version the last listed version is used.
func jsonEnvelope(top []rawEntry, versionsRaw json.RawMessage) ([]keyedRecord, error) {
	versions, err := orderedObject(versionsRaw)
	if err != nil {
		return nil, fmt.Errorf("invalid versions: %w", err)
	}
	if len(versions) == 0 {
		return nil, nil
	}

	var current string
	if raw, ok := lookup(top, "current_version"); ok {
		// current_version may be a string or null
		_ = json.Unmarshal(raw, &current)
	}

	chosen, ok := lookup(versions, current)
	if !ok {
		chosen = versions[len(versions)-1].value
	}

	version, err := orderedObject(chosen)
	if err != nil {
		return nil, fmt.Errorf("invalid version %q: %w", current, err)
	}
	needs, ok := lookup(version, "needs")
	if !ok {
		return nil, nil
	}
	entries, err := orderedObject(needs)
	if err != nil {
		return nil, fmt.Errorf("invalid needs: %w", err)
	}
	return jsonMapRecords(entries)
}

func jsonMapRecords(entries []rawEntry) ([]keyedRecord, error) {
	records := make([]keyedRecord, 0, len(entries))
	for _, e := range entries {
		rec, err := jsonRecord(e.value)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", e.key, err)
		}
		records = append(records, keyedRecord{key: e.key, record: rec})
	}
	return records, nil
}

func jsonRecord(raw json.RawMessage) (map[string]any, error) {
	var rec map[string]any
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("record must be an object: %w", err)
	}
	return rec, nil
}

// orderedObject splits a JSON object into its members, keeping their order.
// encoding/json maps do not preserve key order.
func orderedObject(data []byte) ([]rawEntry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected a JSON object")
	}

	var entries []rawEntry
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected an object key")
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("invalid value for %q: %w", key, err)
		}
		entries = append(entries, rawEntry{key: key, value: value})
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after JSON object")
	}
	return entries, nil
}

func lookup(entries []rawEntry, key string) (json.RawMessage, bool) {
	for _, e := range entries {
		if e.key == key {
			return e.value, true
		}
	}
	return nil, false
}
