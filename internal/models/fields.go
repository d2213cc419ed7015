package models

import (
	"encoding/json"
	"fmt"
	"maps"
)

// Fields is a JSON object with arbitrary keys, used for draft metadata and PATCH bodies.
type Fields map[string]any

// Merge returns a new Fields with the keys of each layer applied in order, so later layers win.
//
// The merge is shallow. Nil layers are skipped.
func Merge(layers ...Fields) Fields {
	out := Fields{}
	for _, l := range layers {
		maps.Copy(out, l)
	}
	return out
}

// ToFields converts any JSON-encodable value into Fields using its JSON field names.
func ToFields(v any) (Fields, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode fields: %w", err)
	}

	var f Fields
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode fields: %w", err)
	}
	return f, nil
}

// String returns the value at key when it is a string.
func (f Fields) String(key string) string {
	s, _ := f[key].(string)
	return s
}

// Clone copies f. The copy is shallow.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	return maps.Clone(f)
}
