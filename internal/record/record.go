// Package record holds helpers for the loosely typed record maps handed to
// computed field resolvers and automation payloads.
package record

import (
	"encoding/json"
	"strings"
)

// FromStruct converts v into a generic map through its JSON encoding.
func FromStruct(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetPath resolves a dotted path such as "contact.name". The second result is
// false when any segment is missing.
func GetPath(rec map[string]any, path string) (any, bool) {
	path = strings.TrimSpace(path)
	if path == "" || rec == nil {
		return nil, false
	}
	var current any = rec
	for _, key := range strings.Split(path, ".") {
		m, ok := asMap(current)
		if !ok {
			return nil, false
		}
		current, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// Value is GetPath without the presence flag.
func Value(rec map[string]any, path string) any {
	v, _ := GetPath(rec, path)
	return v
}

func asMap(v any) (map[string]any, bool) {
	switch typed := v.(type) {
	case map[string]any:
		return typed, true
	case map[string]string:
		out := make(map[string]any, len(typed))
		for k, s := range typed {
			out[k] = s
		}
		return out, true
	default:
		return nil, false
	}
}
