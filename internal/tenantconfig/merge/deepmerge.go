package merge

import (
	"encoding/json"

	"github.com/smallbiznis/imobi360/internal/template"
	"github.com/smallbiznis/imobi360/internal/tenantconfig/domain"
)

// DeepMerge returns base with patch applied. Objects merge recursively,
// arrays and scalars replace, and keys absent from patch keep their base
// value. Neither argument is modified.
func DeepMerge(base, patch map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, pv := range patch {
		if pm, ok := asObject(pv); ok {
			if bm, ok := asObject(out[k]); ok {
				out[k] = DeepMerge(bm, pm)
				continue
			}
			out[k] = template.CopyMap(pm)
			continue
		}
		if list, ok := pv.([]any); ok {
			out[k] = template.CopyValue(list)
			continue
		}
		out[k] = pv
	}
	return out
}

func asObject(v any) (map[string]any, bool) {
	switch typed := v.(type) {
	case map[string]any:
		return typed, true
	case domain.Patch:
		return map[string]any(typed), true
	default:
		return nil, false
	}
}

// mergeItem applies patch to a typed item through its JSON object form.
func mergeItem[T any](base T, patch domain.Patch) (T, error) {
	var out T
	raw, err := json.Marshal(base)
	if err != nil {
		return out, err
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return out, err
	}
	merged, err := json.Marshal(DeepMerge(obj, patch))
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(merged, &out); err != nil {
		return out, err
	}
	return out, nil
}

func findPatch(patches []domain.Patch, match func(domain.Patch) bool) (domain.Patch, bool) {
	for _, p := range patches {
		if p != nil && match(p) {
			return p, true
		}
	}
	return nil, false
}

func stringKey(p domain.Patch, key string) string {
	s, _ := p[key].(string)
	return s
}
