package store

import "fmt"

// Value-composition helpers shared by the entity tree and the poll write
// path. Values are the generic shapes produced by JSON/YAML decoding:
// map[string]any, []any and scalars.
//
// A nil map value is the "clear this field" sentinel: merging drops the key,
// and AsMap-based readers treat it as absent. No legal configuration value is
// nil, so the sentinel cannot collide with real data.

// AsMap returns v as a map, or an empty map when v is not one.
// The returned map must not be mutated.
func AsMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// MergeMaps combines an entity's own configuration with its parent's,
// the child's keys taking precedence. Nested maps merge recursively; any
// other child value replaces the parent's wholesale. A nil child value
// clears the key entirely. Neither input is modified.
func MergeMaps(child, parent map[string]any) map[string]any {
	out := make(map[string]any, len(parent)+len(child))
	for k, v := range parent {
		if v != nil {
			out[k] = v
		}
	}
	for k, v := range child {
		if v == nil {
			delete(out, k)
			continue
		}
		cm, cok := v.(map[string]any)
		pm, pok := out[k].(map[string]any)
		if cok && pok {
			out[k] = MergeMaps(cm, pm)
			continue
		}
		out[k] = v
	}
	return out
}

// GetPath walks keys as a sequence of nested lookups into v. An empty key
// sequence returns v itself. On failure it reports the key that could not be
// resolved, either because the current value is not a map or the key is
// absent.
func GetPath(v any, keys []string) (any, string, error) {
	cur := v
	for _, k := range keys {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, k, fmt.Errorf("value at %q is not indexable", k)
		}
		cur, ok = m[k]
		if !ok {
			return nil, k, fmt.Errorf("key %q missing", k)
		}
	}
	return cur, "", nil
}

// SetPath returns a copy of v with the value at the nested key sequence
// replaced. An empty key sequence replaces the whole value. Levels that are
// absent or not maps are replaced by fresh maps; sibling keys are preserved.
func SetPath(v any, keys []string, val any) any {
	if len(keys) == 0 {
		return val
	}
	m, ok := v.(map[string]any)
	if !ok {
		m = map[string]any{}
	}
	out := make(map[string]any, len(m)+1)
	for k, mv := range m {
		out[k] = mv
	}
	out[keys[0]] = SetPath(out[keys[0]], keys[1:], val)
	return out
}
