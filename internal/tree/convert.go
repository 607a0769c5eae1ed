package tree

// Loose decoding helpers for configuration values, which arrive as generic
// JSON/YAML shapes. Malformed values decode to the zero value; the engine
// treats that as "not configured".

// toStringList decodes a nested-key sequence. A bare string means a single
// key.
func toStringList(v any) []string {
	switch val := v.(type) {
	case string:
		if val == "" {
			return nil
		}
		return []string{val}
	case []string:
		if len(val) == 0 {
			return nil
		}
		return append([]string(nil), val...)
	case []any:
		out := make([]string, 0, len(val))
		for _, e := range val {
			s, ok := e.(string)
			if !ok {
				return nil
			}
			out = append(out, s)
		}
		if len(out) == 0 {
			return nil
		}
		return out
	default:
		return nil
	}
}

// toSeconds decodes a poll interval. Non-numeric and non-positive values
// mean "polling disabled".
func toSeconds(v any) float64 {
	f, ok := toFloat64(v)
	if !ok || f <= 0 {
		return 0
	}
	return f
}

func toFloat64(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint64:
		return float64(val), true
	default:
		return 0, false
	}
}

func toInt(v any) int {
	f, ok := toFloat64(v)
	if !ok {
		return 0
	}
	return int(f)
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
