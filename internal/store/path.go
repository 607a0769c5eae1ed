package store

import "strings"

// Path addresses one entry in the store's hierarchy. Segments never contain
// the "/" separator.
type Path []string

// ParsePath splits a "/"-separated string into a Path.
// Empty segments are dropped, so "a//b/" parses the same as "a/b".
func ParsePath(s string) Path {
	var p Path
	for _, seg := range strings.Split(s, "/") {
		if seg != "" {
			p = append(p, seg)
		}
	}
	return p
}

// String renders the path "/"-separated.
func (p Path) String() string {
	return strings.Join(p, "/")
}

// Child returns a new path with the given segments appended.
// The receiver is not modified.
func (p Path) Child(segments ...string) Path {
	out := make(Path, 0, len(p)+len(segments))
	out = append(out, p...)
	return append(out, segments...)
}

// Equal reports whether both paths have the same segments.
// A nil path equals only another empty path.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether p starts with prefix.
func (p Path) HasPrefix(prefix Path) bool {
	if len(p) < len(prefix) {
		return false
	}
	return p[:len(prefix)].Equal(prefix)
}

// RelativeTo returns the suffix of p below prefix, or false if p is not
// under prefix.
func (p Path) RelativeTo(prefix Path) (Path, bool) {
	if !p.HasPrefix(prefix) {
		return nil, false
	}
	return p[len(prefix):], true
}

// ToPath converts a decoded configuration value into a Path. Accepted shapes
// are a "/"-separated string or a list of string segments; anything else
// (including nil) yields a nil path.
func ToPath(v any) Path {
	switch val := v.(type) {
	case string:
		if val == "" {
			return nil
		}
		return ParsePath(val)
	case []any:
		p := make(Path, 0, len(val))
		for _, seg := range val {
			s, ok := seg.(string)
			if !ok {
				return nil
			}
			p = append(p, s)
		}
		if len(p) == 0 {
			return nil
		}
		return p
	case []string:
		if len(val) == 0 {
			return nil
		}
		return append(Path(nil), val...)
	default:
		return nil
	}
}
