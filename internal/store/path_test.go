package store

import "testing"

func TestParsePath(t *testing.T) {
	tests := []struct {
		in   string
		want Path
	}{
		{"a/b/c", Path{"a", "b", "c"}},
		{"/a//b/", Path{"a", "b"}},
		{"", nil},
		{"10/aabbccddeeff", Path{"10", "aabbccddeeff"}},
	}

	for _, tt := range tests {
		got := ParsePath(tt.in)
		if !got.Equal(tt.want) {
			t.Errorf("ParsePath(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPathChildDoesNotAliasParent(t *testing.T) {
	base := Path{"a", "b"}
	c1 := base.Child("x")
	c2 := base.Child("y")

	if c1[2] != "x" || c2[2] != "y" {
		t.Errorf("Child aliasing: %v %v", c1, c2)
	}
}

func TestPathRelativeTo(t *testing.T) {
	p := Path{"owfs", "10", "aabbccddeeff", "attr", "temperature"}

	rel, ok := p.RelativeTo(Path{"owfs"})
	if !ok || !rel.Equal(Path{"10", "aabbccddeeff", "attr", "temperature"}) {
		t.Errorf("RelativeTo = %v, %v", rel, ok)
	}

	if _, ok := p.RelativeTo(Path{"other"}); ok {
		t.Error("RelativeTo accepted non-prefix")
	}
}

func TestToPath(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Path
	}{
		{"string", "sensors/target", Path{"sensors", "target"}},
		{"list of any", []any{"sensors", "target"}, Path{"sensors", "target"}},
		{"string slice", []string{"a"}, Path{"a"}},
		{"empty string", "", nil},
		{"nil", nil, nil},
		{"mixed list", []any{"a", 1}, nil},
		{"number", 42.0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToPath(tt.in)
			if !got.Equal(tt.want) {
				t.Errorf("ToPath(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
