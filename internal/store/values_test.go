package store

import (
	"reflect"
	"testing"
)

func TestMergeMapsChildWins(t *testing.T) {
	child := map[string]any{"interval": 5.0, "dest": "a/b"}
	parent := map[string]any{"interval": 30.0, "src": "c/d"}

	got := MergeMaps(child, parent)

	want := map[string]any{"interval": 5.0, "dest": "a/b", "src": "c/d"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MergeMaps = %v, want %v", got, want)
	}
}

func TestMergeMapsRecursesNestedMaps(t *testing.T) {
	child := map[string]any{"attr": map[string]any{"temperature": map[string]any{"interval": 5.0}}}
	parent := map[string]any{"attr": map[string]any{
		"temperature": map[string]any{"dest": "x"},
		"humidity":    map[string]any{"interval": 60.0},
	}}

	got := MergeMaps(child, parent)

	temp := got["attr"].(map[string]any)["temperature"].(map[string]any)
	if temp["interval"] != 5.0 || temp["dest"] != "x" {
		t.Errorf("nested merge = %v", temp)
	}
	if _, ok := got["attr"].(map[string]any)["humidity"]; !ok {
		t.Error("sibling key from parent lost in merge")
	}
}

func TestMergeMapsNilClearsField(t *testing.T) {
	child := map[string]any{"src": nil}
	parent := map[string]any{"src": "a/b", "interval": 10.0}

	got := MergeMaps(child, parent)

	if _, ok := got["src"]; ok {
		t.Errorf("nil sentinel did not clear field: %v", got)
	}
	if got["interval"] != 10.0 {
		t.Error("unrelated field lost")
	}
}

func TestMergeMapsDoesNotMutateInputs(t *testing.T) {
	child := map[string]any{"a": map[string]any{"x": 1.0}}
	parent := map[string]any{"a": map[string]any{"y": 2.0}}

	_ = MergeMaps(child, parent)

	if len(child["a"].(map[string]any)) != 1 || len(parent["a"].(map[string]any)) != 1 {
		t.Error("inputs were mutated")
	}
}

func TestGetPath(t *testing.T) {
	val := map[string]any{"value": map[string]any{"raw": 21.5}}

	tests := []struct {
		name    string
		keys    []string
		want    any
		wantKey string
	}{
		{"empty path returns whole value", nil, val, ""},
		{"single level", []string{"value"}, val["value"], ""},
		{"two levels", []string{"value", "raw"}, 21.5, ""},
		{"missing key", []string{"value", "missing"}, nil, "missing"},
		{"non-indexable", []string{"value", "raw", "deeper"}, nil, "deeper"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, key, err := GetPath(val, tt.keys)
			if tt.wantKey != "" {
				if err == nil {
					t.Fatalf("GetPath = %v, want error", got)
				}
				if key != tt.wantKey {
					t.Errorf("failing key = %q, want %q", key, tt.wantKey)
				}
				return
			}
			if err != nil {
				t.Fatalf("GetPath: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("GetPath = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSetPathPreservesSiblings(t *testing.T) {
	cur := map[string]any{"a": 1.0, "b": 2.0}

	got := SetPath(cur, []string{"b"}, 5.0)

	want := map[string]any{"a": 1.0, "b": 5.0}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SetPath = %v, want %v", got, want)
	}
	if cur["b"] != 2.0 {
		t.Error("SetPath mutated its input")
	}
}

func TestSetPathEmptyKeysReplacesWholeValue(t *testing.T) {
	got := SetPath(map[string]any{"a": 1.0}, nil, 42.0)
	if got != 42.0 {
		t.Errorf("SetPath = %v, want 42", got)
	}
}

func TestSetPathBuildsMissingLevels(t *testing.T) {
	got := SetPath(nil, []string{"x", "y"}, true)

	want := map[string]any{"x": map[string]any{"y": true}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SetPath = %v, want %v", got, want)
	}
}

func TestSetPathReplacesNonMapLevel(t *testing.T) {
	got := SetPath(map[string]any{"x": 3.0}, []string{"x", "y"}, 1.0)

	want := map[string]any{"x": map[string]any{"y": 1.0}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SetPath = %v, want %v", got, want)
	}
}
