package onewire

import "testing"

func TestParseFamily(t *testing.T) {
	tests := []struct {
		in     string
		want   byte
		wantOK bool
	}{
		{"10", 0x10, true},
		{"00", 0x00, true},
		{"ff", 0xff, true},
		{"FF", 0, false},   // uppercase is not a store segment
		{"1", 0, false},    // too short
		{"100", 0, false},  // too long
		{"g0", 0, false},   // not hex
		{"server", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseFamily(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ParseFamily(%q) = %#x, %v; want %#x, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		in     string
		want   uint64
		wantOK bool
	}{
		{"aabbccddeeff", 0xaabbccddeeff, true},
		{"000000000001", 1, true},
		{"ffffffffffff", 0xffffffffffff, true},
		{"000000000000", 0, false}, // zero id is invalid
		{"aabbccddeef", 0, false},  // too short
		{"aabbccddeeff0", 0, false},
		{"AABBCCDDEEFF", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseID(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ParseID(%q) = %#x, %v; want %#x, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestFormatAddress(t *testing.T) {
	if got := FormatAddress(0x10, 0xaabbccddeeff); got != "10.aabbccddeeff" {
		t.Errorf("FormatAddress = %q", got)
	}
	if got := FormatAddress(0x05, 1); got != "05.000000000001" {
		t.Errorf("FormatAddress = %q", got)
	}
}

func TestRoundTrip(t *testing.T) {
	fam, ok := ParseFamily(FormatFamily(0x28))
	if !ok || fam != 0x28 {
		t.Errorf("family round trip = %#x, %v", fam, ok)
	}
	id, ok := ParseID(FormatID(0x123456789abc))
	if !ok || id != 0x123456789abc {
		t.Errorf("id round trip = %#x, %v", id, ok)
	}
}
