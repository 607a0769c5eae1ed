package onewire

import (
	"fmt"
	"strconv"
)

// Namespace constants: family codes are one unsigned byte, device ids are
// 12 hex digits (48 bits).
const (
	familySegmentLen = 2
	idSegmentLen     = 12
)

// FormatFamily renders a family code as its two-hex-digit store segment.
func FormatFamily(code byte) string {
	return fmt.Sprintf("%02x", code)
}

// FormatID renders a device id as its twelve-hex-digit store segment.
func FormatID(id uint64) string {
	return fmt.Sprintf("%012x", id)
}

// FormatAddress renders the conventional "ff.iiiiiiiiiiii" device address.
func FormatAddress(code byte, id uint64) string {
	return FormatFamily(code) + "." + FormatID(id)
}

// ParseFamily parses a store segment as a family code. Only exactly two
// lowercase hex digits are accepted; anything else is not a family segment.
func ParseFamily(segment string) (byte, bool) {
	if len(segment) != familySegmentLen || !isLowerHex(segment) {
		return 0, false
	}
	v, err := strconv.ParseUint(segment, 16, 8)
	if err != nil {
		return 0, false
	}
	return byte(v), true
}

// ParseID parses a store segment as a device id. Only exactly twelve
// lowercase hex digits are accepted, and zero is not a valid id.
func ParseID(segment string) (uint64, bool) {
	if len(segment) != idSegmentLen || !isLowerHex(segment) {
		return 0, false
	}
	v, err := strconv.ParseUint(segment, 16, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return v, true
}

func isLowerHex(s string) bool {
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
