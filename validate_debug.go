//go:build debug_brkheap

package brkheap

import "encoding/binary"

const (
	// DebugHeaderMarkers indicates whether reserved header regions are stamped with an
	// easy-to-identify marker so payload overruns can be caught by CheckCorruption
	DebugHeaderMarkers = true
	// headerMarkerMagicValue is a 4-byte pattern copied across reserved header regions
	// in segments managed by brkheap
	headerMarkerMagicValue uint32 = 0x7F84E666
)

// WriteHeaderMarker writes an easy-to-identify marker across the provided reserved
// header region. This method no-ops unless the debug_brkheap build tag is present.
func WriteHeaderMarker(region []byte) {
	for i := 0; i+4 <= len(region); i += 4 {
		binary.LittleEndian.PutUint32(region[i:], headerMarkerMagicValue)
	}
}

// ValidateHeaderMarker verifies that the easy-to-identify marker written by
// WriteHeaderMarker is still present. It returns true if the marker is intact and
// false otherwise. This method always returns true unless the debug_brkheap build
// tag is present.
func ValidateHeaderMarker(region []byte) bool {
	for i := 0; i+4 <= len(region); i += 4 {
		if binary.LittleEndian.Uint32(region[i:]) != headerMarkerMagicValue {
			return false
		}
	}

	return true
}

// DebugValidate will call Validate on the provided object and panics if any errors are returned. This
// method no-ops unless the debug_brkheap build tag is present
func DebugValidate(validatable Validatable) {
	err := validatable.Validate()
	if err != nil {
		panic(err)
	}
}

// DebugCheckPow2 will verify that the numerical value passed in is a power of two, and panics if it is not.
// This method no-ops unless the debug_brkheap build tag is present.
func DebugCheckPow2[T Number](value T, name string) {
	err := CheckPow2[T](value, name)
	if err != nil {
		panic(err)
	}
}
