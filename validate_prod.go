//go:build !debug_brkheap

package brkheap

const (
	// DebugHeaderMarkers indicates whether reserved header regions are stamped with an
	// easy-to-identify marker so payload overruns can be caught by CheckCorruption
	DebugHeaderMarkers = false
)

// WriteHeaderMarker writes an easy-to-identify marker across the provided reserved
// header region. This method no-ops unless the debug_brkheap build tag is present.
func WriteHeaderMarker(region []byte) {
}

// ValidateHeaderMarker verifies that the easy-to-identify marker written by
// WriteHeaderMarker is still present. It returns true if the marker is intact and
// false otherwise. This method always returns true unless the debug_brkheap build
// tag is present.
func ValidateHeaderMarker(region []byte) bool {
	return true
}

// DebugValidate will call Validate on the provided object and panics if any errors are returned. This
// method no-ops unless the debug_brkheap build tag is present
func DebugValidate(validatable Validatable) {
}

// DebugCheckPow2 will verify that the numerical value passed in is a power of two, and panics if it is not.
// This method no-ops unless the debug_brkheap build tag is present.
func DebugCheckPow2[T Number](value T, name string) {
}
