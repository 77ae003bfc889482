package heap

//go:generate mockgen -source segment.go -destination mocks/segment.go

// Segment is the break-pointer collaborator that backs a Heap: a contiguous
// region of memory whose upper end (the "break") can be moved to grow or
// shrink the usable space. Implementations live in the segment package; the
// Heap only ever interacts with its backing memory through this interface.
type Segment interface {
	// Adjust moves the break by delta bytes and returns the break offset as it
	// was before the call. A delta of 0 queries the current break without
	// moving it. A failed adjustment returns an error and leaves the break
	// where it was.
	Adjust(delta int) (int, error)
	// Bytes returns the size bytes of segment memory beginning at offset. The
	// returned slice aliases the segment's backing storage and is invalidated
	// by any later Adjust call that grows the break.
	Bytes(offset, size int) []byte
}
