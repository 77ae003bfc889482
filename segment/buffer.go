// Package segment provides break-pointer segments that back a heap.Heap: a
// Buffer held in ordinary Go memory, and on unix platforms an Mmap segment
// held in an anonymous memory mapping.
package segment

import (
	"math"

	"github.com/pkg/errors"
)

// Buffer is a segment backed by a growable byte slice. The break is simply
// the slice length, so a Buffer costs nothing until the break moves and is
// the segment of choice for tests and for heaps that live entirely inside
// the Go runtime.
type Buffer struct {
	data  []byte
	limit int
}

// NewBuffer creates an empty Buffer with no practical limit on growth.
func NewBuffer() *Buffer {
	return &Buffer{limit: math.MaxInt}
}

// NewBufferWithLimit creates an empty Buffer whose break refuses to move
// beyond limit bytes, so out-of-memory paths can be exercised deliberately.
func NewBufferWithLimit(limit int) *Buffer {
	return &Buffer{limit: limit}
}

// Adjust moves the break by delta bytes and returns the break offset as it was
// before the call. Newly mapped bytes are zeroed. Bytes above a lowered break
// keep their contents until the break grows over them again.
func (s *Buffer) Adjust(delta int) (int, error) {
	prev := len(s.data)
	next := prev + delta

	if next < 0 {
		return 0, errors.Errorf("cannot move the break %d bytes below the segment base", -next)
	}
	if next > s.limit {
		return 0, errors.Errorf("a break of %d bytes would exceed the segment limit of %d bytes", next, s.limit)
	}

	if delta > 0 {
		s.data = append(s.data, make([]byte, delta)...)
	} else {
		s.data = s.data[:next]
	}

	return prev, nil
}

// Bytes returns the size bytes of segment memory beginning at offset. The
// returned slice aliases the buffer and is invalidated by any later Adjust
// call that grows the break.
func (s *Buffer) Bytes(offset, size int) []byte {
	return s.data[offset : offset+size]
}
