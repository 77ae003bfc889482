//go:build !plan9 && !windows && !js

package segment

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Mmap is a segment backed by an anonymous memory mapping of fixed capacity.
// The mapping is reserved up front and the break moves within it, so Adjust
// never relocates memory and slices returned by Bytes stay valid until Close.
type Mmap struct {
	data []byte
	brk  int
}

// NewMmap maps capacity bytes of anonymous memory to serve as the segment's
// reservation. The break starts at 0; Adjust fails once it would pass the
// reservation. The caller owns the mapping and must release it with Close.
func NewMmap(capacity int) (*Mmap, error) {
	data, err := unix.Mmap(-1, 0, capacity, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to map %d bytes of anonymous memory", capacity)
	}

	return &Mmap{data: data}, nil
}

// Adjust moves the break by delta bytes within the reservation and returns the
// break offset as it was before the call.
func (s *Mmap) Adjust(delta int) (int, error) {
	prev := s.brk
	next := prev + delta

	if next < 0 {
		return 0, errors.Errorf("cannot move the break %d bytes below the segment base", -next)
	}
	if next > len(s.data) {
		return 0, errors.Errorf("a break of %d bytes would exhaust the %d-byte reservation", next, len(s.data))
	}

	s.brk = next
	return prev, nil
}

// Bytes returns the size bytes of segment memory beginning at offset.
func (s *Mmap) Bytes(offset, size int) []byte {
	return s.data[offset : offset+size]
}

// Close unmaps the reservation. The segment must not be used afterwards.
func (s *Mmap) Close() error {
	if s.data == nil {
		return nil
	}

	err := unix.Munmap(s.data)
	s.data = nil

	if err != nil {
		return errors.Wrap(err, "failed to unmap the segment reservation")
	}
	return nil
}
