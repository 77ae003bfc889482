package heap

import "sync"

// HeaderSize is the number of bytes reserved in the segment ahead of every
// payload. Block footprints are always HeaderSize plus the payload size, so
// a block's header offset plus its footprint is exactly the next block's
// header offset.
const HeaderSize = 32

// Address identifies a live payload within a Heap's segment, as a byte offset
// from the segment base. Offset 0 always falls on the head block's reserved
// header, so NullAddress can never collide with a real payload.
type Address int

const NullAddress Address = 0

var blockAllocator = sync.Pool{
	New: func() any {
		return &block{}
	},
}

// block is one record in the address-ordered chain spanning the heap from its
// base up to the current break. size counts payload bytes only, never the
// header.
type block struct {
	offset int
	size   int
	free   bool

	prev *block
	next *block
}

func (b *block) payload() Address {
	return Address(b.offset + HeaderSize)
}

// footprint is the number of segment bytes the block occupies, header included.
func (b *block) footprint() int {
	return HeaderSize + b.size
}

func newBlock(offset, size int, free bool) *block {
	b := blockAllocator.Get().(*block)
	b.offset = offset
	b.size = size
	b.free = free
	b.prev = nil
	b.next = nil
	return b
}

func recycleBlock(b *block) {
	b.prev = nil
	b.next = nil
	blockAllocator.Put(b)
}
