package heap

import (
	"os"

	"github.com/Jess-Ferguson/brkheap"
	cerrors "github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/pkg/errors"
	"golang.org/x/exp/slog"
)

// DefaultAlignment is the alignment quantum applied when Options.Alignment is
// left at zero. Every block footprint is padded to a multiple of the quantum.
const DefaultAlignment uint = 16

// ErrOutOfMemory is the error returned from Alloc when the segment cannot supply
// the memory needed to satisfy the request
var ErrOutOfMemory error = errors.New("no memory available to satisfy the allocation")

// Options contains optional parameters for New: it is valid to leave all the
// fields blank.
type Options struct {
	// PageSize is the granularity of break adjustments- the heap grows and
	// shrinks in whole pages. It must be a power of two and a multiple of the
	// alignment quantum. When 0, the platform page size is used.
	PageSize int
	// Alignment is the alignment quantum for payload addresses and block
	// footprints. It must be a power of two that divides HeaderSize. When 0,
	// DefaultAlignment is used.
	Alignment uint
}

// Heap manages a doubly-linked chain of blocks spanning its segment from the
// first-ever-requested break offset up to the current break, in strict
// ascending address order. Free blocks stay embedded in the chain- there is no
// separate free list- and are found by linear first-fit scan.
//
// A Heap must not be used from more than one goroutine at a time.
type Heap struct {
	logger *slog.Logger
	seg    Segment

	pageSize  int
	alignment uint

	head *block
	tail *block

	// Live block records indexed by payload address, so Free can resolve the
	// record for a returned address without walking the chain
	byAddr *swiss.Map[Address, *block]

	allocCount int
}

// New creates a Heap on top of the provided segment.
//
// logger - Debug-level records are written for segment growth and trim events.
// A nil logger falls back to slog.Default.
//
// seg - The break-pointer segment that backs the heap
//
// options - Optional parameters: it is valid to leave all the fields blank
func New(logger *slog.Logger, seg Segment, options Options) (*Heap, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if seg == nil {
		return nil, errors.New("a heap cannot be created without a backing segment")
	}

	pageSize := options.PageSize
	if pageSize == 0 {
		pageSize = os.Getpagesize()
	}
	if err := brkheap.CheckPow2(pageSize, "Options.PageSize"); err != nil {
		return nil, err
	}

	alignment := options.Alignment
	if alignment == 0 {
		alignment = DefaultAlignment
	}
	if err := brkheap.CheckPow2(alignment, "Options.Alignment"); err != nil {
		return nil, err
	}
	if HeaderSize%int(alignment) != 0 {
		return nil, errors.Errorf("alignment %d does not divide the header footprint of %d bytes", alignment, HeaderSize)
	}
	if pageSize%int(alignment) != 0 {
		return nil, errors.Errorf("page size %d is not a multiple of the alignment %d", pageSize, alignment)
	}

	return &Heap{
		logger:    logger,
		seg:       seg,
		pageSize:  pageSize,
		alignment: alignment,
		byAddr:    swiss.NewMap[Address, *block](42),
	}, nil
}

// Alloc reserves size writable bytes on the heap and returns the address of
// the first one. A size of 0 is a defined no-op returning NullAddress and no
// error. When the segment cannot supply the memory, NullAddress is returned
// with an error wrapping ErrOutOfMemory and the block chain is left untouched.
func (h *Heap) Alloc(size int) (Address, error) {
	if size < 0 {
		return NullAddress, errors.Errorf("allocation size must not be negative, but %d was requested", size)
	}
	if size == 0 {
		return NullAddress, nil
	}

	brkheap.DebugValidate(h)

	// Pad the payload so the block footprint lands on an alignment boundary
	size = brkheap.AlignUp(size+HeaderSize, h.alignment) - HeaderSize

	heapEmpty := h.head == nil
	base := 0

	if heapEmpty {
		var err error
		base, err = h.seg.Adjust(0)
		if err != nil {
			return NullAddress, cerrors.Wrapf(ErrOutOfMemory, "break query failed: %v", err)
		}
	} else {
		// First fit: the lowest-addressed free block with room for the padded
		// payload plus a header
		for b := h.head; b != nil; b = b.next {
			if b.free && b.size >= size+HeaderSize {
				return h.takeFreeBlock(b, size), nil
			}
		}
	}

	return h.growHeap(size, heapEmpty, base)
}

// takeFreeBlock commits a first-fit match without growing the segment.
func (h *Heap) takeFreeBlock(b *block, size int) Address {
	if b.size >= size+2*HeaderSize {
		// Spare capacity can stand as its own free block
		remainder := newBlock(b.offset+HeaderSize+size, b.size-(size+HeaderSize), true)
		remainder.prev = b
		remainder.next = b.next
		if b.next != nil {
			b.next.prev = remainder
		}
		b.next = remainder
		h.byAddr.Put(remainder.payload(), remainder)
		h.stamp(remainder)
	} else {
		// Too small to split usefully, the whole block becomes padding
		size = b.size
	}

	b.size = size
	b.free = false
	h.allocCount++

	if h.tail == b && b.next != nil {
		h.tail = b.next
	}

	h.stamp(b)
	return b.payload()
}

// growHeap extends the break to make room for a padded payload that no free
// block could hold, reusing a free tail's capacity when one exists.
func (h *Heap) growHeap(size int, heapEmpty bool, base int) (Address, error) {
	additional := 0
	if !heapEmpty && h.tail.free {
		additional = h.tail.footprint()
	}

	growth := brkheap.AlignUp(size+HeaderSize-additional, uint(h.pageSize))

	if _, err := h.seg.Adjust(growth); err != nil {
		// Nothing in the chain was touched, the failure is clean
		return NullAddress, cerrors.Wrapf(ErrOutOfMemory, "break adjustment by %d bytes failed: %v", growth, err)
	}

	h.logger.Debug("Heap::Alloc grew the segment",
		slog.Int("Growth", growth),
		slog.Int("PayloadSize", size),
	)

	var b *block
	switch {
	case heapEmpty:
		b = newBlock(base, size, false)
		h.head = b
		h.tail = b
		h.byAddr.Put(b.payload(), b)
	case !h.tail.free:
		b = newBlock(h.tail.offset+h.tail.footprint(), size, false)
		b.prev = h.tail
		h.tail.next = b
		h.tail = b
		h.byAddr.Put(b.payload(), b)
	default:
		// The free tail is reused outright- its capacity was already folded
		// into the growth arithmetic
		b = h.tail
		b.next = nil
		b.free = false
		b.size = size
	}
	h.allocCount++

	// Surplus beyond the request becomes a trailing free block, or internal
	// padding when it cannot hold a header of its own
	leftover := growth + additional - (size + HeaderSize)
	if leftover > HeaderSize {
		trailing := newBlock(b.offset+b.footprint(), leftover-HeaderSize, true)
		trailing.prev = b
		b.next = trailing
		h.tail = trailing
		h.byAddr.Put(trailing.payload(), trailing)
		h.stamp(trailing)
	} else {
		b.size += leftover
	}

	h.stamp(b)
	return b.payload(), nil
}

// Free returns a previously allocated payload to the heap. NullAddress,
// addresses that do not map to a live payload, and payloads that are already
// free are all tolerated as no-ops. Address-adjacent free blocks are eagerly
// coalesced, and a coalesced tail spanning at least one page is handed back
// to the segment.
func (h *Heap) Free(addr Address) {
	if addr == NullAddress {
		return
	}

	brkheap.DebugValidate(h)

	b, ok := h.byAddr.Get(addr)
	if !ok {
		// Never allocated here, or already merged into a neighbour
		return
	}
	if b.free {
		// Double free, tolerated as a no-op
		return
	}

	b.free = true
	h.allocCount--

	// Consume a free block in front
	if b.next != nil && b.next.free {
		h.absorbNext(b)
	}

	// Jump to a free block directly behind and consume the block in front
	if b.prev != nil && b.prev.free {
		b = b.prev
		h.absorbNext(b)
	}

	h.trimTail(b)
}

// absorbNext merges b's next block into b, destroying the next block's record.
func (h *Heap) absorbNext(b *block) {
	next := b.next
	if next == nil || !next.free {
		panic("the block behind the merge target must exist and be free")
	}

	b.size += next.footprint()
	b.next = next.next
	if b.next != nil {
		b.next.prev = b
	} else {
		h.tail = b
	}

	h.byAddr.Delete(next.payload())
	recycleBlock(next)
}

// trimTail hands whole pages of a coalesced free tail back to the segment.
// Shrink failures are not surfaced- the chain is already consistent without
// the returned pages.
func (h *Heap) trimTail(b *block) {
	if b.next != nil || b.footprint() < h.pageSize {
		return
	}

	leftover := b.footprint() % h.pageSize
	excess := b.footprint() - leftover

	if b.prev == nil {
		// The whole chain is gone; any sub-page remainder stays below the
		// break until the next allocation re-queries it
		h.head = nil
		h.tail = nil
	} else {
		b.prev.size += leftover
		b.prev.next = nil
		h.tail = b.prev
	}

	h.byAddr.Delete(b.payload())
	recycleBlock(b)

	if _, err := h.seg.Adjust(-excess); err != nil {
		h.logger.Debug("Heap::Free could not return pages to the segment",
			slog.Int("Excess", excess),
			slog.Any("Error", err),
		)
		return
	}

	h.logger.Debug("Heap::Free returned pages to the segment", slog.Int("Excess", excess))
}

// Clear instantly frees every allocation and returns the heap's entire
// footprint to the segment.
func (h *Heap) Clear() {
	if h.head == nil {
		return
	}

	base := h.head.offset
	brk := h.tail.offset + h.tail.footprint()

	for b := h.head; b != nil; {
		next := b.next
		h.byAddr.Delete(b.payload())
		recycleBlock(b)
		b = next
	}
	h.head = nil
	h.tail = nil
	h.allocCount = 0

	if _, err := h.seg.Adjust(base - brk); err != nil {
		h.logger.Debug("Heap::Clear could not return pages to the segment", slog.Any("Error", err))
	}
}

// Bytes returns the writable payload for a live allocation, or nil if addr
// does not map to one. The slice aliases segment memory and is invalidated by
// any later allocation that grows the break.
func (h *Heap) Bytes(addr Address) []byte {
	b, ok := h.byAddr.Get(addr)
	if !ok || b.free {
		return nil
	}
	return h.seg.Bytes(b.offset+HeaderSize, b.size)
}

// IsEmpty will return true if this heap has no blocks at all
func (h *Heap) IsEmpty() bool {
	return h.head == nil
}

// AllocationCount returns the number of live allocations: the number of
// successful Alloc calls minus the number of effective Free calls.
func (h *Heap) AllocationCount() int {
	return h.allocCount
}

// FreeRegionsCount returns the number of free blocks embedded in the chain.
// Adjacent free blocks are always coalesced, so each counted region is
// bounded by allocations or the ends of the heap.
func (h *Heap) FreeRegionsCount() int {
	var count int
	for b := h.head; b != nil; b = b.next {
		if b.free {
			count++
		}
	}
	return count
}

// SumFreeSize returns the number of payload bytes held in free blocks.
func (h *Heap) SumFreeSize() int {
	var sum int
	for b := h.head; b != nil; b = b.next {
		if b.free {
			sum += b.size
		}
	}
	return sum
}

// Base returns the offset of the lowest block header, or the current break
// when the heap is empty.
func (h *Heap) Base() (int, error) {
	if h.head != nil {
		return h.head.offset, nil
	}
	return h.seg.Adjust(0)
}

// Break returns the segment's current break offset.
func (h *Heap) Break() (int, error) {
	return h.seg.Adjust(0)
}

// stamp writes a corruption marker across a block's reserved header region.
// This no-ops unless the debug_brkheap build tag is present.
func (h *Heap) stamp(b *block) {
	if brkheap.DebugHeaderMarkers {
		brkheap.WriteHeaderMarker(h.seg.Bytes(b.offset, HeaderSize))
	}
}

// CheckCorruption returns nil if the corruption markers in every reserved
// header region following an allocation are intact. Markers are only written
// when brkheap is built with the debug_brkheap build tag, so this method
// reports nothing without it.
func (h *Heap) CheckCorruption() error {
	if !brkheap.DebugHeaderMarkers {
		return nil
	}

	for b := h.head; b != nil; b = b.next {
		if b.next == nil || b.free {
			continue
		}
		if !brkheap.ValidateHeaderMarker(h.seg.Bytes(b.next.offset, HeaderSize)) {
			return errors.Errorf("memory corruption detected after the allocation at address %d", b.payload())
		}
	}

	return nil
}
