package heap

import (
	"github.com/pkg/errors"
)

// Validate performs internal consistency checks on the block chain. When the
// heap is functioning correctly it should not be possible for this method to
// return an error, but it may assist in diagnosing issues. The full chain and
// the address index are walked, so the cost is linear in the number of blocks.
func (h *Heap) Validate() error {
	if h.head == nil {
		if h.tail != nil {
			return errors.New("the chain has no head but still has a tail")
		}
		if h.allocCount != 0 {
			return errors.Errorf("the chain is empty but the heap reports %d live allocations", h.allocCount)
		}
		if h.byAddr.Count() != 0 {
			return errors.Errorf("the chain is empty but %d addresses are still indexed", h.byAddr.Count())
		}
		return nil
	}

	if h.tail == nil {
		return errors.New("the chain has a head but no tail")
	}
	if h.head.prev != nil {
		return errors.New("the head block must not have a previous block")
	}
	if h.tail.next != nil {
		return errors.New("the tail block must not have a next block")
	}

	var allocCount, chainCount int
	prevFree := false
	nextOffset := h.head.offset

	for b := h.head; b != nil; b = b.next {
		if b.offset != nextOffset {
			return errors.Errorf("block at offset %d does not begin at the previous block's end offset %d", b.offset, nextOffset)
		}
		if b.size <= 0 {
			return errors.Errorf("block at offset %d has a payload size of %d", b.offset, b.size)
		}
		if b.footprint()%int(h.alignment) != 0 {
			return errors.Errorf("block at offset %d has a footprint of %d, which is not a multiple of the alignment %d", b.offset, b.footprint(), h.alignment)
		}
		if b.free && prevFree {
			return errors.Errorf("blocks at offsets %d and %d are chain-adjacent and both free", b.prev.offset, b.offset)
		}
		if b.prev != nil && b.prev.next != b {
			return errors.Errorf("block at offset %d has a previous block, but the reverse reference is broken", b.offset)
		}
		if b.next == nil && b != h.tail {
			return errors.Errorf("block at offset %d ends the chain but is not the tail", b.offset)
		}

		indexed, ok := h.byAddr.Get(b.payload())
		if !ok {
			return errors.Errorf("block at offset %d is not present in the address index", b.offset)
		}
		if indexed != b {
			return errors.Errorf("the address index maps address %d to the wrong block record", b.payload())
		}

		if !b.free {
			allocCount++
		}
		chainCount++
		prevFree = b.free
		nextOffset = b.offset + b.footprint()
	}

	if allocCount != h.allocCount {
		return errors.Errorf("the heap reports %d live allocations, but the chain holds %d taken blocks", h.allocCount, allocCount)
	}
	if h.byAddr.Count() != chainCount {
		return errors.Errorf("the chain holds %d blocks, but %d addresses are indexed", chainCount, h.byAddr.Count())
	}

	brk, err := h.seg.Adjust(0)
	if err != nil {
		return errors.Wrap(err, "could not query the segment break")
	}
	if nextOffset != brk {
		return errors.Errorf("the tail block ends at offset %d, but the segment break is at %d", nextOffset, brk)
	}

	return nil
}
