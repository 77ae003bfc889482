package heap

import (
	"github.com/Jess-Ferguson/brkheap"
)

// VisitAllBlocks will call the provided callback once for each allocation and
// free block in the chain, in ascending address order. This is intended for
// diagnostic purposes.
func (h *Heap) VisitAllBlocks(handleBlock func(addr Address, offset int, size int, free bool) error) error {
	for b := h.head; b != nil; b = b.next {
		err := handleBlock(b.payload(), b.offset, b.size, b.free)
		if err != nil {
			return err
		}
	}

	return nil
}

// AddDetailedStatistics sums this heap's allocation statistics into the
// statistics currently present in the provided brkheap.DetailedStatistics
// object.
func (h *Heap) AddDetailedStatistics(stats *brkheap.DetailedStatistics) {
	stats.HeapCount++
	if h.head != nil {
		stats.HeapBytes += h.tail.offset + h.tail.footprint() - h.head.offset
	}

	_ = h.VisitAllBlocks(
		func(addr Address, offset int, size int, free bool) error {
			if free {
				stats.AddFreeRange(size)
			} else {
				stats.AddAllocation(size)
			}

			return nil
		})
}

// AddStatistics sums this heap's allocation statistics into the statistics
// currently present in the provided brkheap.Statistics object.
func (h *Heap) AddStatistics(stats *brkheap.Statistics) {
	stats.HeapCount++
	stats.AllocationCount += h.allocCount
	if h.head != nil {
		stats.HeapBytes += h.tail.offset + h.tail.footprint() - h.head.offset
	}

	_ = h.VisitAllBlocks(
		func(addr Address, offset int, size int, free bool) error {
			if !free {
				stats.AllocationBytes += size
			}

			return nil
		})
}
