package heap_test

import (
	"testing"

	"github.com/Jess-Ferguson/brkheap/heap"
	"github.com/stretchr/testify/require"
)

// Freeing three address-adjacent allocations must collapse them into a single
// free block spanning all three footprints, whatever the order of the frees.
func TestCoalesceOrderIndependent(t *testing.T) {
	orders := map[string][3]int{
		"MiddleFirst": {1, 0, 2},
		"Ascending":   {0, 1, 2},
		"Descending":  {2, 1, 0},
	}

	for name, order := range orders {
		t.Run(name, func(t *testing.T) {
			h, _ := newTestHeap(t)

			var addrs [3]heap.Address
			for i := range addrs {
				addr, err := h.Alloc(33)
				require.NoError(t, err)
				addrs[i] = addr
			}

			// The guard keeps the coalesced result off the tail so no pages are
			// trimmed back to the segment mid-test
			guard, err := h.Alloc(33)
			require.NoError(t, err)

			for _, index := range order {
				h.Free(addrs[index])
				require.NoError(t, h.Validate())
			}

			// 33 pads to 48; three 80-byte footprints merge into one free block
			// of 208 payload bytes at the heap base
			var found bool
			err = h.VisitAllBlocks(func(addr heap.Address, offset int, size int, free bool) error {
				if offset == 0 {
					require.True(t, free)
					require.Equal(t, 3*(48+heap.HeaderSize)-heap.HeaderSize, size)
					found = true
				}
				return nil
			})
			require.NoError(t, err)
			require.True(t, found)

			h.Free(guard)
			require.True(t, h.IsEmpty())
		})
	}
}

// The contract scenario: four allocations of fixed sizes, sentinel bytes
// written across each, freed out of order; the break must come back to within
// one page of where it started, with no pages permanently leaked.
func TestEndToEndBreakRestoration(t *testing.T) {
	h, seg := newTestHeap(t)

	initialBrk, err := seg.Adjust(0)
	require.NoError(t, err)

	allocSizes := []int{312, 4234, 40, 33333}
	addrs := make([]heap.Address, len(allocSizes))

	for i, size := range allocSizes {
		addr, err := h.Alloc(size)
		require.NoError(t, err)
		require.NotEqual(t, heap.NullAddress, addr)
		addrs[i] = addr
	}

	for i, addr := range addrs {
		payload := h.Bytes(addr)
		require.GreaterOrEqual(t, len(payload), allocSizes[i])
		for j := range payload {
			payload[j] = 'A'
		}
	}

	require.NoError(t, h.Validate())

	for _, index := range []int{1, 0, 3, 2} {
		h.Free(addrs[index])
		require.NoError(t, h.Validate())
	}

	finalBrk, err := seg.Adjust(0)
	require.NoError(t, err)

	leaked := (finalBrk - initialBrk) / testPageSize
	require.Zerof(t, leaked, "%d pages were not freed", leaked)
	require.True(t, h.IsEmpty())
}

// Allocating and freeing one fixed size in a loop must reach a steady state
// instead of growing the break monotonically.
func TestSteadyStateStability(t *testing.T) {
	h, seg := newTestHeap(t)

	addr, err := h.Alloc(1000)
	require.NoError(t, err)
	h.Free(addr)

	steadyBrk, err := seg.Adjust(0)
	require.NoError(t, err)

	for i := 0; i < 64; i++ {
		addr, err := h.Alloc(1000)
		require.NoError(t, err)
		h.Free(addr)

		brk, err := seg.Adjust(0)
		require.NoError(t, err)
		require.LessOrEqualf(t, brk, steadyBrk, "break grew on iteration %d", i)
	}

	require.NoError(t, h.Validate())
}

// Growth that reuses a free tail must fold the tail's capacity into the break
// arithmetic rather than leaving a gap or an extra block behind.
func TestFreeTailReusedOnGrowth(t *testing.T) {
	h, _ := newTestHeap(t)

	first, err := h.Alloc(100)
	require.NoError(t, err)

	// Larger than the trailing free block left by the first page, so the heap
	// must grow while reusing that block's capacity
	second, err := h.Alloc(8000)
	require.NoError(t, err)
	require.NoError(t, h.Validate())

	require.Equal(t, 2, h.AllocationCount())

	h.Free(second)
	require.NoError(t, h.Validate())
	h.Free(first)
	require.True(t, h.IsEmpty())
}
