package heap_test

import (
	"testing"

	"github.com/Jess-Ferguson/brkheap/heap"
	mock_heap "github.com/Jess-Ferguson/brkheap/heap/mocks"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestAllocBreakQueryFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	seg := mock_heap.NewMockSegment(ctrl)

	h, err := heap.New(nil, seg, heap.Options{PageSize: testPageSize})
	require.NoError(t, err)

	seg.EXPECT().Adjust(0).Return(0, errors.New("segment unavailable"))

	addr, err := h.Alloc(100)
	require.ErrorIs(t, err, heap.ErrOutOfMemory)
	require.Equal(t, heap.NullAddress, addr)
	require.True(t, h.IsEmpty())
}

func TestAllocGrowthFailureLeavesHeapEmpty(t *testing.T) {
	ctrl := gomock.NewController(t)
	seg := mock_heap.NewMockSegment(ctrl)

	h, err := heap.New(nil, seg, heap.Options{PageSize: testPageSize})
	require.NoError(t, err)

	gomock.InOrder(
		seg.EXPECT().Adjust(0).Return(0, nil),
		seg.EXPECT().Adjust(testPageSize).Return(0, errors.New("segment exhausted")),
	)

	addr, err := h.Alloc(100)
	require.ErrorIs(t, err, heap.ErrOutOfMemory)
	require.Equal(t, heap.NullAddress, addr)
	require.True(t, h.IsEmpty())
	require.Equal(t, 0, h.AllocationCount())
}

// A failed growth must not disturb the existing block chain: the prior
// allocation stays live and the heap still validates cleanly.
func TestAllocGrowthFailureLeavesChainUntouched(t *testing.T) {
	ctrl := gomock.NewController(t)
	seg := mock_heap.NewMockSegment(ctrl)

	h, err := heap.New(nil, seg, heap.Options{PageSize: testPageSize})
	require.NoError(t, err)

	// 100 pads to 112; one page is claimed and a free tail of 3920 payload
	// bytes is left behind. 100000 pads to 100016; with the 3952-byte tail
	// footprint folded in, the growth request is 98304 bytes.
	gomock.InOrder(
		seg.EXPECT().Adjust(0).Return(0, nil),
		seg.EXPECT().Adjust(testPageSize).Return(0, nil),
		seg.EXPECT().Adjust(98304).Return(0, errors.New("segment exhausted")),
		seg.EXPECT().Adjust(0).Return(testPageSize, nil),
	)

	first, err := h.Alloc(100)
	require.NoError(t, err)

	addr, err := h.Alloc(100000)
	require.ErrorIs(t, err, heap.ErrOutOfMemory)
	require.Equal(t, heap.NullAddress, addr)

	require.Equal(t, 1, h.AllocationCount())
	require.Equal(t, 1, h.FreeRegionsCount())
	require.Equal(t, heap.Address(heap.HeaderSize), first)
	require.NoError(t, h.Validate())
}
