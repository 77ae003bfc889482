package heap

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// PrintDetailedMap populates a json object with the heap's block chain and
// summary figures.
func (h *Heap) PrintDetailedMap(writer *jwriter.Writer) {
	obj := writer.Object()
	defer obj.End()

	var heapBytes, base int
	if h.head != nil {
		base = h.head.offset
		heapBytes = h.tail.offset + h.tail.footprint() - base
	}

	obj.Name("Base").Int(base)
	obj.Name("TotalBytes").Int(heapBytes)
	obj.Name("UnusedBytes").Int(h.SumFreeSize())
	obj.Name("Allocations").Int(h.allocCount)
	obj.Name("FreeRegions").Int(h.FreeRegionsCount())

	arr := obj.Name("Blocks").Array()
	defer arr.End()

	_ = h.VisitAllBlocks(
		func(addr Address, offset int, size int, free bool) error {
			blockObj := arr.Object()
			defer blockObj.End()

			blockObj.Name("Offset").Int(offset)
			blockObj.Name("Address").Int(int(addr))
			blockObj.Name("Size").Int(size)
			blockObj.Name("Free").Bool(free)

			return nil
		})
}

// BuildStatsString returns the detailed map as a JSON string.
func (h *Heap) BuildStatsString() (string, error) {
	writer := jwriter.NewWriter()
	h.PrintDetailedMap(&writer)

	if err := writer.Error(); err != nil {
		return "", err
	}

	return string(writer.Bytes()), nil
}
