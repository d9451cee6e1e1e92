// Package correlate groups normalized records into related sets:
// by shared IDs, by temporal proximity, or by session identity.
package correlate

import (
	"container/heap"
	"iter"

	"unilog/pkg/types"
)

type mergeItem struct {
	record      *types.Record
	sourceIndex int
	next        func() (*types.Record, bool)
	stop        func()
}

type mergeHeap []*mergeItem

func (h mergeHeap) Len() int { return len(h) }

func (h mergeHeap) Less(i, j int) bool {
	a, b := h[i].record.Timestamp, h[j].record.Timestamp
	switch {
	case a == nil && b == nil:
		return h[i].sourceIndex < h[j].sourceIndex
	case a == nil:
		// records without timestamps sort first, preserving arrival order
		return true
	case b == nil:
		return false
	case a.Equal(*b):
		return h[i].sourceIndex < h[j].sourceIndex
	default:
		return a.Before(*b)
	}
}

func (h mergeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *mergeHeap) Push(x any) { *h = append(*h, x.(*mergeItem)) }

func (h *mergeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// Merge interleaves record streams into one stream ordered by
// timestamp, breaking ties by source position. Abandoning the merged
// stream releases every underlying source.
func Merge(sources []iter.Seq[*types.Record]) iter.Seq[*types.Record] {
	return func(yield func(*types.Record) bool) {
		h := make(mergeHeap, 0, len(sources))
		defer func() {
			for _, item := range h {
				item.stop()
			}
		}()

		for i, source := range sources {
			next, stop := iter.Pull(source)
			record, ok := next()
			if !ok {
				stop()
				continue
			}
			h = append(h, &mergeItem{record: record, sourceIndex: i, next: next, stop: stop})
		}
		heap.Init(&h)

		for h.Len() > 0 {
			item := h[0]
			if !yield(item.record) {
				return
			}
			record, ok := item.next()
			if !ok {
				item.stop()
				heap.Pop(&h)
				continue
			}
			item.record = record
			heap.Fix(&h, 0)
		}
	}
}
