package notify

import (
	"container/heap"

	"github.com/roach88/ritual/internal/model"
)

// pendingHeap implements container/heap.Interface over registrations,
// earliest fire time first. Ties break on id so pops are deterministic.
type pendingHeap []model.Registered

func (h pendingHeap) Len() int { return len(h) }
func (h pendingHeap) Less(i, j int) bool {
	if !h[i].At.Equal(h[j].At) {
		return h[i].At.Before(h[j].At)
	}
	return h[i].ID < h[j].ID
}
func (h pendingHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *pendingHeap) Push(x any) {
	*h = append(*h, x.(model.Registered))
}

func (h *pendingHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// newPendingHeap builds a heap from items in O(n).
func newPendingHeap(items []model.Registered) *pendingHeap {
	h := pendingHeap(items)
	heap.Init(&h)
	return &h
}

// popDue removes the earliest registration.
// Panics if the heap is empty.
func popDue(h *pendingHeap) model.Registered {
	return heap.Pop(h).(model.Registered)
}
