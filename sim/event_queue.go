package sim

import (
	"container/heap"
	"fmt"
)

// EventQueue is a binary min-heap over (time, insertion sequence),
// giving O(log n) schedule/pop and a stable FIFO tie-break for events
// that share a scheduled time.
type EventQueue struct {
	items  eventHeap
	nextSeq uint64
}

// NewEventQueue returns an empty, ready-to-use EventQueue.
func NewEventQueue() *EventQueue {
	q := &EventQueue{items: make(eventHeap, 0)}
	heap.Init(&q.items)
	return q
}

// Schedule inserts ev as is; it does not stamp an insertion sequence, so
// ev must already carry one (the *Engine.schedule wrapper stamps it via
// NextSeq). Returns ErrScheduleInPast if ev.Time() < clock.
func (q *EventQueue) Schedule(ev Event, clock float64) error {
	if ev.Time() < clock {
		return fmt.Errorf("%w: event time %.6g < clock %.6g", ErrScheduleInPast, ev.Time(), clock)
	}
	heap.Push(&q.items, ev)
	return nil
}

// NextSeq returns the next unused insertion sequence number and advances
// the internal counter. Engine.schedule stamps every event with it right
// before pushing, so ties are broken by scheduling order.
func (q *EventQueue) NextSeq() uint64 {
	q.nextSeq++
	return q.nextSeq
}

// PopMin removes and returns the event with the smallest time, breaking
// ties by earliest insertion sequence. Returns nil if the queue is empty.
func (q *EventQueue) PopMin() Event {
	if q.items.Len() == 0 {
		return nil
	}
	return heap.Pop(&q.items).(Event)
}

// Peek returns the next event without removing it, or nil if empty.
func (q *EventQueue) Peek() Event {
	if q.items.Len() == 0 {
		return nil
	}
	return q.items[0]
}

// IsEmpty reports whether the queue has no pending events.
func (q *EventQueue) IsEmpty() bool { return q.items.Len() == 0 }

// Size returns the number of pending events.
func (q *EventQueue) Size() int { return q.items.Len() }

// Clear empties the queue and resets the insertion-sequence counter,
// matching the "reset at replication start" lifecycle in the data model.
func (q *EventQueue) Clear() {
	q.items = make(eventHeap, 0)
	q.nextSeq = 0
}

// eventHeap implements container/heap.Interface for []Event, ordered by
// (time, seq).
type eventHeap []Event

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].Time() != h[j].Time() {
		return h[i].Time() < h[j].Time()
	}
	return h[i].Seq() < h[j].Seq()
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(Event))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
