// Package toast holds the bounded delivery queue of notifications flagged
// for immediate visual interruption.
package toast

import (
	"sync"

	"boxfeed/internal/notify"
)

// Queue is a FIFO of notification copies awaiting toast delivery.
//
// The queue holds copies, not ownership: deleting a notification from the
// store does not retract an already-queued toast. A given notification id
// enters the queue at most once for the lifetime of the queue.
type Queue struct {
	mu    sync.Mutex
	items []notify.Notification
	seen  map[string]struct{}
}

func NewQueue() *Queue {
	return &Queue{seen: map[string]struct{}{}}
}

// Enqueue appends to the tail. A second enqueue of the same id is ignored.
func (q *Queue) Enqueue(n notify.Notification) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.seen[n.ID]; ok {
		return
	}
	q.seen[n.ID] = struct{}{}
	q.items = append(q.items, n)
}

// DequeueNext removes and returns the head, or (zero, false) when empty.
func (q *Queue) DequeueNext() (notify.Notification, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return notify.Notification{}, false
	}
	head := q.items[0]
	q.items = q.items[1:]
	return head, true
}

// Clear empties the queue. It does not touch the notification store and it
// does not forget which ids were already queued.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
}

// Len returns the number of pending toasts.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Pending reports whether any toast awaits delivery.
func (q *Queue) Pending() bool { return q.Len() > 0 }

// Snapshot returns a copy of the pending toasts in delivery order.
func (q *Queue) Snapshot() []notify.Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]notify.Notification, len(q.items))
	copy(out, q.items)
	return out
}
