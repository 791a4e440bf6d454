package toast

import (
	"testing"

	"boxfeed/internal/notify"
)

func n(id string) notify.Notification {
	return notify.Notification{ID: id, ShowToast: true}
}

func TestQueueFIFO(t *testing.T) {
	q := NewQueue()
	q.Enqueue(n("a"))
	q.Enqueue(n("b"))
	q.Enqueue(n("c"))

	for _, want := range []string{"a", "b", "c"} {
		got, ok := q.DequeueNext()
		if !ok || got.ID != want {
			t.Fatalf("dequeue = %q (ok=%v), want %q", got.ID, ok, want)
		}
	}
	if _, ok := q.DequeueNext(); ok {
		t.Fatalf("dequeue on empty queue returned ok")
	}
}

func TestQueueAtMostOncePerID(t *testing.T) {
	q := NewQueue()
	q.Enqueue(n("a"))
	q.Enqueue(n("a"))
	if q.Len() != 1 {
		t.Fatalf("len = %d, want 1", q.Len())
	}

	// Even after delivery the id never queues again.
	q.DequeueNext()
	q.Enqueue(n("a"))
	if q.Len() != 0 {
		t.Fatalf("delivered id re-queued")
	}
}

func TestQueueClearKeepsSeen(t *testing.T) {
	q := NewQueue()
	q.Enqueue(n("a"))
	q.Enqueue(n("b"))
	q.Clear()

	if q.Pending() {
		t.Fatalf("queue not empty after clear")
	}
	q.Enqueue(n("a"))
	if q.Len() != 0 {
		t.Fatalf("cleared id re-queued")
	}
	q.Enqueue(n("c"))
	if q.Len() != 1 {
		t.Fatalf("new id rejected after clear")
	}
}

func TestQueueSnapshotIsACopy(t *testing.T) {
	q := NewQueue()
	q.Enqueue(n("a"))
	snap := q.Snapshot()
	snap[0].ID = "mutated"
	if got, _ := q.DequeueNext(); got.ID != "a" {
		t.Fatalf("snapshot aliases queue storage")
	}
}
