package stats

import (
	"testing"
	"time"

	"boxfeed/internal/event"
)

func TestComputeWindow(t *testing.T) {
	now := time.Now()
	history := []event.LiveEvent{
		{ID: "old", Type: event.TypeNewBox, Timestamp: now.Add(-25 * time.Hour).UnixMilli()},
		{ID: "edge", Type: event.TypeNewBox, Timestamp: now.Add(-23 * time.Hour).UnixMilli()},
		{ID: "recent", Type: event.TypeOrderStatusChanged, Timestamp: now.Add(-time.Minute).UnixMilli()},
		{ID: "future", Type: event.TypeNewBox, Timestamp: now.Add(time.Hour).UnixMilli()},
	}

	st := Compute(history, now, 2, 7)
	if st.Total != 2 {
		t.Fatalf("total = %d, want 2", st.Total)
	}
	if st.ByType[event.TypeNewBox] != 1 || st.ByType[event.TypeOrderStatusChanged] != 1 {
		t.Fatalf("by type = %v", st.ByType)
	}
	if st.Pending != 2 || st.Processed != 7 {
		t.Fatalf("pending=%d processed=%d", st.Pending, st.Processed)
	}
}

func TestComputeEmptyHistory(t *testing.T) {
	st := Compute(nil, time.Now(), 0, 0)
	if st.Total != 0 || len(st.ByType) != 0 {
		t.Fatalf("stats over empty history = %+v", st)
	}
	if st.ByType == nil {
		t.Fatalf("ByType must be allocated")
	}
}

func TestComputeIsPure(t *testing.T) {
	now := time.Now()
	history := []event.LiveEvent{
		{ID: "e1", Type: event.TypeNewBox, Timestamp: now.UnixMilli()},
	}
	a := Compute(history, now, 1, 1)
	b := Compute(history, now, 1, 1)
	if a.Total != b.Total || a.ByType[event.TypeNewBox] != b.ByType[event.TypeNewBox] {
		t.Fatalf("repeated computation diverged: %+v vs %+v", a, b)
	}
}
