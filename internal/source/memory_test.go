package source

import (
	"testing"

	"boxfeed/internal/event"
)

func TestMemoryAppendFiresOnChange(t *testing.T) {
	m := NewMemory()
	fired := 0
	m.OnChange(func() { fired++ })

	m.Append(event.LiveEvent{ID: "e1", Type: event.TypeNewBox})
	m.Append(event.LiveEvent{ID: "e2", Type: event.TypeNewBox}, event.LiveEvent{ID: "e3", Type: event.TypeNewBox})

	if fired != 2 {
		t.Fatalf("onChange fired %d times, want 2", fired)
	}
	if got := m.Snapshot(); len(got) != 3 || got[0].ID != "e1" {
		t.Fatalf("snapshot = %v", got)
	}
}

func TestMemoryConnectivity(t *testing.T) {
	m := NewMemory()
	if !m.Connected() {
		t.Fatalf("new source must start connected")
	}
	fired := 0
	m.OnChange(func() { fired++ })

	m.SetConnected(false)
	m.SetConnected(false) // no change, no callback
	m.SetConnected(true)

	if fired != 2 {
		t.Fatalf("onChange fired %d times, want 2", fired)
	}
}

func TestMemorySnapshotIsACopy(t *testing.T) {
	m := NewMemory()
	m.Append(event.LiveEvent{ID: "e1", Type: event.TypeNewBox})
	snap := m.Snapshot()
	snap[0].ID = "mutated"
	if got := m.Snapshot(); got[0].ID != "e1" {
		t.Fatalf("snapshot aliases internal storage")
	}
}
