// Package source provides live-event source implementations: an in-process
// memory source for hosts and tests, and a websocket source for a real
// server feed. Both keep the full ever-growing snapshot in arrival order.
package source

import (
	"sync"

	"boxfeed/internal/event"
)

// Memory is an in-process event source with settable connectivity.
type Memory struct {
	mu        sync.Mutex
	events    []event.LiveEvent
	connected bool
	onChange  func()
}

func NewMemory() *Memory {
	return &Memory{connected: true}
}

// OnChange registers a callback fired after every append or connectivity
// flip. Typically wired to the pipeline's Evaluate.
func (m *Memory) OnChange(fn func()) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// Append adds events to the snapshot tail.
func (m *Memory) Append(evs ...event.LiveEvent) {
	m.mu.Lock()
	m.events = append(m.events, evs...)
	fn := m.onChange
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// SetConnected flips the connection state.
func (m *Memory) SetConnected(v bool) {
	m.mu.Lock()
	changed := m.connected != v
	m.connected = v
	fn := m.onChange
	m.mu.Unlock()
	if changed && fn != nil {
		fn()
	}
}

func (m *Memory) Snapshot() []event.LiveEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]event.LiveEvent, len(m.events))
	copy(out, m.events)
	return out
}

func (m *Memory) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}
