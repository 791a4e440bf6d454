package pipeline

import (
	"sort"
	"sync"
	"time"
)

// ProcessedSet is the idempotence ledger of event ids already handled.
//
// An id is recorded only when an event was actually processed (accepted or
// terminally dropped), never when it was merely seen behind a hard gate.
// Within its bounds the set is monotonic: once marked, an id is never
// reprocessed.
//
// Bounds are optional. MaxEntries caps the ledger size, MaxAge expires
// entries by marked-at time; zero disables either bound. Eviction removes
// the oldest-marked ids first. Either bound reopens the door to reprocessing
// evicted events if the source still re-delivers them, which is why both
// default to off.
type ProcessedSet struct {
	mu  sync.Mutex
	ids map[string]int64 // id -> marked-at unix milli

	maxEntries int
	maxAge     time.Duration
}

func NewProcessedSet(maxEntries int, maxAge time.Duration) *ProcessedSet {
	if maxEntries < 0 {
		maxEntries = 0
	}
	if maxAge < 0 {
		maxAge = 0
	}
	return &ProcessedSet{
		ids:        map[string]int64{},
		maxEntries: maxEntries,
		maxAge:     maxAge,
	}
}

// Has reports whether the id was already processed.
func (p *ProcessedSet) Has(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.ids[id]
	return ok
}

// Mark records the id as processed at the given time.
func (p *ProcessedSet) Mark(id string, at time.Time) {
	if id == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.ids[id]; ok {
		return
	}
	p.ids[id] = at.UnixMilli()
}

// Len returns the ledger size.
func (p *ProcessedSet) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.ids)
}

// LoadFrom merges previously persisted entries (id -> marked-at milli).
func (p *ProcessedSet) LoadFrom(m map[string]int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, at := range m {
		if id == "" {
			continue
		}
		p.ids[id] = at
	}
}

// Snapshot returns a copy of the ledger.
func (p *ProcessedSet) Snapshot() map[string]int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]int64, len(p.ids))
	for k, v := range p.ids {
		out[k] = v
	}
	return out
}

// Prune applies the configured bounds and returns the evicted ids.
// With both bounds disabled it returns nil and removes nothing.
func (p *ProcessedSet) Prune(now time.Time) []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var evicted []string

	if p.maxAge > 0 {
		cutoff := now.Add(-p.maxAge).UnixMilli()
		for id, at := range p.ids {
			if at < cutoff {
				delete(p.ids, id)
				evicted = append(evicted, id)
			}
		}
	}

	if p.maxEntries > 0 && len(p.ids) > p.maxEntries {
		type entry struct {
			id string
			at int64
		}
		all := make([]entry, 0, len(p.ids))
		for id, at := range p.ids {
			all = append(all, entry{id, at})
		}
		sort.Slice(all, func(i, j int) bool { return all[i].at < all[j].at })
		for _, e := range all[:len(p.ids)-p.maxEntries] {
			delete(p.ids, e.id)
			evicted = append(evicted, e.id)
		}
	}

	return evicted
}
