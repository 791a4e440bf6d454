// Package store holds the ordered notification collection and unread counter.
// It is the system of record consumed by the host UI.
package store

import (
	"context"
	"encoding/json"
	"sync"

	"boxfeed/internal/notify"
	"boxfeed/internal/storage"
	logx "boxfeed/pkg/logx"
)

// Store keeps notifications newest-first. All operations are total:
// mutating an absent id is a no-op, never an error.
//
// Persistence is best-effort: the in-memory state is authoritative while
// running; write failures are logged and do not surface to callers.
type Store struct {
	mu     sync.Mutex
	items  []notify.Notification // newest-first
	index  map[string]int
	unread int

	backend storage.Store
	log     logx.Logger
}

func New(backend storage.Store, log logx.Logger) *Store {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Store{
		index:   map[string]int{},
		backend: backend,
		log:     log,
	}
}

// Restore loads previously persisted notifications.
// Call once before the pipeline starts evaluating.
func (s *Store) Restore(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}
	recs, err := s.backend.LoadNotifications(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = s.items[:0]
	s.unread = 0
	for _, r := range recs {
		n := fromRecord(r)
		s.items = append(s.items, n)
		if !n.Read {
			s.unread++
		}
	}
	s.reindexLocked()
	return nil
}

// Append prepends the notification and bumps the unread counter.
// A duplicate id is ignored; the processed set upstream makes that rare.
func (s *Store) Append(ctx context.Context, n notify.Notification) {
	s.mu.Lock()
	if _, ok := s.index[n.ID]; ok {
		s.mu.Unlock()
		return
	}
	s.items = append([]notify.Notification{n}, s.items...)
	s.reindexLocked()
	if !n.Read {
		s.unread++
	}
	s.mu.Unlock()

	if s.backend != nil {
		if err := s.backend.AppendNotification(ctx, toRecord(n)); err != nil {
			s.log.Debug("persist append failed", logx.String("id", n.ID), logx.Err(err))
		}
	}
}

// MarkRead flips one notification to read. No-op if absent or already read.
func (s *Store) MarkRead(ctx context.Context, id string) {
	s.mu.Lock()
	i, ok := s.index[id]
	if !ok || s.items[i].Read {
		s.mu.Unlock()
		return
	}
	s.items[i].Read = true
	s.unread--
	s.mu.Unlock()

	if s.backend != nil {
		if err := s.backend.SetRead(ctx, id, true); err != nil {
			s.log.Debug("persist mark-read failed", logx.String("id", id), logx.Err(err))
		}
	}
}

// MarkAllRead flips every notification to read.
func (s *Store) MarkAllRead(ctx context.Context) {
	s.mu.Lock()
	for i := range s.items {
		s.items[i].Read = true
	}
	s.unread = 0
	s.mu.Unlock()

	if s.backend != nil {
		if err := s.backend.MarkAllRead(ctx); err != nil {
			s.log.Debug("persist mark-all-read failed", logx.Err(err))
		}
	}
}

// Delete removes one notification. The unread counter drops only if the
// deleted item was unread. No-op if absent.
func (s *Store) Delete(ctx context.Context, id string) {
	s.mu.Lock()
	i, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	if !s.items[i].Read {
		s.unread--
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	s.reindexLocked()
	s.mu.Unlock()

	if s.backend != nil {
		if err := s.backend.DeleteNotification(ctx, id); err != nil {
			s.log.Debug("persist delete failed", logx.String("id", id), logx.Err(err))
		}
	}
}

// Get returns the notification with the given id.
func (s *Store) Get(id string) (notify.Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return notify.Notification{}, false
	}
	return s.items[i], true
}

// List returns a copy of all notifications, newest-first.
func (s *Store) List() []notify.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]notify.Notification, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of stored notifications.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Unread returns the current unread count.
func (s *Store) Unread() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

func (s *Store) reindexLocked() {
	s.index = make(map[string]int, len(s.items))
	for i, n := range s.items {
		s.index[n.ID] = i
	}
}

func toRecord(n notify.Notification) storage.NotificationRecord {
	var dataJSON string
	if len(n.Data) > 0 {
		if b, err := json.Marshal(n.Data); err == nil {
			dataJSON = string(b)
		}
	}
	return storage.NotificationRecord{
		ID:        n.ID,
		Title:     n.Title,
		Body:      n.Body,
		Category:  string(n.Category),
		Priority:  string(n.Priority),
		Timestamp: n.Timestamp,
		ShowToast: n.ShowToast,
		PlaySound: n.PlaySound,
		Read:      n.Read,
		DataJSON:  dataJSON,
	}
}

func fromRecord(r storage.NotificationRecord) notify.Notification {
	var data map[string]any
	if r.DataJSON != "" {
		_ = json.Unmarshal([]byte(r.DataJSON), &data)
	}
	return notify.Notification{
		ID:        r.ID,
		Title:     r.Title,
		Body:      r.Body,
		Category:  notify.Category(r.Category),
		Priority:  notify.Priority(r.Priority),
		Timestamp: r.Timestamp,
		ShowToast: r.ShowToast,
		PlaySound: r.PlaySound,
		Read:      r.Read,
		Data:      data,
	}
}
