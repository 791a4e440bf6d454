// Package pipeline turns the raw live-event snapshot into stored
// notifications, queued toasts and fired side effects.
//
// Evaluation re-scans the entire current snapshot every time and relies on
// the processed set to skip prior work. Re-running an evaluation on an
// unchanged snapshot therefore produces zero additional effects.
package pipeline

import (
	"context"
	"sync"
	"time"

	"boxfeed/internal/classify"
	"boxfeed/internal/effects"
	"boxfeed/internal/event"
	"boxfeed/internal/eventbus"
	"boxfeed/internal/notify"
	"boxfeed/internal/stats"
	"boxfeed/internal/storage"
	"boxfeed/internal/store"
	"boxfeed/internal/toast"
	logx "boxfeed/pkg/logx"
)

// Drop reasons carried on bus signals and counters.
const (
	ReasonUnknownType      = "unknown_type"
	ReasonCategoryDisabled = "category_disabled"
	ReasonFiltered         = "filtered"
	ReasonDisconnected     = "disconnected"
	ReasonDisabled         = "disabled"
)

// SettingsProvider yields the current user notification settings.
// A nil provider is treated as "all disabled".
type SettingsProvider interface {
	Current() notify.Settings
}

// SettingsFunc adapts a function to SettingsProvider.
type SettingsFunc func() notify.Settings

func (f SettingsFunc) Current() notify.Settings { return f() }

// Options is the construction-time filtering configuration.
type Options struct {
	EnableToasts       bool
	EnableBadgeUpdates bool
	EnableSounds       bool

	// FilterTypes is an explicit event-type allow-list.
	// Empty means "accept all known types".
	FilterTypes []string

	// Processed-set bounds; zero disables either one.
	ProcessedMaxEntries int
	ProcessedMaxAge     time.Duration

	SoundRatePerSec int
}

// Counters tallies event fates across all evaluations.
type Counters struct {
	Accepted        int
	DroppedUnknown  int
	DroppedCategory int
	DroppedFiltered int
}

// Service is the live-event-to-notification pipeline.
//
// Evaluations are serialized internally; the store and queue have no other
// writer. The host may call the read/delete commands from its own goroutine.
type Service struct {
	opts     Options
	source   event.Source
	settings SettingsProvider

	store      *store.Store
	queue      *toast.Queue
	dispatcher *effects.Dispatcher
	processed  *ProcessedSet

	backend storage.Store // nil when persistence is disabled
	bus     eventbus.Bus
	log     logx.Logger

	filter map[string]struct{} // nil when FilterTypes is empty

	evalMu   sync.Mutex
	counters Counters
}

func New(opts Options, source event.Source, settings SettingsProvider, st *store.Store, queue *toast.Queue, dispatcher *effects.Dispatcher, backend storage.Store, bus eventbus.Bus, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}

	var filter map[string]struct{}
	if len(opts.FilterTypes) > 0 {
		filter = make(map[string]struct{}, len(opts.FilterTypes))
		for _, t := range opts.FilterTypes {
			if t != "" {
				filter[t] = struct{}{}
			}
		}
	}

	return &Service{
		opts:       opts,
		source:     source,
		settings:   settings,
		store:      st,
		queue:      queue,
		dispatcher: dispatcher,
		processed:  NewProcessedSet(opts.ProcessedMaxEntries, opts.ProcessedMaxAge),
		backend:    backend,
		bus:        bus,
		log:        log,
		filter:     filter,
	}
}

// Restore loads persisted notifications and processed ids.
// Call once before the first Evaluate.
func (s *Service) Restore(ctx context.Context) error {
	if err := s.store.Restore(ctx); err != nil {
		return err
	}
	if s.backend != nil {
		m, err := s.backend.LoadProcessed(ctx)
		if err != nil {
			return err
		}
		s.processed.LoadFrom(m)
	}
	return nil
}

func (s *Service) currentSettings() notify.Settings {
	if s.settings == nil {
		return notify.Settings{}
	}
	return s.settings.Current()
}

// Evaluate runs one full pass over the current snapshot.
//
// Hard gates (disconnected, globally disabled) return without marking
// anything processed: those events stay pending and are retried on the next
// evaluation. Every other visited event ends up in the processed set exactly
// once, accepted or dropped.
func (s *Service) Evaluate(ctx context.Context) {
	s.evalMu.Lock()
	defer s.evalMu.Unlock()

	snapshot := s.source.Snapshot()
	settings := s.currentSettings()

	if !s.source.Connected() || !settings.Enabled {
		reason := ReasonDisconnected
		if s.source.Connected() {
			reason = ReasonDisabled
		}
		pending := 0
		for _, ev := range snapshot {
			if !s.processed.Has(ev.ID) {
				pending++
			}
		}
		s.publish(eventbus.TopicGated, eventbus.SignalData{Reason: reason})
		s.publish(eventbus.TopicEvaluated, eventbus.EvalData{Scanned: len(snapshot), Pending: pending})
		s.log.Debug("evaluation gated", logx.String("reason", reason), logx.Int("pending", pending))
		return
	}

	summary := eventbus.EvalData{Scanned: len(snapshot)}
	accepted := 0

	for _, ev := range snapshot {
		if s.processed.Has(ev.ID) {
			continue
		}

		if s.filter != nil {
			if _, ok := s.filter[ev.Type]; !ok {
				s.drop(ctx, ev, ReasonFiltered)
				summary.Dropped++
				continue
			}
		}

		n, ok := classify.Classify(ev)
		if !ok {
			s.drop(ctx, ev, ReasonUnknownType)
			summary.Dropped++
			continue
		}

		if !settings.CategoryEnabled(n.Category) {
			s.drop(ctx, ev, ReasonCategoryDisabled)
			summary.Dropped++
			continue
		}

		s.accept(ctx, ev, n, settings)
		summary.Accepted++
		accepted++
	}

	if accepted > 0 {
		s.refreshBadge()
	}

	s.publish(eventbus.TopicEvaluated, summary)
	if summary.Accepted > 0 || summary.Dropped > 0 {
		s.log.Debug("evaluation done",
			logx.Int("scanned", summary.Scanned),
			logx.Int("accepted", summary.Accepted),
			logx.Int("dropped", summary.Dropped),
		)
	}
}

func (s *Service) drop(ctx context.Context, ev event.LiveEvent, reason string) {
	s.mark(ctx, ev.ID)
	switch reason {
	case ReasonUnknownType:
		s.counters.DroppedUnknown++
	case ReasonCategoryDisabled:
		s.counters.DroppedCategory++
	case ReasonFiltered:
		s.counters.DroppedFiltered++
	}
	s.publish(eventbus.TopicDropped, eventbus.SignalData{EventID: ev.ID, EventType: ev.Type, Reason: reason})
}

func (s *Service) accept(ctx context.Context, ev event.LiveEvent, n notify.Notification, settings notify.Settings) {
	s.mark(ctx, ev.ID)
	s.counters.Accepted++

	s.store.Append(ctx, n)
	s.publish(eventbus.TopicAccepted, eventbus.SignalData{EventID: ev.ID, EventType: ev.Type})

	if n.ShowToast && s.opts.EnableToasts {
		s.queue.Enqueue(n)
		s.publish(eventbus.TopicToastQueued, eventbus.SignalData{EventID: ev.ID, EventType: ev.Type})
	}

	s.dispatcher.PlaySound(n, settings)
}

func (s *Service) mark(ctx context.Context, id string) {
	now := time.Now()
	s.processed.Mark(id, now)
	if s.backend != nil {
		if err := s.backend.PutProcessed(ctx, id, now); err != nil {
			s.log.Debug("persist processed failed", logx.String("id", id), logx.Err(err))
		}
	}
}

func (s *Service) refreshBadge() {
	unread := s.store.Unread()
	s.dispatcher.UpdateBadge(unread)
	s.publish(eventbus.TopicBadge, unread)
}

func (s *Service) publish(topic string, data any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventbus.Event{Type: topic, Data: data})
}

// ---- host-facing surface ----

// GetToastQueue returns the pending toasts in delivery order.
func (s *Service) GetToastQueue() []notify.Notification { return s.queue.Snapshot() }

// HasPending reports whether any toast awaits delivery.
func (s *Service) HasPending() bool { return s.queue.Pending() }

// ShowNextToast pops the next toast, or (zero, false) when the queue is empty.
func (s *Service) ShowNextToast() (notify.Notification, bool) { return s.queue.DequeueNext() }

// ClearToastQueue empties the toast queue without touching the store.
func (s *Service) ClearToastQueue() { s.queue.Clear() }

// HandleNotificationTap marks the notification read and routes it.
func (s *Service) HandleNotificationTap(ctx context.Context, n notify.Notification) {
	s.store.MarkRead(ctx, n.ID)
	s.refreshBadge()
	s.dispatcher.HandleTap(n)
}

// MarkRead, MarkAllRead and Delete forward to the store and keep the badge
// count in sync.
func (s *Service) MarkRead(ctx context.Context, id string) {
	s.store.MarkRead(ctx, id)
	s.refreshBadge()
}

func (s *Service) MarkAllRead(ctx context.Context) {
	s.store.MarkAllRead(ctx)
	s.refreshBadge()
}

func (s *Service) Delete(ctx context.Context, id string) {
	s.store.Delete(ctx, id)
	s.refreshBadge()
}

// Notifications returns the stored notifications, newest-first.
func (s *Service) Notifications() []notify.Notification { return s.store.List() }

// Unread returns the current unread count.
func (s *Service) Unread() int { return s.store.Unread() }

// Stats computes the rolling statistics over the current snapshot.
func (s *Service) Stats() stats.Stats {
	return stats.Compute(s.source.Snapshot(), time.Now(), s.queue.Len(), s.processed.Len())
}

// Counters returns a copy of the lifetime fate counters.
func (s *Service) Counters() Counters {
	s.evalMu.Lock()
	defer s.evalMu.Unlock()
	return s.counters
}

// PruneProcessed applies the processed-set bounds and removes evicted ids
// from storage. Returns how many ids were evicted.
func (s *Service) PruneProcessed(ctx context.Context, now time.Time) int {
	evicted := s.processed.Prune(now)
	if len(evicted) > 0 && s.backend != nil {
		if err := s.backend.DeleteProcessed(ctx, evicted); err != nil {
			s.log.Debug("prune processed persist failed", logx.Err(err))
		}
	}
	return len(evicted)
}
