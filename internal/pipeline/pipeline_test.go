package pipeline

import (
	"context"
	"testing"
	"time"

	"boxfeed/internal/effects"
	"boxfeed/internal/event"
	"boxfeed/internal/notify"
	"boxfeed/internal/source"
	"boxfeed/internal/store"
	"boxfeed/internal/toast"
	logx "boxfeed/pkg/logx"
)

type recordedSinks struct {
	sounds []string
	badges []int
	routes []string
}

func (r *recordedSinks) Play(id string)       { r.sounds = append(r.sounds, id) }
func (r *recordedSinks) SetCount(n int)       { r.badges = append(r.badges, n) }
func (r *recordedSinks) Route(dest, p string) { r.routes = append(r.routes, dest+":"+p) }

type harness struct {
	src      *source.Memory
	settings notify.Settings
	sinks    *recordedSinks
	pipe     *Service
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	if opts.SoundRatePerSec == 0 {
		opts.SoundRatePerSec = 1000
	}
	opts.EnableToasts = true
	opts.EnableBadgeUpdates = true
	opts.EnableSounds = true

	h := &harness{
		src:      source.NewMemory(),
		settings: notify.DefaultSettings(),
		sinks:    &recordedSinks{},
	}
	h.src.SetConnected(true)
	disp := effects.NewDispatcher(effects.Config{
		EnableSounds:    true,
		EnableBadges:    true,
		SoundRatePerSec: opts.SoundRatePerSec,
	}, h.sinks, h.sinks, h.sinks, logx.Nop())
	h.pipe = New(opts, h.src, SettingsFunc(func() notify.Settings { return h.settings }),
		store.New(nil, logx.Nop()), toast.NewQueue(), disp, nil, nil, logx.Nop())
	return h
}

func ev(id, typ string, data map[string]any) event.LiveEvent {
	return event.LiveEvent{ID: id, Type: typ, Data: data, Timestamp: time.Now().UnixMilli()}
}

func TestEvaluateAcceptsOrderEvent(t *testing.T) {
	h := newHarness(t, Options{})
	h.src.Append(ev("evt_1", event.TypeOrderStatusChanged, map[string]any{"orderId": "ord-1", "status": "enviado"}))

	h.pipe.Evaluate(context.Background())

	notifs := h.pipe.Notifications()
	if len(notifs) != 1 {
		t.Fatalf("stored = %d, want 1", len(notifs))
	}
	n := notifs[0]
	if n.ID != "order_evt_1" {
		t.Fatalf("id = %q, want order_evt_1", n.ID)
	}
	if got := h.pipe.GetToastQueue(); len(got) != 1 || got[0].ID != n.ID {
		t.Fatalf("toast queue = %v", got)
	}
	if len(h.sinks.sounds) != 1 || h.sinks.sounds[0] != n.ID {
		t.Fatalf("sounds = %v", h.sinks.sounds)
	}
	if len(h.sinks.badges) == 0 || h.sinks.badges[len(h.sinks.badges)-1] != 1 {
		t.Fatalf("badges = %v", h.sinks.badges)
	}
	if h.pipe.Unread() != 1 {
		t.Fatalf("unread = %d, want 1", h.pipe.Unread())
	}
}

func TestEvaluateCategoryDisabledMarksProcessed(t *testing.T) {
	h := newHarness(t, Options{})
	h.settings.Order = false
	h.src.Append(ev("evt_1", event.TypeOrderStatusChanged, nil))

	h.pipe.Evaluate(context.Background())

	if got := len(h.pipe.Notifications()); got != 0 {
		t.Fatalf("stored = %d, want 0", got)
	}

	// Re-enabling the category must not resurrect the event.
	h.settings.Order = true
	h.pipe.Evaluate(context.Background())
	if got := len(h.pipe.Notifications()); got != 0 {
		t.Fatalf("dropped event came back after settings change: stored = %d", got)
	}
	c := h.pipe.Counters()
	if c.DroppedCategory != 1 {
		t.Fatalf("DroppedCategory = %d, want 1", c.DroppedCategory)
	}
}

func TestEvaluateSocialEventSkipsToastAndSound(t *testing.T) {
	h := newHarness(t, Options{})
	h.src.Append(ev("evt_1", event.TypeFriendOpenedBox, map[string]any{"friendName": "Ana"}))

	h.pipe.Evaluate(context.Background())

	notifs := h.pipe.Notifications()
	if len(notifs) != 1 {
		t.Fatalf("stored = %d, want 1", len(notifs))
	}
	if notifs[0].Category != notify.CategorySocial || notifs[0].Priority != notify.PriorityLow {
		t.Fatalf("got category=%s priority=%s", notifs[0].Category, notifs[0].Priority)
	}
	if h.pipe.HasPending() {
		t.Fatalf("social notification must not enqueue a toast")
	}
	if len(h.sinks.sounds) != 0 {
		t.Fatalf("sounds = %v, want none", h.sinks.sounds)
	}
}

func TestEvaluateUnknownTypeMarksProcessed(t *testing.T) {
	h := newHarness(t, Options{})
	h.src.Append(ev("evt_1", "made_up_type", nil))

	h.pipe.Evaluate(context.Background())
	h.pipe.Evaluate(context.Background())

	if got := len(h.pipe.Notifications()); got != 0 {
		t.Fatalf("stored = %d, want 0", got)
	}
	c := h.pipe.Counters()
	if c.DroppedUnknown != 1 {
		t.Fatalf("DroppedUnknown = %d, want 1 (unknown events must be dropped once, not retried)", c.DroppedUnknown)
	}
}

func TestEvaluateIsIdempotent(t *testing.T) {
	h := newHarness(t, Options{})
	h.src.Append(
		ev("evt_1", event.TypeNewBox, map[string]any{"boxName": "Box A"}),
		ev("evt_2", event.TypePromotionStarted, nil),
	)

	h.pipe.Evaluate(context.Background())
	toasts := len(h.pipe.GetToastQueue())
	sounds := len(h.sinks.sounds)

	h.pipe.Evaluate(context.Background())
	h.pipe.Evaluate(context.Background())

	if got := len(h.pipe.Notifications()); got != 2 {
		t.Fatalf("stored = %d, want 2", got)
	}
	if got := len(h.pipe.GetToastQueue()); got != toasts {
		t.Fatalf("toast queue grew on re-evaluation: %d -> %d", toasts, got)
	}
	if got := len(h.sinks.sounds); got != sounds {
		t.Fatalf("sounds fired again on re-evaluation: %d -> %d", sounds, got)
	}
	if c := h.pipe.Counters(); c.Accepted != 2 {
		t.Fatalf("Accepted = %d, want 2", c.Accepted)
	}
}

func TestEvaluateOrderIsSnapshotOrder(t *testing.T) {
	h := newHarness(t, Options{})
	h.src.Append(
		ev("evt_1", event.TypeNewBox, map[string]any{"boxName": "A"}),
		ev("evt_2", event.TypeNewBox, map[string]any{"boxName": "B"}),
		ev("evt_3", event.TypeNewBox, map[string]any{"boxName": "C"}),
	)

	h.pipe.Evaluate(context.Background())

	q := h.pipe.GetToastQueue()
	if len(q) != 3 {
		t.Fatalf("toast queue = %d, want 3", len(q))
	}
	for i, want := range []string{"box_evt_1", "box_evt_2", "box_evt_3"} {
		if q[i].ID != want {
			t.Fatalf("toast[%d] = %q, want %q", i, q[i].ID, want)
		}
	}
	// Store lists newest-first.
	notifs := h.pipe.Notifications()
	if notifs[0].ID != "box_evt_3" || notifs[2].ID != "box_evt_1" {
		t.Fatalf("store order = [%s %s %s]", notifs[0].ID, notifs[1].ID, notifs[2].ID)
	}
}

func TestEvaluateDisconnectedGateRetries(t *testing.T) {
	h := newHarness(t, Options{})
	h.src.Append(ev("evt_1", event.TypeNewBox, nil))
	h.src.SetConnected(false)

	h.pipe.Evaluate(context.Background())
	if got := len(h.pipe.Notifications()); got != 0 {
		t.Fatalf("stored while disconnected = %d, want 0", got)
	}

	// Reconnect: the same event is still pending and processes exactly once.
	h.src.SetConnected(true)
	h.pipe.Evaluate(context.Background())
	h.pipe.Evaluate(context.Background())
	if got := len(h.pipe.Notifications()); got != 1 {
		t.Fatalf("stored after reconnect = %d, want 1", got)
	}
}

func TestEvaluateGloballyDisabledGateRetries(t *testing.T) {
	h := newHarness(t, Options{})
	h.settings.Enabled = false
	h.src.Append(ev("evt_1", event.TypeSystemMaintenance, nil))

	h.pipe.Evaluate(context.Background())
	if got := len(h.pipe.Notifications()); got != 0 {
		t.Fatalf("stored while disabled = %d, want 0", got)
	}

	h.settings.Enabled = true
	h.pipe.Evaluate(context.Background())
	if got := len(h.pipe.Notifications()); got != 1 {
		t.Fatalf("stored after enable = %d, want 1", got)
	}
}

func TestEvaluateFilterAllowList(t *testing.T) {
	h := newHarness(t, Options{FilterTypes: []string{event.TypeNewBox}})
	h.src.Append(
		ev("evt_1", event.TypeNewBox, nil),
		ev("evt_2", event.TypeOrderStatusChanged, nil),
	)

	h.pipe.Evaluate(context.Background())

	notifs := h.pipe.Notifications()
	if len(notifs) != 1 || notifs[0].ID != "box_evt_1" {
		t.Fatalf("stored = %v", notifs)
	}
	c := h.pipe.Counters()
	if c.DroppedFiltered != 1 {
		t.Fatalf("DroppedFiltered = %d, want 1", c.DroppedFiltered)
	}

	// Filtered-out events are terminally dropped, not retried.
	h.pipe.Evaluate(context.Background())
	if c := h.pipe.Counters(); c.DroppedFiltered != 1 {
		t.Fatalf("filtered event dropped again: %d", c.DroppedFiltered)
	}
}

func TestToastLifecycle(t *testing.T) {
	h := newHarness(t, Options{})
	h.src.Append(
		ev("evt_1", event.TypeNewBox, nil),
		ev("evt_2", event.TypeNewBox, nil),
	)
	h.pipe.Evaluate(context.Background())

	if !h.pipe.HasPending() {
		t.Fatalf("expected pending toasts")
	}
	n, ok := h.pipe.ShowNextToast()
	if !ok || n.ID != "box_evt_1" {
		t.Fatalf("first toast = %v (ok=%v)", n.ID, ok)
	}
	h.pipe.ClearToastQueue()
	if h.pipe.HasPending() {
		t.Fatalf("queue must be empty after clear")
	}
	// Cleared toasts never re-enter the queue.
	h.pipe.Evaluate(context.Background())
	if h.pipe.HasPending() {
		t.Fatalf("cleared toasts reappeared")
	}
}

func TestTapMarksReadAndRoutes(t *testing.T) {
	h := newHarness(t, Options{})
	h.src.Append(ev("evt_1", event.TypeOrderStatusChanged, map[string]any{"orderId": "ord-7"}))
	h.pipe.Evaluate(context.Background())

	n := h.pipe.Notifications()[0]
	h.pipe.HandleNotificationTap(context.Background(), n)

	if h.pipe.Unread() != 0 {
		t.Fatalf("unread = %d after tap, want 0", h.pipe.Unread())
	}
	if len(h.sinks.routes) != 1 || h.sinks.routes[0] != effects.DestOrderDetail+":ord-7" {
		t.Fatalf("routes = %v", h.sinks.routes)
	}
	if last := h.sinks.badges[len(h.sinks.badges)-1]; last != 0 {
		t.Fatalf("badge after tap = %d, want 0", last)
	}
}

func TestMarkAllReadAndDeleteKeepBadgeInSync(t *testing.T) {
	h := newHarness(t, Options{})
	h.src.Append(
		ev("evt_1", event.TypeNewBox, nil),
		ev("evt_2", event.TypeNewBox, nil),
	)
	h.pipe.Evaluate(context.Background())

	h.pipe.MarkAllRead(context.Background())
	if h.pipe.Unread() != 0 {
		t.Fatalf("unread = %d, want 0", h.pipe.Unread())
	}
	h.pipe.Delete(context.Background(), "box_evt_1")
	if got := len(h.pipe.Notifications()); got != 1 {
		t.Fatalf("stored = %d after delete, want 1", got)
	}
	if last := h.sinks.badges[len(h.sinks.badges)-1]; last != 0 {
		t.Fatalf("badge = %d, want 0", last)
	}
}

func TestStatsWindow(t *testing.T) {
	h := newHarness(t, Options{})
	now := time.Now()
	h.src.Append(
		event.LiveEvent{ID: "old", Type: event.TypeNewBox, Timestamp: now.Add(-25 * time.Hour).UnixMilli()},
		event.LiveEvent{ID: "recent", Type: event.TypeNewBox, Timestamp: now.Add(-1 * time.Hour).UnixMilli()},
	)
	h.pipe.Evaluate(context.Background())

	st := h.pipe.Stats()
	if st.Total != 1 {
		t.Fatalf("stats total = %d, want 1 (24h window)", st.Total)
	}
	if st.ByType[event.TypeNewBox] != 1 {
		t.Fatalf("stats by type = %v", st.ByType)
	}
	if st.Processed != 2 {
		t.Fatalf("stats processed = %d, want 2", st.Processed)
	}
}
