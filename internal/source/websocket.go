package source

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"boxfeed/internal/event"
	logx "boxfeed/pkg/logx"
)

// WebsocketConfig configures the server event feed.
type WebsocketConfig struct {
	URL         string
	DialTimeout time.Duration // 0 means 10s
}

// Websocket consumes JSON live events pushed over a websocket.
//
// Each text frame carries one event object. Frames that fail to decode or
// arrive without an id are skipped; a malformed frame is not an error the
// pipeline ever sees.
//
// The connection is self-healing: on any read or dial failure the source
// flips to disconnected, backs off with jitter and redials until the run
// context ends.
type Websocket struct {
	cfg WebsocketConfig
	log logx.Logger

	mu        sync.Mutex
	events    []event.LiveEvent
	seen      map[string]struct{}
	connected bool
	onChange  func()
}

func NewWebsocket(cfg WebsocketConfig, log logx.Logger) *Websocket {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Websocket{cfg: cfg, log: log, seen: map[string]struct{}{}}
}

// OnChange registers a callback fired after every appended event or
// connectivity flip.
func (w *Websocket) OnChange(fn func()) {
	w.mu.Lock()
	w.onChange = fn
	w.mu.Unlock()
}

func (w *Websocket) Snapshot() []event.LiveEvent {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]event.LiveEvent, len(w.events))
	copy(out, w.events)
	return out
}

func (w *Websocket) Connected() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.connected
}

// Run dials and reads until ctx is done. It always returns nil after a
// clean shutdown; connection failures are retried internally.
func (w *Websocket) Run(ctx context.Context) error {
	if strings.TrimSpace(w.cfg.URL) == "" {
		return errors.New("source: websocket url is required")
	}

	const (
		backoffBase = 500 * time.Millisecond
		backoffMax  = 30 * time.Second
	)
	backoff := backoffBase
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for {
		if ctx.Err() != nil {
			return nil
		}

		err := w.readLoop(ctx)
		w.setConnected(false)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			w.log.Warn("event feed disconnected", logx.Err(err), logx.Duration("backoff", backoff))
		}

		// Jittered exponential backoff before redialing.
		wait := backoff + time.Duration(rng.Int63n(int64(backoff/2)+1))
		if backoff < backoffMax {
			backoff *= 2
			if backoff > backoffMax {
				backoff = backoffMax
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
		if err == nil {
			// Clean server close; reset backoff.
			backoff = backoffBase
		}
	}
}

func (w *Websocket) readLoop(ctx context.Context) error {
	dialTimeout := w.cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 10 * time.Second
	}
	dctx, cancel := context.WithTimeout(ctx, dialTimeout)
	conn, _, err := websocket.Dial(dctx, w.cfg.URL, nil)
	cancel()
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	w.setConnected(true)
	w.log.Info("event feed connected", logx.String("url", w.cfg.URL))

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageText {
			continue
		}
		w.ingest(data)
	}
}

func (w *Websocket) ingest(data []byte) {
	var ev event.LiveEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		w.log.Debug("skipping malformed event frame", logx.Err(err))
		return
	}
	if strings.TrimSpace(ev.ID) == "" {
		w.log.Debug("skipping event without id", logx.String("type", ev.Type))
		return
	}
	if ev.Timestamp == 0 {
		ev.Timestamp = time.Now().UnixMilli()
	}

	w.mu.Lock()
	if _, dup := w.seen[ev.ID]; dup {
		// The feed replays on reconnect; the snapshot keeps one copy per id.
		w.mu.Unlock()
		return
	}
	w.seen[ev.ID] = struct{}{}
	w.events = append(w.events, ev)
	fn := w.onChange
	w.mu.Unlock()

	if fn != nil {
		fn()
	}
}

func (w *Websocket) setConnected(v bool) {
	w.mu.Lock()
	changed := w.connected != v
	w.connected = v
	fn := w.onChange
	w.mu.Unlock()
	if changed && fn != nil {
		fn()
	}
}
