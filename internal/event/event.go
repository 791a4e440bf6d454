package event

import "time"

// LiveEvent is a raw server-pushed record.
//
// Events are immutable once observed: the pipeline never mutates one, it
// only reads the snapshot and records ids in the processed set.
type LiveEvent struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Data      map[string]any `json:"data"`
	Timestamp int64          `json:"timestamp"` // unix milli
}

// Time returns the event timestamp as a time.Time.
func (e LiveEvent) Time() time.Time { return time.UnixMilli(e.Timestamp) }

// Known event type tags.
//
// The set is open-ended on the wire; anything not listed here is dropped
// by classification (not an error).
const (
	TypeOrderStatusChanged = "order_status_changed"
	TypeNewBox             = "new_box"
	TypePromotionStarted   = "promotion_started"
	TypeFriendOpenedBox    = "friend_opened_box"
	TypeSystemMaintenance  = "system_maintenance"
	TypeLowStockAlert      = "low_stock_alert"
)

// Source supplies the ever-growing event snapshot and the connection state.
//
// Snapshot must return events in arrival order. The pipeline re-scans the
// full snapshot on every evaluation and relies on its processed set to skip
// prior work, so re-delivering the same events is expected and cheap.
type Source interface {
	Snapshot() []LiveEvent
	Connected() bool
}

// String reads a string field from the event payload.
// Missing or non-string values degrade to "" rather than failing.
func (e LiveEvent) String(key string) string {
	if e.Data == nil {
		return ""
	}
	s, _ := e.Data[key].(string)
	return s
}
