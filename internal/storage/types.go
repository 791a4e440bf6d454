package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free file backend (jsonl + snapshot)
//   - "sqlite": SQLite database file (optional build tag)
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// NotificationRecord is the persisted shape of a notification.
// Keep it compact and schema-stable; the payload rides along as raw JSON.
type NotificationRecord struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Category  string `json:"category"`
	Priority  string `json:"priority"`
	Timestamp int64  `json:"timestamp"` // unix milli
	ShowToast bool   `json:"show_toast"`
	PlaySound bool   `json:"play_sound"`
	Read      bool   `json:"read"`
	DataJSON  string `json:"data_json,omitempty"`
}
