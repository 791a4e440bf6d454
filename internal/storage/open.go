package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	logx "boxfeed/pkg/logx"
)

// Store is the minimal persistence API used by the pipeline.
type Store interface {
	// Notifications. Ordering on load is newest-first (store order).
	AppendNotification(ctx context.Context, r NotificationRecord) error
	SetRead(ctx context.Context, id string, read bool) error
	MarkAllRead(ctx context.Context) error
	DeleteNotification(ctx context.Context, id string) error
	LoadNotifications(ctx context.Context) ([]NotificationRecord, error)

	// Processed-id ledger.
	PutProcessed(ctx context.Context, id string, at time.Time) error
	DeleteProcessed(ctx context.Context, ids []string) error
	LoadProcessed(ctx context.Context) (map[string]int64, error)

	// Compact folds journals into snapshots (file driver). Cheap no-op elsewhere.
	Compact(ctx context.Context) error

	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
