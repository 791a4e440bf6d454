//go:build sqlite
// +build sqlite

package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	logx "boxfeed/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log}

	// Basic pragmas.
	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) AppendNotification(ctx context.Context, r NotificationRecord) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if strings.TrimSpace(r.ID) == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications(id, title, body, category, priority, ts, show_toast, play_sound, read, data_json)
		 VALUES(?,?,?,?,?,?,?,?,?,?)
		 ON CONFLICT(id) DO NOTHING`,
		r.ID, r.Title, r.Body, r.Category, r.Priority, r.Timestamp,
		boolInt(r.ShowToast), boolInt(r.PlaySound), boolInt(r.Read), nullStr(r.DataJSON),
	)
	return err
}

func (s *sqliteStore) SetRead(ctx context.Context, id string, read bool) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if id == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `UPDATE notifications SET read = ? WHERE id = ?`, boolInt(read), id)
	return err
}

func (s *sqliteStore) MarkAllRead(ctx context.Context) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	_, err := s.db.ExecContext(ctx, `UPDATE notifications SET read = 1 WHERE read = 0`)
	return err
}

func (s *sqliteStore) DeleteNotification(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if id == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = ?`, id)
	return err
}

func (s *sqliteStore) LoadNotifications(ctx context.Context) ([]NotificationRecord, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, body, category, priority, ts, show_toast, play_sound, read, COALESCE(data_json, '')
		 FROM notifications ORDER BY ts DESC, rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []NotificationRecord
	for rows.Next() {
		var r NotificationRecord
		var show, play, read int
		if err := rows.Scan(&r.ID, &r.Title, &r.Body, &r.Category, &r.Priority, &r.Timestamp, &show, &play, &read, &r.DataJSON); err != nil {
			return nil, err
		}
		r.ShowToast = show != 0
		r.PlaySound = play != 0
		r.Read = read != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *sqliteStore) PutProcessed(ctx context.Context, id string, at time.Time) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if id == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO processed(id, at) VALUES(?,?)
		 ON CONFLICT(id) DO UPDATE SET at=excluded.at`,
		id, at.UnixMilli(),
	)
	return err
}

func (s *sqliteStore) DeleteProcessed(ctx context.Context, ids []string) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM processed WHERE id = ?`, id); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *sqliteStore) LoadProcessed(ctx context.Context) (map[string]int64, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, at FROM processed`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int64{}
	for rows.Next() {
		var id string
		var at int64
		if err := rows.Scan(&id, &at); err != nil {
			return nil, err
		}
		out[id] = at
	}
	return out, rows.Err()
}

func (s *sqliteStore) Compact(ctx context.Context) error {
	// SQLite maintains itself; nothing to fold.
	_ = ctx
	return nil
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
