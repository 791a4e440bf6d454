package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	logx "boxfeed/pkg/logx"
)

func openTestStore(t *testing.T, path string) Store {
	t.Helper()
	s, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return s
}

func rec(id string) NotificationRecord {
	return NotificationRecord{ID: id, Title: "t", Category: "box", Timestamp: 1}
}

func TestOpenDisabled(t *testing.T) {
	for _, driver := range []string{"", "none"} {
		s, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil {
			t.Fatalf("driver %q: %v", driver, err)
		}
		if s != nil {
			t.Fatalf("driver %q: expected nil store", driver)
		}
	}
	if _, err := Open(Config{Driver: "bogus"}, logx.Nop()); err == nil {
		t.Fatalf("unknown driver must error")
	}
}

func TestFileJournalReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boxfeed")
	ctx := context.Background()

	s := openTestStore(t, path)
	if err := s.AppendNotification(ctx, rec("a")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.AppendNotification(ctx, rec("b")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.SetRead(ctx, "a", true); err != nil {
		t.Fatalf("set read: %v", err)
	}
	if err := s.DeleteNotification(ctx, "b"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s2 := openTestStore(t, path)
	defer s2.Close()
	recs, err := s2.LoadNotifications(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("loaded = %d records, want 1", len(recs))
	}
	if recs[0].ID != "a" || !recs[0].Read {
		t.Fatalf("loaded = %+v", recs[0])
	}
}

func TestFileNewestFirstOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boxfeed")
	ctx := context.Background()

	s := openTestStore(t, path)
	for _, id := range []string{"a", "b", "c"} {
		if err := s.AppendNotification(ctx, rec(id)); err != nil {
			t.Fatalf("append %s: %v", id, err)
		}
	}
	s.Close()

	s2 := openTestStore(t, path)
	defer s2.Close()
	recs, _ := s2.LoadNotifications(ctx)
	if len(recs) != 3 || recs[0].ID != "c" || recs[2].ID != "a" {
		t.Fatalf("order after replay = %v", ids(recs))
	}
}

func ids(recs []NotificationRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}

func TestFileProcessedRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boxfeed")
	ctx := context.Background()
	at := time.UnixMilli(1700000000000)

	s := openTestStore(t, path)
	if err := s.PutProcessed(ctx, "e1", at); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.PutProcessed(ctx, "e2", at); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.DeleteProcessed(ctx, []string{"e2"}); err != nil {
		t.Fatalf("del: %v", err)
	}
	s.Close()

	s2 := openTestStore(t, path)
	defer s2.Close()
	m, err := s2.LoadProcessed(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(m) != 1 || m["e1"] != at.UnixMilli() {
		t.Fatalf("processed = %v", m)
	}
}

func TestFileCompactPreservesState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boxfeed")
	ctx := context.Background()

	s := openTestStore(t, path)
	s.AppendNotification(ctx, rec("a"))
	s.PutProcessed(ctx, "e1", time.Now())
	if err := s.Compact(ctx); err != nil {
		t.Fatalf("compact: %v", err)
	}
	// More writes after compaction land in the fresh journal.
	s.AppendNotification(ctx, rec("b"))
	s.Close()

	s2 := openTestStore(t, path)
	defer s2.Close()
	recs, _ := s2.LoadNotifications(ctx)
	if len(recs) != 2 || recs[0].ID != "b" {
		t.Fatalf("after compact+replay = %v", ids(recs))
	}
	m, _ := s2.LoadProcessed(ctx)
	if _, ok := m["e1"]; !ok {
		t.Fatalf("processed id lost on compact")
	}
}

func TestFileDuplicateAppendIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boxfeed")
	ctx := context.Background()

	s := openTestStore(t, path)
	defer s.Close()
	s.AppendNotification(ctx, rec("a"))
	s.AppendNotification(ctx, rec("a"))
	recs, _ := s.LoadNotifications(ctx)
	if len(recs) != 1 {
		t.Fatalf("duplicate append stored: %v", ids(recs))
	}
}
