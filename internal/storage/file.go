package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	logx "boxfeed/pkg/logx"
)

// fileStore is a dependency-free persistence backend.
//
// Files:
//   - <prefix>.notifications.snapshot.json (periodic snapshot, newest-first)
//   - <prefix>.notifications.journal.jsonl (append-only journal)
//   - <prefix>.processed.snapshot.json     (periodic snapshot)
//   - <prefix>.processed.journal.jsonl     (append-only journal)
//
// The journals are periodically compacted into the snapshots.
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	notifSnapshotPath string
	notifJournalFile  *os.File
	notifs            []NotificationRecord // newest-first
	notifIndex        map[string]int

	procSnapshotPath string
	procJournalFile  *os.File
	processed        map[string]int64 // unix milli marked-at

	writes int
}

// notifOp is one journal entry for the notification log.
type notifOp struct {
	Op     string              `json:"op"` // append|read|read_all|delete
	ID     string              `json:"id,omitempty"`
	Record *NotificationRecord `json:"record,omitempty"`
}

type procOp struct {
	Op string `json:"op"` // put|del
	ID string `json:"id"`
	At int64  `json:"at,omitempty"`
}

const compactEvery = 1000

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	notifSnapPath := prefix + ".notifications.snapshot.json"
	notifJournalPath := prefix + ".notifications.journal.jsonl"
	procSnapPath := prefix + ".processed.snapshot.json"
	procJournalPath := prefix + ".processed.journal.jsonl"

	s := &fileStore{
		log:               log,
		notifSnapshotPath: notifSnapPath,
		procSnapshotPath:  procSnapPath,
		notifIndex:        map[string]int{},
		processed:         map[string]int64{},
	}

	// Load notifications from snapshot + journal.
	_ = s.loadNotifSnapshot(notifSnapPath)
	_ = s.replayNotifJournal(notifJournalPath)

	// Load processed ids from snapshot + journal.
	_ = loadProcSnapshot(procSnapPath, s.processed)
	_ = replayProcJournal(procJournalPath, s.processed)

	nf, err := os.OpenFile(notifJournalPath, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o600)
	if err != nil {
		return nil, err
	}
	pf, err := os.OpenFile(procJournalPath, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o600)
	if err != nil {
		_ = nf.Close()
		return nil, err
	}
	s.notifJournalFile = nf
	s.procJournalFile = pf
	return s, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err1, err2 error
	if s.notifJournalFile != nil {
		err1 = s.notifJournalFile.Close()
		s.notifJournalFile = nil
	}
	if s.procJournalFile != nil {
		err2 = s.procJournalFile.Close()
		s.procJournalFile = nil
	}
	if err1 != nil {
		return err1
	}
	return err2
}

// ---- notifications ----

func (s *fileStore) AppendNotification(ctx context.Context, r NotificationRecord) error {
	_ = ctx
	if strings.TrimSpace(r.ID) == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyNotifOp(notifOp{Op: "append", Record: &r})
	return s.journalNotifLocked(notifOp{Op: "append", Record: &r})
}

func (s *fileStore) SetRead(ctx context.Context, id string, read bool) error {
	_ = ctx
	if id == "" || !read {
		// Only the unread->read transition is journaled; un-reading never happens.
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.notifIndex[id]; !ok {
		return nil
	}
	s.applyNotifOp(notifOp{Op: "read", ID: id})
	return s.journalNotifLocked(notifOp{Op: "read", ID: id})
}

func (s *fileStore) MarkAllRead(ctx context.Context) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyNotifOp(notifOp{Op: "read_all"})
	return s.journalNotifLocked(notifOp{Op: "read_all"})
}

func (s *fileStore) DeleteNotification(ctx context.Context, id string) error {
	_ = ctx
	if id == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.notifIndex[id]; !ok {
		return nil
	}
	s.applyNotifOp(notifOp{Op: "delete", ID: id})
	return s.journalNotifLocked(notifOp{Op: "delete", ID: id})
}

func (s *fileStore) LoadNotifications(ctx context.Context) ([]NotificationRecord, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]NotificationRecord, len(s.notifs))
	copy(out, s.notifs)
	return out, nil
}

func (s *fileStore) applyNotifOp(op notifOp) {
	switch op.Op {
	case "append":
		if op.Record == nil {
			return
		}
		if _, ok := s.notifIndex[op.Record.ID]; ok {
			return
		}
		// Prepend: store order is newest-first.
		s.notifs = append([]NotificationRecord{*op.Record}, s.notifs...)
		s.reindexLocked()
	case "read":
		if i, ok := s.notifIndex[op.ID]; ok {
			s.notifs[i].Read = true
		}
	case "read_all":
		for i := range s.notifs {
			s.notifs[i].Read = true
		}
	case "delete":
		if i, ok := s.notifIndex[op.ID]; ok {
			s.notifs = append(s.notifs[:i], s.notifs[i+1:]...)
			s.reindexLocked()
		}
	}
}

func (s *fileStore) reindexLocked() {
	s.notifIndex = make(map[string]int, len(s.notifs))
	for i, n := range s.notifs {
		s.notifIndex[n.ID] = i
	}
}

func (s *fileStore) journalNotifLocked(op notifOp) error {
	if s.notifJournalFile == nil {
		return errors.New("notification journal closed")
	}
	if err := json.NewEncoder(s.notifJournalFile).Encode(op); err != nil {
		return err
	}
	s.bumpWritesLocked()
	return nil
}

// ---- processed ids ----

func (s *fileStore) PutProcessed(ctx context.Context, id string, at time.Time) error {
	_ = ctx
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	ms := at.UnixMilli()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.procJournalFile == nil {
		return errors.New("processed journal closed")
	}
	s.processed[id] = ms
	if err := json.NewEncoder(s.procJournalFile).Encode(procOp{Op: "put", ID: id, At: ms}); err != nil {
		return err
	}
	s.bumpWritesLocked()
	return nil
}

func (s *fileStore) DeleteProcessed(ctx context.Context, ids []string) error {
	_ = ctx
	if len(ids) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.procJournalFile == nil {
		return errors.New("processed journal closed")
	}
	enc := json.NewEncoder(s.procJournalFile)
	for _, id := range ids {
		if id == "" {
			continue
		}
		delete(s.processed, id)
		if err := enc.Encode(procOp{Op: "del", ID: id}); err != nil {
			return err
		}
	}
	s.bumpWritesLocked()
	return nil
}

func (s *fileStore) LoadProcessed(ctx context.Context) (map[string]int64, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.processed))
	for k, v := range s.processed {
		out[k] = v
	}
	return out, nil
}

// ---- compaction ----

func (s *fileStore) Compact(ctx context.Context) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.compactLocked()
}

func (s *fileStore) bumpWritesLocked() {
	s.writes++
	if s.writes%compactEvery == 0 {
		if err := s.compactLocked(); err != nil {
			s.log.Debug("storage compact failed", logx.Err(err))
		}
	}
}

func (s *fileStore) compactLocked() error {
	if err := writeSnapshot(s.notifSnapshotPath, s.notifs); err != nil {
		return err
	}
	if err := truncateJournal(s.notifJournalFile); err != nil {
		return err
	}
	if err := writeSnapshot(s.procSnapshotPath, s.processed); err != nil {
		return err
	}
	return truncateJournal(s.procJournalFile)
}

func writeSnapshot(path string, v any) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(v); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func truncateJournal(f *os.File) error {
	if f == nil {
		return nil
	}
	if err := f.Truncate(0); err != nil {
		return err
	}
	_, err := f.Seek(0, 2)
	return err
}

func (s *fileStore) loadNotifSnapshot(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	var recs []NotificationRecord
	if err := json.NewDecoder(f).Decode(&recs); err != nil {
		return err
	}
	s.notifs = recs
	s.reindexLocked()
	return nil
}

func (s *fileStore) replayNotifJournal(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var op notifOp
		if err := json.Unmarshal(sc.Bytes(), &op); err != nil {
			continue
		}
		s.applyNotifOp(op)
	}
	return sc.Err()
}

func loadProcSnapshot(path string, out map[string]int64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	var m map[string]int64
	if err := json.NewDecoder(f).Decode(&m); err != nil {
		return err
	}
	for k, v := range m {
		out[k] = v
	}
	return nil
}

func replayProcJournal(path string, out map[string]int64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var op procOp
		if err := json.Unmarshal(sc.Bytes(), &op); err != nil {
			continue
		}
		switch op.Op {
		case "put":
			if op.ID != "" {
				out[op.ID] = op.At
			}
		case "del":
			delete(out, op.ID)
		}
	}
	return sc.Err()
}
