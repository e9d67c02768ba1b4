// Package batchstore keeps a history of executed batches on disk.
package batchstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/3leaps/gobatch/internal/fsutil"
)

// ErrNotFound is returned by Get for an unknown batch id.
var ErrNotFound = errors.New("batch not found")

// Store persists and loads BatchRecords from an on-disk directory.
//
// Directory layout:
//
//	<root>/<batch_id>/batch.json
type Store struct {
	root string
	now  func() time.Time
}

func NewStore(root string) *Store {
	return &Store{root: strings.TrimSpace(root), now: time.Now}
}

func (s *Store) RootDir() string {
	return s.root
}

func (s *Store) BatchDir(batchID string) string {
	return filepath.Join(s.root, batchID)
}

func (s *Store) BatchPath(batchID string) string {
	return filepath.Join(s.BatchDir(batchID), "batch.json")
}

func (s *Store) ensureRoot() error {
	if s.root == "" {
		return fmt.Errorf("batch store root dir is empty")
	}
	return os.MkdirAll(s.root, 0o755)
}

func validID(batchID string) error {
	if batchID == "" {
		return fmt.Errorf("batch_id is required")
	}
	if batchID != filepath.Base(batchID) || batchID == "." || batchID == ".." {
		return fmt.Errorf("batch_id %q is not a plain name", batchID)
	}
	return nil
}

// Write stores record, replacing any previous version atomically.
func (s *Store) Write(record *BatchRecord) error {
	if record == nil {
		return fmt.Errorf("batch record is nil")
	}
	batchID := strings.TrimSpace(record.BatchID)
	if err := validID(batchID); err != nil {
		return err
	}
	if err := s.ensureRoot(); err != nil {
		return err
	}

	b, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal batch record: %w", err)
	}
	b = append(b, '\n')

	if err := fsutil.WriteFileAtomic(s.BatchPath(batchID), b, 0o644); err != nil {
		return fmt.Errorf("write batch record: %w", err)
	}
	return nil
}

// Get loads a batch record.
//
// A record that claims to be running but whose process is gone is reported
// (and rewritten) as unknown.
func (s *Store) Get(batchID string) (*BatchRecord, error) {
	batchID = strings.TrimSpace(batchID)
	if err := validID(batchID); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.BatchPath(batchID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, batchID)
		}
		return nil, err
	}

	trimmed := strings.TrimSpace(string(b))
	if trimmed == "" {
		return nil, fmt.Errorf("batch.json is empty")
	}

	var record BatchRecord
	if err := json.Unmarshal([]byte(trimmed), &record); err != nil {
		return nil, fmt.Errorf("parse batch.json: %w", err)
	}

	if record.State == StateRunning && record.PID > 0 && !isProcessAlive(record.PID) {
		record.State = StateUnknown
		ended := s.now().UTC()
		record.EndedAt = &ended
		_ = s.Write(&record)
	}

	return &record, nil
}

// List returns every readable record, newest first. Unreadable entries are
// skipped.
func (s *Store) List() ([]BatchRecord, error) {
	if s.root == "" {
		return nil, fmt.Errorf("batch store root dir is empty")
	}
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read batch root: %w", err)
	}

	out := make([]BatchRecord, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		r, err := s.Get(entry.Name())
		if err != nil {
			continue
		}
		out = append(out, *r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return sortTime(out[i]).After(sortTime(out[j]))
	})

	return out, nil
}

func sortTime(r BatchRecord) time.Time {
	if r.StartedAt != nil {
		return r.StartedAt.UTC()
	}
	return r.CreatedAt.UTC()
}

func isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// signal 0 is supported on unix; it checks for existence without sending a signal.
	if err := p.Signal(os.Signal(syscall.Signal(0))); err != nil {
		return false
	}
	return true
}
