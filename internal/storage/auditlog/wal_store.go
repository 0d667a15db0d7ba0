// Package auditlog persists the hashed execution log and the plaintext
// override trail in an append-only WAL. Insertion order is preserved per
// account; recovery replays the log on startup.
package auditlog

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/Butchman2000/Trade-Model-Consideration/internal/domain"
)

const (
	// DefaultDir keeps the audit history across restarts.
	DefaultDir   = "./wal/audit"
	segmentLimit = 1000
	maxSegments  = 100

	executionKeyPrefix = "execution_"
	overrideKeyPrefix  = "override_"
)

// Store is a WAL-backed append-only audit store. Reads are served from an
// in-memory replica rebuilt from the WAL at construction.
type Store struct {
	mu         sync.RWMutex
	wal        *gowal.Wal
	executions []domain.ExecutionLogEntry
	overrides  []domain.OverrideRecord
}

// New opens (or creates) the audit WAL under dir and replays its contents.
func New(dir string) (*Store, error) {
	if dir == "" {
		dir = DefaultDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "audit_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init audit WAL")
	}

	s := &Store{wal: wal}

	for msg := range wal.Iterator() {
		switch {
		case strings.HasPrefix(msg.Key, executionKeyPrefix):
			var entry domain.ExecutionLogEntry
			if err := json.Unmarshal(msg.Value, &entry); err != nil {
				return nil, errors.Wrap(err, "decode execution log entry")
			}
			s.executions = append(s.executions, entry)
		case strings.HasPrefix(msg.Key, overrideKeyPrefix):
			var rec domain.OverrideRecord
			if err := json.Unmarshal(msg.Value, &rec); err != nil {
				return nil, errors.Wrap(err, "decode override record")
			}
			s.overrides = append(s.overrides, rec)
		}
	}

	return s, nil
}

// AppendExecution writes a hashed execution entry.
func (s *Store) AppendExecution(entry domain.ExecutionLogEntry) error {
	if s == nil || s.wal == nil {
		return errors.New("audit store is not initialized")
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, "marshal execution log entry")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	if err := s.wal.Write(nextIndex, executionKeyPrefix+entry.SignalIDHash, payload); err != nil {
		return errors.Wrap(err, "append execution log entry")
	}
	s.executions = append(s.executions, entry)
	return nil
}

// AppendOverride writes a plaintext override record.
func (s *Store) AppendOverride(rec domain.OverrideRecord) error {
	if s == nil || s.wal == nil {
		return errors.New("audit store is not initialized")
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "marshal override record")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	if err := s.wal.Write(nextIndex, overrideKeyPrefix+rec.SignalID, payload); err != nil {
		return errors.Wrap(err, "append override record")
	}
	s.overrides = append(s.overrides, rec)
	return nil
}

// Executions returns a copy of the hashed execution log in insertion order.
func (s *Store) Executions() []domain.ExecutionLogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ExecutionLogEntry, len(s.executions))
	copy(out, s.executions)
	return out
}

// RecentOverrides returns the last n override records in insertion order.
func (s *Store) RecentOverrides(n int) []domain.OverrideRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || n > len(s.overrides) {
		n = len(s.overrides)
	}
	out := make([]domain.OverrideRecord, n)
	copy(out, s.overrides[len(s.overrides)-n:])
	return out
}

// Close closes the underlying WAL.
func (s *Store) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("audit store is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
