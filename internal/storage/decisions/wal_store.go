// Package decisions persists coordinator decision records in an append-only
// WAL so the decision trail survives restarts.
package decisions

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/Butchman2000/Trade-Model-Consideration/internal/domain"
)

const (
	// DefaultDir keeps the decision history across restarts.
	DefaultDir   = "./wal/decisions"
	segmentLimit = 1000
	maxSegments  = 100

	decisionKeyPrefix = "decision_"
)

// WALStore persists decision records in a WAL and serves reads from an
// in-memory replica rebuilt at construction.
type WALStore struct {
	wal       *gowal.Wal
	mu        sync.RWMutex
	decisions []domain.Decision
}

// NewWALStore initializes a WAL-backed decision store.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = DefaultDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "decision_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init decision WAL")
	}

	s := &WALStore{wal: wal}

	for msg := range wal.Iterator() {
		if !strings.HasPrefix(msg.Key, decisionKeyPrefix) {
			continue
		}
		var d domain.Decision
		if err := json.Unmarshal(msg.Value, &d); err != nil {
			return nil, errors.Wrap(err, "decode decision record")
		}
		s.decisions = append(s.decisions, d)
	}

	return s, nil
}

// AppendDecision writes the decision record to WAL.
func (s *WALStore) AppendDecision(d domain.Decision) error {
	if s == nil || s.wal == nil {
		return errors.New("decision store is not initialized")
	}
	if d.SignalID == "" {
		return errors.New("decision signal id is required")
	}

	payload, err := json.Marshal(d)
	if err != nil {
		return errors.Wrap(err, "marshal decision record")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	if err := s.wal.Write(nextIndex, decisionKeyPrefix+d.SignalID, payload); err != nil {
		return errors.Wrap(err, "append decision record")
	}
	s.decisions = append(s.decisions, d)
	return nil
}

// Recent returns the last n decision records in insertion order.
func (s *WALStore) Recent(n int) []domain.Decision {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || n > len(s.decisions) {
		n = len(s.decisions)
	}
	out := make([]domain.Decision, n)
	copy(out, s.decisions[len(s.decisions)-n:])
	return out
}

// ByID returns the most recent decision recorded for a signal id.
func (s *WALStore) ByID(signalID string) (domain.Decision, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.decisions) - 1; i >= 0; i-- {
		if s.decisions[i].SignalID == signalID {
			return s.decisions[i], true
		}
	}
	return domain.Decision{}, false
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("decision store is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
