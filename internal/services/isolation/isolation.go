// Package isolation governs which signals are allowed to proceed to
// execution. It assumes temporal coherence and noise suppression are handled
// upstream. Every confirmation outcome is written to a hash-obfuscated
// execution log; manual overrides are additionally written in plaintext for
// accountability.
package isolation

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Butchman2000/Trade-Model-Consideration/internal/domain"
)

// ErrLogUnavailable is returned when a mandatory audit append fails.
// Confirmation logging is not skippable, so the gate fails closed.
var ErrLogUnavailable = errors.New("execution log unavailable")

// DefaultMultiFactorThreshold is the number of independent domains that must
// agree before a signal passes.
const DefaultMultiFactorThreshold = 3

// DefaultOverrideReviewLimit bounds the override export for reviewers.
const DefaultOverrideReviewLimit = 5

// ExecutionLog is the append-only hashed compliance log.
type ExecutionLog interface {
	AppendExecution(entry domain.ExecutionLogEntry) error
	Executions() []domain.ExecutionLogEntry
}

// OverrideLog is the append-only plaintext override trail.
type OverrideLog interface {
	AppendOverride(rec domain.OverrideRecord) error
	RecentOverrides(n int) []domain.OverrideRecord
}

// System is the multi-factor confirmation gate with manual-override audit.
type System struct {
	mu              sync.Mutex
	threshold       int
	overrideEnabled bool
	executionLog    ExecutionLog
	overrideLog     OverrideLog
	l               *zap.Logger
}

// New creates the isolation system. A non-positive threshold selects the
// default.
func New(l *zap.Logger, threshold int, executionLog ExecutionLog, overrideLog OverrideLog) *System {
	if l == nil {
		l = zap.NewNop()
	}
	if threshold <= 0 {
		threshold = DefaultMultiFactorThreshold
	}
	return &System{
		threshold:       threshold,
		overrideEnabled: true,
		executionLog:    executionLog,
		overrideLog:     overrideLog,
		l:               l,
	}
}

// MultiFactorConfirm counts agreeing domain flags and approves when the
// count reaches the configured threshold.
func (s *System) MultiFactorConfirm(inputs map[string]bool) bool {
	agreement := 0
	for _, v := range inputs {
		if v {
			agreement++
		}
	}
	return agreement >= s.threshold
}

// AllowTrade runs the confirmation check and unconditionally records the
// outcome before returning it. A failed append fails the gate.
func (s *System) AllowTrade(p *domain.SignalPacket) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	approved := s.MultiFactorConfirm(p.Inputs)
	if err := s.logExecution(p, approved, false); err != nil {
		return false, err
	}
	return approved, nil
}

// TriggerOverride bypasses the confirmation gate for a caller identity and
// justification. Only honored while overrides are globally enabled; every
// override lands in both audit trails.
func (s *System) TriggerOverride(p *domain.SignalPacket, userID, justification string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.overrideEnabled {
		s.l.Warn("override attempted while disabled",
			zap.String("user", userID))
		return false, nil
	}

	if err := s.overrideLog.AppendOverride(domain.OverrideRecord{
		SignalID:      p.ID,
		Timestamp:     p.Timestamp,
		User:          userID,
		Justification: justification,
	}); err != nil {
		return false, errors.Wrap(ErrLogUnavailable, err.Error())
	}

	if err := s.logExecution(p, true, true); err != nil {
		return false, err
	}

	s.l.Info("manual override recorded",
		zap.String("user", userID),
		zap.String("justification", justification))
	return true, nil
}

// ReviewOverrideActivity returns the most recent override actions for
// behavioral risk analysis. A non-positive n selects the default limit.
func (s *System) ReviewOverrideActivity(n int) []domain.OverrideRecord {
	if n <= 0 {
		n = DefaultOverrideReviewLimit
	}
	return s.overrideLog.RecentOverrides(n)
}

// Lockdown disables future overrides. One-way: reactivation is an
// out-of-band administrative action, not an operation of this system.
func (s *System) Lockdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.overrideEnabled = false
	s.l.Warn("override system disabled, all discretionary approvals blocked")
}

// OverrideEnabled reports whether manual overrides are still honored.
func (s *System) OverrideEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overrideEnabled
}

// GenerateComplianceSummary derives aggregate counts from the hashed log.
// Per-entry detail and raw signal ids are never exposed.
func (s *System) GenerateComplianceSummary() domain.ComplianceSummary {
	entries := s.executionLog.Executions()

	summary := domain.ComplianceSummary{ExecutionsLogged: len(entries)}
	for _, e := range entries {
		if e.Approved {
			summary.ApprovedTrades++
		}
		if e.Overridden {
			summary.OverridesUsed++
		}
	}
	return summary
}

func (s *System) logExecution(p *domain.SignalPacket, approved, overridden bool) error {
	entry := domain.ExecutionLogEntry{
		SignalIDHash: domain.HashSignalID(p.ID),
		Timestamp:    p.Timestamp,
		Approved:     approved,
		Overridden:   overridden,
		InputCount:   len(p.Inputs),
		AgreeCount:   p.AgreementCount(),
	}
	if err := s.executionLog.AppendExecution(entry); err != nil {
		return errors.Wrap(ErrLogUnavailable, err.Error())
	}
	return nil
}
