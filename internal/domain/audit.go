package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// OverrideRecord is the plaintext audit entry appended for every manual
// override. Exposed only to internal reviewers, never externally.
type OverrideRecord struct {
	SignalID      string    `json:"signal_id"`
	Timestamp     time.Time `json:"timestamp"`
	User          string    `json:"user"`
	Justification string    `json:"justification"`
}

// ExecutionLogEntry is the obfuscated compliance entry written for every
// confirmation outcome. It stores a one-way hash of the signal id plus
// aggregate counts, so trade identity cannot be reconstructed from the log
// while auditability is preserved.
type ExecutionLogEntry struct {
	SignalIDHash string    `json:"signal_id_hash"`
	Timestamp    time.Time `json:"timestamp"`
	Approved     bool      `json:"approved"`
	Overridden   bool      `json:"overridden"`
	InputCount   int       `json:"input_count"`
	AgreeCount   int       `json:"agree_count"`
}

// ComplianceSummary exposes aggregate counts only.
type ComplianceSummary struct {
	ExecutionsLogged int `json:"executions_logged"`
	ApprovedTrades   int `json:"approved_trades"`
	OverridesUsed    int `json:"overrides_used"`
}

// HashSignalID returns the hex-encoded sha256 of a signal id.
func HashSignalID(id string) string {
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])
}
