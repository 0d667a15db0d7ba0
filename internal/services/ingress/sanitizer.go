package ingress

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/Butchman2000/Trade-Model-Consideration/internal/domain"
)

// ErrPacketRejected covers every sanitizer rejection: malformed structure,
// oversized fields, and stale or future timestamps. The wrapped message
// carries the concrete cause.
var ErrPacketRejected = errors.New("packet rejected")

const (
	// DefaultMaxFieldLength bounds the serialized size of any packet field.
	DefaultMaxFieldLength = 4096
	// FreshnessWindow is how old a packet timestamp may be.
	FreshnessWindow = 5 * time.Minute

	timestampLayout = "2006-01-02T15:04:05Z"
)

// Sanitizer validates the shape and freshness of incoming signal packets.
// Packets are rejected wholesale; there are no partial validation results.
type Sanitizer struct {
	maxFieldLength int
	now            func() time.Time
}

// NewSanitizer creates a sanitizer. A non-positive maxFieldLength selects
// the default.
func NewSanitizer(maxFieldLength int) *Sanitizer {
	if maxFieldLength <= 0 {
		maxFieldLength = DefaultMaxFieldLength
	}
	return &Sanitizer{
		maxFieldLength: maxFieldLength,
		now:            time.Now,
	}
}

// ParseTimestamp parses a wire-form UTC ISO-8601 timestamp
// (e.g. 2025-04-09T14:33:00Z).
func ParseTimestamp(value string) (time.Time, error) {
	ts, err := time.Parse(timestampLayout, value)
	if err != nil {
		return time.Time{}, errors.Wrapf(ErrPacketRejected, "invalid timestamp format %q, expected ISO format (e.g. 2025-04-09T14:33:00Z)", value)
	}
	return ts, nil
}

// Sanitize checks packet structure, field sizes and timestamp freshness.
// Any failure is reported as ErrPacketRejected with a human-readable cause.
func (s *Sanitizer) Sanitize(p *domain.SignalPacket) error {
	if p == nil {
		return errors.Wrap(ErrPacketRejected, "malformed packet: not a structured packet")
	}

	for name, value := range map[string]string{
		"id":             p.ID,
		"symbol":         p.Symbol,
		"confidence_tag": p.ConfidenceTag,
		"inputs":         fmt.Sprintf("%v", p.Inputs),
		"risk_pct":       p.RiskPct.String(),
	} {
		if len(value) > s.maxFieldLength {
			return errors.Wrapf(ErrPacketRejected, "suspiciously large field %q in packet", name)
		}
	}

	return s.validateTimestamp(p.Timestamp)
}

func (s *Sanitizer) validateTimestamp(ts time.Time) error {
	if ts.IsZero() {
		return errors.Wrap(ErrPacketRejected, "missing timestamp")
	}

	now := s.now().UTC()
	if ts.After(now) {
		return errors.Wrap(ErrPacketRejected, "timestamp is in the future")
	}
	if now.Sub(ts) > FreshnessWindow {
		return errors.Wrap(ErrPacketRejected, "timestamp is older than 5 minutes")
	}
	return nil
}
