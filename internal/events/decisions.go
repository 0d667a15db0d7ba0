package events

import (
	"sync"
	"time"

	"github.com/Butchman2000/Trade-Model-Consideration/internal/domain"
)

// DecisionEvent is a domain event emitted for every finalized decision.
// Uses string fields to avoid float precision issues when consumed by web/UI layers.
type DecisionEvent struct {
	Timestamp     time.Time `json:"ts"`
	SignalID      string    `json:"signal_id"`
	Symbol        string    `json:"symbol"`
	FinalDecision string    `json:"final_decision"`
	Reason        string    `json:"reason"`
	RiskPct       string    `json:"risk_pct,omitempty"`
	MarginRisk    string    `json:"margin_risk,omitempty"`
}

// FromDecision converts a decision record into its event form.
func FromDecision(d domain.Decision) DecisionEvent {
	return DecisionEvent{
		Timestamp:     d.Timestamp,
		SignalID:      d.SignalID,
		Symbol:        d.Symbol,
		FinalDecision: string(d.FinalDecision),
		Reason:        d.Reason,
		RiskPct:       d.RiskPct.String(),
		MarginRisk:    d.MarginRisk,
	}
}

// DecisionBroadcaster fans out decision events to all subscribers via
// buffered channels. It keeps the API intentionally small so call sites can
// stay straightforward.
type DecisionBroadcaster struct {
	mu     sync.RWMutex
	subs   map[chan DecisionEvent]struct{}
	buffer int
}

// NewDecisionBroadcaster creates a broadcaster with the given per-subscriber
// buffer.
func NewDecisionBroadcaster(buffer int) *DecisionBroadcaster {
	if buffer < 1 {
		buffer = 64
	}
	return &DecisionBroadcaster{
		subs:   make(map[chan DecisionEvent]struct{}),
		buffer: buffer,
	}
}

// Publish sends the event to all subscribers, dropping if a reader is slow.
func (b *DecisionBroadcaster) Publish(e DecisionEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			// drop slow consumer
		}
	}
}

// Subscribe returns a channel that receives events until Unsubscribe is
// called.
func (b *DecisionBroadcaster) Subscribe() chan DecisionEvent {
	ch := make(chan DecisionEvent, b.buffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes the channel and closes it.
func (b *DecisionBroadcaster) Unsubscribe(ch chan DecisionEvent) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}
