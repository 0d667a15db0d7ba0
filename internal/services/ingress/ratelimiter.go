package ingress

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

// ErrRateLimitExceeded signals a transient ingress rejection; retrying later
// is the caller's responsibility.
var ErrRateLimitExceeded = errors.New("rate limit exceeded")

const (
	// DefaultMaxPacketsPerSec is the nominal sustained rate. It is carried
	// for reporting only; admission is governed by the burst limit.
	DefaultMaxPacketsPerSec = 5
	// DefaultBurstLimit bounds submissions observed in any trailing second.
	DefaultBurstLimit = 10

	slidingWindow = time.Second
)

// RateLimiter bounds signal throughput with a sliding one-second window.
// State lives for the coordinator's lifetime only; nothing is shared across
// processes.
type RateLimiter struct {
	mu               sync.Mutex
	timestamps       []time.Time
	maxPacketsPerSec int
	burstLimit       int
}

// NewRateLimiter creates a limiter. Non-positive arguments select defaults.
func NewRateLimiter(maxPacketsPerSec, burstLimit int) *RateLimiter {
	if maxPacketsPerSec <= 0 {
		maxPacketsPerSec = DefaultMaxPacketsPerSec
	}
	if burstLimit <= 0 {
		burstLimit = DefaultBurstLimit
	}
	return &RateLimiter{
		maxPacketsPerSec: maxPacketsPerSec,
		burstLimit:       burstLimit,
	}
}

// Allow records a submission at now and reports whether the trailing-second
// count stays within the burst limit. Entries older than one second are
// evicted on every check.
func (r *RateLimiter) Allow(now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.timestamps = append(r.timestamps, now)

	kept := r.timestamps[:0]
	for _, ts := range r.timestamps {
		if now.Sub(ts) <= slidingWindow {
			kept = append(kept, ts)
		}
	}
	r.timestamps = kept

	return len(r.timestamps) <= r.burstLimit
}

// NominalRate returns the informational sustained-rate setting.
func (r *RateLimiter) NominalRate() int {
	return r.maxPacketsPerSec
}
