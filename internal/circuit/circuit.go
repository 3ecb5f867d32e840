// Package circuit wraps sony/gobreaker for per-venue REST calls: repeated
// failures against one venue's API open the breaker so a pull adapter stops
// hammering a degraded endpoint between poll ticks, instead of retrying a
// doomed call on every single instrument. This is independent from the
// tracker's own fixed-backoff reconnect policy (spec.md §4.2), which governs
// the venue *connection*, not individual REST calls.
package circuit

import (
	"time"

	"github.com/sony/gobreaker"
)

// Breaker wraps one venue's gobreaker.CircuitBreaker, grounded on the
// teacher's infra/breakers.Breaker.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// New builds a breaker for the named venue: it trips after 3 consecutive
// failures, or after a failure ratio above 5% once at least 20 requests have
// been observed in the rolling interval.
func New(name string) *Breaker {
	st := gobreaker.Settings{Name: name}
	st.Interval = 60 * time.Second
	st.Timeout = 60 * time.Second
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		if counts.ConsecutiveFailures >= 3 {
			return true
		}
		if counts.Requests < 20 {
			return false
		}
		return float64(counts.TotalFailures)/float64(counts.Requests) > 0.05
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(st)}
}

// Execute runs fn through the breaker, returning gobreaker.ErrOpenState when
// the breaker is open.
func (b *Breaker) Execute(fn func() (any, error)) (any, error) {
	return b.cb.Execute(fn)
}

// State reports the breaker's current state name ("closed", "open",
// "half-open").
func (b *Breaker) State() string {
	return b.cb.State().String()
}
