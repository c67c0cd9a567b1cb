package track

import "time"

// DefaultLogInterval is the global debounce between accepted log entries.
// Deliberately coarse: a single user action can fire the observer several
// times, and the limiter is the only deduplication across the structural and
// pointer detection paths.
const DefaultLogInterval = 750 * time.Millisecond

// Limiter is a global debounce across all entry kinds. Not safe for
// concurrent use; the tracker is single-threaded by design.
type Limiter struct {
	interval time.Duration
	now      func() time.Time
	last     time.Time
}

// NewLimiter creates a limiter with an injectable clock. A nil now defaults
// to time.Now.
func NewLimiter(interval time.Duration, now func() time.Time) *Limiter {
	if now == nil {
		now = time.Now
	}
	return &Limiter{interval: interval, now: now}
}

// Allow reports whether enough time has passed since the last accepted
// entry, and records acceptance when it has.
func (l *Limiter) Allow() bool {
	t := l.now()
	if !l.last.IsZero() && t.Sub(l.last) < l.interval {
		return false
	}
	l.last = t
	return true
}
