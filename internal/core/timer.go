package core

import "time"

// Throttle limits how often a periodic action fires, e.g. progress reports
// while stepping a long simulation.
type Throttle struct {
	every time.Duration
	last  time.Time
	now   func() time.Time
}

// NewThrottle constructs a Throttle that fires at most once per interval.
func NewThrottle(every time.Duration) *Throttle {
	if every <= 0 {
		every = time.Second
	}
	return &Throttle{every: every, now: time.Now}
}

// Ready reports whether the interval has elapsed since the last firing. The
// first call always fires.
func (t *Throttle) Ready() bool {
	now := t.now()
	if !t.last.IsZero() && now.Sub(t.last) < t.every {
		return false
	}
	t.last = now
	return true
}
