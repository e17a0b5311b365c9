package throttle

import (
	"sync"
	"time"
)

// Throttle lets one event through per interval and counts the rest.
// It is safe for concurrent use.
type Throttle struct {
	mu         sync.Mutex
	interval   time.Duration
	last       time.Time
	suppressed int
}

// New creates a Throttle that passes at most one event per interval
func New(interval time.Duration) *Throttle {
	return &Throttle{interval: interval}
}

// Allow reports whether the event may pass. When it does, the number of
// events suppressed since the previous pass is returned and reset.
func (t *Throttle) Allow() (bool, int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	if !t.last.IsZero() && now.Sub(t.last) < t.interval {
		t.suppressed++
		return false, 0
	}

	dropped := t.suppressed
	t.last = now
	t.suppressed = 0
	return true, dropped
}
