package game

import "time"

// IdleTracker decides when a nearly-still table should be forced to rest.
// A ball faster than moving refreshes LastMovement; a ball faster than
// still keeps the current tick unsettled.
type IdleTracker struct {
	LastMovement time.Duration

	moving  float64
	still   float64
	after   time.Duration
	settled bool
}

func NewIdleTracker(moving, still float64, after time.Duration, now time.Duration) IdleTracker {
	return IdleTracker{LastMovement: now, moving: moving, still: still, after: after, settled: true}
}

// BeginTick starts a new observation window.
func (t *IdleTracker) BeginTick() {
	t.settled = true
}

// Observe feeds one live ball's speed for the current tick.
func (t *IdleTracker) Observe(speed float64, now time.Duration) {
	if speed > t.moving {
		t.LastMovement = now
	}
	if speed > t.still {
		t.settled = false
	}
}

// Touch records deliberate motion, e.g. a strike.
func (t *IdleTracker) Touch(now time.Duration) {
	t.LastMovement = now
}

// Settled reports whether no ball exceeded the still threshold this tick.
func (t *IdleTracker) Settled() bool {
	return t.settled
}

// ShouldStop reports whether the table has been settled past the timeout.
func (t *IdleTracker) ShouldStop(now time.Duration) bool {
	return t.settled && now-t.LastMovement > t.after
}
