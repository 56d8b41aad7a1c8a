// Package polltimer provides a millisecond polling timer over a free-running
// monotonic tick. Timers are plain values owned by whoever polls them; they
// are not safe for concurrent use.
package polltimer

import "time"

// Clock is a free-running millisecond tick source.
type Clock interface {
	NowMS() int64
}

type monotonic struct{ start time.Time }

func (m monotonic) NowMS() int64 { return time.Since(m.start).Milliseconds() }

// System is the process-wide tick, anchored at process start.
var System Clock = monotonic{start: time.Now()}

// NowMS returns the process-wide tick in milliseconds.
func NowMS() int64 { return System.NowMS() }

// NowS returns the process-wide tick in whole seconds.
func NowS() int64 { return System.NowMS() / 1000 }

// Timer is a one-shot or auto-reload timer that only advances when polled.
// The zero value is a stopped timer that was never started.
type Timer struct {
	// Clock defaults to System when nil.
	Clock Clock

	expire  int64
	period  int64
	enabled bool
	expired bool
	reload  bool
}

func (t *Timer) now() int64 {
	if t.Clock == nil {
		return System.NowMS()
	}
	return t.Clock.NowMS()
}

// Start arms the timer interval from now. Intervals below one millisecond
// are treated as one millisecond.
func (t *Timer) Start(interval time.Duration, reload bool) {
	ms := interval.Milliseconds()
	if ms < 1 {
		ms = 1
	}
	t.period = ms
	t.reload = reload
	t.expired = false
	t.enabled = true
	t.expire = t.now() + ms
}

// Reset re-arms the timer with its last interval. It returns false and does
// nothing if the timer was never started.
func (t *Timer) Reset() bool {
	if t.period == 0 {
		return false
	}
	t.expired = false
	t.enabled = true
	t.expire = t.now() + t.period
	return true
}

// Stop disables the timer and clears a latched expiry.
func (t *Timer) Stop() {
	t.enabled = false
	t.expired = false
}

// Expired polls the timer.
//
// In reload mode the next expiry is re-anchored to the original phase, so a
// late poll does not shift later period boundaries, and the flag is never
// latched. In one-shot mode the flag latches until Stop, Reset or Start.
func (t *Timer) Expired() bool {
	if !t.enabled {
		return false
	}
	now := t.now()
	if now < t.expire {
		return t.expired
	}
	if t.reload {
		overflow := now - t.expire
		t.expire = now - overflow%t.period + t.period
		t.expired = false
		return true
	}
	t.expired = true
	return true
}

// Enabled reports whether the timer is armed.
func (t *Timer) Enabled() bool { return t.enabled }

// IsRunning reports whether the timer is armed and has not latched an expiry.
func (t *Timer) IsRunning() bool { return t.enabled && !t.expired }

// Period returns the last interval passed to Start.
func (t *Timer) Period() time.Duration { return time.Duration(t.period) * time.Millisecond }

// ExpireAt returns the tick at which the timer next expires.
func (t *Timer) ExpireAt() int64 { return t.expire }
