package health

import "time"

// DefaultGracePeriod is used when a zero grace period is configured
const DefaultGracePeriod = 15 * time.Second

// errorTracker counts consecutive failures and decides when the grace
// period after the first failure has run out
type errorTracker struct {
	consecutiveErrors  int
	firstErrorTime     time.Time
	gracePeriod        time.Duration
	statusSetToOffline bool
	now                func() time.Time
}

func newErrorTracker(gracePeriod time.Duration, now func() time.Time) *errorTracker {
	if gracePeriod <= 0 {
		gracePeriod = DefaultGracePeriod
	}
	return &errorTracker{gracePeriod: gracePeriod, now: now}
}

func (t *errorTracker) recordError() {
	t.consecutiveErrors++
	if t.firstErrorTime.IsZero() {
		t.firstErrorTime = t.now()
	}
}

func (t *errorTracker) reset() {
	t.consecutiveErrors = 0
	t.firstErrorTime = time.Time{}
	t.statusSetToOffline = false
}

// shouldMarkOffline is true once per failure sequence, after the grace period
func (t *errorTracker) shouldMarkOffline() bool {
	if t.statusSetToOffline || t.firstErrorTime.IsZero() {
		return false
	}
	return t.sinceFirstError() >= t.gracePeriod
}

func (t *errorTracker) inGracePeriod() bool {
	if t.firstErrorTime.IsZero() {
		return false
	}
	return t.sinceFirstError() < t.gracePeriod
}

func (t *errorTracker) sinceFirstError() time.Duration {
	if t.firstErrorTime.IsZero() {
		return 0
	}
	return t.now().Sub(t.firstErrorTime)
}
