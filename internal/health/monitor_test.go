package health

import (
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestMonitor(grace time.Duration, window int) (*Monitor, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	return newMonitor(grace, window, clock.now), clock
}

func TestMonitorStartsOnline(t *testing.T) {
	m := NewMonitor(0)
	if !m.IsOnline() {
		t.Error("expected online before any cycle")
	}
	if !m.GetLastSuccessTime().IsZero() {
		t.Error("expected zero last success time")
	}
	if m.tracker.gracePeriod != DefaultGracePeriod {
		t.Errorf("grace period = %v, want %v", m.tracker.gracePeriod, DefaultGracePeriod)
	}
}

func TestMonitorGracePeriod(t *testing.T) {
	m, clock := newTestMonitor(15*time.Second, 10)

	if m.RecordError() {
		t.Fatal("first error must not mark offline")
	}
	if !m.IsInGracePeriod() {
		t.Error("expected grace period after first error")
	}

	clock.advance(10 * time.Second)
	if m.RecordError() {
		t.Fatal("error inside grace period must not mark offline")
	}
	if !m.IsOnline() {
		t.Error("still online inside grace period")
	}

	clock.advance(5 * time.Second)
	if !m.RecordError() {
		t.Fatal("expected offline once grace period expired")
	}
	if m.IsOnline() {
		t.Error("expected offline")
	}
	if m.GetConsecutiveErrors() != 3 {
		t.Errorf("consecutive errors = %d, want 3", m.GetConsecutiveErrors())
	}
	if got := m.GetTimeSinceFirstError(); got != 15*time.Second {
		t.Errorf("time since first error = %v", got)
	}

	clock.advance(10 * time.Second)
	if m.RecordError() {
		t.Error("offline transition must be reported only once")
	}
}

func TestMonitorRecovery(t *testing.T) {
	m, clock := newTestMonitor(time.Second, 10)

	m.RecordError()
	clock.advance(2 * time.Second)
	m.RecordError()

	if m.IsOnline() {
		t.Fatal("expected offline")
	}

	clock.advance(time.Second)
	if !m.RecordSuccess() {
		t.Error("expected RecordSuccess to report recovery")
	}
	if !m.IsOnline() || m.GetConsecutiveErrors() != 0 || m.IsInGracePeriod() {
		t.Error("success did not reset the failure sequence")
	}
	if !m.GetLastSuccessTime().Equal(clock.t) {
		t.Errorf("last success = %v, want %v", m.GetLastSuccessTime(), clock.t)
	}
	if m.RecordSuccess() {
		t.Error("second success must not report recovery")
	}
}

func TestMonitorWindowCounts(t *testing.T) {
	m, _ := newTestMonitor(time.Minute, 4)

	m.RecordSuccess()
	m.RecordError()
	if m.GetSuccessCount() != 1 || m.GetErrorCount() != 1 {
		t.Fatalf("counts = %d/%d, want 1/1", m.GetSuccessCount(), m.GetErrorCount())
	}

	// push the first two outcomes out of the window
	for i := 0; i < 4; i++ {
		m.RecordSuccess()
	}
	if m.GetSuccessCount() != 4 || m.GetErrorCount() != 0 {
		t.Errorf("counts = %d/%d, want 4/0", m.GetSuccessCount(), m.GetErrorCount())
	}
}
