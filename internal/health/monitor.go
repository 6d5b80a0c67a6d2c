package health

import (
	"sync"
	"time"
)

// DefaultWindow is the number of recent cycles counted by GetErrorCount and GetSuccessCount
const DefaultWindow = 30

// Monitor tracks whether the battery answers and keeps a short history of
// cycle outcomes for the /health endpoint.
type Monitor struct {
	mu sync.RWMutex

	isOnline        bool
	lastErrorTime   time.Time
	lastSuccessTime time.Time
	tracker         *errorTracker

	// ring of recent outcomes, true for success
	window []bool
	next   int
	filled bool

	now func() time.Time
}

// NewMonitor creates a monitor that reports online until failures outlast gracePeriod
func NewMonitor(gracePeriod time.Duration) *Monitor {
	return newMonitor(gracePeriod, DefaultWindow, time.Now)
}

func newMonitor(gracePeriod time.Duration, window int, now func() time.Time) *Monitor {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Monitor{
		isOnline: true,
		tracker:  newErrorTracker(gracePeriod, now),
		window:   make([]bool, window),
		now:      now,
	}
}

// IsOnline returns whether the device is currently considered reachable
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isOnline
}

// RecordSuccess clears the failure sequence and returns true when the device
// was offline before this call
func (m *Monitor) RecordSuccess() (cameOnline bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tracker.reset()
	m.lastSuccessTime = m.now()
	m.record(true)

	cameOnline = !m.isOnline
	m.isOnline = true
	return cameOnline
}

// RecordError records a failed cycle and returns true exactly once per
// failure sequence, when the grace period has expired and the device has
// just been marked offline
func (m *Monitor) RecordError() (wentOffline bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastErrorTime = m.now()
	m.tracker.recordError()
	m.record(false)

	if m.tracker.shouldMarkOffline() {
		m.tracker.statusSetToOffline = true
		m.isOnline = false
		return true
	}
	return false
}

func (m *Monitor) record(success bool) {
	m.window[m.next] = success
	m.next = (m.next + 1) % len(m.window)
	if m.next == 0 {
		m.filled = true
	}
}

// GetConsecutiveErrors returns the length of the current failure sequence
func (m *Monitor) GetConsecutiveErrors() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tracker.consecutiveErrors
}

// IsInGracePeriod is true while failures have not yet lasted the grace period
func (m *Monitor) IsInGracePeriod() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tracker.inGracePeriod()
}

// GetTimeSinceFirstError returns how long the current failure sequence has lasted
func (m *Monitor) GetTimeSinceFirstError() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tracker.sinceFirstError()
}

func (m *Monitor) GetLastErrorTime() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErrorTime
}

func (m *Monitor) GetLastSuccessTime() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSuccessTime
}

// GetErrorCount returns failed cycles within the recent window
func (m *Monitor) GetErrorCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.count(false)
}

// GetSuccessCount returns successful cycles within the recent window
func (m *Monitor) GetSuccessCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.count(true)
}

func (m *Monitor) count(outcome bool) int {
	n := m.next
	if m.filled {
		n = len(m.window)
	}
	c := 0
	for _, v := range m.window[:n] {
		if v == outcome {
			c++
		}
	}
	return c
}
