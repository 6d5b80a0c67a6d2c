package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Health states reported by /health
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthStatus represents the health check response
type HealthStatus struct {
	Status             string    `json:"status"`
	Timestamp          time.Time `json:"timestamp"`
	Uptime             string    `json:"uptime"`
	DeviceOnline       bool      `json:"device_online"`
	LastSuccessfulPoll string    `json:"last_successful_poll"`
	ErrorCount         int       `json:"error_count"`   // failed cycles in the recent window
	SuccessCount       int       `json:"success_count"` // successful cycles in the recent window
	MQTTConnected      bool      `json:"mqtt_connected"`
	Summary            *Summary  `json:"summary,omitempty"`
	Version            string    `json:"version,omitempty"`
}

// Summary holds the loop counters of the current summary period
type Summary struct {
	SuccessfulCycles int       `json:"successful_cycles"`
	FailedCycles     int       `json:"failed_cycles"`
	Since            time.Time `json:"since"`
}

// HealthChecker provides the device side of the health report
type HealthChecker interface {
	IsOnline() bool
	GetLastSuccessTime() time.Time
	GetErrorCount() int
	GetSuccessCount() int
}

// CycleStats reports the loop counters since the last summary log line
type CycleStats interface {
	GetPerformanceStats() (successfulCycles, failedCycles int, lastSummary time.Time)
}

// ConnectionChecker reports whether the MQTT connection is up
type ConnectionChecker interface {
	IsConnected() bool
}

// HealthHandler provides the /health endpoint
type HealthHandler struct {
	startTime     time.Time
	healthChecker HealthChecker
	broker        ConnectionChecker
	cycles        CycleStats
	version       string
	now           func() time.Time
}

// NewHealthHandler creates a health handler. broker may be nil.
func NewHealthHandler(healthChecker HealthChecker, broker ConnectionChecker, version string) *HealthHandler {
	return &HealthHandler{
		startTime:     time.Now(),
		healthChecker: healthChecker,
		broker:        broker,
		version:       version,
		now:           time.Now,
	}
}

// WithCycleStats adds the loop's summary counters to the report
func (hh *HealthHandler) WithCycleStats(cycles CycleStats) *HealthHandler {
	hh.cycles = cycles
	return hh
}

// ServeHTTP answers 503 when unhealthy and 200 otherwise
func (hh *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := hh.getHealthStatus()

	w.Header().Set("Content-Type", "application/json")

	statusCode := http.StatusOK
	if status.Status == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}
	w.WriteHeader(statusCode)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(status); err != nil {
		http.Error(w, fmt.Sprintf("Failed to encode health status: %v", err), http.StatusInternalServerError)
	}
}

func (hh *HealthHandler) getHealthStatus() HealthStatus {
	now := hh.now()

	isOnline := hh.healthChecker.IsOnline()
	lastSuccess := hh.healthChecker.GetLastSuccessTime()
	errorCount := hh.healthChecker.GetErrorCount()
	successCount := hh.healthChecker.GetSuccessCount()

	lastPollStr := "never"
	if !lastSuccess.IsZero() {
		lastPollStr = formatAgo(now.Sub(lastSuccess))
	}

	status := StatusHealthy
	if !isOnline {
		status = StatusUnhealthy
	} else if total := errorCount + successCount; errorCount > 0 && total > 0 {
		errorRate := float64(errorCount) / float64(total) * 100.0
		if errorRate > 50.0 {
			status = StatusUnhealthy
		} else if errorRate > 20.0 {
			status = StatusDegraded
		}
	}

	connected := false
	if hh.broker != nil {
		connected = hh.broker.IsConnected()
	}

	var summary *Summary
	if hh.cycles != nil {
		succeeded, failed, since := hh.cycles.GetPerformanceStats()
		summary = &Summary{SuccessfulCycles: succeeded, FailedCycles: failed, Since: since}
	}

	return HealthStatus{
		Status:             status,
		Timestamp:          now,
		Uptime:             formatDuration(now.Sub(hh.startTime)),
		DeviceOnline:       isOnline,
		LastSuccessfulPoll: lastPollStr,
		ErrorCount:         errorCount,
		SuccessCount:       successCount,
		MQTTConnected:      connected,
		Summary:            summary,
		Version:            hh.version,
	}
}

func formatAgo(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%d seconds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(d.Minutes()))
	default:
		return fmt.Sprintf("%d hours ago", int(d.Hours()))
	}
}

// formatDuration formats a duration in human-readable form
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%d minutes", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%d hours %d minutes", int(d.Hours()), int(d.Minutes())%60)
	default:
		return fmt.Sprintf("%d days %d hours", int(d.Hours())/24, int(d.Hours())%24)
	}
}
