package metrics

import "time"

// NullMetrics is a no-op implementation of MetricsCollector.
// Used by the diagnostic run and by tests that do not inspect metrics.
type NullMetrics struct{}

// NewNullMetrics creates a new NullMetrics instance
func NewNullMetrics() *NullMetrics {
	return &NullMetrics{}
}

// IncrementFetches is a no-op
func (nm *NullMetrics) IncrementFetches(endpoint string) {}

// IncrementFetchErrors is a no-op
func (nm *NullMetrics) IncrementFetchErrors(endpoint string) {}

// IncrementPublishes is a no-op
func (nm *NullMetrics) IncrementPublishes() {}

// IncrementPublishErrors is a no-op
func (nm *NullMetrics) IncrementPublishErrors() {}

// SetDeviceStatus is a no-op
func (nm *NullMetrics) SetDeviceStatus(online bool) {}

// ObserveCycleDuration is a no-op
func (nm *NullMetrics) ObserveCycleDuration(duration time.Duration) {}

// Compile-time verification that NullMetrics implements MetricsCollector
var _ MetricsCollector = (*NullMetrics)(nil)
