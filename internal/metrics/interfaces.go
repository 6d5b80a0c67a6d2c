package metrics

import "time"

// MetricsCollector defines the interface for collecting application metrics.
// This abstraction allows for different implementations and keeps the
// components that report metrics independent of Prometheus.
//
// Implementations:
//   - PrometheusMetrics: Prometheus counters, gauges and histograms on a private registry
//   - NullMetrics: no-op implementation for tests and diagnostic runs
type MetricsCollector interface {
	// IncrementFetches counts a successful request to a battery API endpoint
	IncrementFetches(endpoint string)

	// IncrementFetchErrors counts a failed request to a battery API endpoint
	IncrementFetchErrors(endpoint string)

	// IncrementPublishes counts a message handed to the MQTT broker
	IncrementPublishes()

	// IncrementPublishErrors counts a message that could not be delivered
	IncrementPublishErrors()

	// SetDeviceStatus sets the current battery reachability
	// Parameters:
	//   - online: false once failures outlast the grace period
	SetDeviceStatus(online bool)

	// ObserveCycleDuration records the duration of one fetch and fan-out cycle
	ObserveCycleDuration(duration time.Duration)
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector
var _ MetricsCollector = (*PrometheusMetrics)(nil)
