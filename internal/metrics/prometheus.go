package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sonnen_bridge"

// PrometheusMetrics tracks application metrics on its own registry
type PrometheusMetrics struct {
	registry *prometheus.Registry

	fetchesTotal       *prometheus.CounterVec
	fetchErrorsTotal   *prometheus.CounterVec
	publishesTotal     prometheus.Counter
	publishErrorsTotal prometheus.Counter
	deviceOnline       prometheus.Gauge
	cycleDuration      prometheus.Histogram
}

// NewPrometheusMetrics creates a new Prometheus metrics collector.
// Process and Go runtime collectors are registered alongside the bridge metrics.
func NewPrometheusMetrics() *PrometheusMetrics {
	pm := &PrometheusMetrics{
		registry: prometheus.NewRegistry(),
		fetchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Total number of successful battery API requests",
		}, []string{"endpoint"}),
		fetchErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_errors_total",
			Help:      "Total number of failed battery API requests",
		}, []string{"endpoint"}),
		publishesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mqtt_publishes_total",
			Help:      "Total number of MQTT publish operations",
		}),
		publishErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mqtt_errors_total",
			Help:      "Total number of MQTT publish errors",
		}),
		deviceOnline: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "device_online",
			Help:      "Current battery status (1 = online, 0 = offline)",
		}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of one fetch and fan-out cycle",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}

	pm.deviceOnline.Set(1) // Start as online
	pm.registry.MustRegister(
		pm.fetchesTotal,
		pm.fetchErrorsTotal,
		pm.publishesTotal,
		pm.publishErrorsTotal,
		pm.deviceOnline,
		pm.cycleDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return pm
}

// MustRegister adds further collectors, such as a SnapshotCollector
func (pm *PrometheusMetrics) MustRegister(cs ...prometheus.Collector) {
	pm.registry.MustRegister(cs...)
}

// Registry exposes the underlying registry
func (pm *PrometheusMetrics) Registry() *prometheus.Registry {
	return pm.registry
}

// Handler serves the registry in the Prometheus exposition format
func (pm *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(pm.registry, promhttp.HandlerOpts{})
}

// IncrementFetches increments the successful request counter for endpoint
func (pm *PrometheusMetrics) IncrementFetches(endpoint string) {
	pm.fetchesTotal.WithLabelValues(endpoint).Inc()
}

// IncrementFetchErrors increments the failed request counter for endpoint
func (pm *PrometheusMetrics) IncrementFetchErrors(endpoint string) {
	pm.fetchErrorsTotal.WithLabelValues(endpoint).Inc()
}

// IncrementPublishes increments the MQTT publish counter
func (pm *PrometheusMetrics) IncrementPublishes() {
	pm.publishesTotal.Inc()
}

// IncrementPublishErrors increments the MQTT error counter
func (pm *PrometheusMetrics) IncrementPublishErrors() {
	pm.publishErrorsTotal.Inc()
}

// SetDeviceStatus sets the device status (1 = online, 0 = offline)
func (pm *PrometheusMetrics) SetDeviceStatus(online bool) {
	if online {
		pm.deviceOnline.Set(1)
	} else {
		pm.deviceOnline.Set(0)
	}
}

// ObserveCycleDuration records a cycle duration
func (pm *PrometheusMetrics) ObserveCycleDuration(duration time.Duration) {
	pm.cycleDuration.Observe(duration.Seconds())
}
