package app

import (
	"context"
	"fmt"

	"sonnen-mqtt-bridge/internal/config"
	"sonnen-mqtt-bridge/internal/hap"
	"sonnen-mqtt-bridge/internal/health"
	"sonnen-mqtt-bridge/internal/metrics"
	"sonnen-mqtt-bridge/internal/mqtt"
	"sonnen-mqtt-bridge/internal/sonnen"
)

// BatteryClient is the contract for the battery API client
type BatteryClient interface {
	Serial() string
	FetchConfiguration(ctx context.Context) (*sonnen.Configuration, error)
	FetchLatestData(ctx context.Context) (*sonnen.LatestData, error)
	ReloadBatteryStatus(ctx context.Context) error
	ReloadInverterStatus(ctx context.Context) error
	Snapshot() sonnen.Snapshot
}

// PublisherInterface is the contract for the MQTT metric publisher
type PublisherInterface interface {
	Publish(key string, value interface{})
	EnsureConnected() error
	IsConnected() bool
	Disconnect()
	Broker() string
}

// ApplicationBuilder constructs an Application, creating defaults for
// every dependency that is not overridden
type ApplicationBuilder struct {
	config    *config.Config
	client    BatteryClient
	publisher PublisherInterface
	registry  *hap.Registry
	metrics   metrics.MetricsCollector
	monitor   *health.Monitor
}

// NewApplicationBuilder creates a builder for cfg
func NewApplicationBuilder(cfg *config.Config) *ApplicationBuilder {
	return &ApplicationBuilder{config: cfg}
}

// WithClient sets a custom battery client
func (b *ApplicationBuilder) WithClient(client BatteryClient) *ApplicationBuilder {
	b.client = client
	return b
}

// WithPublisher sets a custom publisher
func (b *ApplicationBuilder) WithPublisher(pub PublisherInterface) *ApplicationBuilder {
	b.publisher = pub
	return b
}

// WithRegistry sets the accessory registry
func (b *ApplicationBuilder) WithRegistry(registry *hap.Registry) *ApplicationBuilder {
	b.registry = registry
	return b
}

// WithMetrics sets the metrics collector. A *metrics.PrometheusMetrics also
// gets the snapshot gauges and is served on /metrics.
func (b *ApplicationBuilder) WithMetrics(collector metrics.MetricsCollector) *ApplicationBuilder {
	b.metrics = collector
	return b
}

// WithHealthMonitor sets a custom health monitor
func (b *ApplicationBuilder) WithHealthMonitor(monitor *health.Monitor) *ApplicationBuilder {
	b.monitor = monitor
	return b
}

// Build constructs the Application
func (b *ApplicationBuilder) Build() (*Application, error) {
	if b.config == nil {
		return nil, fmt.Errorf("config is required")
	}

	if b.metrics == nil {
		b.metrics = metrics.NewPrometheusMetrics()
	}
	if b.client == nil {
		b.client = sonnen.NewClient(config.NewSonnenSettings(b.config))
	}
	if b.publisher == nil {
		b.publisher = mqtt.NewPublisher(config.NewMQTTSettings(b.config), b.metrics)
	}
	if b.registry == nil {
		b.registry = hap.NewRegistry()
	}

	polling := config.NewPollingSettings(b.config)
	if b.monitor == nil {
		b.monitor = health.NewMonitor(polling.ErrorGracePeriod)
	}

	return newApplication(b.config, b.client, b.publisher, b.registry, b.metrics, b.monitor, polling), nil
}
