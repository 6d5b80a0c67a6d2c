package mqtt

import (
	"crypto/tls"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"sonnen-mqtt-bridge/internal/config"
	bridgeerrors "sonnen-mqtt-bridge/internal/errors"
	"sonnen-mqtt-bridge/internal/logger"
	"sonnen-mqtt-bridge/internal/metrics"
)

const (
	publishQoS    = 0
	publishRetain = false
)

// ClientFactory builds the paho client from the prepared options
type ClientFactory func(opts *paho.ClientOptions) paho.Client

// Publisher mirrors metric values to the broker under {rootTopic}/{key}.
// The connection is created lazily on the first publish and re-established on
// demand; publishing never blocks on delivery and never returns an error.
type Publisher struct {
	settings   config.MQTTSettings
	metrics    metrics.MetricsCollector
	newClient  ClientFactory
	errHandler *bridgeerrors.ErrorHandler
	log        logger.ILogger

	mu     sync.Mutex
	client paho.Client
}

// NewPublisher creates a publisher. No connection is made until the first
// EnsureConnected or Publish.
func NewPublisher(settings config.MQTTSettings, collector metrics.MetricsCollector) *Publisher {
	if settings.Broker == "" {
		settings.Broker = config.DefaultBroker
	}
	if settings.ClientID == "" {
		settings.ClientID = config.DefaultClientID
	}
	if settings.RootTopic == "" {
		settings.RootTopic = config.DefaultRootTopic
	}
	if settings.ConnectTimeout <= 0 {
		settings.ConnectTimeout = config.DefaultConnectTimeout * time.Second
	}
	if settings.KeepAlive <= 0 {
		settings.KeepAlive = config.DefaultKeepAlive * time.Second
	}
	if collector == nil {
		collector = metrics.NewNullMetrics()
	}

	log := logger.NewStandardLogger()
	return &Publisher{
		settings:   settings,
		metrics:    collector,
		newClient:  paho.NewClient,
		errHandler: bridgeerrors.NewErrorHandler(log),
		log:        log,
	}
}

// Topic returns the full topic for a metric key
func (p *Publisher) Topic(key string) string {
	return strings.TrimRight(p.settings.RootTopic, "/") + "/" + key
}

// Broker returns the configured broker URL
func (p *Publisher) Broker() string {
	return p.settings.Broker
}

func (p *Publisher) options() *paho.ClientOptions {
	opts := paho.NewClientOptions()
	opts.AddBroker(p.settings.Broker)
	opts.SetClientID(p.settings.ClientID)
	opts.SetUsername(p.settings.Username)
	opts.SetPassword(p.settings.Password)
	opts.SetCleanSession(true)
	opts.SetKeepAlive(p.settings.KeepAlive)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectTimeout(p.settings.ConnectTimeout)
	// Reconnection happens on demand in EnsureConnected
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	// #nosec G402 - skipping verification is an explicit operator choice for self-signed brokers
	opts.SetTLSConfig(&tls.Config{
		InsecureSkipVerify: p.settings.InsecureSkipVerify,
		MinVersion:         tls.VersionTLS12,
	})

	opts.SetOnConnectHandler(func(client paho.Client) {
		p.log.LogInfo("✅ Connected to MQTT broker %s as %s", p.settings.Broker, p.settings.ClientID)
	})
	opts.SetConnectionLostHandler(func(client paho.Client, err error) {
		p.log.LogWarn("🔌 Disconnected from MQTT broker %s: %v", p.settings.Broker, err)
	})
	return opts
}

// EnsureConnected creates the client on first use and connects it when it is
// not connected. It is a no-op while the connection is up. Every call on a
// disconnected client makes a fresh attempt bounded by ConnectTimeout.
func (p *Publisher) EnsureConnected() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := p.connectLocked()
	return err
}

func (p *Publisher) connectLocked() (paho.Client, error) {
	if p.client == nil {
		p.log.LogDebug("🔧 Creating MQTT client for %s (client id %s)", p.settings.Broker, p.settings.ClientID)
		p.client = p.newClient(p.options())
	}
	if p.client.IsConnected() {
		return p.client, nil
	}

	p.log.LogDebug("🔄 Connecting to MQTT broker %s...", p.settings.Broker)
	token := p.client.Connect()
	if !token.WaitTimeout(p.settings.ConnectTimeout) {
		return nil, bridgeerrors.NewPublishError("connect",
			fmt.Errorf("timed out after %v", p.settings.ConnectTimeout), p.settings.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, bridgeerrors.NewPublishError("connect", err, p.settings.Broker)
	}
	return p.client, nil
}

// Publish sends value to {rootTopic}/{key} with QoS 0 and no retain flag.
// Failures are logged and counted, never returned.
func (p *Publisher) Publish(key string, value interface{}) {
	topic := p.Topic(key)
	payload := FormatValue(value)

	p.mu.Lock()
	client, err := p.connectLocked()
	p.mu.Unlock()
	if err != nil {
		p.fail(err, topic)
		return
	}

	p.log.LogDebug("📤 %s -> %s", topic, payload)
	token := client.Publish(topic, publishQoS, publishRetain, payload)
	go p.observe(token, topic)
}

// observe waits for the delivery outcome off the caller's goroutine
func (p *Publisher) observe(token paho.Token, topic string) {
	if !token.WaitTimeout(p.settings.ConnectTimeout) {
		p.fail(fmt.Errorf("no acknowledgement from client within %v", p.settings.ConnectTimeout), topic)
		return
	}
	if err := token.Error(); err != nil {
		p.fail(err, topic)
		return
	}
	p.metrics.IncrementPublishes()
}

func (p *Publisher) fail(err error, topic string) {
	publishErr, ok := err.(*bridgeerrors.PublishError)
	if !ok {
		publishErr = bridgeerrors.NewPublishError("publish", err, p.settings.Broker)
	}
	publishErr.Topic = topic
	p.metrics.IncrementPublishErrors()
	p.errHandler.Handle(publishErr)
}

// IsConnected reports whether the client exists and is connected
func (p *Publisher) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.client != nil && p.client.IsConnected()
}

// Disconnect closes the connection if there is one
func (p *Publisher) Disconnect() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
		p.log.LogInfo("🔌 Disconnected from MQTT broker %s", p.settings.Broker)
	}
}

// FormatValue renders a metric value as an MQTT payload: 200, 40.5, true.
// Negative zero is written as 0.
func FormatValue(value interface{}) string {
	switch v := value.(type) {
	case float64:
		return formatFloat(v)
	case float32:
		return formatFloat(float64(v))
	case interface{ Float64() float64 }:
		return formatFloat(v.Float64())
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func formatFloat(v float64) string {
	if v == 0 {
		// also folds -0
		return "0"
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
