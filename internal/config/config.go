package config

import (
	"fmt"
	"os"
	"strings"

	bridgeerrors "sonnen-mqtt-bridge/internal/errors"
	"sonnen-mqtt-bridge/internal/logger"

	"gopkg.in/yaml.v3"
)

// Documented defaults, used for every key the configuration file leaves out
const (
	DefaultSonnenHost       = "192.168.68.51"
	DefaultSonnenSerial     = "SB00000"
	DefaultAPIVersion       = 2
	DefaultSonnenTimeout    = 10000 // milliseconds
	DefaultBroker           = "mqtt://localhost:1883"
	DefaultClientID         = "Sonnen-MQTT"
	DefaultRootTopic        = "Sonnen"
	DefaultKeepAlive        = 30 // seconds
	DefaultConnectTimeout   = 10 // seconds
	DefaultPollInterval     = 10000
	DefaultErrorGracePeriod = 15
	DefaultSummaryInterval  = 30
	DefaultCachePath        = "accessories.yaml"
	DefaultHTTPPort         = 9090
)

// Config represents the complete application configuration
type Config struct {
	Sonnen      SonnenConfig         `yaml:"sonnen"`
	MQTT        MQTTConfig           `yaml:"mqtt"`
	Polling     PollingConfig        `yaml:"polling"`
	Accessories AccessoriesConfig    `yaml:"accessories"`
	HTTP        HTTPConfig           `yaml:"http"`
	Logging     logger.LoggingConfig `yaml:"logging"`

	// Source is the file the configuration was read from, empty for defaults
	Source string `yaml:"-"`
}

// SonnenConfig describes how to reach the battery's local API
type SonnenConfig struct {
	Host       string `yaml:"host"`
	Token      string `yaml:"token"`
	Serial     string `yaml:"serial"`
	APIVersion int    `yaml:"api_version"`
	Timeout    int    `yaml:"timeout"` // HTTP timeout in milliseconds
}

// MQTTConfig contains MQTT broker settings
type MQTTConfig struct {
	Broker             string `yaml:"broker"`
	Username           string `yaml:"username"`
	Password           string `yaml:"password"`
	ClientID           string `yaml:"client_id"`
	RootTopic          string `yaml:"root_topic"`
	KeepAlive          int    `yaml:"keep_alive"`      // seconds
	ConnectTimeout     int    `yaml:"connect_timeout"` // seconds
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}

// PollingConfig controls the synchronization loop
type PollingConfig struct {
	Interval         int `yaml:"interval"`           // milliseconds
	ErrorGracePeriod int `yaml:"error_grace_period"` // seconds before the device is reported offline
	SummaryInterval  int `yaml:"summary_interval"`   // seconds between summary log lines
}

// AccessoriesConfig locates the accessory registration cache
type AccessoriesConfig struct {
	CachePath string `yaml:"cache_path"`
}

// HTTPConfig configures the operator HTTP server
type HTTPConfig struct {
	Port     int  `yaml:"port"`
	Disabled bool `yaml:"disabled"`
}

// Default returns a configuration populated with the documented defaults
func Default() *Config {
	return &Config{
		Sonnen: SonnenConfig{
			Host:       DefaultSonnenHost,
			Serial:     DefaultSonnenSerial,
			APIVersion: DefaultAPIVersion,
			Timeout:    DefaultSonnenTimeout,
		},
		MQTT: MQTTConfig{
			Broker:         DefaultBroker,
			ClientID:       DefaultClientID,
			RootTopic:      DefaultRootTopic,
			KeepAlive:      DefaultKeepAlive,
			ConnectTimeout: DefaultConnectTimeout,
		},
		Polling: PollingConfig{
			Interval:         DefaultPollInterval,
			ErrorGracePeriod: DefaultErrorGracePeriod,
			SummaryInterval:  DefaultSummaryInterval,
		},
		Accessories: AccessoriesConfig{CachePath: DefaultCachePath},
		HTTP:        HTTPConfig{Port: DefaultHTTPPort},
		Logging:     logger.LoggingConfig{Level: logger.LogLevelInfo},
	}
}

// SearchPaths lists the locations tried by LoadConfig, in order
func SearchPaths(configPath string) []string {
	return []string{
		configPath,
		"/etc/sonnen-mqtt-bridge/config.yaml",
		"/etc/sonnen-mqtt-bridge.yaml",
		"./config.yaml",
	}
}

// LoadConfig loads configuration from the first readable file in SearchPaths.
// When no file exists the defaults are returned.
func LoadConfig(configPath string) (*Config, error) {
	var data []byte
	var usedPath string

	for _, path := range SearchPaths(configPath) {
		if path == "" {
			continue
		}
		// #nosec G304 - Paths are the CLI argument or a hardcoded list of configuration file locations
		content, err := os.ReadFile(path)
		if err == nil {
			data = content
			usedPath = path
			break
		}
	}

	if usedPath == "" {
		logger.LogWarn("⚠️  No configuration file found in %v, using defaults", SearchPaths(configPath))
		return Default(), nil
	}

	config, err := parse(data)
	if err != nil {
		return nil, bridgeerrors.NewConfigError("load "+usedPath, err, "")
	}
	config.Source = usedPath

	logger.LogInfo("✅ Configuration loaded successfully from %s", usedPath)
	return config, nil
}

// LoadConfigFromString loads configuration from a YAML string (for testing)
func LoadConfigFromString(yamlContent string) (*Config, error) {
	return parse([]byte(yamlContent))
}

func parse(data []byte) (*Config, error) {
	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing configuration: %w", err)
	}
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// applyDefaults fills keys that were present in the file but left empty
func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Sonnen.Host) == "" {
		c.Sonnen.Host = DefaultSonnenHost
	}
	if c.Sonnen.Serial == "" {
		c.Sonnen.Serial = DefaultSonnenSerial
	}
	if c.MQTT.Broker == "" {
		c.MQTT.Broker = DefaultBroker
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = DefaultClientID
	}
	if c.MQTT.RootTopic == "" {
		c.MQTT.RootTopic = DefaultRootTopic
	}
	if c.Accessories.CachePath == "" {
		c.Accessories.CachePath = DefaultCachePath
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Sonnen.APIVersion < 1 {
		return bridgeerrors.NewConfigError("validate", fmt.Errorf("must be at least 1, got %d", c.Sonnen.APIVersion), "sonnen.api_version")
	}
	if c.Sonnen.Timeout < 0 {
		return bridgeerrors.NewConfigError("validate", fmt.Errorf("must be non-negative"), "sonnen.timeout")
	}
	if !strings.Contains(c.MQTT.Broker, "://") {
		return bridgeerrors.NewConfigError("validate", fmt.Errorf("broker %q must be a URL such as mqtt://host:1883", c.MQTT.Broker), "mqtt.broker")
	}
	if strings.ContainsAny(c.MQTT.RootTopic, "+#") {
		return bridgeerrors.NewConfigError("validate", fmt.Errorf("wildcards are not allowed in a publish topic"), "mqtt.root_topic")
	}
	if c.MQTT.KeepAlive < 0 {
		return bridgeerrors.NewConfigError("validate", fmt.Errorf("must be non-negative"), "mqtt.keep_alive")
	}
	if c.MQTT.ConnectTimeout < 0 {
		return bridgeerrors.NewConfigError("validate", fmt.Errorf("must be non-negative"), "mqtt.connect_timeout")
	}
	if c.Polling.Interval <= 0 {
		return bridgeerrors.NewConfigError("validate", fmt.Errorf("must be positive"), "polling.interval")
	}
	if c.Polling.ErrorGracePeriod < 0 {
		return bridgeerrors.NewConfigError("validate", fmt.Errorf("must be non-negative"), "polling.error_grace_period")
	}
	if c.Polling.SummaryInterval < 0 {
		return bridgeerrors.NewConfigError("validate", fmt.Errorf("must be non-negative"), "polling.summary_interval")
	}
	if !c.HTTP.Disabled && (c.HTTP.Port <= 0 || c.HTTP.Port > 65535) {
		return bridgeerrors.NewConfigError("validate", fmt.Errorf("port %d out of range", c.HTTP.Port), "http.port")
	}
	if !logger.IsValidLevel(c.Logging.Level) {
		return bridgeerrors.NewConfigError("validate", fmt.Errorf("unknown level %q", c.Logging.Level), "logging.level")
	}
	return nil
}
