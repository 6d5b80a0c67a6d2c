package config

import "time"

// SonnenSettings contains only the battery API configuration
// Used for dependency injection to avoid coupling to full Config
type SonnenSettings struct {
	Host       string
	Token      string
	Serial     string
	APIVersion int
	Timeout    time.Duration
}

// NewSonnenSettings extracts battery API settings from full config
func NewSonnenSettings(cfg *Config) SonnenSettings {
	return SonnenSettings{
		Host:       cfg.Sonnen.Host,
		Token:      cfg.Sonnen.Token,
		Serial:     cfg.Sonnen.Serial,
		APIVersion: cfg.Sonnen.APIVersion,
		Timeout:    time.Duration(cfg.Sonnen.Timeout) * time.Millisecond,
	}
}

// MQTTSettings contains only MQTT-specific configuration
// Used for dependency injection to avoid coupling to full Config
type MQTTSettings struct {
	Broker             string
	Username           string
	Password           string
	ClientID           string
	RootTopic          string
	KeepAlive          time.Duration
	ConnectTimeout     time.Duration
	InsecureSkipVerify bool
}

// NewMQTTSettings extracts MQTT settings from full config
func NewMQTTSettings(cfg *Config) MQTTSettings {
	return MQTTSettings{
		Broker:             cfg.MQTT.Broker,
		Username:           cfg.MQTT.Username,
		Password:           cfg.MQTT.Password,
		ClientID:           cfg.MQTT.ClientID,
		RootTopic:          cfg.MQTT.RootTopic,
		KeepAlive:          time.Duration(cfg.MQTT.KeepAlive) * time.Second,
		ConnectTimeout:     time.Duration(cfg.MQTT.ConnectTimeout) * time.Second,
		InsecureSkipVerify: cfg.MQTT.InsecureSkipVerify,
	}
}

// PollingSettings contains polling loop configuration
// Used for dependency injection to avoid coupling to full Config
type PollingSettings struct {
	Interval         time.Duration
	ErrorGracePeriod time.Duration
	SummaryInterval  time.Duration
}

// NewPollingSettings extracts polling settings from full config
func NewPollingSettings(cfg *Config) PollingSettings {
	return PollingSettings{
		Interval:         time.Duration(cfg.Polling.Interval) * time.Millisecond,
		ErrorGracePeriod: time.Duration(cfg.Polling.ErrorGracePeriod) * time.Second,
		SummaryInterval:  time.Duration(cfg.Polling.SummaryInterval) * time.Second,
	}
}
