package sonnen

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"sonnen-mqtt-bridge/internal/config"
	bridgeerrors "sonnen-mqtt-bridge/internal/errors"
	"sonnen-mqtt-bridge/internal/logger"
)

const displayName = "Sonnen"

// maxBodySize bounds a single API response
const maxBodySize = 1 << 20

// Client talks to the battery's local HTTP API and holds the last
// successfully fetched status records
type Client struct {
	settings   config.SonnenSettings
	httpClient *http.Client

	mu       sync.RWMutex
	battery  BatteryStatus
	inverter InverterStatus
}

// NewClient creates a client. Missing settings fall back to the defaults,
// so construction never fails.
func NewClient(settings config.SonnenSettings) *Client {
	if strings.TrimSpace(settings.Host) == "" {
		settings.Host = config.DefaultSonnenHost
	}
	if settings.Serial == "" {
		settings.Serial = config.DefaultSonnenSerial
	}
	if settings.APIVersion < 1 {
		settings.APIVersion = config.DefaultAPIVersion
	}
	if settings.Timeout <= 0 {
		settings.Timeout = config.DefaultSonnenTimeout * time.Millisecond
	}

	return &Client{
		settings:   settings,
		httpClient: &http.Client{Timeout: settings.Timeout},
	}
}

// Serial returns the configured battery serial number
func (c *Client) Serial() string {
	return c.settings.Serial
}

// DisplayName returns the name used for the battery
func (c *Client) DisplayName() string {
	return displayName
}

// URL builds the address of an API endpoint
func (c *Client) URL(endpoint string) string {
	return fmt.Sprintf("http://%s/api/v%d/%s", c.settings.Host, c.settings.APIVersion, endpoint)
}

// FetchConfiguration retrieves the device configuration
func (c *Client) FetchConfiguration(ctx context.Context) (*Configuration, error) {
	var cfg Configuration
	if err := c.fetchJSON(ctx, EndpointConfigurations, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FetchLatestData retrieves the combined latest data record
func (c *Client) FetchLatestData(ctx context.Context) (*LatestData, error) {
	var data LatestData
	if err := c.fetchJSON(ctx, EndpointLatestData, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// ReloadBatteryStatus fetches /status and replaces the held battery status.
// On error the previous record is kept.
func (c *Client) ReloadBatteryStatus(ctx context.Context) error {
	var status BatteryStatus
	if err := c.fetchJSON(ctx, EndpointStatus, &status); err != nil {
		return err
	}

	c.mu.Lock()
	c.battery = status
	c.mu.Unlock()
	return nil
}

// ReloadInverterStatus fetches /inverter and replaces the held inverter status.
// On error the previous record is kept.
func (c *Client) ReloadInverterStatus(ctx context.Context) error {
	var status InverterStatus
	if err := c.fetchJSON(ctx, EndpointInverter, &status); err != nil {
		return err
	}

	c.mu.Lock()
	c.inverter = status
	c.mu.Unlock()
	return nil
}

// BatteryStatus returns a copy of the held battery status
func (c *Client) BatteryStatus() BatteryStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.battery
}

// InverterStatus returns a copy of the held inverter status
func (c *Client) InverterStatus() InverterStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inverter
}

// Snapshot returns both held records read under one lock
func (c *Client) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{Battery: c.battery, Inverter: c.inverter}
}

// requiredKeys names one field each endpoint's record always carries, so an
// object of the wrong shape is rejected instead of decoding to a zero record
var requiredKeys = map[string]string{
	EndpointStatus:         "USOC",
	EndpointLatestData:     "USOC",
	EndpointInverter:       "pac_total",
	EndpointConfigurations: "DE_Software",
}

// fetchJSON performs an authenticated GET and decodes the JSON object into target
func (c *Client) fetchJSON(ctx context.Context, endpoint string, target interface{}) error {
	url := c.URL(endpoint)
	logger.LogTrace("🌐 GET %s", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return bridgeerrors.NewTransportError("create request", err, endpoint, url)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Auth-Token", c.settings.Token)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return bridgeerrors.NewTransportError("fetch", err, endpoint, url)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		transportErr := bridgeerrors.NewTransportError("fetch",
			fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))),
			endpoint, url)
		transportErr.StatusCode = resp.StatusCode
		return transportErr
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return bridgeerrors.NewTransportError("read body", err, endpoint, url)
	}

	trimmed := strings.TrimSpace(string(body))
	if !strings.HasPrefix(trimmed, "{") {
		return bridgeerrors.NewDecodeError("decode JSON", fmt.Errorf("expected a JSON object, got %.32q", trimmed), endpoint)
	}
	if key, ok := requiredKeys[endpoint]; ok {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(body, &fields); err != nil {
			return bridgeerrors.NewDecodeError("decode JSON", err, endpoint)
		}
		if _, found := fields[key]; !found {
			return bridgeerrors.NewDecodeError("decode JSON", fmt.Errorf("%s record has no %q field", endpoint, key), endpoint)
		}
	}
	if err := json.Unmarshal(body, target); err != nil {
		return bridgeerrors.NewDecodeError("decode JSON", err, endpoint)
	}

	logger.LogDebug("📥 %s fetched in %v (%d bytes)", endpoint, time.Since(start), len(body))
	return nil
}
