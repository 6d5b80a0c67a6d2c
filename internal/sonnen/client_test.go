package sonnen

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"sonnen-mqtt-bridge/internal/config"
	bridgeerrors "sonnen-mqtt-bridge/internal/errors"
)

const statusJSON = `{
	"Apparent_output": 225, "BackupBuffer": "40", "BatteryCharging": false,
	"BatteryDischarging": true, "Consumption_W": 748, "Fac": 50.016,
	"FlowConsumptionBattery": true, "FlowConsumptionGrid": false,
	"FlowConsumptionProduction": true, "FlowGridBattery": false,
	"FlowProductionBattery": false, "FlowProductionGrid": false,
	"GridFeedIn_W": -200, "IsSystemInstalled": 1, "OperatingMode": "2",
	"Pac_total_W": 248, "Production_W": 500, "RSOC": 42, "Sac1": 75, "Sac2": null,
	"Sac3": null, "SystemStatus": "OnGrid", "Timestamp": "2025-11-29 21:10:50",
	"USOC": 40, "Uac": 229, "Ubat": 99, "dischargeNotAllowed": false,
	"generator_autostart": false
}`

const inverterJSON = `{"fac": 50.01, "iac_total": 1.2, "ibat": -2.5, "ipv": 0, "pac_microgrid": 0,
	"pac_total": 248.4, "pbat": 250, "phi": 0.99, "ppv": 0, "sac_total": 250,
	"tmax": 41.5, "uac": 229.3, "ubat": 99.1, "upv": 0}`

const configurationJSON = `{"CM_MarketingModuleCapacity": "10000", "CN_CascadingRole": "none",
	"DE_Software": "1.14.5", "EM_OperatingMode": "2", "IC_BatteryModules": "4"}`

// fakeDevice serves canned responses per endpoint
type fakeDevice struct {
	mu        sync.Mutex
	token     string
	responses map[string]string
	status    map[string]int
	requests  []*http.Request
}

func newFakeDevice(token string) *fakeDevice {
	return &fakeDevice{
		token: token,
		responses: map[string]string{
			"/api/v2/status":         statusJSON,
			"/api/v2/inverter":       inverterJSON,
			"/api/v2/configurations": configurationJSON,
			"/api/v2/latestdata":     `{"USOC": 40, "RSOC": 42, "FullChargeCapacity": 10000, "ic_status": {"statebms": "ready", "nrbatterymodules": 4}}`,
		},
		status: map[string]int{},
	}
}

func (d *fakeDevice) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.requests = append(d.requests, r)
	if r.Header.Get("Auth-Token") != d.token {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if code, ok := d.status[r.URL.Path]; ok {
		w.WriteHeader(code)
		return
	}
	body, ok := d.responses[r.URL.Path]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func newTestClient(t *testing.T, device *fakeDevice) *Client {
	t.Helper()
	server := httptest.NewServer(device)
	t.Cleanup(server.Close)

	return NewClient(config.SonnenSettings{
		Host:       server.URL[7:], // Remove "http://" prefix
		Token:      device.token,
		APIVersion: 2,
		Timeout:    2 * time.Second,
	})
}

func TestNewClientDefaults(t *testing.T) {
	client := NewClient(config.SonnenSettings{})

	if got := client.URL("status"); got != "http://192.168.68.51/api/v2/status" {
		t.Errorf("URL = %s", got)
	}
	if client.Serial() != "SB00000" {
		t.Errorf("Serial = %s, want SB00000", client.Serial())
	}
	if client.DisplayName() != "Sonnen" {
		t.Errorf("DisplayName = %s, want Sonnen", client.DisplayName())
	}
}

func TestURLUsesVersion(t *testing.T) {
	client := NewClient(config.SonnenSettings{Host: "battery.lan", APIVersion: 1})
	if got := client.URL("inverter"); got != "http://battery.lan/api/v1/inverter" {
		t.Errorf("URL = %s", got)
	}
}

func TestReloadBatteryStatus(t *testing.T) {
	device := newFakeDevice("test-token")
	client := newTestClient(t, device)

	if err := client.ReloadBatteryStatus(context.Background()); err != nil {
		t.Fatalf("ReloadBatteryStatus() error = %v", err)
	}

	status := client.BatteryStatus()
	if status.ProductionW != 500 || status.GridFeedInW != -200 {
		t.Errorf("unexpected power values: %+v", status)
	}
	if status.BackupBuffer.Float64() != 40 {
		t.Errorf("BackupBuffer = %v, want 40 (string on the wire)", status.BackupBuffer)
	}
	if status.Sac1 == nil || *status.Sac1 != 75 {
		t.Errorf("Sac1 = %v, want 75", status.Sac1)
	}
	if status.Sac2 != nil {
		t.Errorf("Sac2 = %v, want nil", *status.Sac2)
	}

	device.mu.Lock()
	req := device.requests[0]
	device.mu.Unlock()
	if req.Header.Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type header = %q", req.Header.Get("Content-Type"))
	}
}

func TestEmptyTokenStillSendsHeader(t *testing.T) {
	device := newFakeDevice("")
	client := newTestClient(t, device)

	if err := client.ReloadInverterStatus(context.Background()); err != nil {
		t.Fatalf("ReloadInverterStatus() error = %v", err)
	}
	device.mu.Lock()
	defer device.mu.Unlock()
	if _, present := device.requests[0].Header["Auth-Token"]; !present {
		t.Error("Auth-Token header missing")
	}
	if client.InverterStatus().PacTotal != 248.4 {
		t.Errorf("PacTotal = %v", client.InverterStatus().PacTotal)
	}
}

func TestFailedReloadKeepsPreviousRecord(t *testing.T) {
	device := newFakeDevice("test-token")
	client := newTestClient(t, device)
	ctx := context.Background()

	if err := client.ReloadBatteryStatus(ctx); err != nil {
		t.Fatal(err)
	}
	before := client.BatteryStatus()

	device.mu.Lock()
	device.status["/api/v2/status"] = http.StatusServiceUnavailable
	device.mu.Unlock()
	err := client.ReloadBatteryStatus(ctx)

	var transportErr *bridgeerrors.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %T: %v", err, err)
	}
	if transportErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d", transportErr.StatusCode)
	}
	if transportErr.Endpoint != EndpointStatus {
		t.Errorf("Endpoint = %s", transportErr.Endpoint)
	}
	if client.BatteryStatus() != before {
		t.Error("battery status changed after a failed reload")
	}
}

func TestUnauthorizedIsTransportError(t *testing.T) {
	device := newFakeDevice("right")
	client := newTestClient(t, device)
	client.settings.Token = "wrong"

	_, err := client.FetchConfiguration(context.Background())
	var transportErr *bridgeerrors.TransportError
	if !errors.As(err, &transportErr) || transportErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 TransportError, got %v", err)
	}
}

func TestMalformedBodyIsDecodeError(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"truncated", `{"USOC": 4`},
		{"array", `[1, 2, 3]`},
		{"null", `null`},
		{"wrong type", `{"USOC": "forty"}`},
		{"wrong shape", `{"error": "not found", "code": 404}`},
		{"empty object", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			device := newFakeDevice("t")
			device.responses["/api/v2/status"] = tt.body
			client := newTestClient(t, device)

			err := client.ReloadBatteryStatus(context.Background())
			var decodeErr *bridgeerrors.DecodeError
			if !errors.As(err, &decodeErr) {
				t.Fatalf("expected DecodeError, got %T: %v", err, err)
			}
			if client.BatteryStatus() != (BatteryStatus{}) {
				t.Error("status should stay at the zero value")
			}
		})
	}
}

func TestRecordWithoutKnownFieldIsDecodeError(t *testing.T) {
	device := newFakeDevice("t")
	device.responses["/api/v2/inverter"] = `{"USOC": 40, "RSOC": 42}`
	device.responses["/api/v2/configurations"] = `{"status": "ok"}`
	client := newTestClient(t, device)

	var decodeErr *bridgeerrors.DecodeError
	if err := client.ReloadInverterStatus(context.Background()); !errors.As(err, &decodeErr) {
		t.Errorf("inverter: expected DecodeError, got %v", err)
	}
	if _, err := client.FetchConfiguration(context.Background()); !errors.As(err, &decodeErr) {
		t.Errorf("configurations: expected DecodeError, got %v", err)
	}
	if decodeErr != nil && decodeErr.Endpoint != EndpointConfigurations {
		t.Errorf("Endpoint = %s, want %s", decodeErr.Endpoint, EndpointConfigurations)
	}
}

func TestNetworkFailureIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	host := server.URL[7:]
	server.Close()

	client := NewClient(config.SonnenSettings{Host: host, Timeout: time.Second})
	err := client.ReloadInverterStatus(context.Background())

	var transportErr *bridgeerrors.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %T: %v", err, err)
	}
	if transportErr.StatusCode != 0 {
		t.Errorf("StatusCode = %d, want 0 for a network failure", transportErr.StatusCode)
	}
}

func TestFetchConfigurationAndLatestData(t *testing.T) {
	client := newTestClient(t, newFakeDevice("tok"))
	ctx := context.Background()

	cfg, err := client.FetchConfiguration(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MarketingModuleCapacity != "10000" || cfg.Software != "1.14.5" {
		t.Errorf("unexpected configuration: %+v", cfg)
	}

	latest, err := client.FetchLatestData(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if latest.ICStatus.StateBMS != "ready" || latest.ICStatus.NrBatteryModules != 4 {
		t.Errorf("unexpected ic_status: %+v", latest.ICStatus)
	}
}

func TestSnapshotPairsBothRecords(t *testing.T) {
	client := newTestClient(t, newFakeDevice("tok"))
	ctx := context.Background()

	if err := client.ReloadBatteryStatus(ctx); err != nil {
		t.Fatal(err)
	}
	if err := client.ReloadInverterStatus(ctx); err != nil {
		t.Fatal(err)
	}

	snap := client.Snapshot()
	if snap.Battery.USOC != 40 || snap.Inverter.Tmax != 41.5 {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
}

func TestNumberUnmarshal(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{`40`, 40, false},
		{`40.5`, 40.5, false},
		{`"40"`, 40, false},
		{`" 12 "`, 12, false},
		{`""`, 0, false},
		{`null`, 0, false},
		{`"abc"`, 0, true},
		{`true`, 0, true},
	}

	for _, tt := range tests {
		var n Number
		err := n.UnmarshalJSON([]byte(tt.in))
		if (err != nil) != tt.wantErr {
			t.Errorf("UnmarshalJSON(%s) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && n.Float64() != tt.want {
			t.Errorf("UnmarshalJSON(%s) = %v, want %v", tt.in, n, tt.want)
		}
	}
}

func TestContextCancellation(t *testing.T) {
	client := newTestClient(t, newFakeDevice("tok"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.ReloadBatteryStatus(ctx)
	if err == nil || !strings.Contains(err.Error(), "context canceled") {
		t.Errorf("expected context canceled, got %v", err)
	}
}
