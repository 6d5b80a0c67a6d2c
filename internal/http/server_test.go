package http

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type fakeHealth struct {
	online      bool
	lastSuccess time.Time
	errors      int
	successes   int
}

func (f fakeHealth) IsOnline() bool                { return f.online }
func (f fakeHealth) GetLastSuccessTime() time.Time { return f.lastSuccess }
func (f fakeHealth) GetErrorCount() int            { return f.errors }
func (f fakeHealth) GetSuccessCount() int          { return f.successes }

type fakeBroker bool

func (b fakeBroker) IsConnected() bool { return bool(b) }

func TestHealthHandlerStatus(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		health     fakeHealth
		wantStatus string
		wantCode   int
		wantPoll   string
	}{
		{"healthy", fakeHealth{online: true, lastSuccess: now.Add(-5 * time.Second), successes: 10}, StatusHealthy, http.StatusOK, "5 seconds ago"},
		{"degraded", fakeHealth{online: true, lastSuccess: now.Add(-2 * time.Minute), errors: 3, successes: 7}, StatusDegraded, http.StatusOK, "2 minutes ago"},
		{"high error rate", fakeHealth{online: true, errors: 6, successes: 4}, StatusUnhealthy, http.StatusServiceUnavailable, "never"},
		{"offline", fakeHealth{online: false, lastSuccess: now.Add(-3 * time.Hour)}, StatusUnhealthy, http.StatusServiceUnavailable, "3 hours ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.health, fakeBroker(true), "1.0.0")
			h.now = func() time.Time { return now }
			h.startTime = now.Add(-90 * time.Minute)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			var status HealthStatus
			if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if status.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", status.Status, tt.wantStatus)
			}
			if status.LastSuccessfulPoll != tt.wantPoll {
				t.Errorf("last poll = %q, want %q", status.LastSuccessfulPoll, tt.wantPoll)
			}
			if status.Uptime != "1 hours 30 minutes" {
				t.Errorf("uptime = %q", status.Uptime)
			}
			if !status.MQTTConnected || status.Version != "1.0.0" {
				t.Errorf("unexpected status: %+v", status)
			}
		})
	}
}

type fakeCycles struct {
	succeeded, failed int
	since             time.Time
}

func (f fakeCycles) GetPerformanceStats() (int, int, time.Time) {
	return f.succeeded, f.failed, f.since
}

func TestHealthHandlerReportsCycleSummary(t *testing.T) {
	since := time.Date(2024, 5, 1, 11, 59, 30, 0, time.UTC)
	h := NewHealthHandler(fakeHealth{online: true}, nil, "1.0.0").
		WithCycleStats(fakeCycles{succeeded: 3, failed: 1, since: since})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var status HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.Summary == nil {
		t.Fatal("summary missing from health report")
	}
	if status.Summary.SuccessfulCycles != 3 || status.Summary.FailedCycles != 1 || !status.Summary.Since.Equal(since) {
		t.Errorf("summary = %+v", *status.Summary)
	}

	rec = httptest.NewRecorder()
	NewHealthHandler(fakeHealth{online: true}, nil, "").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if strings.Contains(rec.Body.String(), `"summary"`) {
		t.Error("summary reported without cycle stats")
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{42 * time.Second, "42 seconds"},
		{5 * time.Minute, "5 minutes"},
		{26*time.Hour + 10*time.Minute, "1 days 2 hours"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestMuxRoutes(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "sonnen_bridge_device_online 1\n")
	})
	accessories := func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "[]")
	}
	mux := NewMux(Handlers{
		Health:      NewHealthHandler(fakeHealth{online: true}, nil, ""),
		Metrics:     metrics,
		Accessories: accessories,
	})

	tests := []struct {
		path     string
		wantCode int
		contains string
	}{
		{"/", http.StatusOK, "sonnen MQTT Bridge"},
		{"/health", http.StatusOK, `"status": "healthy"`},
		{"/metrics", http.StatusOK, "device_online"},
		{"/accessories", http.StatusOK, "[]"},
		{"/ws", http.StatusNotFound, ""},
		{"/nope", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if rec.Code != tt.wantCode {
			t.Errorf("%s: code = %d, want %d", tt.path, rec.Code, tt.wantCode)
		}
		if tt.contains != "" && !strings.Contains(rec.Body.String(), tt.contains) {
			t.Errorf("%s: body %q does not contain %q", tt.path, rec.Body.String(), tt.contains)
		}
	}
}

func TestServerStartAndShutdown(t *testing.T) {
	s := NewServer(0, Handlers{Health: NewHealthHandler(fakeHealth{online: true}, nil, "")})
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	_, port, err := net.SplitHostPort(s.Addr())
	if err != nil {
		t.Fatal(err)
	}
	url := "http://127.0.0.1:" + port + "/health"

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
	if _, err := http.Get(url); err == nil {
		t.Error("server still answering after shutdown")
	}
}
