package hap

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newTestRegistry() (*Registry, *Service) {
	r := NewRegistry()
	a := r.NewAccessory("Production", r.GenerateUUID("production"))
	s := a.AddService(Switch, "Production", "SB-Prd-ID")
	s.GetCharacteristic(On).OnGet(func() (interface{}, error) { return true, nil })
	s.SetCharacteristic(BatteryLevel, 40.0)
	r.RegisterPlatformAccessories(a)
	return r, s
}

func TestHandleAccessories(t *testing.T) {
	r, _ := newTestRegistry()
	server := NewServer(r)
	defer server.Close()

	rec := httptest.NewRecorder()
	server.HandleAccessories(rec, httptest.NewRequest(http.MethodGet, "/accessories", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var views []AccessoryView
	if err := json.NewDecoder(rec.Body).Decode(&views); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(views) != 1 || views[0].DisplayName != "Production" {
		t.Fatalf("unexpected views: %+v", views)
	}

	var sw *ServiceView
	for i := range views[0].Services {
		if views[0].Services[i].Subtype == "SB-Prd-ID" {
			sw = &views[0].Services[i]
		}
	}
	if sw == nil {
		t.Fatal("switch service missing")
	}
	if sw.Characteristics[On].Value != true {
		t.Errorf("On = %v, want value from handler", sw.Characteristics[On].Value)
	}
	if sw.Characteristics[BatteryLevel].Value != 40.0 {
		t.Errorf("BatteryLevel = %v", sw.Characteristics[BatteryLevel].Value)
	}
}

func TestHandleAccessoriesRejectsPost(t *testing.T) {
	r, _ := newTestRegistry()
	server := NewServer(r)
	defer server.Close()

	rec := httptest.NewRecorder()
	server.HandleAccessories(rec, httptest.NewRequest(http.MethodPost, "/accessories", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestWebSocketPushesUpdates(t *testing.T) {
	r, s := newTestRegistry()
	server := NewServer(r)
	defer server.Close()

	ts := httptest.NewServer(http.HandlerFunc(server.HandleWebSocket))
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	// initial state
	var view AccessoryView
	if err := conn.ReadJSON(&view); err != nil {
		t.Fatalf("read initial state: %v", err)
	}
	if view.DisplayName != "Production" {
		t.Errorf("unexpected initial view: %+v", view)
	}

	// wait until the client is registered for broadcasts
	deadline := time.Now().Add(2 * time.Second)
	for server.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	s.UpdateCharacteristic(BatteryLevel, 41.0)

	var update Update
	if err := conn.ReadJSON(&update); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if update.Characteristic != BatteryLevel || update.Value != 41.0 {
		t.Errorf("unexpected update: %+v", update)
	}
	t.Logf("✅ Received update %s=%v", update.Characteristic, update.Value)
}
