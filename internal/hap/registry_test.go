package hap

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestGenerateUUIDIsStable(t *testing.T) {
	a := NewRegistry().GenerateUUID("production")
	b := NewRegistry().GenerateUUID("production")
	c := NewRegistry().GenerateUUID("grid")

	if a != b {
		t.Errorf("UUID differs across registries: %s vs %s", a, b)
	}
	if a == c {
		t.Error("different names produced the same UUID")
	}
	if len(a) != 36 {
		t.Errorf("unexpected UUID format: %s", a)
	}
}

func TestServiceCharacteristics(t *testing.T) {
	a := NewAccessory("Production", "id-1")
	s := a.AddService(Switch, "Production", "SB-Prd-ID")

	s.SetCharacteristic(On, true).SetCharacteristic(BatteryLevel, 40.0)
	s.AddOptionalCharacteristic(StatusFault)

	if v, _ := s.Value(On); v != true {
		t.Errorf("On = %v, want true", v)
	}
	if !s.HasCharacteristic(StatusFault) {
		t.Error("optional characteristic not declared")
	}
	if s.HasCharacteristic(StatusActive) {
		t.Error("unexpected characteristic")
	}

	s.GetCharacteristic(On).OnGet(func() (interface{}, error) { return false, nil })
	if v, _ := s.GetCharacteristic(On).Value(); v != false {
		t.Errorf("On via handler = %v, want false", v)
	}
	if v, _ := s.StoredValue(On); v != true {
		t.Errorf("stored On = %v, want true", v)
	}

	if a.GetService("SB-Prd-ID") != s {
		t.Error("GetService did not find the switch by subtype")
	}
	if a.GetService("missing") != nil {
		t.Error("GetService returned a service for an unknown subtype")
	}
	if a.InformationService() == nil {
		t.Error("information service missing")
	}
}

func TestHandlerErrorIsReturned(t *testing.T) {
	s := NewAccessory("x", "id").AddService(Switch, "x", "sub")
	s.GetCharacteristic(On).OnGet(func() (interface{}, error) { return nil, errors.New("boom") })

	if _, err := s.Value(On); err == nil {
		t.Error("expected handler error")
	}
}

func TestRegisterAndFind(t *testing.T) {
	r := NewRegistry()
	restored := NewAccessory("Grid", r.GenerateUUID("grid"))
	r.ConfigureAccessory(restored)

	if r.Find(restored.UUID) != restored {
		t.Fatal("restored accessory not found")
	}
	if len(r.Accessories()) != 0 {
		t.Error("restored accessories are not registered until updated")
	}

	prod := r.NewAccessory("Production", r.GenerateUUID("production"))
	r.RegisterPlatformAccessories(prod)
	r.UpdatePlatformAccessories(restored)

	got := r.Accessories()
	if len(got) != 2 || got[0] != prod || got[1] != restored {
		t.Errorf("unexpected registration order: %v", got)
	}

	r.RegisterPlatformAccessories(prod)
	if len(r.Accessories()) != 2 {
		t.Error("re-registering duplicated the accessory")
	}
}

func TestSubscribeReceivesUpdates(t *testing.T) {
	r := NewRegistry()
	updates, cancel := r.Subscribe()
	defer cancel()

	a := r.NewAccessory("Consumption", "id-c")
	s := a.AddService(Switch, "Consumption", "SB-Cons-ID")
	s.SetCharacteristic(On, true) // silent
	s.UpdateCharacteristic(BatteryLevel, 55.0)

	select {
	case u := <-updates:
		if u.Characteristic != BatteryLevel || u.Value != 55.0 || u.ServiceSubtype != "SB-Cons-ID" {
			t.Errorf("unexpected update: %+v", u)
		}
	case <-time.After(time.Second):
		t.Fatal("no update received")
	}

	select {
	case u := <-updates:
		t.Errorf("SetCharacteristic should not notify, got %+v", u)
	default:
	}
}

func TestCancelClosesChannel(t *testing.T) {
	r := NewRegistry()
	updates, cancel := r.Subscribe()
	cancel()
	cancel()

	if _, ok := <-updates; ok {
		t.Error("expected closed channel")
	}
	// publishing after cancel must not panic
	r.NewAccessory("x", "y").AddService(Switch, "x", "s").UpdateCharacteristic(On, true)
}

func TestCacheRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "accessories.yaml")

	r := NewRegistry()
	a := r.NewAccessory("Production", r.GenerateUUID("production"))
	a.InformationService().SetCharacteristic(Manufacturer, "RFx Labs")
	a.AddService(Switch, "Production", "SB-Prd-ID").
		SetPrimaryService(true).
		AddOptionalCharacteristic(StatusFault).
		SetCharacteristic(On, true)
	r.RegisterPlatformAccessories(a)

	if err := r.SaveCache(path); err != nil {
		t.Fatalf("SaveCache() error = %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}

	restored := NewRegistry()
	if err := restored.LoadCache(path); err != nil {
		t.Fatalf("LoadCache() error = %v", err)
	}

	b := restored.Find(a.UUID)
	if b == nil {
		t.Fatal("accessory not restored")
	}
	if v, _ := b.InformationService().Value(Manufacturer); v != "RFx Labs" {
		t.Errorf("Manufacturer = %v", v)
	}
	sw := b.GetService("SB-Prd-ID")
	if sw == nil {
		t.Fatal("switch service not restored")
	}
	if !sw.IsPrimary() || !sw.HasCharacteristic(StatusFault) {
		t.Error("service flags not restored")
	}
	if v, _ := sw.Value(On); v != true {
		t.Errorf("On = %v, want true", v)
	}
}

func TestSaveCacheIsDeterministic(t *testing.T) {
	dir := t.TempDir()

	r := NewRegistry()
	for _, name := range []string{"production", "consumption", "grid"} {
		a := r.NewAccessory(name, r.GenerateUUID(name))
		a.AddService(Switch, name, "SB-"+name).
			AddOptionalCharacteristic(StatusLowBattery).
			AddOptionalCharacteristic(StatusFault).
			AddOptionalCharacteristic(StatusActive).
			AddOptionalCharacteristic(BatteryLevel)
		r.ConfigureAccessory(a)
	}

	var first []byte
	for i := 0; i < 5; i++ {
		path := filepath.Join(dir, "accessories.yaml")
		if err := r.SaveCache(path); err != nil {
			t.Fatalf("SaveCache() error = %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if first == nil {
			first = data
			continue
		}
		if !bytes.Equal(first, data) {
			t.Fatalf("save %d differs from the first:\n%s\nvs\n%s", i, first, data)
		}
	}

	text := string(first)
	order := []Characteristic{BatteryLevel, StatusActive, StatusFault, StatusLowBattery}
	last := -1
	for _, c := range order {
		idx := strings.Index(text, "- "+string(c))
		if idx < 0 {
			t.Fatalf("%s missing from cache:\n%s", c, text)
		}
		if idx < last {
			t.Errorf("optional characteristics not sorted:\n%s", text)
			break
		}
		last = idx
	}
}

func TestLoadMissingCache(t *testing.T) {
	r := NewRegistry()
	if err := r.LoadCache(filepath.Join(t.TempDir(), "absent.yaml")); err != nil {
		t.Errorf("missing cache should not fail: %v", err)
	}
	if err := r.LoadCache(""); err != nil {
		t.Errorf("empty path should not fail: %v", err)
	}
}

func TestLoadCorruptCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accessories.yaml")
	if err := os.WriteFile(path, []byte("accessories: {not: [a list"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := NewRegistry().LoadCache(path); err == nil {
		t.Error("expected parse error")
	}
}
