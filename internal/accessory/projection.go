package accessory

import (
	"sonnen-mqtt-bridge/internal/hap"
	"sonnen-mqtt-bridge/internal/logger"
	"sonnen-mqtt-bridge/internal/sonnen"
)

// Manufacturer reported by every accessory
const Manufacturer = "RFx Labs"

// MetricPublisher receives derived values keyed by metric name
type MetricPublisher interface {
	Publish(key string, value interface{})
}

// SnapshotSource provides the last committed snapshot for read handlers
type SnapshotSource interface {
	Snapshot() sonnen.Snapshot
}

// Projection maps a committed snapshot onto one accessory
type Projection interface {
	Kind() Kind
	Accessory() *hap.Accessory
	UpdateAccessory(battery sonnen.BatteryStatus, inverter sonnen.InverterStatus)
}

// Metric is one published key/value pair
type Metric struct {
	Key   string
	Value float64
}

// rules is the per-kind behaviour of a projection
type rules interface {
	isOn(b sonnen.BatteryStatus) bool
	isLowBattery(b sonnen.BatteryStatus) bool
	metrics(b sonnen.BatteryStatus) []Metric
}

// info describes the accessory information and switch service of a kind
type info struct {
	model       string
	serial      string
	serviceName string
	subtype     string
	primary     bool
}

// projection binds rules to an accessory's switch service
type projection struct {
	kind      Kind
	rules     rules
	accessory *hap.Accessory
	service   *hap.Service
	publisher MetricPublisher
	source    SnapshotSource
}

func newProjection(kind Kind, r rules, i info, accessory *hap.Accessory, publisher MetricPublisher, source SnapshotSource) *projection {
	accessory.InformationService().
		SetCharacteristic(hap.Manufacturer, Manufacturer).
		SetCharacteristic(hap.Model, i.model).
		SetCharacteristic(hap.SerialNumber, i.serial)

	service := accessory.GetService(i.subtype)
	if service == nil {
		service = accessory.AddService(hap.Switch, i.serviceName, i.subtype)
	}
	if i.primary {
		service.SetPrimaryService(true)
	}

	service.AddOptionalCharacteristic(hap.BatteryLevel)
	service.AddOptionalCharacteristic(hap.StatusLowBattery)
	service.AddOptionalCharacteristic(hap.StatusActive)
	service.AddOptionalCharacteristic(hap.StatusFault)

	p := &projection{
		kind:      kind,
		rules:     r,
		accessory: accessory,
		service:   service,
		publisher: publisher,
		source:    source,
	}

	service.GetCharacteristic(hap.On).OnGet(p.getOn)
	service.GetCharacteristic(hap.BatteryLevel).OnGet(p.getBatteryLevel)
	service.GetCharacteristic(hap.StatusLowBattery).OnGet(p.getLowBattery)
	service.GetCharacteristic(hap.StatusActive).OnGet(p.getOn)

	logger.LogDebug("🔧 Bound characteristics of %s to service %s", kind, i.subtype)
	return p
}

func (p *projection) Kind() Kind {
	return p.kind
}

func (p *projection) Accessory() *hap.Accessory {
	return p.accessory
}

// UpdateAccessory publishes the kind's metrics, then writes the switch service.
// The same input always produces the same writes.
func (p *projection) UpdateAccessory(battery sonnen.BatteryStatus, inverter sonnen.InverterStatus) {
	logger.LogDebug("🔄 Updating %s accessory", p.kind)

	for _, m := range p.rules.metrics(battery) {
		p.publish(m)
	}

	on := p.rules.isOn(battery)
	p.service.UpdateCharacteristic(hap.On, on)
	p.service.UpdateCharacteristic(hap.BatteryLevel, battery.USOC)
	p.service.UpdateCharacteristic(hap.StatusLowBattery, lowBatteryValue(p.rules.isLowBattery(battery)))
	p.service.UpdateCharacteristic(hap.StatusActive, on)
}

// publish isolates one key so a misbehaving publisher cannot stop the others
func (p *projection) publish(m Metric) {
	defer func() {
		if r := recover(); r != nil {
			logger.LogError("Publishing %s for %s accessory panicked: %v", m.Key, p.kind, r)
		}
	}()
	p.publisher.Publish(m.Key, m.Value)
}

func (p *projection) getOn() (interface{}, error) {
	return p.rules.isOn(p.source.Snapshot().Battery), nil
}

func (p *projection) getBatteryLevel() (interface{}, error) {
	return p.source.Snapshot().Battery.USOC, nil
}

func (p *projection) getLowBattery() (interface{}, error) {
	return lowBatteryValue(p.rules.isLowBattery(p.source.Snapshot().Battery)), nil
}

func lowBatteryValue(low bool) int {
	if low {
		return hap.BatteryLevelLow
	}
	return hap.BatteryLevelNormal
}

// negate flips the sign of the grid feed-in without producing -0
func negate(v float64) float64 {
	if v == 0 {
		return 0
	}
	return -v
}
