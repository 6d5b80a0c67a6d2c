package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"sonnen-mqtt-bridge/internal/sonnen"
)

// SnapshotSource provides the last committed battery snapshot
type SnapshotSource interface {
	Snapshot() sonnen.Snapshot
}

type gauge struct {
	desc  *prometheus.Desc
	value func(sonnen.Snapshot) float64
}

// SnapshotCollector implements prometheus.Collector over the committed snapshot.
// Scrapes never touch the battery; they read what the polling loop committed.
type SnapshotCollector struct {
	source SnapshotSource
	serial string
	gauges []gauge
}

// NewSnapshotCollector creates a collector labelled with the battery serial
func NewSnapshotCollector(source SnapshotSource, serial string) *SnapshotCollector {
	labels := []string{"serial"}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc("sonnenbatterie_"+name, help, labels, nil)
	}
	boolean := func(b bool) float64 {
		if b {
			return 1
		}
		return 0
	}

	return &SnapshotCollector{
		source: source,
		serial: serial,
		gauges: []gauge{
			{desc("charge_level_percent", "Battery relative state of charge (RSOC) in percent"),
				func(s sonnen.Snapshot) float64 { return s.Battery.RSOC }},
			{desc("user_charge_level_percent", "Battery user state of charge (USOC) in percent"),
				func(s sonnen.Snapshot) float64 { return s.Battery.USOC }},
			{desc("backup_buffer_percent", "Charge level reserved for backup operation in percent"),
				func(s sonnen.Snapshot) float64 { return s.Battery.BackupBuffer.Float64() }},
			{desc("consumption_watts", "Current house consumption in watts"),
				func(s sonnen.Snapshot) float64 { return s.Battery.ConsumptionW }},
			{desc("production_watts", "Current solar production in watts"),
				func(s sonnen.Snapshot) float64 { return s.Battery.ProductionW }},
			{desc("grid_feed_in_watts", "Current grid feed-in in watts (negative=consuming)"),
				func(s sonnen.Snapshot) float64 { return s.Battery.GridFeedInW }},
			{desc("battery_power_watts", "Inverter AC power in watts (positive=discharging)"),
				func(s sonnen.Snapshot) float64 { return s.Battery.PacTotalW }},
			{desc("charging", "Battery is currently charging (1=yes, 0=no)"),
				func(s sonnen.Snapshot) float64 { return boolean(s.Battery.BatteryCharging) }},
			{desc("discharging", "Battery is currently discharging (1=yes, 0=no)"),
				func(s sonnen.Snapshot) float64 { return boolean(s.Battery.BatteryDischarging) }},
			{desc("ac_voltage", "AC voltage in volts"),
				func(s sonnen.Snapshot) float64 { return s.Battery.Uac }},
			{desc("battery_voltage", "Battery voltage in volts"),
				func(s sonnen.Snapshot) float64 { return s.Battery.Ubat }},
			{desc("ac_frequency", "AC frequency in hertz"),
				func(s sonnen.Snapshot) float64 { return s.Battery.Fac }},
			{desc("inverter_pv_power_watts", "PV power measured by the inverter in watts"),
				func(s sonnen.Snapshot) float64 { return s.Inverter.Ppv }},
			{desc("inverter_battery_power_watts", "Battery power measured by the inverter in watts"),
				func(s sonnen.Snapshot) float64 { return s.Inverter.Pbat }},
			{desc("inverter_ac_power_watts", "Total AC power measured by the inverter in watts"),
				func(s sonnen.Snapshot) float64 { return s.Inverter.PacTotal }},
			{desc("inverter_temperature_celsius", "Maximum inverter temperature in degrees Celsius"),
				func(s sonnen.Snapshot) float64 { return s.Inverter.Tmax }},
		},
	}
}

// Describe implements prometheus.Collector
func (c *SnapshotCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, g := range c.gauges {
		ch <- g.desc
	}
}

// Collect implements prometheus.Collector
func (c *SnapshotCollector) Collect(ch chan<- prometheus.Metric) {
	snapshot := c.source.Snapshot()
	for _, g := range c.gauges {
		ch <- prometheus.MustNewConstMetric(g.desc, prometheus.GaugeValue, g.value(snapshot), c.serial)
	}
}
