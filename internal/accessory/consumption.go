package accessory

import (
	"sonnen-mqtt-bridge/internal/hap"
	"sonnen-mqtt-bridge/internal/sonnen"
)

type consumptionRules struct{}

func (consumptionRules) isOn(b sonnen.BatteryStatus) bool {
	return b.ConsumptionW > 0
}

// isLowBattery is strict, unlike production and grid
func (consumptionRules) isLowBattery(b sonnen.BatteryStatus) bool {
	return b.USOC < b.BackupBuffer.Float64()
}

func (consumptionRules) metrics(b sonnen.BatteryStatus) []Metric {
	return []Metric{
		{Key: "Consumption", Value: b.ConsumptionW},
		{Key: "USOC", Value: b.USOC},
		// positive while importing, used to modulate charge rate on excess power
		{Key: "Grid", Value: negate(b.GridFeedInW)},
	}
}

// NewConsumptionAccessory projects house consumption onto a primary switch
func NewConsumptionAccessory(accessory *hap.Accessory, publisher MetricPublisher, source SnapshotSource) Projection {
	return newProjection(KindConsumption, consumptionRules{}, info{
		model:       "Consumption-V1",
		serial:      "CONS-V1",
		serviceName: "Consumption",
		subtype:     "SB-Cons-ID",
		primary:     true,
	}, accessory, publisher, source)
}
