package accessory

import (
	"sonnen-mqtt-bridge/internal/hap"
	"sonnen-mqtt-bridge/internal/sonnen"
)

type gridRules struct{}

// isOn reports export: GridFeedIn_W is positive while feeding into the grid
func (gridRules) isOn(b sonnen.BatteryStatus) bool {
	return b.GridFeedInW > 0
}

func (gridRules) isLowBattery(b sonnen.BatteryStatus) bool {
	return b.USOC <= b.BackupBuffer.Float64()
}

func (gridRules) metrics(b sonnen.BatteryStatus) []Metric {
	return []Metric{
		{Key: "Grid", Value: negate(b.GridFeedInW)},
		{Key: "USOC", Value: b.USOC},
		{Key: "RSOC", Value: b.RSOC},
	}
}

// NewGridAccessory projects grid export onto a switch
func NewGridAccessory(accessory *hap.Accessory, publisher MetricPublisher, source SnapshotSource) Projection {
	return newProjection(KindGrid, gridRules{}, info{
		model:       "Grid-V1",
		serial:      "GRID-V1",
		serviceName: "Grid Export",
		subtype:     "SB-Grid-ID",
	}, accessory, publisher, source)
}
