package accessory

import (
	"sonnen-mqtt-bridge/internal/hap"
	"sonnen-mqtt-bridge/internal/sonnen"
)

type productionRules struct{}

func (productionRules) isOn(b sonnen.BatteryStatus) bool {
	return b.ProductionW > 0
}

func (productionRules) isLowBattery(b sonnen.BatteryStatus) bool {
	return b.USOC <= b.BackupBuffer.Float64()
}

func (productionRules) metrics(b sonnen.BatteryStatus) []Metric {
	return []Metric{
		{Key: "Production", Value: b.ProductionW},
		{Key: "USOC", Value: b.USOC},
		{Key: "RSOC", Value: b.RSOC},
	}
}

// NewProductionAccessory projects solar production onto a primary switch
func NewProductionAccessory(accessory *hap.Accessory, publisher MetricPublisher, source SnapshotSource) Projection {
	return newProjection(KindProduction, productionRules{}, info{
		model:       "Production-V1",
		serial:      "PRD-V1",
		serviceName: "Production",
		subtype:     "SB-Prd-ID",
		primary:     true,
	}, accessory, publisher, source)
}
