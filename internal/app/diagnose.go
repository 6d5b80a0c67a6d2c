package app

import (
	"context"
	"fmt"

	"sonnen-mqtt-bridge/internal/logger"
)

// Diagnose runs connectivity tests against the battery and the broker and
// logs what it finds
func (app *Application) Diagnose(ctx context.Context) error {
	logger.LogInfo("🔍 Starting diagnostic mode...")

	// Test 1: configuration
	logger.LogInfo("🔍 Test 1: Battery API reachability (/configurations)")
	cfg, err := app.client.FetchConfiguration(ctx)
	if err != nil {
		logger.LogError("❌ Battery API not reachable: %v", err)
		logger.LogInfo("💡 Possible issues:")
		logger.LogInfo("   - Wrong host in configuration (%s)", app.config.Sonnen.Host)
		logger.LogInfo("   - Wrong or missing Auth-Token (enable the JSON API in the battery dashboard)")
		logger.LogInfo("   - Wrong api_version (%d)", app.config.Sonnen.APIVersion)
		return fmt.Errorf("battery configuration failed: %w", err)
	}
	logger.LogInfo("✅ Capacity: %s, Cascading role: %s, Software: %s, Modules: %s",
		cfg.MarketingModuleCapacity, cfg.CascadingRole, cfg.Software, cfg.BatteryModules)

	// Test 2: latest data
	logger.LogInfo("🔍 Test 2: Latest data (/latestdata)")
	latest, err := app.client.FetchLatestData(ctx)
	if err != nil {
		logger.LogError("❌ Latest data failed: %v", err)
		return fmt.Errorf("latest data failed: %w", err)
	}
	logger.LogInfo("✅ USOC: %.0f%%, Production: %.0f W, Consumption: %.0f W, Feed-in: %.0f W",
		latest.USOC, latest.ProductionW, latest.ConsumptionW, latest.GridFeedInW)
	logger.LogInfo("✅ BMS: %s, Inverter: %s, Modules: %d",
		latest.ICStatus.StateBMS, latest.ICStatus.StateInverter, latest.ICStatus.NrBatteryModules)

	// Test 3: status
	logger.LogInfo("🔍 Test 3: Battery status (/status)")
	if err := app.client.ReloadBatteryStatus(ctx); err != nil {
		logger.LogError("❌ Battery status failed: %v", err)
		return fmt.Errorf("battery status failed: %w", err)
	}
	battery := app.client.Snapshot().Battery
	logger.LogInfo("✅ Operating mode: %s, System status: %s, Backup buffer: %.0f%%",
		battery.OperatingMode, battery.SystemStatus, battery.BackupBuffer.Float64())

	// Test 4: inverter
	logger.LogInfo("🔍 Test 4: Inverter status (/inverter)")
	if err := app.client.ReloadInverterStatus(ctx); err != nil {
		logger.LogError("❌ Inverter status failed: %v", err)
		return fmt.Errorf("inverter status failed: %w", err)
	}
	inverter := app.client.Snapshot().Inverter
	logger.LogInfo("✅ PV: %.0f W, Battery: %.0f W, Tmax: %.1f °C", inverter.Ppv, inverter.Pbat, inverter.Tmax)

	// Test 5: broker
	logger.LogInfo("🔍 Test 5: MQTT Broker Connectivity")
	if err := app.publisher.EnsureConnected(); err != nil {
		logger.LogError("❌ MQTT broker %s not reachable: %v", app.publisher.Broker(), err)
		return fmt.Errorf("mqtt broker not reachable: %w", err)
	}
	logger.LogInfo("✅ Connected to MQTT broker %s", app.publisher.Broker())
	app.publisher.Disconnect()

	logger.LogInfo("🎉 All diagnostic tests passed!")
	return nil
}
