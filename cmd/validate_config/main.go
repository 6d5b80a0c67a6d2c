package main

import (
	"fmt"
	"os"

	"sonnen-mqtt-bridge/internal/config"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: validate_config <config-file>")
		os.Exit(1)
	}

	configPath := os.Args[1]
	fmt.Printf("📄 Loading config from: %s\n", configPath)

	data, err := os.ReadFile(configPath)
	if err != nil {
		fmt.Printf("❌ Error reading config: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadConfigFromString(string(data))
	if err != nil {
		fmt.Printf("❌ Error loading config: %v\n", err)
		os.Exit(1)
	}

	sonnen := config.NewSonnenSettings(cfg)
	mqtt := config.NewMQTTSettings(cfg)
	polling := config.NewPollingSettings(cfg)

	fmt.Printf("✅ Config loaded successfully!\n")
	fmt.Printf("   Battery: http://%s/api/v%d (serial %s, timeout %v)\n",
		sonnen.Host, sonnen.APIVersion, sonnen.Serial, sonnen.Timeout)
	if sonnen.Token == "" {
		fmt.Printf("   ⚠️  No Auth-Token configured, the battery will reject requests\n")
	}
	fmt.Printf("   MQTT Broker: %s (client id %s)\n", mqtt.Broker, mqtt.ClientID)
	fmt.Printf("   Topics: %s/{Production,Consumption,Grid,USOC,RSOC}\n", mqtt.RootTopic)
	fmt.Printf("   Poll Interval: %v, grace period %v\n", polling.Interval, polling.ErrorGracePeriod)
	fmt.Printf("   Accessory cache: %s\n", cfg.Accessories.CachePath)
	if cfg.HTTP.Disabled {
		fmt.Printf("   HTTP: disabled\n")
	} else {
		fmt.Printf("   HTTP: :%d\n", cfg.HTTP.Port)
	}

	fmt.Println("\n✅ Configuration is valid!")
}
