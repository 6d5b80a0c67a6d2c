package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"sonnen-mqtt-bridge/internal/app"
	"sonnen-mqtt-bridge/internal/config"
	bridgeerrors "sonnen-mqtt-bridge/internal/errors"
	"sonnen-mqtt-bridge/internal/logger"
)

func main() {
	// SIGINT/SIGTERM cancel ctx, which also aborts a discovery fetch that hangs
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	configPath := ""
	diagnosticMode := false

	for i, arg := range os.Args[1:] {
		if arg == "--help" || arg == "-h" {
			fmt.Printf("Usage: %s [config_path] [--diagnostic]\n", os.Args[0])
			fmt.Printf("  config_path: Path to configuration file (optional)\n")
			fmt.Printf("  --diagnostic: Test battery API and broker connectivity, then exit\n")
			return
		} else if arg == "--diagnostic" {
			diagnosticMode = true
		} else if i == 0 {
			configPath = arg
		}
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.LogError("Configuration error: %v", err)
		os.Exit(bridgeerrors.GetDiagnosticCode(err))
	}

	logger.Configure(cfg.Logging)
	logger.LogStartup("🔧 Logging initialized with level: %s", cfg.Logging.Level)

	application, err := app.NewApplicationBuilder(cfg).Build()
	if err != nil {
		logger.LogError("Application creation error: %v", err)
		os.Exit(1)
	}

	if diagnosticMode {
		if err := application.Diagnose(ctx); err != nil {
			logger.LogError("Diagnostic failed: %v", err)
			os.Exit(1)
		}
		logger.LogInfo("✅ Diagnostic completed successfully")
		return
	}

	if err := application.Start(ctx); err != nil {
		if ctx.Err() != nil {
			logger.LogInfo("📢 Stop signal received during startup")
			return
		}
		logger.LogError("Application start error: %v", err)
		os.Exit(1)
	}

	<-ctx.Done()
	stop() // a second signal terminates immediately
	logger.LogInfo("📢 Stop signal received...")

	application.Stop()
}
