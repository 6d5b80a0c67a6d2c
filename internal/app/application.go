package app

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"sonnen-mqtt-bridge/internal/accessory"
	"sonnen-mqtt-bridge/internal/config"
	"sonnen-mqtt-bridge/internal/hap"
	"sonnen-mqtt-bridge/internal/health"
	bridgehttp "sonnen-mqtt-bridge/internal/http"
	"sonnen-mqtt-bridge/internal/logger"
	"sonnen-mqtt-bridge/internal/metrics"
	"sonnen-mqtt-bridge/internal/services"
)

// Version is reported by /health and the startup banner
var Version = "1.0.0"

// shutdownTimeout bounds the HTTP server shutdown in Stop
const shutdownTimeout = 5 * time.Second

// prometheusExporter is implemented by metrics.PrometheusMetrics
type prometheusExporter interface {
	MustRegister(cs ...prometheus.Collector)
	Handler() http.Handler
}

// Application wires the battery client, the sync loop, the accessories and
// the operator HTTP server
type Application struct {
	config    *config.Config
	client    BatteryClient
	publisher PublisherInterface
	registry  *hap.Registry
	metrics   metrics.MetricsCollector
	monitor   *health.Monitor
	polling   config.PollingSettings

	loop        *services.SyncService
	factory     *accessory.Factory
	projections []accessory.Projection

	hapServer  *hap.Server
	httpServer *bridgehttp.Server

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

func newApplication(
	cfg *config.Config,
	client BatteryClient,
	publisher PublisherInterface,
	registry *hap.Registry,
	collector metrics.MetricsCollector,
	monitor *health.Monitor,
	polling config.PollingSettings,
) *Application {
	loop := services.NewSyncService(client, monitor, collector, polling)
	return &Application{
		config:    cfg,
		client:    client,
		publisher: publisher,
		registry:  registry,
		metrics:   collector,
		monitor:   monitor,
		polling:   polling,
		loop:      loop,
		factory:   accessory.NewFactory(registry, publisher, loop),
	}
}

// Loop returns the synchronization loop
func (app *Application) Loop() *services.SyncService {
	return app.loop
}

// Registry returns the accessory registry
func (app *Application) Registry() *hap.Registry {
	return app.registry
}

// Factory returns the accessory factory, for registering additional kinds before Start
func (app *Application) Factory() *accessory.Factory {
	return app.factory
}

// Projections returns the accessories resolved by Start
func (app *Application) Projections() []accessory.Projection {
	return app.projections
}

// Start discovers the battery, restores or creates the accessories and
// starts the HTTP server and the sync loop. Any failure before the loop
// starts is returned and nothing keeps running.
func (app *Application) Start(ctx context.Context) error {
	logger.LogInfo("🚀 Starting sonnen MQTT Bridge %s...", Version)

	if err := app.registry.LoadCache(app.config.Accessories.CachePath); err != nil {
		logger.LogWarn("Ignoring accessory cache %s: %v", app.config.Accessories.CachePath, err)
	}

	if err := app.discover(ctx); err != nil {
		return err
	}

	projections, err := app.factory.ResolveAll(accessory.DefaultKinds...)
	if err != nil {
		return fmt.Errorf("error creating accessories: %w", err)
	}
	app.projections = projections
	app.loop.Register(projections...)
	app.saveCache()

	if err := app.publisher.EnsureConnected(); err != nil {
		logger.LogWarn("MQTT broker %s not reachable yet, each publish reconnects on demand: %v", app.publisher.Broker(), err)
	}

	if exporter, ok := app.metrics.(prometheusExporter); ok {
		exporter.MustRegister(metrics.NewSnapshotCollector(app.loop, app.client.Serial()))
	}

	app.hapServer = hap.NewServer(app.registry)
	if !app.config.HTTP.Disabled {
		app.httpServer = bridgehttp.NewServer(app.config.HTTP.Port, app.handlers())
		if err := app.httpServer.Start(); err != nil {
			app.hapServer.Close()
			return fmt.Errorf("error starting HTTP server: %w", err)
		}
	}

	loopCtx, cancel := context.WithCancel(ctx)
	app.mu.Lock()
	app.cancel = cancel
	app.started = true
	app.mu.Unlock()

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		app.loop.Start(loopCtx, app.polling.Interval)
	}()

	logger.LogInfo("✅ sonnen MQTT Bridge started successfully")
	logger.LogInfo("🔇 Verbose logging reduced - Summary reports every %v", app.polling.SummaryInterval)
	return nil
}

// discover fetches the configuration and the first status record
func (app *Application) discover(ctx context.Context) error {
	logger.LogInfo("🔍 Discovering sonnenBatterie %s...", app.client.Serial())

	cfg, err := app.client.FetchConfiguration(ctx)
	if err != nil {
		return fmt.Errorf("error fetching battery configuration: %w", err)
	}
	logger.LogInfo("🔋 Capacity: %s, Cascading role: %s, Software: %s",
		cfg.MarketingModuleCapacity, cfg.CascadingRole, cfg.Software)
	logger.LogDebug("🔧 Battery configuration: %+v", *cfg)

	if err := app.client.ReloadBatteryStatus(ctx); err != nil {
		return fmt.Errorf("error fetching battery status: %w", err)
	}
	app.loop.Commit(app.client.Snapshot())
	return nil
}

func (app *Application) handlers() bridgehttp.Handlers {
	h := bridgehttp.Handlers{
		Health:      bridgehttp.NewHealthHandler(app.monitor, app.publisher, Version).WithCycleStats(app.loop),
		Accessories: app.hapServer.HandleAccessories,
		WebSocket:   app.hapServer.HandleWebSocket,
	}
	if exporter, ok := app.metrics.(prometheusExporter); ok {
		h.Metrics = exporter.Handler()
	}
	return h
}

func (app *Application) saveCache() {
	if err := app.registry.SaveCache(app.config.Accessories.CachePath); err != nil {
		logger.LogWarn("Error saving accessory cache: %v", err)
	}
}

// Stop stops the loop, saves the accessory cache, disconnects MQTT and
// shuts down the HTTP server
func (app *Application) Stop() {
	app.mu.Lock()
	if !app.started {
		app.mu.Unlock()
		return
	}
	app.started = false
	cancel := app.cancel
	app.mu.Unlock()

	logger.LogInfo("🛑 Stopping sonnen MQTT Bridge...")

	cancel()
	app.wg.Wait()

	app.saveCache()
	app.publisher.Disconnect()

	if app.httpServer != nil {
		ctx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		if err := app.httpServer.Shutdown(ctx); err != nil {
			logger.LogWarn("Error shutting down HTTP server: %v", err)
		}
	}
	if app.hapServer != nil {
		app.hapServer.Close()
	}

	logger.LogInfo("✅ sonnen MQTT Bridge stopped")
}
