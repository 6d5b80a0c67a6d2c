package services

import (
	"context"
	"sync"
	"time"

	"sonnen-mqtt-bridge/internal/accessory"
	"sonnen-mqtt-bridge/internal/config"
	bridgeerrors "sonnen-mqtt-bridge/internal/errors"
	"sonnen-mqtt-bridge/internal/health"
	"sonnen-mqtt-bridge/internal/logger"
	"sonnen-mqtt-bridge/internal/metrics"
	"sonnen-mqtt-bridge/internal/sonnen"
)

// State of the synchronization loop
type State int

const (
	StateIdle State = iota
	StateFetching
	StateCommitting
	StateFanningOut
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateCommitting:
		return "committing"
	case StateFanningOut:
		return "fanning-out"
	default:
		return "unknown"
	}
}

// StatusReloader is the part of the battery client the loop drives
type StatusReloader interface {
	ReloadBatteryStatus(ctx context.Context) error
	ReloadInverterStatus(ctx context.Context) error
	Snapshot() sonnen.Snapshot
}

// SyncService fetches the battery state on a fixed interval and fans each
// committed snapshot out to the registered projections
type SyncService struct {
	client     StatusReloader
	monitor    *health.Monitor
	metrics    metrics.MetricsCollector
	errHandler *bridgeerrors.ErrorHandler
	settings   config.PollingSettings

	mu          sync.RWMutex
	state       State
	snapshot    sonnen.Snapshot
	projections []accessory.Projection

	// Performance tracking for the current summary period, guarded by mu
	successfulCycles int
	failedCycles     int
	lastSummaryTime  time.Time
}

// NewSyncService creates a loop over client. A nil monitor or collector is replaced by a default.
func NewSyncService(client StatusReloader, monitor *health.Monitor, collector metrics.MetricsCollector, settings config.PollingSettings) *SyncService {
	if settings.Interval <= 0 {
		settings.Interval = time.Duration(config.DefaultPollInterval) * time.Millisecond
	}
	if settings.SummaryInterval <= 0 {
		settings.SummaryInterval = time.Duration(config.DefaultSummaryInterval) * time.Second
	}
	if monitor == nil {
		monitor = health.NewMonitor(settings.ErrorGracePeriod)
	}
	if collector == nil {
		collector = metrics.NewNullMetrics()
	}

	return &SyncService{
		client:          client,
		monitor:         monitor,
		metrics:         collector,
		errHandler:      bridgeerrors.NewErrorHandler(nil),
		settings:        settings,
		lastSummaryTime: time.Now(),
	}
}

// Register appends a projection; fan-out follows registration order
func (s *SyncService) Register(projections ...accessory.Projection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projections = append(s.projections, projections...)
}

// Commit replaces the committed snapshot
func (s *SyncService) Commit(snapshot sonnen.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snapshot
}

// Snapshot returns the last committed snapshot
func (s *SyncService) Snapshot() sonnen.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

func (s *SyncService) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *SyncService) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Monitor returns the health monitor fed by the loop
func (s *SyncService) Monitor() *health.Monitor {
	return s.monitor
}

// Start runs a cycle on every tick until ctx is done. A non-positive interval
// uses the configured one. A tick that fires while a cycle is still running is
// dropped by the ticker.
func (s *SyncService) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = s.settings.Interval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.LogInfo("🔄 Sync service started with interval: %v", interval)

	for {
		select {
		case <-ctx.Done():
			logger.LogDebug("🔄 Sync service stopped")
			return
		case <-ticker.C:
			logger.LogTrace("🔄 Sync tick")
			_ = s.RunCycle(ctx)
		}
	}
}

// RunCycle fetches battery then inverter status. Either failure ends the
// cycle without touching the committed snapshot or any projection.
func (s *SyncService) RunCycle(ctx context.Context) error {
	start := time.Now()
	defer func() {
		s.metrics.ObserveCycleDuration(time.Since(start))
		s.setState(StateIdle)
	}()

	s.setState(StateFetching)
	if err := s.fetch(ctx, sonnen.EndpointStatus, s.client.ReloadBatteryStatus); err != nil {
		s.handleCycleError(err)
		return err
	}
	if err := s.fetch(ctx, sonnen.EndpointInverter, s.client.ReloadInverterStatus); err != nil {
		s.handleCycleError(err)
		return err
	}

	s.setState(StateCommitting)
	snapshot := s.client.Snapshot()
	s.Commit(snapshot)

	s.setState(StateFanningOut)
	s.fanOut(snapshot)

	s.handleCycleSuccess()
	return nil
}

func (s *SyncService) fetch(ctx context.Context, endpoint string, reload func(context.Context) error) error {
	if err := reload(ctx); err != nil {
		s.metrics.IncrementFetchErrors(endpoint)
		return err
	}
	s.metrics.IncrementFetches(endpoint)
	return nil
}

func (s *SyncService) fanOut(snapshot sonnen.Snapshot) {
	s.mu.RLock()
	projections := make([]accessory.Projection, len(s.projections))
	copy(projections, s.projections)
	s.mu.RUnlock()

	for _, p := range projections {
		s.update(p, snapshot)
	}
	logger.LogTrace("✅ Fanned out snapshot to %d accessories", len(projections))
}

// update runs one projection, recovering a panic so the others still run
func (s *SyncService) update(p accessory.Projection, snapshot sonnen.Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			logger.LogError("Updating %s accessory panicked: %v", p.Kind(), r)
		}
	}()
	p.UpdateAccessory(snapshot.Battery, snapshot.Inverter)
}

func (s *SyncService) handleCycleError(err error) {
	s.mu.Lock()
	s.failedCycles++
	s.mu.Unlock()
	s.errHandler.Handle(err)

	wentOffline := s.monitor.RecordError()

	if s.monitor.GetConsecutiveErrors() == 1 {
		logger.LogWarn("First error detected, starting grace period")
	}
	if s.monitor.IsInGracePeriod() {
		logger.LogDebug("🕐 Error %d in grace period (%.1fs elapsed)",
			s.monitor.GetConsecutiveErrors(),
			s.monitor.GetTimeSinceFirstError().Seconds())
		return
	}
	if wentOffline {
		s.metrics.SetDeviceStatus(false)
		logger.LogError("🔴 Grace period expired - battery marked as OFFLINE after %d errors over %.1f seconds",
			s.monitor.GetConsecutiveErrors(),
			s.monitor.GetTimeSinceFirstError().Seconds())
	}
}

func (s *SyncService) handleCycleSuccess() {
	if s.monitor.RecordSuccess() {
		s.metrics.SetDeviceStatus(true)
		logger.LogInfo("🟢 Battery marked as ONLINE - functionality restored")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.successfulCycles++
	if time.Since(s.lastSummaryTime) >= s.settings.SummaryInterval {
		logger.LogInfo("📊 Summary - Success: %d, Errors: %d, Last %v",
			s.successfulCycles, s.failedCycles, s.settings.SummaryInterval)
		s.lastSummaryTime = time.Now()
		s.successfulCycles = 0
		s.failedCycles = 0
	}
}

// GetPerformanceStats returns the counters of the current summary period
func (s *SyncService) GetPerformanceStats() (successfulCycles, failedCycles int, lastSummary time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.successfulCycles, s.failedCycles, s.lastSummaryTime
}
