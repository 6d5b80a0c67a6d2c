package accessory

import (
	"errors"
	"fmt"
	"sync"

	"sonnen-mqtt-bridge/internal/hap"
	"sonnen-mqtt-bridge/internal/logger"
)

// Kind identifies an accessory projection. It is also the accessory's display name.
type Kind string

// Known kinds
const (
	KindProduction  Kind = "production"
	KindConsumption Kind = "consumption"
	KindGrid        Kind = "grid"
)

// DefaultKinds lists the accessories the bridge exposes, in fan-out order
var DefaultKinds = []Kind{KindProduction, KindConsumption, KindGrid}

// ErrUnknownKind is returned by Resolve for a kind without a constructor
var ErrUnknownKind = errors.New("unknown accessory kind")

// Constructor binds a projection to a new or restored accessory
type Constructor func(accessory *hap.Accessory, publisher MetricPublisher, source SnapshotSource) Projection

// Factory creates or restores accessories and attaches their projections
type Factory struct {
	registry  *hap.Registry
	publisher MetricPublisher
	source    SnapshotSource

	mu           sync.RWMutex
	constructors map[Kind]Constructor
}

// NewFactory creates a factory with the production, consumption and grid constructors registered
func NewFactory(registry *hap.Registry, publisher MetricPublisher, source SnapshotSource) *Factory {
	f := &Factory{
		registry:     registry,
		publisher:    publisher,
		source:       source,
		constructors: make(map[Kind]Constructor),
	}
	f.Register(KindProduction, NewProductionAccessory)
	f.Register(KindConsumption, NewConsumptionAccessory)
	f.Register(KindGrid, NewGridAccessory)
	return f
}

// Register adds or replaces the constructor for a kind
func (f *Factory) Register(kind Kind, ctor Constructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.constructors[kind] = ctor
}

// Resolve returns the projection for kind. The accessory UUID is derived from
// the kind, so a cached accessory from a previous run is reused.
func (f *Factory) Resolve(kind Kind) (Projection, error) {
	f.mu.RLock()
	ctor, ok := f.constructors[kind]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	id := f.registry.GenerateUUID(string(kind))

	if existing := f.registry.Find(id); existing != nil {
		logger.LogInfo("♻️ Restoring existing accessory from cache: %s", existing.DisplayName)
		projection := ctor(existing, f.publisher, f.source)
		f.registry.UpdatePlatformAccessories(existing)
		return projection, nil
	}

	logger.LogInfo("➕ Adding new accessory: %s (%s)", kind, id)
	accessory := f.registry.NewAccessory(string(kind), id)
	projection := ctor(accessory, f.publisher, f.source)
	f.registry.RegisterPlatformAccessories(accessory)
	return projection, nil
}

// ResolveAll resolves every kind in order, stopping at the first error
func (f *Factory) ResolveAll(kinds ...Kind) ([]Projection, error) {
	projections := make([]Projection, 0, len(kinds))
	for _, kind := range kinds {
		p, err := f.Resolve(kind)
		if err != nil {
			return nil, err
		}
		projections = append(projections, p)
	}
	return projections, nil
}
