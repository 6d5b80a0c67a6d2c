package hap

import (
	"sync"

	"github.com/google/uuid"

	"sonnen-mqtt-bridge/internal/logger"
)

// namespace scopes the name-based accessory UUIDs to this bridge
var namespace = uuid.NewSHA1(uuid.NameSpaceDNS, []byte("sonnen-mqtt-bridge"))

// subscriberBuffer is the number of updates a slow subscriber may lag behind
const subscriberBuffer = 64

// Registry holds the accessories known to the bridge: those restored from the
// cache and those registered during this run
type Registry struct {
	mu          sync.RWMutex
	restored    map[string]*Accessory
	registered  map[string]*Accessory
	order       []string
	subscribers map[int]chan Update
	nextSubID   int
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		restored:    make(map[string]*Accessory),
		registered:  make(map[string]*Accessory),
		subscribers: make(map[int]chan Update),
	}
}

// GenerateUUID derives a stable UUID from a name. The same name always yields the same UUID.
func (r *Registry) GenerateUUID(name string) string {
	return uuid.NewSHA1(namespace, []byte(name)).String()
}

// NewAccessory creates an accessory whose updates are delivered to subscribers
func (r *Registry) NewAccessory(displayName, id string) *Accessory {
	a := NewAccessory(displayName, id)
	a.setNotifier(r.publish)
	return a
}

// ConfigureAccessory adds an accessory restored from the cache
func (r *Registry) ConfigureAccessory(a *Accessory) {
	a.setNotifier(r.publish)
	r.mu.Lock()
	r.restored[a.UUID] = a
	r.mu.Unlock()
	logger.LogInfo("📦 Loading accessory from cache: %s", a.DisplayName)
}

// Find returns the accessory with the given UUID, restored or registered
func (r *Registry) Find(id string) *Accessory {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a, ok := r.registered[id]; ok {
		return a
	}
	return r.restored[id]
}

// RegisterPlatformAccessories publishes accessories to the host
func (r *Registry) RegisterPlatformAccessories(accessories ...*Accessory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range accessories {
		if _, ok := r.registered[a.UUID]; !ok {
			r.order = append(r.order, a.UUID)
		}
		r.registered[a.UUID] = a
		delete(r.restored, a.UUID)
	}
}

// UpdatePlatformAccessories makes restored accessories active again
func (r *Registry) UpdatePlatformAccessories(accessories ...*Accessory) {
	r.RegisterPlatformAccessories(accessories...)
}

// Accessories lists the registered accessories in registration order
func (r *Registry) Accessories() []*Accessory {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Accessory, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.registered[id])
	}
	return out
}

// Subscribe returns a channel receiving every characteristic update and a
// function that cancels the subscription. Updates are dropped for a
// subscriber whose buffer is full.
func (r *Registry) Subscribe() (<-chan Update, func()) {
	ch := make(chan Update, subscriberBuffer)

	r.mu.Lock()
	id := r.nextSubID
	r.nextSubID++
	r.subscribers[id] = ch
	r.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subscribers, id)
			r.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (r *Registry) publish(u Update) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ch := range r.subscribers {
		select {
		case ch <- u:
		default:
			logger.LogTrace("🔍 Subscriber lagging, dropped update for %s/%s", u.DisplayName, u.Characteristic)
		}
	}
}
