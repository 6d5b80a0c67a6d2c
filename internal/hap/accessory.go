package hap

import (
	"sync"
	"time"
)

// Update is emitted for every UpdateCharacteristic call
type Update struct {
	AccessoryUUID  string         `json:"accessory_uuid"`
	DisplayName    string         `json:"display_name"`
	ServiceSubtype string         `json:"service_subtype,omitempty"`
	Characteristic Characteristic `json:"characteristic"`
	Value          interface{}    `json:"value"`
	Time           time.Time      `json:"time"`
}

// Accessory is one device exposed to the host, identified by a stable UUID
type Accessory struct {
	UUID        string
	DisplayName string

	mu       sync.RWMutex
	services []*Service
	notifier func(Update)
}

// NewAccessory creates an accessory with its information service
func NewAccessory(displayName, uuid string) *Accessory {
	a := &Accessory{UUID: uuid, DisplayName: displayName}
	a.services = append(a.services, newService(a, AccessoryInformation, displayName, ""))
	return a
}

// InformationService returns the accessory information service
func (a *Accessory) InformationService() *Service {
	return a.GetServiceByType(AccessoryInformation)
}

// GetService finds a service by subtype, nil when absent
func (a *Accessory) GetService(subtype string) *Service {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, s := range a.services {
		if s.Subtype != "" && s.Subtype == subtype {
			return s
		}
	}
	return nil
}

// GetServiceByType finds the first service of the given type, nil when absent
func (a *Accessory) GetServiceByType(serviceType ServiceType) *Service {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, s := range a.services {
		if s.Type == serviceType {
			return s
		}
	}
	return nil
}

// AddService creates and attaches a new service
func (a *Accessory) AddService(serviceType ServiceType, name, subtype string) *Service {
	s := newService(a, serviceType, name, subtype)
	a.mu.Lock()
	a.services = append(a.services, s)
	a.mu.Unlock()
	return s
}

// Services returns the attached services in creation order
func (a *Accessory) Services() []*Service {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]*Service(nil), a.services...)
}

func (a *Accessory) setNotifier(fn func(Update)) {
	a.mu.Lock()
	a.notifier = fn
	a.mu.Unlock()
}

func (a *Accessory) notify(s *Service, c Characteristic, value interface{}) {
	a.mu.RLock()
	fn := a.notifier
	a.mu.RUnlock()
	if fn == nil {
		return
	}
	fn(Update{
		AccessoryUUID:  a.UUID,
		DisplayName:    a.DisplayName,
		ServiceSubtype: s.Subtype,
		Characteristic: c,
		Value:          value,
		Time:           time.Now(),
	})
}
