package hap

import (
	"sort"
	"sync"
)

// GetHandler computes a characteristic value when it is read
type GetHandler func() (interface{}, error)

// Service groups characteristics under a type and an optional subtype
type Service struct {
	Type    ServiceType
	Name    string
	Subtype string

	accessory *Accessory

	mu       sync.RWMutex
	primary  bool
	values   map[Characteristic]interface{}
	handlers map[Characteristic]GetHandler
	optional map[Characteristic]bool
}

func newService(accessory *Accessory, serviceType ServiceType, name, subtype string) *Service {
	s := &Service{
		Type:      serviceType,
		Name:      name,
		Subtype:   subtype,
		accessory: accessory,
		values:    make(map[Characteristic]interface{}),
		handlers:  make(map[Characteristic]GetHandler),
		optional:  make(map[Characteristic]bool),
	}
	if name != "" {
		s.values[Name] = name
	}
	return s
}

// SetCharacteristic stores a value without notifying subscribers
func (s *Service) SetCharacteristic(c Characteristic, value interface{}) *Service {
	s.mu.Lock()
	s.values[c] = value
	s.mu.Unlock()
	return s
}

// UpdateCharacteristic stores a value and notifies subscribers
func (s *Service) UpdateCharacteristic(c Characteristic, value interface{}) *Service {
	s.SetCharacteristic(c, value)
	if s.accessory != nil {
		s.accessory.notify(s, c, value)
	}
	return s
}

// AddOptionalCharacteristic declares a characteristic outside the service type's required set
func (s *Service) AddOptionalCharacteristic(c Characteristic) *Service {
	s.mu.Lock()
	s.optional[c] = true
	s.mu.Unlock()
	return s
}

// HasCharacteristic reports whether c has a value, a handler or was declared optional
func (s *Service) HasCharacteristic(c Characteristic) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, hasValue := s.values[c]
	_, hasHandler := s.handlers[c]
	return hasValue || hasHandler || s.optional[c]
}

// SetPrimaryService marks the service as the accessory's main function
func (s *Service) SetPrimaryService(primary bool) *Service {
	s.mu.Lock()
	s.primary = primary
	s.mu.Unlock()
	return s
}

// IsPrimary reports whether the service is primary
func (s *Service) IsPrimary() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.primary
}

// GetCharacteristic returns a handle for binding read handlers
func (s *Service) GetCharacteristic(c Characteristic) *CharacteristicHandle {
	return &CharacteristicHandle{service: s, characteristic: c}
}

// Value reads a characteristic: the bound handler when there is one, else the stored value
func (s *Service) Value(c Characteristic) (interface{}, error) {
	s.mu.RLock()
	handler, bound := s.handlers[c]
	value := s.values[c]
	s.mu.RUnlock()

	if bound {
		return handler()
	}
	return value, nil
}

// StoredValue returns the last value written, ignoring handlers
func (s *Service) StoredValue(c Characteristic) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[c]
	return v, ok
}

// Characteristics lists every known characteristic in name order
func (s *Service) Characteristics() []Characteristic {
	s.mu.RLock()
	seen := make(map[Characteristic]bool, len(s.values)+len(s.handlers)+len(s.optional))
	for c := range s.values {
		seen[c] = true
	}
	for c := range s.handlers {
		seen[c] = true
	}
	for c := range s.optional {
		seen[c] = true
	}
	s.mu.RUnlock()

	out := make([]Characteristic, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// CharacteristicHandle binds behaviour to one characteristic of a service
type CharacteristicHandle struct {
	service        *Service
	characteristic Characteristic
}

// OnGet binds the read handler, replacing any previous one
func (h *CharacteristicHandle) OnGet(handler GetHandler) *CharacteristicHandle {
	h.service.mu.Lock()
	h.service.handlers[h.characteristic] = handler
	h.service.mu.Unlock()
	return h
}

// Value reads the characteristic
func (h *CharacteristicHandle) Value() (interface{}, error) {
	return h.service.Value(h.characteristic)
}
