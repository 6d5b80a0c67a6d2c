package hap

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"sonnen-mqtt-bridge/internal/logger"
)

// cachedService is the persisted form of a Service
type cachedService struct {
	Type            ServiceType                    `yaml:"type"`
	Name            string                         `yaml:"name,omitempty"`
	Subtype         string                         `yaml:"subtype,omitempty"`
	Primary         bool                           `yaml:"primary,omitempty"`
	Optional        []Characteristic               `yaml:"optional,omitempty"`
	Characteristics map[Characteristic]interface{} `yaml:"characteristics,omitempty"`
}

// cachedAccessory is the persisted form of an Accessory
type cachedAccessory struct {
	UUID        string          `yaml:"uuid"`
	DisplayName string          `yaml:"display_name"`
	Services    []cachedService `yaml:"services"`
}

type cacheFile struct {
	Accessories []cachedAccessory `yaml:"accessories"`
}

// LoadCache restores accessories saved by SaveCache. A missing file is not an error.
func (r *Registry) LoadCache(path string) error {
	if path == "" {
		return nil
	}

	// #nosec G304 - path comes from the operator's configuration file
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.LogDebug("🔧 No accessory cache at %s", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading accessory cache %s: %w", path, err)
	}

	var file cacheFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing accessory cache %s: %w", path, err)
	}

	for _, ca := range file.Accessories {
		if ca.UUID == "" {
			continue
		}
		a := &Accessory{UUID: ca.UUID, DisplayName: ca.DisplayName}
		for _, cs := range ca.Services {
			s := newService(a, cs.Type, cs.Name, cs.Subtype)
			s.primary = cs.Primary
			for _, c := range cs.Optional {
				s.optional[c] = true
			}
			for c, v := range cs.Characteristics {
				s.values[c] = v
			}
			a.services = append(a.services, s)
		}
		if a.InformationService() == nil {
			a.services = append([]*Service{newService(a, AccessoryInformation, a.DisplayName, "")}, a.services...)
		}
		r.ConfigureAccessory(a)
	}
	return nil
}

// SaveCache persists every known accessory. The file is replaced atomically.
func (r *Registry) SaveCache(path string) error {
	if path == "" {
		return nil
	}

	r.mu.RLock()
	all := make([]*Accessory, 0, len(r.registered)+len(r.restored))
	for _, id := range r.order {
		all = append(all, r.registered[id])
	}
	restored := make([]*Accessory, 0, len(r.restored))
	for _, a := range r.restored {
		restored = append(restored, a)
	}
	r.mu.RUnlock()
	sort.Slice(restored, func(i, j int) bool { return restored[i].UUID < restored[j].UUID })
	all = append(all, restored...)

	var file cacheFile
	for _, a := range all {
		ca := cachedAccessory{UUID: a.UUID, DisplayName: a.DisplayName}
		for _, s := range a.Services() {
			cs := cachedService{
				Type:            s.Type,
				Name:            s.Name,
				Subtype:         s.Subtype,
				Primary:         s.IsPrimary(),
				Characteristics: make(map[Characteristic]interface{}),
			}
			s.mu.RLock()
			for c := range s.optional {
				cs.Optional = append(cs.Optional, c)
			}
			for c, v := range s.values {
				cs.Characteristics[c] = v
			}
			s.mu.RUnlock()
			sort.Slice(cs.Optional, func(i, j int) bool { return cs.Optional[i] < cs.Optional[j] })
			ca.Services = append(ca.Services, cs)
		}
		file.Accessories = append(file.Accessories, ca)
	}

	data, err := yaml.Marshal(&file)
	if err != nil {
		return fmt.Errorf("encoding accessory cache: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("creating cache directory %s: %w", dir, err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("writing accessory cache %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing accessory cache %s: %w", path, err)
	}

	logger.LogDebug("💾 Saved %d accessories to %s", len(file.Accessories), path)
	return nil
}
