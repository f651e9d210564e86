package config

import "time"

// Registry represents the entire user configuration file.
// This stores known TVs, application preferences, and the last connected
// device so the client can reconnect on startup.
type Registry struct {
	Version     int                `yaml:"version"`
	Devices     map[string]*Device `yaml:"devices,omitempty"` // Keyed by stable device ID
	LastDevice  string             `yaml:"last_device,omitempty"`
	Preferences *Preferences       `yaml:"preferences,omitempty"`
}

// Device represents a known TV. It is keyed by the device's stable ID in the
// Registry; the port is the last one that worked, since several protocols
// probe more than one port during connect.
type Device struct {
	Name     string    `yaml:"name,omitempty"`
	Brand    string    `yaml:"brand,omitempty"`
	Address  string    `yaml:"address,omitempty"`
	Port     int       `yaml:"port,omitempty"`
	LastSeen time.Time `yaml:"last_seen,omitempty"`
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	AutoDiscover         bool `yaml:"auto_discover"`          // Run a discovery sweep on startup
	DiscoverTimeout      int  `yaml:"discover_timeout"`       // Full sweep duration in seconds
	IncrementalTimeout   int  `yaml:"incremental_timeout"`    // Incremental sweep duration in seconds
	AutoReconnectOnStart bool `yaml:"auto_reconnect_onstart"` // Reconnect to the last device on startup
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version: 1,
		Devices: make(map[string]*Device),
		Preferences: &Preferences{
			AutoDiscover:         true,
			DiscoverTimeout:      5,
			IncrementalTimeout:   3,
			AutoReconnectOnStart: false,
		},
	}
}

// GetDevice retrieves a known device by its stable ID.
// Returns nil if the device doesn't exist in the registry.
func (r *Registry) GetDevice(id string) *Device {
	return r.Devices[id]
}

// EnsureDevice ensures a device entry exists in the registry.
// Returns the device entry (existing or newly created).
func (r *Registry) EnsureDevice(id string) *Device {
	if r.Devices == nil {
		r.Devices = make(map[string]*Device)
	}

	if dev, exists := r.Devices[id]; exists {
		return dev
	}

	dev := &Device{}
	r.Devices[id] = dev
	return dev
}

// RecordDevice updates the registry entry for a discovered or connected
// device, refreshing the last-seen timestamp.
func (r *Registry) RecordDevice(id, name, brand, address string, port int) {
	dev := r.EnsureDevice(id)
	dev.Name = name
	dev.Brand = brand
	dev.Address = address
	if port != 0 {
		dev.Port = port
	}
	dev.LastSeen = time.Now()
}

// SetLastDevice records the most recently connected device.
func (r *Registry) SetLastDevice(id string) {
	r.LastDevice = id
}

// FindByName returns the ID of the first known device whose name matches,
// or "" when none does.
func (r *Registry) FindByName(name string) string {
	for id, dev := range r.Devices {
		if dev.Name == name {
			return id
		}
	}
	return ""
}
