package config

import (
	"fmt"
	"time"
)

// CurrentVersion is the config file schema version
const CurrentVersion = 1

// Default preference values
const (
	DefaultDiscoveryTimeoutMs = 10000
	DefaultTargetPort         = -1
	DefaultReceiveTimeoutMs   = 3000
	DefaultBridgeAddr         = "127.0.0.1:8765"
)

// Registry represents the entire user configuration file.
// Discovered devices are never written here, only preferences.
type Registry struct {
	Version     int          `yaml:"version"`
	Preferences *Preferences `yaml:"preferences,omitempty"`
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	DiscoveryTimeoutMs int    `yaml:"discovery_timeout_ms"` // Total discovery budget
	TargetPort         int    `yaml:"target_port"`          // Location port filter, -1 accepts all
	ReceiveTimeoutMs   int    `yaml:"receive_timeout_ms"`   // Per-receive timeout (stop latency)
	Describe           bool   `yaml:"describe"`             // Fetch device descriptions for names
	BridgeAddr         string `yaml:"bridge_addr"`          // Listen address for 'dialscan serve'
	LogLevel           string `yaml:"log_level,omitempty"`  // debug, info, warn, error (empty = silent)
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     CurrentVersion,
		Preferences: DefaultPreferences(),
	}
}

// DefaultPreferences returns the built-in preferences
func DefaultPreferences() *Preferences {
	return &Preferences{
		DiscoveryTimeoutMs: DefaultDiscoveryTimeoutMs,
		TargetPort:         DefaultTargetPort,
		ReceiveTimeoutMs:   DefaultReceiveTimeoutMs,
		Describe:           true,
		BridgeAddr:         DefaultBridgeAddr,
	}
}

// DiscoveryTimeout returns the discovery budget as a duration
func (p *Preferences) DiscoveryTimeout() time.Duration {
	return time.Duration(p.DiscoveryTimeoutMs) * time.Millisecond
}

// ReceiveTimeout returns the per-receive timeout as a duration
func (p *Preferences) ReceiveTimeout() time.Duration {
	return time.Duration(p.ReceiveTimeoutMs) * time.Millisecond
}

// Validate checks preference ranges
func (p *Preferences) Validate() error {
	if p.DiscoveryTimeoutMs <= 0 {
		return fmt.Errorf("discovery_timeout_ms must be positive, got %d", p.DiscoveryTimeoutMs)
	}
	if p.ReceiveTimeoutMs <= 0 {
		return fmt.Errorf("receive_timeout_ms must be positive, got %d", p.ReceiveTimeoutMs)
	}
	if p.TargetPort != DefaultTargetPort && (p.TargetPort < 1 || p.TargetPort > 65535) {
		return fmt.Errorf("target_port must be -1 or between 1-65535, got %d", p.TargetPort)
	}
	if p.BridgeAddr == "" {
		return fmt.Errorf("bridge_addr must not be empty")
	}
	return nil
}
