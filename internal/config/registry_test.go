package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestGetConfigDir(t *testing.T) {
	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if configDir == "" {
		t.Error("GetConfigDir() returned empty string")
	}

	if !strings.Contains(configDir, "dialscan") {
		t.Errorf("GetConfigDir() = %v, should contain 'dialscan'", configDir)
	}

	switch runtime.GOOS {
	case "windows":
		if !strings.Contains(configDir, "AppData") && !strings.Contains(configDir, "Local") {
			t.Errorf("Windows config dir should contain 'AppData' or 'Local', got: %v", configDir)
		}
	case "darwin":
		if !strings.Contains(configDir, ".config") {
			t.Errorf("macOS config dir should contain '.config', got: %v", configDir)
		}
	}

	t.Logf("Config directory: %s", configDir)
}

func TestGetConfigDir_XDG(t *testing.T) {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		t.Skip("XDG_CONFIG_HOME only applies on Linux and other Unix systems")
	}

	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}
	if want := filepath.Join(tmpDir, "dialscan"); configDir != want {
		t.Errorf("GetConfigDir() = %v, want %v", configDir, want)
	}
}

func TestGetConfigPath(t *testing.T) {
	configPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}

	if filepath.Base(configPath) != "config.yaml" {
		t.Errorf("GetConfigPath() should end with 'config.yaml', got: %v", configPath)
	}
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()

	if reg.Version != 1 {
		t.Errorf("NewRegistry().Version = %v, want 1", reg.Version)
	}

	if reg.Preferences == nil {
		t.Fatal("NewRegistry().Preferences should not be nil")
	}

	prefs := reg.Preferences
	if prefs.DiscoveryTimeout() != 10*time.Second {
		t.Errorf("DiscoveryTimeout() = %v, want 10s", prefs.DiscoveryTimeout())
	}
	if prefs.ReceiveTimeout() != 3*time.Second {
		t.Errorf("ReceiveTimeout() = %v, want 3s", prefs.ReceiveTimeout())
	}
	if prefs.TargetPort != -1 {
		t.Errorf("TargetPort = %v, want -1", prefs.TargetPort)
	}
	if !prefs.Describe {
		t.Error("Describe should be true by default")
	}
	if prefs.BridgeAddr != DefaultBridgeAddr {
		t.Errorf("BridgeAddr = %v, want %v", prefs.BridgeAddr, DefaultBridgeAddr)
	}
	if err := prefs.Validate(); err != nil {
		t.Errorf("default preferences invalid: %v", err)
	}
}

func TestPreferencesValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(p *Preferences)
		wantErr bool
	}{
		{"defaults", func(p *Preferences) {}, false},
		{"specific port", func(p *Preferences) { p.TargetPort = 8008 }, false},
		{"zero timeout", func(p *Preferences) { p.DiscoveryTimeoutMs = 0 }, true},
		{"negative receive timeout", func(p *Preferences) { p.ReceiveTimeoutMs = -5 }, true},
		{"port zero", func(p *Preferences) { p.TargetPort = 0 }, true},
		{"port too large", func(p *Preferences) { p.TargetPort = 70000 }, true},
		{"empty bridge addr", func(p *Preferences) { p.BridgeAddr = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPreferences()
			tt.modify(p)
			err := p.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRegistrySaveAndLoad(t *testing.T) {
	testConfigPath := filepath.Join(t.TempDir(), "nested", "config.yaml")

	reg := NewRegistry()
	reg.Preferences.DiscoveryTimeoutMs = 5000
	reg.Preferences.TargetPort = 8008
	reg.Preferences.Describe = false
	reg.Preferences.LogLevel = "debug"

	if err := reg.SaveTo(testConfigPath); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}

	if _, err := os.Stat(testConfigPath + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind after save")
	}

	loaded, err := loadRegistryFromFile(testConfigPath)
	if err != nil {
		t.Fatalf("loadRegistryFromFile() error = %v", err)
	}

	prefs := loaded.Preferences
	if prefs.DiscoveryTimeoutMs != 5000 {
		t.Errorf("Loaded DiscoveryTimeoutMs = %v, want 5000", prefs.DiscoveryTimeoutMs)
	}
	if prefs.TargetPort != 8008 {
		t.Errorf("Loaded TargetPort = %v, want 8008", prefs.TargetPort)
	}
	if prefs.Describe {
		t.Error("Loaded Describe = true, want false")
	}
	if prefs.LogLevel != "debug" {
		t.Errorf("Loaded LogLevel = %v, want debug", prefs.LogLevel)
	}
}

func TestLoadRegistryFromFile_Partial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("version: 1\npreferences:\n  target_port: 8008\n")
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	reg, err := loadRegistryFromFile(path)
	if err != nil {
		t.Fatalf("loadRegistryFromFile() error = %v", err)
	}

	if reg.Preferences.TargetPort != 8008 {
		t.Errorf("TargetPort = %v, want 8008", reg.Preferences.TargetPort)
	}
	// Missing keys keep their defaults
	if reg.Preferences.DiscoveryTimeoutMs != DefaultDiscoveryTimeoutMs {
		t.Errorf("DiscoveryTimeoutMs = %v, want %v", reg.Preferences.DiscoveryTimeoutMs, DefaultDiscoveryTimeoutMs)
	}
	if !reg.Preferences.Describe {
		t.Error("Describe = false, want default true")
	}
}

func TestLoadRegistryFromFile_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"wrong version", "version: 2\n"},
		{"malformed yaml", "version: [1\n"},
		{"invalid preferences", "version: 1\npreferences:\n  discovery_timeout_ms: -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.data), 0600); err != nil {
				t.Fatalf("Failed to write test config: %v", err)
			}
			if _, err := loadRegistryFromFile(path); err == nil {
				t.Error("loadRegistryFromFile() error = nil, want error")
			}
		})
	}
}

func TestLoadRegistryFromFile_Missing(t *testing.T) {
	reg, err := loadRegistryFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("loadRegistryFromFile() error = %v", err)
	}
	if reg.Preferences.DiscoveryTimeoutMs != DefaultDiscoveryTimeoutMs {
		t.Errorf("missing file should yield defaults, got %+v", reg.Preferences)
	}
}

func TestMarshalHeader(t *testing.T) {
	data, err := NewRegistry().Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	text := string(data)
	if !strings.HasPrefix(text, "# dialscan configuration file") {
		t.Errorf("Marshal() missing header, got:\n%s", text)
	}
	if !strings.Contains(text, "discovery_timeout_ms: 10000") {
		t.Errorf("Marshal() missing discovery_timeout_ms, got:\n%s", text)
	}
}
