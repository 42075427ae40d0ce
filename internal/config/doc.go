// Package config provides user preference management for dialscan.
//
// Preferences live in a small versioned YAML file. They seed the defaults of
// the CLI commands (discovery budget, port filter, receive timeout, whether
// to fetch device descriptions, the bridge listen address). Flags given on
// the command line always win.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/dialscan/config.yaml or $HOME/.config/dialscan/config.yaml
//   - macOS: $HOME/.config/dialscan/config.yaml
//   - Windows: %LOCALAPPDATA%\dialscan\config.yaml
//
// Discovered devices are never written to this file.
//
// # Usage Example
//
//	prefs, err := config.LoadPreferences()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	engine.Start(ctx, sink, prefs.DiscoveryTimeout(), prefs.TargetPort)
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across goroutines.
// File writes are protected by a mutex and are atomic (temp file + rename).
package config
