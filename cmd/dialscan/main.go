// Dialscan discovers DIAL devices (Chromecast, smart TVs, streaming sticks)
// on the local network using SSDP.
//
// It can run a one-shot scan, an interactive watch screen with a start/stop
// toggle, or a WebSocket bridge that lets another process drive discovery.
//
// Usage:
//
//	dialscan [command] [flags]
//
// Running without arguments launches the watch screen.
// See 'dialscan --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/dialscan/internal/config"
	"github.com/muurk/dialscan/internal/logging"
	"github.com/muurk/dialscan/internal/version"
)

func main() {
	defer logging.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var (
	logLevel string

	// prefs holds the loaded preferences, or the defaults when loading failed
	prefs    = config.DefaultPreferences()
	prefsErr error
)

var rootCmd = &cobra.Command{
	Use:   "dialscan",
	Short: "DIAL device discovery over SSDP",
	Long: `Discover DIAL devices on the local network.

Sends an SSDP M-SEARCH for urn:dial-multiscreen-org:service:dial:1 and
reports every unique device location that answers within the discovery
budget. Locations can be filtered by port, and each device's description
document can be fetched to show its friendly name.

If no command is specified, the interactive watch screen launches.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadPreferences()
		if err != nil {
			prefsErr = err
		} else {
			prefs = loaded
		}

		level := prefs.LogLevel
		if cmd.Flags().Changed("log-level") {
			level = logLevel
		}
		return logging.Initialize(level)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(cmd, args)
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); silent when empty")

	addDiscoveryFlags(rootCmd, &watchFlags)

	rootCmd.AddCommand(versionCmd)
}

// preferences returns the loaded preferences, failing when the config file
// exists but could not be used
func preferences() (*config.Preferences, error) {
	if prefsErr != nil {
		return nil, fmt.Errorf("%w (run 'dialscan config init --force' to reset it)", prefsErr)
	}
	return prefs, nil
}
