package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/muurk/dialscan/internal/description"
	"github.com/muurk/dialscan/internal/discovery"
	"github.com/muurk/dialscan/internal/tui"
	"github.com/muurk/dialscan/internal/ui"
)

// engineStopWait bounds how long exit waits for the session to stop
const engineStopWait = 5 * time.Second

var watchFlags discoveryFlags

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Interactive discovery screen with a start/stop toggle",
	Long: `Launch an interactive screen that runs discovery sessions on demand.

Press s to start or stop discovery and r to rescan. Each new session clears
the device list. A progress bar tracks the discovery budget. Devices from the
last session are printed when you quit.`,
	Example: `  # Launch the watch screen (default command)
  dialscan watch
  dialscan

  # Only devices on the Chromecast port, 20 second budget
  dialscan watch --port 8008 --timeout 20000`,
	RunE: runWatch,
}

func init() {
	addDiscoveryFlags(watchCmd, &watchFlags)
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if !ui.IsTerminal(os.Stdout) || !ui.IsTerminal(os.Stdin) {
		return errors.New("watch needs an interactive terminal; use 'dialscan scan' instead")
	}

	p, err := preferences()
	if err != nil {
		return err
	}
	s := watchFlags.resolve(cmd, p)

	engine := newEngine(s)
	var describer discovery.Describer
	if s.Describe {
		describer = description.NewClient()
	}

	model := tui.NewWatchModel(tui.WatchConfig{
		Engine:     engine,
		Describer:  describer,
		Timeout:    s.Timeout,
		TargetPort: s.TargetPort,
		Context:    cmd.Context(),
		AutoStart:  true,
	})

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	final, runErr := program.Run()

	stopCtx, cancel := context.WithTimeout(context.Background(), engineStopWait)
	defer cancel()
	if err := engine.StopAndWait(stopCtx); err != nil {
		return fmt.Errorf("discovery did not stop: %w", err)
	}

	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return fmt.Errorf("failed to run watch screen: %w", runErr)
	}

	if wm, ok := final.(tui.WatchModel); ok {
		if devices := wm.Devices(); len(devices) > 0 {
			return ui.NewPrinter(cmd.OutOrStdout()).PrintDevices(devices, ui.FormatTable)
		}
	}
	return nil
}
