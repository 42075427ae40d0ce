package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/dialscan/internal/description"
	"github.com/muurk/dialscan/internal/discovery"
	"github.com/muurk/dialscan/internal/logging"
	"github.com/muurk/dialscan/internal/ui"
)

// progressInterval is how often the scan progress line is redrawn
const progressInterval = 100 * time.Millisecond

var (
	scanFlags    discoveryFlags
	outputFormat string
	jsonOutput   bool
	useMDNS      bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one discovery session and print the devices found",
	Long: `Run a single SSDP discovery session and print every unique device
location found within the budget.

Devices are printed in discovery order. With --mdns, Cast devices that
announce _googlecast._tcp are discovered in parallel and merged by location.
Press Ctrl+C to stop early; devices found so far are still printed.`,
	Example: `  # Scan for 10 seconds (default)
  dialscan scan

  # Quick scan, Chromecast port only
  dialscan scan --timeout 3000 --port 8008

  # JSON output for scripting
  dialscan scan --json

  # Include mDNS Cast discovery
  dialscan scan --mdns`,
	RunE: runScan,
}

func init() {
	addDiscoveryFlags(scanCmd, &scanFlags)
	scanCmd.Flags().StringVarP(&outputFormat, "format", "o", string(ui.FormatTable), "Output format (table, plain, json)")
	scanCmd.Flags().BoolVar(&jsonOutput, "json", false, "Shorthand for --format json")
	scanCmd.Flags().BoolVar(&useMDNS, "mdns", false, "Also discover Cast devices over mDNS")

	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	p, err := preferences()
	if err != nil {
		return err
	}
	s := scanFlags.resolve(cmd, p)

	format, err := ui.ParseFormat(outputFormat)
	if err != nil {
		return err
	}
	if jsonOutput {
		format = ui.FormatJSON
	}

	out := ui.NewPrinter(cmd.OutOrStdout())
	status := ui.NewPrinter(cmd.ErrOrStderr())

	if format == ui.FormatTable {
		out.PrintHeader(ui.NewHeader("DIAL Discovery", "dialscan "+cmd.Name(),
			ui.Param{Key: "Timeout", Value: s.Timeout.String()},
			ui.Param{Key: "Port", Value: portLabel(s.TargetPort)},
			ui.Param{Key: "Describe", Value: fmt.Sprintf("%t", s.Describe)},
			ui.Param{Key: "mDNS", Value: fmt.Sprintf("%t", useMDNS)},
		))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scanner := discovery.NewScanner(newEngine(s))
	scanner.Timeout = s.Timeout
	scanner.TargetPort = s.TargetPort
	if s.Describe {
		scanner.Describer = description.NewClient()
	}

	// mDNS runs alongside the SSDP session with the same budget
	var (
		mdnsWG      sync.WaitGroup
		mdnsDevices []*discovery.Device
	)
	if useMDNS {
		mdnsWG.Add(1)
		go func() {
			defer mdnsWG.Done()
			mdns := discovery.NewMDNSScanner()
			mdns.Timeout = s.Timeout
			devices, err := mdns.ScanForDevices(ctx)
			if err != nil {
				logging.Warn("mDNS scan failed", zap.Error(err))
			}
			mdnsDevices = devices
		}()
	}

	start := time.Now()
	found, scanErr := streamWithProgress(ctx, scanner, status, s.Timeout)
	mdnsWG.Wait()
	elapsed := time.Since(start)

	devices := discovery.MergeDevices(found, mdnsDevices)

	if scanErr != nil && !errors.Is(scanErr, context.Canceled) {
		if format == ui.FormatTable {
			status.PrintResult(ui.NewFailureResult("Discovery failed", scanErr, []string{
				"Check that this machine has a network interface with multicast enabled",
				"Another process may hold the socket; close other SSDP tools and retry",
				"Run with --log-level debug to see the datagrams exchanged",
			}))
		}
		if len(devices) > 0 {
			_ = out.PrintDevices(devices, format)
		}
		return scanErr
	}

	if err := out.PrintDevices(devices, format); err != nil {
		return err
	}

	if format != ui.FormatTable {
		return nil
	}
	if len(devices) == 0 {
		out.PrintResult(ui.NewWarningResult("No devices found", []string{
			"Make sure this machine is on the same network as the receiver",
			"Some routers drop multicast traffic between WiFi and Ethernet",
			"Try a longer budget (dialscan scan --timeout 20000)",
			"Drop the port filter if one is set (--port -1)",
		}, ui.Param{Key: "Duration", Value: elapsed.Round(time.Millisecond).String()}))
		return nil
	}

	title := fmt.Sprintf("%d device(s) found", len(devices))
	if errors.Is(scanErr, context.Canceled) {
		title += " (interrupted)"
	}
	out.PrintResult(ui.NewSuccessResult(title,
		ui.Param{Key: "Duration", Value: elapsed.Round(time.Millisecond).String()},
		ui.Param{Key: "Port", Value: portLabel(s.TargetPort)},
	))
	return nil
}

// streamWithProgress runs one session, redrawing a progress line on status
// until it stops
func streamWithProgress(ctx context.Context, scanner *discovery.Scanner, status *ui.Printer, budget time.Duration) ([]*discovery.Device, error) {
	var (
		count   atomic.Int32
		devices []*discovery.Device
	)

	progress := ui.NewScanProgress(budget)
	start := time.Now()
	done := make(chan struct{})
	var drawn sync.WaitGroup
	drawn.Add(1)
	go func() {
		defer drawn.Done()
		ticker := time.NewTicker(progressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				progress.Elapsed = time.Since(start)
				progress.Found = int(count.Load())
				progress.Done = true
				status.PrintProgress(progress)
				return
			case <-ticker.C:
				progress.Elapsed = time.Since(start)
				progress.Found = int(count.Load())
				status.PrintProgress(progress)
			}
		}
	}()

	err := scanner.Stream(ctx, func(d *discovery.Device) {
		devices = append(devices, d)
		count.Add(1)
	})
	close(done)
	drawn.Wait()

	return devices, err
}
