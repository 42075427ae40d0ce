package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/muurk/dialscan/internal/bridge"
	"github.com/muurk/dialscan/internal/config"
)

var (
	serveFlags discoveryFlags
	bridgeAddr string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose discovery over a WebSocket bridge",
	Long: `Start a WebSocket bridge so another process can drive discovery.

Clients send JSON commands to /ws:

  {"id":"1","method":"startDiscovery","options":{"discoveryTimeout":5000,"targetPort":8008}}
  {"id":"2","method":"stopDiscovery"}

Every session event is broadcast to all connected clients:

  {"event":"SSDPResponse","data":"http://192.168.1.20:8008/ssdp/device-desc.xml"}
  {"event":"SSDPError","data":"..."}
  {"event":"SSDPStopped","data":"Discovery completed"}

The --timeout and --port flags set the defaults used when a
startDiscovery command omits them. GET /status reports the engine state.`,
	Example: `  # Listen on the default address
  dialscan serve

  # Listen on all interfaces
  dialscan serve --addr 0.0.0.0:8765 --log-level info`,
	RunE: runServe,
}

func init() {
	addDiscoveryFlags(serveCmd, &serveFlags)
	serveCmd.Flags().StringVar(&bridgeAddr, "addr", config.DefaultBridgeAddr, "Listen address for the bridge")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	p, err := preferences()
	if err != nil {
		return err
	}
	s := serveFlags.resolve(cmd, p)

	addr := p.BridgeAddr
	if cmd.Flags().Changed("addr") {
		addr = bridgeAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := bridge.New(newEngine(s), bridge.Config{
		Addr:              addr,
		DefaultTimeout:    s.Timeout,
		DefaultTargetPort: s.TargetPort,
	})

	fmt.Fprintf(cmd.ErrOrStderr(), "Bridge listening on ws://%s%s (Ctrl+C to stop)\n", addr, bridge.WebSocketPath)
	return srv.ListenAndServe(ctx)
}
