package main

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/dialscan/internal/config"
	"github.com/muurk/dialscan/internal/ssdp"
)

// discoveryFlags are the flags shared by every command that runs discovery
type discoveryFlags struct {
	timeoutMs        int
	targetPort       int
	receiveTimeoutMs int
	describe         bool
}

// settings are the effective discovery settings of one command run
type settings struct {
	Timeout        time.Duration
	TargetPort     int
	ReceiveTimeout time.Duration
	Describe       bool
}

func addDiscoveryFlags(cmd *cobra.Command, f *discoveryFlags) {
	defaults := config.DefaultPreferences()
	cmd.Flags().IntVar(&f.timeoutMs, "timeout", defaults.DiscoveryTimeoutMs, "Discovery budget in milliseconds")
	cmd.Flags().IntVar(&f.targetPort, "port", defaults.TargetPort, "Only report locations containing \":<port>\" (-1 for any)")
	cmd.Flags().IntVar(&f.receiveTimeoutMs, "receive-timeout", defaults.ReceiveTimeoutMs, "Per-receive timeout in milliseconds (bounds stop latency)")
	cmd.Flags().BoolVar(&f.describe, "describe", defaults.Describe, "Fetch each device's description document for its name")
}

// resolve merges preferences with the flags given on the command line.
// Flags win only when explicitly set.
func (f *discoveryFlags) resolve(cmd *cobra.Command, p *config.Preferences) settings {
	s := settings{
		Timeout:        p.DiscoveryTimeout(),
		TargetPort:     p.TargetPort,
		ReceiveTimeout: p.ReceiveTimeout(),
		Describe:       p.Describe,
	}

	flags := cmd.Flags()
	if flags.Changed("timeout") {
		s.Timeout = time.Duration(f.timeoutMs) * time.Millisecond
	}
	if flags.Changed("port") {
		s.TargetPort = f.targetPort
	}
	if flags.Changed("receive-timeout") {
		s.ReceiveTimeout = time.Duration(f.receiveTimeoutMs) * time.Millisecond
	}
	if flags.Changed("describe") {
		s.Describe = f.describe
	}

	// Non-positive values select the engine defaults
	if s.Timeout <= 0 {
		s.Timeout = ssdp.DefaultTimeout
	}
	if s.TargetPort <= 0 {
		s.TargetPort = ssdp.AnyPort
	}
	return s
}

func newEngine(s settings) *ssdp.Engine {
	return ssdp.NewEngine(ssdp.Options{ReceiveTimeout: s.ReceiveTimeout})
}

func portLabel(port int) string {
	if port <= 0 {
		return "any"
	}
	return strconv.Itoa(port)
}
