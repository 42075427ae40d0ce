package discovery

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/dialscan/internal/logging"
)

const (
	// CastServiceType is the mDNS service type Cast receivers advertise
	CastServiceType = "_googlecast._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// CastDescriptionPort is where Cast receivers serve their DIAL description
	CastDescriptionPort = 8008

	// CastDescriptionPath is the DIAL description path on Cast receivers
	CastDescriptionPath = "/ssdp/device-desc.xml"
)

// MDNSScanner finds Cast receivers over mDNS. It complements SSDP on
// networks that filter multicast to 239.255.255.250.
type MDNSScanner struct {
	// Timeout is the maximum time to wait for device discovery
	Timeout time.Duration

	// Service is the browsed service type (default CastServiceType)
	Service string
}

// NewMDNSScanner creates a new mDNS scanner with default settings
func NewMDNSScanner() *MDNSScanner {
	return &MDNSScanner{
		Timeout: DefaultScanTimeout,
		Service: CastServiceType,
	}
}

// ScanForDevices browses until the timeout or ctx expires and returns the
// unique receivers seen.
func (s *MDNSScanner) ScanForDevices(ctx context.Context) ([]*Device, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	var (
		mu      sync.Mutex
		devices = make([]*Device, 0)
		seen    = make(map[string]struct{})
	)

	entries := make(chan *zeroconf.ServiceEntry)
	go func() {
		for entry := range entries {
			device := parseServiceEntry(entry)
			if device == nil {
				continue
			}
			mu.Lock()
			if _, dup := seen[device.Location]; !dup {
				seen[device.Location] = struct{}{}
				devices = append(devices, device)
				logging.Debug("mDNS receiver found",
					zap.String("location", device.Location),
					zap.String("name", device.FriendlyName))
			}
			mu.Unlock()
		}
	}()

	if err := resolver.Browse(ctx, s.Service, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()
	result := make([]*Device, len(devices))
	copy(result, devices)
	return result, nil
}

// parseServiceEntry converts a zeroconf entry to a Device.
// Returns nil when the entry has no usable address.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Device {
	if entry == nil {
		return nil
	}

	var ip string
	for _, addr := range entry.AddrIPv4 {
		ip = addr.String()
		break
	}
	if ip == "" && len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			metadata[parts[0]] = ""
		}
	}

	// The mDNS port is the Cast channel; DIAL always answers on 8008
	location := "http://" + net.JoinHostPort(ip, strconv.Itoa(CastDescriptionPort)) + CastDescriptionPath
	device := NewDeviceFromLocation(location, SourceMDNS)
	device.FriendlyName = metadata["fn"]
	device.ModelName = metadata["md"]
	device.Metadata = metadata
	return device
}
