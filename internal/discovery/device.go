package discovery

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/muurk/dialscan/internal/description"
)

// Source records which protocol reported a device
type Source string

const (
	// SourceSSDP marks devices answering the DIAL M-SEARCH
	SourceSSDP Source = "ssdp"

	// SourceMDNS marks Cast receivers found over mDNS
	SourceMDNS Source = "mdns"
)

// Device represents a discovered media receiver
type Device struct {
	// Location is the description URL, unique per device
	Location string `json:"location"`

	// Host is the host part of Location (usually an IPv4 address)
	Host string `json:"host,omitempty"`

	// Port is the port part of Location (80/443 when omitted)
	Port int `json:"port,omitempty"`

	// FriendlyName is the user-assigned device name, when known
	FriendlyName string `json:"friendlyName,omitempty"`

	// Manufacturer and ModelName come from the device description
	Manufacturer string `json:"manufacturer,omitempty"`
	ModelName    string `json:"modelName,omitempty"`

	// ApplicationURL is the DIAL REST endpoint (Application-URL header)
	ApplicationURL string `json:"applicationUrl,omitempty"`

	// Source is the protocol that reported the device
	Source Source `json:"source"`

	// Metadata contains additional mDNS TXT record data
	// Common fields: "id", "md", "fn", "ve"
	Metadata map[string]string `json:"metadata,omitempty"`

	// DescribeError is set when the description could not be fetched
	DescribeError string `json:"describeError,omitempty"`

	// DiscoveredAt is when the device was discovered
	DiscoveredAt time.Time `json:"discoveredAt"`
}

// NewDeviceFromLocation builds a Device from a reported location.
// Host and Port stay empty when the location is not a URL.
func NewDeviceFromLocation(location string, source Source) *Device {
	d := &Device{
		Location:     location,
		Source:       source,
		DiscoveredAt: time.Now(),
	}

	u, err := url.Parse(location)
	if err != nil || u.Host == "" {
		return d
	}

	d.Host = u.Hostname()
	if p := u.Port(); p != "" {
		d.Port, _ = strconv.Atoi(p)
	} else if u.Scheme == "https" {
		d.Port = 443
	} else {
		d.Port = 80
	}
	return d
}

// String returns a human-readable string representation of the device
func (d *Device) String() string {
	if d.FriendlyName != "" {
		return fmt.Sprintf("%s at %s", d.FriendlyName, d.Location)
	}
	return d.Location
}

// Name returns the friendly name, falling back to the host
func (d *Device) Name() string {
	if d.FriendlyName != "" {
		return d.FriendlyName
	}
	if d.Host != "" {
		return d.Host
	}
	return d.Location
}

// BaseURL returns the HTTP base URL for the device
func (d *Device) BaseURL() string {
	if d.Host == "" {
		return ""
	}
	return "http://" + net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (d *Device) GetMetadata(key string) string {
	if d.Metadata == nil {
		return ""
	}
	return d.Metadata[key]
}

// ApplyDescription copies naming fields from a fetched description.
// Fields the description leaves empty keep their current value.
func (d *Device) ApplyDescription(desc *description.Description) {
	if desc == nil {
		return
	}
	if name := desc.Name(); name != "" {
		d.FriendlyName = name
	}
	if desc.Manufacturer != "" {
		d.Manufacturer = desc.Manufacturer
	}
	if desc.ModelName != "" {
		d.ModelName = desc.ModelName
	}
	if desc.ApplicationURL != "" {
		d.ApplicationURL = desc.ApplicationURL
	}
	d.DescribeError = ""
}

// MergeDevices combines device lists keyed by Location, keeping the first
// occurrence and filling its empty naming fields from later duplicates.
func MergeDevices(lists ...[]*Device) []*Device {
	index := make(map[string]*Device)
	merged := make([]*Device, 0)

	for _, list := range lists {
		for _, d := range list {
			existing, ok := index[d.Location]
			if !ok {
				index[d.Location] = d
				merged = append(merged, d)
				continue
			}
			if existing.FriendlyName == "" {
				existing.FriendlyName = d.FriendlyName
			}
			if existing.ModelName == "" {
				existing.ModelName = d.ModelName
			}
			if existing.Manufacturer == "" {
				existing.Manufacturer = d.Manufacturer
			}
			if existing.Metadata == nil {
				existing.Metadata = d.Metadata
			}
		}
	}
	return merged
}
