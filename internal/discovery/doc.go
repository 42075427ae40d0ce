// Package discovery turns discovery events into Device values.
//
// Scanner drives an ssdp.Engine for one session and collects or streams the
// devices it reports. MDNSScanner is a secondary source for Cast receivers
// advertising "_googlecast._tcp", useful on networks that drop SSDP
// multicast. Both produce Device values keyed by their description URL, so
// MergeDevices can combine them.
//
// # Discovery Process
//
//  1. The engine sends DIAL M-SEARCH requests and reports unique locations
//  2. Each location becomes a Device (host and port parsed from the URL)
//  3. With a Describer set, the device description is fetched for its name
//  4. Devices are delivered in discovery order until the session stops
//
// # Usage Example
//
//	engine := ssdp.NewEngine(ssdp.Options{})
//	scanner := discovery.NewScanner(engine)
//	scanner.Timeout = 5 * time.Second
//	scanner.Describer = description.NewClient()
//
//	devices, err := scanner.ScanForDevices(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, device := range devices {
//	    fmt.Printf("Found: %s\n", device)
//	}
//
// # Network Requirements
//
//   - SSDP needs outbound UDP to 239.255.255.250:1900 and inbound replies
//   - mDNS needs UDP port 5353
//   - Devices must be on the same local network segment
//
// # Thread Safety
//
// A Scanner shares its engine's single-session rule: a second scan on the
// same engine fails with ErrScanInProgress until the first returns.
package discovery
