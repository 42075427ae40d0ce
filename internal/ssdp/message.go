package ssdp

import (
	"strconv"
	"strings"
)

const (
	// MulticastAddr is the SSDP multicast group and port
	MulticastAddr = "239.255.255.250:1900"

	// SearchTarget is the DIAL service type searched for
	SearchTarget = "urn:dial-multiscreen-org:service:dial:1"

	// AnyPort disables the location port filter
	AnyPort = -1

	locationHeader = "location:"
)

// searchRequest is the M-SEARCH datagram sent on every loop iteration.
// Responders compare it byte for byte in practice, keep the CRLFs.
var searchRequest = []byte("M-SEARCH * HTTP/1.1\r\n" +
	"HOST: 239.255.255.250:1900\r\n" +
	"MAN: \"ssdp:discover\"\r\n" +
	"MX: 3\r\n" +
	"ST: " + SearchTarget + "\r\n" +
	"\r\n")

// SearchRequest returns a copy of the M-SEARCH datagram
func SearchRequest() []byte {
	out := make([]byte, len(searchRequest))
	copy(out, searchRequest)
	return out
}

// ParseLocation extracts the LOCATION header value from an SSDP response.
// The header name is matched case-insensitively on any line; the value runs
// to the end of that line and is trimmed. Returns false when the header is
// missing or empty.
func ParseLocation(response string) (string, bool) {
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimLeft(strings.TrimRight(line, "\r"), " \t")
		if len(line) < len(locationHeader) {
			continue
		}
		if !strings.EqualFold(line[:len(locationHeader)], locationHeader) {
			continue
		}
		value := strings.TrimSpace(line[len(locationHeader):])
		if value == "" {
			return "", false
		}
		return value, true
	}
	return "", false
}

// MatchesPort reports whether a location passes the port filter.
//
// The match is a plain substring test for ":<port>", so a location whose
// path happens to contain the same digits after a colon also passes.
func MatchesPort(location string, targetPort int) bool {
	if targetPort <= 0 {
		return true
	}
	return strings.Contains(location, ":"+strconv.Itoa(targetPort))
}
