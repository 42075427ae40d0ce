package bridge

import (
	"fmt"
	"time"
)

// Event names sent to subscribers
const (
	EventResponse = "SSDPResponse"
	EventError    = "SSDPError"
	EventStopped  = "SSDPStopped"
)

// Command methods accepted from clients
const (
	MethodStartDiscovery = "startDiscovery"
	MethodStopDiscovery  = "stopDiscovery"
)

// StoppedMessage is the data carried by every SSDPStopped event
const StoppedMessage = "Discovery completed"

// Command is a control message sent by a client
type Command struct {
	ID      string        `json:"id,omitempty"`
	Method  string        `json:"method"`
	Options *StartOptions `json:"options,omitempty"`
}

// StartOptions are the startDiscovery parameters. Missing keys take the
// server defaults.
type StartOptions struct {
	DiscoveryTimeout *int `json:"discoveryTimeout,omitempty"` // milliseconds
	TargetPort       *int `json:"targetPort,omitempty"`
}

// Reply answers a single Command
type Reply struct {
	ID      string `json:"id,omitempty"`
	Method  string `json:"method"`
	Result  string `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
	Session string `json:"session,omitempty"`
}

// Event is a discovery notification fanned out to every subscriber
type Event struct {
	Event string `json:"event"`
	Data  string `json:"data"`
}

// Status is served on the status endpoint
type Status struct {
	Running bool   `json:"running"`
	Session string `json:"session,omitempty"`
	Clients int    `json:"clients"`
}

// resolve applies defaults and returns the timeout in milliseconds and the port
func (o *StartOptions) resolve(defaultTimeout time.Duration, defaultPort int) (int, int) {
	timeoutMs := int(defaultTimeout / time.Millisecond)
	port := defaultPort
	if o == nil {
		return timeoutMs, port
	}
	if o.DiscoveryTimeout != nil && *o.DiscoveryTimeout > 0 {
		timeoutMs = *o.DiscoveryTimeout
	}
	if o.TargetPort != nil {
		port = *o.TargetPort
	}
	return timeoutMs, port
}

// startedMessage is the acknowledgement returned for an accepted start
func startedMessage(timeoutMs, port int) string {
	return fmt.Sprintf("Discovery started with timeout: %d and port: %d", timeoutMs, port)
}
