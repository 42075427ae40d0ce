package ssdp

import "fmt"

// EventKind identifies the kind of a discovery event
type EventKind int

const (
	// EventFound carries a newly reported device location
	EventFound EventKind = iota
	// EventError carries a human-readable fatal error message
	EventError
	// EventStopped is the last event of every session
	EventStopped
)

// String returns the event kind name
func (k EventKind) String() string {
	switch k {
	case EventFound:
		return "found"
	case EventError:
		return "error"
	case EventStopped:
		return "stopped"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is a single notification delivered to a Sink
type Event struct {
	Kind     EventKind
	Location string // set for EventFound
	Message  string // set for EventError
}

// String returns a short description of the event
func (e Event) String() string {
	switch e.Kind {
	case EventFound:
		return "found " + e.Location
	case EventError:
		return "error: " + e.Message
	default:
		return e.Kind.String()
	}
}

// Sink receives the events of a discovery session.
//
// All calls for one session are made sequentially from the session worker.
// DiscoveryStopped is called exactly once and always last.
type Sink interface {
	DeviceFound(location string)
	DiscoveryError(message string)
	DiscoveryStopped()
}

// SinkFunc adapts a function taking Events to the Sink interface
type SinkFunc func(Event)

// DeviceFound implements Sink
func (f SinkFunc) DeviceFound(location string) {
	f(Event{Kind: EventFound, Location: location})
}

// DiscoveryError implements Sink
func (f SinkFunc) DiscoveryError(message string) {
	f(Event{Kind: EventError, Message: message})
}

// DiscoveryStopped implements Sink
func (f SinkFunc) DiscoveryStopped() {
	f(Event{Kind: EventStopped})
}

// ChanSink returns a sink that forwards events to a buffered channel.
// The channel is closed after the Stopped event has been sent, so it can be
// ranged over by a single consumer.
func ChanSink(buffer int) (Sink, <-chan Event) {
	ch := make(chan Event, buffer)
	return SinkFunc(func(ev Event) {
		ch <- ev
		if ev.Kind == EventStopped {
			close(ch)
		}
	}), ch
}
