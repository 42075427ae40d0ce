// Package ssdptest provides an in-memory ssdp.Transport for tests.
package ssdptest

import (
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/muurk/dialscan/internal/ssdp"
)

// Responder is the address responses appear to come from
var Responder = &net.UDPAddr{IP: net.IPv4(10, 0, 0, 1), Port: 1900}

// Transport answers the first M-SEARCH with a fixed list of responses and
// otherwise blocks until the read deadline, like a quiet network.
type Transport struct {
	responses []string

	mu       sync.Mutex
	queue    []string
	deadline time.Time
	sent     int
	closed   bool
	readErr  error
	writeErr error
}

// NewTransport creates a transport replying with responses to the first request
func NewTransport(responses ...string) *Transport {
	return &Transport{responses: responses}
}

// Response formats a minimal SSDP response carrying location
func Response(location string) string {
	return fmt.Sprintf("HTTP/1.1 200 OK\r\nCACHE-CONTROL: max-age=1800\r\nLOCATION: %s\r\nST: %s\r\n\r\n", location, ssdp.SearchTarget)
}

// Options returns engine options that open t with a short receive timeout
func (t *Transport) Options() ssdp.Options {
	return ssdp.Options{
		GroupAddr:      "127.0.0.1:1900",
		ReceiveTimeout: 20 * time.Millisecond,
		Listen:         func() (ssdp.Transport, error) { return t, nil },
	}
}

// FailReads makes every following read fail with err
func (t *Transport) FailReads(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.readErr = err
}

// FailWrites makes every following write fail with err
func (t *Transport) FailWrites(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writeErr = err
}

// Sent returns the number of requests written
func (t *Transport) Sent() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sent
}

// Closed reports whether Close was called
func (t *Transport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// WriteTo implements ssdp.Transport
func (t *Transport) WriteTo(b []byte, addr net.Addr) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.writeErr != nil {
		return 0, t.writeErr
	}
	t.sent++
	if t.sent == 1 {
		t.queue = append(t.queue, t.responses...)
	}
	return len(b), nil
}

// ReadFrom implements ssdp.Transport
func (t *Transport) ReadFrom(b []byte) (int, net.Addr, error) {
	t.mu.Lock()
	if t.readErr != nil {
		err := t.readErr
		t.mu.Unlock()
		return 0, nil, err
	}
	if len(t.queue) > 0 {
		msg := t.queue[0]
		t.queue = t.queue[1:]
		t.mu.Unlock()
		return copy(b, msg), Responder, nil
	}
	deadline := t.deadline
	t.mu.Unlock()

	time.Sleep(time.Until(deadline))
	return 0, nil, os.ErrDeadlineExceeded
}

// SetReadDeadline implements ssdp.Transport
func (t *Transport) SetReadDeadline(deadline time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.deadline = deadline
	return nil
}

// Close implements ssdp.Transport
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}
