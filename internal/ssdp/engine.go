package ssdp

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muurk/dialscan/internal/logging"
)

const (
	// DefaultTimeout is the discovery budget used when none is given
	DefaultTimeout = 10 * time.Second

	// DefaultReceiveTimeout bounds each receive, and so the stop latency
	DefaultReceiveTimeout = 3 * time.Second

	// DefaultBufferSize is the receive buffer size for one datagram
	DefaultBufferSize = 8192
)

// Options configures an Engine
type Options struct {
	// GroupAddr is where M-SEARCH requests are sent (default: MulticastAddr)
	GroupAddr string

	// ReceiveTimeout is the per-receive timeout (default: DefaultReceiveTimeout)
	ReceiveTimeout time.Duration

	// BufferSize is the datagram buffer size (default: DefaultBufferSize)
	BufferSize int

	// Listen opens the session transport (default: ListenUDP)
	Listen ListenFunc
}

func (o Options) withDefaults() Options {
	if o.GroupAddr == "" {
		o.GroupAddr = MulticastAddr
	}
	if o.ReceiveTimeout <= 0 {
		o.ReceiveTimeout = DefaultReceiveTimeout
	}
	if o.BufferSize <= 0 {
		o.BufferSize = DefaultBufferSize
	}
	if o.Listen == nil {
		o.Listen = ListenUDP
	}
	return o
}

// Engine runs at most one discovery session at a time
type Engine struct {
	opts Options

	mu      sync.Mutex
	current *Session
}

// NewEngine creates a discovery engine
func NewEngine(opts Options) *Engine {
	return &Engine{opts: opts.withDefaults()}
}

// Session is a single discovery run.
// Everything except the running flag is owned by the session worker.
type Session struct {
	id         string
	sink       Sink
	timeout    time.Duration
	targetPort int
	deadline   time.Time

	running atomic.Bool
	seen    map[string]struct{}
	found   int
	done    chan struct{}
}

// ID returns the session identifier used in logs
func (s *Session) ID() string { return s.id }

// Deadline returns when the session budget expires
func (s *Session) Deadline() time.Time { return s.deadline }

// Timeout returns the session budget
func (s *Session) Timeout() time.Duration { return s.timeout }

// TargetPort returns the port filter (AnyPort accepts all)
func (s *Session) TargetPort() int { return s.targetPort }

// Running reports whether the session has not been asked to stop and has
// not finished.
func (s *Session) Running() bool { return s.running.Load() }

// Done is closed after the Stopped event has been delivered
func (s *Session) Done() <-chan struct{} { return s.done }

// Stop asks the worker to finish. The worker notices on its next loop
// iteration, at most one receive timeout later. Safe to call repeatedly.
func (s *Session) Stop() {
	if s.running.CompareAndSwap(true, false) {
		logging.LogSessionEvent(s.id, "stop_requested")
	}
}

// Start launches a discovery session and returns immediately.
//
// A non-positive timeout selects DefaultTimeout. targetPort is AnyPort or a
// port number that locations must contain. If a session is already active
// the call is ignored: the active session is returned with started false and
// its state is left untouched.
//
// Cancelling ctx stops the session the same way Stop does.
func (e *Engine) Start(ctx context.Context, sink Sink, timeout time.Duration, targetPort int) (*Session, bool) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current != nil {
		logging.Warn("Discovery already running, ignoring start request",
			zap.String("session_id", e.current.id),
		)
		return e.current, false
	}

	s := &Session{
		id:         uuid.NewString(),
		sink:       sink,
		timeout:    timeout,
		targetPort: targetPort,
		deadline:   time.Now().Add(timeout),
		seen:       make(map[string]struct{}),
		done:       make(chan struct{}),
	}
	s.running.Store(true)
	e.current = s

	logging.LogSessionEvent(s.id, "started",
		zap.Duration("timeout", timeout),
		zap.Int("target_port", targetPort),
		zap.String("group", e.opts.GroupAddr),
	)

	go e.run(ctx, s)
	return s, true
}

// Stop asks the active session, if any, to finish
func (e *Engine) Stop() {
	e.mu.Lock()
	s := e.current
	e.mu.Unlock()

	if s != nil {
		s.Stop()
	}
}

// Running reports whether a session worker is active
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current != nil
}

// Current returns the active session or nil
func (e *Engine) Current() *Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// Wait blocks until the active session has delivered its Stopped event.
// Returns immediately when no session is active.
func (e *Engine) Wait(ctx context.Context) error {
	s := e.Current()
	if s == nil {
		return nil
	}
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StopAndWait stops the active session and waits for it to finish
func (e *Engine) StopAndWait(ctx context.Context) error {
	e.Stop()
	return e.Wait(ctx)
}

// run is the session worker. It always ends with exactly one Stopped event.
func (e *Engine) run(ctx context.Context, s *Session) {
	defer e.release(s)

	err := e.loop(ctx, s)
	s.running.Store(false)

	if err != nil {
		logging.Error("Discovery failed",
			zap.String("session_id", s.id),
			zap.Error(err),
		)
		s.sink.DiscoveryError(err.Error())
	}

	logging.LogSessionEvent(s.id, "stopped", zap.Int("devices_found", s.found))
	s.sink.DiscoveryStopped()
}

// release frees the engine slot and wakes waiters
func (e *Engine) release(s *Session) {
	e.mu.Lock()
	if e.current == s {
		e.current = nil
	}
	e.mu.Unlock()
	close(s.done)
}

// loop owns the transport for the lifetime of the session
func (e *Engine) loop(ctx context.Context, s *Session) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("discovery worker panic: %v", r)
		}
	}()

	group, err := net.ResolveUDPAddr("udp4", e.opts.GroupAddr)
	if err != nil {
		return fmt.Errorf("failed to resolve group address %s: %w", e.opts.GroupAddr, err)
	}

	conn, err := e.opts.Listen()
	if err != nil {
		return fmt.Errorf("failed to open transport: %w", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			logging.Debug("Transport close failed", zap.String("session_id", s.id), zap.Error(cerr))
		}
	}()

	buf := make([]byte, e.opts.BufferSize)
	request := SearchRequest()

	for s.running.Load() && time.Now().Before(s.deadline) {
		if ctx.Err() != nil {
			logging.LogSessionEvent(s.id, "context_cancelled")
			return nil
		}

		if _, err := conn.WriteTo(request, group); err != nil {
			return fmt.Errorf("failed to send M-SEARCH: %w", err)
		}
		logging.LogDatagram("sent", group.String(), request)

		readDeadline := time.Now().Add(e.opts.ReceiveTimeout)
		if readDeadline.After(s.deadline) {
			readDeadline = s.deadline
		}
		if err := conn.SetReadDeadline(readDeadline); err != nil {
			return fmt.Errorf("failed to set read deadline: %w", err)
		}

		n, peer, err := conn.ReadFrom(buf)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			return fmt.Errorf("failed to receive SSDP response: %w", err)
		}

		s.handleResponse(buf[:n], peer)
	}

	return nil
}

// handleResponse parses, filters and dedups one datagram
func (s *Session) handleResponse(data []byte, peer net.Addr) {
	from := peerString(peer)
	logging.LogDatagram("received", from, data)

	location, ok := ParseLocation(strings.ToValidUTF8(string(data), "�"))
	if !ok {
		logging.Debug("Ignoring response without LOCATION", zap.String("peer", from))
		return
	}

	if !MatchesPort(location, s.targetPort) {
		logging.Debug("Location filtered by port",
			zap.String("location", location),
			zap.Int("target_port", s.targetPort),
		)
		return
	}

	if _, dup := s.seen[location]; dup {
		logging.Debug("Duplicate location", zap.String("location", location))
		return
	}
	s.seen[location] = struct{}{}
	s.found++

	logging.Info("Device found",
		zap.String("session_id", s.id),
		zap.String("location", location),
		zap.String("peer", from),
	)
	s.sink.DeviceFound(location)
}

func peerString(addr net.Addr) string {
	if addr == nil {
		return "unknown"
	}
	return addr.String()
}
