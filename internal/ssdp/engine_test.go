package ssdp

import (
	"context"
	"errors"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeTransport is an in-memory Transport that honors read deadlines
type fakeTransport struct {
	inbox chan []byte

	mu       sync.Mutex
	deadline time.Time
	sent     int
	closed   bool
	readErr  error
	writeErr error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{inbox: make(chan []byte, 64)}
}

func (f *fakeTransport) WriteTo(b []byte, addr net.Addr) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	f.sent++
	return len(b), nil
}

func (f *fakeTransport) ReadFrom(b []byte) (int, net.Addr, error) {
	f.mu.Lock()
	deadline, readErr := f.deadline, f.readErr
	f.mu.Unlock()

	if readErr != nil {
		return 0, nil, readErr
	}

	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	select {
	case msg := <-f.inbox:
		n := copy(b, msg)
		return n, &net.UDPAddr{IP: net.IPv4(10, 0, 0, 1), Port: 1900}, nil
	case <-timer.C:
		return 0, nil, os.ErrDeadlineExceeded
	}
}

func (f *fakeTransport) SetReadDeadline(t time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deadline = t
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) stats() (sent int, closed bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent, f.closed
}

func (f *fakeTransport) push(response string) {
	f.inbox <- []byte(response)
}

func response(location string) string {
	return "HTTP/1.1 200 OK\r\n" +
		"CACHE-CONTROL: max-age=1800\r\n" +
		"LOCATION: " + location + "\r\n" +
		"ST: urn:dial-multiscreen-org:service:dial:1\r\n\r\n"
}

func newTestEngine(ft *fakeTransport, listens *int32) *Engine {
	return NewEngine(Options{
		ReceiveTimeout: 20 * time.Millisecond,
		Listen: func() (Transport, error) {
			if listens != nil {
				atomic.AddInt32(listens, 1)
			}
			return ft, nil
		},
	})
}

// collect drains events until the channel closes after Stopped
func collect(t *testing.T, events <-chan Event, limit time.Duration) []Event {
	t.Helper()

	var got []Event
	timeout := time.After(limit)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return got
			}
			got = append(got, ev)
		case <-timeout:
			t.Fatalf("session did not stop within %v, events so far: %v", limit, got)
		}
	}
}

func assertEvents(t *testing.T, got []Event, want []Event) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("got %d events %v, want %d events %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i].Kind != want[i].Kind || got[i].Location != want[i].Location {
			t.Errorf("event[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestEngine_ReportsUniqueLocationsInArrivalOrder(t *testing.T) {
	ft := newFakeTransport()
	ft.push(response("http://10.0.0.5:8008/desc.xml"))
	ft.push(response("http://10.0.0.5:8008/desc.xml"))
	ft.push("HTTP/1.1 200 OK\r\nST: upnp:rootdevice\r\n\r\n")
	ft.push(response("http://10.0.0.6:8008/desc.xml"))
	ft.push(response("http://10.0.0.5:8008/desc.xml"))

	engine := newTestEngine(ft, nil)
	sink, events := ChanSink(16)

	budget := 300 * time.Millisecond
	start := time.Now()
	if _, started := engine.Start(context.Background(), sink, budget, AnyPort); !started {
		t.Fatal("Start() started = false, want true")
	}

	got := collect(t, events, 5*time.Second)
	elapsed := time.Since(start)

	assertEvents(t, got, []Event{
		{Kind: EventFound, Location: "http://10.0.0.5:8008/desc.xml"},
		{Kind: EventFound, Location: "http://10.0.0.6:8008/desc.xml"},
		{Kind: EventStopped},
	})

	if elapsed < budget {
		t.Errorf("session ended after %v, before its %v budget", elapsed, budget)
	}
	if elapsed > budget+time.Second {
		t.Errorf("session ended after %v, want about %v", elapsed, budget)
	}

	sent, closed := ft.stats()
	if sent < 5 {
		t.Errorf("sent %d M-SEARCH requests, want at least one per datagram (5)", sent)
	}
	if !closed {
		t.Error("transport was not closed")
	}
	if engine.Running() {
		t.Error("engine.Running() = true after Stopped")
	}
}

func TestEngine_PortFilter(t *testing.T) {
	tests := []struct {
		name string
		port int
		want []Event
	}{
		{
			name: "specific port",
			port: 8008,
			want: []Event{
				{Kind: EventFound, Location: "http://10.0.0.5:8008/desc.xml"},
				{Kind: EventStopped},
			},
		},
		{
			name: "any port",
			port: AnyPort,
			want: []Event{
				{Kind: EventFound, Location: "http://10.0.0.5:8008/desc.xml"},
				{Kind: EventFound, Location: "http://10.0.0.5:9000/desc.xml"},
				{Kind: EventStopped},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft := newFakeTransport()
			ft.push(response("http://10.0.0.5:8008/desc.xml"))
			ft.push(response("http://10.0.0.5:9000/desc.xml"))

			engine := newTestEngine(ft, nil)
			sink, events := ChanSink(16)
			engine.Start(context.Background(), sink, 150*time.Millisecond, tt.port)

			assertEvents(t, collect(t, events, 5*time.Second), tt.want)
		})
	}
}

func TestEngine_TransportOpenFailure(t *testing.T) {
	var listens int32
	engine := NewEngine(Options{
		ReceiveTimeout: 20 * time.Millisecond,
		Listen: func() (Transport, error) {
			atomic.AddInt32(&listens, 1)
			return nil, errors.New("address already in use")
		},
	})

	sink, events := ChanSink(16)
	engine.Start(context.Background(), sink, time.Second, AnyPort)
	got := collect(t, events, 5*time.Second)

	if len(got) != 2 {
		t.Fatalf("got events %v, want [error stopped]", got)
	}
	if got[0].Kind != EventError {
		t.Errorf("event[0] = %v, want error", got[0])
	}
	if got[0].Message == "" {
		t.Error("error event has empty message")
	}
	if got[1].Kind != EventStopped {
		t.Errorf("event[1] = %v, want stopped", got[1])
	}
	if atomic.LoadInt32(&listens) != 1 {
		t.Errorf("Listen called %d times, want 1", listens)
	}
}

func TestEngine_BadGroupAddressNeverOpensTransport(t *testing.T) {
	var listens int32
	ft := newFakeTransport()
	engine := NewEngine(Options{
		GroupAddr:      "not-an-address",
		ReceiveTimeout: 20 * time.Millisecond,
		Listen: func() (Transport, error) {
			atomic.AddInt32(&listens, 1)
			return ft, nil
		},
	})

	sink, events := ChanSink(16)
	engine.Start(context.Background(), sink, time.Second, AnyPort)
	got := collect(t, events, 5*time.Second)

	if len(got) != 2 || got[0].Kind != EventError || got[1].Kind != EventStopped {
		t.Fatalf("got events %v, want [error stopped]", got)
	}
	if sent, _ := ft.stats(); sent != 0 {
		t.Errorf("sent %d requests, want 0", sent)
	}
	if atomic.LoadInt32(&listens) != 0 {
		t.Errorf("Listen called %d times, want 0", listens)
	}
}

func TestEngine_ReceiveErrorIsFatal(t *testing.T) {
	ft := newFakeTransport()
	ft.readErr = errors.New("connection reset by peer")

	engine := newTestEngine(ft, nil)
	sink, events := ChanSink(16)
	engine.Start(context.Background(), sink, 10*time.Second, AnyPort)
	got := collect(t, events, 5*time.Second)

	if len(got) != 2 || got[0].Kind != EventError || got[1].Kind != EventStopped {
		t.Fatalf("got events %v, want [error stopped]", got)
	}
	if _, closed := ft.stats(); !closed {
		t.Error("transport was not closed on the error path")
	}
}

func TestEngine_SendErrorIsFatal(t *testing.T) {
	ft := newFakeTransport()
	ft.writeErr = errors.New("network is unreachable")

	engine := newTestEngine(ft, nil)
	sink, events := ChanSink(16)
	engine.Start(context.Background(), sink, 10*time.Second, AnyPort)
	got := collect(t, events, 5*time.Second)

	if len(got) != 2 || got[0].Kind != EventError || got[1].Kind != EventStopped {
		t.Fatalf("got events %v, want [error stopped]", got)
	}
	if _, closed := ft.stats(); !closed {
		t.Error("transport was not closed on the error path")
	}
}

func TestEngine_StopIsIdempotentAndResponsive(t *testing.T) {
	ft := newFakeTransport()
	engine := newTestEngine(ft, nil)

	// Stop before any session is a no-op
	engine.Stop()
	engine.Stop()
	if err := engine.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() with no session = %v, want nil", err)
	}

	sink, events := ChanSink(16)
	session, _ := engine.Start(context.Background(), sink, 10*time.Second, AnyPort)

	start := time.Now()
	engine.Stop()
	engine.Stop()
	session.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := engine.Wait(ctx); err != nil {
		t.Fatalf("Wait() = %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("stop took %v, want within a receive timeout", elapsed)
	}

	assertEvents(t, collect(t, events, time.Second), []Event{{Kind: EventStopped}})

	if session.Running() {
		t.Error("session.Running() = true after stop")
	}
	select {
	case <-session.Done():
	default:
		t.Error("session.Done() not closed after Wait")
	}

	// Stopping a finished session stays harmless
	engine.Stop()
	session.Stop()
}

func TestEngine_DuplicateStartIsIgnored(t *testing.T) {
	var listens int32
	ft := newFakeTransport()
	engine := newTestEngine(ft, &listens)

	sink, events := ChanSink(16)
	first, started := engine.Start(context.Background(), sink, 10*time.Second, AnyPort)
	if !started {
		t.Fatal("first Start() started = false")
	}

	ft.push(response("http://10.0.0.5:8008/desc.xml"))
	select {
	case ev := <-events:
		if ev.Kind != EventFound {
			t.Fatalf("first event = %v, want found", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no found event")
	}

	otherSink, otherEvents := ChanSink(16)
	second, started := engine.Start(context.Background(), otherSink, time.Second, 9000)
	if started {
		t.Error("second Start() started = true, want false")
	}
	if second != first {
		t.Error("second Start() did not return the active session")
	}
	if second.TargetPort() != AnyPort {
		t.Errorf("active session target port = %d, want unchanged %d", second.TargetPort(), AnyPort)
	}

	// The dedup set must survive the rejected start
	ft.push(response("http://10.0.0.5:8008/desc.xml"))
	ft.push(response("http://10.0.0.7:8008/desc.xml"))

	select {
	case ev := <-events:
		if ev.Location != "http://10.0.0.7:8008/desc.xml" {
			t.Fatalf("next event = %v, want the new location", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no second found event")
	}

	if err := engine.StopAndWait(context.Background()); err != nil {
		t.Fatalf("StopAndWait() = %v", err)
	}
	assertEvents(t, collect(t, events, time.Second), []Event{{Kind: EventStopped}})

	if n := atomic.LoadInt32(&listens); n != 1 {
		t.Errorf("Listen called %d times, want 1", n)
	}
	select {
	case ev := <-otherEvents:
		t.Errorf("rejected sink received %v", ev)
	default:
	}
}

func TestEngine_RestartAfterCompletion(t *testing.T) {
	var listens int32
	ft := newFakeTransport()
	engine := newTestEngine(ft, &listens)

	for i := 0; i < 2; i++ {
		ft.push(response("http://10.0.0.5:8008/desc.xml"))

		sink, events := ChanSink(16)
		if _, started := engine.Start(context.Background(), sink, 100*time.Millisecond, AnyPort); !started {
			t.Fatalf("run %d: Start() started = false", i)
		}

		// Each session has its own dedup set, so the location is reported again
		assertEvents(t, collect(t, events, 5*time.Second), []Event{
			{Kind: EventFound, Location: "http://10.0.0.5:8008/desc.xml"},
			{Kind: EventStopped},
		})

		if err := engine.Wait(context.Background()); err != nil {
			t.Fatalf("run %d: Wait() = %v", i, err)
		}
	}

	if n := atomic.LoadInt32(&listens); n != 2 {
		t.Errorf("Listen called %d times, want 2", n)
	}
}

func TestEngine_ContextCancelStopsSession(t *testing.T) {
	ft := newFakeTransport()
	engine := newTestEngine(ft, nil)

	ctx, cancel := context.WithCancel(context.Background())
	sink, events := ChanSink(16)
	engine.Start(ctx, sink, 10*time.Second, AnyPort)
	cancel()

	assertEvents(t, collect(t, events, 2*time.Second), []Event{{Kind: EventStopped}})
}

func TestEngine_SinkPanicBecomesError(t *testing.T) {
	ft := newFakeTransport()
	ft.push(response("http://10.0.0.5:8008/desc.xml"))
	engine := newTestEngine(ft, nil)

	var mu sync.Mutex
	var got []Event
	done := make(chan struct{})

	sink := SinkFunc(func(ev Event) {
		if ev.Kind == EventFound {
			panic("consumer bug")
		}
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
		if ev.Kind == EventStopped {
			close(done)
		}
	})

	engine.Start(context.Background(), sink, 10*time.Second, AnyPort)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop after sink panic")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 || got[0].Kind != EventError || got[1].Kind != EventStopped {
		t.Fatalf("got events %v, want [error stopped]", got)
	}
	if _, closed := ft.stats(); !closed {
		t.Error("transport was not closed after panic")
	}
}

func TestEngine_DefaultTimeout(t *testing.T) {
	ft := newFakeTransport()
	engine := newTestEngine(ft, nil)

	sink, events := ChanSink(16)
	session, _ := engine.Start(context.Background(), sink, 0, AnyPort)
	if session.Timeout() != DefaultTimeout {
		t.Errorf("session.Timeout() = %v, want %v", session.Timeout(), DefaultTimeout)
	}
	if session.ID() == "" {
		t.Error("session.ID() is empty")
	}

	engine.Stop()
	collect(t, events, 2*time.Second)
}

// TestEngine_LoopbackResponder runs a real UDP exchange against a unicast
// responder on 127.0.0.1 standing in for the multicast group.
func TestEngine_LoopbackResponder(t *testing.T) {
	responder, err := net.ListenPacket("udp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("loopback UDP unavailable: %v", err)
	}
	defer responder.Close()

	requests := make(chan string, 16)
	go func() {
		buf := make([]byte, 2048)
		for {
			n, addr, err := responder.ReadFrom(buf)
			if err != nil {
				return
			}
			select {
			case requests <- string(buf[:n]):
			default:
			}
			reply := "HTTP/1.1 200 OK\r\nLOCATION: http://127.0.0.1:8008/ssdp/device-desc.xml\r\n\r\n"
			_, _ = responder.WriteTo([]byte(reply), addr)
		}
	}()

	conn, err := ListenUDP()
	if err != nil {
		t.Skipf("ListenUDP unavailable: %v", err)
	}
	_ = conn.Close()

	engine := NewEngine(Options{
		GroupAddr:      responder.LocalAddr().String(),
		ReceiveTimeout: 50 * time.Millisecond,
	})

	sink, events := ChanSink(64)
	engine.Start(context.Background(), sink, 400*time.Millisecond, 8008)

	assertEvents(t, collect(t, events, 5*time.Second), []Event{
		{Kind: EventFound, Location: "http://127.0.0.1:8008/ssdp/device-desc.xml"},
		{Kind: EventStopped},
	})

	select {
	case req := <-requests:
		if req != string(SearchRequest()) {
			t.Errorf("responder received %q, want the M-SEARCH request", req)
		}
	default:
		t.Error("responder received no request")
	}
}
