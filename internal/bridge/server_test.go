package bridge

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/muurk/dialscan/internal/ssdp"
	"github.com/muurk/dialscan/internal/ssdp/ssdptest"
)

// inbound decodes either a Reply or an Event
type inbound struct {
	Method  string `json:"method"`
	Result  string `json:"result"`
	Error   string `json:"error"`
	Session string `json:"session"`
	Event   string `json:"event"`
	Data    string `json:"data"`
}

func newTestBridge(t *testing.T, config Config, responses ...string) (*Server, string) {
	t.Helper()

	engine := ssdp.NewEngine(ssdptest.NewTransport(responses...).Options())

	srv := New(engine, config)
	httpServer := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Close()
		httpServer.Close()
	})
	return srv, httpServer.URL
}

func dial(t *testing.T, baseURL string) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(baseURL, "http") + WebSocketPath
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, cmd string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(cmd)); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
}

func receive(t *testing.T, conn *websocket.Conn) inbound {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg inbound
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	return msg
}

// readUntilStopped returns the reply and the events up to and including SSDPStopped
func readUntilStopped(t *testing.T, conn *websocket.Conn) (replies []inbound, events []inbound) {
	t.Helper()
	for {
		msg := receive(t, conn)
		if msg.Event == "" {
			replies = append(replies, msg)
			continue
		}
		events = append(events, msg)
		if msg.Event == EventStopped {
			return replies, events
		}
	}
}

func TestBridge_StartDiscovery(t *testing.T) {
	_, url := newTestBridge(t, Config{},
		ssdptest.Response("http://192.168.1.20:8008/ssdp/device-desc.xml"),
		ssdptest.Response("http://192.168.1.30:49152/desc.xml"),
	)
	conn := dial(t, url)

	send(t, conn, `{"id":"1","method":"startDiscovery","options":{"discoveryTimeout":200,"targetPort":8008}}`)
	replies, events := readUntilStopped(t, conn)

	if len(replies) != 1 {
		t.Fatalf("got %d replies, want 1", len(replies))
	}
	if want := "Discovery started with timeout: 200 and port: 8008"; replies[0].Result != want {
		t.Errorf("Result = %q, want %q", replies[0].Result, want)
	}
	if replies[0].Session == "" {
		t.Error("reply should carry the session id")
	}

	want := []inbound{
		{Event: EventResponse, Data: "http://192.168.1.20:8008/ssdp/device-desc.xml"},
		{Event: EventStopped, Data: StoppedMessage},
	}
	if len(events) != len(want) {
		t.Fatalf("events = %+v, want %+v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("events[%d] = %+v, want %+v", i, events[i], want[i])
		}
	}
}

func TestBridge_DefaultsAndStop(t *testing.T) {
	_, url := newTestBridge(t, Config{})
	conn := dial(t, url)

	send(t, conn, `{"id":"1","method":"startDiscovery"}`)
	reply := receive(t, conn)
	if want := "Discovery started with timeout: 10000 and port: -1"; reply.Result != want {
		t.Errorf("Result = %q, want %q", reply.Result, want)
	}

	start := time.Now()
	send(t, conn, `{"id":"2","method":"stopDiscovery"}`)
	replies, events := readUntilStopped(t, conn)

	if len(replies) != 1 || replies[0].Result != "Discovery stop requested" {
		t.Errorf("stop replies = %+v", replies)
	}
	if len(events) != 1 || events[0].Data != StoppedMessage {
		t.Errorf("events = %+v, want only SSDPStopped", events)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("stop took %v", elapsed)
	}
}

func TestBridge_DuplicateStart(t *testing.T) {
	_, url := newTestBridge(t, Config{DefaultTimeout: 5 * time.Second})
	conn := dial(t, url)

	send(t, conn, `{"id":"1","method":"startDiscovery"}`)
	first := receive(t, conn)
	send(t, conn, `{"id":"2","method":"startDiscovery","options":{"discoveryTimeout":100}}`)
	second := receive(t, conn)

	if first.Error != "" {
		t.Fatalf("first start error = %q", first.Error)
	}
	if second.Error != "discovery already running" {
		t.Errorf("second start error = %q, want discovery already running", second.Error)
	}
	if second.Session != first.Session {
		t.Errorf("second reply session = %q, want active session %q", second.Session, first.Session)
	}

	send(t, conn, `{"method":"stopDiscovery"}`)
	readUntilStopped(t, conn)
}

func TestBridge_BadCommands(t *testing.T) {
	tests := []struct {
		name      string
		command   string
		wantError string
	}{
		{"invalid json", `{"method":`, "invalid command"},
		{"unknown method", `{"method":"reboot"}`, `unknown method "reboot"`},
	}

	_, url := newTestBridge(t, Config{})
	conn := dial(t, url)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			send(t, conn, tt.command)
			reply := receive(t, conn)
			if !strings.Contains(reply.Error, tt.wantError) {
				t.Errorf("Error = %q, want it to contain %q", reply.Error, tt.wantError)
			}
		})
	}
}

func TestBridge_BroadcastsToAllClients(t *testing.T) {
	srv, url := newTestBridge(t, Config{},
		ssdptest.Response("http://192.168.1.20:8008/d.xml"),
	)
	starter := dial(t, url)
	watcher := dial(t, url)

	deadline := time.Now().Add(2 * time.Second)
	for srv.ClientCount() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	send(t, starter, `{"method":"startDiscovery","options":{"discoveryTimeout":150}}`)

	replies, events := readUntilStopped(t, watcher)
	if len(replies) != 0 {
		t.Errorf("watcher received replies %+v, replies go only to the sender", replies)
	}
	if len(events) != 2 || events[0].Event != EventResponse || events[1].Event != EventStopped {
		t.Errorf("watcher events = %+v", events)
	}

	readUntilStopped(t, starter)
}

func TestBridge_Status(t *testing.T) {
	_, url := newTestBridge(t, Config{DefaultTimeout: 5 * time.Second})

	getStatus := func() Status {
		t.Helper()
		resp, err := http.Get(url + StatusPath)
		if err != nil {
			t.Fatalf("GET status error = %v", err)
		}
		defer resp.Body.Close()
		var status Status
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			t.Fatalf("decode status error = %v", err)
		}
		return status
	}

	if status := getStatus(); status.Running {
		t.Errorf("status = %+v, want idle", status)
	}

	conn := dial(t, url)
	send(t, conn, `{"method":"startDiscovery"}`)
	reply := receive(t, conn)

	status := getStatus()
	if !status.Running || status.Session != reply.Session {
		t.Errorf("status = %+v, want running session %s", status, reply.Session)
	}
	if status.Clients != 1 {
		t.Errorf("Clients = %d, want 1", status.Clients)
	}

	send(t, conn, `{"method":"stopDiscovery"}`)
	readUntilStopped(t, conn)
}

func TestBridge_ServeShutdown(t *testing.T) {
	engine := ssdp.NewEngine(ssdptest.NewTransport().Options())
	srv := New(engine, Config{Addr: "127.0.0.1:0"})

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("loopback TCP unavailable: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, listener) }()

	conn := dial(t, "http://"+listener.Addr().String())
	send(t, conn, `{"method":"startDiscovery"}`)
	receive(t, conn)

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}

	if engine.Running() {
		t.Error("engine still running after shutdown")
	}
}

func TestStartOptionsResolve(t *testing.T) {
	intPtr := func(v int) *int { return &v }

	tests := []struct {
		name        string
		opts        *StartOptions
		wantTimeout int
		wantPort    int
	}{
		{"nil options", nil, 10000, -1},
		{"empty options", &StartOptions{}, 10000, -1},
		{"explicit", &StartOptions{DiscoveryTimeout: intPtr(2500), TargetPort: intPtr(8008)}, 2500, 8008},
		{"non-positive timeout", &StartOptions{DiscoveryTimeout: intPtr(0)}, 10000, -1},
		{"explicit any port", &StartOptions{TargetPort: intPtr(-1)}, 10000, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			timeout, port := tt.opts.resolve(10*time.Second, -1)
			if timeout != tt.wantTimeout || port != tt.wantPort {
				t.Errorf("resolve() = (%d, %d), want (%d, %d)", timeout, port, tt.wantTimeout, tt.wantPort)
			}
		})
	}
}
