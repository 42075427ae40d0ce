package bridge

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/dialscan/internal/logging"
)

// client is one connected subscriber. Every frame for the connection goes
// through send so that only the write pump touches the socket.
type client struct {
	id         string
	remoteAddr string
	send       chan []byte
}

// hub tracks subscribers and fans messages out to them
type hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
}

func newHub() *hub {
	return &hub{clients: make(map[*client]struct{})}
}

func (h *hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()

	logging.Info("Bridge client connected",
		zap.String("client_id", c.id),
		zap.String("remote_addr", c.remoteAddr),
		zap.Int("total", total))
}

func (h *hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	total := len(h.clients)
	h.mu.Unlock()

	logging.Info("Bridge client disconnected",
		zap.String("client_id", c.id),
		zap.Int("total", total))
}

// broadcast sends v as JSON to every client. Slow clients miss the message.
func (h *hub) broadcast(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Error("Failed to marshal bridge event", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			logging.Warn("Bridge client is slow, skipping message",
				zap.String("client_id", c.id))
		}
	}
}

// unicast sends v to a single client if it is still registered
func (h *hub) unicast(c *client, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Error("Failed to marshal bridge reply", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
		logging.Warn("Bridge client is slow, dropping reply",
			zap.String("client_id", c.id))
	}
}

func (h *hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// closeAll disconnects every client
func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
