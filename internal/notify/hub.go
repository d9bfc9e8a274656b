// Package notify holds the process-scoped registry of live WebSocket
// connections, keyed by user id. It carries security events (session
// revocation, reuse detection) to connected clients; it holds no authority
// over auth state.
package notify

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event types pushed to clients.
const (
	EventSessionRevoked      = "session.revoked"
	EventAllSessionsRevoked  = "sessions.revoked_all"
	EventRefreshReuse        = "security.refresh_reuse_detected"
	EventAccountStatusChange = "account.status_changed"
)

// Event is one realtime notification.
type Event struct {
	Type      string    `json:"type"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent creates an event stamped with the current time.
func NewEvent(eventType string, data any) Event {
	return Event{Type: eventType, Data: data, Timestamp: time.Now().UTC()}
}

// Hub is the connection registry. A single RWMutex guards the map; each
// connection additionally carries its own write mutex, because gorilla
// permits at most one concurrent writer per connection and Notify runs under
// the shared read lock. A failed write drops the connection on the next
// register/unregister cycle.
type Hub struct {
	mu     sync.RWMutex
	conns  map[string]map[*websocket.Conn]*sync.Mutex
	closed bool
	logger *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		conns:  make(map[string]map[*websocket.Conn]*sync.Mutex),
		logger: logger,
	}
}

// Register attaches a connection to the user's set. Registering on a closed
// hub closes the connection immediately.
func (h *Hub) Register(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		_ = conn.Close()
		return
	}

	if h.conns[userID] == nil {
		h.conns[userID] = make(map[*websocket.Conn]*sync.Mutex)
	}
	h.conns[userID][conn] = &sync.Mutex{}
}

// Unregister detaches and closes a connection.
func (h *Hub) Unregister(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.conns[userID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.conns, userID)
		}
	}
	_ = conn.Close()
}

// Notify pushes an event to every live connection of the user. Write
// failures are logged and otherwise ignored; delivery is best-effort.
func (h *Hub) Notify(userID string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return
	}

	for conn, wmu := range h.conns[userID] {
		wmu.Lock()
		err := conn.WriteJSON(event)
		wmu.Unlock()
		if err != nil {
			h.logger.Debug("notify write failed",
				slog.String("user_id", userID),
				slog.String("event", event.Type),
				slog.String("error", err.Error()),
			)
		}
	}
}

// ConnectionCount returns the number of live connections for the user.
func (h *Hub) ConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID])
}

// Close tears the hub down: every connection is closed and further
// registrations are rejected.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true

	for userID, conns := range h.conns {
		for conn := range conns {
			_ = conn.Close()
		}
		delete(h.conns, userID)
	}
}
