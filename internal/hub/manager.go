// Package hub is the server side of the plate-hydration protocol: a gin
// HTTP surface with a WebSocket chat endpoint, a deterministic intent
// classifier, plate hydration from the store, and an ambient recon sweep.
package hub

import (
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// ConnectionManager tracks live WebSocket clients by id so the hub can push
// to one user or to everyone.
type ConnectionManager struct {
	mu    sync.RWMutex
	conns map[string]*client
}

// client serializes writes to one WebSocket connection. gorilla allows at
// most one concurrent writer per conn.
type client struct {
	id string
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *client) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(v)
}

// NewConnectionManager creates an empty manager.
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{conns: make(map[string]*client)}
}

// Register adds a connection under clientID, replacing any stale entry.
func (m *ConnectionManager) Register(clientID string, ws *websocket.Conn) {
	m.mu.Lock()
	m.conns[clientID] = &client{id: clientID, ws: ws}
	total := len(m.conns)
	m.mu.Unlock()
	log.Printf("hub: client connected: %s (total: %d)", clientID, total)
}

// Unregister removes a disconnected client.
func (m *ConnectionManager) Unregister(clientID string) {
	m.mu.Lock()
	delete(m.conns, clientID)
	total := len(m.conns)
	m.mu.Unlock()
	log.Printf("hub: client disconnected: %s (total: %d)", clientID, total)
}

// SendPersonal pushes a JSON frame to one client. Unknown ids are a no-op.
func (m *ConnectionManager) SendPersonal(clientID string, frame any) error {
	m.mu.RLock()
	c := m.conns[clientID]
	m.mu.RUnlock()
	if c == nil {
		return nil
	}
	return c.writeJSON(frame)
}

// Broadcast pushes a JSON frame to every client. Per-client failures are
// logged and do not stop the fan-out.
func (m *ConnectionManager) Broadcast(frame any) {
	m.mu.RLock()
	clients := make([]*client, 0, len(m.conns))
	for _, c := range m.conns {
		clients = append(clients, c)
	}
	m.mu.RUnlock()

	for _, c := range clients {
		if err := c.writeJSON(frame); err != nil {
			log.Printf("hub: broadcast failed for %s: %v", c.id, err)
		}
	}
}

// ActiveCount reports how many clients are connected.
func (m *ConnectionManager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conns)
}
