// internal/handlers/hub.go
package handlers

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/farkle/internal/models"
	"github.com/sirupsen/logrus"
)

// sendBufferSize bounds how far a client may fall behind before it is dropped.
const sendBufferSize = 64

// Client is one websocket connection. Messages are queued on OutChan and written by the
// connection's write pump, so senders never block on the network.
type Client struct {
	ID         string
	RemoteAddr string
	OutChan    chan []byte

	cancel context.CancelFunc

	mu          sync.Mutex
	profile     *models.User
	closeCode   websocket.StatusCode
	closeReason string
	kicked      bool
}

func newClient(id, remoteAddr string, cancel context.CancelFunc) *Client {
	return &Client{
		ID:         id,
		RemoteAddr: remoteAddr,
		OutChan:    make(chan []byte, sendBufferSize),
		cancel:     cancel,
		closeCode:  websocket.StatusNormalClosure,
	}
}

// Profile returns the identified user, or nil.
func (c *Client) Profile() *models.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.profile == nil {
		return nil
	}
	p := *c.profile
	return &p
}

func (c *Client) setProfile(u models.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profile = &u
}

// enqueue queues data without blocking. A full buffer kicks the client.
func (c *Client) enqueue(data []byte) bool {
	c.mu.Lock()
	kicked := c.kicked
	c.mu.Unlock()
	if kicked {
		return false
	}
	select {
	case c.OutChan <- data:
		return true
	default:
		c.kick(SlowConsumerError, "client is not reading fast enough")
		return false
	}
}

// kick stops the connection's pumps and records the close status to send.
func (c *Client) kick(code websocket.StatusCode, reason string) {
	c.mu.Lock()
	if c.kicked {
		c.mu.Unlock()
		return
	}
	c.kicked = true
	c.closeCode, c.closeReason = code, reason
	c.mu.Unlock()
	c.cancel()
}

func (c *Client) closeStatus() (websocket.StatusCode, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCode, c.closeReason
}

// Hub indexes the live connections by player id.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	logger  *logrus.Logger
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logger,
	}
}

// Register makes c the connection for its player id and returns the connection it
// replaced, if any.
func (h *Hub) Register(c *Client) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()
	old := h.clients[c.ID]
	h.clients[c.ID] = c
	if old == c {
		return nil
	}
	return old
}

// Unregister removes c. It reports false when c was already replaced by a newer
// connection for the same player.
func (h *Hub) Unregister(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.ID] != c {
		return false
	}
	delete(h.clients, c.ID)
	return true
}

// Count returns the number of live connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Send delivers msg to one player.
func (h *Hub) Send(playerID string, msg interface{}) {
	h.SendMany([]string{playerID}, msg)
}

// SendMany marshals msg once and queues it for every listed player that is connected.
func (h *Hub) SendMany(playerIDs []string, msg interface{}) {
	if len(playerIDs) == 0 {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Errorf("failed to marshal outgoing message: %v", err)
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(playerIDs))
	for _, id := range playerIDs {
		if c, ok := h.clients[id]; ok {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if !c.enqueue(data) {
			h.logger.WithField("player", c.ID).Warn("dropped message for slow or closing client")
		}
	}
}

// BroadcastAll queues msg for every connection.
func (h *Hub) BroadcastAll(msg interface{}) {
	h.mu.RLock()
	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	h.mu.RUnlock()
	h.SendMany(ids, msg)
}
