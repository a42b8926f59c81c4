package websocket

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Event is one message pushed to a client.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// Hub tracks connected clients per user and fans events out to them. A
// user may hold several sessions (phone and browser) at once.
type Hub struct {
	clients     map[*Client]bool
	userClients map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client

	mutex sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:     make(map[*Client]bool),
		userClients: make(map[string]map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.clients[client] = true
	if h.userClients[client.userID] == nil {
		h.userClients[client.userID] = make(map[*Client]bool)
	}
	h.userClients[client.userID][client] = true

	logrus.WithFields(logrus.Fields{
		"user_id":     client.userID,
		"connections": len(h.userClients[client.userID]),
	}).Debug("WebSocket client connected")
}

func (h *Hub) removeClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if !h.clients[client] {
		return
	}
	delete(h.clients, client)
	close(client.send)

	if sessions := h.userClients[client.userID]; sessions != nil {
		delete(sessions, client)
		if len(sessions) == 0 {
			delete(h.userClients, client.userID)
		}
	}

	logrus.WithField("user_id", client.userID).Debug("WebSocket client disconnected")
}

// PublishToUser sends an event to every open session of a user. Sessions
// with a full send buffer are skipped; the report is whether at least one
// session took the event.
func (h *Hub) PublishToUser(userID string, event string, payload interface{}) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	delivered := false
	for client := range h.userClients[userID] {
		select {
		case client.send <- Event{Type: event, Payload: payload}:
			delivered = true
		default:
		}
	}

	return delivered
}

func (h *Hub) IsUserOnline(userID string) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.userClients[userID]) > 0
}

func (h *Hub) ConnectedUsers() []string {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	users := make([]string, 0, len(h.userClients))
	for userID := range h.userClients {
		users = append(users, userID)
	}
	return users
}
