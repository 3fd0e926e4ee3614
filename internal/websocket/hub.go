package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nutrifit-ops/scan-telemetry-go/internal/database/models"
)

// Message is the wire envelope sent to connected observers.
type Message struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
}

// ToJSON serializes the message, falling back to an empty object on error
func (m Message) ToJSON() []byte {
	data, err := json.Marshal(m)
	if err != nil {
		return []byte("{}")
	}
	return data
}

// Hub maintains the set of connected observers and fans alert events out to
// them as sessions raise them.
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Outbound messages to broadcast
	broadcast chan []byte

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	logger *logrus.Logger

	mu sync.RWMutex

	stats *HubStats
}

// HubStats contains hub statistics
type HubStats struct {
	ConnectedClients int       `json:"connected_clients"`
	TotalConnections int64     `json:"total_connections"`
	MessagesSent     int64     `json:"messages_sent"`
	LastActivity     time.Time `json:"last_activity"`
}

// NewHub creates a new WebSocket hub
func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
		stats: &HubStats{
			LastActivity: time.Now(),
		},
	}
}

// Run starts the hub and handles client registration/unregistration and
// broadcasting
func (h *Hub) Run() {
	h.logger.Info("Alert stream hub started")

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)

		case <-ticker.C:
			h.sendHeartbeat()
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true
	h.stats.TotalConnections++
	h.stats.ConnectedClients = len(h.clients)
	h.stats.LastActivity = time.Now()

	h.logger.WithFields(logrus.Fields{
		"client_id":         client.ID,
		"connected_clients": len(h.clients),
	}).Info("Alert stream client connected")

	welcome := Message{
		Type: "connection",
		Data: map[string]interface{}{
			"status":    "connected",
			"client_id": client.ID,
			"timestamp": time.Now().UTC(),
		},
	}
	// Never block the Run loop on a client's send buffer.
	select {
	case client.send <- welcome.ToJSON():
	default:
	}
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		h.stats.ConnectedClients = len(h.clients)
		h.stats.LastActivity = time.Now()

		h.logger.WithFields(logrus.Fields{
			"client_id":         client.ID,
			"connected_clients": len(h.clients),
		}).Info("Alert stream client disconnected")
	}
}

func (h *Hub) broadcastMessage(message []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	h.stats.MessagesSent++
	h.stats.LastActivity = time.Now()

	for _, client := range clients {
		select {
		case client.send <- message:
		default:
			// Client's send channel is full. Drop it inline; sending to
			// h.unregister here would deadlock the Run loop, which is the
			// only receiver on that channel.
			h.unregisterClient(client)
		}
	}
}

func (h *Hub) sendHeartbeat() {
	heartbeat := Message{
		Type: "heartbeat",
		Data: map[string]interface{}{
			"timestamp": time.Now().UTC(),
			"clients":   h.GetClientCount(),
		},
	}

	h.BroadcastToAll(heartbeat)
}

// BroadcastToAll broadcasts a message to all connected clients
func (h *Hub) BroadcastToAll(message Message) {
	data := message.ToJSON()
	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("Broadcast channel is full, message dropped")
	}
}

// BroadcastAlert fans a synthetic alert event out to all observers. It
// never blocks the collection path.
func (h *Hub) BroadcastAlert(event *models.Event) {
	h.BroadcastToAll(Message{
		Type: "alert",
		Data: map[string]interface{}{
			"event_id":    event.ID,
			"alert_type":  event.Type,
			"payload":     event.Payload,
			"timestamp":   event.Timestamp.UTC(),
			"relative_ms": event.RelativeMs,
		},
	})
}

// GetStats returns current hub statistics
func (h *Hub) GetStats() *HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	statsCopy := *h.stats
	statsCopy.ConnectedClients = len(h.clients)
	return &statsCopy
}

// GetClientCount returns the current number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
