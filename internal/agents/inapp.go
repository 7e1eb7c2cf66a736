package agents

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"reminder-service/internal/models"
)

// maxConnectionsPerUser caps how many live sockets one user may hold.
const maxConnectionsPerUser = 10

// Hub tracks live WebSocket connections per user for the inapp channel.
type Hub struct {
	mu          sync.Mutex
	connections map[int64]map[*websocket.Conn]bool
	logger      *logrus.Logger
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		connections: make(map[int64]map[*websocket.Conn]bool),
		logger:      logger,
	}
}

// AddConnection registers a socket for a user.
func (h *Hub) AddConnection(userID int64, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.connections[userID]; !exists {
		h.connections[userID] = make(map[*websocket.Conn]bool)
	}
	if len(h.connections[userID]) >= maxConnectionsPerUser {
		h.logger.Warnf("Max connections reached for user %d", userID)
		return
	}
	h.connections[userID][conn] = true
	h.logger.Infof("Added WebSocket connection for user %d (total: %d)", userID, len(h.connections[userID]))
}

// RemoveConnection drops a socket for a user.
func (h *Hub) RemoveConnection(userID int64, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, exists := h.connections[userID]; exists {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.connections, userID)
		}
	}
}

// SendToUser writes a message to every live socket of a user and returns how
// many received it. Broken sockets are evicted.
func (h *Hub) SendToUser(userID int64, message []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, exists := h.connections[userID]
	if !exists {
		return 0
	}
	sent := 0
	for conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			h.logger.Errorf("Failed to write WebSocket message to user %d: %v", userID, err)
			delete(conns, conn)
			continue
		}
		sent++
	}
	if len(conns) == 0 {
		delete(h.connections, userID)
	}
	return sent
}

// InAppAgent delivers over the user's live WebSocket connections. A user with
// no open socket is a per-channel failure, not a system error.
type InAppAgent struct {
	hub *Hub
}

func NewInAppAgent(hub *Hub) *InAppAgent {
	return &InAppAgent{hub: hub}
}

func (a *InAppAgent) Send(ctx context.Context, sub models.ChannelSubscription, payload models.NotificationPayload) models.AgentResult {
	data, err := json.Marshal(payload)
	if err != nil {
		return models.AgentFailure("failed to encode inapp payload: %v", err)
	}
	sent := a.hub.SendToUser(sub.UserID, data)
	if sent == 0 {
		return models.AgentFailure("user %d has no active connections", sub.UserID)
	}
	return models.AgentResult{Success: true, Metadata: map[string]any{"connections": sent}}
}

func (a *InAppAgent) HandleCommand(ctx context.Context, sub models.ChannelSubscription, cmd models.AgentCommand) models.AgentResult {
	data, err := json.Marshal(cmd)
	if err != nil {
		return models.AgentFailure("failed to encode inapp command: %v", err)
	}
	sent := a.hub.SendToUser(sub.UserID, data)
	if sent == 0 {
		return models.AgentFailure("user %d has no active connections", sub.UserID)
	}
	return models.AgentSuccess()
}

func (a *InAppAgent) Test(ctx context.Context, sub models.ChannelSubscription) models.AgentResult {
	sent := a.hub.SendToUser(sub.UserID, []byte(`{"test":true}`))
	if sent == 0 {
		return models.AgentFailure("user %d has no active connections", sub.UserID)
	}
	return models.AgentSuccess()
}

var _ Agent = (*InAppAgent)(nil)
