package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"reminder-service/internal/agents"
	"reminder-service/internal/db"
	"reminder-service/internal/health"
	"reminder-service/internal/models"
	"reminder-service/internal/notification"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The boundary trusts its reverse proxy; origin checks live there.
	CheckOrigin: func(*http.Request) bool { return true },
}

type Handler struct {
	db        *db.DB
	svc       *notification.Service
	registry  *agents.Registry
	hub       *agents.Hub
	collector *health.Collector
	logger    *logrus.Logger
}

func NewHandler(dbConn *db.DB, svc *notification.Service, registry *agents.Registry, hub *agents.Hub, collector *health.Collector, logger *logrus.Logger) *Handler {
	return &Handler{
		db:        dbConn,
		svc:       svc,
		registry:  registry,
		hub:       hub,
		collector: collector,
		logger:    logger,
	}
}

func (h *Handler) GetNotificationsByUserID(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user_id"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	logs, err := h.db.GetNotificationLogsByUser(c.Request.Context(), userID, limit, offset)
	if err != nil {
		h.logger.Errorf("Failed to get notification logs for user %d: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get notifications"})
		return
	}
	c.JSON(http.StatusOK, logs)
}

func (h *Handler) GetNotification(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification id"})
		return
	}
	row, err := h.db.GetNotificationLog(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
			return
		}
		h.logger.Errorf("Failed to get notification %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get notification"})
		return
	}
	c.JSON(http.StatusOK, row)
}

// SendNotification is the direct/manual single-channel path. Unlike the tier
// fan-out it reports a failed send to its caller.
func (h *Handler) SendNotification(c *gin.Context) {
	var req struct {
		UserID      int64  `json:"user_id" binding:"required"`
		ReminderID  string `json:"reminder_id" binding:"required"`
		ChannelType string `json:"channel_type" binding:"required"`
		Message     string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	reminderID, err := uuid.Parse(req.ReminderID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid reminder_id"})
		return
	}

	row, err := h.svc.SendNotification(c.Request.Context(), req.UserID, reminderID, req.ChannelType, req.Message)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Reminder not found"})
			return
		}
		h.logger.Errorf("Direct send failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "notification": row})
		return
	}
	c.JSON(http.StatusCreated, row)
}

// MarkDelivered is the delivery-confirmation callback for channels that
// confirm asynchronously.
func (h *Handler) MarkDelivered(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification id"})
		return
	}
	if err := h.svc.MarkAsDelivered(c.Request.Context(), id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
			return
		}
		h.logger.Errorf("Mark delivered failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark delivered"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": string(models.NotificationDelivered)})
}

func (h *Handler) GetChannelDefinitions(c *gin.Context) {
	defs, err := h.db.GetChannelDefinitions(c.Request.Context())
	if err != nil {
		h.logger.Errorf("Failed to get channel definitions: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get channels"})
		return
	}
	c.JSON(http.StatusOK, defs)
}

func (h *Handler) GetSubscriptionsByUserID(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user_id"})
		return
	}
	subs, err := h.db.GetChannelSubscriptionsByUser(c.Request.Context(), userID)
	if err != nil {
		h.logger.Errorf("Failed to get subscriptions for user %d: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get subscriptions"})
		return
	}
	c.JSON(http.StatusOK, subs)
}

func (h *Handler) TestAgent(c *gin.Context) {
	var req struct {
		UserID      int64  `json:"user_id" binding:"required"`
		ChannelType string `json:"channel_type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub, err := h.db.GetChannelSubscription(c.Request.Context(), req.UserID, req.ChannelType)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Subscription not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load subscription"})
		return
	}
	c.JSON(http.StatusOK, h.registry.TestAgent(c.Request.Context(), sub))
}

// HandleCommand routes an inbound channel command (e.g. a reply) to its
// executor. Signature verification of the inbound callback happens upstream.
func (h *Handler) HandleCommand(c *gin.Context) {
	channel := c.Param("channel")
	var req struct {
		UserID  int64          `json:"user_id" binding:"required"`
		Command string         `json:"command" binding:"required"`
		Payload map[string]any `json:"payload"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cmd := models.AgentCommand{Command: req.Command, Payload: req.Payload}
	c.JSON(http.StatusOK, h.registry.HandleCommand(c.Request.Context(), channel, req.UserID, cmd))
}

// WebSocket upgrades a connection and parks it in the in-app delivery hub
// until the client disconnects.
func (h *Handler) WebSocket(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user_id"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("WebSocket upgrade failed: %v", err)
		return
	}
	h.hub.AddConnection(userID, conn)
	defer func() {
		h.hub.RemoveConnection(userID, conn)
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"snapshot": h.collector.Latest(),
	})
}
