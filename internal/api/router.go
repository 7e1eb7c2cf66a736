package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"reminder-service/internal/config"
)

func NewRouter(logger *logrus.Logger, cfg config.Config, h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware(logger))

	api := r.Group(cfg.API.BasePath)
	{
		// Notification logs
		api.GET("/notifications/user/:user_id", h.GetNotificationsByUserID)
		api.GET("/notifications/:id", h.GetNotification)
		api.POST("/notifications/send", h.SendNotification)
		api.POST("/notifications/:id/delivered", h.MarkDelivered)

		// Channels
		api.GET("/channels", h.GetChannelDefinitions)
		api.GET("/subscriptions/user/:user_id", h.GetSubscriptionsByUserID)
		api.POST("/agents/test", h.TestAgent)
		api.POST("/agents/:channel/command", h.HandleCommand)

		// In-app delivery socket
		api.GET("/ws", h.WebSocket)
	}

	r.GET("/health", h.Health)

	return r
}
