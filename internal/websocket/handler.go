package websocket

import (
	"realtime-chat-be/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// ChatHandler upgrades HTTP requests to chat sessions.
type ChatHandler struct {
	hub    *Hub
	logger logger.ILogger
}

func NewChatHandler(hub *Hub, log logger.ILogger) *ChatHandler {
	return &ChatHandler{hub: hub, logger: log}
}

// ServeWs handles websocket requests from the peer. No authentication:
// the join identity is an unauthenticated display name carried in the
// subscribe frame.
func (h *ChatHandler) ServeWs(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return websocket.New(func(conn *websocket.Conn) {
		session := NewSession(h.hub, conn, h.logger)
		h.logger.Info("ChatHandler", "Starting chat session", map[string]interface{}{"session_id": session.id})
		session.Run()
		h.logger.Info("ChatHandler", "Chat session ended", map[string]interface{}{"session_id": session.id})
	})(c)
}

// RegisterRoutes registers the websocket endpoint.
func (h *ChatHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/chat", h.ServeWs)
}
