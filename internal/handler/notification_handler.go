package handler

import (
	"context"
	"errors"

	"support-chat-be/internal/entity"
	"support-chat-be/internal/pkg/logger"
	"support-chat-be/internal/pkg/serverutils"
	internalWS "support-chat-be/internal/websocket"
	"support-chat-be/pkg/chat/chaterr"
	"support-chat-be/pkg/chat/session"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// SessionLookup finds a chat session. Implemented by session.Registry.
type SessionLookup interface {
	Get(ctx context.Context, id string) (*entity.ChatSession, error)
}

type NotificationHandler struct {
	sessions  SessionLookup
	hub       *internalWS.Hub
	jwtSecret string
	logger    logger.ILogger
}

func NewNotificationHandler(sessions SessionLookup, hub *internalWS.Hub, jwtSecret string, log logger.ILogger) *NotificationHandler {
	return &NotificationHandler{
		sessions:  sessions,
		hub:       hub,
		jwtSecret: jwtSecret,
		logger:    log,
	}
}

// ServeChat streams reveal frames for one chat session.
func (h *NotificationHandler) ServeChat(c *fiber.Ctx) error {
	id := c.Params("id")
	if !session.ValidID(id) {
		return c.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid session id"))
	}
	if _, err := h.sessions.Get(c.UserContext(), id); err != nil {
		if errors.Is(err, chaterr.ErrSessionNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, "Session not found"))
		}
		return err
	}

	return h.upgrade(c, id, map[string]interface{}{"session_id": id})
}

// ServeOperators streams chat events to an operator dashboard.
func (h *NotificationHandler) ServeOperators(c *fiber.Ctx) error {
	// Browsers cannot set headers on a websocket handshake, so the query
	// param comes first.
	tokenStr := c.Query("token")
	if tokenStr == "" {
		authHeader := c.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			tokenStr = authHeader[7:]
		}
	}
	if tokenStr == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Missing token (Query 'token' or Header 'Authorization')"))
	}

	agentID, err := serverutils.ParseAgentToken(tokenStr, h.jwtSecret)
	if err != nil {
		h.logger.Warn("NotificationHandler", "Invalid Token in WS Handshake", map[string]interface{}{"error": err.Error()})
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Invalid token"))
	}

	return h.upgrade(c, internalWS.OperatorsKey, map[string]interface{}{"agent_id": agentID})
}

func (h *NotificationHandler) upgrade(c *fiber.Ctx, key string, details map[string]interface{}) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("NotificationHandler", "Starting WebSocket session", details)
		internalWS.ServeWs(h.hub, conn, key)
		h.logger.Info("NotificationHandler", "WebSocket session ended", details)
	})(c)
}

func (h *NotificationHandler) RegisterRoutes(router fiber.Router) {
	ws := router.Group("/ws")
	ws.Get("/operators", h.ServeOperators)
	ws.Get("/:id", h.ServeChat)
}
