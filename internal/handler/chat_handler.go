package handler

import (
	"ai-talkcoach-be/internal/pkg/logger"
	internalWS "ai-talkcoach-be/internal/websocket"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// ChatHandler upgrades learner connections onto the conversation socket.
// The chat surface is anonymous: a session id is minted per connection and
// never tied to an account.
type ChatHandler struct {
	hub        *internalWS.Hub
	newMachine internalWS.MachineFactory
	validate   *validator.Validate
	logger     logger.ILogger
}

func NewChatHandler(hub *internalWS.Hub, newMachine internalWS.MachineFactory, validate *validator.Validate, log logger.ILogger) *ChatHandler {
	return &ChatHandler{
		hub:        hub,
		newMachine: newMachine,
		validate:   validate,
		logger:     log,
	}
}

// ServeWs handles websocket requests from the peer.
func (h *ChatHandler) ServeWs(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			h.logger.Info("ChatHandler", "Starting chat session", nil)
			internalWS.ServeWs(h.hub, conn, h.validate, h.newMachine)
			h.logger.Info("ChatHandler", "Chat session ended", nil)
		})(c)
	}
	return fiber.ErrUpgradeRequired
}

// RegisterRoutes registers the chat socket route.
func (h *ChatHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws", h.ServeWs)
}
