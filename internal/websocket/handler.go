package websocket

import (
	"context"

	"ai-talkcoach-be/internal/session"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// MachineFactory builds the session machine for a fresh connection, bound to
// the emitter that delivers its outbound events.
type MachineFactory func(sessionID string, emitter session.Emitter) *session.Machine

// ServeWs handles websocket requests from the peer. One connection is one
// session: the machine is created here and torn down when readPump exits.
func ServeWs(hub *Hub, c *websocket.Conn, validate *validator.Validate, newMachine MachineFactory) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{
		Hub:       hub,
		Conn:      c,
		SessionID: uuid.NewString(),
		Send:      make(chan []byte, 256),
		validate:  validate,
		ctx:       ctx,
		cancel:    cancel,
	}
	client.Machine = newMachine(client.SessionID, client)
	client.Hub.register <- client

	go client.writePump()
	client.Machine.OnConnect()
	client.readPump() // Run readPump in current goroutine (handler)
}
