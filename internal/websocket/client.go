package websocket

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"ai-talkcoach-be/internal/dto"
	"ai-talkcoach-be/internal/session"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
)

// Client is a middleman between the websocket connection and the session
// state machine.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	// SessionID associated with this connection
	SessionID string

	// Buffered channel of outbound messages.
	Send chan []byte

	// Machine drives the conversation for this connection.
	Machine *session.Machine

	validate *validator.Validate

	// Canceled when the connection goes away so in-flight generations can be
	// abandoned early.
	ctx    context.Context
	cancel context.CancelFunc
}

// Emit implements session.Emitter. Frames that cannot be buffered are
// dropped; the client is about to be unregistered anyway.
func (c *Client) Emit(event string, data interface{}) {
	frame, err := json.Marshal(dto.OutboundEvent{Event: event, Data: data})
	if err != nil {
		log.Printf("marshal error for session %s event %s: %v", c.SessionID, event, err)
		return
	}
	select {
	case c.Send <- frame:
	default:
		log.Printf("send buffer full for session %s, dropping %s", c.SessionID, event)
	}
}

// readPump pumps messages from the websocket connection to the session
// machine. Each inbound event runs in its own goroutine so a long generation
// never blocks the read loop, and concurrent triggers surface as busy events.
func (c *Client) readPump() {
	defer func() {
		c.cancel()
		c.Machine.OnDisconnect()
		c.Hub.unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("readPump error for session %s: %v", c.SessionID, err)
			}
			break
		}
		c.dispatch(raw)
	}
}

func (c *Client) dispatch(raw []byte) {
	var envelope dto.InboundEvent
	if err := json.Unmarshal(raw, &envelope); err != nil {
		log.Printf("invalid frame from session %s: %v", c.SessionID, err)
		return
	}
	if err := c.validate.Struct(envelope); err != nil {
		log.Printf("invalid envelope from session %s: %v", c.SessionID, err)
		return
	}

	switch envelope.Event {
	case dto.EventMessage:
		var payload dto.MessagePayload
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return
		}
		if err := c.validate.Struct(payload); err != nil {
			return
		}
		go c.Machine.OnMessage(c.ctx, payload.Content)

	case dto.EventFeedback:
		var payload dto.FeedbackPayload
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return
		}
		if err := c.validate.Struct(payload); err != nil {
			return
		}
		go c.Machine.OnFeedback(c.ctx, payload.TurnId, payload.Verdict)
	}
}

// writePump pumps messages from the machine to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
