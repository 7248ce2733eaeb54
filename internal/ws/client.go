package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"connect-service/internal/models"
	"connect-service/internal/observability"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendQueueSize  = 256
	joinTimeout    = 5 * time.Second
)

// JoinAuthorizer decides whether a user may subscribe to a conversation.
type JoinAuthorizer interface {
	CanJoin(ctx context.Context, conversationID int, userID int) error
}

// Client is a single websocket connection.
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	info  ConnInfo
	guard JoinAuthorizer

	// rooms is guarded by hub.mu.
	rooms map[int]struct{}
}

// NewClient creates a client for an upgraded connection.
func NewClient(hub *Hub, conn *websocket.Conn, info ConnInfo, guard JoinAuthorizer) *Client {
	return &Client{
		hub:   hub,
		conn:  conn,
		send:  make(chan []byte, sendQueueSize),
		info:  info,
		guard: guard,
		rooms: make(map[int]struct{}),
	}
}

// ReadPump reads client commands until the connection fails.
func (c *Client) ReadPump() {
	var closeReason string
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
		observability.DecWSConnections()
		c.info.publishEvent(context.Background(), "ws_disconnect", 0, closeReason)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.info.publishEvent(context.Background(), "ws_error", 0, closeReason)
			}
			return
		}
		c.handleCommand(data)
	}
}

func (c *Client) handleCommand(data []byte) {
	var cmd models.ClientCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		c.reply(models.ConversationEvent{Type: models.EventError, Error: "invalid command"})
		return
	}
	if cmd.ConversationID <= 0 {
		c.reply(models.ConversationEvent{Type: models.EventError, Error: "conversationId is required"})
		return
	}

	switch cmd.Action {
	case models.ActionJoinConversation:
		ctx, cancel := context.WithTimeout(context.Background(), joinTimeout)
		err := c.guard.CanJoin(ctx, cmd.ConversationID, c.info.UserID)
		cancel()
		if err != nil {
			log.Debug().Err(err).Int("user_id", c.info.UserID).Int("conversation_id", cmd.ConversationID).Msg("join rejected")
			c.reply(models.ConversationEvent{Type: models.EventError, ConversationID: cmd.ConversationID, Error: err.Error()})
			return
		}
		c.hub.Join(cmd.ConversationID, c)
		c.info.publishEvent(context.Background(), "ws_join", cmd.ConversationID, "")
		c.reply(models.ConversationEvent{Type: models.EventJoined, ConversationID: cmd.ConversationID})
	case models.ActionLeaveConversation:
		c.hub.Leave(cmd.ConversationID, c)
	default:
		c.reply(models.ConversationEvent{Type: models.EventError, ConversationID: cmd.ConversationID, Error: "unknown action"})
	}
}

func (c *Client) reply(event models.ConversationEvent) {
	c.hub.sendTo(c, encodeEvent(event))
}

// WritePump is the only writer of the connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
