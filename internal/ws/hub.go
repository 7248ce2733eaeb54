package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"connect-service/internal/models"
	"connect-service/internal/observability"
)

// Relay forwards published events to other service instances.
type Relay interface {
	Publish(ctx context.Context, conversationID int, payload []byte) error
}

// Hub tracks connected clients and the conversation rooms they joined.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[int]map[*Client]struct{}
	relay   Relay
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		rooms:   make(map[int]map[*Client]struct{}),
	}
}

// SetRelay enables cross-instance fan-out.
func (h *Hub) SetRelay(relay Relay) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.relay = relay
}

// Register adds a connected client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

// Unregister removes a client from every room and closes its send queue.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	for conversationID := range c.rooms {
		h.leaveLocked(conversationID, c)
	}
	close(c.send)
}

// Join subscribes a registered client to a conversation room.
func (h *Hub) Join(conversationID int, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	room, ok := h.rooms[conversationID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[conversationID] = room
	}
	room[c] = struct{}{}
	c.rooms[conversationID] = struct{}{}
}

// Leave unsubscribes a client from a conversation room.
func (h *Hub) Leave(conversationID int, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(conversationID, c)
}

func (h *Hub) leaveLocked(conversationID int, c *Client) {
	delete(c.rooms, conversationID)
	if room, ok := h.rooms[conversationID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, conversationID)
		}
	}
}

// RoomSize returns the number of local clients joined to a conversation.
func (h *Hub) RoomSize(conversationID int) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[conversationID])
}

// Stats reports the number of local clients and non-empty rooms.
func (h *Hub) Stats() (clients int, rooms int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients), len(h.rooms)
}

// BroadcastNewMessage sends a newMessage event to the conversation room.
func (h *Hub) BroadcastNewMessage(conversationID int, msg models.MessageView) {
	h.Publish(conversationID, models.ConversationEvent{
		Type:           models.EventNewMessage,
		ConversationID: conversationID,
		Message:        &msg,
	})
}

// BroadcastDeletion notifies the room of a delete-for-everyone.
func (h *Hub) BroadcastDeletion(conversationID int, messageID int) {
	h.Publish(conversationID, models.ConversationEvent{
		Type:               models.EventMessageDeleted,
		ConversationID:     conversationID,
		MessageID:          messageID,
		DeletedForEveryone: true,
	})
}

// Publish delivers event to local clients in the room and hands it to the relay.
func (h *Hub) Publish(conversationID int, event models.ConversationEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Int("conversation_id", conversationID).Msg("failed to encode ws event")
		return
	}
	h.DeliverLocal(conversationID, payload)

	h.mu.RLock()
	relay := h.relay
	h.mu.RUnlock()
	if relay != nil {
		err := relay.Publish(context.Background(), conversationID, payload)
		observability.ObserveRelay("out", err)
		if err != nil {
			log.Warn().Err(err).Int("conversation_id", conversationID).Msg("ws relay publish failed")
		}
	}
}

// DeliverLocal queues payload on every local client in the room. Clients whose
// queue is full are disconnected.
func (h *Hub) DeliverLocal(conversationID int, payload []byte) {
	var slow []*Client

	h.mu.RLock()
	for c := range h.rooms[conversationID] {
		select {
		case c.send <- payload:
			observability.ObserveFanout("queued")
		default:
			observability.ObserveFanout("dropped")
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.drop(c, conversationID)
	}
}

func (h *Hub) drop(c *Client, conversationID int) {
	h.mu.Lock()
	_, registered := h.clients[c]
	h.removeLocked(c)
	h.mu.Unlock()

	if registered {
		log.Warn().Str("conn_id", c.info.ConnID).Int("user_id", c.info.UserID).Msg("dropping slow websocket client")
		c.info.publishEvent(context.Background(), "ws_error", conversationID, "send queue full")
	}
}

// sendTo queues payload for a single registered client.
func (h *Hub) sendTo(c *Client, payload []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; !ok {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}
