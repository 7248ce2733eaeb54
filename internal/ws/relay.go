package ws

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"connect-service/internal/observability"
)

const relayChannel = "connect:conversation-events"

type relayMessage struct {
	Origin         string          `json:"origin"`
	ConversationID int             `json:"conversation_id"`
	Event          json.RawMessage `json:"event"`
}

// RedisRelay shares hub events between instances over Redis pub/sub.
type RedisRelay struct {
	client     *redis.Client
	hub        *Hub
	instanceID string
	channel    string
}

// NewRedisRelay builds a relay with a fresh instance id.
func NewRedisRelay(client *redis.Client, hub *Hub) *RedisRelay {
	return &RedisRelay{client: client, hub: hub, instanceID: uuid.NewString(), channel: relayChannel}
}

// Publish sends an already encoded event to the other instances.
func (r *RedisRelay) Publish(ctx context.Context, conversationID int, payload []byte) error {
	data, err := json.Marshal(relayMessage{Origin: r.instanceID, ConversationID: conversationID, Event: payload})
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, data).Err()
}

// Run delivers events published by other instances until ctx is done.
func (r *RedisRelay) Run(ctx context.Context) {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	log.Info().Str("instance_id", r.instanceID).Str("channel", r.channel).Msg("ws relay subscribed")
	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			r.handle(msg.Payload)
		case <-ctx.Done():
			return
		}
	}
}

func (r *RedisRelay) handle(raw string) {
	var msg relayMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		observability.ObserveRelay("in", err)
		log.Warn().Err(err).Msg("invalid ws relay message")
		return
	}
	// own publishes were already delivered locally
	if msg.Origin == r.instanceID || msg.ConversationID <= 0 {
		return
	}
	observability.ObserveRelay("in", nil)
	r.hub.DeliverLocal(msg.ConversationID, msg.Event)
}
