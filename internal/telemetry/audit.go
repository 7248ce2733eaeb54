package telemetry

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

type AuditEmitter struct {
	publisher   Publisher
	routingKey  string
	service     string
	environment string
}

type AuditEnvelope struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	OccurredAt    string       `json:"occurred_at"`
	Service       string       `json:"service"`
	Environment   string       `json:"environment"`
	RequestID     string       `json:"request_id"`
	UserID        *int         `json:"user_id,omitempty"`
	Payload       AuditPayload `json:"payload"`
}

type AuditPayload struct {
	Level  string         `json:"level"`
	Text   string         `json:"text"`
	Action string         `json:"action,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`
}

func NewAuditEmitter(publisher Publisher, routingKey, service, environment string) *AuditEmitter {
	return &AuditEmitter{
		publisher:   publisher,
		routingKey:  routingKey,
		service:     service,
		environment: environment,
	}
}

// Emit publishes a free-form audit line.
func (e *AuditEmitter) Emit(ctx context.Context, level, text, requestID string, userID *int) {
	e.publish(ctx, requestID, userID, AuditPayload{Level: level, Text: text})
}

// Action records a user action such as a message deletion.
func (e *AuditEmitter) Action(ctx context.Context, action, requestID string, userID *int, fields map[string]any) {
	e.publish(ctx, requestID, userID, AuditPayload{Level: "INFO", Text: action, Action: action, Fields: fields})
}

func (e *AuditEmitter) publish(ctx context.Context, requestID string, userID *int, payload AuditPayload) {
	if e == nil || e.publisher == nil {
		return
	}

	entry := log.Debug().Str("level", payload.Level).Str("request_id", requestID).Str("text", payload.Text)
	if userID != nil {
		entry = entry.Int("user_id", *userID)
	}
	entry.Msg("audit emit")

	envelope := AuditEnvelope{
		SchemaVersion: 1,
		EventType:     "audit_log",
		OccurredAt:    time.Now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		RequestID:     requestID,
		UserID:        userID,
		Payload:       payload,
	}

	if err := e.publisher.Publish(ctx, e.routingKey, envelope); err != nil {
		log.Warn().Err(err).Msg("audit publish failed")
	}
}
