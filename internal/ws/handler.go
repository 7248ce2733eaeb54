package ws

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"

	"connect-service/internal/observability"
)

// TokenParser resolves a bearer token to a user id.
type TokenParser interface {
	Parse(raw string) (int, error)
}

// Handler upgrades authenticated requests to websocket clients.
type Handler struct {
	hub      *Hub
	tokens   TokenParser
	guard    JoinAuthorizer
	upgrader websocket.Upgrader
}

// NewHandler constructs a Handler. An empty allowedOrigins accepts any origin.
func NewHandler(hub *Hub, tokens TokenParser, guard JoinAuthorizer, allowedOrigins []string) *Handler {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}
	return &Handler{
		hub:    hub,
		tokens: tokens,
		guard:  guard,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || len(origins) == 0 {
					return true
				}
				_, ok := origins[origin]
				return ok
			},
		},
	}
}

// Handle authenticates the handshake and starts the client pumps.
func (h *Handler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("connect-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID, err := h.tokens.Parse(tokenFromRequest(c.Request))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Debug().Err(err).Int("user_id", userID).Msg("websocket upgrade failed")
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	client := NewClient(h.hub, conn, info, h.guard)
	h.hub.Register(client)

	observability.IncWSConnections()
	info.publishEvent(ctx, "ws_connect", 0, "")
	log.Debug().Str("conn_id", info.ConnID).Int("user_id", userID).Msg("websocket connected")

	go client.WritePump()
	go client.ReadPump()
}
