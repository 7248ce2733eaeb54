package ws

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"connect-service/internal/models"
)

func newConnID() string {
	return uuid.NewString()
}

// tokenFromRequest reads the bearer token from the token query parameter or
// the Authorization header.
func tokenFromRequest(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

func encodeEvent(event models.ConversationEvent) []byte {
	payload, _ := json.Marshal(event)
	return payload
}
