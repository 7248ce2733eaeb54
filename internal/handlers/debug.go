package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"connect-service/internal/telemetry"
)

// HubStats reports websocket hub occupancy.
type HubStats interface {
	Stats() (clients int, rooms int)
}

// RegisterDebugRoutes wires debug-only endpoints.
func RegisterDebugRoutes(router gin.IRouter, emitter *telemetry.AuditEmitter, hub HubStats, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/audit-test", func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		emitter.Emit(c.Request.Context(), "INFO", "audit test", requestIDFromContext(c), userIDFromContext(c))
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/debug/ws", func(c *gin.Context) {
		if hub == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "hub not configured"})
			return
		}
		clients, rooms := hub.Stats()
		c.JSON(http.StatusOK, gin.H{"clients": clients, "rooms": rooms})
	})
}
