package handlers

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"connect-service/internal/models"
	"connect-service/internal/observability"
	"connect-service/internal/services"
	"connect-service/internal/telemetry"
)

// Broadcaster fans conversation events out to joined websocket clients.
type Broadcaster interface {
	BroadcastNewMessage(conversationID int, msg models.MessageView)
	BroadcastDeletion(conversationID int, messageID int)
}

// MessageHandler serves message creation, listing and deletion.
type MessageHandler struct {
	messages    *services.MessageService
	broadcaster Broadcaster
	emitter     *telemetry.AuditEmitter
	tempDir     string
}

// NewMessageHandler builds a MessageHandler. Uploads are staged in tempDir.
func NewMessageHandler(messages *services.MessageService, broadcaster Broadcaster, emitter *telemetry.AuditEmitter, tempDir string) *MessageHandler {
	return &MessageHandler{messages: messages, broadcaster: broadcaster, emitter: emitter, tempDir: tempDir}
}

type createMessageRequest struct {
	ConversationID int    `json:"conversationId" binding:"required"`
	Text           string `json:"text"`
	ReplyTo        *int   `json:"replyTo"`
}

// Create posts a text message and notifies the conversation.
func (h *MessageHandler) Create(c *gin.Context) {
	var req createMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "conversationId is required")
		return
	}

	view, err := h.messages.CreateText(c.Request.Context(), req.ConversationID, c.GetInt("userID"), req.Text, req.ReplyTo)
	if err != nil {
		respondError(c, err)
		return
	}
	h.created(view)
	c.JSON(http.StatusCreated, view)
}

// Upload posts a file message from the multipart "file" field.
func (h *MessageHandler) Upload(c *gin.Context) {
	upload, err := receiveUpload(c, "file", h.tempDir)
	if err != nil {
		respondUploadError(c, err)
		return
	}

	conversationID, _ := strconv.Atoi(c.PostForm("conversationId"))
	var replyTo *int
	if raw := strings.TrimSpace(c.PostForm("replyTo")); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			_ = os.Remove(upload.TempPath)
			badRequest(c, "invalid replyTo")
			return
		}
		replyTo = &id
	}

	view, err := h.messages.CreateFile(c.Request.Context(), conversationID, c.GetInt("userID"), upload, replyTo)
	if err != nil {
		respondError(c, err)
		return
	}
	h.created(view)
	c.JSON(http.StatusCreated, view)
}

func (h *MessageHandler) created(view models.MessageView) {
	observability.IncMessageCreated(string(view.Type))
	if h.broadcaster != nil {
		h.broadcaster.BroadcastNewMessage(view.ConversationID, view)
	}
}

// List returns a page of the conversation's messages for the caller. The
// optional before cursor is an RFC 3339 timestamp.
func (h *MessageHandler) List(c *gin.Context) {
	conversationID, ok := pathID(c, "conversationId")
	if !ok {
		return
	}

	q := models.ListQuery{ConversationID: conversationID, ViewerID: c.GetInt("userID")}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "invalid limit")
			return
		}
		q.Limit = limit
	}
	if raw := c.Query("before"); raw != "" {
		before, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			badRequest(c, "invalid before")
			return
		}
		q.Before = &before
	}

	msgs, err := h.messages.List(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// DeleteForSelf hides a message from the caller only. Nobody else is notified.
func (h *MessageHandler) DeleteForSelf(c *gin.Context) {
	messageID, ok := pathID(c, "messageId")
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	msg, err := h.messages.DeleteForSelf(c.Request.Context(), messageID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	observability.IncMessageDeleted("self")
	h.emitter.Action(c.Request.Context(), "message.deleted_for_self", requestIDFromContext(c), &userID, map[string]any{
		"message_id":      msg.ID,
		"conversation_id": msg.ConversationID,
	})
	c.JSON(http.StatusOK, gin.H{"messageId": msg.ID, "conversationId": msg.ConversationID, "deletedForMe": true})
}

// DeleteForEveryone tombstones the caller's own message and notifies the conversation.
func (h *MessageHandler) DeleteForEveryone(c *gin.Context) {
	messageID, ok := pathID(c, "messageId")
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	msg, err := h.messages.DeleteForEveryone(c.Request.Context(), messageID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	observability.IncMessageDeleted("everyone")
	if h.broadcaster != nil {
		h.broadcaster.BroadcastDeletion(msg.ConversationID, msg.ID)
	}
	h.emitter.Action(c.Request.Context(), "message.deleted_for_everyone", requestIDFromContext(c), &userID, map[string]any{
		"message_id":      msg.ID,
		"conversation_id": msg.ConversationID,
	})
	c.JSON(http.StatusOK, msg)
}
