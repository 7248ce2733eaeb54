package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"connect-service/internal/services"
)

// ConversationHandler serves conversation creation and listing.
type ConversationHandler struct {
	conversations *services.ConversationService
}

// NewConversationHandler builds a ConversationHandler.
func NewConversationHandler(conversations *services.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversations: conversations}
}

type oneToOneRequest struct {
	UserID int `json:"userId" binding:"required"`
}

type groupRequest struct {
	GroupName      string `json:"groupName"`
	ParticipantIDs []int  `json:"participantIds"`
}

// CreateOneToOne returns the conversation between the caller and userId,
// creating it on first use.
func (h *ConversationHandler) CreateOneToOne(c *gin.Context) {
	var req oneToOneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "userId is required")
		return
	}

	conv, err := h.conversations.GetOrCreateOneToOne(c.Request.Context(), c.GetInt("userID"), req.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

// CreateGroup starts a group conversation owned by the caller.
func (h *ConversationHandler) CreateGroup(c *gin.Context) {
	var req groupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid group payload")
		return
	}

	conv, err := h.conversations.CreateGroup(c.Request.Context(), c.GetInt("userID"), req.GroupName, req.ParticipantIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, conv)
}

// List returns the caller's conversations, most recently active first.
func (h *ConversationHandler) List(c *gin.Context) {
	convs, err := h.conversations.ListForUser(c.Request.Context(), c.GetInt("userID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": convs})
}
