package services

import (
	"context"
	"errors"
	"fmt"

	"connect-service/internal/models"
	"connect-service/internal/repositories"
)

// AccessGuard authorizes conversation-scoped operations.
type AccessGuard struct {
	conversations repositories.ConversationRepository
}

// NewAccessGuard builds an AccessGuard.
func NewAccessGuard(conversations repositories.ConversationRepository) *AccessGuard {
	return &AccessGuard{conversations: conversations}
}

// RequireParticipant loads the conversation and checks that userID belongs to it.
// Existence is checked first so a missing conversation and a non-member are
// distinguishable.
func (g *AccessGuard) RequireParticipant(ctx context.Context, conversationID int, userID int) (models.Conversation, error) {
	conv, err := g.conversations.GetConversation(ctx, conversationID)
	if errors.Is(err, repositories.ErrConversationNotFound) {
		return models.Conversation{}, notFound("conversation")
	}
	if err != nil {
		return models.Conversation{}, fmt.Errorf("load conversation: %w", err)
	}
	if !conv.HasParticipant(userID) {
		return models.Conversation{}, forbidden("not a participant of this conversation")
	}
	return conv, nil
}

// CanJoin reports whether userID may subscribe to the conversation's channel.
func (g *AccessGuard) CanJoin(ctx context.Context, conversationID int, userID int) error {
	_, err := g.RequireParticipant(ctx, conversationID, userID)
	return err
}
