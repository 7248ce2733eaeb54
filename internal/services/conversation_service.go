package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"connect-service/internal/models"
	"connect-service/internal/repositories"
)

// ConversationService manages one-to-one and group conversations.
type ConversationService struct {
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
	users         repositories.UserRepository
}

// NewConversationService builds a ConversationService.
func NewConversationService(conversations repositories.ConversationRepository, messages repositories.MessageRepository, users repositories.UserRepository) *ConversationService {
	return &ConversationService{conversations: conversations, messages: messages, users: users}
}

// GetOrCreateOneToOne returns the single direct conversation between userID and
// otherID, creating it on first contact.
func (s *ConversationService) GetOrCreateOneToOne(ctx context.Context, userID int, otherID int) (models.ConversationView, error) {
	if otherID <= 0 {
		return models.ConversationView{}, validation("userId is required")
	}
	if userID == otherID {
		return models.ConversationView{}, validation("cannot chat with self")
	}

	me, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return models.ConversationView{}, s.userErr(err)
	}
	other, err := s.users.GetByID(ctx, otherID)
	if err != nil {
		return models.ConversationView{}, s.userErr(err)
	}
	if me.HasBlocked(otherID) || other.HasBlocked(userID) {
		return models.ConversationView{}, forbidden("conversation blocked")
	}

	conv, err := s.conversations.FindDirect(ctx, userID, otherID)
	if errors.Is(err, repositories.ErrConversationNotFound) {
		conv, err = s.conversations.CreateDirect(ctx, userID, otherID)
	}
	if err != nil {
		return models.ConversationView{}, fmt.Errorf("get or create conversation: %w", err)
	}

	return s.resolveOne(ctx, conv)
}

// CreateGroup creates a group conversation owned by ownerID.
func (s *ConversationService) CreateGroup(ctx context.Context, ownerID int, name string, memberIDs []int) (models.ConversationView, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.ConversationView{}, validation("groupName is required")
	}

	participants := []int{ownerID}
	seen := map[int]struct{}{ownerID: {}}
	for _, id := range memberIDs {
		if id <= 0 {
			return models.ConversationView{}, validation("participantIds must be positive")
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		participants = append(participants, id)
	}
	if len(participants) < 2 {
		return models.ConversationView{}, validation("a group needs at least two participants")
	}

	existing, err := s.users.Summaries(ctx, participants)
	if err != nil {
		return models.ConversationView{}, fmt.Errorf("load participants: %w", err)
	}
	for _, id := range participants {
		if _, ok := existing[id]; !ok {
			return models.ConversationView{}, notFound("user")
		}
	}

	conv, err := s.conversations.CreateGroup(ctx, name, participants)
	if err != nil {
		return models.ConversationView{}, fmt.Errorf("create group: %w", err)
	}
	return s.resolveOne(ctx, conv)
}

// ListForUser returns every conversation containing userID, most recently
// updated first.
func (s *ConversationService) ListForUser(ctx context.Context, userID int) ([]models.ConversationView, error) {
	convs, err := s.conversations.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return resolveConversations(ctx, s.users, s.messages, convs)
}

func (s *ConversationService) resolveOne(ctx context.Context, conv models.Conversation) (models.ConversationView, error) {
	views, err := resolveConversations(ctx, s.users, s.messages, []models.Conversation{conv})
	if err != nil {
		return models.ConversationView{}, err
	}
	return views[0], nil
}

func (s *ConversationService) userErr(err error) error {
	if errors.Is(err, repositories.ErrUserNotFound) {
		return notFound("user")
	}
	return fmt.Errorf("load user: %w", err)
}
