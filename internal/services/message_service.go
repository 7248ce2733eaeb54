package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"connect-service/internal/models"
	"connect-service/internal/repositories"
	"connect-service/internal/storage"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	mediaKind = "messages"
)

// MessageService creates, lists and deletes conversation messages.
type MessageService struct {
	guard         *AccessGuard
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
	files         storage.FileStore
}

// NewMessageService builds a MessageService.
func NewMessageService(guard *AccessGuard, conversations repositories.ConversationRepository, messages repositories.MessageRepository, files storage.FileStore) *MessageService {
	return &MessageService{guard: guard, conversations: conversations, messages: messages, files: files}
}

// CreateText stores a text message and moves the conversation's last-message pointer.
func (s *MessageService) CreateText(ctx context.Context, conversationID int, senderID int, text string, replyTo *int) (models.MessageView, error) {
	if conversationID <= 0 {
		return models.MessageView{}, validation("conversationId is required")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return models.MessageView{}, validation("text is required")
	}

	conv, err := s.guard.RequireParticipant(ctx, conversationID, senderID)
	if err != nil {
		return models.MessageView{}, err
	}
	if err := s.checkReply(ctx, conversationID, replyTo); err != nil {
		return models.MessageView{}, err
	}

	msg, err := s.messages.CreateMessage(ctx, models.NewMessage{
		ConversationID: conversationID,
		SenderID:       senderID,
		Type:           models.MessageTypeText,
		Text:           text,
		ReplyToID:      replyTo,
	})
	if err != nil {
		return models.MessageView{}, fmt.Errorf("create message: %w", err)
	}
	return s.afterCreate(ctx, conv, msg)
}

// CreateFile stores an uploaded file and a message referencing it. The
// temporary upload is removed on every failure path.
func (s *MessageService) CreateFile(ctx context.Context, conversationID int, senderID int, upload Upload, replyTo *int) (view models.MessageView, err error) {
	committed := false
	defer func() {
		if !committed && upload.TempPath != "" {
			if rmErr := os.Remove(upload.TempPath); rmErr != nil && !os.IsNotExist(rmErr) {
				log.Warn().Err(rmErr).Str("path", upload.TempPath).Msg("failed to remove temporary upload")
			}
		}
	}()

	if conversationID <= 0 {
		return models.MessageView{}, validation("conversationId is required")
	}
	msgType, err := validateUpload(upload)
	if err != nil {
		return models.MessageView{}, err
	}

	conv, err := s.guard.RequireParticipant(ctx, conversationID, senderID)
	if err != nil {
		return models.MessageView{}, err
	}
	if err := s.checkReply(ctx, conversationID, replyTo); err != nil {
		return models.MessageView{}, err
	}

	mime := normalizeMIME(upload.MimeType)
	url, err := s.files.Save(ctx, mediaKind, storedName(uuid.NewString(), upload.FileName), upload.TempPath, mime)
	if err != nil {
		return models.MessageView{}, fmt.Errorf("store upload: %w", err)
	}
	committed = true

	fileName := upload.FileName
	size := upload.Size
	msg, err := s.messages.CreateMessage(ctx, models.NewMessage{
		ConversationID: conversationID,
		SenderID:       senderID,
		Type:           msgType,
		MediaURL:       &url,
		FileName:       &fileName,
		FileSize:       &size,
		MimeType:       &mime,
		ReplyToID:      replyTo,
	})
	if err != nil {
		s.removeMedia(ctx, url)
		return models.MessageView{}, fmt.Errorf("create message: %w", err)
	}
	return s.afterCreate(ctx, conv, msg)
}

// List returns a page of messages visible to q.ViewerID, newest first.
func (s *MessageService) List(ctx context.Context, q models.ListQuery) ([]models.MessageView, error) {
	if _, err := s.guard.RequireParticipant(ctx, q.ConversationID, q.ViewerID); err != nil {
		return nil, err
	}
	if q.Limit <= 0 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}

	msgs, err := s.messages.ListForViewer(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

// DeleteForSelf hides the message from viewerID only.
func (s *MessageService) DeleteForSelf(ctx context.Context, messageID int, viewerID int) (models.Message, error) {
	msg, err := s.loadForParticipant(ctx, messageID, viewerID)
	if err != nil {
		return models.Message{}, err
	}
	if msg.HiddenFor(viewerID) {
		return msg, nil
	}
	if err := s.messages.HideForUser(ctx, messageID, viewerID); err != nil {
		return models.Message{}, fmt.Errorf("hide message: %w", err)
	}
	msg.DeletedFor = append(msg.DeletedFor, viewerID)
	return msg, nil
}

// DeleteForEveryone tombstones a message. Only its sender may do so.
func (s *MessageService) DeleteForEveryone(ctx context.Context, messageID int, requesterID int) (models.Message, error) {
	msg, err := s.loadForParticipant(ctx, messageID, requesterID)
	if err != nil {
		return models.Message{}, err
	}
	if msg.SenderID != requesterID {
		return models.Message{}, forbidden("only the sender can delete for everyone")
	}

	if err := s.messages.DeleteForEveryone(ctx, messageID, requesterID); err != nil {
		if errors.Is(err, repositories.ErrMessageNotFound) {
			return models.Message{}, notFound("message")
		}
		return models.Message{}, fmt.Errorf("delete message: %w", err)
	}

	if msg.MediaURL != nil {
		s.removeMedia(ctx, *msg.MediaURL)
	}

	msg.DeletedForEveryone = true
	msg.Text = ""
	msg.MediaURL = nil
	msg.FileName = nil
	msg.FileSize = nil
	msg.MimeType = nil
	return msg, nil
}

func (s *MessageService) loadForParticipant(ctx context.Context, messageID int, userID int) (models.Message, error) {
	msg, err := s.messages.GetMessage(ctx, messageID)
	if errors.Is(err, repositories.ErrMessageNotFound) {
		return models.Message{}, notFound("message")
	}
	if err != nil {
		return models.Message{}, fmt.Errorf("load message: %w", err)
	}
	if _, err := s.guard.RequireParticipant(ctx, msg.ConversationID, userID); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

func (s *MessageService) checkReply(ctx context.Context, conversationID int, replyTo *int) error {
	if replyTo == nil {
		return nil
	}
	target, err := s.messages.GetMessage(ctx, *replyTo)
	if errors.Is(err, repositories.ErrMessageNotFound) {
		return validation("replyTo does not reference a message in this conversation")
	}
	if err != nil {
		return fmt.Errorf("load reply target: %w", err)
	}
	if target.ConversationID != conversationID {
		return validation("replyTo does not reference a message in this conversation")
	}
	return nil
}

// afterCreate moves the pointer and resolves the created message. A failed
// pointer update leaves the pointer stale and does not fail the request.
func (s *MessageService) afterCreate(ctx context.Context, conv models.Conversation, msg models.Message) (models.MessageView, error) {
	if err := s.conversations.SetLastMessage(ctx, conv.ID, msg.ID); err != nil {
		log.Error().Err(err).Int("conversation_id", conv.ID).Int("message_id", msg.ID).Msg("failed to update last message pointer")
	}

	view, err := s.messages.GetView(ctx, msg.ID)
	if err != nil {
		return models.MessageView{}, fmt.Errorf("resolve message: %w", err)
	}
	view.Conversation = &models.ConversationRef{ID: conv.ID, Participants: conv.Participants}
	return view, nil
}

func (s *MessageService) removeMedia(ctx context.Context, url string) {
	if err := s.files.Remove(ctx, url); err != nil {
		log.Warn().Err(err).Str("url", url).Msg("failed to remove stored media")
	}
}
