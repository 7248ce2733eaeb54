package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"connect-service/internal/models"
)

// ConversationRepository abstracts conversation persistence.
type ConversationRepository interface {
	FindDirect(ctx context.Context, userA int, userB int) (models.Conversation, error)
	CreateDirect(ctx context.Context, userA int, userB int) (models.Conversation, error)
	CreateGroup(ctx context.Context, name string, participants []int) (models.Conversation, error)
	GetConversation(ctx context.Context, conversationID int) (models.Conversation, error)
	ListForUser(ctx context.Context, userID int) ([]models.Conversation, error)
	SetLastMessage(ctx context.Context, conversationID int, messageID int) error
}

// ConversationRepo is a sqlx implementation of ConversationRepository.
type ConversationRepo struct {
	db *sqlx.DB
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

const conversationColumns = `id, participant_ids, is_group, group_name, direct_key, last_message_id, created_at, updated_at`

// DirectKey is the order-independent key of a one-to-one conversation.
func DirectKey(userA, userB int) string {
	if userA > userB {
		userA, userB = userB, userA
	}
	return fmt.Sprintf("%d:%d", userA, userB)
}

// FindDirect looks up the one-to-one conversation between two users.
func (r *ConversationRepo) FindDirect(ctx context.Context, userA int, userB int) (models.Conversation, error) {
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv, `SELECT `+conversationColumns+` FROM conversations
        WHERE is_group = FALSE AND direct_key=$1`, DirectKey(userA, userB))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	return conv, err
}

// CreateDirect inserts a one-to-one conversation with userA listed first. If a
// concurrent request created the pair first, that row is returned instead.
func (r *ConversationRepo) CreateDirect(ctx context.Context, userA int, userB int) (models.Conversation, error) {
	if userA == userB {
		return models.Conversation{}, errors.New("cannot create conversation with self")
	}

	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv, `INSERT INTO conversations (participant_ids, is_group, direct_key)
        VALUES ($1, FALSE, $2)
        ON CONFLICT (direct_key) DO NOTHING
        RETURNING `+conversationColumns, models.IDList{userA, userB}, DirectKey(userA, userB))
	if errors.Is(err, sql.ErrNoRows) {
		return r.FindDirect(ctx, userA, userB)
	}
	return conv, err
}

// CreateGroup inserts a group conversation.
func (r *ConversationRepo) CreateGroup(ctx context.Context, name string, participants []int) (models.Conversation, error) {
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv, `INSERT INTO conversations (participant_ids, is_group, group_name)
        VALUES ($1, TRUE, $2) RETURNING `+conversationColumns, models.IDList(participants), name)
	return conv, err
}

// GetConversation fetches a conversation by id.
func (r *ConversationRepo) GetConversation(ctx context.Context, conversationID int) (models.Conversation, error) {
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv, `SELECT `+conversationColumns+` FROM conversations WHERE id=$1`, conversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	return conv, err
}

// ListForUser returns the user's conversations, most recently updated first.
func (r *ConversationRepo) ListForUser(ctx context.Context, userID int) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := r.db.SelectContext(ctx, &convs, `SELECT `+conversationColumns+` FROM conversations
        WHERE $1 = ANY(participant_ids)
        ORDER BY updated_at DESC, id DESC`, userID)
	return convs, err
}

// SetLastMessage moves the last-message pointer and bumps updated_at.
func (r *ConversationRepo) SetLastMessage(ctx context.Context, conversationID int, messageID int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE conversations SET last_message_id=$2, updated_at=NOW() WHERE id=$1`, conversationID, messageID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrConversationNotFound
	}
	return nil
}
