package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"connect-service/internal/models"
)

// MessageRepository defines interactions for conversation messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, msg models.NewMessage) (models.Message, error)
	GetMessage(ctx context.Context, messageID int) (models.Message, error)
	GetView(ctx context.Context, messageID int) (models.MessageView, error)
	ViewsByIDs(ctx context.Context, messageIDs []int) (map[int]models.MessageView, error)
	ListForViewer(ctx context.Context, q models.ListQuery) ([]models.MessageView, error)
	HideForUser(ctx context.Context, messageID int, userID int) error
	DeleteForEveryone(ctx context.Context, messageID int, senderID int) error
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = `id, conversation_id, sender_id, type, text, media_url, file_name, file_size, mime_type,
        status, reply_to_id, deleted_for, deleted_for_everyone, created_at, updated_at`

// resolvedSelect joins the sender, the reply target and the reply target's sender.
const resolvedSelect = `SELECT m.id, m.conversation_id, m.sender_id, m.type, m.text, m.media_url, m.file_name,
        m.file_size, m.mime_type, m.status, m.reply_to_id, m.deleted_for, m.deleted_for_everyone,
        m.created_at, m.updated_at,
        su.username AS sender_username, su.email AS sender_email, su.photo_url AS sender_photo_url,
        r.sender_id AS reply_sender_id, r.type AS reply_type, r.text AS reply_text,
        r.media_url AS reply_media_url, r.file_name AS reply_file_name,
        r.deleted_for_everyone AS reply_deleted_for_everyone,
        ru.username AS reply_sender_username, ru.email AS reply_sender_email, ru.photo_url AS reply_sender_photo_url
    FROM messages m
    LEFT JOIN users su ON su.id = m.sender_id
    LEFT JOIN messages r ON r.id = m.reply_to_id
    LEFT JOIN users ru ON ru.id = r.sender_id`

type messageRow struct {
	models.Message
	SenderUsername          sql.NullString `db:"sender_username"`
	SenderEmail             sql.NullString `db:"sender_email"`
	SenderPhotoURL          sql.NullString `db:"sender_photo_url"`
	ReplySenderID           sql.NullInt64  `db:"reply_sender_id"`
	ReplyType               sql.NullString `db:"reply_type"`
	ReplyText               sql.NullString `db:"reply_text"`
	ReplyMediaURL           sql.NullString `db:"reply_media_url"`
	ReplyFileName           sql.NullString `db:"reply_file_name"`
	ReplyDeletedForEveryone sql.NullBool   `db:"reply_deleted_for_everyone"`
	ReplySenderUsername     sql.NullString `db:"reply_sender_username"`
	ReplySenderEmail        sql.NullString `db:"reply_sender_email"`
	ReplySenderPhotoURL     sql.NullString `db:"reply_sender_photo_url"`
}

func summaryOf(id int, username, email, photo sql.NullString) *models.UserSummary {
	// a deleted account keeps only its id
	if !username.Valid {
		return &models.UserSummary{ID: id}
	}
	return &models.UserSummary{ID: id, Username: username.String, Email: email.String, PhotoURL: photo.String}
}

func nullToPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func (row messageRow) view() models.MessageView {
	v := models.MessageView{
		Message: row.Message,
		Sender:  summaryOf(row.SenderID, row.SenderUsername, row.SenderEmail, row.SenderPhotoURL),
	}
	if row.ReplyToID != nil && row.ReplySenderID.Valid {
		replySender := int(row.ReplySenderID.Int64)
		v.ReplyTo = &models.ReplyPreview{
			ID:                 *row.ReplyToID,
			SenderID:           replySender,
			Sender:             summaryOf(replySender, row.ReplySenderUsername, row.ReplySenderEmail, row.ReplySenderPhotoURL),
			Type:               models.MessageType(row.ReplyType.String),
			Text:               row.ReplyText.String,
			MediaURL:           nullToPtr(row.ReplyMediaURL),
			FileName:           nullToPtr(row.ReplyFileName),
			DeletedForEveryone: row.ReplyDeletedForEveryone.Bool,
		}
	}
	return v
}

// CreateMessage stores a message with status "sent".
func (r *MessageRepo) CreateMessage(ctx context.Context, msg models.NewMessage) (models.Message, error) {
	msgType := msg.Type
	if msgType == "" {
		msgType = models.MessageTypeText
	}

	var created models.Message
	err := r.db.GetContext(ctx, &created, `INSERT INTO messages
        (conversation_id, sender_id, type, text, media_url, file_name, file_size, mime_type, status, reply_to_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING `+messageColumns,
		msg.ConversationID, msg.SenderID, msgType, msg.Text, msg.MediaURL, msg.FileName, msg.FileSize, msg.MimeType,
		models.MessageStatusSent, msg.ReplyToID)
	return created, err
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// GetView retrieves a single message with sender and reply target resolved.
func (r *MessageRepo) GetView(ctx context.Context, messageID int) (models.MessageView, error) {
	var row messageRow
	err := r.db.GetContext(ctx, &row, resolvedSelect+` WHERE m.id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.MessageView{}, ErrMessageNotFound
	}
	if err != nil {
		return models.MessageView{}, err
	}
	return row.view(), nil
}

// ViewsByIDs resolves several messages at once, keyed by id.
func (r *MessageRepo) ViewsByIDs(ctx context.Context, messageIDs []int) (map[int]models.MessageView, error) {
	result := make(map[int]models.MessageView, len(messageIDs))
	if len(messageIDs) == 0 {
		return result, nil
	}

	var rows []messageRow
	if err := r.db.SelectContext(ctx, &rows, resolvedSelect+` WHERE m.id = ANY($1)`, models.IDList(messageIDs)); err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.ID] = row.view()
	}
	return result, nil
}

// ListForViewer returns up to q.Limit messages the viewer has not hidden,
// newest first, strictly older than q.Before when set.
func (r *MessageRepo) ListForViewer(ctx context.Context, q models.ListQuery) ([]models.MessageView, error) {
	query := resolvedSelect + ` WHERE m.conversation_id=$1 AND NOT ($2 = ANY(m.deleted_for))`
	args := []any{q.ConversationID, q.ViewerID}
	if q.Before != nil {
		args = append(args, *q.Before)
		query += fmt.Sprintf(" AND m.created_at < $%d", len(args))
	}
	args = append(args, q.Limit)
	query += fmt.Sprintf(" ORDER BY m.created_at DESC, m.id DESC LIMIT $%d", len(args))

	var rows []messageRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	views := make([]models.MessageView, 0, len(rows))
	for _, row := range rows {
		views = append(views, row.view())
	}
	return views, nil
}

// HideForUser adds userID to the message's hidden set. Repeating is a no-op.
func (r *MessageRepo) HideForUser(ctx context.Context, messageID int, userID int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE messages
        SET deleted_for = CASE WHEN $2 = ANY(deleted_for) THEN deleted_for ELSE array_append(deleted_for, $2) END
        WHERE id=$1`, messageID, userID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// DeleteForEveryone scrubs the content of a message sent by senderID.
func (r *MessageRepo) DeleteForEveryone(ctx context.Context, messageID int, senderID int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE messages
        SET deleted_for_everyone = TRUE, text = '', media_url = NULL, file_name = NULL,
            file_size = NULL, mime_type = NULL, updated_at = NOW()
        WHERE id=$1 AND sender_id=$2`, messageID, senderID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}
