package repositories

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"connect-service/internal/models"
)

func intPtr(v int) *int { return &v }

func TestMessageRowViewResolvesSenderAndReply(t *testing.T) {
	row := messageRow{
		Message:             models.Message{ID: 7, ConversationID: 3, SenderID: 1, Type: models.MessageTypeText, Text: "hey", ReplyToID: intPtr(5)},
		SenderUsername:      sql.NullString{String: "alice", Valid: true},
		SenderEmail:         sql.NullString{String: "alice@example.com", Valid: true},
		SenderPhotoURL:      sql.NullString{String: "/uploads/photos/a.png", Valid: true},
		ReplySenderID:       sql.NullInt64{Int64: 2, Valid: true},
		ReplyType:           sql.NullString{String: "image", Valid: true},
		ReplyText:           sql.NullString{String: "", Valid: true},
		ReplyMediaURL:       sql.NullString{String: "/uploads/images/b.png", Valid: true},
		ReplySenderUsername: sql.NullString{String: "bob", Valid: true},
		ReplySenderEmail:    sql.NullString{String: "bob@example.com", Valid: true},
	}

	view := row.view()

	require.NotNil(t, view.Sender)
	assert.Equal(t, models.UserSummary{ID: 1, Username: "alice", Email: "alice@example.com", PhotoURL: "/uploads/photos/a.png"}, *view.Sender)
	require.NotNil(t, view.ReplyTo)
	assert.Equal(t, 5, view.ReplyTo.ID)
	assert.Equal(t, 2, view.ReplyTo.SenderID)
	assert.Equal(t, "bob", view.ReplyTo.Sender.Username)
	assert.Equal(t, models.MessageType("image"), view.ReplyTo.Type)
	require.NotNil(t, view.ReplyTo.MediaURL)
	assert.Equal(t, "/uploads/images/b.png", *view.ReplyTo.MediaURL)
	assert.Nil(t, view.ReplyTo.FileName)
	assert.False(t, view.ReplyTo.DeletedForEveryone)
}

func TestMessageRowViewDeletedSender(t *testing.T) {
	row := messageRow{
		Message:                 models.Message{ID: 9, SenderID: 4, ReplyToID: intPtr(8)},
		ReplySenderID:           sql.NullInt64{Int64: 6, Valid: true},
		ReplyType:               sql.NullString{String: "text", Valid: true},
		ReplyText:               sql.NullString{String: "gone", Valid: true},
		ReplyDeletedForEveryone: sql.NullBool{Bool: true, Valid: true},
	}

	view := row.view()

	require.NotNil(t, view.Sender)
	assert.Equal(t, models.UserSummary{ID: 4}, *view.Sender)
	require.NotNil(t, view.ReplyTo)
	assert.Equal(t, models.UserSummary{ID: 6}, *view.ReplyTo.Sender)
	assert.True(t, view.ReplyTo.DeletedForEveryone)
}

func TestMessageRowViewWithoutReply(t *testing.T) {
	plain := messageRow{
		Message:        models.Message{ID: 1, SenderID: 1},
		SenderUsername: sql.NullString{String: "alice", Valid: true},
	}
	assert.Nil(t, plain.view().ReplyTo)

	// reply target row no longer joins
	dangling := messageRow{Message: models.Message{ID: 2, SenderID: 1, ReplyToID: intPtr(99)}}
	view := dangling.view()
	assert.Nil(t, view.ReplyTo)
	require.NotNil(t, view.ReplyToID)
	assert.Equal(t, 99, *view.ReplyToID)
}

func TestDirectKeyIsOrderIndependent(t *testing.T) {
	assert.Equal(t, "3:8", DirectKey(3, 8))
	assert.Equal(t, DirectKey(3, 8), DirectKey(8, 3))
}

func TestUniqueError(t *testing.T) {
	byUsername := &pq.Error{Code: uniqueViolation, Constraint: usernameIndex}
	assert.ErrorIs(t, uniqueError(byUsername), ErrUsernameTaken)

	byEmail := &pq.Error{Code: uniqueViolation, Constraint: "users_email_key"}
	assert.ErrorIs(t, uniqueError(byEmail), ErrDuplicate)

	other := &pq.Error{Code: "23503"}
	assert.Same(t, other, uniqueError(other))

	plain := errors.New("boom")
	assert.Equal(t, plain, uniqueError(plain))
}
