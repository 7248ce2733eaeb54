package models

import (
	"database/sql"
	"time"
)

// Conversation is a one-to-one or group thread between two or more users.
type Conversation struct {
	ID            int            `db:"id" json:"id"`
	Participants  IDList         `db:"participant_ids" json:"participants"`
	IsGroup       bool           `db:"is_group" json:"isGroup"`
	GroupName     string         `db:"group_name" json:"groupName,omitempty"`
	DirectKey     sql.NullString `db:"direct_key" json:"-"`
	LastMessageID *int           `db:"last_message_id" json:"lastMessage"`
	CreatedAt     time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updatedAt"`
}

// HasParticipant reports whether userID is a member of the conversation.
func (c Conversation) HasParticipant(userID int) bool {
	return c.Participants.Contains(userID)
}

// Peer returns the other participant of a one-to-one conversation.
func (c Conversation) Peer(userID int) (int, bool) {
	if c.IsGroup || len(c.Participants) != 2 {
		return 0, false
	}
	if c.Participants[0] == userID {
		return c.Participants[1], true
	}
	if c.Participants[1] == userID {
		return c.Participants[0], true
	}
	return 0, false
}

// ConversationView is a conversation with participants and last message resolved.
type ConversationView struct {
	ID           int           `json:"id"`
	Participants []UserSummary `json:"participants"`
	IsGroup      bool          `json:"isGroup"`
	GroupName    string        `json:"groupName,omitempty"`
	LastMessage  *MessageView  `json:"lastMessage"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// ConversationRef is the slim conversation reference attached to a created message.
type ConversationRef struct {
	ID           int    `json:"id"`
	Participants IDList `json:"participants"`
}
