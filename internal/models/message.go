package models

import "time"

// MessageType classifies message content.
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeVideo MessageType = "video"
	MessageTypePDF   MessageType = "pdf"
	MessageTypeFile  MessageType = "file"
)

// MessageStatus is the delivery status. Only "sent" is written today.
type MessageStatus string

const (
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusSeen      MessageStatus = "seen"
)

// Message represents a message in a conversation.
type Message struct {
	ID                 int           `db:"id" json:"id"`
	ConversationID     int           `db:"conversation_id" json:"conversationId"`
	SenderID           int           `db:"sender_id" json:"senderId"`
	Type               MessageType   `db:"type" json:"type"`
	Text               string        `db:"text" json:"text"`
	MediaURL           *string       `db:"media_url" json:"mediaUrl"`
	FileName           *string       `db:"file_name" json:"fileName"`
	FileSize           *int64        `db:"file_size" json:"fileSize"`
	MimeType           *string       `db:"mime_type" json:"mimeType"`
	Status             MessageStatus `db:"status" json:"status"`
	ReplyToID          *int          `db:"reply_to_id" json:"replyToId,omitempty"`
	DeletedFor         IDList        `db:"deleted_for" json:"-"`
	DeletedForEveryone bool          `db:"deleted_for_everyone" json:"deletedForEveryone"`
	CreatedAt          time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time     `db:"updated_at" json:"updatedAt"`
}

// HiddenFor reports whether the viewer deleted the message for themselves.
func (m Message) HiddenFor(viewerID int) bool {
	return m.DeletedFor.Contains(viewerID)
}

// NewMessage holds the fields of a message about to be inserted.
type NewMessage struct {
	ConversationID int
	SenderID       int
	Type           MessageType
	Text           string
	MediaURL       *string
	FileName       *string
	FileSize       *int64
	MimeType       *string
	ReplyToID      *int
}

// MessageView is a message with sender and reply target resolved.
type MessageView struct {
	Message
	Sender       *UserSummary     `json:"sender"`
	ReplyTo      *ReplyPreview    `json:"replyTo"`
	Conversation *ConversationRef `json:"conversation,omitempty"`
}

// ReplyPreview is the resolved target of a reply.
type ReplyPreview struct {
	ID                 int          `json:"id"`
	SenderID           int          `json:"senderId"`
	Sender             *UserSummary `json:"sender"`
	Type               MessageType  `json:"type"`
	Text               string       `json:"text"`
	MediaURL           *string      `json:"mediaUrl"`
	FileName           *string      `json:"fileName"`
	DeletedForEveryone bool         `json:"deletedForEveryone"`
}

// ListQuery selects a page of messages for one viewer.
type ListQuery struct {
	ConversationID int
	ViewerID       int
	Limit          int
	Before         *time.Time
}
