package models

const (
	EventNewMessage     = "newMessage"
	EventMessageDeleted = "messageDeleted"
	EventJoined         = "joined"
	EventError          = "error"
)

// ConversationEvent is broadcast to every socket joined to a conversation channel.
type ConversationEvent struct {
	Type               string       `json:"type"`
	ConversationID     int          `json:"conversationId"`
	Message            *MessageView `json:"message,omitempty"`
	MessageID          int          `json:"messageId,omitempty"`
	DeletedForEveryone bool         `json:"deletedForEveryone,omitempty"`
	Error              string       `json:"error,omitempty"`
}

// ClientCommand is a frame sent by a websocket client.
type ClientCommand struct {
	Action         string `json:"action"`
	ConversationID int    `json:"conversationId"`
}

const (
	ActionJoinConversation  = "joinConversation"
	ActionLeaveConversation = "leaveConversation"
)
