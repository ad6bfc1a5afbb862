package models

import "time"

// ContentTypeText is the only content type currently stored.
const ContentTypeText = "text"

// StatusSent marks a delivered-to-store message; informational only.
const StatusSent = "sent"

// MaxMessageLength bounds the size of a single text message.
const MaxMessageLength = 4000

// Message is one entry of a conversation's append-only log.
type Message struct {
	ID             int       `db:"id" json:"id"`
	ConversationID int       `db:"conversation_id" json:"conversation_id"`
	SenderID       int       `db:"sender_id" json:"sender_id"`
	ContentType    string    `db:"content_type" json:"content_type"`
	Content        string    `db:"content" json:"content"`
	Status         string    `db:"status" json:"status"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// MessagePage is one slice of a conversation's log, newest first.
type MessagePage struct {
	Messages []Message `json:"messages"`
	Total    int       `json:"total"`
	HasMore  bool      `json:"has_more"`
}
