package models

import "time"

// ConversationKind discriminates one-on-one threads from named groups.
type ConversationKind string

const (
	KindOneOnOne ConversationKind = "one_on_one"
	KindGroup    ConversationKind = "group"
)

// ParticipantRole is only meaningful for group conversations.
type ParticipantRole string

const (
	RoleMember ParticipantRole = "member"
	RoleAdmin  ParticipantRole = "admin"
)

// Conversation is a thread between a fixed set of participants.
// Name, AvatarURL and CreatedBy are empty for one-on-one conversations.
type Conversation struct {
	ID        int              `db:"id" json:"id"`
	Kind      ConversationKind `db:"kind" json:"kind"`
	Name      string           `db:"name" json:"name,omitempty"`
	AvatarURL string           `db:"avatar_url" json:"avatar_url,omitempty"`
	CreatedBy int              `db:"created_by" json:"created_by,omitempty"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// Participant is a user's membership record in a conversation.
type Participant struct {
	ConversationID int             `db:"conversation_id" json:"conversation_id"`
	UserID         int             `db:"user_id" json:"user_id"`
	Role           ParticipantRole `db:"role" json:"role"`
	LastReadAt     *time.Time      `db:"last_read_at" json:"last_read_at,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// MessagePreview is the most recent message attached to a conversation summary.
type MessagePreview struct {
	MessageID int       `json:"message_id"`
	SenderID  int       `json:"sender_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ConversationSummary carries everything needed to render one row of a
// conversation list without further round trips. PartnerID is set for
// one-on-one conversations only; LastMessage is nil for brand-new threads.
type ConversationSummary struct {
	ID          int              `json:"id"`
	Kind        ConversationKind `json:"kind"`
	Name        string           `json:"name,omitempty"`
	AvatarURL   string           `json:"avatar_url,omitempty"`
	PartnerID   int              `json:"partner_id,omitempty"`
	LastReadAt  *time.Time       `json:"last_read_at,omitempty"`
	UpdatedAt   time.Time        `json:"updated_at"`
	LastMessage *MessagePreview  `json:"last_message,omitempty"`
}
