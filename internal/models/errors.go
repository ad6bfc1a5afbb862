package models

import "errors"

// Domain errors shared by repositories, services and handlers.
var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrNotParticipant       = errors.New("not a conversation participant")
	ErrSelfConversation     = errors.New("cannot start a conversation with yourself")
	ErrEmptyContent         = errors.New("message content cannot be empty")
	ErrContentTooLong       = errors.New("message content exceeds maximum length")
	ErrEmptyGroupName       = errors.New("group name cannot be empty")
	ErrGroupTooSmall        = errors.New("group requires at least one other member")
	ErrInvalidLimit         = errors.New("limit must be a positive integer")
	ErrInvalidOffset        = errors.New("offset must not be negative")
)

// ValidateContent checks a trimmed message body before it is stored.
func ValidateContent(content string) error {
	if content == "" {
		return ErrEmptyContent
	}
	if len(content) > MaxMessageLength {
		return ErrContentTooLong
	}
	return nil
}
