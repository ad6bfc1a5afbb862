package repositories

import (
	"context"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"messaging-service/internal/models"
)

// MessageRepository owns the append-only message log per conversation.
type MessageRepository interface {
	CreateMessage(ctx context.Context, conversationID int, senderID int, content string) (models.Message, error)
	ListMessages(ctx context.Context, conversationID int, limit int, offset int) (models.MessagePage, error)
	MarkRead(ctx context.Context, conversationID int, userID int) error
}

// MessageRepo is a sqlx-backed implementation of MessageRepository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = `id, conversation_id, sender_id, content_type, content, status, created_at`

// foreignKeyViolation is the postgres error code raised when a message
// references a conversation that does not exist.
const foreignKeyViolation = "23503"

// CreateMessage appends a message and advances the conversation's updated_at
// to the message timestamp in the same transaction, so list ordering and the
// stored message are never observed out of sync.
func (r *MessageRepo) CreateMessage(ctx context.Context, conversationID int, senderID int, content string) (models.Message, error) {
	content = strings.TrimSpace(content)
	if err := models.ValidateContent(content); err != nil {
		return models.Message{}, err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var msg models.Message
	if err = tx.GetContext(ctx, &msg,
		`INSERT INTO messages (conversation_id, sender_id, content_type, content, status)
         VALUES ($1, $2, $3, $4, $5) RETURNING `+messageColumns,
		conversationID, senderID, models.ContentTypeText, content, models.StatusSent); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
			err = models.ErrConversationNotFound
		}
		return models.Message{}, err
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE conversations SET updated_at=$1 WHERE id=$2`, msg.CreatedAt, conversationID); err != nil {
		return models.Message{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// ListMessages returns one page of the conversation log, newest first. Equal
// timestamps are broken by id so the total order is stable across pages.
func (r *MessageRepo) ListMessages(ctx context.Context, conversationID int, limit int, offset int) (models.MessagePage, error) {
	if limit <= 0 {
		return models.MessagePage{}, models.ErrInvalidLimit
	}
	if offset < 0 {
		return models.MessagePage{}, models.ErrInvalidOffset
	}

	var total int
	if err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM messages WHERE conversation_id=$1`, conversationID); err != nil {
		return models.MessagePage{}, err
	}

	var msgs []models.Message
	if err := r.db.SelectContext(ctx, &msgs,
		`SELECT `+messageColumns+` FROM messages WHERE conversation_id=$1
         ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`,
		conversationID, limit, offset); err != nil {
		return models.MessagePage{}, err
	}

	return models.MessagePage{
		Messages: msgs,
		Total:    total,
		HasMore:  offset+len(msgs) < total,
	}, nil
}

// MarkRead advances the participant's read watermark to now. Callers treat
// this as fire-and-forget; a missing participant row is not an error.
func (r *MessageRepo) MarkRead(ctx context.Context, conversationID int, userID int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE participants SET last_read_at=NOW() WHERE conversation_id=$1 AND user_id=$2`,
		conversationID, userID)
	return err
}
