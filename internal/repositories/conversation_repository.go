package repositories

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"messaging-service/internal/models"
)

// ConversationRepository owns conversation records and their membership.
type ConversationRepository interface {
	CreateOrGetDirect(ctx context.Context, userID int, otherID int) (models.Conversation, []models.Participant, bool, error)
	CreateGroup(ctx context.Context, creatorID int, name string, memberIDs []int) (models.Conversation, []models.Participant, error)
	GetConversation(ctx context.Context, conversationID int) (models.Conversation, error)
	IsParticipant(ctx context.Context, conversationID int, userID int) (bool, error)
	ListParticipants(ctx context.Context, conversationID int) ([]models.Participant, error)
	ListForUser(ctx context.Context, userID int) ([]models.ConversationSummary, error)
}

// ConversationRepo is a sqlx implementation of ConversationRepository.
type ConversationRepo struct {
	db *sqlx.DB
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

const conversationColumns = `id, kind, COALESCE(name, '') AS name, COALESCE(avatar_url, '') AS avatar_url, COALESCE(created_by, 0) AS created_by, created_at, updated_at`

// CreateOrGetDirect returns the one-on-one conversation between the two users,
// creating it atomically if it does not exist yet. The boolean reports whether
// a new conversation was created. The direct_pairs primary key over the sorted
// pair guarantees at most one thread per pair even when two callers race: the
// loser's pair insert affects zero rows and the winner's conversation is
// returned instead.
func (r *ConversationRepo) CreateOrGetDirect(ctx context.Context, userID int, otherID int) (models.Conversation, []models.Participant, bool, error) {
	if userID == otherID {
		return models.Conversation{}, nil, false, models.ErrSelfConversation
	}
	userA, userB := orderPair(userID, otherID)

	var conversationID int
	err := r.db.GetContext(ctx, &conversationID,
		`SELECT conversation_id FROM direct_pairs WHERE user_a=$1 AND user_b=$2`, userA, userB)
	if err == nil {
		conv, participants, err := r.getWithParticipants(ctx, conversationID)
		return conv, participants, false, err
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, nil, false, err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Conversation{}, nil, false, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var conv models.Conversation
	if err = tx.GetContext(ctx, &conv,
		`INSERT INTO conversations (kind) VALUES ($1) RETURNING `+conversationColumns,
		models.KindOneOnOne); err != nil {
		return models.Conversation{}, nil, false, err
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO direct_pairs (user_a, user_b, conversation_id) VALUES ($1, $2, $3)
         ON CONFLICT (user_a, user_b) DO NOTHING`, userA, userB, conv.ID)
	if err != nil {
		return models.Conversation{}, nil, false, err
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return models.Conversation{}, nil, false, err
	}
	if inserted == 0 {
		// A concurrent caller created the pair first; discard ours and return theirs.
		tx.Rollback()
		err = r.db.GetContext(ctx, &conversationID,
			`SELECT conversation_id FROM direct_pairs WHERE user_a=$1 AND user_b=$2`, userA, userB)
		if err != nil {
			return models.Conversation{}, nil, false, err
		}
		conv, participants, err := r.getWithParticipants(ctx, conversationID)
		return conv, participants, false, err
	}

	for _, id := range []int{userA, userB} {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO participants (conversation_id, user_id, role) VALUES ($1, $2, $3)`,
			conv.ID, id, models.RoleMember); err != nil {
			return models.Conversation{}, nil, false, err
		}
	}

	if err = tx.Commit(); err != nil {
		return models.Conversation{}, nil, false, err
	}
	conv, participants, err := r.getWithParticipants(ctx, conv.ID)
	return conv, participants, true, err
}

// CreateGroup creates a group conversation and its participant rows atomically.
// The creator is always a member and carries the admin role.
func (r *ConversationRepo) CreateGroup(ctx context.Context, creatorID int, name string, memberIDs []int) (models.Conversation, []models.Participant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Conversation{}, nil, models.ErrEmptyGroupName
	}

	memberSet := map[int]struct{}{creatorID: {}}
	for _, id := range memberIDs {
		memberSet[id] = struct{}{}
	}
	if len(memberSet) < 2 {
		return models.Conversation{}, nil, models.ErrGroupTooSmall
	}
	ids := make([]int, 0, len(memberSet))
	for id := range memberSet {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Conversation{}, nil, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var conv models.Conversation
	if err = tx.GetContext(ctx, &conv,
		`INSERT INTO conversations (kind, name, created_by) VALUES ($1, $2, $3) RETURNING `+conversationColumns,
		models.KindGroup, name, creatorID); err != nil {
		return models.Conversation{}, nil, err
	}

	for _, id := range ids {
		role := models.RoleMember
		if id == creatorID {
			role = models.RoleAdmin
		}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO participants (conversation_id, user_id, role) VALUES ($1, $2, $3)`,
			conv.ID, id, role); err != nil {
			return models.Conversation{}, nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return models.Conversation{}, nil, err
	}

	participants, err := r.ListParticipants(ctx, conv.ID)
	if err != nil {
		return models.Conversation{}, nil, err
	}
	return conv, participants, nil
}

// GetConversation fetches a conversation by id.
func (r *ConversationRepo) GetConversation(ctx context.Context, conversationID int) (models.Conversation, error) {
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv,
		`SELECT `+conversationColumns+` FROM conversations WHERE id=$1`, conversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, models.ErrConversationNotFound
	}
	return conv, err
}

// IsParticipant checks whether the user belongs to the conversation. Unknown
// conversations or users yield false, not an error.
func (r *ConversationRepo) IsParticipant(ctx context.Context, conversationID int, userID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM participants WHERE conversation_id=$1 AND user_id=$2)`,
		conversationID, userID)
	return exists, err
}

// ListParticipants returns the membership rows of a conversation.
func (r *ConversationRepo) ListParticipants(ctx context.Context, conversationID int) ([]models.Participant, error) {
	var participants []models.Participant
	err := r.db.SelectContext(ctx, &participants,
		`SELECT conversation_id, user_id, role, last_read_at, created_at
         FROM participants WHERE conversation_id=$1 ORDER BY user_id`, conversationID)
	return participants, err
}

type conversationListRow struct {
	ID            int                     `db:"id"`
	Kind          models.ConversationKind `db:"kind"`
	Name          string                  `db:"name"`
	AvatarURL     string                  `db:"avatar_url"`
	PartnerID     sql.NullInt64           `db:"partner_id"`
	LastReadAt    sql.NullTime            `db:"last_read_at"`
	UpdatedAt     time.Time               `db:"updated_at"`
	LastMessageID sql.NullInt64           `db:"last_message_id"`
	LastSenderID  sql.NullInt64           `db:"last_sender_id"`
	LastContent   sql.NullString          `db:"last_content"`
	LastCreatedAt sql.NullTime            `db:"last_created_at"`
}

// ListForUser returns every conversation the user participates in, most
// recently active first, with the latest message attached in the same query so
// rendering a conversation list needs no second round trip.
func (r *ConversationRepo) ListForUser(ctx context.Context, userID int) ([]models.ConversationSummary, error) {
	query := `SELECT c.id, c.kind, COALESCE(c.name, '') AS name, COALESCE(c.avatar_url, '') AS avatar_url,
            CASE WHEN c.kind = 'one_on_one' THEN
                (SELECT p2.user_id FROM participants p2 WHERE p2.conversation_id = c.id AND p2.user_id <> $1)
            END AS partner_id,
            p.last_read_at,
            c.updated_at,
            m.id AS last_message_id, m.sender_id AS last_sender_id,
            m.content AS last_content, m.created_at AS last_created_at
        FROM conversations c
        INNER JOIN participants p ON p.conversation_id = c.id AND p.user_id = $1
        LEFT JOIN LATERAL (
            SELECT id, sender_id, content, created_at FROM messages
            WHERE conversation_id = c.id
            ORDER BY created_at DESC, id DESC
            LIMIT 1
        ) m ON TRUE
        ORDER BY c.updated_at DESC, c.id DESC`

	var rows []conversationListRow
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, err
	}

	summaries := make([]models.ConversationSummary, 0, len(rows))
	for _, row := range rows {
		summary := models.ConversationSummary{
			ID:        row.ID,
			Kind:      row.Kind,
			Name:      row.Name,
			AvatarURL: row.AvatarURL,
			UpdatedAt: row.UpdatedAt,
		}
		if row.PartnerID.Valid {
			summary.PartnerID = int(row.PartnerID.Int64)
		}
		if row.LastReadAt.Valid {
			t := row.LastReadAt.Time
			summary.LastReadAt = &t
		}
		if row.LastMessageID.Valid {
			summary.LastMessage = &models.MessagePreview{
				MessageID: int(row.LastMessageID.Int64),
				SenderID:  int(row.LastSenderID.Int64),
				Content:   row.LastContent.String,
				CreatedAt: row.LastCreatedAt.Time,
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (r *ConversationRepo) getWithParticipants(ctx context.Context, conversationID int) (models.Conversation, []models.Participant, error) {
	conv, err := r.GetConversation(ctx, conversationID)
	if err != nil {
		return models.Conversation{}, nil, err
	}
	participants, err := r.ListParticipants(ctx, conversationID)
	if err != nil {
		return models.Conversation{}, nil, err
	}
	return conv, participants, nil
}

func orderPair(a, b int) (int, int) {
	if a < b {
		return a, b
	}
	return b, a
}
