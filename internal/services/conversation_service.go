package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"messaging-service/internal/directory"
	"messaging-service/internal/models"
	"messaging-service/internal/observability"
	"messaging-service/internal/repositories"
)

// ErrDirectoryUnavailable marks failures of the user-directory collaborator so
// handlers can report them as an upstream problem rather than a storage one.
var ErrDirectoryUnavailable = errors.New("user directory unavailable")

// Publisher is the notification sink for post-append events.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// ParticipantView is a membership row enriched with display fields.
type ParticipantView struct {
	models.Participant
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// ConversationView is a conversation with its enriched participant list.
type ConversationView struct {
	models.Conversation
	Participants []ParticipantView `json:"participants"`
}

// MessageView is a stored message enriched with the sender's display fields.
type MessageView struct {
	models.Message
	SenderName   string `json:"sender_name,omitempty"`
	SenderAvatar string `json:"sender_avatar,omitempty"`
}

// MessagePageView is one page of enriched messages, newest first.
type MessagePageView struct {
	Messages []MessageView `json:"messages"`
	Total    int           `json:"total"`
	HasMore  bool          `json:"has_more"`
}

// SummaryView is one row of a user's conversation list.
type SummaryView struct {
	ID          int                     `json:"id"`
	Kind        models.ConversationKind `json:"kind"`
	DisplayName string                  `json:"display_name"`
	AvatarURL   string                  `json:"avatar_url,omitempty"`
	UpdatedAt   time.Time               `json:"updated_at"`
	LastReadAt  *time.Time              `json:"last_read_at,omitempty"`
	LastMessage *LastMessageView        `json:"last_message,omitempty"`
}

// LastMessageView is the enriched preview of a conversation's latest message.
type LastMessageView struct {
	MessageID  int       `json:"message_id"`
	SenderID   int       `json:"sender_id"`
	SenderName string    `json:"sender_name,omitempty"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// MessageSentEvent is published after a successful append for downstream
// notification consumers.
type MessageSentEvent struct {
	MessageID      int       `json:"message_id"`
	ConversationID int       `json:"conversation_id"`
	SenderID       int       `json:"sender_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// ConversationService orchestrates the conversation store, message log and
// participant directory, and enforces that only participants read or write.
type ConversationService struct {
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
	directory     directory.Directory
	publisher     Publisher
	eventKey      string
	tracer        trace.Tracer
}

// NewConversationService constructs the orchestrator. publisher may be nil
// when event publishing is disabled.
func NewConversationService(
	conversations repositories.ConversationRepository,
	messages repositories.MessageRepository,
	dir directory.Directory,
	publisher Publisher,
	eventKey string,
) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		messages:      messages,
		directory:     dir,
		publisher:     publisher,
		eventKey:      eventKey,
		tracer:        otel.Tracer("messaging-service/services"),
	}
}

// StartDirect returns the caller's one-on-one conversation with the target
// user, creating it if needed. The response shape is identical whether the
// conversation was created or already existed.
func (s *ConversationService) StartDirect(ctx context.Context, callerID, otherID int) (ConversationView, error) {
	ctx, span := s.tracer.Start(ctx, "ConversationService.StartDirect")
	defer span.End()

	if callerID == otherID {
		return ConversationView{}, models.ErrSelfConversation
	}

	profiles, err := s.directory.Lookup(ctx, []int{callerID, otherID})
	if err != nil {
		return ConversationView{}, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	if _, ok := profiles[otherID]; !ok {
		return ConversationView{}, models.ErrUserNotFound
	}

	conv, participants, created, err := s.conversations.CreateOrGetDirect(ctx, callerID, otherID)
	if err != nil {
		return ConversationView{}, err
	}
	if created {
		observability.IncConversationsCreated(string(models.KindOneOnOne))
	}
	span.SetAttributes(attribute.Int("conversation.id", conv.ID), attribute.Bool("conversation.created", created))

	return buildConversationView(conv, participants, profiles), nil
}

// CreateGroup creates a group conversation with the caller as admin. Every
// member id must resolve to an existing user.
func (s *ConversationService) CreateGroup(ctx context.Context, callerID int, name string, memberIDs []int) (ConversationView, error) {
	ctx, span := s.tracer.Start(ctx, "ConversationService.CreateGroup")
	defer span.End()

	ids := append([]int{callerID}, memberIDs...)
	profiles, err := s.directory.Lookup(ctx, ids)
	if err != nil {
		return ConversationView{}, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	for _, id := range memberIDs {
		if _, ok := profiles[id]; !ok {
			return ConversationView{}, models.ErrUserNotFound
		}
	}

	conv, participants, err := s.conversations.CreateGroup(ctx, callerID, name, memberIDs)
	if err != nil {
		return ConversationView{}, err
	}
	observability.IncConversationsCreated(string(models.KindGroup))
	span.SetAttributes(attribute.Int("conversation.id", conv.ID))

	return buildConversationView(conv, participants, profiles), nil
}

// ListConversations returns the caller's conversations, most recently active
// first, with display names resolved through one batched directory call.
func (s *ConversationService) ListConversations(ctx context.Context, callerID int) ([]SummaryView, error) {
	ctx, span := s.tracer.Start(ctx, "ConversationService.ListConversations")
	defer span.End()

	summaries, err := s.conversations.ListForUser(ctx, callerID)
	if err != nil {
		return nil, err
	}

	ids := make([]int, 0, 2*len(summaries))
	for _, sum := range summaries {
		if sum.PartnerID != 0 {
			ids = append(ids, sum.PartnerID)
		}
		if sum.LastMessage != nil {
			ids = append(ids, sum.LastMessage.SenderID)
		}
	}
	profiles, err := s.directory.Lookup(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}

	views := make([]SummaryView, 0, len(summaries))
	for _, sum := range summaries {
		view := SummaryView{
			ID:          sum.ID,
			Kind:        sum.Kind,
			DisplayName: sum.Name,
			AvatarURL:   sum.AvatarURL,
			UpdatedAt:   sum.UpdatedAt,
			LastReadAt:  sum.LastReadAt,
		}
		if sum.Kind == models.KindOneOnOne {
			partner := profiles[sum.PartnerID]
			view.DisplayName = partner.DisplayName
			view.AvatarURL = partner.AvatarURL
		}
		if sum.LastMessage != nil {
			view.LastMessage = &LastMessageView{
				MessageID:  sum.LastMessage.MessageID,
				SenderID:   sum.LastMessage.SenderID,
				SenderName: profiles[sum.LastMessage.SenderID].DisplayName,
				Content:    sum.LastMessage.Content,
				CreatedAt:  sum.LastMessage.CreatedAt,
			}
		}
		views = append(views, view)
	}
	return views, nil
}

// SendMessage appends a message to the conversation after verifying the
// caller's membership, then publishes a notification event.
func (s *ConversationService) SendMessage(ctx context.Context, callerID, conversationID int, content string) (MessageView, error) {
	ctx, span := s.tracer.Start(ctx, "ConversationService.SendMessage")
	defer span.End()

	if err := s.authorize(ctx, conversationID, callerID); err != nil {
		return MessageView{}, err
	}

	msg, err := s.messages.CreateMessage(ctx, conversationID, callerID, content)
	if err != nil {
		return MessageView{}, err
	}
	observability.IncMessagesSent()
	span.SetAttributes(attribute.Int("message.id", msg.ID))

	view := MessageView{Message: msg}
	// The message is committed at this point; a directory hiccup must not turn
	// a successful send into an error.
	if profiles, err := s.directory.Lookup(ctx, []int{callerID}); err != nil {
		log.Printf("sender lookup failed for message %d: %v", msg.ID, err)
	} else if p, ok := profiles[callerID]; ok {
		view.SenderName = p.DisplayName
		view.SenderAvatar = p.AvatarURL
	}

	s.publishMessageSent(ctx, msg)
	return view, nil
}

// GetMessages returns one page of the conversation, newest first, and
// advances the caller's read watermark best-effort.
func (s *ConversationService) GetMessages(ctx context.Context, callerID, conversationID, limit, offset int) (MessagePageView, error) {
	ctx, span := s.tracer.Start(ctx, "ConversationService.GetMessages")
	defer span.End()

	if err := s.authorize(ctx, conversationID, callerID); err != nil {
		return MessagePageView{}, err
	}

	page, err := s.messages.ListMessages(ctx, conversationID, limit, offset)
	if err != nil {
		return MessagePageView{}, err
	}

	// Fire-and-forget: the watermark is an unread-count optimization, never a
	// reason to fail the read.
	if err := s.messages.MarkRead(ctx, conversationID, callerID); err != nil {
		log.Printf("mark read failed for conversation %d user %d: %v", conversationID, callerID, err)
	}

	senderIDs := make([]int, 0, len(page.Messages))
	for _, m := range page.Messages {
		senderIDs = append(senderIDs, m.SenderID)
	}
	profiles, err := s.directory.Lookup(ctx, senderIDs)
	if err != nil {
		return MessagePageView{}, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}

	views := make([]MessageView, 0, len(page.Messages))
	for _, m := range page.Messages {
		p := profiles[m.SenderID]
		views = append(views, MessageView{Message: m, SenderName: p.DisplayName, SenderAvatar: p.AvatarURL})
	}
	return MessagePageView{Messages: views, Total: page.Total, HasMore: page.HasMore}, nil
}

func (s *ConversationService) authorize(ctx context.Context, conversationID, callerID int) error {
	if _, err := s.conversations.GetConversation(ctx, conversationID); err != nil {
		return err
	}
	member, err := s.conversations.IsParticipant(ctx, conversationID, callerID)
	if err != nil {
		return err
	}
	if !member {
		return models.ErrNotParticipant
	}
	return nil
}

func (s *ConversationService) publishMessageSent(ctx context.Context, msg models.Message) {
	if s.publisher == nil {
		return
	}
	traceID := ""
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		traceID = sc.TraceID().String()
	}
	envelope := observability.EventEnvelope{
		EventType: "notification",
		EventName: "message.sent",
		Headers:   observability.BuildHeaders("", traceID),
		Payload: MessageSentEvent{
			MessageID:      msg.ID,
			ConversationID: msg.ConversationID,
			SenderID:       msg.SenderID,
			CreatedAt:      msg.CreatedAt,
		},
	}
	if err := s.publisher.Publish(ctx, s.eventKey, envelope); err != nil {
		log.Printf("message.sent publish failed: %v", err)
	}
}

func buildConversationView(conv models.Conversation, participants []models.Participant, profiles map[int]directory.Profile) ConversationView {
	views := make([]ParticipantView, 0, len(participants))
	for _, p := range participants {
		profile := profiles[p.UserID]
		views = append(views, ParticipantView{
			Participant: p,
			DisplayName: profile.DisplayName,
			AvatarURL:   profile.AvatarURL,
		})
	}
	return ConversationView{Conversation: conv, Participants: views}
}
