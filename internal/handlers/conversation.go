package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/models"
	"messaging-service/internal/services"
	"messaging-service/internal/telemetry"
)

// ConversationService is the orchestrator surface the handlers consume.
type ConversationService interface {
	StartDirect(ctx context.Context, callerID, otherID int) (services.ConversationView, error)
	CreateGroup(ctx context.Context, callerID int, name string, memberIDs []int) (services.ConversationView, error)
	ListConversations(ctx context.Context, callerID int) ([]services.SummaryView, error)
	SendMessage(ctx context.Context, callerID, conversationID int, content string) (services.MessageView, error)
	GetMessages(ctx context.Context, callerID, conversationID, limit, offset int) (services.MessagePageView, error)
}

// ConversationHandler manages conversation-level endpoints.
type ConversationHandler struct {
	service ConversationService
	audit   *telemetry.AuditEmitter
}

// NewConversationHandler constructs a ConversationHandler.
func NewConversationHandler(service ConversationService, audit *telemetry.AuditEmitter) *ConversationHandler {
	return &ConversationHandler{service: service, audit: audit}
}

// ListConversations returns the caller's conversations, most recent first.
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	userID := c.GetInt("userID")

	conversations, err := h.service.ListConversations(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "failed to load conversations")
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

// StartDirect creates or returns the one-on-one conversation with the target
// user. Both branches return the same shape.
func (h *ConversationHandler) StartDirect(c *gin.Context) {
	var req struct {
		UserID int `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	conv, err := h.service.StartDirect(c.Request.Context(), userID, req.UserID)
	if err != nil {
		h.emitAudit(c, "ERROR", "direct conversation rejected")
		respondError(c, err, "could not start conversation")
		return
	}

	h.emitAudit(c, "INFO", "direct conversation opened")
	c.JSON(http.StatusOK, conv)
}

// CreateGroup handles POST /conversations/group.
func (h *ConversationHandler) CreateGroup(c *gin.Context) {
	var req struct {
		Name      string `json:"name" binding:"required"`
		MemberIDs []int  `json:"member_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	conv, err := h.service.CreateGroup(c.Request.Context(), userID, req.Name, req.MemberIDs)
	if err != nil {
		h.emitAudit(c, "ERROR", "group creation failed")
		respondError(c, err, "could not create group")
		return
	}

	h.emitAudit(c, "INFO", "group conversation created")
	c.JSON(http.StatusCreated, conv)
}

// respondError maps domain errors onto the HTTP error taxonomy. Storage
// details are never leaked to clients.
func respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, models.ErrSelfConversation),
		errors.Is(err, models.ErrEmptyContent),
		errors.Is(err, models.ErrContentTooLong),
		errors.Is(err, models.ErrEmptyGroupName),
		errors.Is(err, models.ErrGroupTooSmall),
		errors.Is(err, models.ErrInvalidLimit),
		errors.Is(err, models.ErrInvalidOffset):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrNotParticipant):
		c.JSON(http.StatusForbidden, gin.H{"error": "not a conversation participant"})
	case errors.Is(err, models.ErrConversationNotFound),
		errors.Is(err, models.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrDirectoryUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to load user info"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

func (h *ConversationHandler) emitAudit(c *gin.Context, level, text string) {
	emitAudit(h.audit, c, level, text)
}
