package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/models"
	"messaging-service/internal/telemetry"
)

const (
	defaultPageLimit = 50
)

// MessageHandler manages message endpoints within a conversation.
type MessageHandler struct {
	service ConversationService
	audit   *telemetry.AuditEmitter
}

// NewMessageHandler constructs a MessageHandler.
func NewMessageHandler(service ConversationService, audit *telemetry.AuditEmitter) *MessageHandler {
	return &MessageHandler{service: service, audit: audit}
}

// GetMessages returns one page of a conversation, newest first, and advances
// the caller's read watermark.
func (h *MessageHandler) GetMessages(c *gin.Context) {
	conversationID, err := strconv.Atoi(c.Param("conversation_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	limit, offset, ok := parsePagination(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	page, err := h.service.GetMessages(c.Request.Context(), userID, conversationID, limit, offset)
	if err != nil {
		respondError(c, err, "failed to load messages")
		return
	}

	c.JSON(http.StatusOK, page)
}

// PostMessage appends a message to the conversation.
func (h *MessageHandler) PostMessage(c *gin.Context) {
	conversationID, err := strconv.Atoi(c.Param("conversation_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		emitAudit(h.audit, c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	msg, err := h.service.SendMessage(c.Request.Context(), userID, conversationID, req.Content)
	if err != nil {
		emitAudit(h.audit, c, "ERROR", "message rejected")
		respondError(c, err, "failed to store message")
		return
	}

	emitAudit(h.audit, c, "INFO", "message sent")
	c.JSON(http.StatusCreated, msg)
}

func parsePagination(c *gin.Context) (int, int, bool) {
	limit := defaultPageLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": models.ErrInvalidLimit.Error()})
			return 0, 0, false
		}
		limit = parsed
	}

	offset := 0
	if raw := c.Query("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": models.ErrInvalidOffset.Error()})
			return 0, 0, false
		}
		offset = parsed
	}

	return limit, offset, true
}
