package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/models"
	"messaging-service/internal/services"
)

type serviceMock struct {
	mock.Mock
}

func (m *serviceMock) StartDirect(ctx context.Context, callerID, otherID int) (services.ConversationView, error) {
	args := m.Called(ctx, callerID, otherID)
	var view services.ConversationView
	if val := args.Get(0); val != nil {
		view = val.(services.ConversationView)
	}
	return view, args.Error(1)
}

func (m *serviceMock) CreateGroup(ctx context.Context, callerID int, name string, memberIDs []int) (services.ConversationView, error) {
	args := m.Called(ctx, callerID, name, memberIDs)
	var view services.ConversationView
	if val := args.Get(0); val != nil {
		view = val.(services.ConversationView)
	}
	return view, args.Error(1)
}

func (m *serviceMock) ListConversations(ctx context.Context, callerID int) ([]services.SummaryView, error) {
	args := m.Called(ctx, callerID)
	var views []services.SummaryView
	if val := args.Get(0); val != nil {
		views = val.([]services.SummaryView)
	}
	return views, args.Error(1)
}

func (m *serviceMock) SendMessage(ctx context.Context, callerID, conversationID int, content string) (services.MessageView, error) {
	args := m.Called(ctx, callerID, conversationID, content)
	var view services.MessageView
	if val := args.Get(0); val != nil {
		view = val.(services.MessageView)
	}
	return view, args.Error(1)
}

func (m *serviceMock) GetMessages(ctx context.Context, callerID, conversationID, limit, offset int) (services.MessagePageView, error) {
	args := m.Called(ctx, callerID, conversationID, limit, offset)
	var page services.MessagePageView
	if val := args.Get(0); val != nil {
		page = val.(services.MessagePageView)
	}
	return page, args.Error(1)
}

var _ ConversationService = (*serviceMock)(nil)

func setupRouter(service ConversationService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	conversationHandler := NewConversationHandler(service, nil)
	messageHandler := NewMessageHandler(service, nil)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	r.GET("/conversations", conversationHandler.ListConversations)
	r.POST("/conversations/direct", conversationHandler.StartDirect)
	r.POST("/conversations/group", conversationHandler.CreateGroup)
	r.GET("/conversations/:conversation_id/messages", messageHandler.GetMessages)
	r.POST("/conversations/:conversation_id/messages", messageHandler.PostMessage)
	return r
}

func TestListConversationsSuccess(t *testing.T) {
	service := new(serviceMock)
	router := setupRouter(service)

	service.On("ListConversations", mock.Anything, 1).
		Return([]services.SummaryView{{ID: 3, Kind: models.KindOneOnOne, DisplayName: "bob"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/conversations", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string][]services.SummaryView
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp["conversations"], 1)
	assert.Equal(t, "bob", resp["conversations"][0].DisplayName)
	service.AssertExpectations(t)
}

func TestListConversationsServiceError(t *testing.T) {
	service := new(serviceMock)
	router := setupRouter(service)

	service.On("ListConversations", mock.Anything, 1).
		Return(([]services.SummaryView)(nil), assert.AnError).Once()

	req := httptest.NewRequest(http.MethodGet, "/conversations", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	service.AssertExpectations(t)
}

func TestStartDirectSuccess(t *testing.T) {
	service := new(serviceMock)
	router := setupRouter(service)

	view := services.ConversationView{
		Conversation: models.Conversation{ID: 10, Kind: models.KindOneOnOne},
	}
	service.On("StartDirect", mock.Anything, 1, 2).Return(view, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/conversations/direct", bytes.NewBufferString(`{"user_id":2}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	service.AssertExpectations(t)
}

func TestStartDirectSelfConversation(t *testing.T) {
	service := new(serviceMock)
	router := setupRouter(service)

	service.On("StartDirect", mock.Anything, 1, 1).
		Return(services.ConversationView{}, models.ErrSelfConversation).Once()

	req := httptest.NewRequest(http.MethodPost, "/conversations/direct", bytes.NewBufferString(`{"user_id":1}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	service.AssertExpectations(t)
}

func TestStartDirectUserNotFound(t *testing.T) {
	service := new(serviceMock)
	router := setupRouter(service)

	service.On("StartDirect", mock.Anything, 1, 99).
		Return(services.ConversationView{}, models.ErrUserNotFound).Once()

	req := httptest.NewRequest(http.MethodPost, "/conversations/direct", bytes.NewBufferString(`{"user_id":99}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	service.AssertExpectations(t)
}

func TestStartDirectDirectoryUnavailable(t *testing.T) {
	service := new(serviceMock)
	router := setupRouter(service)

	service.On("StartDirect", mock.Anything, 1, 2).
		Return(services.ConversationView{}, services.ErrDirectoryUnavailable).Once()

	req := httptest.NewRequest(http.MethodPost, "/conversations/direct", bytes.NewBufferString(`{"user_id":2}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	service.AssertExpectations(t)
}

func TestStartDirectBadPayload(t *testing.T) {
	service := new(serviceMock)
	router := setupRouter(service)

	req := httptest.NewRequest(http.MethodPost, "/conversations/direct", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	service.AssertNotCalled(t, "StartDirect", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateGroupSuccess(t *testing.T) {
	service := new(serviceMock)
	router := setupRouter(service)

	view := services.ConversationView{
		Conversation: models.Conversation{ID: 5, Kind: models.KindGroup, Name: "team"},
	}
	service.On("CreateGroup", mock.Anything, 1, "team", []int{2, 3}).Return(view, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/conversations/group", bytes.NewBufferString(`{"name":"team","member_ids":[2,3]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	service.AssertExpectations(t)
}

func TestCreateGroupTooSmall(t *testing.T) {
	service := new(serviceMock)
	router := setupRouter(service)

	service.On("CreateGroup", mock.Anything, 1, "team", []int{1}).
		Return(services.ConversationView{}, models.ErrGroupTooSmall).Once()

	req := httptest.NewRequest(http.MethodPost, "/conversations/group", bytes.NewBufferString(`{"name":"team","member_ids":[1]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	service.AssertExpectations(t)
}

func TestCreateGroupMissingName(t *testing.T) {
	service := new(serviceMock)
	router := setupRouter(service)

	req := httptest.NewRequest(http.MethodPost, "/conversations/group", bytes.NewBufferString(`{"member_ids":[2,3]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	service.AssertNotCalled(t, "CreateGroup", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
