package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/models"
	"messaging-service/internal/services"
)

func TestGetMessagesDefaults(t *testing.T) {
	service := new(serviceMock)
	router := setupRouter(service)

	page := services.MessagePageView{
		Messages: []services.MessageView{{Message: models.Message{ID: 4, Content: "hi"}, SenderName: "bob"}},
		Total:    1,
	}
	service.On("GetMessages", mock.Anything, 1, 7, defaultPageLimit, 0).Return(page, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/conversations/7/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp services.MessagePageView
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "bob", resp.Messages[0].SenderName)
	service.AssertExpectations(t)
}

func TestGetMessagesPaginationParams(t *testing.T) {
	service := new(serviceMock)
	router := setupRouter(service)

	service.On("GetMessages", mock.Anything, 1, 7, 10, 20).
		Return(services.MessagePageView{Messages: []services.MessageView{}, Total: 42, HasMore: true}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/conversations/7/messages?limit=10&offset=20", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	service.AssertExpectations(t)
}

func TestGetMessagesInvalidLimit(t *testing.T) {
	service := new(serviceMock)
	router := setupRouter(service)

	req := httptest.NewRequest(http.MethodGet, "/conversations/7/messages?limit=zero", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	service.AssertNotCalled(t, "GetMessages", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGetMessagesNegativeOffset(t *testing.T) {
	service := new(serviceMock)
	router := setupRouter(service)

	req := httptest.NewRequest(http.MethodGet, "/conversations/7/messages?offset=-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	service.AssertNotCalled(t, "GetMessages", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGetMessagesForbidden(t *testing.T) {
	service := new(serviceMock)
	router := setupRouter(service)

	service.On("GetMessages", mock.Anything, 1, 7, defaultPageLimit, 0).
		Return(services.MessagePageView{}, models.ErrNotParticipant).Once()

	req := httptest.NewRequest(http.MethodGet, "/conversations/7/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	service.AssertExpectations(t)
}

func TestGetMessagesBadConversationID(t *testing.T) {
	service := new(serviceMock)
	router := setupRouter(service)

	req := httptest.NewRequest(http.MethodGet, "/conversations/abc/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	service.AssertNotCalled(t, "GetMessages", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPostMessageSuccess(t *testing.T) {
	service := new(serviceMock)
	router := setupRouter(service)

	view := services.MessageView{Message: models.Message{ID: 9, ConversationID: 7, SenderID: 1, Content: "hello"}}
	service.On("SendMessage", mock.Anything, 1, 7, "hello").Return(view, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/conversations/7/messages", bytes.NewBufferString(`{"content":"hello"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp services.MessageView
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 9, resp.ID)
	service.AssertExpectations(t)
}

func TestPostMessageMissingContent(t *testing.T) {
	service := new(serviceMock)
	router := setupRouter(service)

	req := httptest.NewRequest(http.MethodPost, "/conversations/7/messages", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	service.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPostMessageContentTooLong(t *testing.T) {
	service := new(serviceMock)
	router := setupRouter(service)

	service.On("SendMessage", mock.Anything, 1, 7, "x").
		Return(services.MessageView{}, models.ErrContentTooLong).Once()

	req := httptest.NewRequest(http.MethodPost, "/conversations/7/messages", bytes.NewBufferString(`{"content":"x"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	service.AssertExpectations(t)
}

func TestPostMessageConversationNotFound(t *testing.T) {
	service := new(serviceMock)
	router := setupRouter(service)

	service.On("SendMessage", mock.Anything, 1, 404, "hi").
		Return(services.MessageView{}, models.ErrConversationNotFound).Once()

	req := httptest.NewRequest(http.MethodPost, "/conversations/404/messages", bytes.NewBufferString(`{"content":"hi"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	service.AssertExpectations(t)
}
