package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/nfrund/parley/internal/chat"
	"github.com/nfrund/parley/internal/database/sqlite"
	"github.com/nfrund/parley/internal/messages"
	"github.com/nfrund/parley/internal/middleware"
	"github.com/nfrund/parley/internal/presence"
	"github.com/nfrund/parley/internal/rooms"
	"github.com/nfrund/parley/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const userHeader = "X-User-ID"

type fakePresence struct{}

func (fakePresence) OnlineUsers() []string { return []string{"1"} }

func (fakePresence) GetPresence(userID string) (presence.Presence, bool) {
	if userID == "1" {
		return presence.Presence{UserID: "1", Status: presence.StatusOnline, Connections: 2}, true
	}
	return presence.Presence{}, false
}

type downDB struct{}

func (downDB) HealthCheck(context.Context) error { return errors.New("connection refused") }

type testAPI struct {
	e       *echo.Echo
	storage *sqlite.Storage
	manager *chat.Manager
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	storage := testutils.NewSQLiteStorage(t)
	testutils.SeedUsers(t, storage.Users, "1", "2", "3")

	registry := rooms.NewRegistry(storage.Rooms, storage.Users)
	store := messages.NewStore(storage.Messages, storage.Rooms, storage.Users)
	manager := chat.NewManager(nil)
	router := chat.NewRouter(store, registry, manager, nil)

	e := echo.New()
	e.Validator = NewValidator()
	e.HTTPErrorHandler = ErrorHandler
	e.Use(session.Middleware(sessions.NewCookieStore([]byte("test-secret"))))

	e.GET("/health", NewHealthHandler(storage, manager).Health)
	e.POST("/session", NewSessionHandler(storage.Users).Login)

	api := e.Group("/api", middleware.Identity(storage.Users, userHeader))
	roomHandler := NewRoomHandler(registry, storage.Users)
	api.POST("/rooms", roomHandler.CreateRoom)
	api.GET("/rooms", roomHandler.ListRooms)
	messageHandler := NewMessageHandler(store, registry, router)
	api.GET("/rooms/:id/messages", messageHandler.History)
	api.POST("/rooms/:id/messages", messageHandler.Send)
	api.GET("/messages/unread-count", messageHandler.UnreadCount)
	presenceHandler := NewPresenceHandler(fakePresence{})
	api.GET("/presence", presenceHandler.GetPresence)
	api.GET("/presence/:userID", presenceHandler.GetUserPresence)

	return &testAPI{e: e, storage: storage, manager: manager}
}

func (a *testAPI) do(t *testing.T, method, path, userID, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if userID != "" {
		req.Header.Set(userHeader, userID)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (a *testAPI) createRoom(t *testing.T, userID, other string) *RoomResponse {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/rooms", userID, `{"other_user_id":"`+other+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[*RoomResponse](t, rec)
}

func TestRooms(t *testing.T) {
	a := newTestAPI(t)

	room := a.createRoom(t, "1", "2")
	assert.Equal(t, "chat_1_2", room.Name)
	assert.Equal(t, "2", room.OtherUserID)
	assert.Equal(t, "2", room.OtherUsername)

	again := a.createRoom(t, "2", "1")
	assert.Equal(t, room.ID, again.ID)
	assert.Equal(t, "1", again.OtherUserID)

	t.Run("list", func(t *testing.T) {
		rec := a.do(t, http.MethodGet, "/api/rooms", "1", "")
		require.Equal(t, http.StatusOK, rec.Code)
		list := decode[[]*RoomResponse](t, rec)
		require.Len(t, list, 1)
		assert.Equal(t, room.ID, list[0].ID)

		rec = a.do(t, http.MethodGet, "/api/rooms", "3", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, decode[[]*RoomResponse](t, rec))
	})

	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			name   string
			body   string
			status int
			code   string
		}{
			{"self", `{"other_user_id":"1"}`, http.StatusBadRequest, "bad_request"},
			{"unknown user", `{"other_user_id":"mallory"}`, http.StatusNotFound, "not_found"},
			{"missing field", `{}`, http.StatusBadRequest, "bad_request"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rec := a.do(t, http.MethodPost, "/api/rooms", "1", tt.body)
				assert.Equal(t, tt.status, rec.Code)
				assert.Equal(t, tt.code, decode[ErrorResponse](t, rec).Code)
			})
		}
	})
}

func TestMessages_SendHistoryAndUnread(t *testing.T) {
	a := newTestAPI(t)
	room := a.createRoom(t, "1", "2")
	path := "/api/rooms/" + room.ID + "/messages"

	rec := a.do(t, http.MethodPost, path, "1", `{"message":"  hello  "}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sent := decode[MessageResponse](t, rec)
	assert.Equal(t, "hello", sent.Message)
	assert.Equal(t, "1", sent.SenderID)
	assert.NotEmpty(t, sent.MessageID)

	rec = a.do(t, http.MethodGet, "/api/messages/unread-count", "2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[UnreadResponse](t, rec).UnreadCount)

	rec = a.do(t, http.MethodGet, path, "2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[HistoryResponse](t, rec)
	require.Len(t, page.Messages, 1)
	assert.Equal(t, sent.MessageID, page.Messages[0].MessageID)
	assert.Equal(t, 1, page.MarkedRead)
	assert.Empty(t, page.NextBefore)

	rec = a.do(t, http.MethodGet, "/api/messages/unread-count", "2", "")
	assert.Equal(t, 0, decode[UnreadResponse](t, rec).UnreadCount)
}

func TestMessages_HistoryPaging(t *testing.T) {
	a := newTestAPI(t)
	room := a.createRoom(t, "1", "2")
	path := "/api/rooms/" + room.ID + "/messages"

	for _, m := range []string{"one", "two", "three"} {
		rec := a.do(t, http.MethodPost, path, "1", `{"message":"`+m+`"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := a.do(t, http.MethodGet, path+"?limit=2", "1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[HistoryResponse](t, rec)
	require.Len(t, page.Messages, 2)
	assert.Equal(t, "two", page.Messages[0].Message)
	assert.Equal(t, "three", page.Messages[1].Message)
	require.NotEmpty(t, page.NextBefore)

	rec = a.do(t, http.MethodGet, path+"?limit=2&before="+page.NextBefore, "1", "")
	page = decode[HistoryResponse](t, rec)
	require.Len(t, page.Messages, 1)
	assert.Equal(t, "one", page.Messages[0].Message)
	assert.Empty(t, page.NextBefore)
}

func TestMessages_Errors(t *testing.T) {
	a := newTestAPI(t)
	room := a.createRoom(t, "1", "2")
	path := "/api/rooms/" + room.ID + "/messages"

	tests := []struct {
		name   string
		method string
		path   string
		userID string
		body   string
		status int
	}{
		{"outsider reads", http.MethodGet, path, "3", "", http.StatusForbidden},
		{"outsider sends", http.MethodPost, path, "3", `{"message":"hi"}`, http.StatusForbidden},
		{"blank message", http.MethodPost, path, "1", `{"message":"   "}`, http.StatusBadRequest},
		{"missing message", http.MethodPost, path, "1", `{}`, http.StatusBadRequest},
		{"unknown room", http.MethodGet, "/api/rooms/missing/messages", "1", "", http.StatusNotFound},
		{"anonymous", http.MethodGet, path, "", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := a.do(t, tt.method, tt.path, tt.userID, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestPresenceEndpoints(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodGet, "/api/presence", "2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, float64(1), body["count"])

	rec = a.do(t, http.MethodGet, "/api/presence/1", "2", "")
	p := decode[presence.Presence](t, rec)
	assert.Equal(t, presence.StatusOnline, p.Status)
	assert.Equal(t, 2, p.Connections)

	rec = a.do(t, http.MethodGet, "/api/presence/9", "2", "")
	p = decode[presence.Presence](t, rec)
	assert.Equal(t, "9", p.UserID)
	assert.Equal(t, presence.StatusOffline, p.Status)
}

func TestHealth(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(0), body["connections"])

	e := echo.New()
	e.GET("/health", NewHealthHandler(downDB{}, a.manager).Health)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSessionLogin(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPost, "/session", "", `{"user_id":"2"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodPost, "/session", "", `{"user_id":"nobody"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestErrorHandler_HidesInternalErrors(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler
	e.GET("/boom", func(echo.Context) error { return errors.New("secret driver detail") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret")
	assert.Equal(t, "internal", decode[ErrorResponse](t, rec).Code)
}

