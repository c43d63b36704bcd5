package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/nfrund/parley/internal/app"
	"github.com/nfrund/parley/internal/chat"
	"github.com/nfrund/parley/internal/config"
	"github.com/nfrund/parley/internal/domain"
	"github.com/nfrund/parley/internal/handlers"
	"github.com/nfrund/parley/internal/inbox"
	"github.com/nfrund/parley/internal/logging"
	"github.com/nfrund/parley/internal/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const userHeader = "X-User-ID"

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		ServerAddr:       "127.0.0.1:0",
		SessionSecret:    "test-secret",
		DevLogin:         true,
		TrustedHeader:    userHeader,
		StorageDriver:    config.DriverSQLite,
		SQLitePath:       filepath.Join(t.TempDir(), "parley.db"),
		HistoryLimit:     50,
		SendBuffer:       64,
		MaxMessageLength: 4000,
		ChatPolicy:       config.PolicyOpen,
		LogFormat:        "text",
		LogLevel:         "warn",
	}
}

func setupServer(t *testing.T, cfg *config.Config) (*server.Server, *httptest.Server) {
	t.Helper()

	logger := logging.New(cfg.LogFormat, cfg.LogLevel)
	root := app.NewContainer(cfg, logger)
	s, err := server.New(cfg, root, logger, server.AppModules()...)
	require.NoError(t, err)
	require.NoError(t, s.RegisterRoutes(context.Background()))

	ts := httptest.NewServer(s.E)
	t.Cleanup(func() {
		ts.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})

	for _, id := range []string{"1", "2", "3"} {
		_, err := s.Storage().Users.Create(context.Background(), &domain.User{ID: id, Username: "user" + id})
		require.NoError(t, err)
	}
	return s, ts
}

func request(t *testing.T, ts *httptest.Server, method, path, userID, body string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, ts.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set(userHeader, userID)
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestServer_HealthAndAuth(t *testing.T) {
	_, ts := setupServer(t, testConfig(t))

	resp := request(t, ts, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))

	resp = request(t, ts, http.MethodGet, "/api/rooms", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = request(t, ts, http.MethodGet, "/api/rooms", "1", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_DevLoginDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.DevLogin = false
	_, ts := setupServer(t, cfg)

	resp := request(t, ts, http.MethodPost, "/session", "", `{"user_id":"1"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_ChatEndToEnd(t *testing.T) {
	_, ts := setupServer(t, testConfig(t))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp := request(t, ts, http.MethodPost, "/api/rooms", "1", `{"other_user_id":"2"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var room handlers.RoomResponse
	require.NoError(t, jsonDecode(resp, &room))

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	dial := func(path, userID string) *websocket.Conn {
		h := http.Header{}
		h.Set(userHeader, userID)
		conn, _, err := websocket.Dial(ctx, wsURL+path, &websocket.DialOptions{HTTPHeader: h})
		require.NoError(t, err)
		t.Cleanup(func() { _ = conn.CloseNow() })
		return conn
	}

	bobInbox := dial("/ws/inbox", "2")
	alice := dial("/ws/chat/"+room.ID, "1")
	require.Eventually(t, func() bool {
		resp := request(t, ts, http.MethodGet, "/health", "", "")
		var body map[string]any
		return jsonDecode(resp, &body) == nil && body["connections"] == float64(2)
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, wsjson.Write(ctx, alice, chat.InboundMessage{Message: "hello", SenderID: "1"}))

	var echoed chat.OutboundMessage
	require.NoError(t, wsjson.Read(ctx, alice, &echoed))
	assert.Equal(t, "hello", echoed.Message)
	assert.Equal(t, "user1", echoed.SenderUsername)

	var note inbox.Notification
	require.NoError(t, wsjson.Read(ctx, bobInbox, &note))
	assert.Equal(t, room.ID, note.RoomID)
	assert.Equal(t, 1, note.UnreadCount)

	require.Eventually(t, func() bool {
		resp := request(t, ts, http.MethodGet, "/api/presence/1", "2", "")
		var body map[string]any
		return jsonDecode(resp, &body) == nil && body["status"] == "online"
	}, 2*time.Second, 20*time.Millisecond)
}

func jsonDecode(resp *http.Response, v any) error {
	return json.NewDecoder(resp.Body).Decode(v)
}
