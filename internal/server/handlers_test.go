package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/taskdeck/internal/agent"
	"github.com/soyeahso/taskdeck/internal/config"
	"github.com/soyeahso/taskdeck/internal/logging"
	"github.com/soyeahso/taskdeck/internal/store"
	"github.com/soyeahso/taskdeck/internal/tools"
)

func testHandler(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	log := logging.New(nil, "silent")

	db, err := store.Open(":memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	reg := tools.NewRegistry()
	require.NoError(t, tools.RegisterTaskTools(reg, store.NewTaskStore(db)))

	cfg := config.Config{}
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Chat.RateLimitPerMinute = 20
	cfg.Chat.HistoryLimit = 50

	chatAgent := agent.New(
		agent.Config{HistoryLimit: cfg.Chat.HistoryLimit},
		nil, // fallback-only
		reg,
		store.NewConversationStore(db),
		log,
	)

	s := New(cfg, db, reg, chatAgent, log)
	t.Cleanup(s.Close)
	mux := http.NewServeMux()
	s.registerRoutes(mux)
	return s, withMiddleware(mux, log, nil)
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var parsed map[string]any
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &parsed)
	}
	return rec, parsed
}

func registerUser(t *testing.T, h http.Handler, email string) string {
	t.Helper()
	rec, body := doJSON(t, h, "POST", "/api/auth/register", "", map[string]string{
		"email": email, "password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestHealth(t *testing.T) {
	_, h := testHandler(t)

	rec, body := doJSON(t, h, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRegisterAndLogin(t *testing.T) {
	_, h := testHandler(t)

	token := registerUser(t, h, "alice@example.com")

	rec, body := doJSON(t, h, "GET", "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice@example.com", body["email"])
	// The password hash never leaves the server.
	assert.NotContains(t, rec.Body.String(), "password")

	// Duplicate registration fails.
	rec, _ = doJSON(t, h, "POST", "/api/auth/register", "", map[string]string{
		"email": "alice@example.com", "password": "hunter2hunter2",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Short password rejected.
	rec, _ = doJSON(t, h, "POST", "/api/auth/register", "", map[string]string{
		"email": "bob@example.com", "password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Login with the right password.
	rec, body = doJSON(t, h, "POST", "/api/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "hunter2hunter2",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, body["token"])

	// Wrong password and unknown email get the same answer.
	rec, _ = doJSON(t, h, "POST", "/api/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec, _ = doJSON(t, h, "POST", "/api/auth/login", "", map[string]string{
		"email": "nobody@example.com", "password": "hunter2hunter2",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	_, h := testHandler(t)

	for _, path := range []string{"/api/tasks", "/api/conversations", "/api/tools", "/api/auth/me"} {
		rec, _ := doJSON(t, h, "GET", path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}

	rec, _ := doJSON(t, h, "GET", "/api/tasks", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTaskCRUD(t *testing.T) {
	_, h := testHandler(t)
	token := registerUser(t, h, "alice@example.com")

	rec, task := doJSON(t, h, "POST", "/api/tasks", token, map[string]string{
		"title": "Buy milk", "description": "2 liters",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, float64(1), task["id"])

	rec, body := doJSON(t, h, "GET", "/api/tasks", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["count"])

	rec, task = doJSON(t, h, "PUT", "/api/tasks/1", token, map[string]string{"title": "Buy oat milk"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Buy oat milk", task["title"])

	rec, task = doJSON(t, h, "POST", "/api/tasks/1/toggle", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, task["completed"])

	rec, body = doJSON(t, h, "GET", "/api/tasks?status=completed", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["count"])

	rec, _ = doJSON(t, h, "GET", "/api/tasks?status=bogus", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doJSON(t, h, "DELETE", "/api/tasks/1", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = doJSON(t, h, "GET", "/api/tasks/1", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTaskOwnerScoping(t *testing.T) {
	_, h := testHandler(t)
	alice := registerUser(t, h, "alice@example.com")
	bob := registerUser(t, h, "bob@example.com")

	rec, _ := doJSON(t, h, "POST", "/api/tasks", alice, map[string]string{"title": "Secret"})
	require.Equal(t, http.StatusCreated, rec.Code)

	// Bob can't see, change, or delete alice's task.
	rec, _ = doJSON(t, h, "GET", "/api/tasks/1", bob, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = doJSON(t, h, "DELETE", "/api/tasks/1", bob, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChatEndpoint(t *testing.T) {
	_, h := testHandler(t)
	token := registerUser(t, h, "alice@example.com")

	rec, body := doJSON(t, h, "POST", "/api/chat", token, map[string]any{
		"message": "create a task to buy milk",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "fallback", body["source"])
	assert.Contains(t, body["response"], "✓ I've created a new task")
	convID := body["conversationId"].(float64)
	require.NotZero(t, convID)

	// Continue the conversation and read it back.
	rec, body = doJSON(t, h, "POST", "/api/chat", token, map[string]any{
		"conversationId": convID, "message": "show my tasks",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body["response"], "buy milk")

	rec, body = doJSON(t, h, "GET", "/api/conversations", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["count"])

	rec, body = doJSON(t, h, "GET", "/api/conversations/1/messages", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(4), body["count"])

	// Validation errors map to 400.
	rec, _ = doJSON(t, h, "POST", "/api/chat", token, map[string]any{"message": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = doJSON(t, h, "POST", "/api/chat", token, map[string]any{"message": strings.Repeat("x", 2001)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Someone else's conversation is a 404.
	bob := registerUser(t, h, "bob@example.com")
	rec, _ = doJSON(t, h, "POST", "/api/chat", bob, map[string]any{
		"conversationId": convID, "message": "hello",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = doJSON(t, h, "DELETE", "/api/conversations/1", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestChatRateLimit(t *testing.T) {
	s, h := testHandler(t)
	s.chatLimiter.close()
	s.chatLimiter = newChatRateLimiter(2)
	t.Cleanup(s.chatLimiter.close)
	token := registerUser(t, h, "alice@example.com")

	for i := 0; i < 2; i++ {
		rec, _ := doJSON(t, h, "POST", "/api/chat", token, map[string]any{"message": "help"})
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec, _ := doJSON(t, h, "POST", "/api/chat", token, map[string]any{"message": "help"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// The limit is per owner.
	bob := registerUser(t, h, "bob@example.com")
	rec, _ = doJSON(t, h, "POST", "/api/chat", bob, map[string]any{"message": "help"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestToolsEndpoint(t *testing.T) {
	_, h := testHandler(t)
	token := registerUser(t, h, "alice@example.com")

	rec, body := doJSON(t, h, "GET", "/api/tools", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(5), body["count"])
	assert.NotContains(t, rec.Body.String(), "owner_id")
}

func TestChatWebSocket(t *testing.T) {
	_, h := testHandler(t)
	token := registerUser(t, h, "alice@example.com")

	srv := httptest.NewServer(h)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]any{"message": "create a task to buy milk"}))

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var frame wsFrame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "done", frame.Type)
	assert.Contains(t, frame.Response, "✓ I've created a new task")
	assert.Equal(t, "fallback", frame.Source)
	require.Len(t, frame.ToolCalls, 1)
	assert.Equal(t, "add_task", frame.ToolCalls[0].Tool)
}

func TestStatusWriterKeepsUpgradeInterfaces(t *testing.T) {
	// WebSocket upgrades hijack the connection through the logging
	// middleware's writer, so it must expose Hijacker and Flusher.
	var w http.ResponseWriter = &statusWriter{}
	_, ok := w.(http.Hijacker)
	assert.True(t, ok)
	_, ok = w.(http.Flusher)
	assert.True(t, ok)
}

func TestChatRateLimiterClose(t *testing.T) {
	rl := newChatRateLimiter(1)
	assert.True(t, rl.allow("alice"))

	rl.close()
	rl.close() // idempotent

	// allow still answers after close; only the cleanup goroutine stops.
	assert.False(t, rl.allow("alice"))
}

func TestChatWebSocketRejectsMissingToken(t *testing.T) {
	_, h := testHandler(t)

	srv := httptest.NewServer(h)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
