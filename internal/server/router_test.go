package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"agent-chat-go/internal/config"
	"agent-chat-go/internal/model"
	"agent-chat-go/internal/repository"
	"agent-chat-go/internal/service"
	"agent-chat-go/pkg/database"
	"agent-chat-go/pkg/events"
	"agent-chat-go/pkg/oauth"
	"agent-chat-go/pkg/token"
)

type echoAgent struct {
	err error
}

func (a *echoAgent) Invoke(_ context.Context, input, _ string) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	return "echo: " + input, nil
}

func (a *echoAgent) Forget(context.Context, string) error { return nil }

type emailVerifier map[string]string

// Verify treats the code as a lookup key for an email.
func (v emailVerifier) Verify(_ context.Context, code, _ string) (*oauth.Identity, bool) {
	email, ok := v[code]
	if !ok {
		return nil, false
	}
	return &oauth.Identity{Email: email, Name: email}, true
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
	db     *gorm.DB
	tokens *token.Manager
	agent  *echoAgent
}

func newTestServer(t *testing.T) *testServer {
	gin.SetMode(gin.TestMode)
	db, err := database.Open(config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { database.Close(db) })

	tokens := token.NewManager("test-secret", time.Hour)
	agent := &echoAgent{}
	users := repository.NewUserRepository(db)
	chats := repository.NewChatRepository(db)
	messages := repository.NewMessageRepository(db)
	verifier := emailVerifier{"alice-code": "alice@x.io", "bob-code": "bob@x.io"}

	router := NewRouter(RouterConfig{
		AllowedOrigins: []string{"*"},
		AuthService:    service.NewAuthService(users, tokens, verifier),
		ChatService:    service.NewChatService(chats, messages, agent, events.Discard),
		TurnService:    service.NewTurnService(chats, messages, agent, events.Discard, config.ChatConfig{DefaultTitle: "Chat Title"}, time.Second),
	})
	return &testServer{t: t, router: router, db: db, tokens: tokens, agent: agent}
}

func (s *testServer) do(method, path, bearer string, body interface{}) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(s.t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(code string) string {
	rec := s.do(http.MethodPost, "/auth/callback", "", map[string]string{"code": code, "state": "s"})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(s.t, "bearer", out.TokenType)
	return out.AccessToken
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAuthCallback(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/auth/callback", "", map[string]string{"code": "", "state": "s"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/auth/callback", "", map[string]string{"code": "c"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/auth/callback", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/auth/callback", "", map[string]string{"code": "unknown", "state": "s"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	first := s.login("alice-code")
	rec = s.do(http.MethodGet, "/users/me", first, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice@x.io", decode[model.User](t, rec).Email)

	second := s.login("alice-code")
	id1, err := s.tokens.Validate(first)
	require.NoError(t, err)
	id2, err := s.tokens.Validate(second)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
}

func TestAuthenticationRequired(t *testing.T) {
	s := newTestServer(t)
	alice := s.login("alice-code")
	id, err := s.tokens.Validate(alice)
	require.NoError(t, err)

	expired, err := token.NewManager("test-secret", -time.Minute).Issue(id)
	require.NoError(t, err)
	forged, err := token.NewManager("other-secret", time.Hour).Issue(id)
	require.NoError(t, err)

	for _, bearer := range []string{"", expired, forged, "not-a-jwt"} {
		rec := s.do(http.MethodGet, "/chats", bearer, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	// valid signature, but the user is gone
	require.NoError(t, s.db.Delete(&model.User{}, id).Error)
	rec := s.do(http.MethodGet, "/chats", alice, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestNewChatScenario(t *testing.T) {
	s := newTestServer(t)
	alice := s.login("alice-code")

	rec := s.do(http.MethodPost, "/chats/new", alice, map[string]string{"content": "hi"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode[struct {
		Chat    model.Chat    `json:"chat"`
		Message model.Message `json:"message"`
		Title   string        `json:"title"`
	}](t, rec)
	assert.Equal(t, "Chat Title", out.Title)
	assert.Equal(t, "Chat Title", out.Chat.Title)
	assert.Equal(t, model.SenderAssistant, out.Message.Sender)
	assert.Equal(t, "echo: hi", out.Message.Content)

	rec = s.do(http.MethodGet, "/chats/"+strconv.Itoa(int(out.Chat.ID))+"/messages", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	msgs := decode[[]model.Message](t, rec)
	require.Len(t, msgs, 2)
	assert.Equal(t, model.SenderUser, msgs[0].Sender)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.Equal(t, out.Message.ID, msgs[1].ID)
}

func TestChatLifecycle(t *testing.T) {
	s := newTestServer(t)
	alice := s.login("alice-code")

	rec := s.do(http.MethodPost, "/chats", alice, map[string]string{"title": "groceries"})
	require.Equal(t, http.StatusOK, rec.Code)
	chat := decode[model.Chat](t, rec)
	base := "/chats/" + strconv.Itoa(int(chat.ID))

	rec = s.do(http.MethodPost, "/chats", alice, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, base, alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "groceries", decode[model.Chat](t, rec).Title)

	rec = s.do(http.MethodPost, base+"/messages", alice, map[string]string{"content": "milk"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "echo: milk", decode[model.Message](t, rec).Content)

	rec = s.do(http.MethodPost, base+"/messages", alice, map[string]string{"content": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/chats", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Chat](t, rec), 1)

	rec = s.do(http.MethodDelete, base, alice, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = s.do(http.MethodGet, base+"/messages", alice, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.do(http.MethodDelete, base, alice, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var left int64
	require.NoError(t, s.db.Model(&model.Message{}).Where("chat_id = ?", chat.ID).Count(&left).Error)
	assert.Zero(t, left)
}

func TestForeignChatIsNotFound(t *testing.T) {
	s := newTestServer(t)
	alice := s.login("alice-code")
	bob := s.login("bob-code")

	rec := s.do(http.MethodPost, "/chats", bob, map[string]string{"title": "bob's"})
	require.Equal(t, http.StatusOK, rec.Code)
	base := "/chats/" + strconv.Itoa(int(decode[model.Chat](t, rec).ID))

	for _, tc := range []struct {
		method, path string
		body         interface{}
	}{
		{http.MethodGet, base, nil},
		{http.MethodGet, base + "/messages", nil},
		{http.MethodPost, base + "/messages", map[string]string{"content": "hi"}},
		{http.MethodDelete, base, nil},
		{http.MethodGet, "/chats/abc", nil},
		{http.MethodGet, "/chats/99999", nil},
	} {
		rec := s.do(tc.method, tc.path, alice, tc.body)
		assert.Equal(t, http.StatusNotFound, rec.Code, tc.method+" "+tc.path)
	}

	rec = s.do(http.MethodGet, "/chats", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]model.Chat](t, rec))

	rec = s.do(http.MethodGet, base, bob, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAgentFailureReturnsBadGateway(t *testing.T) {
	s := newTestServer(t)
	alice := s.login("alice-code")
	s.agent.err = errors.New("model exploded: secret internals")

	rec := s.do(http.MethodPost, "/chats/new", alice, map[string]string{"content": "hi"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret internals")

	var msgs []model.Message
	require.NoError(t, s.db.Find(&msgs).Error)
	require.Len(t, msgs, 1)
	assert.Equal(t, model.SenderUser, msgs[0].Sender)
	assert.Equal(t, "hi", msgs[0].Content)
}
