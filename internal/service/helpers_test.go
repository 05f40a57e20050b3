package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"agent-chat-go/internal/config"
	"agent-chat-go/internal/model"
	"agent-chat-go/pkg/database"
	"agent-chat-go/pkg/events"
	"agent-chat-go/pkg/oauth"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { database.Close(db) })
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email string) *model.User {
	t.Helper()
	u := &model.User{Email: email, Name: email}
	require.NoError(t, db.Create(u).Error)
	return u
}

type fakeAgent struct {
	mu        sync.Mutex
	reply     string
	err       error
	block     bool
	inputs    []string
	sessions  []string
	forgotten []string
}

func (a *fakeAgent) Invoke(ctx context.Context, input, sessionID string) (string, error) {
	a.mu.Lock()
	a.inputs = append(a.inputs, input)
	a.sessions = append(a.sessions, sessionID)
	block, reply, err := a.block, a.reply, a.err
	a.mu.Unlock()

	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return reply, err
}

func (a *fakeAgent) Forget(_ context.Context, sessionID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.forgotten = append(a.forgotten, sessionID)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.ChatEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e events.ChatEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeVerifier struct {
	identity *oauth.Identity
	calls    int
}

func (v *fakeVerifier) Verify(_ context.Context, _, _ string) (*oauth.Identity, bool) {
	v.calls++
	if v.identity == nil {
		return nil, false
	}
	id := *v.identity
	return &id, true
}
