package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-chat-go/pkg/llm"
)

type fakeLLM struct {
	reply string
	err   error
	calls [][]llm.Message
}

func (f *fakeLLM) Complete(_ context.Context, messages []llm.Message) (string, error) {
	f.calls = append(f.calls, messages)
	return f.reply, f.err
}

type mapMemory struct {
	sessions map[string][]Entry
}

func newMapMemory() *mapMemory {
	return &mapMemory{sessions: map[string][]Entry{}}
}

func (m *mapMemory) History(_ context.Context, sessionID string) ([]Entry, error) {
	return append([]Entry(nil), m.sessions[sessionID]...), nil
}

func (m *mapMemory) Append(_ context.Context, sessionID string, entries ...Entry) error {
	m.sessions[sessionID] = append(m.sessions[sessionID], entries...)
	return nil
}

func (m *mapMemory) Clear(_ context.Context, sessionID string) error {
	delete(m.sessions, sessionID)
	return nil
}

func TestInvokeReplaysSessionHistory(t *testing.T) {
	model := &fakeLLM{reply: "first"}
	mem := newMapMemory()
	a := NewMemoryAgent(model, mem, "be nice")
	ctx := context.Background()

	out, err := a.Invoke(ctx, "hi", "1")
	require.NoError(t, err)
	assert.Equal(t, "first", out)

	model.reply = "second"
	_, err = a.Invoke(ctx, "again", "1")
	require.NoError(t, err)

	require.Len(t, model.calls, 2)
	assert.Equal(t, []llm.Message{
		{Role: "system", Content: "be nice"},
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "first"},
		{Role: "user", Content: "again"},
	}, model.calls[1])

	// sessions are independent
	_, err = a.Invoke(ctx, "other", "2")
	require.NoError(t, err)
	assert.Len(t, model.calls[2], 2)
}

func TestInvokeFailureLeavesMemoryUntouched(t *testing.T) {
	model := &fakeLLM{err: errors.New("down")}
	mem := newMapMemory()
	a := NewMemoryAgent(model, mem, "")

	_, err := a.Invoke(context.Background(), "hi", "9")
	require.Error(t, err)
	assert.Empty(t, mem.sessions["9"])
}

func TestForget(t *testing.T) {
	mem := newMapMemory()
	a := NewMemoryAgent(&fakeLLM{reply: "x"}, mem, "")
	ctx := context.Background()

	_, err := a.Invoke(ctx, "hi", "3")
	require.NoError(t, err)
	require.NoError(t, a.Forget(ctx, "3"))
	assert.Empty(t, mem.sessions["3"])
}
