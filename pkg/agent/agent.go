// Package agent implements the conversational agent invoked once per chat turn.
//
// The agent keeps its own memory per session: each successful invocation
// records the input and the reply, and later invocations for the same
// session replay that history to the model.
package agent

import (
	"context"
	"fmt"
	"time"

	"agent-chat-go/pkg/llm"
)

// Agent answers free text for a session.
type Agent interface {
	// Invoke returns the agent's reply. An empty string means the agent produced no output.
	Invoke(ctx context.Context, input, sessionID string) (string, error)
	// Forget drops whatever the agent remembers about sessionID.
	Forget(ctx context.Context, sessionID string) error
}

// Entry is one remembered message.
type Entry struct {
	Role      string    `json:"role"` // "user" 或 "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Memory stores per-session history.
type Memory interface {
	History(ctx context.Context, sessionID string) ([]Entry, error)
	Append(ctx context.Context, sessionID string, entries ...Entry) error
	Clear(ctx context.Context, sessionID string) error
}

// MemoryAgent wraps an LLM with per-session memory.
type MemoryAgent struct {
	llmClient    llm.Client
	memory       Memory
	systemPrompt string
	now          func() time.Time
}

// NewMemoryAgent creates an agent that prefixes every conversation with systemPrompt.
func NewMemoryAgent(llmClient llm.Client, memory Memory, systemPrompt string) *MemoryAgent {
	return &MemoryAgent{
		llmClient:    llmClient,
		memory:       memory,
		systemPrompt: systemPrompt,
		now:          time.Now,
	}
}

// Invoke sends system prompt, remembered history and input to the model.
// History is only extended when the model call succeeds.
func (a *MemoryAgent) Invoke(ctx context.Context, input, sessionID string) (string, error) {
	history, err := a.memory.History(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("load memory: %w", err)
	}

	messages := make([]llm.Message, 0, len(history)+2)
	if a.systemPrompt != "" {
		messages = append(messages, llm.Message{Role: "system", Content: a.systemPrompt})
	}
	for _, e := range history {
		messages = append(messages, llm.Message{Role: e.Role, Content: e.Content})
	}
	messages = append(messages, llm.Message{Role: "user", Content: input})

	output, err := a.llmClient.Complete(ctx, messages)
	if err != nil {
		return "", err
	}

	now := a.now()
	err = a.memory.Append(ctx, sessionID,
		Entry{Role: "user", Content: input, Timestamp: now},
		Entry{Role: "assistant", Content: output, Timestamp: now},
	)
	if err != nil {
		return "", fmt.Errorf("save memory: %w", err)
	}
	return output, nil
}

func (a *MemoryAgent) Forget(ctx context.Context, sessionID string) error {
	return a.memory.Clear(ctx, sessionID)
}
