// Package model defines the chat model abstraction used by model-backed
// nodes and by loops whose termination condition is judged by a model.
//
// Provider adapters live in sub-packages (anthropic, openai, google); tests
// use MockChatModel.
package model

import (
	"context"
	"errors"
	"strings"
)

// ChatModel is a conversational language model.
//
// Implementations must be safe for concurrent use and should honor ctx
// cancellation.
type ChatModel interface {
	// Chat sends messages (and optionally tool specs) and returns the
	// model's reply.
	Chat(ctx context.Context, messages []Message, tools []ToolSpec) (ChatOut, error)
}

// Message is one turn of a conversation.
type Message struct {
	// Role is RoleSystem, RoleUser or RoleAssistant.
	Role string

	// Content is the text of the turn.
	Content string
}

// Conversation roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ToolSpec describes a tool the model may call.
type ToolSpec struct {
	Name        string
	Description string

	// Schema is a JSON Schema object describing the tool input.
	Schema map[string]any
}

// ChatOut is a model reply.
type ChatOut struct {
	// Text is the concatenated text content.
	Text string

	// ToolCalls are the tool invocations the model requested.
	ToolCalls []ToolCall
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	Name  string
	Input map[string]any
}

// ErrNoAPIKey is returned by provider adapters constructed without a key.
var ErrNoAPIKey = errors.New("model: API key is required")

// Prompt builds a two-turn conversation. An empty system prompt is omitted.
func Prompt(system, user string) []Message {
	msgs := make([]Message, 0, 2)
	if system != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: system})
	}
	return append(msgs, Message{Role: RoleUser, Content: user})
}

// SplitSystem separates system turns, joined by blank lines, from the rest
// of the conversation. Providers with a dedicated system field use it.
func SplitSystem(messages []Message) (string, []Message) {
	var system []string
	rest := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(system, "\n\n"), rest
}
