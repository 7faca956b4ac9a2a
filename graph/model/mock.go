package model

import (
	"context"
	"sync"
)

// MockChatModel is a scripted ChatModel for tests.
//
// Responses are returned in order; once exhausted the last one repeats.
// When Err is set every call fails with it. Every call is recorded in Calls.
//
//	m := &model.MockChatModel{Responses: []model.ChatOut{{Text: "CONTINUE"}, {Text: "TERMINATE"}}}
type MockChatModel struct {
	Responses []ChatOut
	Err       error
	Calls     []MockChatCall

	mu   sync.Mutex
	next int
}

// MockChatCall records the arguments of one Chat call.
type MockChatCall struct {
	Messages []Message
	Tools    []ToolSpec
}

// Chat records the call and returns the next scripted response.
func (m *MockChatModel) Chat(ctx context.Context, messages []Message, tools []ToolSpec) (ChatOut, error) {
	if err := ctx.Err(); err != nil {
		return ChatOut{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, MockChatCall{Messages: messages, Tools: tools})
	if m.Err != nil {
		return ChatOut{}, m.Err
	}
	if len(m.Responses) == 0 {
		return ChatOut{}, nil
	}
	out := m.Responses[min(m.next, len(m.Responses)-1)]
	if m.next < len(m.Responses) {
		m.next++
	}
	return out, nil
}

// CallCount returns how many times Chat was called.
func (m *MockChatModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// Reset clears recorded calls and rewinds the script.
func (m *MockChatModel) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
	m.next = 0
}
