package tool

import (
	"context"
	"maps"
	"sync"
)

// MockTool is a scripted Tool for tests. Responses are returned in order
// and the last one repeats; Err fails every call.
type MockTool struct {
	ToolName  string
	Responses []map[string]any
	Err       error
	Calls     []map[string]any

	mu   sync.Mutex
	next int
}

// Name returns ToolName.
func (m *MockTool) Name() string { return m.ToolName }

// Call records input and returns the next scripted response.
func (m *MockTool) Call(ctx context.Context, input map[string]any) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, maps.Clone(input))
	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Responses) == 0 {
		return map[string]any{}, nil
	}
	out := m.Responses[min(m.next, len(m.Responses)-1)]
	if m.next < len(m.Responses) {
		m.next++
	}
	return maps.Clone(out), nil
}

// CallCount returns how many times Call was invoked.
func (m *MockTool) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
