package graph

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/dshills/masf-go/graph/model"
	"github.com/dshills/masf-go/graph/tool"
)

func TestChatNodeForward(t *testing.T) {
	t.Run("input key", func(t *testing.T) {
		m := &model.MockChatModel{Responses: []model.ChatOut{{Text: "hi"}}}
		n := NewChatNode(m, "be nice", "q", "a")

		out, err := n.Forward(context.Background(), Message{"q": "hello", "other": 1})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(out, Message{"a": "hi"}) {
			t.Errorf("expected {a: hi}, got %v", out)
		}
		msgs := m.Calls[0].Messages
		if len(msgs) != 2 || msgs[0].Content != "be nice" || msgs[1].Content != "hello" {
			t.Errorf("expected system and user turns, got %+v", msgs)
		}
	})

	t.Run("whole message", func(t *testing.T) {
		m := &model.MockChatModel{Responses: []model.ChatOut{{Text: "ok"}}}
		n := NewChatNode(m, "", "", "")

		out, err := n.Forward(context.Background(), Message{"b": 2, "a": 1})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out["response"] != "ok" {
			t.Errorf("expected response ok, got %v", out)
		}
		user := m.Calls[0].Messages[0].Content
		if user != "a: 1\nb: 2\n" {
			t.Errorf("expected sorted key listing, got %q", user)
		}
	})

	t.Run("tool calls", func(t *testing.T) {
		weather := &tool.MockTool{ToolName: "weather", Responses: []map[string]any{{"temp": 21}}}
		m := &model.MockChatModel{Responses: []model.ChatOut{{
			Text:      "checking",
			ToolCalls: []model.ToolCall{{Name: "weather", Input: map[string]any{"city": "Oslo"}}},
		}}}
		n := NewChatNode(m, "", "q", "")
		n.Tools = []tool.Tool{weather}

		out, err := n.Forward(context.Background(), Message{"q": "weather?"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []any{map[string]any{"temp": 21}}
		if !reflect.DeepEqual(out["tool_results"], want) {
			t.Errorf("expected %v, got %v", want, out["tool_results"])
		}
		if len(m.Calls[0].Tools) != 1 || m.Calls[0].Tools[0].Name != "weather" {
			t.Errorf("expected the weather spec to be offered, got %+v", m.Calls[0].Tools)
		}
		if weather.Calls[0]["city"] != "Oslo" {
			t.Errorf("expected tool input city=Oslo, got %v", weather.Calls[0])
		}
	})

	t.Run("unknown tool", func(t *testing.T) {
		m := &model.MockChatModel{Responses: []model.ChatOut{{ToolCalls: []model.ToolCall{{Name: "missing"}}}}}
		_, err := NewChatNode(m, "", "", "").Forward(context.Background(), Message{})
		if err == nil || !strings.Contains(err.Error(), "missing") {
			t.Errorf("expected unknown tool error, got %v", err)
		}
	})

	t.Run("model error", func(t *testing.T) {
		boom := errors.New("rate limited")
		m := &model.MockChatModel{Err: boom}
		_, err := NewChatNode(m, "", "", "").Forward(context.Background(), Message{})
		if !errors.Is(err, boom) {
			t.Errorf("expected %v, got %v", boom, err)
		}
	})

	t.Run("no model", func(t *testing.T) {
		if _, err := NewChatNode(nil, "", "", "").Forward(context.Background(), Message{}); err == nil {
			t.Error("expected error without a model")
		}
	})
}

func TestToolNodeInGraph(t *testing.T) {
	echo := &tool.Func{ToolName: "echo", Fn: func(_ context.Context, in map[string]any) (map[string]any, error) {
		return map[string]any{"echo": in["x"]}, nil
	}}
	g := linearGraph(t, NewToolNode(echo), NewPassthrough())

	out, err := g.Invoke(context.Background(), Message{"x": 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(out, Message{"echo": 5}) {
		t.Errorf("expected {echo: 5}, got %v", out)
	}

	failing := &tool.MockTool{ToolName: "bad", Err: errors.New("down")}
	g = linearGraph(t, NewToolNode(failing), NewPassthrough())
	_, err = g.Invoke(context.Background(), Message{})
	var nerr *NodeError
	if !errors.As(err, &nerr) || nerr.NodeID != "root/a" {
		t.Errorf("expected node error from root/a, got %v", err)
	}
}
