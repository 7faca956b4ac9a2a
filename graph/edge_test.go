package graph

import (
	"context"
	"errors"
	"testing"
)

func newTestEdge(keys Keys) *Edge {
	sender := NewPassthrough()
	sender.name = "a"
	receiver := NewPassthrough()
	receiver.name = "b"
	return newEdge(sender, receiver, keys)
}

func TestEdgeSendReceive(t *testing.T) {
	ctx := context.Background()

	t.Run("buffers the whole message without keys", func(t *testing.T) {
		e := newTestEdge(nil)
		if err := e.Send(ctx, Message{"x": 1, "y": 2}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !e.IsCongested() {
			t.Error("expected edge to be congested after send")
		}
		msg, err := e.Receive(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(msg) != 2 || msg["x"] != 1 || msg["y"] != 2 {
			t.Errorf("expected {x:1 y:2}, got %v", msg)
		}
		if e.IsCongested() {
			t.Error("expected edge to be drained after receive")
		}
	})

	t.Run("projects declared keys", func(t *testing.T) {
		e := newTestEdge(KeyList("x"))
		if err := e.Send(ctx, Message{"x": 1, "y": 2}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		msg, _ := e.Receive(ctx)
		if len(msg) != 1 || msg["x"] != 1 {
			t.Errorf("expected {x:1}, got %v", msg)
		}
	})

	t.Run("rejects a message missing a declared key", func(t *testing.T) {
		e := newTestEdge(KeyList("x", "z"))
		err := e.Send(ctx, Message{"x": 1})
		if !errors.Is(err, ErrMissingKey) {
			t.Fatalf("expected ErrMissingKey, got %v", err)
		}
		if e.IsCongested() {
			t.Error("expected failed send to leave the edge empty")
		}
	})

	t.Run("rejects a second send while congested", func(t *testing.T) {
		e := newTestEdge(nil)
		if err := e.Send(ctx, Message{"x": 1}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := e.Send(ctx, Message{"x": 2}); !errors.Is(err, ErrEdgeCongested) {
			t.Fatalf("expected ErrEdgeCongested, got %v", err)
		}
		msg, _ := e.Receive(ctx)
		if msg["x"] != 1 {
			t.Errorf("expected first message to survive, got %v", msg)
		}
	})

	t.Run("receive on an empty edge fails", func(t *testing.T) {
		e := newTestEdge(nil)
		if _, err := e.Receive(ctx); !errors.Is(err, ErrEdgeEmpty) {
			t.Errorf("expected ErrEdgeEmpty, got %v", err)
		}
	})

	t.Run("send does not alias the sender's message", func(t *testing.T) {
		e := newTestEdge(nil)
		in := Message{"x": 1}
		_ = e.Send(ctx, in)
		in["x"] = 99
		msg, _ := e.Receive(ctx)
		if msg["x"] != 1 {
			t.Errorf("expected 1, got %v", msg["x"])
		}
	})
}

func TestEdgeGate(t *testing.T) {
	ctx := context.Background()
	e := newTestEdge(nil)

	if e.Gate() != Open {
		t.Fatalf("expected new edge to be open, got %v", e.Gate())
	}

	_ = e.Send(ctx, Message{"x": 1})
	e.Close()
	if e.Gate() != Closed {
		t.Errorf("expected closed, got %v", e.Gate())
	}
	if !e.IsCongested() {
		t.Error("expected close to leave the buffer untouched")
	}

	e.Open()
	if e.Gate() != Open || !e.IsCongested() {
		t.Error("expected open to leave the buffer untouched")
	}

	e.Close()
	e.Reset()
	if e.Gate() != Open {
		t.Errorf("expected reset to reopen the gate, got %v", e.Gate())
	}
	if e.IsCongested() {
		t.Error("expected reset to clear the buffer")
	}
}

func TestEdgeSendReopensGate(t *testing.T) {
	e := newTestEdge(nil)
	e.Close()
	if err := e.Send(context.Background(), Message{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Gate() != Open {
		t.Errorf("expected send to open the gate, got %v", e.Gate())
	}
}

func TestEdgeName(t *testing.T) {
	e := newTestEdge(nil)
	if got := e.Name(); got != "a->b" {
		t.Errorf("expected a->b, got %q", got)
	}
}
