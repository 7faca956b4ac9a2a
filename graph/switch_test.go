package graph

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

// countingNode counts forward calls.
type countingNode struct {
	Base
	calls int
}

func (c *countingNode) Forward(_ context.Context, in Message) (Message, error) {
	c.calls++
	return in.Clone(), nil
}

// branchGraph builds entry -> switch -> {left, right} -> exit.
func branchGraph(t *testing.T, route RouteFunc) (*Graph, *Switch, *countingNode, *countingNode) {
	t.Helper()
	g := NewGraph()
	sw := NewSwitch(route)
	left, right := &countingNode{}, &countingNode{}
	_, _ = g.AddNode("switch", sw)
	_, _ = g.AddNode("left", left)
	_, _ = g.AddNode("right", right)
	for _, pair := range [][2]string{{"entry", "switch"}, {"switch", "left"}, {"switch", "right"}, {"left", "exit"}, {"right", "exit"}} {
		if _, err := g.ConnectNames(pair[0], pair[1], nil); err != nil {
			t.Fatalf("connect %s->%s: %v", pair[0], pair[1], err)
		}
	}
	return g, sw, left, right
}

func TestSwitchSkipsUnselectedBranch(t *testing.T) {
	g, sw, left, right := branchGraph(t, RouteOn("kind", map[string]string{"l": "left", "r": "right"}, ""))

	out, err := g.Invoke(context.Background(), Message{"kind": "l", "v": 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(out, Message{"kind": "l", "v": 1}) {
		t.Errorf("expected input to pass through the left branch, got %v", out)
	}
	if left.calls != 1 {
		t.Errorf("expected left to run once, got %d", left.calls)
	}
	if right.calls != 0 {
		t.Errorf("expected right to be skipped, got %d calls", right.calls)
	}
	if right.Gate() != Closed {
		t.Errorf("expected right's gate to be closed, got %v", right.Gate())
	}
	if got := sw.Selected(); !reflect.DeepEqual(got, []string{"left"}) {
		t.Errorf("expected [left], got %v", got)
	}
}

func TestSwitchNothingSelectedClosesGraph(t *testing.T) {
	g, _, left, right := branchGraph(t, RouteOn("kind", map[string]string{"l": "left"}, ""))

	out, err := g.Invoke(context.Background(), Message{"kind": "other"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("expected empty output, got %v", out)
	}
	if left.calls+right.calls != 0 {
		t.Errorf("expected no branch to run, got left=%d right=%d", left.calls, right.calls)
	}
	if g.Gate() != Closed {
		t.Errorf("expected graph gate closed, got %v", g.Gate())
	}
}

func TestSwitchDispatch(t *testing.T) {
	ctx := context.Background()
	_, sw, _, _ := branchGraph(t, RouteOn("kind", map[string]string{"r": "right"}, "left"))

	if _, err := sw.Forward(ctx, Message{"kind": "r"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := sw.Dispatch(ctx, Message{"kind": "r"}, sw.OutEdges()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, e := range sw.OutEdges() {
		switch e.Receiver().Name() {
		case "right":
			if !e.IsCongested() || e.Gate() != Open {
				t.Errorf("expected switch->right to carry the message")
			}
		case "left":
			if e.IsCongested() || e.Gate() != Closed {
				t.Errorf("expected switch->left to be closed and empty")
			}
		}
	}
}

func TestSwitchRouteErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing route key", func(t *testing.T) {
		g, _, _, _ := branchGraph(t, RouteOn("kind", nil, "left"))
		_, err := g.Invoke(ctx, Message{})
		if !errors.Is(err, ErrMissingKey) {
			t.Errorf("expected ErrMissingKey, got %v", err)
		}
	})

	t.Run("unknown target", func(t *testing.T) {
		g, _, _, _ := branchGraph(t, func(context.Context, Message) ([]string, error) {
			return []string{"nowhere"}, nil
		})
		if _, err := g.Invoke(ctx, Message{}); err == nil {
			t.Error("expected error for a target that is not a successor")
		}
	})

	t.Run("fallback", func(t *testing.T) {
		route := RouteOn("kind", map[string]string{"r": "right"}, "left")
		got, err := route(ctx, Message{"kind": 42})
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(got, []string{"left"}) {
			t.Errorf("expected fallback [left], got %v", got)
		}
	})
}
