package graph

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/dshills/masf-go/graph/hook"
)

func addOne(key string) ForwardFunc {
	return func(_ context.Context, in Message) (Message, error) {
		return Message{key: in[key].(int) + 1}, nil
	}
}

func double(key string) ForwardFunc {
	return func(_ context.Context, in Message) (Message, error) {
		return Message{key: in[key].(int) * 2}, nil
	}
}

// linearGraph builds entry -> a -> b -> exit.
func linearGraph(t *testing.T, a, b Node, opts ...Option) *Graph {
	t.Helper()
	g := NewGraph(opts...)
	if _, err := g.AddNode("a", a); err != nil {
		t.Fatalf("add a: %v", err)
	}
	if _, err := g.AddNode("b", b); err != nil {
		t.Fatalf("add b: %v", err)
	}
	for _, pair := range [][2]string{{"entry", "a"}, {"a", "b"}, {"b", "exit"}} {
		if _, err := g.ConnectNames(pair[0], pair[1], nil); err != nil {
			t.Fatalf("connect %s->%s: %v", pair[0], pair[1], err)
		}
	}
	return g
}

func TestGraphInvokeLinear(t *testing.T) {
	g := linearGraph(t, NewFunc(addOne("x")), NewFunc(double("x")))

	out, err := g.Invoke(context.Background(), Message{"x": 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(out, Message{"x": 4}) {
		t.Errorf("expected {x:4}, got %v", out)
	}

	// A second invocation starts from a clean subgraph.
	out, err = g.Invoke(context.Background(), Message{"x": 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(out, Message{"x": 6}) {
		t.Errorf("expected {x:6}, got %v", out)
	}
}

func TestGraphEmptyOutputWhenExitUnreachable(t *testing.T) {
	g := NewGraph()
	a := NewPassthrough()
	if _, err := g.AddNode("a", a); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Connect(g.Entry(), a, nil); err != nil {
		t.Fatal(err)
	}

	out, err := g.Invoke(context.Background(), Message{"x": 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("expected empty output, got %v", out)
	}
}

func TestGraphFanInMerges(t *testing.T) {
	g := NewGraph()
	left := NewFunc(func(_ context.Context, in Message) (Message, error) {
		return Message{"items": []any{"left"}}, nil
	})
	right := NewFunc(func(_ context.Context, in Message) (Message, error) {
		return Message{"items": []any{"right"}}, nil
	})
	join := NewPassthrough()
	for name, n := range map[string]Node{"left": left, "right": right, "join": join} {
		if _, err := g.AddNode(name, n); err != nil {
			t.Fatal(err)
		}
	}
	for _, pair := range [][2]string{{"entry", "left"}, {"entry", "right"}, {"left", "join"}, {"right", "join"}, {"join", "exit"}} {
		if _, err := g.ConnectNames(pair[0], pair[1], nil); err != nil {
			t.Fatal(err)
		}
	}

	out, err := g.Invoke(context.Background(), Message{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	items, _ := out["items"].([]any)
	if len(items) != 2 {
		t.Fatalf("expected two merged items, got %v", out["items"])
	}
}

func TestGraphErrorsCarryNodePath(t *testing.T) {
	boom := errors.New("boom")
	g := linearGraph(t, NewPassthrough(), NewFunc(func(context.Context, Message) (Message, error) {
		return nil, boom
	}))

	_, err := g.Invoke(context.Background(), Message{"x": 1})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
	var nerr *NodeError
	if !errors.As(err, &nerr) {
		t.Fatalf("expected NodeError, got %T", err)
	}
	if nerr.NodeID != "root/b" {
		t.Errorf("expected NodeID root/b, got %q", nerr.NodeID)
	}
}

func TestGraphReceiveFailureReopensIncoming(t *testing.T) {
	g := NewGraph()
	a := NewPassthrough()
	if _, err := g.AddNode("a", a); err != nil {
		t.Fatal(err)
	}
	in, err := g.ConnectNames("entry", "a", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := g.ConnectNames("a", "exit", nil); err != nil {
		t.Fatal(err)
	}
	// Drain and close the edge just before a receives from it.
	in.Hooks().Register(hook.StageReceive.Before(), func(hook.Event) {
		in.Reset()
		in.Close()
	})

	_, err = g.Invoke(context.Background(), Message{"x": 1})
	if !errors.Is(err, ErrEdgeEmpty) {
		t.Fatalf("expected ErrEdgeEmpty, got %v", err)
	}
	var nerr *NodeError
	if !errors.As(err, &nerr) || nerr.NodeID != "root/a" {
		t.Errorf("expected NodeError from root/a, got %v", err)
	}
	if in.Gate() != Open {
		t.Errorf("expected incoming edge reopened after the failure, got %v", in.Gate())
	}
}

func TestGraphMissingEdgeKeyFails(t *testing.T) {
	g := NewGraph()
	a := NewPassthrough()
	if _, err := g.AddNode("a", a); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Connect(g.Entry(), a, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Connect(a, g.Exit(), KeyList("answer")); err != nil {
		t.Fatal(err)
	}

	_, err := g.Invoke(context.Background(), Message{"question": "?"})
	if !errors.Is(err, ErrMissingKey) {
		t.Errorf("expected ErrMissingKey, got %v", err)
	}
}

func TestGraphNested(t *testing.T) {
	inner := NewGraph()
	leaf := NewFunc(double("x"))
	if _, err := inner.AddNode("leaf", leaf); err != nil {
		t.Fatal(err)
	}
	if _, err := inner.ConnectNames("entry", "leaf", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := inner.ConnectNames("leaf", "exit", nil); err != nil {
		t.Fatal(err)
	}

	root := linearGraph(t, NewFunc(addOne("x")), inner)

	if got := leaf.Path(); got != "root/b/leaf" {
		t.Errorf("expected path root/b/leaf, got %q", got)
	}

	out, err := root.Invoke(context.Background(), Message{"x": 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(out, Message{"x": 4}) {
		t.Errorf("expected {x:4}, got %v", out)
	}
}

func TestGraphConstruction(t *testing.T) {
	t.Run("invalid names", func(t *testing.T) {
		g := NewGraph()
		for _, name := range []string{"", "has space", "a/b", "dot.ted"} {
			if _, err := g.AddNode(name, NewPassthrough()); !errors.Is(err, ErrInvalidName) {
				t.Errorf("name %q: expected ErrInvalidName, got %v", name, err)
			}
		}
		if _, err := g.AddNode("ok_name-1", NewPassthrough()); err != nil {
			t.Errorf("expected valid name to register, got %v", err)
		}
	})

	t.Run("reserved names", func(t *testing.T) {
		g := NewGraph()
		for _, name := range []string{"entry", "exit"} {
			if _, err := g.AddNode(name, NewPassthrough()); !errors.Is(err, ErrReservedName) {
				t.Errorf("name %q: expected ErrReservedName, got %v", name, err)
			}
		}
	})

	t.Run("nil node", func(t *testing.T) {
		g := NewGraph()
		if _, err := g.AddNode("a", nil); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("duplicates", func(t *testing.T) {
		g := NewGraph()
		a := NewPassthrough()
		if _, err := g.AddNode("a", a); err != nil {
			t.Fatal(err)
		}
		if n, err := g.AddNode("a", a); err != nil || n != a {
			t.Errorf("expected re-adding the same instance to be a no-op, got %v", err)
		}
		if _, err := g.AddNode("a", NewPassthrough()); !errors.Is(err, ErrDuplicateNode) {
			t.Errorf("expected ErrDuplicateNode for a new instance, got %v", err)
		}
		if _, err := g.AddNode("a2", a); !errors.Is(err, ErrDuplicateNode) {
			t.Errorf("expected ErrDuplicateNode for a second name, got %v", err)
		}
		if got := len(g.Nodes()); got != 1 {
			t.Errorf("expected 1 node, got %d", got)
		}
	})

	t.Run("foreign nodes", func(t *testing.T) {
		g1, g2 := NewGraph(), NewGraph()
		a := NewPassthrough()
		if _, err := g1.AddNode("a", a); err != nil {
			t.Fatal(err)
		}
		if _, err := g2.AddNode("a", a); !errors.Is(err, ErrForeignNode) {
			t.Errorf("expected ErrForeignNode, got %v", err)
		}
		b := NewPassthrough()
		if _, err := g2.AddNode("b", b); err != nil {
			t.Fatal(err)
		}
		if _, err := g2.Connect(a, b, nil); !errors.Is(err, ErrForeignNode) {
			t.Errorf("expected ErrForeignNode on connect, got %v", err)
		}
	})

	t.Run("graph inside itself", func(t *testing.T) {
		g := NewGraph()
		if _, err := g.AddNode("self", g); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("unregistered endpoints", func(t *testing.T) {
		g := NewGraph()
		a := NewPassthrough()
		if _, err := g.Connect(g.Entry(), a, nil); !errors.Is(err, ErrNodeNotFound) {
			t.Errorf("expected ErrNodeNotFound, got %v", err)
		}
		if _, err := g.ConnectNames("entry", "missing", nil); !errors.Is(err, ErrNodeNotFound) {
			t.Errorf("expected ErrNodeNotFound by name, got %v", err)
		}
	})

	t.Run("duplicate edges", func(t *testing.T) {
		g := NewGraph()
		a := NewPassthrough()
		_, _ = g.AddNode("a", a)
		if _, err := g.Connect(g.Entry(), a, nil); err != nil {
			t.Fatal(err)
		}
		if _, err := g.Connect(g.Entry(), a, KeyList("x")); !errors.Is(err, ErrDuplicateEdge) {
			t.Errorf("expected ErrDuplicateEdge, got %v", err)
		}
	})

	t.Run("cycles", func(t *testing.T) {
		g := NewGraph()
		a, b, c := NewPassthrough(), NewPassthrough(), NewPassthrough()
		_, _ = g.AddNode("a", a)
		_, _ = g.AddNode("b", b)
		_, _ = g.AddNode("c", c)
		if _, err := g.Connect(a, b, nil); err != nil {
			t.Fatal(err)
		}
		if _, err := g.Connect(b, c, nil); err != nil {
			t.Fatal(err)
		}
		if _, err := g.Connect(c, a, nil); !errors.Is(err, ErrCycle) {
			t.Errorf("expected ErrCycle, got %v", err)
		}
		if _, err := g.Connect(a, a, nil); !errors.Is(err, ErrCycle) {
			t.Errorf("expected ErrCycle for a self loop, got %v", err)
		}
		if got := len(g.Edges()); got != 2 {
			t.Errorf("expected rejected edges not to be added, got %d edges", got)
		}
	})

	t.Run("lookup and ports", func(t *testing.T) {
		g := NewGraph()
		a := NewPassthrough()
		_, _ = g.AddNode("a", a)
		if n, ok := g.Node("a"); !ok || n != a {
			t.Error("expected to find a")
		}
		if n, ok := g.Node("entry"); !ok || n != g.Entry() {
			t.Error("expected entry to resolve to the entry port")
		}
		if got := len(g.Ports()); got != 2 {
			t.Errorf("expected 2 ports, got %d", got)
		}
		if !a.IsBuilt() {
			t.Error("expected registered node to be built")
		}
	})
}

func TestEngineErrorMatching(t *testing.T) {
	err := newEngineError(CodeCycle, "a->b creates a cycle")
	if !errors.Is(err, ErrCycle) {
		t.Error("expected code match")
	}
	if errors.Is(err, ErrDuplicateEdge) {
		t.Error("expected different codes not to match")
	}
	if got := err.Error(); got != "CYCLE: a->b creates a cycle" {
		t.Errorf("expected code-prefixed message, got %q", got)
	}
}

func TestNodeErrorMessage(t *testing.T) {
	cause := errors.New("timeout")
	err := &NodeError{Message: "forward failed", NodeID: "root/a", Cause: cause}
	if got := err.Error(); got != "node root/a: forward failed: timeout" {
		t.Errorf("unexpected message %q", got)
	}
	if !errors.Is(err, cause) {
		t.Error("expected NodeError to unwrap to its cause")
	}
}

func TestGraphPolicies(t *testing.T) {
	t.Run("attributes flow through the graph store", func(t *testing.T) {
		g := NewGraph()
		writer := NewFunc(func(context.Context, Message) (Message, error) {
			return Message{"token": "abc", "private": 1}, nil
		})
		var seen Attributes
		reader := &attrReader{seen: &seen}
		_, _ = g.AddNode("writer", writer, Push(OnlyKeys(KeyList("token"))))
		_, _ = g.AddNode("reader", reader, Pull(OnlyKeys(KeyList("token", "private"))))
		_, _ = g.ConnectNames("entry", "writer", nil)
		_, _ = g.ConnectNames("writer", "reader", nil)
		_, _ = g.ConnectNames("reader", "exit", nil)

		if _, err := g.Invoke(context.Background(), Message{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if seen["token"] != "abc" {
			t.Errorf("expected token to be pulled, got %v", seen)
		}
		if _, ok := seen["private"]; ok {
			t.Errorf("expected private to stay local to writer, got %v", seen)
		}
		if g.Attributes()["token"] != "abc" {
			t.Errorf("expected graph store to hold token, got %v", g.Attributes())
		}
	})

	t.Run("push mirrors pull when unset", func(t *testing.T) {
		g := NewGraph()
		n := NewFunc(func(context.Context, Message) (Message, error) {
			return Message{"a": 1, "b": 2}, nil
		})
		var seen Attributes
		_, _ = g.AddNode("n", n, Pull(OnlyKeys(KeyList("a"))))
		_, _ = g.AddNode("reader", &attrReader{seen: &seen})
		_, _ = g.ConnectNames("entry", "n", nil)
		_, _ = g.ConnectNames("n", "reader", nil)
		_, _ = g.ConnectNames("reader", "exit", nil)

		if _, err := g.Invoke(context.Background(), Message{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if seen["a"] != 1 {
			t.Errorf("expected a pushed, got %v", seen)
		}
		if _, ok := seen["b"]; ok {
			t.Errorf("expected b withheld, got %v", seen)
		}
	})
}

// attrReader records the local attribute store it sees during forward.
type attrReader struct {
	Base
	seen *Attributes
}

func (r *attrReader) Forward(_ context.Context, in Message) (Message, error) {
	*r.seen = Attributes{}
	for k, v := range r.Attributes() {
		(*r.seen)[k] = v
	}
	return in.Clone(), nil
}

func TestGraphPassCapAndStall(t *testing.T) {
	t.Run("stall returns empty output", func(t *testing.T) {
		g := NewGraph()
		a, b := NewPassthrough(), NewPassthrough()
		_, _ = g.AddNode("a", a)
		_, _ = g.AddNode("b", b)
		_, _ = g.ConnectNames("entry", "a", nil)
		// b waits on an edge nobody feeds.
		_, _ = g.ConnectNames("b", "exit", nil)

		out, err := g.Invoke(context.Background(), Message{"x": 1})
		if err != nil {
			t.Fatalf("expected no error on stall, got %v", err)
		}
		if len(out) != 0 {
			t.Errorf("expected empty output, got %v", out)
		}
	})

	t.Run("pass cap stops scheduling", func(t *testing.T) {
		g := linearGraph(t, NewPassthrough(), NewPassthrough(), WithMaxPasses(1))
		out, err := g.Invoke(context.Background(), Message{"x": 1})
		if err != nil {
			t.Fatalf("expected no error at pass cap, got %v", err)
		}
		if len(out) != 0 {
			t.Errorf("expected empty output when the cap is hit, got %v", out)
		}
	})
}
