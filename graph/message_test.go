package graph

import (
	"reflect"
	"testing"
)

func TestMergeMessage(t *testing.T) {
	tests := []struct {
		name     string
		acc      Message
		incoming Message
		want     Message
	}{
		{
			name:     "disjoint keys are copied",
			acc:      Message{"a": 1},
			incoming: Message{"b": 2},
			want:     Message{"a": 1, "b": 2},
		},
		{
			name:     "lists extend",
			acc:      Message{"a": []any{1}},
			incoming: Message{"a": []any{2, 3}},
			want:     Message{"a": []any{1, 2, 3}},
		},
		{
			name:     "typed slices extend",
			acc:      Message{"a": []int{1}},
			incoming: Message{"a": []int{2}},
			want:     Message{"a": []any{1, 2}},
		},
		{
			name:     "list absorbs a scalar",
			acc:      Message{"a": []any{1}},
			incoming: Message{"a": 2},
			want:     Message{"a": []any{1, 2}},
		},
		{
			name:     "maps update key-wise",
			acc:      Message{"a": map[string]any{"x": 1, "y": 1}},
			incoming: Message{"a": map[string]any{"y": 2}},
			want:     Message{"a": map[string]any{"x": 1, "y": 2}},
		},
		{
			name:     "nested messages keep their type",
			acc:      Message{"a": Message{"x": 1}},
			incoming: Message{"a": map[string]any{"y": 2}},
			want:     Message{"a": Message{"x": 1, "y": 2}},
		},
		{
			name:     "nested attributes keep their type",
			acc:      Message{"a": Attributes{"x": 1}},
			incoming: Message{"a": Attributes{"y": 2}},
			want:     Message{"a": Attributes{"x": 1, "y": 2}},
		},
		{
			name:     "scalars coalesce into a list",
			acc:      Message{"a": 1},
			incoming: Message{"a": 2},
			want:     Message{"a": []any{1, 2}},
		},
		{
			name:     "byte slices are scalars",
			acc:      Message{"a": []byte("x")},
			incoming: Message{"a": []byte("y")},
			want:     Message{"a": []any{[]byte("x"), []byte("y")}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeMessage(tt.acc, tt.incoming)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestMergeMessageDoesNotMutateInputs(t *testing.T) {
	acc := Message{"a": []any{1}, "m": map[string]any{"x": 1}}
	incoming := Message{"a": []any{2}, "m": map[string]any{"y": 2}}

	_ = MergeMessage(acc, incoming)

	if !reflect.DeepEqual(acc, Message{"a": []any{1}, "m": map[string]any{"x": 1}}) {
		t.Errorf("expected acc unchanged, got %v", acc)
	}
	if !reflect.DeepEqual(incoming, Message{"a": []any{2}, "m": map[string]any{"y": 2}}) {
		t.Errorf("expected incoming unchanged, got %v", incoming)
	}
}

func TestMessageClone(t *testing.T) {
	var m Message
	c := m.Clone()
	if c == nil || len(c) != 0 {
		t.Errorf("expected empty non-nil clone, got %#v", c)
	}

	m = Message{"b": 2, "a": 1}
	c = m.Clone()
	c["a"] = 5
	if m["a"] != 1 {
		t.Error("expected clone to be independent")
	}
	if got := m.Keys(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("expected sorted keys [a b], got %v", got)
	}
}

func TestKeyPolicy(t *testing.T) {
	t.Run("zero value is unset and lets everything through", func(t *testing.T) {
		var p KeyPolicy
		if p.IsSet() {
			t.Error("expected zero policy to be unset")
		}
		if !p.IsAll() || !p.Allows("anything") {
			t.Error("expected zero policy to allow every key")
		}
		if p.String() != "unset" {
			t.Errorf("expected unset, got %q", p.String())
		}
	})

	t.Run("no keys", func(t *testing.T) {
		p := NoKeys()
		if !p.IsSet() || !p.IsNone() || p.Allows("a") {
			t.Errorf("expected an explicit empty policy, got %s", p)
		}
		dst := map[string]any{}
		p.copyAllowed(dst, map[string]any{"a": 1})
		if len(dst) != 0 {
			t.Errorf("expected nothing copied, got %v", dst)
		}
	})

	t.Run("only listed keys", func(t *testing.T) {
		p := OnlyKeys(KeyList("a", "c"))
		if p.IsAll() || p.IsNone() {
			t.Errorf("expected a listed policy, got %s", p)
		}
		dst := map[string]any{}
		p.copyAllowed(dst, map[string]any{"a": 1, "b": 2})
		if !reflect.DeepEqual(dst, map[string]any{"a": 1}) {
			t.Errorf("expected {a:1}, got %v", dst)
		}
		if p.String() != "only[a,c]" {
			t.Errorf("expected only[a,c], got %q", p.String())
		}
	})

	t.Run("empty list is none", func(t *testing.T) {
		if !OnlyKeys(nil).IsNone() {
			t.Error("expected OnlyKeys(nil) to be none")
		}
	})

	t.Run("all keys", func(t *testing.T) {
		p := AllKeys()
		if !p.IsSet() || !p.IsAll() || p.Keys() != nil {
			t.Errorf("expected an explicit all policy, got %s", p)
		}
	})
}
