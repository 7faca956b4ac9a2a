package loader

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/dshills/masf-go/graph"
	"github.com/dshills/masf-go/graph/model"
	"github.com/dshills/masf-go/graph/tool"
)

// ErrUnknownKind is returned for a node whose kind is not registered.
var ErrUnknownKind = errors.New("unknown node kind")

// Env holds what kind templates can use besides a node's params.
type Env struct {
	Model model.ChatModel
	Tools []tool.Tool
}

// TemplateFunc returns the template nodes of a kind are materialized from.
// The node's params are layered on top of the template's prototype.
type TemplateFunc func(env Env) *graph.NodeTemplate

// Kind is a named node constructor.
type Kind struct {
	Name        string
	Description string
	Template    TemplateFunc
}

// Registry maps kind names to constructors. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]Kind
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{kinds: make(map[string]Kind)}
}

// DefaultRegistry returns a registry holding the builtin kinds.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, k := range builtinKinds() {
		if err := r.Register(k); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds k. Names must be unique and cannot shadow the composite
// kinds.
func (r *Registry) Register(k Kind) error {
	name := strings.TrimSpace(k.Name)
	switch {
	case name == "":
		return errors.New("kind name is required")
	case name == KindGraph || name == KindLoop:
		return fmt.Errorf("kind %q is reserved", name)
	case k.Template == nil:
		return fmt.Errorf("kind %q has no template", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.kinds[name]; ok {
		return fmt.Errorf("kind %q already registered", name)
	}
	k.Name = name
	r.kinds[name] = k
	return nil
}

// Lookup returns the kind called name.
func (r *Registry) Lookup(name string) (Kind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.kinds[name]
	return k, ok
}

// Kinds returns every registered kind sorted by name.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Kind, 0, len(r.kinds))
	for _, name := range slices.Sorted(maps.Keys(r.kinds)) {
		out = append(out, r.kinds[name])
	}
	return out
}
