package loader

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/dshills/masf-go/graph"
	"github.com/dshills/masf-go/graph/model"
	"github.com/dshills/masf-go/graph/tool"
)

// Runnable is a composite built from a definition.
type Runnable interface {
	graph.Node
	Invoke(ctx context.Context, input graph.Message) (graph.Message, error)
	Nodes() []graph.Node
	Edges() []*graph.Edge
}

// Loader turns definitions into runnable composites.
type Loader struct {
	registry  *Registry
	env       Env
	graphOpts []graph.Option
}

// Option configures a Loader.
type Option func(*Loader)

// WithRegistry replaces the builtin kinds.
func WithRegistry(r *Registry) Option {
	return func(l *Loader) { l.registry = r }
}

// WithModel sets the chat model used by chat nodes and model-judged loop
// conditions.
func WithModel(m model.ChatModel) Option {
	return func(l *Loader) { l.env.Model = m }
}

// WithTools makes tools available to tool and chat nodes.
func WithTools(tools ...tool.Tool) Option {
	return func(l *Loader) { l.env.Tools = append(l.env.Tools, tools...) }
}

// WithGraphOptions applies opts to the root composite.
func WithGraphOptions(opts ...graph.Option) Option {
	return func(l *Loader) { l.graphOpts = append(l.graphOpts, opts...) }
}

// New creates a loader.
func New(opts ...Option) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	if l.registry == nil {
		l.registry = DefaultRegistry()
	}
	return l
}

// Registry returns the loader's kind registry.
func (l *Loader) Registry() *Registry { return l.registry }

// LoadFile parses the definition at path and builds it.
func (l *Loader) LoadFile(ctx context.Context, path string) (Runnable, error) {
	def, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	return l.Build(ctx, def)
}

// Build constructs the composite def describes. Template scopes in ctx
// apply to every leaf node.
func (l *Loader) Build(ctx context.Context, def *NodeDef) (Runnable, error) {
	if def == nil {
		return nil, errors.New("definition is nil")
	}
	if !def.IsComposite() {
		return nil, fmt.Errorf("root must be a %s or a %s, got kind %q", KindGraph, KindLoop, def.Kind)
	}
	return l.composite(ctx, def, l.graphOpts)
}

func (l *Loader) composite(ctx context.Context, def *NodeDef, opts []graph.Option) (Runnable, error) {
	if len(def.Params) > 0 {
		return nil, fmt.Errorf("%s %q takes no params", kindOf(def), def.Name)
	}
	opts = slices.Clone(opts)
	if def.Name != "" {
		opts = append(opts, graph.WithName(def.Name))
	}
	if def.MaxPasses > 0 {
		opts = append(opts, graph.WithMaxPasses(def.MaxPasses))
	}

	switch def.Kind {
	case "", KindGraph:
		if def.Loop != nil {
			return nil, fmt.Errorf("graph %q has loop settings", def.Name)
		}
		g := graph.NewGraph(opts...)
		if err := l.populate(ctx, &g.BaseGraph, def); err != nil {
			return nil, err
		}
		return g, nil
	default:
		lp, err := graph.NewLoop(l.loopConfig(def.Loop), opts...)
		if err != nil {
			return nil, fmt.Errorf("loop %q: %w", def.Name, err)
		}
		if err := l.populate(ctx, &lp.BaseGraph, def); err != nil {
			return nil, err
		}
		return lp, nil
	}
}

func (l *Loader) populate(ctx context.Context, bg *graph.BaseGraph, def *NodeDef) error {
	log := graph.LoggerFrom(ctx)
	for i := range def.Nodes {
		child := &def.Nodes[i]
		nodeOpts := policyOptions(child)
		log.Debug("adding node", "parent", def.Name, "node", child.Name, "kind", kindOf(child))

		if child.IsComposite() {
			n, err := l.composite(ctx, child, nil)
			if err != nil {
				return err
			}
			if _, err := bg.AddNode(child.Name, n, nodeOpts...); err != nil {
				return fmt.Errorf("node %q: %w", child.Name, err)
			}
			continue
		}

		kind, ok := l.registry.Lookup(child.Kind)
		if !ok {
			return fmt.Errorf("node %q: %w: %s", child.Name, ErrUnknownKind, child.Kind)
		}
		tmpl := kind.Template(l.env).With(graph.Config(child.Params))
		if _, err := bg.AddTemplate(ctx, child.Name, tmpl, nodeOpts...); err != nil {
			return fmt.Errorf("node %q: %w", child.Name, err)
		}
	}

	for _, e := range def.Edges {
		if _, err := bg.ConnectNames(e.From, e.To, graph.KeyList(e.Keys...)); err != nil {
			return fmt.Errorf("edge %s->%s: %w", e.From, e.To, err)
		}
	}
	return nil
}

func (l *Loader) loopConfig(d *LoopDef) graph.LoopConfig {
	cfg := graph.LoopConfig{Tools: l.env.Tools}
	if d == nil {
		return cfg
	}
	cfg.MaxIterations = d.MaxIterations
	if d.Until != nil {
		cfg.Until = untilFunc(d.Until.Key, d.Until.Equals)
	}
	if d.Condition != "" {
		cfg.Model = l.env.Model
		cfg.Condition = d.Condition
	}
	return cfg
}

// untilFunc stops a loop once the loop state's key prints the same as want.
func untilFunc(key string, want any) graph.TerminationFunc {
	if want == nil {
		want = true
	}
	expected := fmt.Sprint(want)
	return func(_ context.Context, tc graph.TerminationContext) (bool, error) {
		v, ok := tc.Input[key]
		return ok && fmt.Sprint(v) == expected, nil
	}
}

func policyOptions(d *NodeDef) []graph.NodeOption {
	var opts []graph.NodeOption
	if d.Pull != nil {
		opts = append(opts, graph.Pull(policy(*d.Pull)))
	}
	if d.Push != nil {
		opts = append(opts, graph.Push(policy(*d.Push)))
	}
	return opts
}

func policy(keys []string) graph.KeyPolicy {
	if slices.Contains(keys, "*") {
		return graph.AllKeys()
	}
	return graph.OnlyKeys(graph.KeyList(keys...))
}

func kindOf(d *NodeDef) string {
	if d.Kind == "" {
		return KindGraph
	}
	return d.Kind
}
