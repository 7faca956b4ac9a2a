package graph

import (
	"context"
	"fmt"
	"maps"

	"github.com/dshills/masf-go/graph/hook"
)

// Reserved template configuration keys. Their values set the node's pull
// and push policies: a KeyPolicy, Keys, []string, or "all" / "none".
const (
	ConfigPullKeys = "pull_keys"
	ConfigPushKeys = "push_keys"
)

// Config is a template's configuration, passed to its build function after
// scope layers are applied and every value is resolved.
//
// Values are deep-copied per materialization unless wrapped with Shared,
// produced fresh by Factory, or copied by their own Cloner.
type Config map[string]any

// NodeTemplate is a recipe for building nodes: a node type, a build
// function and a prototype configuration.
type NodeTemplate struct {
	typeName string
	build    func(Config) (Node, error)
	config   Config
}

// NewTemplate creates a template for nodes of type N.
//
//	critic := graph.NewTemplate(func(cfg graph.Config) (*Critic, error) {
//	    return &Critic{Strictness: cfg["strictness"].(int)}, nil
//	}, graph.Config{"strictness": 1})
func NewTemplate[N Node](build func(Config) (N, error), cfg Config) *NodeTemplate {
	return &NodeTemplate{
		typeName: hook.TypeNameOf[N](),
		build: func(c Config) (Node, error) {
			return build(c)
		},
		config: maps.Clone(cfg),
	}
}

// Type returns the name of the node type the template builds.
func (t *NodeTemplate) Type() string { return t.typeName }

// Config returns a shallow copy of the prototype configuration.
func (t *NodeTemplate) Config() Config { return maps.Clone(t.config) }

// With returns a template whose prototype is t's overlaid with cfg.
func (t *NodeTemplate) With(cfg Config) *NodeTemplate {
	merged := maps.Clone(t.config)
	if merged == nil {
		merged = Config{}
	}
	maps.Copy(merged, cfg)
	return &NodeTemplate{typeName: t.typeName, build: t.build, config: merged}
}

// Materialize builds a node that will be registered as name.
//
// The effective configuration layers, later winning: defaults scoped to
// matching declarations, global defaults, the prototype, global overrides
// and overrides scoped to matching declarations.
func (t *NodeTemplate) Materialize(ctx context.Context, name string) (Node, error) {
	layers := templateLayers(ctx, name, t.typeName)
	cfg := Config{}
	for _, layer := range []Config{layers.selectedDefaults, layers.defaults, t.config, layers.overrides, layers.selectedOverrides} {
		maps.Copy(cfg, layer)
	}

	resolved := make(Config, len(cfg))
	for k, v := range cfg {
		resolved[k] = resolveValue(v)
	}

	pull, err := policyFromConfig(resolved, ConfigPullKeys)
	if err != nil {
		return nil, err
	}
	push, err := policyFromConfig(resolved, ConfigPushKeys)
	if err != nil {
		return nil, err
	}

	n, err := t.build(resolved)
	if err != nil {
		return nil, &EngineError{Code: CodeTemplate, Message: fmt.Sprintf("building %s %q: %v", t.typeName, name, err)}
	}
	if n == nil {
		return nil, newEngineError(CodeTemplate, fmt.Sprintf("building %s %q returned no node", t.typeName, name))
	}
	b := n.base()
	if pull.IsSet() {
		b.pull = pull
	}
	if push.IsSet() {
		b.push = push
	}
	return n, nil
}

// policyFromConfig removes key from cfg and converts its value to a policy.
func policyFromConfig(cfg Config, key string) (KeyPolicy, error) {
	v, ok := cfg[key]
	if !ok {
		return KeyPolicy{}, nil
	}
	delete(cfg, key)
	switch p := v.(type) {
	case nil:
		return KeyPolicy{}, nil
	case KeyPolicy:
		return p, nil
	case Keys:
		return OnlyKeys(p), nil
	case []string:
		return OnlyKeys(KeyList(p...)), nil
	case []any:
		names := make([]string, 0, len(p))
		for _, item := range p {
			s, ok := item.(string)
			if !ok {
				return KeyPolicy{}, newEngineError(CodeTemplate, fmt.Sprintf("%s: key names must be strings, got %T", key, item))
			}
			names = append(names, s)
		}
		return OnlyKeys(KeyList(names...)), nil
	case string:
		switch p {
		case "all", "*":
			return AllKeys(), nil
		case "none":
			return NoKeys(), nil
		}
	}
	return KeyPolicy{}, newEngineError(CodeTemplate, fmt.Sprintf("%s: unsupported policy %v", key, v))
}
