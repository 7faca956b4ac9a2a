package graph

import (
	"context"
	"fmt"
)

// NodeSpec declares one child: either a ready node or a template to
// materialize under Name.
type NodeSpec struct {
	Name     string
	Node     Node
	Template *NodeTemplate
	Options  []NodeOption
}

// EdgeSpec declares an edge between two children or ports by name.
type EdgeSpec struct {
	From string
	To   string
	Keys Keys
}

// Definition is a declarative description of a composite's contents.
type Definition struct {
	Nodes []NodeSpec
	Edges []EdgeSpec
}

// Build registers every node of def in order, then connects every edge.
// Template scopes in ctx apply to template nodes.
func (g *BaseGraph) Build(ctx context.Context, def Definition) error {
	for _, spec := range def.Nodes {
		var err error
		switch {
		case spec.Node != nil && spec.Template != nil:
			err = newEngineError(CodeInvalidConfig, fmt.Sprintf("node %q declares both an instance and a template", spec.Name))
		case spec.Template != nil:
			_, err = g.AddTemplate(ctx, spec.Name, spec.Template, spec.Options...)
		default:
			_, err = g.AddNode(spec.Name, spec.Node, spec.Options...)
		}
		if err != nil {
			return err
		}
	}
	for _, spec := range def.Edges {
		if _, err := g.ConnectNames(spec.From, spec.To, spec.Keys); err != nil {
			return err
		}
	}
	return nil
}

// GraphFrom creates a graph and builds def into it.
func GraphFrom(ctx context.Context, def Definition, opts ...Option) (*Graph, error) {
	g := NewGraph(opts...)
	if err := g.Build(ctx, def); err != nil {
		return nil, err
	}
	return g, nil
}

// LoopFrom creates a loop and builds def into it.
func LoopFrom(ctx context.Context, cfg LoopConfig, def Definition, opts ...Option) (*Loop, error) {
	l, err := NewLoop(cfg, opts...)
	if err != nil {
		return nil, err
	}
	if err := l.Build(ctx, def); err != nil {
		return nil, err
	}
	return l, nil
}
