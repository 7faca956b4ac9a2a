package graph

import "context"

// ForwardFunc computes a node's output from its aggregated input.
type ForwardFunc func(ctx context.Context, in Message) (Message, error)

// Func is a node whose behavior is a plain function.
//
// Example:
//
//	double := graph.NewFunc(func(ctx context.Context, in graph.Message) (graph.Message, error) {
//	    return graph.Message{"x": in["x"].(int) * 2}, nil
//	})
type Func struct {
	Base
	fn ForwardFunc
}

// NewFunc wraps fn as a node. A nil fn behaves like Passthrough.
func NewFunc(fn ForwardFunc) *Func {
	return &Func{fn: fn}
}

// Forward calls the wrapped function.
func (f *Func) Forward(ctx context.Context, in Message) (Message, error) {
	if f.fn == nil {
		return in.Clone(), nil
	}
	return f.fn(ctx, in)
}

// Passthrough forwards its input unchanged.
type Passthrough struct {
	Base
}

// NewPassthrough returns a node that forwards its input unchanged.
func NewPassthrough() *Passthrough {
	return &Passthrough{}
}

// Forward returns a copy of in.
func (p *Passthrough) Forward(_ context.Context, in Message) (Message, error) {
	return in.Clone(), nil
}
