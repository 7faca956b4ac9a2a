// Package tool defines callable tools that graph nodes and loop
// termination predicates can use.
package tool

import (
	"context"
	"fmt"

	"github.com/dshills/masf-go/graph/model"
)

// Tool is a named operation with map-shaped input and output.
type Tool interface {
	Name() string
	Call(ctx context.Context, input map[string]any) (map[string]any, error)
}

// Describer is implemented by tools that can describe themselves to a
// chat model.
type Describer interface {
	Spec() model.ToolSpec
}

// CallFunc is the signature of Func's body.
type CallFunc func(ctx context.Context, input map[string]any) (map[string]any, error)

// Func adapts a function to Tool.
type Func struct {
	ToolName    string
	Description string
	Schema      map[string]any
	Fn          CallFunc
}

// Name returns ToolName.
func (f *Func) Name() string { return f.ToolName }

// Call invokes Fn.
func (f *Func) Call(ctx context.Context, input map[string]any) (map[string]any, error) {
	if f.Fn == nil {
		return nil, fmt.Errorf("tool %s has no function", f.ToolName)
	}
	return f.Fn(ctx, input)
}

// Spec describes the tool to a chat model.
func (f *Func) Spec() model.ToolSpec {
	return model.ToolSpec{Name: f.ToolName, Description: f.Description, Schema: f.Schema}
}

// Find returns the tool called name.
func Find(tools []Tool, name string) (Tool, bool) {
	for _, t := range tools {
		if t != nil && t.Name() == name {
			return t, true
		}
	}
	return nil, false
}

// Specs describes every tool; tools without a Describer get a name-only spec.
func Specs(tools []Tool) []model.ToolSpec {
	specs := make([]model.ToolSpec, 0, len(tools))
	for _, t := range tools {
		if d, ok := t.(Describer); ok {
			specs = append(specs, d.Spec())
			continue
		}
		specs = append(specs, model.ToolSpec{Name: t.Name()})
	}
	return specs
}
