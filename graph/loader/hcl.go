package loader

import (
	"fmt"
	"math/big"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

type hclFile struct {
	Name      *string    `hcl:"name,optional"`
	Kind      *string    `hcl:"kind,optional"`
	MaxPasses *int       `hcl:"max_passes,optional"`
	Loop      *hclLoop   `hcl:"loop,block"`
	Nodes     []*hclNode `hcl:"node,block"`
	Edges     []*hclEdge `hcl:"edge,block"`
}

type hclNode struct {
	Name      string     `hcl:"name,label"`
	Kind      string     `hcl:"kind"`
	Params    cty.Value  `hcl:"params,optional"`
	Pull      *[]string  `hcl:"pull,optional"`
	Push      *[]string  `hcl:"push,optional"`
	MaxPasses *int       `hcl:"max_passes,optional"`
	Loop      *hclLoop   `hcl:"loop,block"`
	Nodes     []*hclNode `hcl:"node,block"`
	Edges     []*hclEdge `hcl:"edge,block"`
}

type hclLoop struct {
	MaxIterations *int      `hcl:"max_iterations,optional"`
	Condition     *string   `hcl:"condition,optional"`
	Until         *hclUntil `hcl:"until,block"`
}

type hclUntil struct {
	Key    string    `hcl:"key"`
	Equals cty.Value `hcl:"equals,optional"`
}

type hclEdge struct {
	From string   `hcl:"from"`
	To   string   `hcl:"to"`
	Keys []string `hcl:"keys,optional"`
}

// ParseHCL decodes an HCL definition. filename is used in diagnostics.
func ParseHCL(data []byte, filename string) (*NodeDef, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}

	var parsed hclFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}

	def := NodeDef{
		Name:      deref(parsed.Name),
		Kind:      deref(parsed.Kind),
		MaxPasses: deref(parsed.MaxPasses),
	}
	var err error
	if def.Loop, err = parsed.Loop.def(); err != nil {
		return nil, err
	}
	if def.Nodes, err = nodeDefs(parsed.Nodes); err != nil {
		return nil, err
	}
	def.Edges = edgeDefs(parsed.Edges)
	return &def, nil
}

func (n *hclNode) def() (NodeDef, error) {
	params, err := ctyToNative(n.Params)
	if err != nil {
		return NodeDef{}, fmt.Errorf("node %q params: %w", n.Name, err)
	}
	def := NodeDef{
		Name:      n.Name,
		Kind:      n.Kind,
		Pull:      n.Pull,
		Push:      n.Push,
		MaxPasses: deref(n.MaxPasses),
		Edges:     edgeDefs(n.Edges),
	}
	if params != nil {
		m, ok := params.(map[string]any)
		if !ok {
			return NodeDef{}, fmt.Errorf("node %q: params must be an object", n.Name)
		}
		def.Params = m
	}
	if def.Loop, err = n.Loop.def(); err != nil {
		return NodeDef{}, fmt.Errorf("node %q: %w", n.Name, err)
	}
	if def.Nodes, err = nodeDefs(n.Nodes); err != nil {
		return NodeDef{}, err
	}
	return def, nil
}

func (l *hclLoop) def() (*LoopDef, error) {
	if l == nil {
		return nil, nil
	}
	def := &LoopDef{
		MaxIterations: deref(l.MaxIterations),
		Condition:     deref(l.Condition),
	}
	if l.Until != nil {
		equals, err := ctyToNative(l.Until.Equals)
		if err != nil {
			return nil, fmt.Errorf("until equals: %w", err)
		}
		def.Until = &UntilDef{Key: l.Until.Key, Equals: equals}
	}
	return def, nil
}

func nodeDefs(nodes []*hclNode) ([]NodeDef, error) {
	out := make([]NodeDef, 0, len(nodes))
	for _, n := range nodes {
		def, err := n.def()
		if err != nil {
			return nil, err
		}
		out = append(out, def)
	}
	return out, nil
}

func edgeDefs(edges []*hclEdge) []EdgeDef {
	out := make([]EdgeDef, 0, len(edges))
	for _, e := range edges {
		out = append(out, EdgeDef{From: e.From, To: e.To, Keys: e.Keys})
	}
	return out
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// ctyToNative converts v to plain Go values: strings, bools, ints for whole
// numbers, float64 otherwise, []any and map[string]any.
func ctyToNative(v cty.Value) (any, error) {
	if v.Type() == cty.NilType || v.IsNull() || !v.IsKnown() {
		return nil, nil
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil

	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == big.Exact {
				return int(i), nil
			}
		}
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return nil, fmt.Errorf("could not convert number: %w", err)
		}
		return f, nil

	case ty == cty.Bool:
		return v.True(), nil

	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		list := make([]any, 0, v.LengthInt())
		it := v.ElementIterator()
		for it.Next() {
			_, elem := it.Element()
			native, err := ctyToNative(elem)
			if err != nil {
				return nil, err
			}
			list = append(list, native)
		}
		return list, nil

	case ty.IsObjectType() || ty.IsMapType():
		m := make(map[string]any)
		it := v.ElementIterator()
		for it.Next() {
			key, elem := it.Element()
			native, err := ctyToNative(elem)
			if err != nil {
				return nil, fmt.Errorf("in attribute %q: %w", key.AsString(), err)
			}
			m[key.AsString()] = native
		}
		return m, nil
	}
	return nil, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
}
