// Package loader builds graphs and loops from YAML or HCL definition files.
//
// A definition describes one composite (kind "graph" or "loop") with its
// child nodes and edges. Leaf nodes name a kind from a Registry; composites
// nest. The same definition in both formats:
//
//	# pipeline.yaml
//	name: pipeline
//	nodes:
//	  - name: inc
//	    kind: add
//	    params: {key: x, by: 1}
//	edges:
//	  - {from: entry, to: inc}
//	  - {from: inc, to: exit, keys: [x]}
//
//	# pipeline.hcl
//	name = "pipeline"
//	node "inc" {
//	  kind   = "add"
//	  params = { key = "x", by = 1 }
//	}
//	edge {
//	  from = "entry"
//	  to   = "inc"
//	}
//	edge {
//	  from = "inc"
//	  to   = "exit"
//	  keys = ["x"]
//	}
package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Composite kinds handled by the loader itself.
const (
	KindGraph = "graph"
	KindLoop  = "loop"
)

// ErrUnsupportedFormat is returned for files that are neither YAML nor HCL.
var ErrUnsupportedFormat = errors.New("unsupported definition format")

// NodeDef declares a node. Composite kinds carry their own Nodes and Edges;
// leaf kinds are configured through Params.
type NodeDef struct {
	Name   string         `yaml:"name"`
	Kind   string         `yaml:"kind"`
	Params map[string]any `yaml:"params"`

	// Pull and Push list attribute keys. Nil leaves the policy unset, an
	// empty list selects no keys and ["*"] selects every key.
	Pull *[]string `yaml:"pull"`
	Push *[]string `yaml:"push"`

	MaxPasses int       `yaml:"max_passes"`
	Loop      *LoopDef  `yaml:"loop"`
	Nodes     []NodeDef `yaml:"nodes"`
	Edges     []EdgeDef `yaml:"edges"`
}

// LoopDef configures a loop's termination.
type LoopDef struct {
	MaxIterations int       `yaml:"max_iterations"`
	Until         *UntilDef `yaml:"until"`

	// Condition is judged by the loader's chat model.
	Condition string `yaml:"condition"`
}

// UntilDef stops a loop once the loop state holds Equals under Key. A nil
// Equals means true.
type UntilDef struct {
	Key    string `yaml:"key"`
	Equals any    `yaml:"equals"`
}

// EdgeDef declares an edge by endpoint names.
type EdgeDef struct {
	From string   `yaml:"from"`
	To   string   `yaml:"to"`
	Keys []string `yaml:"keys"`
}

// IsComposite reports whether d declares a graph or a loop.
func (d NodeDef) IsComposite() bool {
	return d.Kind == "" || d.Kind == KindGraph || d.Kind == KindLoop
}

// ParseYAML decodes a YAML definition.
func ParseYAML(data []byte) (*NodeDef, error) {
	var def NodeDef
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}
	return &def, nil
}

// ParseFile reads a definition, choosing the format by extension.
func ParseFile(path string) (*NodeDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading definition: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	case ".hcl":
		return ParseHCL(data, path)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}
