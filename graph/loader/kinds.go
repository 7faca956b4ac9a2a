package loader

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math"

	"github.com/mitchellh/mapstructure"

	"github.com/dshills/masf-go/graph"
	"github.com/dshills/masf-go/graph/model"
	"github.com/dshills/masf-go/graph/tool"
)

// Prototype keys filled from Env rather than from params.
const (
	envModel = "model"
	envTools = "tools"
)

func builtinKinds() []Kind {
	return []Kind{
		{Name: "passthrough", Description: "forwards its input unchanged", Template: passthroughKind},
		{Name: "set", Description: "adds fixed values: {values}", Template: setKind},
		{Name: "add", Description: "adds a number to a key: {key, by, output}", Template: arithKind("add", func(a, b float64) float64 { return a + b })},
		{Name: "multiply", Description: "multiplies a key by a number: {key, by, output}", Template: arithKind("multiply", func(a, b float64) float64 { return a * b })},
		{Name: "copy", Description: "copies one key to another: {from, to}", Template: copyKind},
		{Name: "switch", Description: "routes on the value of a key: {key, cases, default}", Template: switchKind},
		{Name: "chat", Description: "asks the chat model: {system, input_key, output_key}", Template: chatKind},
		{Name: "tool", Description: "calls a named tool with its input: {name}", Template: toolKind},
	}
}

// decodeParams decodes cfg into out, rejecting unknown params.
func decodeParams(cfg graph.Config, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		ErrorUnused: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(map[string]any(cfg)); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	return nil
}

// take removes key from cfg and returns its value as T.
func take[T any](cfg graph.Config, key string) T {
	v, _ := cfg[key].(T)
	delete(cfg, key)
	return v
}

func passthroughKind(Env) *graph.NodeTemplate {
	return graph.NewTemplate(func(cfg graph.Config) (*graph.Passthrough, error) {
		if err := decodeParams(cfg, &struct{}{}); err != nil {
			return nil, err
		}
		return graph.NewPassthrough(), nil
	}, nil)
}

type setParams struct {
	Values map[string]any `mapstructure:"values"`
}

func setKind(Env) *graph.NodeTemplate {
	return graph.NewTemplate(func(cfg graph.Config) (*graph.Func, error) {
		var p setParams
		if err := decodeParams(cfg, &p); err != nil {
			return nil, err
		}
		return graph.NewFunc(func(_ context.Context, in graph.Message) (graph.Message, error) {
			out := in.Clone()
			maps.Copy(out, p.Values)
			return out, nil
		}), nil
	}, nil)
}

type arithParams struct {
	Key    string  `mapstructure:"key"`
	By     float64 `mapstructure:"by"`
	Output string  `mapstructure:"output"`
}

func arithKind(name string, op func(a, b float64) float64) TemplateFunc {
	return func(Env) *graph.NodeTemplate {
		return graph.NewTemplate(func(cfg graph.Config) (*graph.Func, error) {
			var p arithParams
			if err := decodeParams(cfg, &p); err != nil {
				return nil, err
			}
			if p.Key == "" {
				return nil, fmt.Errorf("%s: key is required", name)
			}
			if p.Output == "" {
				p.Output = p.Key
			}
			return graph.NewFunc(func(_ context.Context, in graph.Message) (graph.Message, error) {
				v, ok := in[p.Key]
				if !ok {
					return nil, fmt.Errorf("%w: %s", graph.ErrMissingKey, p.Key)
				}
				res, err := arith(v, p.By, op)
				if err != nil {
					return nil, err
				}
				out := in.Clone()
				out[p.Output] = res
				return out, nil
			}), nil
		}, nil)
	}
}

// arith applies op to v and by. Integer inputs stay integers when the
// result is whole.
func arith(v any, by float64, op func(a, b float64) float64) (any, error) {
	var (
		x     float64
		isInt bool
	)
	switch n := v.(type) {
	case int:
		x, isInt = float64(n), true
	case int64:
		x, isInt = float64(n), true
	case float64:
		x = n
	default:
		return nil, fmt.Errorf("value %v (%T) is not a number", v, v)
	}
	res := op(x, by)
	if isInt && res == math.Trunc(res) {
		return int(res), nil
	}
	return res, nil
}

type copyParams struct {
	From string `mapstructure:"from"`
	To   string `mapstructure:"to"`
}

func copyKind(Env) *graph.NodeTemplate {
	return graph.NewTemplate(func(cfg graph.Config) (*graph.Func, error) {
		var p copyParams
		if err := decodeParams(cfg, &p); err != nil {
			return nil, err
		}
		if p.From == "" || p.To == "" {
			return nil, errors.New("copy: from and to are required")
		}
		return graph.NewFunc(func(_ context.Context, in graph.Message) (graph.Message, error) {
			v, ok := in[p.From]
			if !ok {
				return nil, fmt.Errorf("%w: %s", graph.ErrMissingKey, p.From)
			}
			out := in.Clone()
			out[p.To] = v
			return out, nil
		}), nil
	}, nil)
}

type switchParams struct {
	Key     string            `mapstructure:"key"`
	Cases   map[string]string `mapstructure:"cases"`
	Default string            `mapstructure:"default"`
}

func switchKind(Env) *graph.NodeTemplate {
	return graph.NewTemplate(func(cfg graph.Config) (*graph.Switch, error) {
		var p switchParams
		if err := decodeParams(cfg, &p); err != nil {
			return nil, err
		}
		if p.Key == "" {
			return nil, errors.New("switch: key is required")
		}
		return graph.NewSwitch(graph.RouteOn(p.Key, p.Cases, p.Default)), nil
	}, nil)
}

type chatParams struct {
	System    string `mapstructure:"system"`
	InputKey  string `mapstructure:"input_key"`
	OutputKey string `mapstructure:"output_key"`
}

// chatKind shares the loader's model and tools across every chat node
// instead of copying them.
func chatKind(env Env) *graph.NodeTemplate {
	return graph.NewTemplate(func(cfg graph.Config) (*graph.ChatNode, error) {
		m := take[model.ChatModel](cfg, envModel)
		tools := take[[]tool.Tool](cfg, envTools)
		var p chatParams
		if err := decodeParams(cfg, &p); err != nil {
			return nil, err
		}
		if m == nil {
			return nil, errors.New("chat: no chat model configured")
		}
		n := graph.NewChatNode(m, p.System, p.InputKey, p.OutputKey)
		n.Tools = tools
		return n, nil
	}, graph.Config{envModel: graph.Shared(env.Model), envTools: graph.Shared(env.Tools)})
}

type toolParams struct {
	Name string `mapstructure:"name"`
}

func toolKind(env Env) *graph.NodeTemplate {
	return graph.NewTemplate(func(cfg graph.Config) (*graph.ToolNode, error) {
		tools := take[[]tool.Tool](cfg, envTools)
		var p toolParams
		if err := decodeParams(cfg, &p); err != nil {
			return nil, err
		}
		t, ok := tool.Find(tools, p.Name)
		if !ok {
			return nil, fmt.Errorf("tool: %q is not available", p.Name)
		}
		return graph.NewToolNode(t), nil
	}, graph.Config{envTools: graph.Shared(env.Tools)})
}
