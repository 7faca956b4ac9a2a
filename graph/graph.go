package graph

import (
	"context"
	"log/slog"
)

// Graph is a composite node: a dataflow graph of child nodes between an
// entry port and an exit port. A Graph can run on its own through Invoke
// or be registered as a child of another composite.
//
// Example:
//
//	g := graph.NewGraph()
//	double := graph.NewFunc(func(ctx context.Context, in graph.Message) (graph.Message, error) {
//	    return graph.Message{"x": in["x"].(int) * 2}, nil
//	})
//	g.AddNode("double", double)
//	g.Connect(g.Entry(), double, nil)
//	g.Connect(double, g.Exit(), nil)
//	out, err := g.Invoke(ctx, graph.Message{"x": 1}) // {"x": 2}
type Graph struct {
	Base
	BaseGraph

	entry    *Entry
	exit     *Exit
	settings settings
}

// NewGraph creates an empty graph.
func NewGraph(opts ...Option) *Graph {
	g := &Graph{settings: newSettings("root", DefaultMaxPasses, opts)}
	g.name = g.settings.name
	g.self = g
	g.attrs = Attributes{}
	g.BaseGraph.init(g, "entry", "exit")

	g.entry = newEntry(g.Close)
	g.exit = newExit(g.Close)
	g.bindPort(g.entry, "entry")
	g.bindPort(g.exit, "exit")

	g.instrument(g.settings)
	return g
}

// Entry returns the graph's input port.
func (g *Graph) Entry() *Entry { return g.entry }

// Exit returns the graph's output port.
func (g *Graph) Exit() *Exit { return g.exit }

// MaxPasses returns the scheduling pass cap.
func (g *Graph) MaxPasses() int { return g.settings.maxPasses }

// Invoke runs the graph as a root on input and returns the exit output.
// Each call gets a fresh run ID.
func (g *Graph) Invoke(ctx context.Context, input Message) (Message, error) {
	return invokeRoot(ctx, g, g.settings, input)
}

// Forward resets the subgraph, feeds in through the entry port and
// schedules ready children until the exit port is ready, the graph closes,
// the pass cap is reached or nothing is ready.
func (g *Graph) Forward(ctx context.Context, in Message) (Message, error) {
	ctx = g.scoped(ctx)
	log := LoggerFrom(ctx)
	metrics := g.metrics(ctx)
	path := g.Path()

	g.resetSubgraph()
	g.entry.inject(in)
	if _, err := g.entry.Execute(ctx, g.Attributes()); err != nil {
		return nil, err
	}

	passes := 0
	for g.gate == Open && !g.exit.IsReady() {
		if passes >= g.settings.maxPasses {
			log.Warn("graph stopped at pass cap", "graph", path, "passes", passes, "cap", g.settings.maxPasses)
			metrics.IncrementExhausted(path, "pass_cap")
			break
		}
		n := g.nextReady()
		if n == nil {
			log.Warn("graph stalled with no ready node", "graph", path, "passes", passes)
			metrics.IncrementExhausted(path, "stall")
			break
		}
		passes++
		if _, err := n.base().Execute(ctx, g.Attributes()); err != nil {
			return nil, err
		}
	}
	metrics.ObservePasses(path, passes)

	if g.exit.IsReady() {
		if _, err := g.exit.Execute(ctx, g.Attributes()); err != nil {
			return nil, err
		}
	}
	return g.exit.Output(), nil
}

// scoped applies the composite's own logger to ctx unless one is present.
func (g *Graph) scoped(ctx context.Context) context.Context {
	return scopeContext(ctx, g.settings)
}

func (g *Graph) metrics(ctx context.Context) *PrometheusMetrics {
	if g.settings.metrics != nil {
		return g.settings.metrics
	}
	return metricsFrom(ctx)
}

func scopeContext(ctx context.Context, s settings) context.Context {
	if s.logger != nil {
		if _, ok := ctx.Value(loggerKey).(*slog.Logger); !ok {
			ctx = ContextWithLogger(ctx, s.logger)
		}
	}
	if s.metrics != nil && metricsFrom(ctx) == nil {
		ctx = withMetrics(ctx, s.metrics)
	}
	return ctx
}

// invokeRoot runs c as the root of a new run: a fresh run ID, the gate
// forced open and input injected in place of incoming edges.
func invokeRoot(ctx context.Context, c composite, s settings, input Message) (Message, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if RunIDFrom(ctx) != "" {
		ctx = context.WithValue(ctx, runKey, nil)
	}
	ctx = scopeContext(withRun(ctx), s)

	b := c.base()
	b.gate = Open
	b.inject(input)
	out, err := b.Execute(ctx, nil)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = Message{}
	}
	return out, nil
}
