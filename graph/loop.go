package graph

import (
	"context"
	"fmt"
	"maps"

	"github.com/dshills/masf-go/graph/model"
	"github.com/dshills/masf-go/graph/tool"
)

// NotSetPlaceholder fills keys the loop body expects but the loop input did
// not provide on the first iteration.
const NotSetPlaceholder = "(not set yet)"

// IterationKey is the loop attribute holding the current iteration number.
const IterationKey = "current_iteration"

// TerminationFunc decides whether a loop should stop. It is evaluated on
// every controller activation after the iteration count is updated.
type TerminationFunc func(ctx context.Context, tc TerminationContext) (bool, error)

// TerminationContext is what a termination predicate sees.
type TerminationContext struct {
	// Input is the controller's merged view of the loop state.
	Input Message

	// Attributes is the loop's attribute store; IterationKey holds the
	// current iteration.
	Attributes Attributes

	// Controller is the loop's controller node.
	Controller *Controller

	Memories   []any
	Tools      []tool.Tool
	Retrievers []any
}

// LoopConfig configures a Loop.
//
// At least one termination condition is required: Until, or Model together
// with Condition. MaxIterations alone is not enough.
type LoopConfig struct {
	// MaxIterations stops the loop once the iteration count exceeds it.
	// Zero means unbounded.
	MaxIterations int

	// Until is a caller supplied termination predicate.
	Until TerminationFunc

	// Model and Condition ask a chat model whether Condition holds for the
	// current loop state.
	Model     model.ChatModel
	Condition string

	// Memories, Tools and Retrievers are handed to termination predicates.
	Memories   []any
	Tools      []tool.Tool
	Retrievers []any
}

// Loop is a composite node that repeats its body until a termination
// condition holds.
//
// Inside a loop the controller acts as entry and exit: it receives the loop
// input on the first activation and the body's feedback afterwards. The
// reserved names "entry", "controller" and "exit" all refer to it, and
// "terminate" refers to a port that ends the loop early when it receives a
// message.
//
//	loop, _ := graph.NewLoop(graph.LoopConfig{
//	    MaxIterations: 5,
//	    Until: func(ctx context.Context, tc graph.TerminationContext) (bool, error) {
//	        return tc.Input["done"] == true, nil
//	    },
//	})
//	loop.AddNode("step", step)
//	loop.ConnectNames("controller", "step", nil)
//	loop.ConnectNames("step", "controller", nil)
type Loop struct {
	Base
	BaseGraph

	cfg        LoopConfig
	controller *Controller
	terminate  *Terminate
	settings   settings
}

// NewLoop validates cfg and creates an empty loop.
func NewLoop(cfg LoopConfig, opts ...Option) (*Loop, error) {
	if cfg.MaxIterations < 0 {
		return nil, newEngineError(CodeInvalidConfig, fmt.Sprintf("max iterations must not be negative, got %d", cfg.MaxIterations))
	}
	if (cfg.Model == nil) != (cfg.Condition == "") {
		return nil, newEngineError(CodeInvalidConfig, "a model-judged condition needs both a model and a condition")
	}
	if cfg.Until == nil && cfg.Model == nil {
		return nil, newEngineError(CodeNoTermination, "loop needs a termination predicate or a model-judged condition")
	}

	l := &Loop{cfg: cfg, settings: newSettings("loop", DefaultLoopMaxPasses, opts)}
	l.name = l.settings.name
	l.self = l
	l.attrs = Attributes{}
	l.BaseGraph.init(l, "entry", "exit", "controller", "terminate")

	l.controller = &Controller{loop: l, maxIterations: cfg.MaxIterations}
	l.controller.kind = kindController
	l.controller.pull = NoKeys()
	l.controller.push = NoKeys()
	l.terminate = newTerminate()
	l.bindPort(l.controller, "controller", "entry", "exit")
	l.bindPort(l.terminate, "terminate")

	l.instrument(l.settings)
	return l, nil
}

// Controller returns the loop's controller.
func (l *Loop) Controller() *Controller { return l.controller }

// Terminate returns the loop's early-exit port.
func (l *Loop) Terminate() *Terminate { return l.terminate }

// Config returns the loop configuration.
func (l *Loop) Config() LoopConfig { return l.cfg }

// Invoke runs the loop as a root on input.
func (l *Loop) Invoke(ctx context.Context, input Message) (Message, error) {
	return invokeRoot(ctx, l, l.settings, input)
}

// Forward runs iterations until the controller terminates, the terminate
// port fires, no node is ready or the pass cap is reached.
//
// The result is the controller's state when it terminates, the terminate
// port's input when that fires first, and the controller's latest state
// otherwise.
func (l *Loop) Forward(ctx context.Context, in Message) (Message, error) {
	ctx = scopeContext(ctx, l.settings)
	log := LoggerFrom(ctx)
	metrics := l.metrics(ctx)
	path := l.Path()
	c := l.controller

	l.resetSubgraph()
	defer func() { metrics.ObserveIterations(path, c.iteration) }()

	c.inject(in)
	if _, err := c.Execute(ctx, l.Attributes()); err != nil {
		return nil, err
	}
	if c.terminated {
		return c.Cache(), nil
	}

	for passes := 0; ; passes++ {
		if passes >= l.settings.maxPasses {
			log.Warn("loop stopped at pass cap", "loop", path, "passes", passes, "cap", l.settings.maxPasses, "iteration", c.iteration)
			metrics.IncrementExhausted(path, "pass_cap")
			return c.Cache(), nil
		}

		switch {
		case c.IsReady():
			if _, err := c.Execute(ctx, l.Attributes()); err != nil {
				return nil, err
			}
			if c.terminated {
				return c.Cache(), nil
			}
		case l.terminate.IsReady():
			if _, err := l.terminate.Execute(ctx, l.Attributes()); err != nil {
				return nil, err
			}
			return l.terminate.Output(), nil
		default:
			n := l.nextReady()
			if n == nil {
				log.Warn("loop stalled with no ready node", "loop", path, "iteration", c.iteration)
				metrics.IncrementExhausted(path, "stall")
				return c.Cache(), nil
			}
			if _, err := n.base().Execute(ctx, l.Attributes()); err != nil {
				return nil, err
			}
		}
	}
}

func (l *Loop) metrics(ctx context.Context) *PrometheusMetrics {
	if l.settings.metrics != nil {
		return l.settings.metrics
	}
	return metricsFrom(ctx)
}

// Controller drives a loop: it counts iterations, keeps the loop state
// between iterations and decides when to stop.
type Controller struct {
	Base

	loop          *Loop
	iteration     int
	maxIterations int
	terminated    bool
	cache         Message
}

// Iteration returns the number of activations in the current invocation.
func (c *Controller) Iteration() int { return c.iteration }

// MaxIterations returns the configured iteration bound (zero if unbounded).
func (c *Controller) MaxIterations() int { return c.maxIterations }

// Terminated reports whether the controller has stopped the loop.
func (c *Controller) Terminated() bool { return c.terminated }

// Cache returns a copy of the loop state the controller holds.
func (c *Controller) Cache() Message {
	if c.cache == nil {
		return Message{}
	}
	return c.cache.Clone()
}

func (c *Controller) reset() {
	c.Base.reset()
	c.iteration = 0
	c.terminated = false
	c.cache = nil
}

// Forward updates the loop state with in, advances the iteration count and
// evaluates the termination conditions. On termination it closes its own
// gate so nothing is dispatched into the body.
func (c *Controller) Forward(ctx context.Context, in Message) (Message, error) {
	c.iteration++
	if c.cache == nil {
		c.cache = in.Clone()
		for _, e := range c.out {
			for key := range e.keys {
				if _, ok := c.cache[key]; !ok {
					c.cache[key] = NotSetPlaceholder
				}
			}
		}
	} else {
		maps.Copy(c.cache, in)
	}

	if c.loop != nil {
		c.loop.Attributes()[IterationKey] = c.iteration
	}

	stop := c.maxIterations > 0 && c.iteration > c.maxIterations
	if !stop && c.loop != nil {
		met, err := c.loop.conditionMet(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("termination check: %w", err)
		}
		stop = met
	}
	if stop {
		c.terminated = true
		c.Close()
		LoggerFrom(ctx).Debug("loop terminated", "loop", c.loop.Path(), "iteration", c.iteration)
	}
	return c.cache.Clone(), nil
}

// conditionMet evaluates the predicate and then the model-judged condition.
func (l *Loop) conditionMet(ctx context.Context, c *Controller) (bool, error) {
	tc := TerminationContext{
		Input:      c.cache.Clone(),
		Attributes: l.Attributes(),
		Controller: c,
		Memories:   l.cfg.Memories,
		Tools:      l.cfg.Tools,
		Retrievers: l.cfg.Retrievers,
	}
	if l.cfg.Until != nil {
		met, err := l.cfg.Until(ctx, tc)
		if err != nil || met {
			return met, err
		}
	}
	if l.cfg.Model != nil {
		return modelVerdict(ctx, l.cfg.Model, l.cfg.Condition, tc)
	}
	return false, nil
}
