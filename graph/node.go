package graph

import (
	"context"
	"errors"
	"maps"

	"github.com/dshills/masf-go/graph/hook"
)

// Node is a processing unit in a dataflow graph.
//
// Concrete nodes embed Base and implement Forward. Base supplies the
// execution protocol around Forward: gate evaluation, pulling attributes
// from the enclosing graph, aggregating buffered input from incoming edges,
// pushing attributes back and dispatching output along outgoing edges.
//
//	type Doubler struct{ graph.Base }
//
//	func (d *Doubler) Forward(ctx context.Context, in graph.Message) (graph.Message, error) {
//	    return graph.Message{"x": in["x"].(int) * 2}, nil
//	}
type Node interface {
	// Name returns the name the node was registered under.
	Name() string

	// Forward computes the node's output from its aggregated input.
	// It must not retain or mutate in.
	Forward(ctx context.Context, in Message) (Message, error)

	base() *Base
}

// Dispatcher is implemented by nodes that decide themselves which outgoing
// edges receive their output. Nodes without it send to every outgoing edge.
type Dispatcher interface {
	Dispatch(ctx context.Context, out Message, edges []*Edge) error
}

// gateCloser is implemented by ports that notify their owning composite when
// they execute with a closed gate.
type gateCloser interface {
	gateClosed()
}

type nodeKind int

const (
	kindNode nodeKind = iota
	kindEntry
	kindExit
	kindController
	kindTerminate
)

// Base holds the state and execution protocol shared by every node.
// The zero value is ready to be embedded; a node becomes usable once it is
// registered with a graph.
type Base struct {
	name  string
	kind  nodeKind
	self  Node
	owner *BaseGraph

	in  []*Edge
	out []*Edge

	pull KeyPolicy
	push KeyPolicy

	attrs    Attributes
	gate     Gate
	built    bool
	injected Message

	hooks *hook.Manager
}

// NodeOption configures a node at registration time.
type NodeOption func(*Base)

// Pull sets the policy for copying attributes from the enclosing graph into
// the node's local store before each forward.
func Pull(p KeyPolicy) NodeOption {
	return func(b *Base) { b.pull = p }
}

// Push sets the policy for copying the node's local store back into the
// enclosing graph after each forward. An unset push policy mirrors pull.
func Push(p KeyPolicy) NodeOption {
	return func(b *Base) { b.push = p }
}

func (b *Base) base() *Base { return b }

// bind attaches the node to its owner under name.
func (b *Base) bind(name string, self Node, owner *BaseGraph) {
	b.name = name
	b.self = self
	b.owner = owner
	if b.attrs == nil {
		b.attrs = Attributes{}
	}
	b.built = true
}

// Name returns the registered name.
func (b *Base) Name() string { return b.name }

// Path returns the slash separated names from the root composite down to
// this node, e.g. "root/review/critic".
func (b *Base) Path() string {
	if b.owner == nil || b.owner.host == nil {
		return b.name
	}
	return b.owner.host.base().Path() + "/" + b.name
}

// IsBuilt reports whether the node has been registered with a graph.
func (b *Base) IsBuilt() bool { return b.built }

// Gate returns the node's gate state as of its last execution.
func (b *Base) Gate() Gate { return b.gate }

// Open sets the node's gate to Open.
func (b *Base) Open() { b.gate = Open }

// Close sets the node's gate to Closed. Closing during Forward suppresses
// dispatch: outgoing edges are closed instead of fed.
func (b *Base) Close() { b.gate = Closed }

// InEdges returns the incoming edges in connection order.
func (b *Base) InEdges() []*Edge { return b.in }

// OutEdges returns the outgoing edges in connection order.
func (b *Base) OutEdges() []*Edge { return b.out }

// PullPolicy returns the configured pull policy.
func (b *Base) PullPolicy() KeyPolicy { return b.pull }

// PushPolicy returns the configured push policy.
func (b *Base) PushPolicy() KeyPolicy { return b.push }

// Attributes returns the node's local attribute store. For composites this
// is the store their children pull from and push to.
func (b *Base) Attributes() Attributes {
	if b.attrs == nil {
		b.attrs = Attributes{}
	}
	return b.attrs
}

// Hooks returns the node's hook manager (stages "execute" and "forward").
func (b *Base) Hooks() *hook.Manager {
	if b.hooks == nil {
		b.hooks = hook.NewManager()
	}
	return b.hooks
}

// IsReady reports whether every incoming edge is congested or closed.
// A node without incoming edges is never ready on its own.
func (b *Base) IsReady() bool {
	if len(b.in) == 0 {
		return false
	}
	for _, e := range b.in {
		if !e.congested && e.gate != Closed {
			return false
		}
	}
	return true
}

// inject queues msg as input for the next execution and forces the gate open.
func (b *Base) inject(msg Message) {
	if msg == nil {
		msg = Message{}
	}
	b.injected = msg
}

// reset returns the node to its pre-invocation state.
func (b *Base) reset() {
	b.gate = Open
	b.injected = nil
}

// Execute runs one activation of the node against the enclosing graph's
// attribute store outer. It returns the forward output, or nil when the
// node was skipped because every incoming edge was closed.
func (b *Base) Execute(ctx context.Context, outer Attributes) (Message, error) {
	if b.self == nil {
		return nil, newEngineError(CodeNodeNotFound, "node is not registered with a graph")
	}
	return hook.Invoke(ctx, b.Hooks(), hook.StageExecute, hook.TargetOf(b.self), outer, func() (Message, error) {
		return b.execute(ctx, outer)
	})
}

func (b *Base) execute(ctx context.Context, outer Attributes) (Message, error) {
	injected := b.injected
	b.injected = nil

	if injected != nil {
		b.gate = Open
	} else {
		b.gate = b.incomingGate()
	}

	if b.gate == Closed {
		b.closeOutgoing()
		if c, ok := b.self.(gateCloser); ok {
			c.gateClosed()
		}
		b.reopenIncoming()
		LoggerFrom(ctx).Debug("node skipped", "node", b.Path())
		return nil, nil
	}

	if outer != nil {
		policy := b.pull
		if !policy.IsSet() {
			policy = AllKeys()
		}
		policy.copyAllowed(b.Attributes(), outer)
	}

	input := Message{}
	if injected != nil {
		input = injected.Clone()
	}
	for _, e := range b.in {
		if e.gate != Open || !e.congested {
			continue
		}
		msg, err := e.Receive(ctx)
		if err != nil {
			b.reopenIncoming()
			return nil, b.fail(err, "receive")
		}
		input = MergeMessage(input, msg)
	}

	fctx := nextStep(ctx)
	output, err := hook.Invoke(fctx, b.Hooks(), hook.StageForward, hook.TargetOf(b.self), input, func() (Message, error) {
		return b.self.Forward(fctx, input)
	})
	if err != nil {
		b.reopenIncoming()
		return nil, b.fail(err, "forward")
	}
	if output == nil {
		output = Message{}
	}

	if b.gate == Closed {
		b.closeOutgoing()
		b.pushTo(outer)
		b.reopenIncoming()
		return output, nil
	}

	maps.Copy(b.Attributes(), output)
	b.pushTo(outer)

	if err := b.dispatch(fctx, output); err != nil {
		b.reopenIncoming()
		return nil, b.fail(err, "dispatch")
	}

	b.reopenIncoming()
	b.gate = Open
	return output, nil
}

func (b *Base) incomingGate() Gate {
	for _, e := range b.in {
		if e.gate == Open {
			return Open
		}
	}
	return Closed
}

func (b *Base) pushTo(outer Attributes) {
	if outer == nil {
		return
	}
	policy := b.push
	if !policy.IsSet() {
		policy = b.pull
	}
	if !policy.IsSet() {
		policy = AllKeys()
	}
	policy.copyAllowed(outer, b.Attributes())
}

func (b *Base) dispatch(ctx context.Context, out Message) error {
	if d, ok := b.self.(Dispatcher); ok {
		return d.Dispatch(ctx, out, b.out)
	}
	for _, e := range b.out {
		if err := e.Send(ctx, out); err != nil {
			return err
		}
	}
	return nil
}

func (b *Base) closeOutgoing() {
	for _, e := range b.out {
		e.Close()
	}
}

func (b *Base) reopenIncoming() {
	for _, e := range b.in {
		e.Open()
	}
}

// fail wraps err with the node's path. Errors already attributed to a
// nested node pass through unchanged.
func (b *Base) fail(err error, msg string) error {
	var nerr *NodeError
	if errors.As(err, &nerr) {
		return err
	}
	return &NodeError{Message: msg + " failed", NodeID: b.Path(), Cause: err}
}

// isReady consults a node's own readiness rule when it overrides Base's.
func isReady(n Node) bool {
	if r, ok := n.(interface{ IsReady() bool }); ok {
		return r.IsReady()
	}
	return n.base().IsReady()
}

func isController(n Node) bool {
	return n != nil && n.base().kind == kindController
}
