package graph

import (
	"context"
	"fmt"
	"regexp"
	"slices"

	"github.com/dshills/masf-go/graph/hook"
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// composite is implemented by nodes that own a subgraph (Graph and Loop).
type composite interface {
	Node
	subgraph() *BaseGraph
}

// BaseGraph is the registry shared by composite nodes: child nodes in
// declaration order, the edges between them and the composite's internal
// ports.
//
// BaseGraph is embedded by Graph and Loop and is not used on its own.
type BaseGraph struct {
	host Node

	nodes  []Node
	byName map[string]Node

	// ports maps reserved names to internal boundary nodes. Several
	// names may alias the same port.
	ports     map[string]Node
	portOrder []Node
	reserved  []string

	edges []*Edge

	// recursive hook registrations applied to nodes and edges added later.
	hookRegs []*HookRegistration
}

func (g *BaseGraph) init(host Node, reserved ...string) {
	g.host = host
	g.byName = map[string]Node{}
	g.ports = map[string]Node{}
	g.reserved = reserved
}

func (g *BaseGraph) subgraph() *BaseGraph { return g }

// bindPort registers an internal port under one or more reserved names.
// The first alias becomes the port's name.
func (g *BaseGraph) bindPort(n Node, aliases ...string) {
	n.base().bind(aliases[0], n, g)
	for _, a := range aliases {
		g.ports[a] = n
	}
	g.portOrder = append(g.portOrder, n)
}

// AddNode registers n under name. Registering the same instance under the
// same name again is a no-op.
func (g *BaseGraph) AddNode(name string, n Node, opts ...NodeOption) (Node, error) {
	if n == nil {
		return nil, newEngineError(CodeInvalidConfig, fmt.Sprintf("node %q is nil", name))
	}
	if err := g.checkName(name); err != nil {
		return nil, err
	}
	if existing, ok := g.byName[name]; ok {
		if existing == n {
			return n, nil
		}
		return nil, newEngineError(CodeDuplicateNode, fmt.Sprintf("node %q already registered", name))
	}

	b := n.base()
	if b.owner != nil {
		if b.owner == g {
			return nil, newEngineError(CodeDuplicateNode, fmt.Sprintf("node already registered as %q", b.name))
		}
		return nil, newEngineError(CodeForeignNode, fmt.Sprintf("node %q belongs to %s", b.name, b.Path()))
	}
	if g.encloses(n) {
		return nil, newEngineError(CodeInvalidConfig, fmt.Sprintf("node %q cannot be registered inside itself", name))
	}

	for _, opt := range opts {
		opt(b)
	}
	b.bind(name, n, g)
	g.nodes = append(g.nodes, n)
	g.byName[name] = n

	for _, reg := range g.hookRegs {
		reg.attach(n)
	}
	return n, nil
}

// checkName rejects names that do not match the name rule or are reserved
// for the composite's ports.
func (g *BaseGraph) checkName(name string) error {
	if !namePattern.MatchString(name) {
		return newEngineError(CodeInvalidName, fmt.Sprintf("invalid node name %q: use letters, digits, '_' or '-'", name))
	}
	if slices.Contains(g.reserved, name) {
		return newEngineError(CodeReservedName, fmt.Sprintf("node name %q is reserved", name))
	}
	return nil
}

// AddTemplate materializes tmpl under name with the template scopes in ctx
// and registers the result. The name is validated before anything is built.
func (g *BaseGraph) AddTemplate(ctx context.Context, name string, tmpl *NodeTemplate, opts ...NodeOption) (Node, error) {
	if err := g.checkName(name); err != nil {
		return nil, err
	}
	if _, ok := g.byName[name]; ok {
		return nil, newEngineError(CodeDuplicateNode, fmt.Sprintf("node %q already registered", name))
	}
	n, err := tmpl.Materialize(ctx, name)
	if err != nil {
		return nil, err
	}
	return g.AddNode(name, n, opts...)
}

// encloses reports whether n is the host of g or one of its ancestors.
func (g *BaseGraph) encloses(n Node) bool {
	for cur := g; cur != nil; {
		if cur.host == n {
			return true
		}
		if cur.host == nil {
			return false
		}
		cur = cur.host.base().owner
	}
	return false
}

// Node looks up a child or port by name.
func (g *BaseGraph) Node(name string) (Node, bool) {
	if p, ok := g.ports[name]; ok {
		return p, true
	}
	n, ok := g.byName[name]
	return n, ok
}

// Nodes returns the child nodes in declaration order, ports excluded.
func (g *BaseGraph) Nodes() []Node {
	return slices.Clone(g.nodes)
}

// Ports returns the internal ports in creation order.
func (g *BaseGraph) Ports() []Node {
	return slices.Clone(g.portOrder)
}

// Edges returns the edges in connection order.
func (g *BaseGraph) Edges() []*Edge {
	return slices.Clone(g.edges)
}

func (g *BaseGraph) owns(n Node) bool {
	if n == nil {
		return false
	}
	return slices.Contains(g.portOrder, n) || g.byName[n.Name()] == n
}

// Connect adds a directed edge from sender to receiver carrying keys.
// Both endpoints must belong to this graph. Cycles are rejected unless they
// pass through a loop controller.
func (g *BaseGraph) Connect(sender, receiver Node, keys Keys) (*Edge, error) {
	for _, n := range []Node{sender, receiver} {
		if n == nil {
			return nil, newEngineError(CodeNodeNotFound, "edge endpoint is nil")
		}
		if !g.owns(n) {
			if n.base().owner == nil {
				return nil, newEngineError(CodeNodeNotFound, fmt.Sprintf("node %q is not registered", n.Name()))
			}
			return nil, newEngineError(CodeForeignNode, fmt.Sprintf("node %s does not belong to this graph", n.base().Path()))
		}
	}
	for _, e := range sender.base().out {
		if e.receiver == receiver {
			return nil, newEngineError(CodeDuplicateEdge, fmt.Sprintf("edge %s already exists", e.Name()))
		}
	}
	if g.wouldCycle(sender, receiver) {
		return nil, newEngineError(CodeCycle, fmt.Sprintf("edge %s->%s creates a cycle", sender.Name(), receiver.Name()))
	}

	e := newEdge(sender, receiver, keys)
	sender.base().out = append(sender.base().out, e)
	receiver.base().in = append(receiver.base().in, e)
	g.edges = append(g.edges, e)

	for _, reg := range g.hookRegs {
		reg.attach(e)
	}
	return e, nil
}

// ConnectNames is Connect with endpoints looked up by name.
func (g *BaseGraph) ConnectNames(from, to string, keys Keys) (*Edge, error) {
	sender, ok := g.Node(from)
	if !ok {
		return nil, newEngineError(CodeNodeNotFound, fmt.Sprintf("node %q not found", from))
	}
	receiver, ok := g.Node(to)
	if !ok {
		return nil, newEngineError(CodeNodeNotFound, fmt.Sprintf("node %q not found", to))
	}
	return g.Connect(sender, receiver, keys)
}

// wouldCycle reports whether sender->receiver closes a cycle that does not
// pass through a controller.
func (g *BaseGraph) wouldCycle(sender, receiver Node) bool {
	if isController(sender) || isController(receiver) {
		return false
	}
	seen := map[Node]bool{}
	stack := []Node{receiver}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == sender {
			return true
		}
		if seen[n] || isController(n) {
			continue
		}
		seen[n] = true
		for _, e := range n.base().out {
			stack = append(stack, e.receiver)
		}
	}
	return false
}

// resetSubgraph clears every child, port and edge ahead of an invocation.
func (g *BaseGraph) resetSubgraph() {
	for _, n := range g.portOrder {
		resetNode(n)
	}
	for _, n := range g.nodes {
		resetNode(n)
	}
	for _, e := range g.edges {
		e.Reset()
	}
}

func resetNode(n Node) {
	if r, ok := n.(interface{ reset() }); ok {
		r.reset()
		return
	}
	n.base().reset()
}

// nextReady returns the first ready child in declaration order.
func (g *BaseGraph) nextReady() Node {
	for _, n := range g.nodes {
		if isReady(n) {
			return n
		}
	}
	return nil
}

// RegisterHook attaches cb under key to the composite itself and, with
// Recursive, to every node, port and edge inside it, including ones added
// later and those of nested composites. Selector options narrow the targets.
func (g *BaseGraph) RegisterHook(key hook.Key, cb hook.Callback, opts ...HookOption) *HookRegistration {
	reg := &HookRegistration{key: key, cb: cb}
	for _, opt := range opts {
		opt(reg)
	}
	if g.host != nil {
		reg.attachOne(g.host)
	}
	if reg.recursive {
		g.adopt(reg)
	}
	return reg
}

// adopt applies a recursive registration to everything inside g and
// remembers it for later additions.
func (g *BaseGraph) adopt(reg *HookRegistration) {
	g.hookRegs = append(g.hookRegs, reg)
	for _, n := range g.portOrder {
		reg.attachOne(n)
	}
	for _, n := range g.nodes {
		reg.attach(n)
	}
	for _, e := range g.edges {
		reg.attachOne(e)
	}
}

// HookOption narrows a hook registration.
type HookOption func(*HookRegistration)

// Recursive extends a registration to everything inside the composite.
func Recursive() HookOption {
	return func(r *HookRegistration) { r.recursive = true }
}

// ForTypes restricts a registration to targets of the given type names.
func ForTypes(types ...string) HookOption {
	return func(r *HookRegistration) { r.selector.Types = append(r.selector.Types, types...) }
}

// ForNames restricts a registration to targets whose name matches one of
// the glob patterns.
func ForNames(patterns ...string) HookOption {
	return func(r *HookRegistration) { r.selector.Names = append(r.selector.Names, patterns...) }
}

// Where restricts a registration to targets accepted by pred.
func Where(pred func(hook.Target) bool) HookOption {
	return func(r *HookRegistration) { r.selector.Predicate = pred }
}

// HookRegistration is the result of RegisterHook. Remove detaches the
// callback everywhere it was applied.
type HookRegistration struct {
	key       hook.Key
	cb        hook.Callback
	recursive bool
	selector  hook.Selector

	handles []hook.Handle
	removed bool
}

func managerOf(obj any) *hook.Manager {
	switch o := obj.(type) {
	case Node:
		return o.base().Hooks()
	case *Edge:
		return o.hooks
	}
	return nil
}

func (r *HookRegistration) attachOne(obj any) {
	m := managerOf(obj)
	if m == nil || r.removed || !r.selector.MatchObject(obj) {
		return
	}
	r.handles = append(r.handles, m.Register(r.key, r.cb))
}

// attach applies r to n and, for composites, adopts it into n's subgraph.
func (r *HookRegistration) attach(obj any) {
	r.attachOne(obj)
	if c, ok := obj.(composite); ok && r.recursive && !r.removed {
		c.subgraph().adopt(r)
	}
}

// Count returns how many managers the callback is attached to.
func (r *HookRegistration) Count() int {
	return len(r.handles)
}

// Remove detaches the callback and stops it from being applied to objects
// added later.
func (r *HookRegistration) Remove() {
	r.removed = true
	for _, h := range r.handles {
		h.Remove()
	}
	r.handles = nil
}
