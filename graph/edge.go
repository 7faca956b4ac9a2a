package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/masf-go/graph/hook"
)

// Edge is a single-slot directed channel between two nodes.
//
// An edge buffers at most one message. Send fails while a message is
// buffered (the edge is congested) and fails when the message lacks any of
// the edge's declared keys. Receive hands the buffered message over and
// clears the congestion.
//
// The gate is independent of the buffer: Open and Close only toggle
// participation, Reset clears everything between whole-graph invocations.
//
// Edges are created by BaseGraph.Connect and owned by that graph.
type Edge struct {
	sender   Node
	receiver Node

	// keys filters the payload. Empty keys forward the whole message.
	keys Keys

	buffered  Message
	congested bool
	gate      Gate

	hooks *hook.Manager
}

func newEdge(sender, receiver Node, keys Keys) *Edge {
	return &Edge{
		sender:   sender,
		receiver: receiver,
		keys:     keys,
		hooks:    hook.NewManager(),
	}
}

// Name identifies the edge as "sender->receiver".
func (e *Edge) Name() string {
	return e.sender.Name() + "->" + e.receiver.Name()
}

// Sender returns the producing node.
func (e *Edge) Sender() Node { return e.sender }

// Receiver returns the consuming node.
func (e *Edge) Receiver() Node { return e.receiver }

// Keys returns the declared payload keys.
func (e *Edge) Keys() Keys { return e.keys }

// Gate returns the current gate state.
func (e *Edge) Gate() Gate { return e.gate }

// IsCongested reports whether a message is buffered.
func (e *Edge) IsCongested() bool { return e.congested }

// Hooks returns the edge's hook manager (stages "send" and "receive").
func (e *Edge) Hooks() *hook.Manager { return e.hooks }

// Send buffers the key-filtered projection of msg and opens the gate.
func (e *Edge) Send(ctx context.Context, msg Message) error {
	_, err := hook.Invoke(ctx, e.hooks, hook.StageSend, hook.TargetOf(e), msg, func() (Message, error) {
		return e.send(msg)
	})
	return err
}

func (e *Edge) send(msg Message) (Message, error) {
	if e.congested {
		return nil, fmt.Errorf("%w: %s", ErrEdgeCongested, e.Name())
	}

	var payload Message
	if len(e.keys) == 0 {
		payload = msg.Clone()
	} else {
		var missing []string
		payload = make(Message, len(e.keys))
		for _, k := range e.keys.Names() {
			v, ok := msg[k]
			if !ok {
				missing = append(missing, k)
				continue
			}
			payload[k] = v
		}
		if len(missing) > 0 {
			return nil, fmt.Errorf("%w on edge %s: %s", ErrMissingKey, e.Name(), strings.Join(missing, ", "))
		}
	}

	e.buffered = payload
	e.congested = true
	e.gate = Open
	return payload, nil
}

// Receive returns and clears the buffered message.
func (e *Edge) Receive(ctx context.Context) (Message, error) {
	return hook.Invoke(ctx, e.hooks, hook.StageReceive, hook.TargetOf(e), nil, func() (Message, error) {
		if !e.congested {
			return nil, fmt.Errorf("%w: %s", ErrEdgeEmpty, e.Name())
		}
		msg := e.buffered
		e.buffered = nil
		e.congested = false
		return msg, nil
	})
}

// Open sets the gate to Open. The buffer is untouched.
func (e *Edge) Open() { e.gate = Open }

// Close sets the gate to Closed. The buffer is untouched.
func (e *Edge) Close() { e.gate = Closed }

// Reset clears the buffer and congestion and reopens the gate.
func (e *Edge) Reset() {
	e.buffered = nil
	e.congested = false
	e.gate = Open
}
