package graph

import "context"

// port is the shared shape of a composite's internal boundary nodes.
type port struct {
	Base
	onClose func()
}

func (p *port) gateClosed() {
	if p.onClose != nil {
		p.onClose()
	}
}

// Entry receives the composite's input and forwards it to the nodes
// connected from it. It only runs when the composite injects input.
type Entry struct {
	port
}

func newEntry(onClose func()) *Entry {
	e := &Entry{port{onClose: onClose}}
	e.kind = kindEntry
	e.pull = NoKeys()
	e.push = NoKeys()
	return e
}

// Forward returns a copy of in.
func (e *Entry) Forward(_ context.Context, in Message) (Message, error) {
	return in.Clone(), nil
}

// IsReady is always false; the entry port is driven by injection.
func (e *Entry) IsReady() bool { return false }

// Exit collects the composite's output. If every edge into it is closed it
// closes the composite instead.
type Exit struct {
	port
	output Message
}

func newExit(onClose func()) *Exit {
	e := &Exit{port: port{onClose: onClose}}
	e.kind = kindExit
	e.pull = NoKeys()
	e.push = NoKeys()
	return e
}

// Forward records in as the composite's output.
func (e *Exit) Forward(_ context.Context, in Message) (Message, error) {
	e.output = in.Clone()
	return in, nil
}

// Output returns the collected output, or an empty message when the exit
// has not run since the last reset.
func (e *Exit) Output() Message {
	if e.output == nil {
		return Message{}
	}
	return e.output.Clone()
}

func (e *Exit) reset() {
	e.Base.reset()
	e.output = nil
}

// Terminate ends a loop early. It becomes ready as soon as any incoming
// edge carries a message, and its input becomes the loop's output.
type Terminate struct {
	Base
	output Message
}

func newTerminate() *Terminate {
	t := &Terminate{}
	t.kind = kindTerminate
	t.pull = NoKeys()
	t.push = NoKeys()
	return t
}

// Forward records in as the loop's output.
func (t *Terminate) Forward(_ context.Context, in Message) (Message, error) {
	t.output = in.Clone()
	return in, nil
}

// IsReady reports whether any incoming edge is congested.
func (t *Terminate) IsReady() bool {
	for _, e := range t.in {
		if e.congested {
			return true
		}
	}
	return false
}

// Output returns the collected output.
func (t *Terminate) Output() Message {
	if t.output == nil {
		return Message{}
	}
	return t.output.Clone()
}

func (t *Terminate) reset() {
	t.Base.reset()
	t.output = nil
}
