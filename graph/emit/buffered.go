package emit

import (
	"slices"
	"sync"
)

// BufferedEmitter implements Emitter by keeping events in memory, grouped
// by run ID. It backs tests and the CLI's --trace output.
//
// All events are retained until Clear is called, so it is not meant for
// long-lived production processes.
//
//	emitter := emit.NewBufferedEmitter()
//	g := graph.NewGraph(graph.WithEmitter(emitter))
//	...
//	errs := emitter.Filter(runID, emit.HistoryFilter{Msg: emit.MsgNodeError})
type BufferedEmitter struct {
	mu     sync.RWMutex
	order  []string
	events map[string][]Event
}

// HistoryFilter selects events. Empty fields match everything; all set
// fields must match.
type HistoryFilter struct {
	NodeID  string
	Msg     string
	MinStep *int
	MaxStep *int
}

// Match reports whether event satisfies the filter.
func (f HistoryFilter) Match(event Event) bool {
	if f.NodeID != "" && event.NodeID != f.NodeID {
		return false
	}
	if f.Msg != "" && event.Msg != f.Msg {
		return false
	}
	if f.MinStep != nil && event.Step < *f.MinStep {
		return false
	}
	if f.MaxStep != nil && event.Step > *f.MaxStep {
		return false
	}
	return true
}

// NewBufferedEmitter creates an empty BufferedEmitter.
func NewBufferedEmitter() *BufferedEmitter {
	return &BufferedEmitter{events: make(map[string][]Event)}
}

// Emit stores event.
func (b *BufferedEmitter) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.events[event.RunID]; !ok {
		b.order = append(b.order, event.RunID)
	}
	b.events[event.RunID] = append(b.events[event.RunID], event)
}

// Runs returns the run IDs seen so far in first-seen order.
func (b *BufferedEmitter) Runs() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.order)
}

// History returns a copy of every event of runID in emission order.
func (b *BufferedEmitter) History(runID string) []Event {
	return b.Filter(runID, HistoryFilter{})
}

// Filter returns the events of runID accepted by f, in emission order.
// The result is never nil.
func (b *BufferedEmitter) Filter(runID string, f HistoryFilter) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := []Event{}
	for _, ev := range b.events[runID] {
		if f.Match(ev) {
			out = append(out, ev)
		}
	}
	return out
}

// Clear drops the events of runID, or of every run when runID is empty.
func (b *BufferedEmitter) Clear(runID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if runID == "" {
		b.events = make(map[string][]Event)
		b.order = nil
		return
	}
	delete(b.events, runID)
	b.order = slices.DeleteFunc(b.order, func(id string) bool { return id == runID })
}
