// Package hook provides the instrumentation substrate used by the graph engine.
//
// Every hookable object (nodes, edges, composites) owns a Manager. A Manager is a
// typed publish/subscribe registry keyed by a Stage and a Phase:
//
//	m := hook.NewManager()
//	m.Register(hook.StageForward.After(), func(ev hook.Event) {
//	    fmt.Println(ev.Target.Name, "produced", ev.Result)
//	})
//
// Invoke wraps an operation so that BEFORE, AFTER and ERROR events are dispatched
// around it. Selectors decide which objects a registration applies to and can be
// evaluated against live objects or against bare declarations (name + type), which
// is what lets template rules match before any instance exists.
package hook

import (
	"context"
	"time"
)

// Phase identifies when, relative to the wrapped operation, an event fires.
type Phase int

const (
	// Before fires with the call arguments, before the operation runs.
	Before Phase = iota
	// After fires with the result when the operation succeeded.
	After
	// Error fires with the error when the operation failed.
	Error
)

// String returns the lowercase phase name.
func (p Phase) String() string {
	switch p {
	case Before:
		return "before"
	case After:
		return "after"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Stage names a hookable operation, e.g. "forward" or "send".
type Stage string

// Stages dispatched by the graph engine.
const (
	StageExecute Stage = "execute"
	StageForward Stage = "forward"
	StageSend    Stage = "send"
	StageReceive Stage = "receive"
)

// Before returns the dispatch key for the BEFORE phase of s.
func (s Stage) Before() Key { return Key{Stage: s, Phase: Before} }

// After returns the dispatch key for the AFTER phase of s.
func (s Stage) After() Key { return Key{Stage: s, Phase: After} }

// Error returns the dispatch key for the ERROR phase of s.
func (s Stage) Error() Key { return Key{Stage: s, Phase: Error} }

// Keys returns the three dispatch keys of s.
func (s Stage) Keys() []Key { return []Key{s.Before(), s.After(), s.Error()} }

// Key is the dispatch key of a registration.
type Key struct {
	Stage Stage
	Phase Phase
}

// String renders the key as "stage.phase".
func (k Key) String() string {
	return string(k.Stage) + "." + k.Phase.String()
}

// Event is delivered to callbacks.
type Event struct {
	// Ctx is the context of the wrapped operation. It carries run-scoped
	// values such as the run ID.
	Ctx context.Context

	Key    Key
	Target Target

	// Args holds the call arguments (BEFORE), Result the return value (AFTER)
	// and Err the failure (ERROR).
	Args   any
	Result any
	Err    error

	// Duration is the wall time of the operation; zero for BEFORE events.
	Duration time.Duration
}

// Callback receives dispatched events. Callbacks observe; they cannot alter
// the outcome of the wrapped operation.
type Callback func(Event)
