package hook

import (
	"context"
	"time"
)

// Invoke runs fn wrapped in the three phases of stage.
//
// BEFORE is dispatched with args, then fn runs. On failure ERROR is dispatched
// with the error and the error is returned unchanged; on success AFTER is
// dispatched with the result. A nil manager runs fn directly.
func Invoke[T any](ctx context.Context, m *Manager, stage Stage, target Target, args any, fn func() (T, error)) (T, error) {
	if m == nil || m.Empty() {
		return fn()
	}

	m.Dispatch(Event{Ctx: ctx, Key: stage.Before(), Target: target, Args: args})

	start := time.Now()
	result, err := fn()
	elapsed := time.Since(start)

	if err != nil {
		m.Dispatch(Event{Ctx: ctx, Key: stage.Error(), Target: target, Args: args, Err: err, Duration: elapsed})
		return result, err
	}

	m.Dispatch(Event{Ctx: ctx, Key: stage.After(), Target: target, Args: args, Result: result, Duration: elapsed})
	return result, nil
}
