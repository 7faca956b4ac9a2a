package emit

// Emitter receives observability events from graph execution.
//
// Implementations should be non-blocking and must not panic; a failing
// backend should drop or buffer events rather than fail the run.
type Emitter interface {
	// Emit sends an observability event to the configured backend.
	Emit(event Event)
}

// MultiEmitter fans every event out to each wrapped emitter in order.
type MultiEmitter []Emitter

// Emit forwards event to every non-nil emitter.
func (m MultiEmitter) Emit(event Event) {
	for _, e := range m {
		if e != nil {
			e.Emit(event)
		}
	}
}
