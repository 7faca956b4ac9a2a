package emit

// NullEmitter implements Emitter by discarding all events.
//
// Use it to disable event emission without changing graph wiring.
type NullEmitter struct{}

// NewNullEmitter creates a new NullEmitter.
func NewNullEmitter() *NullEmitter {
	return &NullEmitter{}
}

// Emit discards the event.
func (n *NullEmitter) Emit(Event) {}
