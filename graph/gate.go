package graph

// Gate controls whether a node or edge participates in the current execution pass.
type Gate int

const (
	// Open means the node or edge may still receive or produce messages.
	Open Gate = iota
	// Closed means the node or edge is done for this execution pass.
	Closed
)

// String returns "open" or "closed".
func (g Gate) String() string {
	if g == Closed {
		return "closed"
	}
	return "open"
}
