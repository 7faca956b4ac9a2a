package emit

import "time"

// Event messages emitted by the graph engine.
const (
	MsgNodeStart  = "node_start"
	MsgNodeEnd    = "node_end"
	MsgNodeError  = "node_error"
	MsgNodeClosed = "node_closed"
	MsgEdgeSend   = "edge_send"
)

// Event represents an observability event emitted while a graph runs.
//
// Events cover node lifecycle (start, end, error, skipped because every
// incoming edge was closed) and edge transfers. They are delivered to an
// Emitter which may log them, buffer them for inspection or turn them into
// OpenTelemetry spans.
type Event struct {
	// RunID identifies the root invocation that emitted this event.
	RunID string

	// Step is the step number of the node activation (1-indexed).
	// Zero for events outside a forward, such as skipped nodes.
	Step int

	// NodeID is the slash separated path of the node, e.g. "root/review/critic".
	// For edge events it is the edge name, e.g. "draft->critic".
	NodeID string

	// Msg is the event type, one of the Msg* constants.
	Msg string

	// Time is when the event was produced.
	Time time.Time

	// Meta contains additional structured data specific to this event.
	// Common keys:
	//   - "duration_ms": forward duration in milliseconds
	//   - "error": error text
	//   - "keys": sorted message keys
	//   - "type": node type name
	Meta map[string]any
}
