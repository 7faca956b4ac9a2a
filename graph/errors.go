// Package graph provides the core graph execution engine for masf-go.
package graph

import "errors"

// Error codes carried by EngineError. Construction-time failures always use
// one of these codes; callers can compare with errors.Is against the
// sentinels below.
const (
	CodeInvalidName   = "INVALID_NAME"
	CodeReservedName  = "RESERVED_NAME"
	CodeDuplicateNode = "DUPLICATE_NODE"
	CodeForeignNode   = "FOREIGN_NODE"
	CodeNodeNotFound  = "NODE_NOT_FOUND"
	CodeDuplicateEdge = "DUPLICATE_EDGE"
	CodeCycle         = "CYCLE"
	CodeNoTermination = "NO_TERMINATION"
	CodeInvalidConfig = "INVALID_CONFIG"
	CodeTemplate      = "TEMPLATE_ERROR"
)

// Sentinels for errors.Is matching of construction failures.
var (
	ErrInvalidName   = &EngineError{Code: CodeInvalidName, Message: "invalid node name"}
	ErrReservedName  = &EngineError{Code: CodeReservedName, Message: "reserved node name"}
	ErrDuplicateNode = &EngineError{Code: CodeDuplicateNode, Message: "duplicate node name"}
	ErrForeignNode   = &EngineError{Code: CodeForeignNode, Message: "node belongs to another graph"}
	ErrNodeNotFound  = &EngineError{Code: CodeNodeNotFound, Message: "node not found"}
	ErrDuplicateEdge = &EngineError{Code: CodeDuplicateEdge, Message: "duplicate edge"}
	ErrCycle         = &EngineError{Code: CodeCycle, Message: "edge would create a cycle"}
	ErrNoTermination = &EngineError{Code: CodeNoTermination, Message: "loop has no termination strategy"}
	ErrInvalidConfig = &EngineError{Code: CodeInvalidConfig, Message: "invalid configuration"}
	ErrTemplate      = &EngineError{Code: CodeTemplate, Message: "template materialization failed"}
)

// Edge runtime errors.
var (
	// ErrEdgeCongested is returned by Edge.Send when a message is already buffered.
	ErrEdgeCongested = errors.New("edge is congested")

	// ErrMissingKey is returned by Edge.Send when the message lacks a required key.
	ErrMissingKey = errors.New("message is missing required key")

	// ErrEdgeEmpty is returned by Edge.Receive when nothing is buffered.
	ErrEdgeEmpty = errors.New("edge has no buffered message")
)

// EngineError represents a graph construction or configuration failure.
type EngineError struct {
	Message string
	Code    string
}

func (e *EngineError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}

// Is matches any EngineError with the same code.
func (e *EngineError) Is(target error) bool {
	var other *EngineError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code != "" && other.Code == e.Code
}

func newEngineError(code, msg string) *EngineError {
	return &EngineError{Code: code, Message: msg}
}

// NodeError represents an error that occurred during node execution.
// It provides structured error information for better observability and debugging.
type NodeError struct {
	// Message is the human-readable error description.
	Message string

	// NodeID is the path of the failing node, e.g. "root/review/critic".
	NodeID string

	// Cause is the underlying error that caused this NodeError.
	Cause error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		if msg != "" {
			msg += ": "
		}
		msg += e.Cause.Error()
	}
	if e.NodeID != "" {
		return "node " + e.NodeID + ": " + msg
	}
	return msg
}

// Unwrap returns the underlying cause error for error wrapping support.
func (e *NodeError) Unwrap() error {
	return e.Cause
}
