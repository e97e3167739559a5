package dagedit

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDuplicateID          = errors.New("dag: duplicate id")
	ErrInvalidNodeReference = errors.New("dag: edge references a missing node")
	ErrSelfLoop             = errors.New("dag: self-loop")
	ErrDuplicateEdge        = errors.New("dag: duplicate edge")
	ErrCycleDetected        = errors.New("dag: cycle detected, graph is not acyclic")
	ErrNotFound             = errors.New("dag: not found")
	ErrMalformedLine        = errors.New("dag: malformed adjacency line")
	ErrNothingToUndo        = errors.New("dag: nothing to undo")
	ErrNothingToRedo        = errors.New("dag: nothing to redo")
	ErrUnencodableLabel     = errors.New("dag: label cannot be written as adjacency text")
)

// Kind identifies the category of a ValidationError.
type Kind string

const (
	KindDuplicateID          Kind = "duplicate_id"
	KindInvalidNodeReference Kind = "invalid_node_reference"
	KindSelfLoop             Kind = "self_loop"
	KindDuplicateEdge        Kind = "duplicate_edge"
	KindCycleDetected        Kind = "cycle_detected"
	KindNotFound             Kind = "not_found"
	KindMalformedLine        Kind = "malformed_line"
)

var kindSentinels = map[Kind]error{
	KindDuplicateID:          ErrDuplicateID,
	KindInvalidNodeReference: ErrInvalidNodeReference,
	KindSelfLoop:             ErrSelfLoop,
	KindDuplicateEdge:        ErrDuplicateEdge,
	KindCycleDetected:        ErrCycleDetected,
	KindNotFound:             ErrNotFound,
	KindMalformedLine:        ErrMalformedLine,
}

// ValidationError describes one problem with a candidate graph or input.
// Only the fields relevant to Kind are set.
type ValidationError struct {
	Kind     Kind     `json:"kind"`
	ID       string   `json:"id,omitempty"`
	EdgeID   string   `json:"edge_id,omitempty"`
	NodeID   string   `json:"node_id,omitempty"`
	SourceID string   `json:"source_id,omitempty"`
	TargetID string   `json:"target_id,omitempty"`
	Path     []string `json:"path,omitempty"`
	Line     int      `json:"line,omitempty"`
	Message  string   `json:"message"`
}

func (e ValidationError) Error() string { return e.Message }

// Unwrap returns the sentinel for the error's kind, so errors.Is matches
// e.g. ErrCycleDetected.
func (e ValidationError) Unwrap() error { return kindSentinels[e.Kind] }

// DuplicateID reports a node or edge id used more than once.
func DuplicateID(id string) ValidationError {
	return ValidationError{Kind: KindDuplicateID, ID: id,
		Message: fmt.Sprintf("id %q is used more than once", id)}
}

// InvalidNodeReference reports an edge whose source or target is not in the graph.
func InvalidNodeReference(edgeID string) ValidationError {
	return ValidationError{Kind: KindInvalidNodeReference, EdgeID: edgeID,
		Message: fmt.Sprintf("edge %q references a node that does not exist", edgeID)}
}

// SelfLoop reports an edge from a node to itself.
func SelfLoop(nodeID string) ValidationError {
	return ValidationError{Kind: KindSelfLoop, NodeID: nodeID,
		Message: fmt.Sprintf("node %q has an edge to itself", nodeID)}
}

// DuplicateEdge reports a second edge with the same ordered endpoints.
func DuplicateEdge(sourceID, targetID string) ValidationError {
	return ValidationError{Kind: KindDuplicateEdge, SourceID: sourceID, TargetID: targetID,
		Message: fmt.Sprintf("edge %q -> %q already exists", sourceID, targetID)}
}

// CycleDetected reports a closed walk. path starts and ends at the same node.
func CycleDetected(path []string) ValidationError {
	return ValidationError{Kind: KindCycleDetected, Path: path,
		Message: "cycle detected: " + strings.Join(path, " -> ")}
}

// NotFound reports a mutation that named a node or edge id that does not exist.
func NotFound(id string) ValidationError {
	return ValidationError{Kind: KindNotFound, ID: id,
		Message: fmt.Sprintf("%q not found", id)}
}

// MalformedLine reports an adjacency line that could not be parsed.
// line is 1-based.
func MalformedLine(line int, reason string) ValidationError {
	return ValidationError{Kind: KindMalformedLine, Line: line,
		Message: fmt.Sprintf("line %d: %s", line, reason)}
}

// ValidationResult is the outcome of validating a candidate graph.
// IsValid is true iff Errors is empty.
type ValidationResult struct {
	IsValid bool              `json:"is_valid"`
	Errors  []ValidationError `json:"errors"`
}

func newResult(errs []ValidationError) ValidationResult {
	if errs == nil {
		errs = []ValidationError{}
	}
	return ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}

// Has reports whether any error of the given kind is present.
func (r ValidationResult) Has(kind Kind) bool {
	for _, e := range r.Errors {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

// Err returns nil for a valid result and a *RejectedError otherwise.
func (r ValidationResult) Err() error {
	if r.IsValid {
		return nil
	}
	return &RejectedError{Result: r}
}

// RejectedError is returned by every operation that refuses a candidate state.
// It carries the complete result so callers can show every problem at once.
type RejectedError struct {
	Result ValidationResult
}

func (e *RejectedError) Error() string {
	errs := e.Result.Errors
	switch len(errs) {
	case 0:
		return "dag: rejected"
	case 1:
		return "dag: rejected: " + errs[0].Message
	default:
		return fmt.Sprintf("dag: rejected: %s (and %d more)", errs[0].Message, len(errs)-1)
	}
}

// Unwrap exposes every ValidationError, so errors.Is(err, ErrSelfLoop) holds
// when any entry is a self-loop.
func (e *RejectedError) Unwrap() []error {
	out := make([]error, len(e.Result.Errors))
	for i, ve := range e.Result.Errors {
		out[i] = ve
	}
	return out
}

// reject wraps errs in a *RejectedError.
func reject(errs ...ValidationError) error {
	return &RejectedError{Result: newResult(errs)}
}
