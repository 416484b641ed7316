package workflow

import "errors"

var (
	// ErrUnknownNode is returned when an operation names a node id that is
	// not in the graph. The graph is left unchanged.
	ErrUnknownNode = errors.New("unknown node")

	// ErrUnknownEdge is returned when an operation names an edge id that is
	// not in the graph. The graph is left unchanged.
	ErrUnknownEdge = errors.New("unknown edge")

	// ErrMalformedDocument is returned when a persisted document cannot be
	// turned into a graph that satisfies every structural invariant.
	ErrMalformedDocument = errors.New("malformed document")
)
