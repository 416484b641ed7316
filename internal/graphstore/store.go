// Package graphstore defines the interface for holding and editing the
// workflow graph of one editing session.
//
// # Responsibilities
//
// A graph store owns the node and edge lists and is the only component that
// mutates them. Every mutation goes through three steps:
//  1. the structural gate (node existence, connection.Check for edges),
//  2. the mutation itself,
//  3. one pairing re-derivation over the resulting graph.
//
// If step 1 fails nothing changes and the caller gets an error that
// unwraps to workflow.ErrUnknownNode, workflow.ErrUnknownEdge or
// connection.ErrInvalidConnection.
//
// # Invariants
//
// After every operation, successful or not:
//   - every edge endpoint names a node in the store,
//   - no edge has Source == Target,
//   - every edge passes connection.Check,
//   - every loop/merge pairing matches pairing.Recompute over the current edges.
//
// # Ordering
//
// Nodes and edges keep insertion order. The pairing resolver relies on edge
// order to pick the first outgoing edge of a node.
package graphstore

import (
	"context"

	"github.com/specialistvlad/gridflow/internal/catalog"
	"github.com/specialistvlad/gridflow/internal/workflow"
	"github.com/zclconf/go-cty/cty"
)

// Store is the editable graph of one session.
//
// See internal/inmemorygraph for the implementation.
type Store interface {
	// AddNode creates a node of kind with a fresh id, the catalog defaults
	// and the given parameter overrides. It fails only for an unknown kind
	// or a parameter the kind rejects.
	AddNode(ctx context.Context, kind catalog.Kind, params map[string]cty.Value) (workflow.Node, error)

	// MoveNode updates canvas geometry. It never affects edges or pairing.
	MoveNode(ctx context.Context, id string, pos workflow.Position) error

	// RemoveNode deletes a node and every edge touching it, then re-derives
	// pairings once.
	RemoveNode(ctx context.Context, id string) error

	// AddEdge connects source to target after validating the connection.
	AddEdge(ctx context.Context, source, target string) (workflow.Edge, error)

	// RemoveEdge deletes one edge and re-derives pairings.
	RemoveEdge(ctx context.Context, id string) error

	// RemoveEdges deletes a batch of edges and re-derives pairings once for
	// the whole batch. Unknown ids abort the batch before anything changes.
	RemoveEdges(ctx context.Context, ids ...string) error

	// UpdateNodeParameters merges patch into the node's parameters. The
	// "label" key renames the node; any other key must be declared by the
	// node's kind. Edges and partners are never changed.
	UpdateNodeParameters(ctx context.Context, id string, patch map[string]cty.Value) (workflow.Node, error)

	// Replace swaps the whole graph for g after checking every invariant.
	// On error the previous graph is kept.
	Replace(ctx context.Context, g workflow.Graph) error

	// Node returns a copy of one node.
	Node(ctx context.Context, id string) (workflow.Node, bool)

	// Nodes and Edges return copies in insertion order.
	Nodes(ctx context.Context) []workflow.Node
	Edges(ctx context.Context) []workflow.Edge

	// Snapshot returns a copy of the whole graph in insertion order.
	Snapshot(ctx context.Context) workflow.Graph
}

// LabelField is the patch key that renames a node.
const LabelField = "label"
