package graphstore

import (
	"fmt"

	"github.com/specialistvlad/gridflow/internal/catalog"
	"github.com/specialistvlad/gridflow/internal/connection"
	"github.com/specialistvlad/gridflow/internal/nodeid"
	"github.com/specialistvlad/gridflow/internal/workflow"
)

// Verify checks the structural invariants of g: valid unique node ids,
// catalog kinds, valid unique edge ids, existing endpoints, at most one edge
// per source/target pair and connection.Check on every edge. Pairings are
// not inspected; they are derived.
func Verify(g workflow.Graph) error {
	kinds := make(map[string]catalog.Kind, len(g.Nodes))
	for i, n := range g.Nodes {
		if err := nodeid.Validate(n.ID); err != nil {
			return fmt.Errorf("node #%d: %w", i, err)
		}
		if _, dup := kinds[n.ID]; dup {
			return fmt.Errorf("duplicate node id '%s'", n.ID)
		}
		if !catalog.Known(n.Kind) {
			return fmt.Errorf("node '%s' has unknown kind '%s'", n.ID, n.Kind)
		}
		kinds[n.ID] = n.Kind
	}

	edgeIDs := make(map[string]struct{}, len(g.Edges))
	pairs := make(map[[2]string]struct{}, len(g.Edges))
	for i, e := range g.Edges {
		if err := nodeid.Validate(e.ID); err != nil {
			return fmt.Errorf("edge #%d: %w", i, err)
		}
		if _, dup := edgeIDs[e.ID]; dup {
			return fmt.Errorf("duplicate edge id '%s'", e.ID)
		}
		edgeIDs[e.ID] = struct{}{}

		sk, ok := kinds[e.Source]
		if !ok {
			return fmt.Errorf("edge '%s': source '%s': %w", e.ID, e.Source, workflow.ErrUnknownNode)
		}
		tk, ok := kinds[e.Target]
		if !ok {
			return fmt.Errorf("edge '%s': target '%s': %w", e.ID, e.Target, workflow.ErrUnknownNode)
		}
		if err := connection.Check(sk, tk, e.Source, e.Target); err != nil {
			return fmt.Errorf("edge '%s': %w", e.ID, err)
		}
		key := [2]string{e.Source, e.Target}
		if _, dup := pairs[key]; dup {
			return fmt.Errorf("edge '%s': %w", e.ID, &connection.Error{
				SourceID: e.Source, TargetID: e.Target, SourceKind: sk, TargetKind: tk,
				Reason: connection.ReasonDuplicate,
			})
		}
		pairs[key] = struct{}{}
	}
	return nil
}
