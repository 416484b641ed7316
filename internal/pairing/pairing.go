// Package pairing derives which merge node collects the items split out by
// each loop node.
//
// A loop and a merge are paired when following the first outgoing edge of
// every node, starting at the loop, reaches the merge. "First" means first
// in edge insertion order. The pairing is derived state: Recompute discards
// whatever pairings the input carries and rebuilds them from the edges, so
// calling it twice gives the same answer as calling it once.
package pairing

import (
	"github.com/specialistvlad/gridflow/internal/catalog"
	"github.com/specialistvlad/gridflow/internal/workflow"
)

// Resolver re-derives pairings. The graph store depends on this interface
// so tests can observe how often a re-derivation happens.
type Resolver interface {
	Recompute(nodes []workflow.Node, edges []workflow.Edge) []workflow.Node
}

// Func adapts a plain function to Resolver.
type Func func(nodes []workflow.Node, edges []workflow.Edge) []workflow.Node

// Recompute calls f.
func (f Func) Recompute(nodes []workflow.Node, edges []workflow.Edge) []workflow.Node {
	return f(nodes, edges)
}

// Default is the resolver used when none is injected.
var Default Resolver = Func(Recompute)

// Recompute returns a copy of nodes with every Pairing rebuilt from edges.
//
// Loops are visited in node order. A merge reached by an earlier loop is not
// given to a later one; the later loop stays unpaired. Walks are bounded by
// the node count so a cyclic edge set cannot hang the resolver. Edges naming
// unknown nodes end the walk.
func Recompute(nodes []workflow.Node, edges []workflow.Edge) []workflow.Node {
	out := make([]workflow.Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.Clone()
		out[i].Pairing = nil
	}

	idx := workflow.Index(out)
	next := workflow.FirstOutgoing(edges)
	claimed := make(map[string]bool)

	for i := range out {
		if out[i].Kind != catalog.KindLoop {
			continue
		}
		m, ok := walkToMerge(out, idx, next, out[i].ID)
		if !ok || claimed[out[m].ID] {
			continue
		}
		claimed[out[m].ID] = true
		out[i].Pairing = &workflow.Pairing{PartnerID: out[m].ID, PartnerLabel: out[m].Label}
		out[m].Pairing = &workflow.Pairing{PartnerID: out[i].ID, PartnerLabel: out[i].Label}
	}
	return out
}

func walkToMerge(nodes []workflow.Node, idx map[string]int, next map[string]workflow.Edge, from string) (int, bool) {
	cur := from
	for steps := 0; steps < len(nodes); steps++ {
		e, ok := next[cur]
		if !ok {
			return 0, false
		}
		i, ok := idx[e.Target]
		if !ok {
			return 0, false
		}
		if nodes[i].Kind == catalog.KindMerge {
			return i, true
		}
		cur = e.Target
	}
	return 0, false
}

// Pairs lists the loop -> merge pairs recorded on nodes.
func Pairs(nodes []workflow.Node) map[string]string {
	pairs := make(map[string]string)
	for _, n := range nodes {
		if n.Kind != catalog.KindLoop {
			continue
		}
		if partner, ok := n.PartnerID(); ok {
			pairs[n.ID] = partner
		}
	}
	return pairs
}
