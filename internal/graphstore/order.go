package graphstore

import (
	"github.com/specialistvlad/gridflow/internal/dag"
	"github.com/specialistvlad/gridflow/internal/workflow"
)

// Order lists node ids from sources to sinks, ties in node order. Results
// of a run are displayed in this order.
func Order(g workflow.Graph) ([]string, error) {
	d := dag.New()
	for _, n := range g.Nodes {
		d.AddNode(n.ID)
	}
	for _, e := range g.Edges {
		if err := d.AddEdge(e.Source, e.Target); err != nil {
			return nil, err
		}
	}
	return d.TopologicalOrder()
}
