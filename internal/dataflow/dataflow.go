// Package dataflow annotates nodes with what they receive and what they
// emit, for display next to each node in the editor.
package dataflow

import (
	"fmt"

	"github.com/specialistvlad/gridflow/internal/catalog"
	"github.com/specialistvlad/gridflow/internal/workflow"
)

// Description is the annotation of one node. When HasInput is false the
// input fields are empty.
type Description struct {
	HasInput          bool             `json:"hasInput"`
	InputType         catalog.DataType `json:"inputType,omitempty"`
	InputDescription  string           `json:"inputDescription,omitempty"`
	OutputType        catalog.DataType `json:"outputType"`
	OutputDescription string           `json:"outputDescription"`
}

// Describe annotates the node with the given id. The input side comes from
// the upstream node of the first incoming edge.
func Describe(nodeID string, nodes []workflow.Node, edges []workflow.Edge) (Description, error) {
	idx := workflow.Index(nodes)
	i, ok := idx[nodeID]
	if !ok {
		return Description{}, fmt.Errorf("cannot describe node '%s': %w", nodeID, workflow.ErrUnknownNode)
	}
	return describe(nodes[i], idx, nodes, workflow.FirstIncoming(edges)), nil
}

// DescribeAll annotates every node in one pass.
func DescribeAll(nodes []workflow.Node, edges []workflow.Edge) map[string]Description {
	idx := workflow.Index(nodes)
	in := workflow.FirstIncoming(edges)
	out := make(map[string]Description, len(nodes))
	for _, n := range nodes {
		out[n.ID] = describe(n, idx, nodes, in)
	}
	return out
}

func describe(n workflow.Node, idx map[string]int, nodes []workflow.Node, in map[string]workflow.Edge) Description {
	d := Description{
		OutputType:        catalog.OutputOf(n.Kind),
		OutputDescription: catalog.OutputDescription(n.Kind),
	}
	e, ok := in[n.ID]
	if !ok {
		return d
	}
	up, ok := idx[e.Source]
	if !ok {
		return d
	}
	d.HasInput = true
	d.InputType = catalog.OutputOf(nodes[up].Kind)
	d.InputDescription = catalog.InputDescription(nodes[up].Kind)
	return d
}
