package codec

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/specialistvlad/gridflow/internal/catalog"
	"github.com/specialistvlad/gridflow/internal/workflow"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Encode converts g into a FlowData document. Node and edge order is kept.
func Encode(g workflow.Graph) (FlowData, error) {
	doc := FlowData{
		Nodes: make([]Node, 0, len(g.Nodes)),
		Edges: make([]Edge, 0, len(g.Edges)),
	}

	for _, n := range g.Nodes {
		data := make(map[string]json.RawMessage, len(n.Extra)+len(n.Params)+3)
		for k, v := range n.Extra {
			data[k] = v
		}

		label, err := json.Marshal(n.Label)
		if err != nil {
			return FlowData{}, fmt.Errorf("encode node '%s' label: %w", n.ID, err)
		}
		data[keyLabel] = label

		names := make([]string, 0, len(n.Params))
		for name := range n.Params {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			v := n.Params[name]
			raw, err := ctyjson.Marshal(v, v.Type())
			if err != nil {
				return FlowData{}, fmt.Errorf("encode node '%s' parameter '%s': %w", n.ID, name, err)
			}
			data[name] = raw
		}

		if n.Pairing != nil {
			idKey, labelKey := keyMergeID, keyMergeLabel
			if n.Kind == catalog.KindMerge {
				idKey, labelKey = keyLoopID, keyLoopLabel
			}
			data[idKey], _ = json.Marshal(n.Pairing.PartnerID)
			data[labelKey], _ = json.Marshal(n.Pairing.PartnerLabel)
		}

		doc.Nodes = append(doc.Nodes, Node{
			ID:       n.ID,
			Type:     string(n.Kind),
			Position: &Position{X: n.Position.X, Y: n.Position.Y},
			Data:     data,
		})
	}

	for _, e := range g.Edges {
		doc.Edges = append(doc.Edges, Edge{
			ID:       e.ID,
			Source:   e.Source,
			Target:   e.Target,
			Type:     e.Type,
			Animated: e.Animated,
		})
	}
	return doc, nil
}

// Marshal encodes g as JSON.
func Marshal(g workflow.Graph) ([]byte, error) {
	doc, err := Encode(g)
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}
