package codec

import "encoding/json"

// FlowData is the persisted graph document.
type FlowData struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node is one entry of FlowData.Nodes.
type Node struct {
	ID       string                     `json:"id"`
	Type     string                     `json:"type"`
	Position *Position                  `json:"position,omitempty"`
	Data     map[string]json.RawMessage `json:"data,omitempty"`
}

// Position is canvas geometry.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Edge is one entry of FlowData.Edges.
type Edge struct {
	ID       string `json:"id"`
	Source   string `json:"source"`
	Target   string `json:"target"`
	Type     string `json:"type,omitempty"`
	Animated bool   `json:"animated,omitempty"`
}

// Keys inside Node.Data with a fixed meaning.
const (
	keyLabel      = "label"
	keyLoopID     = "loopId"
	keyLoopLabel  = "loopLabel"
	keyMergeID    = "mergeId"
	keyMergeLabel = "mergeLabel"
)

func isPairingKey(k string) bool {
	switch k {
	case keyLoopID, keyLoopLabel, keyMergeID, keyMergeLabel:
		return true
	}
	return false
}

// Clone returns a deep copy of f.
func (f FlowData) Clone() FlowData {
	out := FlowData{
		Nodes: make([]Node, len(f.Nodes)),
		Edges: append([]Edge(nil), f.Edges...),
	}
	for i, n := range f.Nodes {
		c := n
		if n.Position != nil {
			p := *n.Position
			c.Position = &p
		}
		if n.Data != nil {
			c.Data = make(map[string]json.RawMessage, len(n.Data))
			for k, v := range n.Data {
				c.Data[k] = append(json.RawMessage(nil), v...)
			}
		}
		out.Nodes[i] = c
	}
	return out
}
