package workflow

import (
	"encoding/json"
	"maps"

	"github.com/specialistvlad/gridflow/internal/catalog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Position is canvas geometry. It is carried through every operation but
// never interpreted.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pairing is the derived cross-reference between a loop and its merge.
type Pairing struct {
	PartnerID    string
	PartnerLabel string
}

// Node is one operation in the graph.
type Node struct {
	ID       string
	Kind     catalog.Kind
	Label    string
	Position Position
	// Params holds kind-specific fields typed by the catalog.
	Params map[string]cty.Value
	// Pairing is set only by the pairing resolver.
	Pairing *Pairing
	// Extra keeps data keys this package does not model so they survive a
	// load/save cycle.
	Extra map[string]json.RawMessage
}

// Clone returns a deep copy of n.
func (n Node) Clone() Node {
	out := n
	out.Params = maps.Clone(n.Params)
	out.Extra = maps.Clone(n.Extra)
	if n.Pairing != nil {
		p := *n.Pairing
		out.Pairing = &p
	}
	return out
}

// Param returns the value of a kind-specific field.
func (n Node) Param(name string) (cty.Value, bool) {
	v, ok := n.Params[name]
	return v, ok
}

// IntParam returns a numeric field as an int.
func (n Node) IntParam(name string) (int, bool) {
	v, ok := n.Params[name]
	if !ok || v.IsNull() || !v.IsKnown() {
		return 0, false
	}
	var i int
	if err := gocty.FromCtyValue(v, &i); err != nil {
		return 0, false
	}
	return i, true
}

// PartnerID returns the id of the node n is paired with.
func (n Node) PartnerID() (string, bool) {
	if n.Pairing == nil {
		return "", false
	}
	return n.Pairing.PartnerID, true
}

// Edge is a directed data-flow link from Source to Target.
type Edge struct {
	ID       string
	Source   string
	Target   string
	Type     string
	Animated bool
}

// DefaultEdgeType is the canvas edge style stamped on new edges.
const DefaultEdgeType = "default"
