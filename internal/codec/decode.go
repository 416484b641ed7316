package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/specialistvlad/gridflow/internal/catalog"
	"github.com/specialistvlad/gridflow/internal/dag"
	"github.com/specialistvlad/gridflow/internal/graphstore"
	"github.com/specialistvlad/gridflow/internal/pairing"
	"github.com/specialistvlad/gridflow/internal/workflow"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", workflow.ErrMalformedDocument, fmt.Sprintf(format, args...))
}

// Decode converts a FlowData document into a graph. Pairings in the
// document are ignored and re-derived.
func Decode(doc FlowData) (workflow.Graph, error) {
	g := workflow.Graph{
		Nodes: make([]workflow.Node, 0, len(doc.Nodes)),
		Edges: make([]workflow.Edge, 0, len(doc.Edges)),
	}
	shape := dag.New()

	for i, dn := range doc.Nodes {
		n, err := decodeNode(dn)
		if err != nil {
			return workflow.Graph{}, malformed("node #%d: %v", i, err)
		}
		g.Nodes = append(g.Nodes, n)
		shape.AddNode(n.ID)
	}

	for i, de := range doc.Edges {
		switch {
		case de.ID == "":
			return workflow.Graph{}, malformed("edge #%d: missing id", i)
		case de.Source == "":
			return workflow.Graph{}, malformed("edge '%s': missing source", de.ID)
		case de.Target == "":
			return workflow.Graph{}, malformed("edge '%s': missing target", de.ID)
		}
		if err := shape.AddEdge(de.Source, de.Target); err != nil {
			return workflow.Graph{}, malformed("edge '%s': %v", de.ID, err)
		}
		g.Edges = append(g.Edges, workflow.Edge{
			ID:       de.ID,
			Source:   de.Source,
			Target:   de.Target,
			Type:     de.Type,
			Animated: de.Animated,
		})
	}

	if err := shape.DetectCycles(); err != nil {
		return workflow.Graph{}, malformed("%v", err)
	}
	if err := graphstore.Verify(g); err != nil {
		return workflow.Graph{}, fmt.Errorf("%w: %w", workflow.ErrMalformedDocument, err)
	}

	g.Nodes = pairing.Recompute(g.Nodes, g.Edges)
	return g, nil
}

func decodeNode(dn Node) (workflow.Node, error) {
	if dn.ID == "" {
		return workflow.Node{}, errors.New("missing id")
	}
	if dn.Type == "" {
		return workflow.Node{}, fmt.Errorf("node '%s': missing type", dn.ID)
	}
	kind, ok := catalog.ParseKind(dn.Type)
	if !ok {
		return workflow.Node{}, fmt.Errorf("node '%s': unknown kind '%s'", dn.ID, dn.Type)
	}

	n := workflow.Node{
		ID:     dn.ID,
		Kind:   kind,
		Label:  catalog.DefaultLabel(kind),
		Params: catalog.Defaults(kind),
	}
	if dn.Position != nil {
		n.Position = workflow.Position{X: dn.Position.X, Y: dn.Position.Y}
	}

	extra := map[string]json.RawMessage{}
	for key, raw := range dn.Data {
		switch {
		case key == keyLabel:
			if isNull(raw) {
				continue
			}
			var label string
			if err := json.Unmarshal(raw, &label); err != nil {
				return workflow.Node{}, fmt.Errorf("node '%s': label must be a string", dn.ID)
			}
			n.Label = label
		case isPairingKey(key):
			// Derived; rebuilt by the resolver.
		default:
			spec, declared := catalog.ParamSpecFor(kind, key)
			if !declared {
				extra[key] = raw
				continue
			}
			if isNull(raw) {
				continue
			}
			v, err := decodeParam(kind, spec, raw)
			if err != nil {
				return workflow.Node{}, fmt.Errorf("node '%s': %w", dn.ID, err)
			}
			n.Params[key] = v
		}
	}
	if len(extra) > 0 {
		n.Extra = extra
	}
	return n, nil
}

func decodeParam(kind catalog.Kind, spec catalog.ParamSpec, raw json.RawMessage) (cty.Value, error) {
	v, err := ctyjson.Unmarshal(raw, spec.Type)
	if err != nil {
		return cty.NilVal, fmt.Errorf("parameter '%s': %w", spec.Name, err)
	}
	return catalog.ConvertParam(kind, spec.Name, v)
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// Unmarshal parses and decodes a JSON flow_data document.
func Unmarshal(data []byte) (workflow.Graph, error) {
	var doc FlowData
	if err := json.Unmarshal(data, &doc); err != nil {
		return workflow.Graph{}, malformed("invalid JSON: %v", err)
	}
	return Decode(doc)
}
