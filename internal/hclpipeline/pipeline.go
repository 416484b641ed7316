package hclpipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/gridflow/internal/catalog"
	"github.com/specialistvlad/gridflow/internal/codec"
	"github.com/specialistvlad/gridflow/internal/ctxlog"
	"github.com/specialistvlad/gridflow/internal/fsutil"
	"github.com/specialistvlad/gridflow/internal/nodeid"
	"github.com/specialistvlad/gridflow/internal/workflow"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Extension is the suffix of pipeline files.
const Extension = ".hcl"

// Auto-layout used for nodes without a position.
const (
	layoutStepX = 250
	layoutRowY  = 100
)

// ErrNoFiles is returned by Load when the paths contain no pipeline files.
var ErrNoFiles = errors.New("no pipeline files found")

// Node is one node block after decoding.
type Node struct {
	Kind catalog.Kind
	Name string
	// Label is empty when the block did not set one.
	Label    string
	Params   map[string]cty.Value
	From     []string
	Position *workflow.Position

	FilePath string
	Range    hcl.Range
}

// ID is the node id used in the built document.
func (n *Node) ID() string {
	return string(n.Kind) + "-" + n.Name
}

// Pipeline is every node found in a set of files, in file then block order.
type Pipeline struct {
	Nodes []*Node
}

// Parse decodes a single pipeline held in memory.
func Parse(filename string, src []byte) (*Pipeline, error) {
	if src == nil {
		src = []byte{}
	}
	nodes, err := parseFile(hclparse.NewParser(), filename, src)
	if err != nil {
		return nil, err
	}
	return &Pipeline{Nodes: nodes}, nil
}

// LoadFiles finds every pipeline file under paths and decodes them into one
// Pipeline.
func LoadFiles(ctx context.Context, paths ...string) (*Pipeline, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading pipeline files.", "paths", paths)

	files, err := fsutil.FindFiles(paths, Extension)
	if err != nil {
		return nil, fmt.Errorf("failed to find pipeline files: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %v", ErrNoFiles, paths)
	}

	parser := hclparse.NewParser()
	p := &Pipeline{}
	for _, file := range files {
		nodes, err := parseFile(parser, file, nil)
		if err != nil {
			return nil, err
		}
		p.Nodes = append(p.Nodes, nodes...)
	}
	logger.Debug("Pipeline files decoded.", "files", len(files), "nodes", len(p.Nodes))
	return p, nil
}

// Load reads pipeline files and returns the validated graph together with
// its canonical document, pairing keys included.
func Load(ctx context.Context, paths ...string) (codec.FlowData, workflow.Graph, error) {
	p, err := LoadFiles(ctx, paths...)
	if err != nil {
		return codec.FlowData{}, workflow.Graph{}, err
	}
	return p.Compile()
}

// Compile builds the document, validates it through the codec and encodes
// the result again.
func (p *Pipeline) Compile() (codec.FlowData, workflow.Graph, error) {
	doc, err := p.Build()
	if err != nil {
		return codec.FlowData{}, workflow.Graph{}, err
	}
	g, err := codec.Decode(doc)
	if err != nil {
		return codec.FlowData{}, workflow.Graph{}, err
	}
	out, err := codec.Encode(g)
	if err != nil {
		return codec.FlowData{}, workflow.Graph{}, err
	}
	return out, g, nil
}

// Build turns the pipeline into a flow_data document. It resolves names and
// checks ids; connection rules are left to codec.Decode.
func (p *Pipeline) Build() (codec.FlowData, error) {
	byName := make(map[string]*Node, len(p.Nodes))
	for _, n := range p.Nodes {
		if prev, ok := byName[n.Name]; ok {
			return codec.FlowData{}, fmt.Errorf("duplicate node name %q at %s, first defined at %s", n.Name, n.Range, prev.Range)
		}
		if err := nodeid.Validate(n.ID()); err != nil {
			return codec.FlowData{}, fmt.Errorf("node %q at %s: %w", n.Name, n.Range, err)
		}
		byName[n.Name] = n
	}

	doc := codec.FlowData{
		Nodes: make([]codec.Node, 0, len(p.Nodes)),
		Edges: []codec.Edge{},
	}
	for i, n := range p.Nodes {
		dn, err := buildNode(n, i)
		if err != nil {
			return codec.FlowData{}, err
		}
		doc.Nodes = append(doc.Nodes, dn)

		for _, ref := range n.From {
			src, ok := byName[ref]
			if !ok {
				return codec.FlowData{}, fmt.Errorf("node %q at %s references unknown node %q", n.Name, n.Range, ref)
			}
			doc.Edges = append(doc.Edges, codec.Edge{
				ID:       nodeid.NewEdge(src.ID(), n.ID()),
				Source:   src.ID(),
				Target:   n.ID(),
				Type:     workflow.DefaultEdgeType,
				Animated: true,
			})
		}
	}
	return doc, nil
}

func buildNode(n *Node, i int) (codec.Node, error) {
	label := n.Label
	if label == "" {
		label = catalog.DefaultLabel(n.Kind)
	}
	rawLabel, err := json.Marshal(label)
	if err != nil {
		return codec.Node{}, err
	}
	data := map[string]json.RawMessage{"label": rawLabel}

	names := make([]string, 0, len(n.Params))
	for name := range n.Params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v := n.Params[name]
		raw, err := ctyjson.Marshal(v, v.Type())
		if err != nil {
			return codec.Node{}, fmt.Errorf("node %q parameter '%s': %w", n.Name, name, err)
		}
		data[name] = raw
	}

	pos := codec.Position{X: float64(i * layoutStepX), Y: layoutRowY}
	if n.Position != nil {
		pos = codec.Position{X: n.Position.X, Y: n.Position.Y}
	}
	return codec.Node{ID: n.ID(), Type: string(n.Kind), Position: &pos, Data: data}, nil
}
