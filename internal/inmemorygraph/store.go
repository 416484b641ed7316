package inmemorygraph

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"github.com/specialistvlad/gridflow/internal/catalog"
	"github.com/specialistvlad/gridflow/internal/connection"
	"github.com/specialistvlad/gridflow/internal/ctxlog"
	"github.com/specialistvlad/gridflow/internal/graphstore"
	"github.com/specialistvlad/gridflow/internal/nodeid"
	"github.com/specialistvlad/gridflow/internal/pairing"
	"github.com/specialistvlad/gridflow/internal/workflow"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Store implements graphstore.Store with ordered slices and a mutex.
type Store struct {
	mu    sync.RWMutex
	nodes []workflow.Node
	edges []workflow.Edge

	resolver pairing.Resolver
	newID    func(kind string) string
}

var _ graphstore.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithResolver replaces the pairing resolver.
func WithResolver(r pairing.Resolver) Option {
	return func(s *Store) { s.resolver = r }
}

// WithIDGenerator replaces the node id generator.
func WithIDGenerator(fn func(kind string) string) Option {
	return func(s *Store) { s.newID = fn }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		resolver: pairing.Default,
		newID:    nodeid.NewNode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddNode creates a node with a fresh id and default parameters.
func (s *Store) AddNode(ctx context.Context, kind catalog.Kind, params map[string]cty.Value) (workflow.Node, error) {
	logger := ctxlog.FromContext(ctx)
	if !catalog.Known(kind) {
		return workflow.Node{}, fmt.Errorf("cannot add node: unknown kind '%s'", kind)
	}

	merged := catalog.Defaults(kind)
	for name, v := range params {
		conv, err := catalog.ConvertParam(kind, name, v)
		if err != nil {
			return workflow.Node{}, fmt.Errorf("cannot add node of kind '%s': %w", kind, err)
		}
		merged[name] = conv
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newID(string(kind))
	if s.indexOfNode(id) >= 0 {
		return workflow.Node{}, fmt.Errorf("cannot add node: id '%s' already in use", id)
	}
	n := workflow.Node{
		ID:     id,
		Kind:   kind,
		Label:  catalog.DefaultLabel(kind),
		Params: merged,
	}
	s.nodes = append(s.nodes, n)
	logger.Debug("Node added.", "node_id", id, "kind", kind)
	return n.Clone(), nil
}

// MoveNode records new canvas geometry for a node.
func (s *Store) MoveNode(ctx context.Context, id string, pos workflow.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOfNode(id)
	if i < 0 {
		return fmt.Errorf("cannot move node '%s': %w", id, workflow.ErrUnknownNode)
	}
	s.nodes[i].Position = pos
	return nil
}

// RemoveNode deletes a node together with every edge touching it.
func (s *Store) RemoveNode(ctx context.Context, id string) error {
	logger := ctxlog.FromContext(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOfNode(id)
	if i < 0 {
		logger.Debug("Refused to remove node.", "node_id", id, "reason", "unknown")
		return fmt.Errorf("cannot remove node '%s': %w", id, workflow.ErrUnknownNode)
	}

	s.nodes = slices.Delete(s.nodes, i, i+1)
	before := len(s.edges)
	s.edges = slices.DeleteFunc(s.edges, func(e workflow.Edge) bool {
		return e.Source == id || e.Target == id
	})
	s.recompute()
	logger.Debug("Node removed.", "node_id", id, "edges_removed", before-len(s.edges))
	return nil
}

// AddEdge connects source to target.
func (s *Store) AddEdge(ctx context.Context, source, target string) (workflow.Edge, error) {
	logger := ctxlog.FromContext(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	si := s.indexOfNode(source)
	if si < 0 {
		return workflow.Edge{}, fmt.Errorf("cannot connect: source '%s': %w", source, workflow.ErrUnknownNode)
	}
	ti := s.indexOfNode(target)
	if ti < 0 {
		return workflow.Edge{}, fmt.Errorf("cannot connect: target '%s': %w", target, workflow.ErrUnknownNode)
	}

	sk, tk := s.nodes[si].Kind, s.nodes[ti].Kind
	if err := connection.Check(sk, tk, source, target); err != nil {
		logger.Debug("Refused connection.", "source", source, "target", target, "error", err)
		return workflow.Edge{}, err
	}
	for _, e := range s.edges {
		if e.Source == source && e.Target == target {
			return workflow.Edge{}, &connection.Error{
				SourceID: source, TargetID: target, SourceKind: sk, TargetKind: tk,
				Reason: connection.ReasonDuplicate,
			}
		}
	}

	e := workflow.Edge{
		ID:       s.uniqueEdgeID(nodeid.NewEdge(source, target)),
		Source:   source,
		Target:   target,
		Type:     workflow.DefaultEdgeType,
		Animated: true,
	}
	s.edges = append(s.edges, e)
	s.recompute()
	logger.Debug("Edge added.", "edge_id", e.ID, "source", source, "target", target)
	return e, nil
}

// RemoveEdge deletes a single edge.
func (s *Store) RemoveEdge(ctx context.Context, id string) error {
	return s.RemoveEdges(ctx, id)
}

// RemoveEdges deletes a batch of edges with a single re-derivation.
func (s *Store) RemoveEdges(ctx context.Context, ids ...string) error {
	logger := ctxlog.FromContext(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if s.indexOfEdge(id) < 0 {
			return fmt.Errorf("cannot remove edge '%s': %w", id, workflow.ErrUnknownEdge)
		}
		drop[id] = struct{}{}
	}
	if len(drop) == 0 {
		return nil
	}

	s.edges = slices.DeleteFunc(s.edges, func(e workflow.Edge) bool {
		_, ok := drop[e.ID]
		return ok
	})
	s.recompute()
	logger.Debug("Edges removed.", "count", len(drop))
	return nil
}

// UpdateNodeParameters shallow-merges patch into a node's parameters.
func (s *Store) UpdateNodeParameters(ctx context.Context, id string, patch map[string]cty.Value) (workflow.Node, error) {
	logger := ctxlog.FromContext(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOfNode(id)
	if i < 0 {
		return workflow.Node{}, fmt.Errorf("cannot update node '%s': %w", id, workflow.ErrUnknownNode)
	}
	n := s.nodes[i]

	// Convert everything before touching the node so a bad field leaves it as it was.
	label := n.Label
	converted := make(map[string]cty.Value, len(patch))
	for name, v := range patch {
		if name == graphstore.LabelField {
			str, err := labelValue(v)
			if err != nil {
				return workflow.Node{}, fmt.Errorf("cannot update node '%s': %w", id, err)
			}
			label = str
			continue
		}
		conv, err := catalog.ConvertParam(n.Kind, name, v)
		if err != nil {
			return workflow.Node{}, fmt.Errorf("cannot update node '%s': %w", id, err)
		}
		converted[name] = conv
	}

	updated := n.Clone()
	if updated.Params == nil {
		updated.Params = map[string]cty.Value{}
	}
	for name, v := range converted {
		updated.Params[name] = v
	}
	renamed := label != n.Label
	updated.Label = label
	s.nodes[i] = updated

	if renamed {
		// Partners display this node's label.
		s.recompute()
	}
	logger.Debug("Node parameters updated.", "node_id", id, "fields", len(patch))
	return s.nodes[i].Clone(), nil
}

// Replace swaps in a whole graph.
func (s *Store) Replace(ctx context.Context, g workflow.Graph) error {
	if err := graphstore.Verify(g); err != nil {
		return fmt.Errorf("cannot replace graph: %w", err)
	}
	c := g.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes = c.Nodes
	s.edges = c.Edges
	s.recompute()
	ctxlog.FromContext(ctx).Debug("Graph replaced.", "nodes", len(s.nodes), "edges", len(s.edges))
	return nil
}

// Node returns a copy of the node with the given id.
func (s *Store) Node(ctx context.Context, id string) (workflow.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOfNode(id)
	if i < 0 {
		return workflow.Node{}, false
	}
	return s.nodes[i].Clone(), true
}

func (s *Store) Nodes(ctx context.Context) []workflow.Node {
	return s.Snapshot(ctx).Nodes
}

func (s *Store) Edges(ctx context.Context) []workflow.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.edges)
}

// Snapshot returns a copy of the whole graph.
func (s *Store) Snapshot(ctx context.Context) workflow.Graph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return workflow.Graph{Nodes: s.nodes, Edges: s.edges}.Clone()
}

// recompute must be called with s.mu held for writing.
func (s *Store) recompute() {
	s.nodes = s.resolver.Recompute(s.nodes, s.edges)
}

func (s *Store) indexOfNode(id string) int {
	return slices.IndexFunc(s.nodes, func(n workflow.Node) bool { return n.ID == id })
}

func (s *Store) indexOfEdge(id string) int {
	return slices.IndexFunc(s.edges, func(e workflow.Edge) bool { return e.ID == id })
}

func (s *Store) uniqueEdgeID(base string) string {
	id := base
	for n := 1; s.indexOfEdge(id) >= 0; n++ {
		id = base + "-" + strconv.Itoa(n)
	}
	return id
}

func labelValue(v cty.Value) (string, error) {
	if v.IsNull() || !v.IsKnown() {
		return "", fmt.Errorf("label must be a known string")
	}
	str, err := convert.Convert(v, cty.String)
	if err != nil {
		return "", fmt.Errorf("label: %w", err)
	}
	return str.AsString(), nil
}
