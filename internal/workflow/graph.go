package workflow

// Graph is a point-in-time copy of a workflow's nodes and edges, both in
// insertion order.
type Graph struct {
	Nodes []Node
	Edges []Edge
}

// Clone returns a deep copy of g.
func (g Graph) Clone() Graph {
	out := Graph{
		Nodes: make([]Node, len(g.Nodes)),
		Edges: append([]Edge(nil), g.Edges...),
	}
	for i, n := range g.Nodes {
		out.Nodes[i] = n.Clone()
	}
	return out
}

// Node looks up a node by id.
func (g Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Index maps node ids to their position in Nodes.
func Index(nodes []Node) map[string]int {
	idx := make(map[string]int, len(nodes))
	for i, n := range nodes {
		idx[n.ID] = i
	}
	return idx
}

// FirstOutgoing maps each node id to the first edge (in edge order) leaving
// it. Nodes without an outgoing edge are absent.
func FirstOutgoing(edges []Edge) map[string]Edge {
	out := make(map[string]Edge, len(edges))
	for _, e := range edges {
		if _, seen := out[e.Source]; !seen {
			out[e.Source] = e
		}
	}
	return out
}

// FirstIncoming maps each node id to the first edge (in edge order) entering
// it.
func FirstIncoming(edges []Edge) map[string]Edge {
	in := make(map[string]Edge, len(edges))
	for _, e := range edges {
		if _, seen := in[e.Target]; !seen {
			in[e.Target] = e
		}
	}
	return in
}
