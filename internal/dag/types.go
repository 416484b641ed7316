package dag

import "sync"

// Graph is a set of nodes and directed edges. All operations are
// concurrency-safe.
type Graph struct {
	mutex sync.RWMutex
	nodes map[string]*node
	// order records node ids in insertion order.
	order []string
}

// node is unexported so callers work with ids only.
type node struct {
	id string
	// deps are predecessors, dependents successors; both in insertion order.
	deps       []*node
	dependents []*node
}
