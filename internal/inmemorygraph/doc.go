// Package inmemorygraph provides the in-memory implementation of the
// graphstore.Store interface. One Store backs one editing session.
//
// Nodes and edges are kept in slices to preserve insertion order, which the
// pairing resolver depends on. A sync.RWMutex guards them: intents are applied
// by a single goroutine per session, but the editor server may read a
// snapshot from another.
package inmemorygraph
