// Package dag is a small directed graph over string ids used to check that
// a workflow is acyclic and to order its nodes from sources to sinks.
//
// Iteration follows insertion order everywhere, so error messages and
// orderings are deterministic for a given input.
package dag
