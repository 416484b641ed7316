// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package workflow holds the value types of a workflow graph: nodes, edges,
// the derived loop/merge pairing and the sentinel errors shared by every
// component that reads or mutates a graph.
//
// All types here are plain values. Stores hand out copies (see Node.Clone and
// Graph.Clone) so a caller can never reach into a store's internal state.
package workflow
