package testutil

import (
	"encoding/json"
	"testing"

	"github.com/specialistvlad/gridflow/internal/codec"
	"github.com/stretchr/testify/require"
)

// RequireDocument decodes the run's output as a flow_data document.
func RequireDocument(t *testing.T, result *HarnessResult) codec.FlowData {
	t.Helper()

	require.NoError(t, result.Err, "run failed, logs:\n%s", result.LogOutput)
	var doc codec.FlowData
	require.NoError(t, json.Unmarshal([]byte(result.Output), &doc), "output is not a document:\n%s", result.Output)
	return doc
}

// RequireNode returns the node with the given id.
func RequireNode(t *testing.T, doc codec.FlowData, id string) codec.Node {
	t.Helper()

	for _, n := range doc.Nodes {
		if n.ID == id {
			return n
		}
	}
	require.Failf(t, "node not found", "document has no node %q", id)
	return codec.Node{}
}

// AssertNodeData checks that a node's data entry decodes to want.
func AssertNodeData[T any](t *testing.T, doc codec.FlowData, nodeID, key string, want T) {
	t.Helper()

	n := RequireNode(t, doc, nodeID)
	raw, ok := n.Data[key]
	require.True(t, ok, "node %q has no data key %q", nodeID, key)
	var got T
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Equal(t, want, got, "node %q data %q", nodeID, key)
}

// AssertEdge checks that the document connects source to target.
func AssertEdge(t *testing.T, doc codec.FlowData, source, target string) {
	t.Helper()

	for _, e := range doc.Edges {
		if e.Source == source && e.Target == target {
			return
		}
	}
	require.Failf(t, "edge not found", "document has no edge %s -> %s", source, target)
}
