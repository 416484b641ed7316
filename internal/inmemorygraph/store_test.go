package inmemorygraph

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/specialistvlad/gridflow/internal/catalog"
	"github.com/specialistvlad/gridflow/internal/connection"
	"github.com/specialistvlad/gridflow/internal/graphstore"
	"github.com/specialistvlad/gridflow/internal/pairing"
	"github.com/specialistvlad/gridflow/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

// countingResolver wraps pairing.Recompute and records each call.
type countingResolver struct {
	mu    sync.Mutex
	calls int
}

func (c *countingResolver) Recompute(nodes []workflow.Node, edges []workflow.Edge) []workflow.Node {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return pairing.Recompute(nodes, edges)
}

func (c *countingResolver) reset() {
	c.mu.Lock()
	c.calls = 0
	c.mu.Unlock()
}

func sequentialIDs() func(string) string {
	n := 0
	return func(kind string) string {
		n++
		return fmt.Sprintf("%s-%d", kind, n)
	}
}

type fixture struct {
	store                     *Store
	resolver                  *countingResolver
	best, loop, detail, merge workflow.Node
}

// newPipeline builds bestseller -> loop -> detail -> merge.
func newPipeline(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	r := &countingResolver{}
	s := New(WithResolver(r), WithIDGenerator(sequentialIDs()))

	f := &fixture{store: s, resolver: r}
	var err error
	f.best, err = s.AddNode(ctx, catalog.KindBestSellers, nil)
	require.NoError(t, err)
	f.loop, err = s.AddNode(ctx, catalog.KindLoop, nil)
	require.NoError(t, err)
	f.detail, err = s.AddNode(ctx, catalog.KindDetailFetch, nil)
	require.NoError(t, err)
	f.merge, err = s.AddNode(ctx, catalog.KindMerge, nil)
	require.NoError(t, err)

	_, err = s.AddEdge(ctx, f.best.ID, f.loop.ID)
	require.NoError(t, err)
	_, err = s.AddEdge(ctx, f.loop.ID, f.detail.ID)
	require.NoError(t, err)
	_, err = s.AddEdge(ctx, f.detail.ID, f.merge.ID)
	require.NoError(t, err)
	r.reset()
	return f
}

func assertInvariants(t *testing.T, s *Store) {
	t.Helper()
	g := s.Snapshot(context.Background())
	require.NoError(t, graphstore.Verify(g))
	assert.Equal(t, pairing.Recompute(g.Nodes, g.Edges), g.Nodes)
}

func TestAddNode(t *testing.T) {
	ctx := context.Background()
	s := New()

	t.Run("defaults", func(t *testing.T) {
		n, err := s.AddNode(ctx, catalog.KindBestSellers, nil)
		require.NoError(t, err)
		assert.NotEmpty(t, n.ID)
		assert.Equal(t, "Get Bestselling Asins", n.Label)
		top, ok := n.IntParam(catalog.ParamTopCount)
		require.True(t, ok)
		assert.Equal(t, 10, top)
	})

	t.Run("overrides", func(t *testing.T) {
		n, err := s.AddNode(ctx, catalog.KindIndexSelect, map[string]cty.Value{catalog.ParamIndex: cty.NumberIntVal(4)})
		require.NoError(t, err)
		idx, _ := n.IntParam(catalog.ParamIndex)
		assert.Equal(t, 4, idx)
	})

	t.Run("unique ids", func(t *testing.T) {
		a, err := s.AddNode(ctx, catalog.KindLoop, nil)
		require.NoError(t, err)
		b, err := s.AddNode(ctx, catalog.KindLoop, nil)
		require.NoError(t, err)
		assert.NotEqual(t, a.ID, b.ID)
	})

	t.Run("unknown kind", func(t *testing.T) {
		before := len(s.Snapshot(ctx).Nodes)
		_, err := s.AddNode(ctx, "teleport", nil)
		assert.Error(t, err)
		assert.Len(t, s.Snapshot(ctx).Nodes, before)
	})

	t.Run("invalid parameter", func(t *testing.T) {
		_, err := s.AddNode(ctx, catalog.KindMerge, map[string]cty.Value{catalog.ParamIndex: cty.NumberIntVal(1)})
		assert.ErrorIs(t, err, catalog.ErrUnknownParameter)
	})
}

func TestAddEdgePairsLoopAndMerge(t *testing.T) {
	f := newPipeline(t)
	ctx := context.Background()

	loop, ok := f.store.Node(ctx, f.loop.ID)
	require.True(t, ok)
	merge, ok := f.store.Node(ctx, f.merge.ID)
	require.True(t, ok)

	require.NotNil(t, loop.Pairing)
	assert.Equal(t, f.merge.ID, loop.Pairing.PartnerID)
	assert.Equal(t, "Merge", loop.Pairing.PartnerLabel)
	require.NotNil(t, merge.Pairing)
	assert.Equal(t, f.loop.ID, merge.Pairing.PartnerID)
	assert.Equal(t, "Loop", merge.Pairing.PartnerLabel)
	assertInvariants(t, f.store)
}

func TestAddEdgeRejections(t *testing.T) {
	f := newPipeline(t)
	ctx := context.Background()
	before := f.store.Snapshot(ctx)

	testCases := []struct {
		name    string
		source  string
		target  string
		wantErr error
	}{
		{"backwards", f.detail.ID, f.best.ID, connection.ErrInvalidConnection},
		{"self loop", f.loop.ID, f.loop.ID, connection.ErrInvalidConnection},
		{"duplicate", f.best.ID, f.loop.ID, connection.ErrInvalidConnection},
		{"unknown source", "ghost", f.loop.ID, workflow.ErrUnknownNode},
		{"unknown target", f.best.ID, "ghost", workflow.ErrUnknownNode},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.store.AddEdge(ctx, tc.source, tc.target)
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Equal(t, before, f.store.Snapshot(ctx))
			assert.Zero(t, f.resolver.calls)
		})
	}
}

func TestRemoveEdgeClearsPairing(t *testing.T) {
	f := newPipeline(t)
	ctx := context.Background()

	g := f.store.Snapshot(ctx)
	require.Len(t, g.Edges, 3)
	require.NoError(t, f.store.RemoveEdge(ctx, g.Edges[2].ID))

	loop, _ := f.store.Node(ctx, f.loop.ID)
	merge, _ := f.store.Node(ctx, f.merge.ID)
	assert.Nil(t, loop.Pairing)
	assert.Nil(t, merge.Pairing)
	assert.Equal(t, 1, f.resolver.calls)
	assertInvariants(t, f.store)
}

func TestRemoveEdgesBatch(t *testing.T) {
	f := newPipeline(t)
	ctx := context.Background()
	g := f.store.Snapshot(ctx)

	t.Run("unknown id aborts whole batch", func(t *testing.T) {
		err := f.store.RemoveEdges(ctx, g.Edges[0].ID, "nope")
		assert.ErrorIs(t, err, workflow.ErrUnknownEdge)
		assert.Len(t, f.store.Snapshot(ctx).Edges, 3)
		assert.Zero(t, f.resolver.calls)
	})

	t.Run("single recompute", func(t *testing.T) {
		require.NoError(t, f.store.RemoveEdges(ctx, g.Edges[0].ID, g.Edges[1].ID))
		assert.Len(t, f.store.Snapshot(ctx).Edges, 1)
		assert.Equal(t, 1, f.resolver.calls)
		assertInvariants(t, f.store)
	})
}

func TestRemoveNodeCascades(t *testing.T) {
	f := newPipeline(t)
	ctx := context.Background()

	require.NoError(t, f.store.RemoveNode(ctx, f.detail.ID))

	g := f.store.Snapshot(ctx)
	assert.Len(t, g.Nodes, 3)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, f.best.ID, g.Edges[0].Source)
	assert.Equal(t, 1, f.resolver.calls)

	loop, _ := f.store.Node(ctx, f.loop.ID)
	merge, _ := f.store.Node(ctx, f.merge.ID)
	assert.Nil(t, loop.Pairing)
	assert.Nil(t, merge.Pairing)
	assertInvariants(t, f.store)
}

func TestRemoveNodeUnknown(t *testing.T) {
	f := newPipeline(t)
	ctx := context.Background()
	before := f.store.Snapshot(ctx)

	err := f.store.RemoveNode(ctx, "ghost")
	assert.ErrorIs(t, err, workflow.ErrUnknownNode)
	assert.Equal(t, before, f.store.Snapshot(ctx))
	assert.Zero(t, f.resolver.calls)
}

func TestUpdateNodeParameters(t *testing.T) {
	ctx := context.Background()

	t.Run("merges numeric field", func(t *testing.T) {
		f := newPipeline(t)
		n, err := f.store.UpdateNodeParameters(ctx, f.best.ID, map[string]cty.Value{catalog.ParamTopCount: cty.NumberIntVal(3)})
		require.NoError(t, err)
		top, _ := n.IntParam(catalog.ParamTopCount)
		assert.Equal(t, 3, top)
		assert.Len(t, f.store.Snapshot(ctx).Edges, 3)
		assert.Zero(t, f.resolver.calls)
	})

	t.Run("rename refreshes partner label", func(t *testing.T) {
		f := newPipeline(t)
		_, err := f.store.UpdateNodeParameters(ctx, f.merge.ID, map[string]cty.Value{graphstore.LabelField: cty.StringVal("Collect")})
		require.NoError(t, err)

		loop, _ := f.store.Node(ctx, f.loop.ID)
		require.NotNil(t, loop.Pairing)
		assert.Equal(t, f.merge.ID, loop.Pairing.PartnerID)
		assert.Equal(t, "Collect", loop.Pairing.PartnerLabel)
		assert.Equal(t, 1, f.resolver.calls)
	})

	t.Run("bad field leaves node untouched", func(t *testing.T) {
		f := newPipeline(t)
		_, err := f.store.UpdateNodeParameters(ctx, f.best.ID, map[string]cty.Value{
			catalog.ParamTopCount: cty.NumberIntVal(5),
			graphstore.LabelField: cty.StringVal("Renamed"),
			"bogus":               cty.True,
		})
		require.Error(t, err)
		n, _ := f.store.Node(ctx, f.best.ID)
		top, _ := n.IntParam(catalog.ParamTopCount)
		assert.Equal(t, 10, top)
		assert.Equal(t, "Get Bestselling Asins", n.Label)
	})

	t.Run("unknown node", func(t *testing.T) {
		f := newPipeline(t)
		_, err := f.store.UpdateNodeParameters(ctx, "ghost", nil)
		assert.ErrorIs(t, err, workflow.ErrUnknownNode)
	})
}

func TestMoveNode(t *testing.T) {
	f := newPipeline(t)
	ctx := context.Background()

	require.NoError(t, f.store.MoveNode(ctx, f.loop.ID, workflow.Position{X: 10, Y: 20}))
	n, _ := f.store.Node(ctx, f.loop.ID)
	assert.Equal(t, workflow.Position{X: 10, Y: 20}, n.Position)
	assert.ErrorIs(t, f.store.MoveNode(ctx, "ghost", workflow.Position{}), workflow.ErrUnknownNode)
}

func TestReplace(t *testing.T) {
	ctx := context.Background()
	f := newPipeline(t)

	t.Run("invalid graph keeps previous", func(t *testing.T) {
		before := f.store.Snapshot(ctx)
		err := f.store.Replace(ctx, workflow.Graph{
			Nodes: []workflow.Node{{ID: "a", Kind: catalog.KindMerge}, {ID: "b", Kind: catalog.KindLoop}},
			Edges: []workflow.Edge{{ID: "e", Source: "a", Target: "b"}},
		})
		assert.ErrorIs(t, err, connection.ErrInvalidConnection)
		assert.Equal(t, before, f.store.Snapshot(ctx))
	})

	t.Run("valid graph derives pairing once", func(t *testing.T) {
		f.resolver.reset()
		err := f.store.Replace(ctx, workflow.Graph{
			Nodes: []workflow.Node{
				{ID: "l", Kind: catalog.KindLoop, Label: "L"},
				{ID: "d", Kind: catalog.KindDetailFetch},
				{ID: "m", Kind: catalog.KindMerge, Label: "M", Pairing: &workflow.Pairing{PartnerID: "stale"}},
			},
			Edges: []workflow.Edge{{ID: "e1", Source: "l", Target: "d"}, {ID: "e2", Source: "d", Target: "m"}},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, f.resolver.calls)
		m, _ := f.store.Node(ctx, "m")
		assert.Equal(t, "l", m.Pairing.PartnerID)
		assertInvariants(t, f.store)
	})
}

func TestSnapshotIsACopy(t *testing.T) {
	f := newPipeline(t)
	ctx := context.Background()

	g := f.store.Snapshot(ctx)
	g.Nodes[0].Label = "mutated"
	g.Edges[0].Target = "mutated"

	fresh := f.store.Snapshot(ctx)
	assert.NotEqual(t, "mutated", fresh.Nodes[0].Label)
	assert.NotEqual(t, "mutated", fresh.Edges[0].Target)
}

func TestNodesAndEdges(t *testing.T) {
	f := newPipeline(t)
	ctx := context.Background()

	nodes := f.store.Nodes(ctx)
	require.Len(t, nodes, 4)
	assert.Equal(t, []string{f.best.ID, f.loop.ID, f.detail.ID, f.merge.ID},
		[]string{nodes[0].ID, nodes[1].ID, nodes[2].ID, nodes[3].ID})

	edges := f.store.Edges(ctx)
	require.Len(t, edges, 3)
	assert.Equal(t, f.best.ID, edges[0].Source)
	edges[0].Source = "mutated"
	assert.Equal(t, f.best.ID, f.store.Edges(ctx)[0].Source)
}

func TestConcurrentReads(t *testing.T) {
	f := newPipeline(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = f.store.Snapshot(ctx)
		}()
	}
	_, err := f.store.AddNode(ctx, catalog.KindMerge, nil)
	require.NoError(t, err)
	wg.Wait()
}
