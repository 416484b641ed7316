package docstore

import (
	"context"
	"testing"
	"time"

	"github.com/specialistvlad/gridflow/internal/runresult"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore records how often reads reach the wrapped store.
type countingStore struct {
	Store
	gets     int
	listRuns int
}

func (c *countingStore) Get(ctx context.Context, id string) (Workflow, error) {
	c.gets++
	return c.Store.Get(ctx, id)
}

func (c *countingStore) ListRuns(ctx context.Context, workflowID string) ([]runresult.Run, error) {
	c.listRuns++
	return c.Store.ListRuns(ctx, workflowID)
}

func newCounting(t *testing.T) (*countingStore, *CachedStore) {
	t.Helper()
	inner := &countingStore{Store: NewMemory(tickingClock())}
	return inner, NewCached(inner, 8, time.Minute)
}

func TestCachedStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		_, s := newCounting(t)
		return s
	})
}

func TestCachedStore_GetHitsCache(t *testing.T) {
	ctx := context.Background()
	inner, s := newCounting(t)

	w, err := s.Create(ctx, Workflow{Name: "cached"})
	require.NoError(t, err)

	for range 3 {
		_, err := s.Get(ctx, w.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, 0, inner.gets, "create should prime the cache")

	s.Invalidate(w.ID)
	_, err = s.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.gets)
}

func TestCachedStore_UpdateRefreshes(t *testing.T) {
	ctx := context.Background()
	_, s := newCounting(t)

	w, err := s.Create(ctx, Workflow{Name: "v1"})
	require.NoError(t, err)
	name := "v2"
	_, err = s.Update(ctx, w.ID, Patch{Name: &name})
	require.NoError(t, err)

	got, err := s.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Name)
}

func TestCachedStore_SaveRunEvictsRuns(t *testing.T) {
	ctx := context.Background()
	inner, s := newCounting(t)

	w, err := s.Create(ctx, Workflow{Name: "runs"})
	require.NoError(t, err)

	runs, err := s.ListRuns(ctx, w.ID)
	require.NoError(t, err)
	assert.Empty(t, runs)
	_, err = s.ListRuns(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.listRuns)

	require.NoError(t, s.SaveRun(ctx, runresult.Run{ID: "r1", WorkflowID: w.ID, Status: runresult.StatusRunning}))
	runs, err = s.ListRuns(ctx, w.ID)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
	assert.Equal(t, 2, inner.listRuns)
}

func TestCachedStore_DeleteEvicts(t *testing.T) {
	ctx := context.Background()
	_, s := newCounting(t)

	w, err := s.Create(ctx, Workflow{Name: "tmp"})
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, w.ID))

	_, err = s.Get(ctx, w.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCachedStore_EntriesExpire(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{Store: NewMemory(tickingClock())}
	s := NewCached(inner, 8, 20*time.Millisecond)

	w, err := s.Create(ctx, Workflow{Name: "shared"})
	require.NoError(t, err)
	_, err = s.ListRuns(ctx, w.ID)
	require.NoError(t, err)

	// Another client renames the document behind the cache.
	name := "renamed elsewhere"
	_, err = inner.Store.Update(ctx, w.ID, Patch{Name: &name})
	require.NoError(t, err)
	require.NoError(t, inner.Store.SaveRun(ctx, runresult.Run{ID: "r1", WorkflowID: w.ID, Status: runresult.StatusRunning, StartedAt: time.Now()}))

	got, err := s.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "shared", got.Name, "fresh entries are served from the cache")

	time.Sleep(60 * time.Millisecond)

	got, err = s.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed elsewhere", got.Name)
	runs, err := s.ListRuns(ctx, w.ID)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
	assert.Equal(t, 1, inner.gets)
	assert.Equal(t, 2, inner.listRuns)
}
