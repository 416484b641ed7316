package docstore

import (
	"context"
	"slices"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/specialistvlad/gridflow/internal/runresult"
)

const (
	// DefaultCacheSize is used when NewCached is given a non-positive size.
	DefaultCacheSize = 1024
	// DefaultCacheTTL is used when NewCached is given a non-positive ttl.
	DefaultCacheTTL = 30 * time.Second
)

// CachedStore caches Get and ListRuns of another Store. Writes go through to
// the inner store first and then refresh or evict the affected entries.
// Entries expire after a ttl so changes made by other clients of a shared
// backend show up.
type CachedStore struct {
	inner     Store
	workflows *expirable.LRU[string, Workflow]
	runs      *expirable.LRU[string, []runresult.Run]
}

var _ Store = (*CachedStore)(nil)

// NewCached wraps inner with LRU caches of the given size whose entries
// expire after ttl.
func NewCached(inner Store, size int, ttl time.Duration) *CachedStore {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedStore{
		inner:     inner,
		workflows: expirable.NewLRU[string, Workflow](size, nil, ttl),
		runs:      expirable.NewLRU[string, []runresult.Run](size, nil, ttl),
	}
}

func (s *CachedStore) Create(ctx context.Context, w Workflow) (Workflow, error) {
	created, err := s.inner.Create(ctx, w)
	if err != nil {
		return Workflow{}, err
	}
	s.workflows.Add(created.ID, created.Clone())
	return created, nil
}

func (s *CachedStore) Get(ctx context.Context, id string) (Workflow, error) {
	if w, ok := s.workflows.Get(id); ok {
		return w.Clone(), nil
	}
	w, err := s.inner.Get(ctx, id)
	if err != nil {
		return Workflow{}, err
	}
	s.workflows.Add(id, w.Clone())
	return w, nil
}

func (s *CachedStore) Update(ctx context.Context, id string, p Patch) (Workflow, error) {
	updated, err := s.inner.Update(ctx, id, p)
	if err != nil {
		s.workflows.Remove(id)
		return Workflow{}, err
	}
	s.workflows.Add(id, updated.Clone())
	return updated, nil
}

func (s *CachedStore) Delete(ctx context.Context, id string) error {
	s.workflows.Remove(id)
	s.runs.Remove(id)
	return s.inner.Delete(ctx, id)
}

// List is not cached; owners' listings change with every create.
func (s *CachedStore) List(ctx context.Context, owner string) ([]Workflow, error) {
	return s.inner.List(ctx, owner)
}

func (s *CachedStore) SaveRun(ctx context.Context, run runresult.Run) error {
	s.runs.Remove(run.WorkflowID)
	return s.inner.SaveRun(ctx, run)
}

func (s *CachedStore) ListRuns(ctx context.Context, workflowID string) ([]runresult.Run, error) {
	if runs, ok := s.runs.Get(workflowID); ok {
		return slices.Clone(runs), nil
	}
	runs, err := s.inner.ListRuns(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	s.runs.Add(workflowID, slices.Clone(runs))
	return runs, nil
}

// Invalidate drops every cached entry for a workflow. Used after a run was
// triggered elsewhere.
func (s *CachedStore) Invalidate(workflowID string) {
	s.workflows.Remove(workflowID)
	s.runs.Remove(workflowID)
}
