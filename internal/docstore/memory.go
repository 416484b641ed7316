package docstore

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/specialistvlad/gridflow/internal/nodeid"
	"github.com/specialistvlad/gridflow/internal/runresult"
)

// MemoryStore keeps documents in process memory.
type MemoryStore struct {
	mu        sync.RWMutex
	workflows map[string]Workflow
	runs      map[string][]runresult.Run // Key: workflow id.
	now       func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemory creates an empty store. now may be nil.
func NewMemory(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		workflows: make(map[string]Workflow),
		runs:      make(map[string][]runresult.Run),
		now:       now,
	}
}

func (s *MemoryStore) Create(ctx context.Context, w Workflow) (Workflow, error) {
	if err := validate(w); err != nil {
		return Workflow{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if w.ID == "" {
		w.ID = nodeid.NewWorkflow()
	}
	if _, exists := s.workflows[w.ID]; exists {
		return Workflow{}, fmt.Errorf("%w: id '%s' already exists", ErrInvalid, w.ID)
	}
	ts := s.now().UTC()
	w.CreatedAt, w.UpdatedAt = ts, ts
	s.workflows[w.ID] = w.Clone()
	return w, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.workflows[id]
	if !ok {
		return Workflow{}, fmt.Errorf("get '%s': %w", id, ErrNotFound)
	}
	return w.Clone(), nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, p Patch) (Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.workflows[id]
	if !ok {
		return Workflow{}, fmt.Errorf("update '%s': %w", id, ErrNotFound)
	}
	w = p.Apply(w)
	if err := validate(w); err != nil {
		return Workflow{}, err
	}
	w.UpdatedAt = s.now().UTC()
	s.workflows[id] = w
	return w.Clone(), nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.workflows[id]; !ok {
		return fmt.Errorf("delete '%s': %w", id, ErrNotFound)
	}
	delete(s.workflows, id)
	delete(s.runs, id)
	return nil
}

func (s *MemoryStore) List(ctx context.Context, owner string) ([]Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Workflow, 0, len(s.workflows))
	for _, w := range s.workflows {
		if owner == "" || w.Owner == owner {
			out = append(out, w.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) SaveRun(ctx context.Context, run runresult.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.workflows[run.WorkflowID]; !ok {
		return fmt.Errorf("save run for '%s': %w", run.WorkflowID, ErrNotFound)
	}
	if run.ID == "" {
		run.ID = nodeid.NewWorkflow()
	}
	runs := s.runs[run.WorkflowID]
	if i := slices.IndexFunc(runs, func(r runresult.Run) bool { return r.ID == run.ID }); i >= 0 {
		runs[i] = run
	} else {
		runs = append(runs, run)
	}
	s.runs[run.WorkflowID] = runs
	return nil
}

func (s *MemoryStore) ListRuns(ctx context.Context, workflowID string) ([]runresult.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.workflows[workflowID]; !ok {
		return nil, fmt.Errorf("list runs for '%s': %w", workflowID, ErrNotFound)
	}
	out := slices.Clone(s.runs[workflowID])
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}
