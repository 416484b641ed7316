package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/specialistvlad/gridflow/internal/codec"
	"github.com/specialistvlad/gridflow/internal/runresult"
)

var (
	// ErrNotFound is returned when a workflow id does not exist.
	ErrNotFound = errors.New("workflow not found")
	// ErrInvalid is returned when a document fails basic validation.
	ErrInvalid = errors.New("invalid workflow")
	// ErrUnsupported is returned by stores that cannot perform an operation.
	ErrUnsupported = errors.New("operation not supported by this store")
)

// Workflow is a saved document.
type Workflow struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	FlowData    codec.FlowData `json:"flow_data"`
	Owner       string         `json:"user_id,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// UnmarshalJSON accepts RFC 3339 timestamps and the backend's zone-less
// ones. A null updated_at leaves UpdatedAt zero.
func (w *Workflow) UnmarshalJSON(data []byte) error {
	type plain Workflow
	aux := struct {
		*plain
		CreatedAt *string `json:"created_at"`
		UpdatedAt *string `json:"updated_at"`
	}{plain: (*plain)(w)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	var err error
	if w.CreatedAt, err = runresult.ParseOptionalTimestamp(aux.CreatedAt); err != nil {
		return fmt.Errorf("workflow '%s' created_at: %w", w.ID, err)
	}
	if w.UpdatedAt, err = runresult.ParseOptionalTimestamp(aux.UpdatedAt); err != nil {
		return fmt.Errorf("workflow '%s' updated_at: %w", w.ID, err)
	}
	return nil
}

// Clone returns a deep copy of w.
func (w Workflow) Clone() Workflow {
	w.FlowData = w.FlowData.Clone()
	return w
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	Name        *string         `json:"name,omitempty"`
	Description *string         `json:"description,omitempty"`
	FlowData    *codec.FlowData `json:"flow_data,omitempty"`
}

// Apply writes the non-nil fields of p onto w.
func (p Patch) Apply(w Workflow) Workflow {
	if p.Name != nil {
		w.Name = *p.Name
	}
	if p.Description != nil {
		w.Description = *p.Description
	}
	if p.FlowData != nil {
		w.FlowData = p.FlowData.Clone()
	}
	return w
}

// Store persists workflow documents and their runs.
type Store interface {
	// Create stores a new document. An empty ID is replaced by a fresh one;
	// timestamps are set by the store.
	Create(ctx context.Context, w Workflow) (Workflow, error)
	Get(ctx context.Context, id string) (Workflow, error)
	// Update applies p and bumps UpdatedAt.
	Update(ctx context.Context, id string, p Patch) (Workflow, error)
	Delete(ctx context.Context, id string) error
	// List returns the documents of owner, oldest first. An empty owner
	// lists every document the store can see.
	List(ctx context.Context, owner string) ([]Workflow, error)
	// SaveRun inserts or replaces a run record.
	SaveRun(ctx context.Context, run runresult.Run) error
	// ListRuns returns the runs of a workflow, newest first.
	ListRuns(ctx context.Context, workflowID string) ([]runresult.Run, error)
}

// Runner asks the execution backend to run a saved workflow.
type Runner interface {
	Run(ctx context.Context, workflowID string) (runresult.Run, error)
}

func validate(w Workflow) error {
	if strings.TrimSpace(w.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	return nil
}
