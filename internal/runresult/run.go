// Package runresult models the outcome of executing a saved workflow on the
// backend: the run record, the typed per-node results and their text
// rendering.
package runresult

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// ParseStatus validates a status string.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusRunning, StatusCompleted, StatusFailed:
		return st, nil
	}
	return "", fmt.Errorf("unknown run status %q", s)
}

// Terminal reports whether a run in this state will not change again.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Run is one execution of a workflow. Results are keyed by node id.
type Run struct {
	ID           string            `json:"id"`
	WorkflowID   string            `json:"workflow_id"`
	Owner        string            `json:"user_id"`
	Status       Status            `json:"status"`
	Results      map[string]Result `json:"results,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
	StartedAt    time.Time         `json:"started_at"`
	CompletedAt  *time.Time        `json:"completed_at,omitempty"`
}

// UnmarshalJSON accepts the backend's zone-less timestamps and rejects
// statuses outside the run lifecycle.
func (r *Run) UnmarshalJSON(data []byte) error {
	type plain Run
	aux := struct {
		*plain
		Status      string  `json:"status"`
		StartedAt   *string `json:"started_at"`
		CompletedAt *string `json:"completed_at"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	st, err := ParseStatus(aux.Status)
	if err != nil {
		return fmt.Errorf("run '%s': %w", r.ID, err)
	}
	r.Status = st

	if r.StartedAt, err = ParseOptionalTimestamp(aux.StartedAt); err != nil {
		return fmt.Errorf("run '%s' started_at: %w", r.ID, err)
	}
	r.CompletedAt = nil
	if aux.CompletedAt != nil && *aux.CompletedAt != "" {
		at, err := ParseTimestamp(*aux.CompletedAt)
		if err != nil {
			return fmt.Errorf("run '%s' completed_at: %w", r.ID, err)
		}
		r.CompletedAt = &at
	}
	return nil
}
