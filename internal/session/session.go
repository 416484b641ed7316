// Package session defines an editing session: one graph under edit, the
// intents that change it and the view handed back to the editor.
//
// The concrete implementation lives in internal/localsession.
package session

import (
	"context"
	"errors"

	"github.com/specialistvlad/gridflow/internal/codec"
	"github.com/specialistvlad/gridflow/internal/dataflow"
	"github.com/specialistvlad/gridflow/internal/runresult"
)

var (
	// ErrUnknownIntent is returned for an intent type the session does not handle.
	ErrUnknownIntent = errors.New("unknown intent")
	// ErrBadIntent is returned when an intent lacks a field its type requires.
	ErrBadIntent = errors.New("malformed intent")
	// ErrNotSaved is returned by run and runs before the graph has a workflow id.
	ErrNotSaved = errors.New("workflow has not been saved")
)

// Factory creates sessions.
type Factory interface {
	NewSession(ctx context.Context) (Session, error)
}

// Session is one user's editing of one graph. Intents are applied one at a
// time; View may be called concurrently with Apply.
type Session interface {
	ID() string
	Apply(ctx context.Context, in Intent) (Result, error)
	View(ctx context.Context) (View, error)
	// Close releases any resources held by the session.
	Close(ctx context.Context) error
}

// View is the editor-facing state of a session. Nodes and edges use the
// persisted layout, so pairing keys are present on loop and merge nodes.
type View struct {
	SessionID  string                          `json:"session_id"`
	WorkflowID string                          `json:"workflow_id,omitempty"`
	Nodes      []codec.Node                    `json:"nodes"`
	Edges      []codec.Edge                    `json:"edges"`
	Flow       map[string]dataflow.Description `json:"flow"`
	// Pairs maps each paired loop id to its merge id.
	Pairs map[string]string `json:"pairs"`
}

// Result is the outcome of one intent. View is always set; the other fields
// depend on the intent type.
type Result struct {
	View View `json:"view"`

	// Set by preview.
	Valid  *bool  `json:"valid,omitempty"`
	Reason string `json:"reason,omitempty"`

	// Set by add_node and set_parameter.
	NodeID string `json:"node_id,omitempty"`
	// Set by connect.
	EdgeID string `json:"edge_id,omitempty"`

	Run  *runresult.Run  `json:"run,omitempty"`
	Runs []runresult.Run `json:"runs,omitempty"`
}
