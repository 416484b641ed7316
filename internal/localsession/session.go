// Package localsession provides the in-process implementation of
// session.Session and session.Factory.
package localsession

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/specialistvlad/gridflow/internal/catalog"
	"github.com/specialistvlad/gridflow/internal/codec"
	"github.com/specialistvlad/gridflow/internal/connection"
	"github.com/specialistvlad/gridflow/internal/ctxlog"
	"github.com/specialistvlad/gridflow/internal/dataflow"
	"github.com/specialistvlad/gridflow/internal/docstore"
	"github.com/specialistvlad/gridflow/internal/graphstore"
	"github.com/specialistvlad/gridflow/internal/inmemorygraph"
	"github.com/specialistvlad/gridflow/internal/nodeid"
	"github.com/specialistvlad/gridflow/internal/pairing"
	"github.com/specialistvlad/gridflow/internal/session"
	"github.com/specialistvlad/gridflow/internal/workflow"
	"github.com/zclconf/go-cty/cty"
)

// invalidator is implemented by caching stores that must forget a workflow
// after the backend ran it.
type invalidator interface {
	Invalidate(workflowID string)
}

// DefaultWorkflowName names documents saved for the first time without one.
const DefaultWorkflowName = "Untitled Workflow"

// SessionFactory creates sessions sharing one document store and runner.
// Runner may be nil, in which case the run intent is unsupported.
type SessionFactory struct {
	Docs   docstore.Store
	Runner docstore.Runner
	// Owner is stamped on documents created by save.
	Owner string
}

var _ session.Factory = (*SessionFactory)(nil)

// NewSession creates a session with an empty in-memory graph.
func (f *SessionFactory) NewSession(ctx context.Context) (session.Session, error) {
	if f.Docs == nil {
		return nil, fmt.Errorf("session factory has no document store")
	}
	s := &Session{
		id:     nodeid.NewWorkflow(),
		graph:  inmemorygraph.New(),
		docs:   f.Docs,
		runner: f.Runner,
		owner:  f.Owner,
	}
	ctxlog.FromContext(ctx).Debug("Session created.", "session_id", s.id)
	return s, nil
}

// Session implements session.Session over an inmemorygraph.Store.
type Session struct {
	id     string
	graph  graphstore.Store
	docs   docstore.Store
	runner docstore.Runner
	owner  string

	// applyMu serializes intents; mu guards workflowID for concurrent View.
	applyMu    sync.Mutex
	mu         sync.RWMutex
	workflowID string
}

var _ session.Session = (*Session)(nil)

func (s *Session) ID() string { return s.id }

// Apply runs one intent and returns the resulting view.
func (s *Session) Apply(ctx context.Context, in session.Intent) (session.Result, error) {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	logger := ctxlog.FromContext(ctx).With("session_id", s.id, "intent", string(in.Type))
	ctx = ctxlog.WithLogger(ctx, logger)

	var (
		res session.Result
		err error
	)
	switch in.Type {
	case session.IntentAddNode:
		res, err = s.addNode(ctx, in)
	case session.IntentConnect:
		res, err = s.connect(ctx, in)
	case session.IntentPreview:
		res, err = s.preview(ctx, in)
	case session.IntentDisconnect:
		err = s.disconnect(ctx, in)
	case session.IntentDeleteNode:
		err = s.deleteNode(ctx, in)
	case session.IntentSetParameter:
		res, err = s.setParameter(ctx, in)
	case session.IntentMoveNode:
		err = s.moveNode(ctx, in)
	case session.IntentSave:
		err = s.save(ctx, in)
	case session.IntentLoad:
		err = s.load(ctx, in)
	case session.IntentRun:
		res, err = s.run(ctx, in)
	case session.IntentRuns:
		res, err = s.runs(ctx, in)
	default:
		err = fmt.Errorf("%w: '%s'", session.ErrUnknownIntent, in.Type)
	}
	if err != nil {
		logger.Debug("Intent refused.", "error", err)
		return session.Result{}, err
	}

	res.View, err = s.View(ctx)
	if err != nil {
		return session.Result{}, err
	}
	logger.Debug("Intent applied.")
	return res, nil
}

// View encodes the current graph and its data-flow annotations.
func (s *Session) View(ctx context.Context) (session.View, error) {
	g := s.graph.Snapshot(ctx)
	doc, err := codec.Encode(g)
	if err != nil {
		return session.View{}, err
	}
	return session.View{
		SessionID:  s.id,
		WorkflowID: s.currentWorkflow(),
		Nodes:      doc.Nodes,
		Edges:      doc.Edges,
		Flow:       dataflow.DescribeAll(g.Nodes, g.Edges),
		Pairs:      pairing.Pairs(g.Nodes),
	}, nil
}

// Close is a no-op; the graph lives only in memory.
func (s *Session) Close(ctx context.Context) error {
	ctxlog.FromContext(ctx).Debug("Session closed.", "session_id", s.id)
	return nil
}

func (s *Session) currentWorkflow() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.workflowID
}

func (s *Session) setWorkflow(id string) {
	s.mu.Lock()
	s.workflowID = id
	s.mu.Unlock()
}

func (s *Session) addNode(ctx context.Context, in session.Intent) (session.Result, error) {
	kind, ok := catalog.ParseKind(in.Kind)
	if !ok {
		return session.Result{}, fmt.Errorf("%w: unknown node kind '%s'", session.ErrBadIntent, in.Kind)
	}
	params, err := in.ParamValues()
	if err != nil {
		return session.Result{}, err
	}
	label, hasLabel := params[graphstore.LabelField]
	delete(params, graphstore.LabelField)

	n, err := s.graph.AddNode(ctx, kind, params)
	if err != nil {
		return session.Result{}, err
	}
	if in.Position != nil {
		if err := s.graph.MoveNode(ctx, n.ID, *in.Position); err != nil {
			return session.Result{}, err
		}
	}
	if hasLabel {
		if _, err := s.graph.UpdateNodeParameters(ctx, n.ID, map[string]cty.Value{graphstore.LabelField: label}); err != nil {
			_ = s.graph.RemoveNode(ctx, n.ID)
			return session.Result{}, err
		}
	}
	return session.Result{NodeID: n.ID}, nil
}

func (s *Session) connect(ctx context.Context, in session.Intent) (session.Result, error) {
	if in.Source == "" || in.Target == "" {
		return session.Result{}, fmt.Errorf("%w: connect needs source and target", session.ErrBadIntent)
	}
	e, err := s.graph.AddEdge(ctx, in.Source, in.Target)
	if err != nil {
		return session.Result{}, err
	}
	return session.Result{EdgeID: e.ID}, nil
}

// preview answers whether connect would pass the validator, without
// changing the graph. Unknown endpoints are an error, not a false.
func (s *Session) preview(ctx context.Context, in session.Intent) (session.Result, error) {
	src, ok := s.graph.Node(ctx, in.Source)
	if !ok {
		return session.Result{}, fmt.Errorf("preview source '%s': %w", in.Source, workflow.ErrUnknownNode)
	}
	dst, ok := s.graph.Node(ctx, in.Target)
	if !ok {
		return session.Result{}, fmt.Errorf("preview target '%s': %w", in.Target, workflow.ErrUnknownNode)
	}

	valid := true
	res := session.Result{Valid: &valid}
	if err := connection.Check(src.Kind, dst.Kind, src.ID, dst.ID); err != nil {
		valid = false
		var ce *connection.Error
		if errors.As(err, &ce) {
			res.Reason = ce.Reason
		}
	}
	return res, nil
}

func (s *Session) disconnect(ctx context.Context, in session.Intent) error {
	if len(in.EdgeIDs) == 0 {
		return fmt.Errorf("%w: disconnect needs edge_ids", session.ErrBadIntent)
	}
	return s.graph.RemoveEdges(ctx, in.EdgeIDs...)
}

func (s *Session) deleteNode(ctx context.Context, in session.Intent) error {
	if in.NodeID == "" {
		return fmt.Errorf("%w: delete_node needs node_id", session.ErrBadIntent)
	}
	return s.graph.RemoveNode(ctx, in.NodeID)
}

func (s *Session) setParameter(ctx context.Context, in session.Intent) (session.Result, error) {
	if in.NodeID == "" {
		return session.Result{}, fmt.Errorf("%w: set_parameter needs node_id", session.ErrBadIntent)
	}
	params, err := in.ParamValues()
	if err != nil {
		return session.Result{}, err
	}
	n, err := s.graph.UpdateNodeParameters(ctx, in.NodeID, params)
	if err != nil {
		return session.Result{}, err
	}
	return session.Result{NodeID: n.ID}, nil
}

func (s *Session) moveNode(ctx context.Context, in session.Intent) error {
	if in.NodeID == "" || in.Position == nil {
		return fmt.Errorf("%w: move_node needs node_id and position", session.ErrBadIntent)
	}
	return s.graph.MoveNode(ctx, in.NodeID, *in.Position)
}

// save creates a document on first save and updates it afterwards.
func (s *Session) save(ctx context.Context, in session.Intent) error {
	doc, err := codec.Encode(s.graph.Snapshot(ctx))
	if err != nil {
		return err
	}

	id := s.currentWorkflow()
	if in.WorkflowID != "" {
		id = in.WorkflowID
	}
	if id == "" {
		w := docstore.Workflow{Name: DefaultWorkflowName, FlowData: doc, Owner: s.owner}
		if in.Name != nil && strings.TrimSpace(*in.Name) != "" {
			w.Name = strings.TrimSpace(*in.Name)
		}
		if in.Description != nil {
			w.Description = *in.Description
		}
		created, err := s.docs.Create(ctx, w)
		if err != nil {
			return err
		}
		s.setWorkflow(created.ID)
		ctxlog.FromContext(ctx).Info("Workflow created.", "workflow_id", created.ID)
		return nil
	}

	if _, err := s.docs.Update(ctx, id, docstore.Patch{
		Name:        in.Name,
		Description: in.Description,
		FlowData:    &doc,
	}); err != nil {
		return err
	}
	s.setWorkflow(id)
	ctxlog.FromContext(ctx).Info("Workflow saved.", "workflow_id", id)
	return nil
}

func (s *Session) load(ctx context.Context, in session.Intent) error {
	if in.WorkflowID == "" {
		return fmt.Errorf("%w: load needs workflow_id", session.ErrBadIntent)
	}
	w, err := s.docs.Get(ctx, in.WorkflowID)
	if err != nil {
		return err
	}
	g, err := codec.Decode(w.FlowData)
	if err != nil {
		return fmt.Errorf("load workflow '%s': %w", w.ID, err)
	}
	if err := s.graph.Replace(ctx, g); err != nil {
		return err
	}
	s.setWorkflow(w.ID)
	return nil
}

func (s *Session) targetWorkflow(in session.Intent) (string, error) {
	if in.WorkflowID != "" {
		return in.WorkflowID, nil
	}
	if id := s.currentWorkflow(); id != "" {
		return id, nil
	}
	return "", session.ErrNotSaved
}

func (s *Session) run(ctx context.Context, in session.Intent) (session.Result, error) {
	if s.runner == nil {
		return session.Result{}, fmt.Errorf("run: %w", docstore.ErrUnsupported)
	}
	id, err := s.targetWorkflow(in)
	if err != nil {
		return session.Result{}, err
	}
	run, err := s.runner.Run(ctx, id)
	if err != nil {
		return session.Result{}, err
	}
	if inv, ok := s.docs.(invalidator); ok {
		inv.Invalidate(id)
	}
	ctxlog.FromContext(ctx).Info("Workflow run requested.", "workflow_id", id, "run_id", run.ID, "status", string(run.Status))
	return session.Result{Run: &run}, nil
}

func (s *Session) runs(ctx context.Context, in session.Intent) (session.Result, error) {
	id, err := s.targetWorkflow(in)
	if err != nil {
		return session.Result{}, err
	}
	runs, err := s.docs.ListRuns(ctx, id)
	if err != nil {
		return session.Result{}, err
	}
	return session.Result{Runs: runs}, nil
}
