package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/gridflow/internal/codec"
	"github.com/specialistvlad/gridflow/internal/ctxlog"
	"github.com/specialistvlad/gridflow/internal/docstore"
	"github.com/specialistvlad/gridflow/internal/graphstore"
	"github.com/specialistvlad/gridflow/internal/hclpipeline"
	"github.com/specialistvlad/gridflow/internal/runresult"
)

// Run executes the command selected by the configuration.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.", "mode", a.config.Mode)

	var err error
	switch a.config.Mode {
	case ModeConvert:
		err = a.convert(ctx)
	case ModeRuns:
		err = a.printRuns(ctx)
	case ModeServe:
		err = a.serve(ctx)
	case ModeSnapshots:
		err = a.printSnapshots(ctx)
	default:
		err = fmt.Errorf("unknown command %q", a.config.Mode)
	}

	a.logger.Debug("App.Run method finished.", "error", err)
	return err
}

func (a *App) convert(ctx context.Context) error {
	cfg := a.config
	doc, err := loadDocument(ctx, cfg.InputPath, cfg.Repair)
	if err != nil {
		return err
	}
	a.logger.Info("Pipeline converted.", "nodes", len(doc.Nodes), "edges", len(doc.Edges))

	if err := a.writeDocument(doc); err != nil {
		return err
	}

	if !cfg.Save {
		return nil
	}
	w, err := a.docs.Create(ctx, docstore.Workflow{Name: cfg.Name, FlowData: doc, Owner: cfg.Owner})
	if err != nil {
		return fmt.Errorf("failed to save workflow: %w", err)
	}
	a.logger.Info("Workflow saved.", "workflow_id", w.ID, "name", w.Name)
	return nil
}

// writeDocument writes doc as indented JSON to the output path, or to the
// app's output writer when none is set.
func (a *App) writeDocument(doc codec.FlowData) error {
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	out = append(out, '\n')
	if path := a.config.OutputPath; path != "" {
		if err := os.WriteFile(path, out, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		return nil
	}
	_, err = a.outW.Write(out)
	return err
}

// loadDocument reads a .json document or HCL pipeline files and returns the
// canonical document.
func loadDocument(ctx context.Context, path string, repair bool) (codec.FlowData, error) {
	if !strings.EqualFold(filepath.Ext(path), ".json") {
		doc, _, err := hclpipeline.Load(ctx, path)
		return doc, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return codec.FlowData{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	unmarshal := codec.Unmarshal
	if repair {
		unmarshal = codec.UnmarshalLenient
	}
	g, err := unmarshal(data)
	if err != nil {
		return codec.FlowData{}, fmt.Errorf("%s: %w", path, err)
	}
	return codec.Encode(g)
}

// printSnapshots lists the snapshot keys of a workflow, or with a key
// writes that version's document the way convert does.
func (a *App) printSnapshots(ctx context.Context) error {
	if a.snapshots == nil {
		return errors.New("snapshots are not configured")
	}
	id := a.config.WorkflowID
	if key := a.config.SnapshotKey; key != "" {
		w, err := a.snapshots.Snapshot(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to read snapshot %s: %w", key, err)
		}
		if w.ID != id {
			return fmt.Errorf("snapshot %s belongs to workflow %s, not %s", key, w.ID, id)
		}
		a.logger.Info("Snapshot read.", "workflow_id", w.ID, "name", w.Name, "updated_at", w.UpdatedAt)
		return a.writeDocument(w.FlowData)
	}

	keys, err := a.snapshots.Snapshots(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to list snapshots of %s: %w", id, err)
	}
	if len(keys) == 0 {
		_, err = fmt.Fprintf(a.outW, "No snapshots for workflow %s.\n", id)
		return err
	}
	for _, k := range keys {
		if _, err := fmt.Fprintln(a.outW, k); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) printRuns(ctx context.Context) error {
	id := a.config.WorkflowID
	runs, err := a.docs.ListRuns(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to list runs of %s: %w", id, err)
	}
	return runresult.Format(a.outW, runs, a.nodeOrder(ctx, id))
}

// nodeOrder lists the workflow's nodes in execution order, so results print
// the way data flows. Any failure falls back to sorted ids.
func (a *App) nodeOrder(ctx context.Context, id string) []string {
	w, err := a.docs.Get(ctx, id)
	if err != nil {
		a.logger.Debug("Workflow not readable, results use id order.", "workflow_id", id, "error", err)
		return nil
	}
	g, err := codec.Decode(w.FlowData)
	if err != nil {
		a.logger.Warn("Stored workflow does not decode, results use id order.", "workflow_id", id, "error", err)
		return nil
	}
	order, err := graphstore.Order(g)
	if err != nil {
		return nil
	}
	return order
}
