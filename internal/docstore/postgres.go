package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/specialistvlad/gridflow/internal/ctxlog"
	"github.com/specialistvlad/gridflow/internal/nodeid"
	"github.com/specialistvlad/gridflow/internal/runresult"
)

// PostgresStore keeps documents in PostgreSQL.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time

	schemaOnce sync.Once
	schemaErr  error
}

var _ Store = (*PostgresStore)(nil)

// NewPostgres opens dsn with the pgx driver and checks the connection.
func NewPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{db: db, now: time.Now}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS workflows (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  flow_data JSONB NOT NULL,
  user_id TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_workflows_user_id ON workflows (user_id);

CREATE TABLE IF NOT EXISTS workflow_runs (
  id TEXT PRIMARY KEY,
  workflow_id TEXT NOT NULL REFERENCES workflows (id) ON DELETE CASCADE,
  user_id TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL,
  results JSONB,
  error_message TEXT NOT NULL DEFAULT '',
  started_at TIMESTAMPTZ NOT NULL,
  completed_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_workflow_runs_workflow_id ON workflow_runs (workflow_id, started_at DESC);
`)
		if s.schemaErr == nil {
			ctxlog.FromContext(ctx).Debug("Postgres schema ensured.")
		}
	})
	return s.schemaErr
}

type rowScanner interface {
	Scan(dest ...any) error
}

const workflowColumns = `id, name, description, flow_data, user_id, created_at, updated_at`

func scanWorkflow(row rowScanner) (Workflow, error) {
	var (
		w    Workflow
		flow []byte
	)
	if err := row.Scan(&w.ID, &w.Name, &w.Description, &flow, &w.Owner, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return Workflow{}, err
	}
	if err := json.Unmarshal(flow, &w.FlowData); err != nil {
		return Workflow{}, fmt.Errorf("decode flow_data of '%s': %w", w.ID, err)
	}
	return w, nil
}

func (s *PostgresStore) Create(ctx context.Context, w Workflow) (Workflow, error) {
	if err := validate(w); err != nil {
		return Workflow{}, err
	}
	if err := s.ensureSchema(ctx); err != nil {
		return Workflow{}, err
	}
	if w.ID == "" {
		w.ID = nodeid.NewWorkflow()
	}
	flow, err := json.Marshal(w.FlowData)
	if err != nil {
		return Workflow{}, fmt.Errorf("encode flow_data: %w", err)
	}
	ts := s.now().UTC()
	w.CreatedAt, w.UpdatedAt = ts, ts

	_, err = s.db.ExecContext(ctx, `INSERT INTO workflows (`+workflowColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		w.ID, w.Name, w.Description, flow, w.Owner, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		return Workflow{}, fmt.Errorf("insert workflow '%s': %w", w.ID, err)
	}
	return w, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Workflow, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return Workflow{}, err
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+workflowColumns+` FROM workflows WHERE id = $1`, id)
	w, err := scanWorkflow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Workflow{}, fmt.Errorf("get '%s': %w", id, ErrNotFound)
	}
	return w, err
}

func (s *PostgresStore) Update(ctx context.Context, id string, p Patch) (Workflow, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return Workflow{}, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Workflow{}, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `SELECT `+workflowColumns+` FROM workflows WHERE id = $1 FOR UPDATE`, id)
	w, err := scanWorkflow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Workflow{}, fmt.Errorf("update '%s': %w", id, ErrNotFound)
	}
	if err != nil {
		return Workflow{}, err
	}

	w = p.Apply(w)
	if err := validate(w); err != nil {
		return Workflow{}, err
	}
	w.UpdatedAt = s.now().UTC()
	flow, err := json.Marshal(w.FlowData)
	if err != nil {
		return Workflow{}, fmt.Errorf("encode flow_data: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE workflows
SET name = $2, description = $3, flow_data = $4, updated_at = $5
WHERE id = $1`, w.ID, w.Name, w.Description, flow, w.UpdatedAt); err != nil {
		return Workflow{}, fmt.Errorf("update workflow '%s': %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return Workflow{}, err
	}
	return w, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM workflows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete workflow '%s': %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete '%s': %w", id, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, owner string) ([]Workflow, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	var (
		rows *sql.Rows
		err  error
	)
	if owner == "" {
		rows, err = s.db.QueryContext(ctx, `SELECT `+workflowColumns+` FROM workflows ORDER BY created_at, id`)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT `+workflowColumns+` FROM workflows WHERE user_id = $1 ORDER BY created_at, id`, owner)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Workflow
	for rows.Next() {
		w, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SaveRun(ctx context.Context, run runresult.Run) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	if run.ID == "" {
		run.ID = nodeid.NewWorkflow()
	}
	var results []byte
	if run.Results != nil {
		var err error
		if results, err = json.Marshal(run.Results); err != nil {
			return fmt.Errorf("encode run results: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO workflow_runs
  (id, workflow_id, user_id, status, results, error_message, started_at, completed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET
  status = EXCLUDED.status,
  results = EXCLUDED.results,
  error_message = EXCLUDED.error_message,
  completed_at = EXCLUDED.completed_at`,
		run.ID, run.WorkflowID, run.Owner, string(run.Status), results, run.ErrorMessage, run.StartedAt, run.CompletedAt)
	if err != nil {
		return fmt.Errorf("save run '%s': %w", run.ID, err)
	}
	return nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, workflowID string) ([]runresult.Run, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, workflow_id, user_id, status, results, error_message, started_at, completed_at
FROM workflow_runs WHERE workflow_id = $1 ORDER BY started_at DESC`, workflowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []runresult.Run
	for rows.Next() {
		var (
			run     runresult.Run
			status  string
			results []byte
		)
		if err := rows.Scan(&run.ID, &run.WorkflowID, &run.Owner, &status, &results, &run.ErrorMessage, &run.StartedAt, &run.CompletedAt); err != nil {
			return nil, err
		}
		if run.Status, err = runresult.ParseStatus(status); err != nil {
			return nil, fmt.Errorf("run '%s': %w", run.ID, err)
		}
		if len(results) > 0 {
			if err := json.Unmarshal(results, &run.Results); err != nil {
				return nil, fmt.Errorf("decode results of run '%s': %w", run.ID, err)
			}
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		var one int
		err := s.db.QueryRowContext(ctx, `SELECT 1 FROM workflows WHERE id = $1`, workflowID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("list runs for '%s': %w", workflowID, ErrNotFound)
		}
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
