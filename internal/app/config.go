package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/specialistvlad/gridflow/internal/docstore"
)

// Mode selects what Run does.
type Mode string

const (
	// ModeConvert turns an HCL or JSON pipeline into a flow_data document.
	ModeConvert Mode = "convert"
	// ModeRuns prints the run history of a saved workflow.
	ModeRuns Mode = "runs"
	// ModeServe starts the editor server.
	ModeServe Mode = "serve"
	// ModeSnapshots lists or prints the stored snapshots of a workflow.
	ModeSnapshots Mode = "snapshots"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Mode Mode

	// convert
	InputPath  string // .hcl file, directory of .hcl files, or .json file
	OutputPath string // empty writes to the app's output writer
	Repair     bool   // repair malformed JSON input before decoding
	Save       bool
	Name       string

	// runs, snapshots
	WorkflowID string
	// snapshots: print this object key instead of listing
	SnapshotKey string

	// serve
	Port int

	Owner        string
	DatabaseURL  string
	BackendURL   string
	BackendToken string
	Snapshot     docstore.S3Config
	CacheSize    int
	CacheTTL     time.Duration

	LogFormat string
	LogLevel  string
}

// NewConfig validates cfg.
func NewConfig(cfg Config) (*Config, error) {
	switch cfg.Mode {
	case ModeConvert:
		if strings.TrimSpace(cfg.InputPath) == "" {
			return nil, errors.New("convert needs an input path")
		}
		if cfg.Save && strings.TrimSpace(cfg.Name) == "" {
			return nil, errors.New("--save needs --name")
		}
	case ModeRuns:
		if strings.TrimSpace(cfg.WorkflowID) == "" {
			return nil, errors.New("runs needs a workflow id")
		}
		if cfg.DatabaseURL == "" && cfg.BackendURL == "" {
			return nil, errors.New("runs needs a database or backend url")
		}
	case ModeSnapshots:
		if strings.TrimSpace(cfg.WorkflowID) == "" {
			return nil, errors.New("snapshots needs a workflow id")
		}
		if !cfg.Snapshot.Enabled() {
			return nil, errors.New("snapshots needs a snapshot endpoint and bucket")
		}
	case ModeServe:
		if cfg.Port <= 0 || cfg.Port > 65535 {
			return nil, fmt.Errorf("invalid port %d", cfg.Port)
		}
	default:
		return nil, fmt.Errorf("unknown command %q", cfg.Mode)
	}
	if cfg.DatabaseURL != "" && cfg.BackendURL != "" {
		return nil, errors.New("database url and backend url are mutually exclusive")
	}
	if cfg.CacheSize < 0 {
		return nil, errors.New("cache size must not be negative")
	}
	if cfg.CacheTTL < 0 {
		return nil, errors.New("cache ttl must not be negative")
	}
	return &cfg, nil
}
