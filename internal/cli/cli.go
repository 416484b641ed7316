package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/specialistvlad/gridflow/internal/app"
	"github.com/specialistvlad/gridflow/internal/docstore"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Environment variables read as flag defaults.
const (
	EnvDatabaseURL      = "GRIDFLOW_DATABASE_URL"
	EnvBackendURL       = "GRIDFLOW_BACKEND_URL"
	EnvBackendToken     = "GRIDFLOW_BACKEND_TOKEN"
	EnvOwner            = "GRIDFLOW_OWNER"
	EnvPort             = "GRIDFLOW_PORT"
	EnvSnapshotEndpoint = "GRIDFLOW_SNAPSHOT_ENDPOINT"
	EnvSnapshotRegion   = "GRIDFLOW_SNAPSHOT_REGION"
	EnvSnapshotAccess   = "GRIDFLOW_SNAPSHOT_ACCESS_KEY"
	EnvSnapshotSecret   = "GRIDFLOW_SNAPSHOT_SECRET_KEY"
	EnvSnapshotBucket   = "GRIDFLOW_SNAPSHOT_BUCKET"
	EnvSnapshotUseSSL   = "GRIDFLOW_SNAPSHOT_USE_SSL"
)

const defaultPort = 8080

const usage = `
gridflow - build, convert and edit product-data workflow graphs.

Usage:
  gridflow convert [options] INPUT     Convert HCL pipelines or a JSON document to flow_data JSON.
  gridflow runs [options] WORKFLOW_ID  Print the run history of a saved workflow.
  gridflow serve [options]             Start the websocket editor server.
  gridflow snapshots [options] WORKFLOW_ID
                                       List stored snapshots, or print one with --key.

Arguments:
  INPUT
    A .hcl file, a directory of .hcl files, or a .json flow_data document.

Environment:
  GRIDFLOW_DATABASE_URL, GRIDFLOW_BACKEND_URL, GRIDFLOW_BACKEND_TOKEN,
  GRIDFLOW_OWNER, GRIDFLOW_PORT and GRIDFLOW_SNAPSHOT_* provide defaults for
  the matching options. A .env file in the working directory is honoured.

Options:
`

// Parse processes command-line arguments. It returns a populated Config, a
// boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("gridflow", flag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.Usage = func() {
		fmt.Fprint(output, usage)
		flagSet.PrintDefaults()
	}

	portDefault, err := envInt(EnvPort, defaultPort)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	useSSL, err := envBool(EnvSnapshotUseSSL, true)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	outputFlag := flagSet.String("output", "", "convert: write the document to this file instead of stdout.")
	oFlag := flagSet.String("o", "", "convert: output file (shorthand).")
	repairFlag := flagSet.Bool("repair", false, "convert: repair malformed JSON input before decoding.")
	saveFlag := flagSet.Bool("save", false, "convert: save the converted document as a new workflow.")
	nameFlag := flagSet.String("name", "", "convert: name of the saved workflow.")
	portFlag := flagSet.Int("port", portDefault, "serve: port of the editor server.")
	ownerFlag := flagSet.String("owner", os.Getenv(EnvOwner), "Owner of saved workflows.")
	dbFlag := flagSet.String("database-url", os.Getenv(EnvDatabaseURL), "Postgres connection string of the workflow store.")
	backendFlag := flagSet.String("backend-url", os.Getenv(EnvBackendURL), "Base url of the workflow backend API.")
	tokenFlag := flagSet.String("backend-token", os.Getenv(EnvBackendToken), "Bearer token for the workflow backend API.")
	cacheFlag := flagSet.Int("cache-size", docstore.DefaultCacheSize, "Number of workflows kept in the in-process cache.")
	cacheTTLFlag := flagSet.Duration("cache-ttl", docstore.DefaultCacheTTL, "How long cached workflows and runs are served before re-reading the store.")
	keyFlag := flagSet.String("key", "", "snapshots: object key of the snapshot to print.")

	if len(args) == 0 {
		flagSet.Usage()
		return nil, true, nil
	}
	var mode app.Mode
	switch cmd := args[0]; cmd {
	case "-h", "-help", "--help", "help":
		flagSet.Usage()
		return nil, true, nil
	case string(app.ModeConvert), string(app.ModeRuns), string(app.ModeServe), string(app.ModeSnapshots):
		mode = app.Mode(cmd)
	default:
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("unknown command %q, expected convert, runs, serve or snapshots", cmd)}
	}

	positional, err := parseInterleaved(flagSet, args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.", "mode", mode, "positional", positional)

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	maxArgs := 1
	if mode == app.ModeServe {
		maxArgs = 0
	}
	if len(positional) > maxArgs {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("unexpected arguments: %s", strings.Join(positional[maxArgs:], " "))}
	}

	cfg := app.Config{
		Mode:         mode,
		OutputPath:   firstNonEmpty(*outputFlag, *oFlag),
		Repair:       *repairFlag,
		Save:         *saveFlag,
		Name:         *nameFlag,
		Port:         *portFlag,
		Owner:        *ownerFlag,
		DatabaseURL:  *dbFlag,
		BackendURL:   *backendFlag,
		BackendToken: *tokenFlag,
		CacheSize:    *cacheFlag,
		CacheTTL:     *cacheTTLFlag,
		SnapshotKey:  *keyFlag,
		LogFormat:    logFormat,
		LogLevel:     logLevel,
		Snapshot: docstore.S3Config{
			Endpoint:  os.Getenv(EnvSnapshotEndpoint),
			Region:    os.Getenv(EnvSnapshotRegion),
			AccessKey: os.Getenv(EnvSnapshotAccess),
			SecretKey: os.Getenv(EnvSnapshotSecret),
			Bucket:    os.Getenv(EnvSnapshotBucket),
			UseSSL:    useSSL,
		},
	}
	if len(positional) == 1 {
		switch mode {
		case app.ModeConvert:
			cfg.InputPath = positional[0]
		case app.ModeRuns, app.ModeSnapshots:
			cfg.WorkflowID = positional[0]
		}
	}

	config, err := app.NewConfig(cfg)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "mode", config.Mode)
	return config, false, nil
}

// parseInterleaved parses flags that may appear before, between or after
// positional arguments. A bare "--" ends flag parsing.
func parseInterleaved(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		rest := fs.Args()
		if len(rest) == 0 {
			return positional, nil
		}
		if len(args) > len(rest) && args[len(args)-len(rest)-1] == "--" {
			return append(positional, rest...), nil
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func envInt(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return n, nil
}

func envBool(key string, def bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return b, nil
}
