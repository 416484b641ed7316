package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/specialistvlad/gridflow/internal/app"
	"github.com/stretchr/testify/require"
)

// SafeBuffer is a thread-safe buffer for capturing output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	Dir       string
	Output    string
	LogOutput string
	Err       error
	App       *app.App
}

// WriteFiles writes files, keyed by slash-separated relative path, under a
// fresh temporary directory and returns that directory.
func WriteFiles(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

// RunIntegrationTest runs the app with a default background context.
func RunIntegrationTest(t *testing.T, files map[string]string, cfg app.Config) *HarnessResult {
	t.Helper()
	return RunIntegrationTestWithContext(context.Background(), t, files, cfg)
}

// RunIntegrationTestWithContext writes files to a temporary directory, builds
// an app from cfg and runs it. A relative cfg.InputPath or cfg.OutputPath is
// resolved against that directory. Unless the test chooses a store, documents
// live in memory.
func RunIntegrationTestWithContext(ctx context.Context, t *testing.T, files map[string]string, cfg app.Config) *HarnessResult {
	t.Helper()

	dir := WriteFiles(t, files)
	if cfg.InputPath != "" && !filepath.IsAbs(cfg.InputPath) {
		cfg.InputPath = filepath.Join(dir, filepath.FromSlash(cfg.InputPath))
	}
	if cfg.OutputPath != "" && !filepath.IsAbs(cfg.OutputPath) {
		cfg.OutputPath = filepath.Join(dir, filepath.FromSlash(cfg.OutputPath))
	}
	cfg.LogLevel = "debug"
	cfg.LogFormat = "text"

	res := &HarnessResult{Dir: dir}
	out, logs := &SafeBuffer{}, &SafeBuffer{}
	defer func() {
		res.Output = out.String()
		res.LogOutput = logs.String()
		if os.Getenv("GRIDFLOW_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), res.LogOutput)
		}
	}()

	config, err := app.NewConfig(cfg)
	if err != nil {
		res.Err = err
		return res
	}
	res.App, err = app.NewApp(ctx, out, logs, config)
	if err != nil {
		res.Err = err
		return res
	}
	t.Cleanup(func() { _ = res.App.Close() })

	res.Err = res.App.Run(ctx)
	return res
}
