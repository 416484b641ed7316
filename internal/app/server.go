package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/specialistvlad/gridflow/internal/editorserver"
	"github.com/specialistvlad/gridflow/internal/localsession"
	"github.com/specialistvlad/gridflow/internal/sessionstore"
)

const shutdownTimeout = 5 * time.Second

// serve runs the editor server until ctx is cancelled.
func (a *App) serve(ctx context.Context) error {
	factory := &localsession.SessionFactory{Docs: a.docs, Runner: a.runner, Owner: a.config.Owner}
	if a.runner == nil {
		a.logger.Warn("No backend configured, the run intent is disabled.")
	}
	editor := editorserver.New(factory, sessionstore.New())

	addr := fmt.Sprintf(":%d", a.config.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           editor.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Editor server starting", "address", fmt.Sprintf("http://localhost%s", addr), "health", "/health", "ws", "/ws")
		// ListenAndServe returns ErrServerClosed on graceful shutdown.
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("editor server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	a.logger.Info("Shutting down editor server...")
	err := srv.Shutdown(shutdownCtx)
	if closeErr := editor.Close(shutdownCtx); closeErr != nil {
		a.logger.Warn("Failed to close sessions.", "error", closeErr)
	}
	if err != nil {
		a.logger.Error("Editor server shutdown failed", "error", err)
		return err
	}
	a.logger.Debug("Editor server shut down gracefully.")
	return nil
}
