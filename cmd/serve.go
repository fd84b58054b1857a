package main

import (
	"context"
	"net/http"
	"os/signal"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"legal-explainer/internal/server"
	"legal-explainer/internal/ui"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the document explainer page and JSON API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), terminationSignals...)
		defer stop()

		a := newApp(appConfig, false)
		orch := ui.NewOrchestrator(a.cfg.Gemini, ui.NewPage(), a.pipeline, a.narrator)
		srv := server.New(a.cfg, orch, a.pipeline, a.metrics)

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return errors.Wrap(err, "failed to start server")
			}
			return nil
		case <-ctx.Done():
		}

		log.Info().Msg("Shutting down")
		a.narrator.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "graceful shutdown failed")
		}
		return nil
	},
}
