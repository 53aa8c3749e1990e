// ABOUTME: The serve command: HTTP control API, static page and WebSocket event stream.
// ABOUTME: Checks the LLM provider at startup and shuts down gracefully on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/2389-research/featurecrew/config"
	"github.com/2389-research/featurecrew/executor"
	"github.com/2389-research/featurecrew/hub"
	"github.com/2389-research/featurecrew/llm"
	"github.com/2389-research/featurecrew/tracing"
	"github.com/2389-research/featurecrew/web"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var skipCheck bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and WebSocket server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.load(cmd, map[string]string{
				"host":       "host",
				"port":       "port",
				"output_dir": "output-dir",
			}); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a.cfg, skipCheck)
		},
	}
	cmd.Flags().String("host", "0.0.0.0", "listen host")
	cmd.Flags().Int("port", 8000, "listen port")
	cmd.Flags().String("output-dir", ".", "directory for generated files")
	cmd.Flags().BoolVar(&skipCheck, "skip-llm-check", false, "start even if the LLM provider is unavailable")
	return cmd
}

// serve runs the server until ctx is cancelled or listening fails.
func serve(ctx context.Context, cfg config.Config, skipCheck bool) error {
	settings := cfg.LLMSettings()
	if !skipCheck {
		if err := llm.Preflight(ctx, settings, nil); err != nil {
			return fmt.Errorf("LLM check failed (use --skip-llm-check to start anyway): %w", err)
		}
	}

	tp, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(sctx); err != nil {
			log.Printf("component=cmd action=tracing_shutdown_failed err=%v", err)
		}
	}()

	reg := hub.NewRegistry()
	exec, err := buildExecutor(ctx, cfg, reg, executor.DefaultConfig())
	if err != nil {
		return err
	}
	srv, err := web.NewServer(web.ServerConfig{Executor: exec, Hub: reg, OutputDir: cfg.OutputDir})
	if err != nil {
		return err
	}

	httpServer := srv.HTTPServer(cfg.Addr())
	errCh := make(chan error, 1)
	go func() {
		log.Printf("component=cmd action=listen addr=%s model=%s", cfg.Addr(), settings.Model)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen %s: %w", cfg.Addr(), err)
	case <-ctx.Done():
	}

	log.Printf("component=cmd action=shutdown")
	if exec.IsRunning() {
		_ = exec.Stop()
	}
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	// Hijacked WebSocket connections are not tracked by Shutdown.
	reg.CloseAll()
	return httpServer.Shutdown(sctx)
}
