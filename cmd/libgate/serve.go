// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibGate Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/libgate/libgate/internal/authz/engine"
	"github.com/libgate/libgate/internal/logging"
	"github.com/libgate/libgate/internal/observability"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the authorization service",
		Long: `Load the policy snapshot, subscribe to cross-process invalidations
and serve metrics and health probes until interrupted.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.RequireDatabase(); err != nil {
		return err
	}

	logging.SetDefault("libgate", version, cfg.LogFormat)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	svcs, cleanup, err := buildServices(ctx, cfg.DatabaseURL, cfg.RedisURL, engine.Options{
		AutoReloadInterval: cfg.AutoReloadInterval,
	})
	if err != nil {
		return err
	}
	defer cleanup()

	slog.Info("policy snapshot loaded", "rules", svcs.handle.Store.Len())

	// Start observability server if configured
	var obsServer *observability.Server
	if cfg.MetricsAddr != "" {
		obsServer = observability.NewServer(cfg.MetricsAddr, func() bool {
			return !svcs.handle.Store.LastLoad().IsZero()
		})
		obsErrChan, startErr := obsServer.Start()
		if startErr != nil {
			return startErr
		}
		// Monitor observability server errors - cancel context on error
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		slog.Info("observability server started", "addr", obsServer.Addr())
	}

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("libgate started")
	slog.Info("libgate ready",
		"metrics_addr", cfg.MetricsAddr,
		"auto_reload_interval", cfg.AutoReloadInterval,
	)

	// Wait for shutdown signal or server failure
	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping observability server", "error", err)
		}
	}

	slog.Info("shutdown complete")
	return nil
}

// monitorServerErrors monitors a server's error channel and cancels the context on error.
// This ensures that server failures trigger graceful shutdown of the entire process.
// It exits when either an error is received, the channel is closed, or the context is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			// Channel closed, server stopped gracefully
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
		// Context cancelled, exit monitoring
	}
}
