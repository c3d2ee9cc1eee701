// File: cmd/serve.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vxkeys/puppetry/internal/config"
	"github.com/vxkeys/puppetry/internal/driver"
	"github.com/vxkeys/puppetry/internal/executor"
	"github.com/vxkeys/puppetry/internal/observability"
	"github.com/vxkeys/puppetry/internal/scenario"
	"github.com/vxkeys/puppetry/internal/server"
	"github.com/vxkeys/puppetry/internal/session"
	"github.com/vxkeys/puppetry/internal/store"
)

// newServeCmd creates and configures the `serve` command.
func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Runs the automation daemon",
		Long: `Serve runs the daemon until interrupted. Tool calls arrive over the
Model Context Protocol on stdin/stdout; when server.http_addr is set (or
--http is given) an HTTP listener additionally serves health, metrics and
read-only session and scenario state.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := configFromContext(ctx)
			if err != nil {
				return err
			}
			// An explicit --http wins over the config file, including an
			// explicit empty value to disable the listener.
			if cmd.Flags().Changed("http") {
				cfg.Server.HTTPAddr, _ = cmd.Flags().GetString("http")
			}

			components, err := initializeDaemon(ctx, cfg, logger)
			if err != nil {
				if components != nil {
					components.Shutdown()
				}
				return fmt.Errorf("failed to initialize daemon: %w", err)
			}
			defer components.Shutdown()

			logger.Info("Daemon starting.",
				zap.String("version", Version),
				zap.String("storage_backend", cfg.Storage.Backend),
				zap.Int("max_sessions", cfg.Registry.MaxSessions),
				zap.String("http_addr", cfg.Server.HTTPAddr),
			)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return components.Server.Run(gctx) })
			g.Go(func() error { return components.Server.RunHTTP(gctx) })

			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Daemon stopped with error.", zap.Error(err))
				return err
			}
			logger.Info("Daemon stopped.")
			return nil
		},
	}

	serveCmd.Flags().String("http", "", "HTTP listen address (overrides server.http_addr; empty disables the listener)")
	return serveCmd
}

// daemonComponents holds the initialized daemon services.
type daemonComponents struct {
	Repo      store.Repository
	Registry  *session.Registry
	Executor  *executor.Executor
	Scenarios *scenario.Service
	Server    *server.Server
}

// Shutdown gracefully closes all components.
func (dc *daemonComponents) Shutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	logger := observability.GetLogger()
	if dc.Registry != nil {
		if err := dc.Registry.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Error during session registry shutdown.", zap.Error(err))
		}
	}
	if dc.Repo != nil {
		if err := dc.Repo.Close(); err != nil {
			logger.Warn("Error closing scenario store.", zap.Error(err))
		}
	}
}

// initializeDaemon handles dependency injection. On error the returned
// components carry whatever was already built so the caller can shut it down.
func initializeDaemon(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*daemonComponents, error) {
	components := &daemonComponents{}

	// 1. Scenario store
	repo, err := store.New(cfg.Storage, logger)
	if err != nil {
		return components, fmt.Errorf("failed to initialize scenario store: %w", err)
	}
	components.Repo = repo

	// 2. Session registry over the Chrome driver
	registry := session.NewRegistry(cfg.Registry, cfg.Browser, driver.ChromeFactory, logger)
	components.Registry = registry

	// 3. Action executor
	exec := executor.New(registry, cfg.Executor, logger)
	components.Executor = exec

	// 4. Scenario recorder and player
	svc, err := scenario.NewService(ctx, repo, exec, registry, cfg.Playback, logger)
	if err != nil {
		return components, fmt.Errorf("failed to initialize scenario service: %w", err)
	}
	components.Scenarios = svc

	// The recorder observes executed actions; dropping a session discards its
	// active recording.
	exec.SetObserver(svc)
	registry.SetDropHook(svc.DropSession)

	// 5. Tool surface
	components.Server = server.New(cfg, Version, server.Deps{
		Registry:  registry,
		Executor:  exec,
		Scenarios: svc,
		Logger:    logger,
	})

	return components, nil
}
