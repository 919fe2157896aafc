// cmd/crosslink/serve.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/valpere/crosslink/internal/config"
	"github.com/valpere/crosslink/internal/engine"
	"github.com/valpere/crosslink/internal/monitoring"
	"github.com/valpere/crosslink/internal/server"
	"github.com/valpere/crosslink/internal/utils"
)

func createServeCmd(a *app) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the evaluation and rule management API",
		Long: `Serve starts the HTTP API. With the file backend and rules.watch enabled,
edits to the rule file are picked up without a restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Server.Listen = listen
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServer(ctx, cfg, a)
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "listen address (overrides server.listen)")
	return cmd
}

func runServer(ctx context.Context, cfg *config.Config, a *app) error {
	logger := utils.NewComponentLogger("serve")

	st, err := a.openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	var (
		metrics    *monitoring.MetricsManager
		engineOpts []engine.Option
		serverOpts []server.Option
	)
	if cfg.Metrics.Enabled {
		metrics = monitoring.NewMetricsManager(monitoring.MetricsConfig{
			Namespace:            cfg.Metrics.Namespace,
			EnableGoMetrics:      true,
			EnableProcessMetrics: true,
		})
		engineOpts = append(engineOpts, engine.WithRecorder(metrics))
		serverOpts = append(serverOpts, server.WithMetrics(metrics, cfg.Metrics.Path))
	}

	eng, err := engine.NewEngine(st, engineOpts...)
	if err != nil {
		return err
	}
	if err := eng.Hydrate(ctx); err != nil {
		return err
	}

	health := monitoring.NewHealthManager(version)
	health.RegisterCheck(monitoring.RuleStoreHealthCheck("rule-store", st.Ping))
	health.RegisterCheck(monitoring.RulesLoadedHealthCheck(eng.Loaded, func() int { return len(eng.Rules()) }))
	health.RegisterCheck(monitoring.GoroutineHealthCheck(10000))
	serverOpts = append(serverOpts, server.WithHealth(health))

	if cfg.Rules.Backend == config.BackendFile && cfg.Rules.Watch {
		watcher, err := config.NewWatcher(cfg.Rules.Path)
		if err != nil {
			return err
		}
		defer watcher.Close()

		watcher.OnChange(func(path string) {
			st.Invalidate()
			if err := eng.Hydrate(ctx); err != nil {
				logger.Errorf("failed to reload rules from %s: %v", path, err)
				return
			}
			logger.Infof("reloaded rules from %s", path)
		})
	}

	srv, err := server.New(eng, st, cfg.Server, serverOpts...)
	if err != nil {
		return err
	}
	return srv.ListenAndServe(ctx)
}
