package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/njbennett/changepoll/internal/api"
	"github.com/njbennett/changepoll/internal/auth"
	"github.com/njbennett/changepoll/internal/budget"
	"github.com/njbennett/changepoll/internal/classify"
	"github.com/njbennett/changepoll/internal/config"
	"github.com/njbennett/changepoll/internal/cycle"
	"github.com/njbennett/changepoll/internal/database"
	"github.com/njbennett/changepoll/internal/dispatch"
	"github.com/njbennett/changepoll/internal/journal"
	"github.com/njbennett/changepoll/internal/poller"
	"github.com/njbennett/changepoll/internal/registry"
	"github.com/njbennett/changepoll/internal/server"
	"github.com/njbennett/changepoll/internal/state"
	"github.com/njbennett/changepoll/internal/version"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the poller service",
	Long: `Run the poller service.

The service loads subscriptions from the database, offers each one to the
poll engine on every scheduler tick, and emits classified change events to
the configured sink until interrupted.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = serveCmd.MarkFlagRequired("config")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	slog.SetDefault(logger)

	configPath, _ := cmd.Flags().GetString("config")

	logger.Info("starting changepoll",
		"version", version.Version,
		"commit", version.Commit,
		"config", configPath,
	)

	cfg, err := config.LoadAndValidate(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"api_url", cfg.API.BaseURL,
		"sink", cfg.Dispatch.Sink,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Database and state store
	logger.Info("connecting to database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Name,
	)
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	store := state.NewPostgresStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}

	// Engine collaborators
	apiClient := api.NewClient(
		cfg.API.BaseURL,
		api.WithLogger(logger),
		api.WithTimeout(cfg.API.Timeout),
		api.WithRetries(cfg.API.MaxRetries, time.Second),
	)
	clientFor := func(cred auth.Credential) cycle.RemoteClient {
		return apiClient.Authorized(cred)
	}

	sink, err := dispatch.NewSink(cfg.Dispatch, logger)
	if err != nil {
		return err
	}

	var recorder cycle.EventRecorder
	var journalWriter *journal.Writer
	if cfg.Journal.Enabled {
		journalWriter = journal.NewWriter(journal.Config{
			BatchSize:     cfg.Journal.BatchSize,
			FlushInterval: cfg.Journal.FlushInterval,
			BufferSize:    cfg.Journal.BufferSize,
		}, pool, logger)
		if err := journalWriter.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure journal schema: %w", err)
		}
		if err := journalWriter.Start(ctx); err != nil {
			return err
		}
		recorder = journalWriter
	}

	orch := cycle.New(
		cycle.Config{Concurrency: cfg.Poll.Concurrency},
		budget.New(cfg.Budget.DailyCalls),
		store,
		clientFor,
		classify.New(store),
		dispatch.New(sink, logger),
		recorder,
		logger,
	)

	// Registry, scheduler, ops server
	reg := registry.New(registry.Config{ReconcileInterval: cfg.Poll.ReconcileInterval}, store, logger)
	if err := reg.Start(ctx); err != nil {
		return fmt.Errorf("start registry: %w", err)
	}

	sched := poller.New(poller.Config{Tick: cfg.Poll.Tick}, orch, reg, logger)
	if err := sched.Start(ctx); err != nil {
		return err
	}

	ops := server.New(cfg.Metrics, pool, reg, logger)
	ops.Start()

	<-ctx.Done()

	// Shutdown in dependency order: stop producing cycles, then drain.
	logger.Info("shutting down")
	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()

	if err := sched.Stop(stopCtx); err != nil {
		logger.Warn("scheduler stop", "err", err)
	}
	if err := reg.Stop(stopCtx); err != nil {
		logger.Warn("registry stop", "err", err)
	}
	if journalWriter != nil {
		if err := journalWriter.Stop(stopCtx); err != nil {
			logger.Warn("journal stop", "err", err)
		}
	}
	if err := ops.Stop(stopCtx); err != nil {
		logger.Warn("ops server stop", "err", err)
	}

	logger.Info("shutdown complete")
	return nil
}
