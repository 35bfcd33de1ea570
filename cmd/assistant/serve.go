package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"doc_assistant/internal/domain"
	"doc_assistant/internal/scheduler"
	"doc_assistant/internal/service"
)

var serveWatch bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run periodic sync until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		recordStore := newStore()
		engine, err := newEngine(recordStore)
		if err != nil {
			return err
		}

		schedCfg := scheduler.Config{
			Interval:   cfg.Sync.Interval,
			RunTimeout: cfg.Sync.RunTimeout,
		}
		if serveWatch {
			schedCfg.WatchPath = cfg.Storage.IndexPath()
		}
		sched := scheduler.NewScheduler(engineSyncer{engine}, schedCfg, logger)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := sched.Start(ctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

// engineSyncer adapts the engine's options-taking Sync to the
// scheduler's plain interface.
type engineSyncer struct {
	engine *service.Engine
}

func (e engineSyncer) Sync(ctx context.Context) (*domain.SyncReport, error) {
	return e.engine.Sync(ctx, service.Options{})
}

func init() {
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "also sync when the index file changes")
	rootCmd.AddCommand(serveCmd)
}
