package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"doc_assistant/internal/config"
	"doc_assistant/internal/fetch"
	"doc_assistant/internal/notion"
	"doc_assistant/internal/service"
	"doc_assistant/internal/store"
)

var (
	configPath string

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "assistant",
	Short: "Local research document library with remote sync",
	Long: `assistant manages a local library of research documents: papers and
articles are tracked in a JSON index alongside their summary and audio
files, and the library can be reconciled two-way with a Notion database.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		logger = setupLogger(cfg.LogLevel)
		return cfg.EnsureDirs()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if logger != nil {
			logger.Error("command failed", "error", err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config file")
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stderr, opts)
	return slog.New(handler)
}

func newStore() *store.Store {
	return store.New(cfg.Storage.DataDir, logger)
}

// newEngine wires the reconciliation engine. It fails fast on missing
// sync configuration so no action runs against a half-configured remote.
func newEngine(recordStore *store.Store) (*service.Engine, error) {
	if err := cfg.ValidateSync(); err != nil {
		return nil, err
	}

	fetcher := fetch.New(fetch.Config{
		Timeout:     cfg.HTTP.Timeout,
		MaxRetries:  cfg.HTTP.Retry.MaxRetries,
		BackoffBase: cfg.HTTP.Retry.BackoffBase,
		BackoffCap:  cfg.HTTP.Retry.BackoffCap,
	}, logger)
	client := notion.NewClient(notion.Config{
		Token:          cfg.Notion.Token,
		DatabaseID:     cfg.Notion.DatabaseID,
		APIBase:        cfg.Notion.APIBase,
		Version:        cfg.Notion.Version,
		RequestsPerSec: cfg.Notion.RequestsPerSec,
	}, fetcher, logger)

	return service.NewEngine(recordStore, client, cfg.Notion.ArchiveRemote, logger), nil
}
