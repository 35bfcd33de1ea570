package scheduler

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"doc_assistant/internal/domain"
)

// Syncer defines the interface for sync operations.
type Syncer interface {
	Sync(ctx context.Context) (*domain.SyncReport, error)
}

const debounceWindow = 2 * time.Second

type Config struct {
	Interval   time.Duration
	RunTimeout time.Duration
	// WatchPath is the index file whose external modifications trigger
	// an immediate run. Empty disables watching.
	WatchPath string
}

type Scheduler struct {
	syncer Syncer
	cfg    Config
	logger *slog.Logger
}

func NewScheduler(syncer Syncer, cfg Config, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		syncer: syncer,
		cfg:    cfg,
		logger: logger.With("component", "scheduler"),
	}
}

// Start runs an immediate sync, then loops on the interval ticker and,
// when watching is enabled, on index file changes. It blocks until the
// context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.cfg.Interval, "watch", s.cfg.WatchPath)

	changes, closeWatch := s.watch(ctx)
	defer closeWatch()

	s.runSync(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runSync(ctx)
		case <-changes:
			s.logger.Info("index changed, running sync")
			s.runSync(ctx)
		}
	}
}

func (s *Scheduler) runSync(ctx context.Context) {
	syncCtx, cancel := context.WithTimeout(ctx, s.cfg.RunTimeout)
	defer cancel()

	report, err := s.syncer.Sync(syncCtx)
	if err != nil {
		s.logger.Error("sync failed", "error", err)
		return
	}
	if len(report.Errors) > 0 {
		s.logger.Warn("sync completed with errors", "errors", len(report.Errors))
	}
}

// watch tails the index file through its parent directory, since editors
// and atomic renames replace the file rather than write it in place.
// Events are debounced so one save triggers one run. A run that itself
// rewrites the index echoes one extra run, which then finds nothing to
// do and writes nothing, so the loop settles. Watch failures degrade to
// interval-only operation.
func (s *Scheduler) watch(ctx context.Context) (<-chan struct{}, func()) {
	if s.cfg.WatchPath == "" {
		return nil, func() {}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.logger.Warn("file watching unavailable, falling back to interval only", "error", err)
		return nil, func() {}
	}
	dir := filepath.Dir(s.cfg.WatchPath)
	if err := watcher.Add(dir); err != nil {
		s.logger.Warn("cannot watch index directory, falling back to interval only", "dir", dir, "error", err)
		watcher.Close()
		return nil, func() {}
	}

	changes := make(chan struct{}, 1)
	filename := filepath.Base(s.cfg.WatchPath)

	go func() {
		var debounce *time.Timer
		defer func() {
			if debounce != nil {
				debounce.Stop()
			}
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != filename {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if debounce == nil {
					debounce = time.AfterFunc(debounceWindow, func() {
						select {
						case changes <- struct{}{}:
						default:
						}
					})
				} else {
					debounce.Reset(debounceWindow)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("watcher error", "error", err)
			}
		}
	}()

	return changes, func() { watcher.Close() }
}
