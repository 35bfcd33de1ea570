// Package store owns the on-disk JSON index. It is the single source of
// truth for local state and must stay correct when the CLI and the server
// run as separate processes against the same file, so every operation
// re-reads the persisted index instead of trusting an in-memory cache.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"doc_assistant/internal/domain"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
	// ErrCorruptIndex marks an index file that exists but cannot be
	// parsed. The operation fails loudly; the file is never truncated.
	ErrCorruptIndex = errors.New("index file is corrupt")
)

type Store struct {
	dataDir string
	logger  *slog.Logger
	now     func() time.Time
}

func New(dataDir string, logger *slog.Logger) *Store {
	return &Store{
		dataDir: dataDir,
		logger:  logger.With("component", "store"),
		now:     time.Now,
	}
}

func (s *Store) indexPath() string {
	return filepath.Join(s.dataDir, "index.json")
}

// Load reads the full index from disk. A missing file is the bootstrap
// case and yields an empty index.
func (s *Store) Load(ctx context.Context) (*domain.Index, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.indexPath())
	if errors.Is(err, os.ErrNotExist) {
		return domain.NewIndex(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}

	var idx domain.Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptIndex, s.indexPath(), err)
	}
	if idx.Records == nil {
		idx.Records = make(map[string]*domain.Record)
	}
	return &idx, nil
}

// Get retrieves one record by id, always from the latest on-disk state.
// The returned record is a copy owned by the caller.
func (s *Store) Get(ctx context.Context, id string) (*domain.Record, error) {
	idx, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	rec, ok := idx.Records[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return rec.Clone(), nil
}

// Put replaces the whole record under its id, creating it if absent.
func (s *Store) Put(ctx context.Context, rec *domain.Record) error {
	if rec.Key.IsZero() {
		return errors.New("record has no identifier")
	}
	idx, err := s.Load(ctx)
	if err != nil {
		return err
	}
	idx.Records[rec.ID()] = rec.Clone()
	return s.persist(idx)
}

// Upsert applies mutate to the record's current on-disk state and writes
// the result back as a whole-record replace. A missing id hands mutate a
// fresh record. The returned record is the store-owned copy after
// persisting; callers must use it, not any pre-call snapshot, before
// issuing a further mutation.
func (s *Store) Upsert(ctx context.Context, id string, mutate func(*domain.Record) error) (*domain.Record, error) {
	idx, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	rec, ok := idx.Records[id]
	if !ok {
		rec = &domain.Record{
			Status:        domain.StatusPending,
			ReadingStatus: domain.ReadingUnread,
			AddedAt:       s.now().UTC(),
		}
	}
	work := rec.Clone()
	if err := mutate(work); err != nil {
		return nil, err
	}
	if work.Key.IsZero() {
		return nil, errors.New("record has no identifier")
	}
	if work.ID() != id && ok {
		return nil, fmt.Errorf("record id is never reassigned: %s -> %s", id, work.ID())
	}

	idx.Records[work.ID()] = work
	if err := s.persist(idx); err != nil {
		return nil, err
	}
	return work.Clone(), nil
}

// Delete removes a record locally and optionally its asset files. Sync
// never calls this; deletion is one-directional and local.
func (s *Store) Delete(ctx context.Context, id string, removeFiles bool) error {
	idx, err := s.Load(ctx)
	if err != nil {
		return err
	}
	rec, ok := idx.Records[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}

	if removeFiles {
		for _, rel := range []string{rec.SummaryPath, rec.AudioPath, rec.SourcePath} {
			if rel == "" {
				continue
			}
			if err := os.Remove(filepath.Join(s.dataDir, rel)); err != nil && !errors.Is(err, os.ErrNotExist) {
				s.logger.Warn("failed to remove asset file", "id", id, "path", rel, "error", err)
			}
		}
	}

	delete(idx.Records, id)
	return s.persist(idx)
}

// ListFilter narrows and orders List results.
type ListFilter struct {
	Status        domain.ProcessingStatus
	ReadingStatus domain.ReadingStatus
	Tag           string
	SortBy        string // added, title, id; default added
	Ascending     bool
}

// List is the read-only full-index accessor used by the feed generator
// and the UI as well as the reconciliation engine.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]*domain.Record, error) {
	idx, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]*domain.Record, 0, len(idx.Records))
	for _, rec := range idx.Records {
		if filter.Status != "" && rec.Status != filter.Status {
			continue
		}
		if filter.ReadingStatus != "" && rec.ReadingStatus != filter.ReadingStatus {
			continue
		}
		if filter.Tag != "" && !hasTag(rec.Tags, filter.Tag) {
			continue
		}
		records = append(records, rec.Clone())
	}

	sort.SliceStable(records, func(i, j int) bool {
		var less bool
		switch filter.SortBy {
		case "title":
			less = strings.ToLower(records[i].Title) < strings.ToLower(records[j].Title)
		case "id":
			less = records[i].ID() < records[j].ID()
		default:
			less = records[i].AddedAt.Before(records[j].AddedAt)
		}
		if filter.Ascending {
			return less
		}
		return !less
	})
	return records, nil
}

// persist writes the index as a whole-file replace: marshal, write a temp
// file in the same directory, rename over the index. A killed process
// leaves either the old or the new index, never a partial write.
func (s *Store) persist(idx *domain.Index) error {
	idx.UpdatedAt = s.now().UTC()

	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}

	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dataDir, "index-*.json.tmp")
	if err != nil {
		return fmt.Errorf("create temp index: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp index: %w", err)
	}
	if err := os.Rename(tmpName, s.indexPath()); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace index: %w", err)
	}
	return nil
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
