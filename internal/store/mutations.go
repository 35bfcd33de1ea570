package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"doc_assistant/internal/domain"
)

// The helpers below are the local mutation paths: every one of them bumps
// local_modified_at except SetRemoteFields, which belongs to sync and must
// not. A zero "at" means now; sync passes the remote timestamp when it
// pulls a remote change so the local clock never races the remote one.

func (s *Store) stamp(rec *domain.Record, at time.Time) {
	if at.IsZero() {
		at = s.now().UTC()
	}
	if at.After(rec.LocalModifiedAt) {
		rec.LocalModifiedAt = at
	}
}

// AddTags appends the given tags, skipping blanks and duplicates, and
// returns the updated tag list.
func (s *Store) AddTags(ctx context.Context, id string, tags []string, at time.Time) ([]string, error) {
	rec, err := s.Upsert(ctx, id, func(rec *domain.Record) error {
		if rec.Key.IsZero() {
			return fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		merged := domain.DedupeTags(append(append([]string{}, rec.Tags...), tags...))
		if len(merged) != len(rec.Tags) {
			rec.Tags = merged
			s.stamp(rec, at)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec.Tags, nil
}

// RemoveTag removes one tag and returns the updated tag list.
func (s *Store) RemoveTag(ctx context.Context, id, tag string, at time.Time) ([]string, error) {
	rec, err := s.Upsert(ctx, id, func(rec *domain.Record) error {
		if rec.Key.IsZero() {
			return fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		kept := rec.Tags[:0:0]
		for _, t := range rec.Tags {
			if t != tag {
				kept = append(kept, t)
			}
		}
		if len(kept) != len(rec.Tags) {
			rec.Tags = kept
			s.stamp(rec, at)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec.Tags, nil
}

// SetReadingStatus transitions the reading status, keeping archived_at
// present exactly when the status is archived.
func (s *Store) SetReadingStatus(ctx context.Context, id string, rs domain.ReadingStatus, at time.Time) error {
	_, err := s.Upsert(ctx, id, func(rec *domain.Record) error {
		if rec.Key.IsZero() {
			return fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		if rec.ReadingStatus != rs {
			rec.ReadingStatus = rs
			s.stamp(rec, at)
		}
		switch {
		case rs == domain.ReadingArchived && rec.ArchivedAt == nil:
			a := at
			if a.IsZero() {
				a = s.now().UTC()
			}
			rec.ArchivedAt = &a
		case rs != domain.ReadingArchived:
			rec.ArchivedAt = nil
		}
		return nil
	})
	return err
}

// SetArchived flips the soft-archive flag. Un-archiving restores unread.
func (s *Store) SetArchived(ctx context.Context, id string, archived bool, at time.Time) error {
	_, err := s.Upsert(ctx, id, func(rec *domain.Record) error {
		if rec.Key.IsZero() {
			return fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		if archived {
			if rec.ArchivedAt == nil {
				a := at
				if a.IsZero() {
					a = s.now().UTC()
				}
				rec.ArchivedAt = &a
			}
			rec.ReadingStatus = domain.ReadingArchived
		} else {
			rec.ArchivedAt = nil
			if rec.ReadingStatus == domain.ReadingArchived {
				rec.ReadingStatus = domain.ReadingUnread
			}
		}
		s.stamp(rec, at)
		return nil
	})
	return err
}

// SaveSummary writes the summary markdown file and records its relative
// path. Returns the path written.
func (s *Store) SaveSummary(ctx context.Context, id, content string, at time.Time) (string, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}

	filename := SummaryFilename(id, rec.Title)
	dir := filepath.Join(s.dataDir, "papers")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create papers dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, filename), []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}

	rel := filepath.ToSlash(filepath.Join("papers", filename))
	_, err = s.Upsert(ctx, id, func(rec *domain.Record) error {
		rec.SummaryPath = rel
		if rec.Status == domain.StatusPending || rec.Status == domain.StatusFetched {
			rec.Status = domain.StatusSummarized
		}
		s.stamp(rec, at)
		return nil
	})
	if err != nil {
		return "", err
	}
	return rel, nil
}

// SummaryMarkdown reads the summary file for a record; absent summaries
// yield an empty string, not an error.
func (s *Store) SummaryMarkdown(ctx context.Context, id string) (string, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if rec.SummaryPath == "" {
		return "", nil
	}
	data, err := os.ReadFile(filepath.Join(s.dataDir, filepath.FromSlash(rec.SummaryPath)))
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read summary: %w", err)
	}
	return string(data), nil
}

// SaveAudio writes the synthesized audio asset and records its path.
func (s *Store) SaveAudio(ctx context.Context, id string, data []byte) (string, error) {
	dir := filepath.Join(s.dataDir, "audio")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create audio dir: %w", err)
	}
	filename := AudioFilename(id)
	if err := os.WriteFile(filepath.Join(dir, filename), data, 0o644); err != nil {
		return "", fmt.Errorf("write audio: %w", err)
	}

	rel := filepath.ToSlash(filepath.Join("audio", filename))
	_, err := s.Upsert(ctx, id, func(rec *domain.Record) error {
		if rec.Key.IsZero() {
			return fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		rec.AudioPath = rel
		if rec.Status == domain.StatusSummarized {
			rec.Status = domain.StatusAudioGenerated
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return rel, nil
}

// AssetPath resolves a record-relative path against the data directory.
func (s *Store) AssetPath(rel string) string {
	return filepath.Join(s.dataDir, filepath.FromSlash(rel))
}

// SetRemoteFields persists sync linkage metadata. It deliberately does
// not touch local_modified_at, and it never clears an existing remote id.
func (s *Store) SetRemoteFields(ctx context.Context, id, remoteID string, remoteModifiedAt, lastSyncedAt *time.Time) error {
	_, err := s.Upsert(ctx, id, func(rec *domain.Record) error {
		if rec.Key.IsZero() {
			return fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		if remoteID != "" {
			rec.RemoteID = remoteID
		}
		if remoteModifiedAt != nil {
			rec.RemoteModifiedAt = remoteModifiedAt
		}
		if lastSyncedAt != nil {
			rec.LastSyncedAt = lastSyncedAt
		}
		return nil
	})
	return err
}
