package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"doc_assistant/internal/domain"
	"doc_assistant/internal/store"
)

// Ingestor adds documents to the local index and runs whatever pipeline
// stages are wired in. Extractor, summarizer and speech are each
// optional; a nil stage is skipped, so a metadata-only add works with no
// collaborators at all.
type Ingestor struct {
	store      RecordStore
	extractor  Extractor
	summarizer Summarizer
	speech     Speech
	logger     *slog.Logger
	now        func() time.Time
}

func NewIngestor(recordStore RecordStore, extractor Extractor, summarizer Summarizer, speech Speech, logger *slog.Logger) *Ingestor {
	return &Ingestor{
		store:      recordStore,
		extractor:  extractor,
		summarizer: summarizer,
		speech:     speech,
		logger:     logger.With("component", "ingest"),
		now:        time.Now,
	}
}

type AddRequest struct {
	Source  string // source URL or bare external id
	Title   string
	Authors []string
	Tags    []string
}

// Add derives the document key from the source, creates the record and
// runs the pipeline. Adding a source that already has a record fails
// with store.ErrAlreadyExists.
func (i *Ingestor) Add(ctx context.Context, req AddRequest) (*domain.Record, error) {
	key, err := domain.KeyFromSource(req.Source)
	if err != nil {
		return nil, err
	}
	id := key.String()

	if _, err := i.store.Get(ctx, id); err == nil {
		return nil, fmt.Errorf("%s: %w", id, store.ErrAlreadyExists)
	}

	title := req.Title
	var extraction *domain.Extraction
	if i.extractor != nil {
		extraction, err = i.extractor.Extract(ctx, req.Source, key)
		if err != nil {
			return nil, fmt.Errorf("extracting %s: %w", req.Source, err)
		}
		if title == "" {
			title = extraction.Title
		}
	}
	if title == "" {
		title = id
	}

	rec, err := i.store.Upsert(ctx, id, func(rec *domain.Record) error {
		rec.Key = key
		rec.Title = title
		rec.Authors = append([]string(nil), req.Authors...)
		if len(rec.Authors) == 0 && extraction != nil {
			rec.Authors = append([]string(nil), extraction.Authors...)
		}
		rec.Tags = domain.DedupeTags(req.Tags)
		if extraction != nil {
			rec.Abstract = extraction.Abstract
			rec.Status = domain.StatusFetched
		}
		rec.LocalModifiedAt = i.now().UTC()
		return nil
	})
	if err != nil {
		return nil, err
	}
	i.logger.Info("added record", "id", id, "title", title)

	if err := i.pipeline(ctx, rec, extraction); err != nil {
		i.logger.Warn("pipeline incomplete", "id", id, "error", err)
		if _, markErr := i.store.Upsert(ctx, id, func(rec *domain.Record) error {
			rec.Status = domain.StatusError
			return nil
		}); markErr != nil {
			i.logger.Error("failed to mark record errored", "id", id, "error", markErr)
		}
		rec, getErr := i.store.Get(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		return rec, err
	}

	return i.store.Get(ctx, id)
}

// pipeline runs summarization and speech for a freshly added record.
// Stages run in order and stop at the first failure; earlier results
// stay persisted.
func (i *Ingestor) pipeline(ctx context.Context, rec *domain.Record, extraction *domain.Extraction) error {
	id := rec.ID()

	if i.summarizer == nil || extraction == nil {
		return nil
	}
	summary, err := i.summarizer.Summarize(ctx, extraction)
	if err != nil {
		return fmt.Errorf("summarizing: %w", err)
	}
	if _, err := i.store.SaveSummary(ctx, id, summary, time.Time{}); err != nil {
		return fmt.Errorf("saving summary: %w", err)
	}

	if i.speech == nil {
		return nil
	}
	audio, err := i.speech.Synthesize(ctx, summary)
	if err != nil {
		return fmt.Errorf("synthesizing audio: %w", err)
	}
	if _, err := i.store.SaveAudio(ctx, id, audio); err != nil {
		return fmt.Errorf("saving audio: %w", err)
	}
	return nil
}
