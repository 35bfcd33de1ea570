package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"doc_assistant/internal/domain"
	"doc_assistant/internal/store"
)

type RecordStore interface {
	Load(ctx context.Context) (*domain.Index, error)
	Get(ctx context.Context, id string) (*domain.Record, error)
	Put(ctx context.Context, rec *domain.Record) error
	Upsert(ctx context.Context, id string, mutate func(*domain.Record) error) (*domain.Record, error)
	Delete(ctx context.Context, id string, removeFiles bool) error
	List(ctx context.Context, filter store.ListFilter) ([]*domain.Record, error)
	AddTags(ctx context.Context, id string, tags []string, at time.Time) ([]string, error)
	SetArchived(ctx context.Context, id string, archived bool, at time.Time) error
	SaveSummary(ctx context.Context, id, content string, at time.Time) (string, error)
	SummaryMarkdown(ctx context.Context, id string) (string, error)
	SaveAudio(ctx context.Context, id string, data []byte) (string, error)
	AssetPath(rel string) string
	SetRemoteFields(ctx context.Context, id, remoteID string, remoteModifiedAt, lastSyncedAt *time.Time) error
}

type Remote interface {
	ListRecords(ctx context.Context) ([]domain.RemoteRecord, error)
	Create(ctx context.Context, rec *domain.Record, summary string) (domain.RemoteRecord, error)
	Update(ctx context.Context, pageID string, rec *domain.Record, summary string) (domain.RemoteRecord, error)
	SetArchived(ctx context.Context, pageID string, archived bool) error
	UploadAsset(ctx context.Context, pageID, path string) error
}

type Extractor interface {
	Extract(ctx context.Context, rawSource string, key domain.DocumentKey) (*domain.Extraction, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, e *domain.Extraction) (string, error)
}

type Speech interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
