package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"doc_assistant/internal/domain"
	"doc_assistant/internal/service/mocks"
	"doc_assistant/internal/store"
)

type IngestorTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	records    *mocks.MockRecordStore
	extractor  *mocks.MockExtractor
	summarizer *mocks.MockSummarizer
	speech     *mocks.MockSpeech

	logger *slog.Logger
	now    time.Time
}

func (s *IngestorTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.records = mocks.NewMockRecordStore(s.ctrl)
	s.extractor = mocks.NewMockExtractor(s.ctrl)
	s.summarizer = mocks.NewMockSummarizer(s.ctrl)
	s.speech = mocks.NewMockSpeech(s.ctrl)
	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *IngestorTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestIngestorTestSuite(t *testing.T) {
	suite.Run(t, new(IngestorTestSuite))
}

func (s *IngestorTestSuite) newIngestor(extractor Extractor, summarizer Summarizer, speech Speech) *Ingestor {
	ing := NewIngestor(s.records, extractor, summarizer, speech, s.logger)
	ing.now = func() time.Time { return s.now }
	return ing
}

func (s *IngestorTestSuite) expectUpsert(id string) **domain.Record {
	var result *domain.Record
	s.records.EXPECT().Upsert(gomock.Any(), id, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, mutate func(*domain.Record) error) (*domain.Record, error) {
			work := &domain.Record{
				Status:        domain.StatusPending,
				ReadingStatus: domain.ReadingUnread,
				AddedAt:       s.now,
			}
			if err := mutate(work); err != nil {
				return nil, err
			}
			result = work
			return work.Clone(), nil
		})
	return &result
}

func (s *IngestorTestSuite) TestAdd_MetadataOnlyWithoutCollaborators() {
	ing := s.newIngestor(nil, nil, nil)

	s.records.EXPECT().Get(gomock.Any(), "2301.12345").Return(nil, store.ErrNotFound)
	created := s.expectUpsert("2301.12345")
	s.records.EXPECT().Get(gomock.Any(), "2301.12345").DoAndReturn(
		func(context.Context, string) (*domain.Record, error) { return (*created).Clone(), nil })

	rec, err := ing.Add(context.Background(), AddRequest{
		Source: "https://arxiv.org/abs/2301.12345",
		Tags:   []string{"ml", "ml", " "},
	})
	s.Require().NoError(err)
	s.Equal(domain.ExternalKey("2301.12345"), rec.Key)
	s.Equal("2301.12345", rec.Title) // no extractor, falls back to the id
	s.Equal([]string{"ml"}, rec.Tags)
	s.Equal(domain.StatusPending, rec.Status)
	s.True(rec.LocalModifiedAt.Equal(s.now))
}

func (s *IngestorTestSuite) TestAdd_DuplicateSourceRejected() {
	ing := s.newIngestor(nil, nil, nil)

	existing := &domain.Record{Key: domain.ExternalKey("2301.12345")}
	s.records.EXPECT().Get(gomock.Any(), "2301.12345").Return(existing, nil)

	_, err := ing.Add(context.Background(), AddRequest{Source: "2301.12345"})
	s.Require().ErrorIs(err, store.ErrAlreadyExists)
}

func (s *IngestorTestSuite) TestAdd_UnderivableSourceRejected() {
	ing := s.newIngestor(nil, nil, nil)

	_, err := ing.Add(context.Background(), AddRequest{Source: ""})
	s.Require().Error(err)
}

func (s *IngestorTestSuite) TestAdd_FullPipeline() {
	ing := s.newIngestor(s.extractor, s.summarizer, s.speech)

	extraction := &domain.Extraction{
		Title:    "Attention Is All You Need",
		Authors:  []string{"Ashish Vaswani"},
		Abstract: "We propose the Transformer.",
		Content:  "full text",
	}
	s.records.EXPECT().Get(gomock.Any(), "1706.03762").Return(nil, store.ErrNotFound)
	s.extractor.EXPECT().Extract(gomock.Any(), "https://arxiv.org/abs/1706.03762", domain.ExternalKey("1706.03762")).
		Return(extraction, nil)
	created := s.expectUpsert("1706.03762")
	s.summarizer.EXPECT().Summarize(gomock.Any(), extraction).Return("# Summary", nil)
	s.records.EXPECT().SaveSummary(gomock.Any(), "1706.03762", "# Summary", time.Time{}).Return("papers/x.md", nil)
	s.speech.EXPECT().Synthesize(gomock.Any(), "# Summary").Return([]byte("mp3"), nil)
	s.records.EXPECT().SaveAudio(gomock.Any(), "1706.03762", []byte("mp3")).Return("audio/1706.03762.mp3", nil)
	s.records.EXPECT().Get(gomock.Any(), "1706.03762").DoAndReturn(
		func(context.Context, string) (*domain.Record, error) { return (*created).Clone(), nil })

	rec, err := ing.Add(context.Background(), AddRequest{Source: "https://arxiv.org/abs/1706.03762"})
	s.Require().NoError(err)
	s.Equal("Attention Is All You Need", rec.Title)
	s.Equal([]string{"Ashish Vaswani"}, rec.Authors)
	s.Equal("We propose the Transformer.", rec.Abstract)
	s.Equal(domain.StatusFetched, rec.Status)
}

func (s *IngestorTestSuite) TestAdd_ExplicitMetadataBeatsExtraction() {
	ing := s.newIngestor(s.extractor, nil, nil)

	extraction := &domain.Extraction{Title: "Extracted Title", Authors: []string{"Someone Else"}}
	s.records.EXPECT().Get(gomock.Any(), "2301.12345").Return(nil, store.ErrNotFound)
	s.extractor.EXPECT().Extract(gomock.Any(), "2301.12345", gomock.Any()).Return(extraction, nil)
	created := s.expectUpsert("2301.12345")
	s.records.EXPECT().Get(gomock.Any(), "2301.12345").DoAndReturn(
		func(context.Context, string) (*domain.Record, error) { return (*created).Clone(), nil })

	rec, err := ing.Add(context.Background(), AddRequest{
		Source:  "2301.12345",
		Title:   "My Title",
		Authors: []string{"Me"},
	})
	s.Require().NoError(err)
	s.Equal("My Title", rec.Title)
	s.Equal([]string{"Me"}, rec.Authors)
}

func (s *IngestorTestSuite) TestAdd_SummarizerFailureMarksRecordErrored() {
	ing := s.newIngestor(s.extractor, s.summarizer, nil)

	extraction := &domain.Extraction{Title: "T"}
	s.records.EXPECT().Get(gomock.Any(), "2301.12345").Return(nil, store.ErrNotFound)
	s.extractor.EXPECT().Extract(gomock.Any(), "2301.12345", gomock.Any()).Return(extraction, nil)
	created := s.expectUpsert("2301.12345")
	s.summarizer.EXPECT().Summarize(gomock.Any(), extraction).Return("", errors.New("model overloaded"))

	s.records.EXPECT().Upsert(gomock.Any(), "2301.12345", gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, mutate func(*domain.Record) error) (*domain.Record, error) {
			work := (*created).Clone()
			s.Require().NoError(mutate(work))
			s.Equal(domain.StatusError, work.Status)
			*created = work
			return work.Clone(), nil
		})
	s.records.EXPECT().Get(gomock.Any(), "2301.12345").DoAndReturn(
		func(context.Context, string) (*domain.Record, error) { return (*created).Clone(), nil })

	rec, err := ing.Add(context.Background(), AddRequest{Source: "2301.12345"})
	s.Require().Error(err)
	s.Require().NotNil(rec)
	s.Equal(domain.StatusError, rec.Status)
}
