package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"doc_assistant/internal/domain"
	"doc_assistant/internal/store"
)

// Engine reconciles the local record index with the remote database.
// Matching runs on the remote page id first, then on the document key
// (external id or slug). Conflicts resolve by most recent timestamp;
// archive state propagates regardless of timestamps and is never undone
// by sync.
type Engine struct {
	store  RecordStore
	remote Remote
	logger *slog.Logger

	// archiveRemote also archives the page itself when propagating a
	// local archive; otherwise only the checkbox property is set.
	archiveRemote bool
	now           func() time.Time
}

func NewEngine(recordStore RecordStore, remote Remote, archiveRemote bool, logger *slog.Logger) *Engine {
	return &Engine{
		store:         recordStore,
		remote:        remote,
		logger:        logger.With("component", "sync"),
		archiveRemote: archiveRemote,
		now:           time.Now,
	}
}

// Options narrows a sync run.
type Options struct {
	// DryRun plans the run and reports what would change without
	// writing to either side.
	DryRun bool
	// OnlyID limits the run to a single record, addressed by document
	// key or by remote page id.
	OnlyID string
}

type plannedAction struct {
	id     string
	action domain.SyncAction
	local  *domain.Record
	remote *domain.RemoteRecord
	detail string
}

// Sync runs one reconciliation pass. The returned report always carries
// one outcome per evaluated record; a failure applying one record is
// recorded there and never aborts the rest of the run.
func (e *Engine) Sync(ctx context.Context, opts Options) (*domain.SyncReport, error) {
	report := domain.NewSyncReport(opts.DryRun, e.now().UTC())
	e.logger.Info("sync started", "dry_run", opts.DryRun, "only_id", opts.OnlyID)

	remotes, err := e.remote.ListRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing remote records: %w", err)
	}
	locals, err := e.store.List(ctx, store.ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("loading local records: %w", err)
	}

	plan := e.plan(locals, remotes, opts, report)
	for _, p := range plan {
		if opts.DryRun {
			e.count(p.action, p.local, p.remote, report)
			report.AddOutcome(domain.RecordOutcome{
				ID: p.id, Action: p.action, Status: domain.OutcomeSkipped, Detail: "dry run",
			})
			continue
		}
		e.apply(ctx, p, report)
	}

	report.Finalize(e.now().UTC())
	e.logger.Info("sync finished",
		"dry_run", report.DryRun,
		"local_created", report.LocalCreated,
		"local_updated", report.LocalUpdated,
		"local_archived", report.LocalArchived,
		"remote_created", report.RemoteCreated,
		"remote_updated", report.RemoteUpdated,
		"remote_archived", report.RemoteArchived,
		"skipped", report.Skipped,
		"errors", len(report.Errors),
		"duration", report.Duration,
	)
	return report, nil
}

func (e *Engine) plan(locals []*domain.Record, remotes []domain.RemoteRecord, opts Options, report *domain.SyncReport) []plannedAction {
	remoteByID := make(map[string]*domain.RemoteRecord, len(remotes))
	remoteByKey := make(map[string]*domain.RemoteRecord, len(remotes))
	for i := range remotes {
		r := &remotes[i]
		remoteByID[r.PageID] = r
		key := r.Key()
		if key == "" {
			continue
		}
		prev, ok := remoteByKey[key]
		if !ok {
			remoteByKey[key] = r
			continue
		}
		// Duplicate remote pages for one document: the most recently
		// edited page wins, the rest are left alone.
		report.Warn(fmt.Sprintf("duplicate remote pages for %s: %s and %s", key, prev.PageID, r.PageID))
		if r.LastEditedAt.After(prev.LastEditedAt) {
			remoteByKey[key] = r
		}
	}

	var plan []plannedAction
	consumed := make(map[string]bool)

	for _, rec := range locals {
		id := rec.ID()
		if opts.OnlyID != "" && id != opts.OnlyID && rec.RemoteID != opts.OnlyID {
			continue
		}
		match := remoteByID[rec.RemoteID]
		if match == nil {
			match = remoteByKey[id]
		}
		if match != nil {
			consumed[match.PageID] = true
		}
		plan = append(plan, e.decide(rec, match))
	}

	for i := range remotes {
		r := &remotes[i]
		if consumed[r.PageID] {
			continue
		}
		key := r.Key()
		if key == "" {
			if opts.OnlyID == "" || opts.OnlyID == r.PageID {
				report.Warn(fmt.Sprintf("remote page %s has no identifier, skipping", r.PageID))
				report.AddOutcome(domain.RecordOutcome{
					ID: r.PageID, Action: domain.ActionNone,
					Status: domain.OutcomeSkipped, Detail: "remote page has no identifier",
				})
				report.Skipped++
			}
			continue
		}
		if opts.OnlyID != "" && key != opts.OnlyID && r.PageID != opts.OnlyID {
			continue
		}
		if remoteByKey[key] != r {
			// Losing duplicate, already reported.
			continue
		}
		plan = append(plan, plannedAction{id: key, action: domain.ActionCreateLocal, remote: r})
	}

	return plan
}

func (e *Engine) decide(rec *domain.Record, match *domain.RemoteRecord) plannedAction {
	id := rec.ID()
	if match == nil {
		return plannedAction{id: id, action: domain.ActionCreateRemote, local: rec}
	}

	p := plannedAction{id: id, local: rec, remote: match}

	// Archive state is checked before any timestamp comparison so an
	// archive on either side always sticks. Pairs archived on both
	// sides are frozen; only their linkage is refreshed.
	switch {
	case rec.Archived() && match.Archived:
		p.action = domain.ActionNone
		p.detail = "archived on both sides"
	case rec.Archived() != match.Archived:
		p.action = domain.ActionArchivePropagate
	case rec.LocalModifiedAt.After(match.ModifiedAt()):
		p.action = domain.ActionPushLocal
	case match.ModifiedAt().After(rec.LocalModifiedAt):
		p.action = domain.ActionPullRemote
	default:
		p.action = domain.ActionNone
		p.detail = "in sync"
	}
	return p
}

func (e *Engine) count(action domain.SyncAction, local *domain.Record, remote *domain.RemoteRecord, report *domain.SyncReport) {
	switch action {
	case domain.ActionCreateRemote:
		report.RemoteCreated++
	case domain.ActionCreateLocal:
		report.LocalCreated++
	case domain.ActionPushLocal:
		report.RemoteUpdated++
	case domain.ActionPullRemote:
		report.LocalUpdated++
	case domain.ActionArchivePropagate:
		if local != nil && local.Archived() {
			report.RemoteArchived++
		} else {
			report.LocalArchived++
		}
	case domain.ActionNone:
		report.Skipped++
	}
}

func (e *Engine) apply(ctx context.Context, p plannedAction, report *domain.SyncReport) {
	var warn string
	var err error

	switch p.action {
	case domain.ActionCreateRemote:
		warn, err = e.applyCreateRemote(ctx, p)
	case domain.ActionCreateLocal:
		err = e.applyCreateLocal(ctx, p)
	case domain.ActionPushLocal:
		warn, err = e.applyPushLocal(ctx, p)
	case domain.ActionPullRemote:
		err = e.applyPullRemote(ctx, p)
	case domain.ActionArchivePropagate:
		err = e.applyArchivePropagate(ctx, p)
	case domain.ActionNone:
		err = e.refreshLinkage(ctx, p)
	}

	if err != nil {
		e.logger.Error("sync action failed", "id", p.id, "action", p.action, "error", err)
		report.Fail(fmt.Sprintf("%s: %s: %v", p.id, p.action, err))
		report.AddOutcome(domain.RecordOutcome{
			ID: p.id, Action: p.action, Status: domain.OutcomeError, Detail: err.Error(),
		})
		return
	}

	e.count(p.action, p.local, p.remote, report)
	outcome := domain.RecordOutcome{ID: p.id, Action: p.action, Status: domain.OutcomeApplied, Detail: p.detail}
	if warn != "" {
		outcome.Status = domain.OutcomeWarning
		outcome.Detail = warn
		report.Warn(fmt.Sprintf("%s: %s", p.id, warn))
	}
	if p.action == domain.ActionNone {
		outcome.Status = domain.OutcomeSkipped
	}
	report.AddOutcome(outcome)
}

func (e *Engine) applyCreateRemote(ctx context.Context, p plannedAction) (warn string, err error) {
	summary, err := e.store.SummaryMarkdown(ctx, p.id)
	if err != nil {
		return "", fmt.Errorf("reading local summary: %w", err)
	}
	created, err := e.remote.Create(ctx, p.local, summary)
	if err != nil {
		return "", err
	}
	ts := created.ModifiedAt()
	now := e.now().UTC()
	if err := e.store.SetRemoteFields(ctx, p.id, created.PageID, &ts, &now); err != nil {
		return "", fmt.Errorf("linking record to page %s: %w", created.PageID, err)
	}

	if p.local.AudioPath != "" {
		if err := e.remote.UploadAsset(ctx, created.PageID, e.store.AssetPath(p.local.AudioPath)); err != nil {
			warn = fmt.Sprintf("page created but audio upload failed: %v", err)
		}
	}
	return warn, nil
}

func (e *Engine) applyCreateLocal(ctx context.Context, p plannedAction) error {
	r := p.remote
	key := domain.ExternalKey(r.ExternalID)
	if r.ExternalID == "" {
		key = domain.SlugKey(r.Slug)
	}
	ts := r.ModifiedAt()

	_, err := e.store.Upsert(ctx, p.id, func(rec *domain.Record) error {
		rec.Key = key
		rec.Title = r.Title
		if rec.Title == "" {
			rec.Title = "Untitled"
		}
		rec.Authors = append([]string(nil), r.Authors...)
		rec.Tags = domain.DedupeTags(r.Tags)
		applyRemoteReadingState(rec, r, ts)
		if ts.After(rec.LocalModifiedAt) {
			rec.LocalModifiedAt = ts
		}
		return nil
	})
	if err != nil {
		return err
	}

	if r.Summary != "" {
		if _, err := e.store.SaveSummary(ctx, p.id, r.Summary, ts); err != nil {
			return fmt.Errorf("writing pulled summary: %w", err)
		}
	}

	now := e.now().UTC()
	return e.store.SetRemoteFields(ctx, p.id, r.PageID, &ts, &now)
}

func (e *Engine) applyPushLocal(ctx context.Context, p plannedAction) (warn string, err error) {
	summary, err := e.store.SummaryMarkdown(ctx, p.id)
	if err != nil {
		return "", fmt.Errorf("reading local summary: %w", err)
	}
	updated, err := e.remote.Update(ctx, p.remote.PageID, p.local, summary)
	if err != nil {
		return "", err
	}
	ts := updated.ModifiedAt()
	now := e.now().UTC()
	if err := e.store.SetRemoteFields(ctx, p.id, p.remote.PageID, &ts, &now); err != nil {
		return "", err
	}

	if p.local.AudioPath != "" {
		if err := e.remote.UploadAsset(ctx, p.remote.PageID, e.store.AssetPath(p.local.AudioPath)); err != nil {
			warn = fmt.Sprintf("page updated but audio upload failed: %v", err)
		}
	}
	return warn, nil
}

func (e *Engine) applyPullRemote(ctx context.Context, p plannedAction) error {
	r := p.remote
	ts := r.ModifiedAt()

	_, err := e.store.Upsert(ctx, p.id, func(rec *domain.Record) error {
		if r.Title != "" {
			rec.Title = r.Title
		}
		if len(r.Authors) > 0 {
			rec.Authors = append([]string(nil), r.Authors...)
		}
		rec.Tags = domain.DedupeTags(r.Tags)
		applyRemoteReadingState(rec, r, ts)
		if ts.After(rec.LocalModifiedAt) {
			rec.LocalModifiedAt = ts
		}
		return nil
	})
	if err != nil {
		return err
	}

	if r.Summary != "" {
		if _, err := e.store.SaveSummary(ctx, p.id, r.Summary, ts); err != nil {
			return fmt.Errorf("writing pulled summary: %w", err)
		}
	}

	now := e.now().UTC()
	return e.store.SetRemoteFields(ctx, p.id, r.PageID, &ts, &now)
}

func (e *Engine) applyArchivePropagate(ctx context.Context, p plannedAction) error {
	now := e.now().UTC()

	if p.local.Archived() {
		// Local archive wins: mark the remote side.
		if e.archiveRemote {
			if err := e.remote.SetArchived(ctx, p.remote.PageID, true); err != nil {
				return err
			}
		} else {
			summary, err := e.store.SummaryMarkdown(ctx, p.id)
			if err != nil {
				return fmt.Errorf("reading local summary: %w", err)
			}
			if _, err := e.remote.Update(ctx, p.remote.PageID, p.local, summary); err != nil {
				return err
			}
		}
		return e.store.SetRemoteFields(ctx, p.id, p.remote.PageID, nil, &now)
	}

	// Remote archive wins: mark the local side.
	ts := p.remote.ModifiedAt()
	if err := e.store.SetArchived(ctx, p.id, true, ts); err != nil {
		return err
	}
	return e.store.SetRemoteFields(ctx, p.id, p.remote.PageID, &ts, &now)
}

// refreshLinkage keeps page id and sync bookkeeping current on records
// that otherwise need no work.
func (e *Engine) refreshLinkage(ctx context.Context, p plannedAction) error {
	if p.remote == nil || (p.local.RemoteID == p.remote.PageID && p.local.LastSyncedAt != nil) {
		return nil
	}
	ts := p.remote.ModifiedAt()
	now := e.now().UTC()
	return e.store.SetRemoteFields(ctx, p.id, p.remote.PageID, &ts, &now)
}

func applyRemoteReadingState(rec *domain.Record, r *domain.RemoteRecord, ts time.Time) {
	if rs, ok := domain.ParseReadingStatus(r.ReadingStatus); ok {
		rec.ReadingStatus = rs
	}
	if r.Archived {
		rec.ReadingStatus = domain.ReadingArchived
	}
	switch {
	case rec.ReadingStatus == domain.ReadingArchived && rec.ArchivedAt == nil:
		at := ts
		rec.ArchivedAt = &at
	case rec.ReadingStatus != domain.ReadingArchived:
		rec.ArchivedAt = nil
	}
}
