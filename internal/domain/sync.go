package domain

import "time"

// SyncAction is one planned reconciliation step for a record pair.
type SyncAction string

const (
	ActionCreateRemote     SyncAction = "create-remote"
	ActionCreateLocal      SyncAction = "create-local"
	ActionPushLocal        SyncAction = "push-local"
	ActionPullRemote       SyncAction = "pull-remote"
	ActionArchivePropagate SyncAction = "archive-propagate"
	ActionNone             SyncAction = "no-op"
)

// OutcomeStatus classifies how a planned action ended up.
type OutcomeStatus string

const (
	OutcomeApplied OutcomeStatus = "applied"
	OutcomeWarning OutcomeStatus = "applied-with-warning"
	OutcomeSkipped OutcomeStatus = "skipped"
	OutcomeError   OutcomeStatus = "error"
)

// RecordOutcome is one record's result within a sync run.
type RecordOutcome struct {
	ID     string        `json:"id"`
	Action SyncAction    `json:"action"`
	Status OutcomeStatus `json:"status"`
	Detail string        `json:"detail,omitempty"`
}

// SyncReport summarizes a whole sync invocation. A run always completes
// with one outcome per evaluated record; it is never an all-or-nothing
// boolean.
type SyncReport struct {
	DryRun bool `json:"dry_run"`

	LocalCreated   int `json:"local_created"`
	LocalUpdated   int `json:"local_updated"`
	LocalArchived  int `json:"local_archived"`
	RemoteCreated  int `json:"remote_created"`
	RemoteUpdated  int `json:"remote_updated"`
	RemoteArchived int `json:"remote_archived"`
	Skipped        int `json:"skipped"`

	Outcomes []RecordOutcome `json:"outcomes"`
	Warnings []string        `json:"warnings,omitempty"`
	Errors   []string        `json:"errors,omitempty"`

	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration"`
}

func NewSyncReport(dryRun bool, startedAt time.Time) *SyncReport {
	return &SyncReport{DryRun: dryRun, StartedAt: startedAt}
}

func (r *SyncReport) Finalize(finishedAt time.Time) {
	r.FinishedAt = finishedAt
	r.Duration = finishedAt.Sub(r.StartedAt)
}

func (r *SyncReport) AddOutcome(o RecordOutcome) {
	r.Outcomes = append(r.Outcomes, o)
}

func (r *SyncReport) Warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

func (r *SyncReport) Fail(msg string) {
	r.Errors = append(r.Errors, msg)
}
