package domain

import (
	"strings"
	"time"
)

// ProcessingStatus tracks how far the ingestion pipeline has taken a
// document.
type ProcessingStatus string

const (
	StatusPending        ProcessingStatus = "pending"
	StatusFetched        ProcessingStatus = "fetched"
	StatusSummarized     ProcessingStatus = "summarized"
	StatusAudioGenerated ProcessingStatus = "audio_generated"
	StatusComplete       ProcessingStatus = "complete"
	StatusError          ProcessingStatus = "error"
)

// ReadingStatus is the user-facing state of a document.
type ReadingStatus string

const (
	ReadingUnread   ReadingStatus = "unread"
	ReadingRead     ReadingStatus = "read"
	ReadingArchived ReadingStatus = "archived"
)

func ParseReadingStatus(s string) (ReadingStatus, bool) {
	switch ReadingStatus(s) {
	case ReadingUnread, ReadingRead, ReadingArchived:
		return ReadingStatus(s), true
	}
	return "", false
}

// Record is the unit of synchronization: one ingested document and its
// processing state.
type Record struct {
	Key      DocumentKey `json:"key"`
	Title    string      `json:"title"`
	Authors  []string    `json:"authors,omitempty"`
	Abstract string      `json:"abstract,omitempty"`
	Tags     []string    `json:"tags,omitempty"`

	// Paths relative to the data directory.
	SummaryPath string `json:"summary_path,omitempty"`
	AudioPath   string `json:"audio_path,omitempty"`
	SourcePath  string `json:"source_path,omitempty"`

	Status        ProcessingStatus `json:"status"`
	ReadingStatus ReadingStatus    `json:"reading_status"`
	ArchivedAt    *time.Time       `json:"archived_at,omitempty"`

	AddedAt         time.Time `json:"added_at"`
	LocalModifiedAt time.Time `json:"local_modified_at"`

	// Sync linkage, maintained exclusively by the reconciliation engine.
	RemoteID         string     `json:"remote_id,omitempty"`
	RemoteModifiedAt *time.Time `json:"remote_modified_at,omitempty"`
	LastSyncedAt     *time.Time `json:"last_synced_at,omitempty"`
}

// ID returns the effective primary key.
func (r *Record) ID() string { return r.Key.Value }

// Archived reports whether the record is soft-archived on the local side.
func (r *Record) Archived() bool {
	return r.ArchivedAt != nil || r.ReadingStatus == ReadingArchived
}

// Clone returns a deep copy so callers never mutate a store-owned record.
func (r *Record) Clone() *Record {
	c := *r
	c.Authors = append([]string(nil), r.Authors...)
	c.Tags = append([]string(nil), r.Tags...)
	if r.ArchivedAt != nil {
		t := *r.ArchivedAt
		c.ArchivedAt = &t
	}
	if r.RemoteModifiedAt != nil {
		t := *r.RemoteModifiedAt
		c.RemoteModifiedAt = &t
	}
	if r.LastSyncedAt != nil {
		t := *r.LastSyncedAt
		c.LastSyncedAt = &t
	}
	return &c
}

// Index is the full local record set persisted as one JSON document.
type Index struct {
	Records   map[string]*Record `json:"records"`
	UpdatedAt time.Time          `json:"updated_at"`
}

func NewIndex() *Index {
	return &Index{Records: make(map[string]*Record)}
}

// DedupeTags strips blanks and duplicates while preserving insertion
// order.
func DedupeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		t := strings.TrimSpace(tag)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// TagsEqual compares two tag lists as sets: order is irrelevant for
// equality, only membership counts.
func TagsEqual(a, b []string) bool {
	da, db := DedupeTags(a), DedupeTags(b)
	if len(da) != len(db) {
		return false
	}
	set := make(map[string]struct{}, len(da))
	for _, t := range da {
		set[t] = struct{}{}
	}
	for _, t := range db {
		if _, ok := set[t]; !ok {
			return false
		}
	}
	return true
}
