package domain

import "time"

// RemoteRecord is the remote service's view of one document, translated
// out of its page/property schema by the remote adapter.
type RemoteRecord struct {
	PageID            string
	ExternalID        string
	Slug              string
	Title             string
	Authors           []string
	Tags              []string
	ReadingStatus     string
	Summary           string
	SummaryModifiedAt *time.Time
	LocalModifiedAt   *time.Time
	Archived          bool
	LastEditedAt      time.Time
}

// Key returns the best available identifier, preferring the canonical
// external id over the derived slug. Empty when the remote record carries
// neither.
func (r *RemoteRecord) Key() string {
	if r.ExternalID != "" {
		return r.ExternalID
	}
	return r.Slug
}

// ModifiedAt is the timestamp used for conflict resolution: the explicit
// summary_last_modified property when set, else the service's own
// last-edited time.
func (r *RemoteRecord) ModifiedAt() time.Time {
	if r.SummaryModifiedAt != nil {
		return *r.SummaryModifiedAt
	}
	return r.LastEditedAt
}
