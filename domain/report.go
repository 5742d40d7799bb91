package domain

import (
	"time"
)

// PersistCounts are the record counts written during a single account's
// persist step.
type PersistCounts struct {
	Events           int `json:"events"`
	Details          int `json:"details"`
	AffectedAccounts int `json:"affected_accounts"`
	AffectedEntities int `json:"affected_entities"`
}

// SyncReport aggregates one whole run across all processed accounts.
// Failed accounts are listed, not surfaced as a run failure: one
// misconfigured account must not hide a successful sync of the rest.
type SyncReport struct {
	RunID                     string     `json:"run_id"`
	EarliestEventTime         *time.Time `json:"earliest_event_time,omitempty"`
	TotalEventCount           int        `json:"total_event_count"`
	TotalDetailCount          int        `json:"total_detail_count"`
	TotalAffectedAccountCount int        `json:"total_affected_account_count"`
	TotalAffectedEntityCount  int        `json:"total_affected_entity_count"`
	FailedAccountIDs          []string   `json:"failed_account_ids,omitempty"`
}
