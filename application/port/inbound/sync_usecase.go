package inbound

import (
	"context"
)

// Sync
type SyncRequest struct {
	// AccountIDs optionally restricts the run to a subset of registered
	// accounts, for targeted re-sync. Empty means all.
	AccountIDs []string `json:"account_ids,omitempty"`
}

type SyncResponse struct {
	RunID                     string   `json:"run_id"`
	EarliestEventTime         string   `json:"earliest_event_time,omitempty"`
	TotalEventCount           int      `json:"total_event_count"`
	TotalDetailCount          int      `json:"total_detail_count"`
	TotalAffectedAccountCount int      `json:"total_affected_account_count"`
	TotalAffectedEntityCount  int      `json:"total_affected_entity_count"`
	FailedAccountIDs          []string `json:"failed_account_ids,omitempty"`
}

// SyncUseCase drives one full synchronization run. The run always returns
// a success response with aggregate counts; per-account failures are
// reported in FailedAccountIDs and logs, never as a run error.
type SyncUseCase interface {
	Sync(ctx context.Context, req SyncRequest) (*SyncResponse, error)
}
