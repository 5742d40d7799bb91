package domain

import (
	"time"
)

// Event status codes as reported by the upstream health API.
const (
	StatusOpen     = "open"
	StatusUpcoming = "upcoming"
	StatusClosed   = "closed"
)

// Window bounds an incremental discovery pass. From is the account's
// watermark (or now minus the retention window on first sync), To is the
// run's start instant.
type Window struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// EventSummary is one health event as seen by one registered account.
// Identity key: (AccountID, EventArn).
type EventSummary struct {
	AccountID         string     `json:"account_id"`
	EventArn          string     `json:"event_arn"`
	Service           string     `json:"service"`
	EventTypeCode     string     `json:"event_type_code"`
	EventTypeCategory string     `json:"event_type_category"`
	EventScopeCode    string     `json:"event_scope_code"`
	Region            string     `json:"region"`
	AvailabilityZone  string     `json:"availability_zone,omitempty"`
	StartTime         time.Time  `json:"start_time"`
	EndTime           *time.Time `json:"end_time,omitempty"`
	LastUpdatedTime   time.Time  `json:"last_updated_time"`
	StatusCode        string     `json:"status_code"`
	ExpirationTime    time.Time  `json:"expiration_time"`
}

// EventDetail is the full description of an event. One row per EventArn
// regardless of how many accounts reference the event.
type EventDetail struct {
	EventArn          string            `json:"event_arn"`
	AccountID         string            `json:"account_id"`
	Service           string            `json:"service"`
	EventTypeCode     string            `json:"event_type_code"`
	EventTypeCategory string            `json:"event_type_category"`
	EventScopeCode    string            `json:"event_scope_code"`
	Region            string            `json:"region"`
	AvailabilityZone  string            `json:"availability_zone,omitempty"`
	StartTime         *time.Time        `json:"start_time,omitempty"`
	EndTime           *time.Time        `json:"end_time,omitempty"`
	LastUpdatedTime   *time.Time        `json:"last_updated_time,omitempty"`
	StatusCode        string            `json:"status_code"`
	Description       string            `json:"description"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	ExpirationTime    time.Time         `json:"expiration_time"`
}

// AffectedAccountLink records that an event impacts an account.
// Identity key: (EventArn, AccountID).
type AffectedAccountLink struct {
	EventArn       string    `json:"event_arn"`
	AccountID      string    `json:"account_id"`
	ExpirationTime time.Time `json:"expiration_time"`
}

// AffectedEntity is a single impacted resource under an
// (event, affected account) pair. Identity key: (EventArn, AccountID,
// EntityID).
type AffectedEntity struct {
	EventArn        string            `json:"event_arn"`
	AccountID       string            `json:"account_id"`
	EntityID        string            `json:"entity_id"`
	EntityValue     string            `json:"entity_value"`
	EntityURL       string            `json:"entity_url,omitempty"`
	EntityType      string            `json:"entity_type,omitempty"`
	StatusCode      string            `json:"status_code,omitempty"`
	LastUpdatedTime *time.Time        `json:"last_updated_time,omitempty"`
	Tags            map[string]string `json:"tags,omitempty"`
	ExpirationTime  time.Time         `json:"expiration_time"`
}

// MaxStartTime returns the latest StartTime among the summaries, used to
// advance the account watermark after a successful persist.
func MaxStartTime(summaries []EventSummary) (time.Time, bool) {
	if len(summaries) == 0 {
		return time.Time{}, false
	}
	max := summaries[0].StartTime
	for _, s := range summaries[1:] {
		if s.StartTime.After(max) {
			max = s.StartTime
		}
	}
	return max, true
}

// MinStartTime returns the earliest StartTime among the summaries, reported
// in the sync response for dashboard freshness.
func MinStartTime(summaries []EventSummary) (time.Time, bool) {
	if len(summaries) == 0 {
		return time.Time{}, false
	}
	min := summaries[0].StartTime
	for _, s := range summaries[1:] {
		if s.StartTime.Before(min) {
			min = s.StartTime
		}
	}
	return min, true
}
