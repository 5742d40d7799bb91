package inbound

import (
	"context"

	"github.com/healthwatch/healthwatch/domain"
)

// List Events
type ListEventsRequest struct {
	AccountID         string `json:"account_id,omitempty"`
	From              string `json:"from,omitempty"`
	To                string `json:"to,omitempty"`
	Service           string `json:"service,omitempty"`
	Region            string `json:"region,omitempty"`
	EventTypeCode     string `json:"event_type_code,omitempty"`
	EventTypeCategory string `json:"event_type_category,omitempty"`
	StatusCode        string `json:"status_code,omitempty"`
	Page              int    `json:"page"`
	Limit             int    `json:"limit"`
}

type ListEventsResponse struct {
	Events     []domain.EventSummary `json:"events"`
	Pagination PaginationInfo        `json:"pagination"`
}

type PaginationInfo struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// Event Detail
type GetEventDetailResponse struct {
	Detail *domain.EventDetail `json:"detail"`
}

// Affected accounts / entities
type ListAffectedAccountsResponse struct {
	EventArn   string   `json:"event_arn"`
	AccountIDs []string `json:"account_ids"`
}

type ListAffectedEntitiesResponse struct {
	EventArn  string                  `json:"event_arn"`
	AccountID string                  `json:"account_id"`
	Entities  []domain.AffectedEntity `json:"entities"`
}

// Query Use Case Interface — the dashboard's read side over the catalog.
type QueryUseCase interface {
	ListEvents(ctx context.Context, req ListEventsRequest) (*ListEventsResponse, error)
	GetEventDetail(ctx context.Context, eventArn string) (*GetEventDetailResponse, error)
	ListAffectedAccounts(ctx context.Context, eventArn string) (*ListAffectedAccountsResponse, error)
	ListAffectedEntities(ctx context.Context, eventArn, accountID string) (*ListAffectedEntitiesResponse, error)
}
