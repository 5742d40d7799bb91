package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/healthwatch/healthwatch/application/port/inbound"
	"github.com/healthwatch/healthwatch/application/port/outbound"
)

var ErrInvalidTimeFilter = errors.New("time filters must be RFC3339 timestamps")

// QueryUseCase serves the dashboard's read side from the catalog, never
// from the source API.
type QueryUseCase struct {
	reader outbound.EventReader
}

func NewQueryUseCase(reader outbound.EventReader) *QueryUseCase {
	return &QueryUseCase{reader: reader}
}

func (uc *QueryUseCase) ListEvents(ctx context.Context, req inbound.ListEventsRequest) (*inbound.ListEventsResponse, error) {
	q := outbound.EventQuery{
		AccountID:         req.AccountID,
		Service:           req.Service,
		Region:            req.Region,
		EventTypeCode:     req.EventTypeCode,
		EventTypeCategory: req.EventTypeCategory,
		StatusCode:        req.StatusCode,
	}

	if req.From != "" {
		from, err := time.Parse(time.RFC3339, req.From)
		if err != nil {
			return nil, fmt.Errorf("%w: from=%q", ErrInvalidTimeFilter, req.From)
		}
		q.From = &from
	}
	if req.To != "" {
		to, err := time.Parse(time.RFC3339, req.To)
		if err != nil {
			return nil, fmt.Errorf("%w: to=%q", ErrInvalidTimeFilter, req.To)
		}
		q.To = &to
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	limit := req.Limit
	if limit < 1 || limit > 100 {
		limit = 50
	}
	q.Limit = limit
	q.Offset = (page - 1) * limit

	events, total, err := uc.reader.ListEvents(ctx, q)
	if err != nil {
		return nil, err
	}

	return &inbound.ListEventsResponse{
		Events: events,
		Pagination: inbound.PaginationInfo{
			Page:  page,
			Limit: limit,
			Total: total,
		},
	}, nil
}

func (uc *QueryUseCase) GetEventDetail(ctx context.Context, eventArn string) (*inbound.GetEventDetailResponse, error) {
	detail, err := uc.reader.GetDetail(ctx, eventArn)
	if err != nil {
		return nil, err
	}
	return &inbound.GetEventDetailResponse{Detail: detail}, nil
}

func (uc *QueryUseCase) ListAffectedAccounts(ctx context.Context, eventArn string) (*inbound.ListAffectedAccountsResponse, error) {
	accountIDs, err := uc.reader.ListAffectedAccounts(ctx, eventArn)
	if err != nil {
		return nil, err
	}
	return &inbound.ListAffectedAccountsResponse{EventArn: eventArn, AccountIDs: accountIDs}, nil
}

func (uc *QueryUseCase) ListAffectedEntities(ctx context.Context, eventArn, accountID string) (*inbound.ListAffectedEntitiesResponse, error) {
	entities, err := uc.reader.ListAffectedEntities(ctx, eventArn, accountID)
	if err != nil {
		return nil, err
	}
	return &inbound.ListAffectedEntitiesResponse{EventArn: eventArn, AccountID: accountID, Entities: entities}, nil
}
