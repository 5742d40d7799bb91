package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/healthwatch/healthwatch/application/port/inbound"
	"github.com/healthwatch/healthwatch/application/port/outbound"
	"github.com/healthwatch/healthwatch/application/usecase/query"
	"github.com/healthwatch/healthwatch/infrastructure/http/response"
	"github.com/healthwatch/healthwatch/infrastructure/http/validator"
	"github.com/healthwatch/healthwatch/infrastructure/service/logger"
)

// EventQueryHandler serves the dashboard's read side: listing persisted
// events and drilling into a single event's detail and impact.
type EventQueryHandler struct {
	queryUseCase inbound.QueryUseCase
	logger       logger.Logger
}

func NewEventQueryHandler(queryUseCase inbound.QueryUseCase, logger logger.Logger) *EventQueryHandler {
	return &EventQueryHandler{
		queryUseCase: queryUseCase,
		logger:       logger,
	}
}

func (h *EventQueryHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	req := inbound.ListEventsRequest{
		AccountID:         params.Get("account_id"),
		From:              params.Get("from"),
		To:                params.Get("to"),
		Service:           params.Get("service"),
		Region:            params.Get("region"),
		EventTypeCode:     params.Get("event_type_code"),
		EventTypeCategory: params.Get("event_type_category"),
		StatusCode:        params.Get("status_code"),
	}

	if req.AccountID != "" && !validator.ValidateAccountID(req.AccountID) {
		response.UnprocessableEntity(w, "Account ID must be 12 digits")
		return
	}
	if !validator.ValidateRFC3339(req.From) || !validator.ValidateRFC3339(req.To) {
		response.UnprocessableEntity(w, "Time filters must be RFC 3339 timestamps")
		return
	}

	if v := params.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			response.UnprocessableEntity(w, "Page must be a positive integer")
			return
		}
		req.Page = page
	}
	if v := params.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			response.UnprocessableEntity(w, "Limit must be a positive integer")
			return
		}
		req.Limit = limit
	}

	res, err := h.queryUseCase.ListEvents(r.Context(), req)
	if err != nil {
		if errors.Is(err, query.ErrInvalidTimeFilter) {
			response.UnprocessableEntity(w, "Time filters must be RFC 3339 timestamps")
			return
		}
		h.logger.Error(r.Context(), "Failed to list events", err, nil)
		response.AppError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "success", res)
}

// GetEventDetail looks up one event's detail. Event ARNs contain slashes
// so the ARN rides in the event_arn query parameter, not the path.
func (h *EventQueryHandler) GetEventDetail(w http.ResponseWriter, r *http.Request) {
	eventArn := r.URL.Query().Get("event_arn")
	if !validator.ValidateEventArn(eventArn) {
		response.UnprocessableEntity(w, "A valid event_arn query parameter is required")
		return
	}

	res, err := h.queryUseCase.GetEventDetail(r.Context(), eventArn)
	if err != nil {
		if errors.Is(err, outbound.ErrDetailNotFound) {
			response.NotFound(w, "Event detail not found")
			return
		}
		h.logger.Error(r.Context(), "Failed to get event detail", err, map[string]interface{}{
			"event_arn": eventArn,
		})
		response.AppError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "success", res)
}

func (h *EventQueryHandler) ListAffectedAccounts(w http.ResponseWriter, r *http.Request) {
	eventArn := r.URL.Query().Get("event_arn")
	if !validator.ValidateEventArn(eventArn) {
		response.UnprocessableEntity(w, "A valid event_arn query parameter is required")
		return
	}

	res, err := h.queryUseCase.ListAffectedAccounts(r.Context(), eventArn)
	if err != nil {
		h.logger.Error(r.Context(), "Failed to list affected accounts", err, map[string]interface{}{
			"event_arn": eventArn,
		})
		response.AppError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "success", res)
}

func (h *EventQueryHandler) ListAffectedEntities(w http.ResponseWriter, r *http.Request) {
	eventArn := r.URL.Query().Get("event_arn")
	accountID := r.URL.Query().Get("account_id")
	if !validator.ValidateEventArn(eventArn) {
		response.UnprocessableEntity(w, "A valid event_arn query parameter is required")
		return
	}
	if !validator.ValidateAccountID(accountID) {
		response.UnprocessableEntity(w, "Account ID must be 12 digits")
		return
	}

	res, err := h.queryUseCase.ListAffectedEntities(r.Context(), eventArn, accountID)
	if err != nil {
		h.logger.Error(r.Context(), "Failed to list affected entities", err, map[string]interface{}{
			"event_arn":  eventArn,
			"account_id": accountID,
		})
		response.AppError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "success", res)
}
