package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/healthwatch/healthwatch/application/port/inbound"
	"github.com/healthwatch/healthwatch/application/port/outbound"
	"github.com/healthwatch/healthwatch/infrastructure/http/response"
	"github.com/healthwatch/healthwatch/infrastructure/http/validator"
	"github.com/healthwatch/healthwatch/infrastructure/service/logger"
)

type AccountHandler struct {
	accountUseCase inbound.AccountUseCase
	logger         logger.Logger
}

func NewAccountHandler(accountUseCase inbound.AccountUseCase, logger logger.Logger) *AccountHandler {
	return &AccountHandler{
		accountUseCase: accountUseCase,
		logger:         logger,
	}
}

func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req inbound.RegisterAccountsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if len(req.Accounts) == 0 {
		response.UnprocessableEntity(w, "At least one account is required")
		return
	}
	for _, acct := range req.Accounts {
		if !validator.ValidateAccountID(acct.AccountID) {
			response.UnprocessableEntity(w, "Account ID must be 12 digits: "+acct.AccountID)
			return
		}
		if !validator.ValidateRoleName(acct.RoleName) {
			response.UnprocessableEntity(w, "Invalid role name for account "+acct.AccountID)
			return
		}
	}

	res, err := h.accountUseCase.RegisterAccounts(r.Context(), req)
	if err != nil {
		h.logger.Error(r.Context(), "Failed to register accounts", err, nil)
		response.AppError(w, err)
		return
	}

	response.Success(w, http.StatusCreated, "success", res)
}

func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["account_id"]
	if !validator.ValidateAccountID(accountID) {
		response.UnprocessableEntity(w, "Account ID must be 12 digits")
		return
	}

	var req inbound.UpdateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if !validator.ValidateRoleName(req.RoleName) {
		response.UnprocessableEntity(w, "Invalid role name")
		return
	}

	res, err := h.accountUseCase.UpdateAccount(r.Context(), accountID, req)
	if err != nil {
		if errors.Is(err, outbound.ErrAccountNotFound) {
			response.NotFound(w, "Account not registered")
			return
		}
		h.logger.Error(r.Context(), "Failed to update account", err, map[string]interface{}{
			"account_id": accountID,
		})
		response.AppError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "success", res)
}

func (h *AccountHandler) Deregister(w http.ResponseWriter, r *http.Request) {
	var req inbound.DeregisterAccountsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if len(req.AccountIDs) == 0 {
		response.UnprocessableEntity(w, "At least one account ID is required")
		return
	}
	for _, accountID := range req.AccountIDs {
		if !validator.ValidateAccountID(accountID) {
			response.UnprocessableEntity(w, "Account ID must be 12 digits: "+accountID)
			return
		}
	}

	res, err := h.accountUseCase.DeregisterAccounts(r.Context(), req)
	if err != nil {
		h.logger.Error(r.Context(), "Failed to deregister accounts", err, nil)
		response.AppError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "success", res)
}

func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	res, err := h.accountUseCase.ListAccounts(r.Context())
	if err != nil {
		h.logger.Error(r.Context(), "Failed to list accounts", err, nil)
		response.AppError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "success", res)
}
