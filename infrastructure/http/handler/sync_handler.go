package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/healthwatch/healthwatch/application/port/inbound"
	"github.com/healthwatch/healthwatch/infrastructure/http/response"
	"github.com/healthwatch/healthwatch/infrastructure/http/validator"
	"github.com/healthwatch/healthwatch/infrastructure/service/logger"
)

type SyncHandler struct {
	syncUseCase inbound.SyncUseCase
	logger      logger.Logger
}

func NewSyncHandler(syncUseCase inbound.SyncUseCase, logger logger.Logger) *SyncHandler {
	return &SyncHandler{
		syncUseCase: syncUseCase,
		logger:      logger,
	}
}

// TriggerSync starts a synchronization run. The body is optional; when
// present it may restrict the run to a subset of registered accounts.
func (h *SyncHandler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		response.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req inbound.SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		response.BadRequest(w, "Invalid request body")
		return
	}

	for _, accountID := range req.AccountIDs {
		if !validator.ValidateAccountID(accountID) {
			response.UnprocessableEntity(w, "Account ID must be 12 digits: "+accountID)
			return
		}
	}

	res, err := h.syncUseCase.Sync(r.Context(), req)
	if err != nil {
		h.logger.Error(r.Context(), "Sync run failed", err, nil)
		response.AppError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "success", res)
}
