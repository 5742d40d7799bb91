package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/healthwatch/healthwatch/application/port/inbound"
	"github.com/healthwatch/healthwatch/domain"
	"github.com/healthwatch/healthwatch/infrastructure/http/response"
	"github.com/healthwatch/healthwatch/infrastructure/service/logger"
)

type stubSyncUseCase struct {
	gotReq inbound.SyncRequest
	res    *inbound.SyncResponse
	err    error
}

func (s *stubSyncUseCase) Sync(ctx context.Context, req inbound.SyncRequest) (*inbound.SyncResponse, error) {
	s.gotReq = req
	return s.res, s.err
}

func TestTriggerSync(t *testing.T) {
	t.Run("NoBodyTriggersFullRun", func(t *testing.T) {
		useCase := &stubSyncUseCase{res: &inbound.SyncResponse{RunID: "run-1", TotalEventCount: 3}}
		h := NewSyncHandler(useCase, logger.NewNopLogger())

		rec := httptest.NewRecorder()
		h.TriggerSync(rec, httptest.NewRequest(http.MethodPost, "/v1/sync", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if len(useCase.gotReq.AccountIDs) != 0 {
			t.Errorf("no body should mean all accounts, got %v", useCase.gotReq.AccountIDs)
		}

		var envelope response.Envelope
		if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("response should be a JSON envelope: %v", err)
		}
		if !envelope.Status {
			t.Error("envelope status should be true")
		}
	})

	t.Run("AccountSubsetForwarded", func(t *testing.T) {
		useCase := &stubSyncUseCase{res: &inbound.SyncResponse{RunID: "run-2"}}
		h := NewSyncHandler(useCase, logger.NewNopLogger())

		body := strings.NewReader(`{"account_ids":["111111111111"]}`)
		rec := httptest.NewRecorder()
		h.TriggerSync(rec, httptest.NewRequest(http.MethodPost, "/v1/sync", body))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if len(useCase.gotReq.AccountIDs) != 1 || useCase.gotReq.AccountIDs[0] != "111111111111" {
			t.Errorf("subset should be forwarded, got %v", useCase.gotReq.AccountIDs)
		}
	})

	t.Run("BadAccountIDRejected", func(t *testing.T) {
		useCase := &stubSyncUseCase{}
		h := NewSyncHandler(useCase, logger.NewNopLogger())

		body := strings.NewReader(`{"account_ids":["12345"]}`)
		rec := httptest.NewRecorder()
		h.TriggerSync(rec, httptest.NewRequest(http.MethodPost, "/v1/sync", body))

		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("expected 422, got %d", rec.Code)
		}
	})

	t.Run("MethodNotAllowed", func(t *testing.T) {
		h := NewSyncHandler(&stubSyncUseCase{}, logger.NewNopLogger())

		rec := httptest.NewRecorder()
		h.TriggerSync(rec, httptest.NewRequest(http.MethodGet, "/v1/sync", nil))

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})

	t.Run("StorageErrorMapped", func(t *testing.T) {
		useCase := &stubSyncUseCase{err: domain.ErrQueryFailed("list accounts", errors.New("connection refused"))}
		h := NewSyncHandler(useCase, logger.NewNopLogger())

		rec := httptest.NewRecorder()
		h.TriggerSync(rec, httptest.NewRequest(http.MethodPost, "/v1/sync", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500 for a storage failure, got %d", rec.Code)
		}
		var envelope response.Envelope
		if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("response should be a JSON envelope: %v", err)
		}
		if envelope.Code == "" {
			t.Error("the catalog code should surface in the envelope")
		}
	})
}
