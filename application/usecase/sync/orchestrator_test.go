package sync

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/healthwatch/healthwatch/application/port/inbound"
	"github.com/healthwatch/healthwatch/application/port/outbound"
	"github.com/healthwatch/healthwatch/domain"
	"github.com/healthwatch/healthwatch/infrastructure/service/logger"
)

func newTestOrchestrator(api *fakeHealthAPI, creds *fakeCredentialService, store *memoryStore, directory *memoryDirectory, cfg Config) *Orchestrator {
	log := logger.NewNopLogger()
	return NewOrchestrator(
		directory,
		NewCredentialBroker(creds),
		NewEventDiscovery(api, outbound.EventFilter{}),
		NewDetailFanout(api, outbound.DetailBatchLimit, log),
		NewImpactFanout(api, log),
		NewPersister(store, directory),
		log,
		cfg,
	)
}

func TestOrchestratorSync(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	const eventArn = "arn:aws:health:us-east-1::event/EC2/ISSUE/abc"

	t.Run("FullRun", func(t *testing.T) {
		api := newFakeHealthAPI()
		api.eventPages["111111111111"] = []outbound.EventPage{
			{Events: []domain.EventSummary{
				testSummary(eventArn, now.Add(-2*time.Hour)),
				testSummary("arn:e2", now.Add(-1*time.Hour)),
			}},
		}
		api.accountPages[eventArn] = []outbound.AccountPage{
			{AccountIDs: []string{"111111111111"}},
		}
		api.entityPages[pairKey(eventArn, "111111111111")] = []outbound.EntityPage{entityPageOf(2, "a")}

		store := newMemoryStore()
		directory := newMemoryDirectory(domain.RegisteredAccount{AccountID: "111111111111", RoleName: "HealthRole"})
		orchestrator := newTestOrchestrator(api, &fakeCredentialService{}, store, directory, Config{})

		res, err := orchestrator.Sync(ctx, inbound.SyncRequest{})
		if err != nil {
			t.Fatalf("Sync should succeed: %v", err)
		}
		if res.RunID == "" {
			t.Error("response should carry a run ID")
		}
		if res.TotalEventCount != 2 {
			t.Errorf("expected 2 events, got %d", res.TotalEventCount)
		}
		if res.TotalDetailCount != 2 {
			t.Errorf("expected 2 details, got %d", res.TotalDetailCount)
		}
		if res.TotalAffectedAccountCount != 1 {
			t.Errorf("expected 1 affected account link, got %d", res.TotalAffectedAccountCount)
		}
		if res.TotalAffectedEntityCount != 2 {
			t.Errorf("expected 2 entities, got %d", res.TotalAffectedEntityCount)
		}
		if len(res.FailedAccountIDs) != 0 {
			t.Errorf("no account should fail: %v", res.FailedAccountIDs)
		}

		wantEarliest := now.Add(-2 * time.Hour).Format(time.RFC3339)
		if res.EarliestEventTime != wantEarliest {
			t.Errorf("expected earliest event time %s, got %s", wantEarliest, res.EarliestEventTime)
		}

		if directory.watermark("111111111111") == nil {
			t.Error("watermark should advance after a successful run")
		}
		if store.retentionCalls != 1 {
			t.Errorf("retention should be ensured once per run, got %d", store.retentionCalls)
		}
		if got := store.events["111111111111|"+eventArn].AccountID; got != "111111111111" {
			t.Errorf("stored event should be stamped with the account, got %q", got)
		}
	})

	t.Run("PartialFailureIsolation", func(t *testing.T) {
		api := newFakeHealthAPI()
		for i, accountID := range []string{"111111111111", "222222222222", "333333333333"} {
			api.eventPages[accountID] = []outbound.EventPage{
				{Events: []domain.EventSummary{testSummary(fmt.Sprintf("arn:e%d", i), now.Add(-time.Hour))}},
			}
		}

		creds := &fakeCredentialService{
			assumeRoleFn: func(ctx context.Context, accountID, roleName string) (*domain.DelegatedCredentials, error) {
				if accountID == "222222222222" {
					return nil, errors.New("access denied")
				}
				return testCreds(accountID), nil
			},
		}

		store := newMemoryStore()
		directory := newMemoryDirectory(
			domain.RegisteredAccount{AccountID: "111111111111", RoleName: "HealthRole"},
			domain.RegisteredAccount{AccountID: "222222222222", RoleName: "HealthRole"},
			domain.RegisteredAccount{AccountID: "333333333333", RoleName: "HealthRole"},
		)
		orchestrator := newTestOrchestrator(api, creds, store, directory, Config{Concurrency: 3})

		res, err := orchestrator.Sync(ctx, inbound.SyncRequest{})
		if err != nil {
			t.Fatalf("a failing account must not abort the run: %v", err)
		}
		if len(res.FailedAccountIDs) != 1 || res.FailedAccountIDs[0] != "222222222222" {
			t.Errorf("expected only the denied account reported, got %v", res.FailedAccountIDs)
		}
		if res.TotalEventCount != 2 {
			t.Errorf("the two healthy accounts should contribute 2 events, got %d", res.TotalEventCount)
		}
		if directory.watermark("222222222222") != nil {
			t.Error("the failed account's watermark must not move")
		}
		if directory.watermark("111111111111") == nil || directory.watermark("333333333333") == nil {
			t.Error("healthy accounts' watermarks should advance")
		}
	})

	t.Run("AccountSubset", func(t *testing.T) {
		api := newFakeHealthAPI()
		api.eventPages["111111111111"] = []outbound.EventPage{
			{Events: []domain.EventSummary{testSummary("arn:e1", now.Add(-time.Hour))}},
		}
		api.eventPages["222222222222"] = []outbound.EventPage{
			{Events: []domain.EventSummary{testSummary("arn:e2", now.Add(-time.Hour))}},
		}

		store := newMemoryStore()
		directory := newMemoryDirectory(
			domain.RegisteredAccount{AccountID: "111111111111", RoleName: "HealthRole"},
			domain.RegisteredAccount{AccountID: "222222222222", RoleName: "HealthRole"},
		)
		orchestrator := newTestOrchestrator(api, &fakeCredentialService{}, store, directory, Config{})

		res, err := orchestrator.Sync(ctx, inbound.SyncRequest{AccountIDs: []string{"222222222222"}})
		if err != nil {
			t.Fatalf("Sync should succeed: %v", err)
		}
		if res.TotalEventCount != 1 {
			t.Errorf("only the requested account should be synced, got %d events", res.TotalEventCount)
		}
		if directory.watermark("111111111111") != nil {
			t.Error("the excluded account's watermark must not move")
		}
	})

	t.Run("EmptyWindowNoOp", func(t *testing.T) {
		api := newFakeHealthAPI()
		store := newMemoryStore()
		directory := newMemoryDirectory(domain.RegisteredAccount{AccountID: "111111111111", RoleName: "HealthRole"})
		orchestrator := newTestOrchestrator(api, &fakeCredentialService{}, store, directory, Config{})

		res, err := orchestrator.Sync(ctx, inbound.SyncRequest{})
		if err != nil {
			t.Fatalf("Sync should succeed: %v", err)
		}
		if res.TotalEventCount != 0 {
			t.Errorf("expected no events, got %d", res.TotalEventCount)
		}
		if res.EarliestEventTime != "" {
			t.Errorf("no earliest event time on an empty run, got %q", res.EarliestEventTime)
		}
		if store.upsertCalls != 0 {
			t.Errorf("no writes should be issued, got %d", store.upsertCalls)
		}
		if directory.watermark("111111111111") != nil {
			t.Error("watermark must not move on an empty window")
		}
	})

	t.Run("IncrementalWindowFromWatermark", func(t *testing.T) {
		lastSynced := now.Add(-6 * time.Hour)
		api := newFakeHealthAPI()
		store := newMemoryStore()
		directory := newMemoryDirectory(domain.RegisteredAccount{
			AccountID:      "111111111111",
			RoleName:       "HealthRole",
			LastSyncedTime: &lastSynced,
		})
		orchestrator := newTestOrchestrator(api, &fakeCredentialService{}, store, directory, Config{})

		if _, err := orchestrator.Sync(ctx, inbound.SyncRequest{}); err != nil {
			t.Fatalf("Sync should succeed: %v", err)
		}

		windows := api.windows["111111111111"]
		if len(windows) != 1 {
			t.Fatalf("expected 1 discovery window, got %d", len(windows))
		}
		if !windows[0].From.Equal(lastSynced) {
			t.Errorf("window should start at the watermark, got %v", windows[0].From)
		}
	})

	t.Run("FirstSyncWindowUsesRetention", func(t *testing.T) {
		api := newFakeHealthAPI()
		store := newMemoryStore()
		directory := newMemoryDirectory(domain.RegisteredAccount{AccountID: "111111111111", RoleName: "HealthRole"})
		orchestrator := newTestOrchestrator(api, &fakeCredentialService{}, store, directory, Config{RetentionWindow: 48 * time.Hour})

		if _, err := orchestrator.Sync(ctx, inbound.SyncRequest{}); err != nil {
			t.Fatalf("Sync should succeed: %v", err)
		}

		windows := api.windows["111111111111"]
		if len(windows) != 1 {
			t.Fatalf("expected 1 discovery window, got %d", len(windows))
		}
		span := windows[0].To.Sub(windows[0].From)
		if span != 48*time.Hour {
			t.Errorf("first sync should cover the retention window, got %v", span)
		}
	})

	t.Run("DirectoryFailureAbortsRun", func(t *testing.T) {
		directory := newMemoryDirectory()
		directory.failList = errors.New("connection refused")
		orchestrator := newTestOrchestrator(newFakeHealthAPI(), &fakeCredentialService{}, newMemoryStore(), directory, Config{})

		_, err := orchestrator.Sync(ctx, inbound.SyncRequest{})
		if err == nil {
			t.Fatal("an unreadable registry must abort the run")
		}
		if !domain.IsStorageError(err) {
			t.Errorf("expected a storage error, got %v", err)
		}
	})
}
