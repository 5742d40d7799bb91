package sync

import (
	"context"
	gosync "sync"
	"time"

	"github.com/google/uuid"

	"github.com/healthwatch/healthwatch/application/port/inbound"
	"github.com/healthwatch/healthwatch/application/port/outbound"
	"github.com/healthwatch/healthwatch/domain"
	"github.com/healthwatch/healthwatch/infrastructure/metrics"
	"github.com/healthwatch/healthwatch/infrastructure/service/logger"
)

// Config bounds one synchronization run.
type Config struct {
	// RetentionWindow is both the lookback for an account's first sync
	// and the lifetime stamped onto every persisted record.
	RetentionWindow time.Duration
	// Concurrency is the worker-pool width. 1 processes accounts
	// sequentially, which keeps credential lifetimes and write ordering
	// trivial; each worker always owns one account end-to-end.
	Concurrency int
	// RunDeadline bounds the whole run. A timed-out run is safely
	// retryable because the watermark only advances after a full persist.
	RunDeadline time.Duration
}

func (c Config) withDefaults() Config {
	if c.RetentionWindow <= 0 {
		c.RetentionWindow = 90 * 24 * time.Hour
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}
	if c.RunDeadline <= 0 {
		c.RunDeadline = 15 * time.Minute
	}
	return c
}

// Orchestrator drives the pipeline per registered account and aggregates
// the run totals. Per-account failures are logged and counted, never
// escalated: a single misconfigured account must not abort the global
// sync.
type Orchestrator struct {
	directory outbound.AccountDirectory
	broker    *CredentialBroker
	discovery *EventDiscovery
	details   *DetailFanout
	impact    *ImpactFanout
	persister *Persister
	logger    logger.Logger
	cfg       Config
}

func NewOrchestrator(
	directory outbound.AccountDirectory,
	broker *CredentialBroker,
	discovery *EventDiscovery,
	details *DetailFanout,
	impact *ImpactFanout,
	persister *Persister,
	log logger.Logger,
	cfg Config,
) *Orchestrator {
	return &Orchestrator{
		directory: directory,
		broker:    broker,
		discovery: discovery,
		details:   details,
		impact:    impact,
		persister: persister,
		logger:    log,
		cfg:       cfg.withDefaults(),
	}
}

// accountOutcome is one account's contribution to the run aggregate.
type accountOutcome struct {
	counts   domain.PersistCounts
	earliest *time.Time
}

// aggregate is the concurrency-safe run accumulator.
type aggregate struct {
	mu       gosync.Mutex
	report   domain.SyncReport
	earliest *time.Time
}

func (a *aggregate) add(outcome accountOutcome) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.report.TotalEventCount += outcome.counts.Events
	a.report.TotalDetailCount += outcome.counts.Details
	a.report.TotalAffectedAccountCount += outcome.counts.AffectedAccounts
	a.report.TotalAffectedEntityCount += outcome.counts.AffectedEntities
	if outcome.earliest != nil && (a.earliest == nil || outcome.earliest.Before(*a.earliest)) {
		a.earliest = outcome.earliest
	}
}

func (a *aggregate) fail(accountID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.report.FailedAccountIDs = append(a.report.FailedAccountIDs, accountID)
}

// Sync runs the pipeline for the requested accounts (all registered
// accounts when the request names none) and returns aggregate counts. The
// response is a success even when individual accounts failed.
func (o *Orchestrator) Sync(ctx context.Context, req inbound.SyncRequest) (*inbound.SyncResponse, error) {
	runID := uuid.New().String()
	runStart := time.Now().UTC()

	ctx, cancel := context.WithTimeout(ctx, o.cfg.RunDeadline)
	defer cancel()

	registered, err := o.directory.ListAll(ctx)
	if err != nil {
		return nil, domain.ErrQueryFailed("list accounts", err)
	}
	accounts := filterAccounts(registered, req.AccountIDs)

	o.logger.Info(ctx, "Sync run starting", map[string]interface{}{
		"run_id":   runID,
		"accounts": len(accounts),
	})
	metrics.SyncRuns.Inc()

	agg := &aggregate{report: domain.SyncReport{RunID: runID}}
	if len(accounts) > 0 {
		o.runAccounts(ctx, accounts, runStart, agg)
	}

	// Registering retention is idempotent; a race with a concurrent run
	// is benign.
	if err := o.persister.EnsureRetention(ctx); err != nil {
		o.logger.Error(ctx, "Retention enablement failed", err, map[string]interface{}{
			"run_id": runID,
		})
	}

	metrics.SyncRunDuration.Observe(time.Since(runStart).Seconds())
	o.logger.Info(ctx, "Sync run finished", map[string]interface{}{
		"run_id":          runID,
		"events":          agg.report.TotalEventCount,
		"details":         agg.report.TotalDetailCount,
		"links":           agg.report.TotalAffectedAccountCount,
		"entities":        agg.report.TotalAffectedEntityCount,
		"failed_accounts": agg.report.FailedAccountIDs,
		"duration":        time.Since(runStart).String(),
	})

	resp := &inbound.SyncResponse{
		RunID:                     runID,
		TotalEventCount:           agg.report.TotalEventCount,
		TotalDetailCount:          agg.report.TotalDetailCount,
		TotalAffectedAccountCount: agg.report.TotalAffectedAccountCount,
		TotalAffectedEntityCount:  agg.report.TotalAffectedEntityCount,
		FailedAccountIDs:          agg.report.FailedAccountIDs,
	}
	if agg.earliest != nil {
		resp.EarliestEventTime = agg.earliest.UTC().Format(time.RFC3339)
	}
	return resp, nil
}

// runAccounts fans the account list over a bounded worker pool. Every
// worker owns exactly one account's discover-to-persist sequence.
func (o *Orchestrator) runAccounts(ctx context.Context, accounts []domain.RegisteredAccount, runStart time.Time, agg *aggregate) {
	sem := make(chan struct{}, o.cfg.Concurrency)
	var wg gosync.WaitGroup

	for _, account := range accounts {
		wg.Add(1)
		sem <- struct{}{}
		go func(account domain.RegisteredAccount) {
			defer wg.Done()
			defer func() { <-sem }()

			outcome, err := o.syncAccount(ctx, account, runStart)
			if err != nil {
				agg.fail(account.AccountID)
				metrics.AccountSyncFailures.Inc()
				o.logger.Error(ctx, "Account sync failed", err, map[string]interface{}{
					"account_id": account.AccountID,
					"role_name":  account.RoleName,
				})
				return
			}
			agg.add(outcome)
		}(account)
	}
	wg.Wait()
}

// syncAccount runs the full pipeline for one account: acquire credentials,
// discover summaries in the incremental window, fan out for details and
// impact, persist, advance the watermark.
func (o *Orchestrator) syncAccount(ctx context.Context, account domain.RegisteredAccount, runStart time.Time) (accountOutcome, error) {
	window := domain.Window{From: runStart.Add(-o.cfg.RetentionWindow), To: runStart}
	if account.LastSyncedTime != nil && account.LastSyncedTime.After(window.From) {
		window.From = *account.LastSyncedTime
	}

	creds, err := o.broker.Acquire(ctx, account.AccountID, account.RoleName)
	if err != nil {
		return accountOutcome{}, err
	}

	summaries, err := o.discovery.Discover(ctx, creds, window).Drain()
	if err != nil {
		return accountOutcome{}, domain.ErrDiscoveryFailed(account.AccountID, err)
	}
	if len(summaries) == 0 {
		o.logger.Debug(ctx, "No events in window", map[string]interface{}{
			"account_id": account.AccountID,
			"from":       window.From.Format(time.RFC3339),
			"to":         window.To.Format(time.RFC3339),
		})
		return accountOutcome{}, nil
	}

	eventArns := make([]string, 0, len(summaries))
	for _, s := range summaries {
		eventArns = append(eventArns, s.EventArn)
	}

	details, failedArns := o.details.FetchDetails(ctx, creds, eventArns)
	if len(failedArns) > 0 {
		o.logger.Warn(ctx, "Some event details could not be fetched", map[string]interface{}{
			"account_id":  account.AccountID,
			"failed_arns": failedArns,
		})
	}

	links, entities := o.impact.FetchImpact(ctx, creds, eventArns)

	expiration := runStart.Add(o.cfg.RetentionWindow)
	counts, err := o.persister.Persist(ctx, account.AccountID, summaries, details, links, entities, expiration)
	if err != nil {
		return accountOutcome{}, err
	}

	metrics.EventsWritten.Add(float64(counts.Events))
	metrics.DetailsWritten.Add(float64(counts.Details))
	metrics.AffectedAccountsWritten.Add(float64(counts.AffectedAccounts))
	metrics.AffectedEntitiesWritten.Add(float64(counts.AffectedEntities))

	outcome := accountOutcome{counts: *counts}
	if earliest, ok := domain.MinStartTime(summaries); ok {
		outcome.earliest = &earliest
	}
	return outcome, nil
}

func filterAccounts(registered []domain.RegisteredAccount, accountIDs []string) []domain.RegisteredAccount {
	if len(accountIDs) == 0 {
		return registered
	}
	wanted := make(map[string]struct{}, len(accountIDs))
	for _, id := range accountIDs {
		wanted[id] = struct{}{}
	}
	var out []domain.RegisteredAccount
	for _, account := range registered {
		if _, ok := wanted[account.AccountID]; ok {
			out = append(out, account)
		}
	}
	return out
}
