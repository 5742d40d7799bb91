package sync

import (
	"context"
	"time"

	"github.com/healthwatch/healthwatch/application/port/outbound"
	"github.com/healthwatch/healthwatch/domain"
)

// Persister writes all four record kinds idempotently and only then
// advances the account watermark. That ordering is the correctness
// guarantee against data loss on partial failure: a crash after the writes
// but before the watermark means harmless refetching on the next run, a
// crash before the writes marks nothing falsely synced.
type Persister struct {
	store     outbound.EventStore
	directory outbound.AccountDirectory
}

func NewPersister(store outbound.EventStore, directory outbound.AccountDirectory) *Persister {
	return &Persister{store: store, directory: directory}
}

// Persist stamps every record with the expiration time, upserts the four
// write sets, and advances last_synced_time to the max start time among
// the summaries just written.
func (p *Persister) Persist(
	ctx context.Context,
	accountID string,
	summaries []domain.EventSummary,
	details []domain.EventDetail,
	links []domain.AffectedAccountLink,
	entities []domain.AffectedEntity,
	expiration time.Time,
) (*domain.PersistCounts, error) {
	if len(summaries) == 0 {
		return &domain.PersistCounts{}, nil
	}

	for i := range summaries {
		summaries[i].AccountID = accountID
		summaries[i].ExpirationTime = expiration
	}
	for i := range details {
		details[i].ExpirationTime = expiration
	}
	for i := range links {
		links[i].ExpirationTime = expiration
	}
	for i := range entities {
		entities[i].ExpirationTime = expiration
	}

	counts := &domain.PersistCounts{}
	var err error

	if counts.Events, err = p.store.UpsertEvents(ctx, summaries); err != nil {
		return nil, domain.ErrUpsertFailed("events", err)
	}
	if counts.Details, err = p.store.UpsertDetails(ctx, details); err != nil {
		return nil, domain.ErrUpsertFailed("details", err)
	}
	if counts.AffectedAccounts, err = p.store.UpsertAffectedAccounts(ctx, links); err != nil {
		return nil, domain.ErrUpsertFailed("affected_accounts", err)
	}
	if counts.AffectedEntities, err = p.store.UpsertAffectedEntities(ctx, entities); err != nil {
		return nil, domain.ErrUpsertFailed("affected_entities", err)
	}

	watermark, ok := domain.MaxStartTime(summaries)
	if !ok {
		return counts, nil
	}
	if err := p.directory.AdvanceWatermark(ctx, accountID, watermark); err != nil {
		return nil, domain.ErrWatermarkFailed(accountID, err)
	}

	return counts, nil
}

// EnsureRetention registers the expiry policy on the store. Safe to call
// from every run; enabling races with another run are not errors.
func (p *Persister) EnsureRetention(ctx context.Context) error {
	if err := p.store.EnsureRetentionPolicy(ctx); err != nil {
		return domain.ErrRetentionFailed(err)
	}
	return nil
}
