package outbound

import (
	"context"
	"errors"
	"time"

	"github.com/healthwatch/healthwatch/domain"
)

// ErrDetailNotFound is returned by GetDetail when no detail record exists
// for the ARN.
var ErrDetailNotFound = errors.New("event detail not found")

// EventStore is the catalog's write side. All upserts are idempotent: the
// record's identity key fully determines its storage slot, so replaying an
// overlapping window converges to the same state instead of duplicating.
type EventStore interface {
	UpsertEvents(ctx context.Context, events []domain.EventSummary) (int, error)
	UpsertDetails(ctx context.Context, details []domain.EventDetail) (int, error)
	UpsertAffectedAccounts(ctx context.Context, links []domain.AffectedAccountLink) (int, error)
	UpsertAffectedEntities(ctx context.Context, entities []domain.AffectedEntity) (int, error)

	// EnsureRetentionPolicy registers the expiry policy on the store.
	// Idempotent: a no-op when already enabled, and racing runs are not
	// an error.
	EnsureRetentionPolicy(ctx context.Context) error

	// DeleteExpired removes records whose expiration_time has passed and
	// returns how many rows were deleted.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// EventQuery filters the read side. Every filterable attribute is stored
// verbatim on the event record, so all combinations are satisfiable.
type EventQuery struct {
	AccountID         string
	From              *time.Time
	To                *time.Time
	Service           string
	Region            string
	EventTypeCode     string
	EventTypeCategory string
	StatusCode        string
	Limit             int
	Offset            int
}

// EventReader is the query-side consumer interface over the persisted
// records.
type EventReader interface {
	ListEvents(ctx context.Context, q EventQuery) ([]domain.EventSummary, int, error)
	GetDetail(ctx context.Context, eventArn string) (*domain.EventDetail, error)
	ListAffectedAccounts(ctx context.Context, eventArn string) ([]string, error)
	ListAffectedEntities(ctx context.Context, eventArn, accountID string) ([]domain.AffectedEntity, error)
}
