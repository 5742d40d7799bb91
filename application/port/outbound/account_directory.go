package outbound

import (
	"context"
	"errors"
	"time"

	"github.com/healthwatch/healthwatch/domain"
)

var (
	ErrAccountNotFound      = errors.New("account not found")
	ErrAccountAlreadyExists = errors.New("account already exists")
)

// AccountDirectory is the registry of accounts the sync pipeline covers.
// The pipeline itself only reads registrations and advances watermarks;
// all other mutations belong to the registration subsystem.
type AccountDirectory interface {
	Register(ctx context.Context, account *domain.RegisteredAccount) error
	UpdateRoleName(ctx context.Context, accountID, roleName string) error
	Deregister(ctx context.Context, accountID string) error
	FindByID(ctx context.Context, accountID string) (*domain.RegisteredAccount, error)
	ListAll(ctx context.Context) ([]domain.RegisteredAccount, error)

	// AdvanceWatermark moves last_synced_time forward, never backward.
	// Calls with a timestamp at or below the stored value are no-ops, so
	// overlapping runs degrade to redundant refetching.
	AdvanceWatermark(ctx context.Context, accountID string, syncedTo time.Time) error
}
