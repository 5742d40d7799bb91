package domain

import (
	"time"
)

// RegisteredAccount is one externally-owned account whose health events are
// collected into the catalog. LastSyncedTime is the high-water mark: the
// latest event start time already persisted for this account. It is nil
// until the first successful sync.
type RegisteredAccount struct {
	AccountID      string     `json:"account_id"`
	RoleName       string     `json:"role_name"`
	LastSyncedTime *time.Time `json:"last_synced_time,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func NewRegisteredAccount(accountID, roleName string) *RegisteredAccount {
	now := time.Now().UTC()
	return &RegisteredAccount{
		AccountID: accountID,
		RoleName:  roleName,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
