package inbound

import (
	"context"
)

// Register Accounts
type AccountRegistration struct {
	AccountID string `json:"account_id" validate:"required,len=12"`
	RoleName  string `json:"role_name" validate:"required"`
}

type RegisterAccountsRequest struct {
	Accounts []AccountRegistration `json:"accounts" validate:"required,min=1"`
}

type RegisterAccountsResponse struct {
	Registered []string `json:"registered"`
}

// Update Account
type UpdateAccountRequest struct {
	RoleName string `json:"role_name" validate:"required"`
}

type UpdateAccountResponse struct {
	Message string `json:"message"`
}

// Deregister Accounts
type DeregisterAccountsRequest struct {
	AccountIDs []string `json:"account_ids" validate:"required,min=1"`
}

type DeregisterAccountsResponse struct {
	Deregistered []string `json:"deregistered"`
}

// List Accounts
type AccountListItem struct {
	AccountID      string `json:"account_id"`
	RoleName       string `json:"role_name"`
	LastSyncedTime string `json:"last_synced_time,omitempty"`
}

type ListAccountsResponse struct {
	Accounts []AccountListItem `json:"accounts"`
}

// Account Management Use Case Interface
type AccountUseCase interface {
	RegisterAccounts(ctx context.Context, req RegisterAccountsRequest) (*RegisterAccountsResponse, error)
	UpdateAccount(ctx context.Context, accountID string, req UpdateAccountRequest) (*UpdateAccountResponse, error)
	DeregisterAccounts(ctx context.Context, req DeregisterAccountsRequest) (*DeregisterAccountsResponse, error)
	ListAccounts(ctx context.Context) (*ListAccountsResponse, error)
}
