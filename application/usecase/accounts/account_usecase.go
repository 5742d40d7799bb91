package accounts

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/healthwatch/healthwatch/application/port/inbound"
	"github.com/healthwatch/healthwatch/application/port/outbound"
	"github.com/healthwatch/healthwatch/domain"
)

var (
	ErrInvalidAccountID = errors.New("account id must be a 12-digit numeric string")
	ErrMissingRoleName  = errors.New("role name is required")
	ErrNoAccounts       = errors.New("at least one account is required")
)

var accountIDRegex = regexp.MustCompile(`^\d{12}$`)

// AccountUseCase maintains the registry the sync pipeline reads. It never
// touches last_synced_time; that column belongs to the persister.
type AccountUseCase struct {
	directory outbound.AccountDirectory
}

func NewAccountUseCase(directory outbound.AccountDirectory) *AccountUseCase {
	return &AccountUseCase{directory: directory}
}

func (uc *AccountUseCase) RegisterAccounts(ctx context.Context, req inbound.RegisterAccountsRequest) (*inbound.RegisterAccountsResponse, error) {
	if len(req.Accounts) == 0 {
		return nil, ErrNoAccounts
	}

	// Validate the whole batch before touching the directory so a bad
	// entry cannot leave a half-registered request behind.
	for _, reg := range req.Accounts {
		if !accountIDRegex.MatchString(reg.AccountID) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidAccountID, reg.AccountID)
		}
		if strings.TrimSpace(reg.RoleName) == "" {
			return nil, fmt.Errorf("%w: account %s", ErrMissingRoleName, reg.AccountID)
		}
	}

	registered := make([]string, 0, len(req.Accounts))
	for _, reg := range req.Accounts {
		account := domain.NewRegisteredAccount(reg.AccountID, strings.TrimSpace(reg.RoleName))
		if err := uc.directory.Register(ctx, account); err != nil {
			if errors.Is(err, outbound.ErrAccountAlreadyExists) {
				continue
			}
			return nil, fmt.Errorf("failed to register account %s: %w", reg.AccountID, err)
		}
		registered = append(registered, reg.AccountID)
	}

	return &inbound.RegisterAccountsResponse{Registered: registered}, nil
}

func (uc *AccountUseCase) UpdateAccount(ctx context.Context, accountID string, req inbound.UpdateAccountRequest) (*inbound.UpdateAccountResponse, error) {
	if !accountIDRegex.MatchString(accountID) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAccountID, accountID)
	}
	if strings.TrimSpace(req.RoleName) == "" {
		return nil, ErrMissingRoleName
	}

	if err := uc.directory.UpdateRoleName(ctx, accountID, strings.TrimSpace(req.RoleName)); err != nil {
		return nil, err
	}
	return &inbound.UpdateAccountResponse{Message: "account updated"}, nil
}

func (uc *AccountUseCase) DeregisterAccounts(ctx context.Context, req inbound.DeregisterAccountsRequest) (*inbound.DeregisterAccountsResponse, error) {
	if len(req.AccountIDs) == 0 {
		return nil, ErrNoAccounts
	}

	deregistered := make([]string, 0, len(req.AccountIDs))
	for _, accountID := range req.AccountIDs {
		if err := uc.directory.Deregister(ctx, accountID); err != nil {
			if errors.Is(err, outbound.ErrAccountNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to deregister account %s: %w", accountID, err)
		}
		deregistered = append(deregistered, accountID)
	}

	return &inbound.DeregisterAccountsResponse{Deregistered: deregistered}, nil
}

func (uc *AccountUseCase) ListAccounts(ctx context.Context) (*inbound.ListAccountsResponse, error) {
	accounts, err := uc.directory.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]inbound.AccountListItem, 0, len(accounts))
	for _, account := range accounts {
		item := inbound.AccountListItem{
			AccountID: account.AccountID,
			RoleName:  account.RoleName,
		}
		if account.LastSyncedTime != nil {
			item.LastSyncedTime = account.LastSyncedTime.UTC().Format(time.RFC3339)
		}
		items = append(items, item)
	}
	return &inbound.ListAccountsResponse{Accounts: items}, nil
}
