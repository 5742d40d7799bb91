package accounts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/healthwatch/healthwatch/application/port/inbound"
	"github.com/healthwatch/healthwatch/application/port/outbound"
	"github.com/healthwatch/healthwatch/domain"
)

type mockDirectory struct {
	accounts map[string]*domain.RegisteredAccount
	listErr  error
}

func newMockDirectory() *mockDirectory {
	return &mockDirectory{accounts: make(map[string]*domain.RegisteredAccount)}
}

func (m *mockDirectory) Register(ctx context.Context, account *domain.RegisteredAccount) error {
	if _, exists := m.accounts[account.AccountID]; exists {
		return outbound.ErrAccountAlreadyExists
	}
	m.accounts[account.AccountID] = account
	return nil
}

func (m *mockDirectory) UpdateRoleName(ctx context.Context, accountID, roleName string) error {
	account, exists := m.accounts[accountID]
	if !exists {
		return outbound.ErrAccountNotFound
	}
	account.RoleName = roleName
	return nil
}

func (m *mockDirectory) Deregister(ctx context.Context, accountID string) error {
	if _, exists := m.accounts[accountID]; !exists {
		return outbound.ErrAccountNotFound
	}
	delete(m.accounts, accountID)
	return nil
}

func (m *mockDirectory) FindByID(ctx context.Context, accountID string) (*domain.RegisteredAccount, error) {
	if account, exists := m.accounts[accountID]; exists {
		return account, nil
	}
	return nil, outbound.ErrAccountNotFound
}

func (m *mockDirectory) ListAll(ctx context.Context) ([]domain.RegisteredAccount, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var accounts []domain.RegisteredAccount
	for _, a := range m.accounts {
		accounts = append(accounts, *a)
	}
	return accounts, nil
}

func (m *mockDirectory) AdvanceWatermark(ctx context.Context, accountID string, syncedTo time.Time) error {
	account, exists := m.accounts[accountID]
	if !exists {
		return outbound.ErrAccountNotFound
	}
	if account.LastSyncedTime == nil || account.LastSyncedTime.Before(syncedTo) {
		account.LastSyncedTime = &syncedTo
	}
	return nil
}

func TestAccountUseCase(t *testing.T) {
	ctx := context.Background()

	t.Run("RegisterAccounts", func(t *testing.T) {
		directory := newMockDirectory()
		useCase := NewAccountUseCase(directory)

		res, err := useCase.RegisterAccounts(ctx, inbound.RegisterAccountsRequest{
			Accounts: []inbound.AccountRegistration{
				{AccountID: "111111111111", RoleName: "HealthRole"},
				{AccountID: "222222222222", RoleName: "OtherRole"},
			},
		})
		if err != nil {
			t.Fatalf("RegisterAccounts should succeed: %v", err)
		}
		if len(res.Registered) != 2 {
			t.Errorf("expected 2 registered, got %v", res.Registered)
		}
		if directory.accounts["111111111111"].RoleName != "HealthRole" {
			t.Error("role name should be stored as given")
		}
	})

	t.Run("RegisterRejectsBadAccountID", func(t *testing.T) {
		directory := newMockDirectory()
		useCase := NewAccountUseCase(directory)

		_, err := useCase.RegisterAccounts(ctx, inbound.RegisterAccountsRequest{
			Accounts: []inbound.AccountRegistration{
				{AccountID: "111111111111", RoleName: "HealthRole"},
				{AccountID: "12345", RoleName: "HealthRole"},
			},
		})
		if !errors.Is(err, ErrInvalidAccountID) {
			t.Fatalf("expected ErrInvalidAccountID, got %v", err)
		}
		if len(directory.accounts) != 0 {
			t.Error("a bad entry must leave the whole batch unregistered")
		}
	})

	t.Run("RegisterRejectsMissingRole", func(t *testing.T) {
		useCase := NewAccountUseCase(newMockDirectory())

		_, err := useCase.RegisterAccounts(ctx, inbound.RegisterAccountsRequest{
			Accounts: []inbound.AccountRegistration{{AccountID: "111111111111", RoleName: "  "}},
		})
		if !errors.Is(err, ErrMissingRoleName) {
			t.Fatalf("expected ErrMissingRoleName, got %v", err)
		}
	})

	t.Run("RegisterSkipsDuplicates", func(t *testing.T) {
		directory := newMockDirectory()
		useCase := NewAccountUseCase(directory)

		req := inbound.RegisterAccountsRequest{
			Accounts: []inbound.AccountRegistration{{AccountID: "111111111111", RoleName: "HealthRole"}},
		}
		if _, err := useCase.RegisterAccounts(ctx, req); err != nil {
			t.Fatalf("first registration should succeed: %v", err)
		}
		res, err := useCase.RegisterAccounts(ctx, req)
		if err != nil {
			t.Fatalf("re-registration should not error: %v", err)
		}
		if len(res.Registered) != 0 {
			t.Errorf("a duplicate should be skipped, got %v", res.Registered)
		}
	})

	t.Run("UpdateAccount", func(t *testing.T) {
		directory := newMockDirectory()
		directory.accounts["111111111111"] = domain.NewRegisteredAccount("111111111111", "OldRole")
		useCase := NewAccountUseCase(directory)

		_, err := useCase.UpdateAccount(ctx, "111111111111", inbound.UpdateAccountRequest{RoleName: "NewRole"})
		if err != nil {
			t.Fatalf("UpdateAccount should succeed: %v", err)
		}
		if directory.accounts["111111111111"].RoleName != "NewRole" {
			t.Error("role name should be updated")
		}

		_, err = useCase.UpdateAccount(ctx, "999999999999", inbound.UpdateAccountRequest{RoleName: "NewRole"})
		if !errors.Is(err, outbound.ErrAccountNotFound) {
			t.Errorf("expected ErrAccountNotFound, got %v", err)
		}
	})

	t.Run("DeregisterSkipsUnknown", func(t *testing.T) {
		directory := newMockDirectory()
		directory.accounts["111111111111"] = domain.NewRegisteredAccount("111111111111", "HealthRole")
		useCase := NewAccountUseCase(directory)

		res, err := useCase.DeregisterAccounts(ctx, inbound.DeregisterAccountsRequest{
			AccountIDs: []string{"111111111111", "999999999999"},
		})
		if err != nil {
			t.Fatalf("DeregisterAccounts should succeed: %v", err)
		}
		if len(res.Deregistered) != 1 || res.Deregistered[0] != "111111111111" {
			t.Errorf("only the known account should be deregistered, got %v", res.Deregistered)
		}
	})

	t.Run("ListAccounts", func(t *testing.T) {
		synced := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		directory := newMockDirectory()
		account := domain.NewRegisteredAccount("111111111111", "HealthRole")
		account.LastSyncedTime = &synced
		directory.accounts["111111111111"] = account
		useCase := NewAccountUseCase(directory)

		res, err := useCase.ListAccounts(ctx)
		if err != nil {
			t.Fatalf("ListAccounts should succeed: %v", err)
		}
		if len(res.Accounts) != 1 {
			t.Fatalf("expected 1 account, got %d", len(res.Accounts))
		}
		if res.Accounts[0].LastSyncedTime != "2024-03-01T12:00:00Z" {
			t.Errorf("last synced time should be RFC 3339, got %q", res.Accounts[0].LastSyncedTime)
		}
	})
}
