package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/healthwatch/healthwatch/domain"
)

func TestCredentialBroker(t *testing.T) {
	ctx := context.Background()

	t.Run("MissingRoleName", func(t *testing.T) {
		service := &fakeCredentialService{}
		broker := NewCredentialBroker(service)

		_, err := broker.Acquire(ctx, "111111111111", "")
		if err == nil {
			t.Fatal("Acquire should fail without a role name")
		}
		if !domain.IsConfigurationError(err) {
			t.Errorf("expected a configuration error, got %v", err)
		}
		if service.calls != 0 {
			t.Errorf("credential service should not be called, got %d calls", service.calls)
		}
	})

	t.Run("DenialWrapped", func(t *testing.T) {
		service := &fakeCredentialService{
			assumeRoleFn: func(ctx context.Context, accountID, roleName string) (*domain.DelegatedCredentials, error) {
				return nil, errors.New("access denied")
			},
		}
		broker := NewCredentialBroker(service)

		_, err := broker.Acquire(ctx, "111111111111", "HealthRole")
		if err == nil {
			t.Fatal("Acquire should propagate the denial")
		}
		if !domain.IsAuthorizationError(err) {
			t.Errorf("expected an authorization error, got %v", err)
		}
	})

	t.Run("AlreadyClassifiedErrorNotRewrapped", func(t *testing.T) {
		denial := domain.ErrAssumeRoleDenied("111111111111", "HealthRole", errors.New("denied"))
		service := &fakeCredentialService{
			assumeRoleFn: func(ctx context.Context, accountID, roleName string) (*domain.DelegatedCredentials, error) {
				return nil, denial
			},
		}
		broker := NewCredentialBroker(service)

		_, err := broker.Acquire(ctx, "111111111111", "HealthRole")
		if !errors.Is(err, denial) {
			t.Errorf("expected the original error back, got %v", err)
		}
	})

	t.Run("Success", func(t *testing.T) {
		service := &fakeCredentialService{}
		broker := NewCredentialBroker(service)

		creds, err := broker.Acquire(ctx, "111111111111", "HealthRole")
		if err != nil {
			t.Fatalf("Acquire should succeed: %v", err)
		}
		if creds.AccessKeyID != "AKIA111111111111" {
			t.Errorf("unexpected access key: %s", creds.AccessKeyID)
		}
	})
}
