package sync

import (
	"context"

	"github.com/healthwatch/healthwatch/application/port/outbound"
	"github.com/healthwatch/healthwatch/domain"
)

// CredentialBroker exchanges an account registration for short-lived
// delegated credentials. A denial is an authorization failure scoped to
// that account, never a run-level error.
type CredentialBroker struct {
	credentials outbound.CredentialService
}

func NewCredentialBroker(credentials outbound.CredentialService) *CredentialBroker {
	return &CredentialBroker{credentials: credentials}
}

func (b *CredentialBroker) Acquire(ctx context.Context, accountID, roleName string) (*domain.DelegatedCredentials, error) {
	if roleName == "" {
		return nil, domain.ErrMissingRoleName(accountID)
	}

	creds, err := b.credentials.AssumeRole(ctx, accountID, roleName)
	if err != nil {
		if domain.IsAuthorizationError(err) {
			return nil, err
		}
		return nil, domain.ErrAssumeRoleDenied(accountID, roleName, err)
	}
	return creds, nil
}
