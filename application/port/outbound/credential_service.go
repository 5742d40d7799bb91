package outbound

import (
	"context"

	"github.com/healthwatch/healthwatch/domain"
)

// CredentialService mints short-lived delegated credentials by assuming a
// role in a registered account. A denial surfaces as an AUTHZ_* AppError
// and aborts only that account's pipeline.
type CredentialService interface {
	AssumeRole(ctx context.Context, accountID, roleName string) (*domain.DelegatedCredentials, error)
}
