package credentials

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/healthwatch/healthwatch/domain"
	"github.com/healthwatch/healthwatch/infrastructure/service/logger"
)

// SessionName is fixed so assumed-role sessions are attributable in the
// target account's audit trail.
const SessionName = "CrossAccountHealthEvents"

// Doer abstracts the HTTP client so tests can substitute a fake.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// STSClient obtains delegated credentials from an STS-compatible token
// service over HTTP.
type STSClient struct {
	baseURL    string
	httpClient Doer
	logger     logger.Logger
}

func NewSTSClient(baseURL string, timeout time.Duration, log logger.Logger) *STSClient {
	return &STSClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     log,
	}
}

// NewSTSClientWithDoer is used by tests and by the caching decorator.
func NewSTSClientWithDoer(baseURL string, doer Doer, log logger.Logger) *STSClient {
	return &STSClient{baseURL: baseURL, httpClient: doer, logger: log}
}

type assumeRoleRequest struct {
	RoleArn         string `json:"role_arn"`
	RoleSessionName string `json:"role_session_name"`
}

type assumeRoleResponse struct {
	AccessKeyID     string    `json:"access_key_id"`
	SecretAccessKey string    `json:"secret_access_key"`
	SessionToken    string    `json:"session_token"`
	Expiration      time.Time `json:"expiration"`
}

// RoleArn builds the trust-target identifier for an account and role.
func RoleArn(accountID, roleName string) string {
	return fmt.Sprintf("arn:aws:iam::%s:role/%s", accountID, roleName)
}

// AssumeRole requests a short-lived session for the account's delegated
// role. A 403 from the token service means the role does not trust the
// caller or does not exist; that is an authorization failure scoped to
// the one account.
func (c *STSClient) AssumeRole(ctx context.Context, accountID, roleName string) (*domain.DelegatedCredentials, error) {
	payload, err := json.Marshal(assumeRoleRequest{
		RoleArn:         RoleArn(accountID, roleName),
		RoleSessionName: SessionName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode assume role request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/assume-role", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create assume role request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("credential service unavailable: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusForbidden, http.StatusNotFound:
		return nil, domain.ErrAssumeRoleDenied(accountID, roleName,
			fmt.Errorf("credential service returned %d", resp.StatusCode))
	default:
		return nil, fmt.Errorf("credential service returned %d", resp.StatusCode)
	}

	var result assumeRoleResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode assume role response: %w", err)
	}

	c.logger.Debug(ctx, "Assumed delegated role", map[string]interface{}{
		"account_id": accountID,
		"role_name":  roleName,
		"expiration": result.Expiration.Format(time.RFC3339),
	})

	return &domain.DelegatedCredentials{
		AccessKeyID:     result.AccessKeyID,
		SecretAccessKey: result.SecretAccessKey,
		SessionToken:    result.SessionToken,
		Expiration:      result.Expiration,
	}, nil
}
