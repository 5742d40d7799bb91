package domain

import (
	"time"
)

// DelegatedCredentials are short-lived keys minted by assuming a role in a
// registered account. They are scoped to a single account's pipeline and
// never shared across accounts.
type DelegatedCredentials struct {
	AccessKeyID     string    `json:"access_key_id"`
	SecretAccessKey string    `json:"secret_access_key"`
	SessionToken    string    `json:"session_token"`
	Expiration      time.Time `json:"expiration"`
}

// Expired reports whether the credentials are unusable at the given instant,
// with a small safety margin so a call issued just before expiry does not
// fail mid-flight.
func (c *DelegatedCredentials) Expired(now time.Time, margin time.Duration) bool {
	return !now.Add(margin).Before(c.Expiration)
}
