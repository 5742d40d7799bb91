package apikey

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Service verifies service-to-service API keys against a bcrypt hash kept
// in configuration. The plaintext key never touches the config or logs.
type Service struct {
	hash    string
	enabled bool
}

func NewService(hash string) *Service {
	return &Service{hash: hash, enabled: hash != ""}
}

// Enabled reports whether an API key hash is configured at all.
func (s *Service) Enabled() bool {
	return s.enabled
}

// Verify returns true when the presented key matches the configured hash.
func (s *Service) Verify(key string) (bool, error) {
	if !s.enabled {
		return false, fmt.Errorf("no API key configured")
	}
	if key == "" {
		return false, fmt.Errorf("API key cannot be empty")
	}

	err := bcrypt.CompareHashAndPassword([]byte(s.hash), []byte(key))
	if err != nil {
		if err == bcrypt.ErrMismatchedHashAndPassword {
			return false, nil
		}
		return false, fmt.Errorf("failed to compare API key: %w", err)
	}
	return true, nil
}

// Hash generates a bcrypt hash for a new key. Used by provisioning
// tooling, not by the request path.
func Hash(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("API key cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash API key: %w", err)
	}
	return string(hashed), nil
}
