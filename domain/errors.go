package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code
type ErrorCode string

// Error codes grouped by failure class. The class decides how far a
// failure propagates: authorization, source-API, storage, and
// configuration failures are all contained to the account (or batch)
// that raised them and never abort the whole run.
const (
	// Authorization errors (1xxx): the delegated role refused us.
	ErrCodeAssumeRoleDenied  ErrorCode = "AUTHZ_1001"
	ErrCodeRoleNotFound      ErrorCode = "AUTHZ_1002"
	ErrCodeCredentialExpired ErrorCode = "AUTHZ_1003"

	// Source API errors (2xxx): transient upstream failure during
	// discovery, detail or impact fetch.
	ErrCodeDiscoveryFailed    ErrorCode = "SOURCE_2001"
	ErrCodeDetailBatchFailed  ErrorCode = "SOURCE_2002"
	ErrCodeImpactFetchFailed  ErrorCode = "SOURCE_2003"
	ErrCodeSourceUnavailable  ErrorCode = "SOURCE_2004"

	// Storage errors (3xxx): a write failed, the watermark must not move.
	ErrCodeUpsertFailed    ErrorCode = "STORE_3001"
	ErrCodeWatermarkFailed ErrorCode = "STORE_3002"
	ErrCodeRetentionFailed ErrorCode = "STORE_3003"
	ErrCodeQueryFailed     ErrorCode = "STORE_3004"

	// Configuration errors (4xxx): malformed account registration.
	ErrCodeMissingRoleName  ErrorCode = "CONFIG_4001"
	ErrCodeInvalidAccountID ErrorCode = "CONFIG_4002"

	// Validation errors (5xxx): bad inbound requests.
	ErrCodeInvalidRequest ErrorCode = "VALID_5001"
	ErrCodeInvalidWindow  ErrorCode = "VALID_5002"

	// Server errors (6xxx)
	ErrCodeInternalError ErrorCode = "SERVER_6001"
)

// AppError represents a structured application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message string, details string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: details,
		Cause:   cause,
	}
}

// Common error constructors

func ErrAssumeRoleDenied(accountID, roleName string, cause error) *AppError {
	return NewAppError(ErrCodeAssumeRoleDenied, "Assume role denied",
		fmt.Sprintf("Account: %s, Role: %s", accountID, roleName), cause)
}

func ErrDiscoveryFailed(accountID string, cause error) *AppError {
	return NewAppError(ErrCodeDiscoveryFailed, "Event discovery failed",
		fmt.Sprintf("Account: %s", accountID), cause)
}

func ErrDetailBatchFailed(batchSize int, cause error) *AppError {
	return NewAppError(ErrCodeDetailBatchFailed, "Event detail batch failed",
		fmt.Sprintf("Batch size: %d", batchSize), cause)
}

func ErrImpactFetchFailed(eventArn string, cause error) *AppError {
	return NewAppError(ErrCodeImpactFetchFailed, "Impact fetch failed",
		fmt.Sprintf("Event: %s", eventArn), cause)
}

func ErrUpsertFailed(kind string, cause error) *AppError {
	return NewAppError(ErrCodeUpsertFailed, "Bulk upsert failed",
		fmt.Sprintf("Record kind: %s", kind), cause)
}

func ErrWatermarkFailed(accountID string, cause error) *AppError {
	return NewAppError(ErrCodeWatermarkFailed, "Watermark advance failed",
		fmt.Sprintf("Account: %s", accountID), cause)
}

func ErrRetentionFailed(cause error) *AppError {
	return NewAppError(ErrCodeRetentionFailed, "Retention policy enablement failed", "", cause)
}

func ErrQueryFailed(operation string, cause error) *AppError {
	return NewAppError(ErrCodeQueryFailed, "Store query failed",
		fmt.Sprintf("Operation: %s", operation), cause)
}

func ErrMissingRoleName(accountID string) *AppError {
	return NewAppError(ErrCodeMissingRoleName, "Account registration has no role name",
		fmt.Sprintf("Account: %s", accountID), nil)
}

func ErrInvalidAccountID(accountID string) *AppError {
	return NewAppError(ErrCodeInvalidAccountID, "Account ID must be a 12-digit numeric string",
		fmt.Sprintf("Account: %s", accountID), nil)
}

// Failure-class predicates used by the orchestrator to decide scope of
// containment and by handlers to pick a status code.

func errClass(err error, prefix string) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return len(appErr.Code) >= len(prefix) && string(appErr.Code[:len(prefix)]) == prefix
}

func IsAuthorizationError(err error) bool { return errClass(err, "AUTHZ_") }

func IsSourceAPIError(err error) bool { return errClass(err, "SOURCE_") }

func IsStorageError(err error) bool { return errClass(err, "STORE_") }

func IsConfigurationError(err error) bool { return errClass(err, "CONFIG_") }
