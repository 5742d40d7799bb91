package validator

import (
	"regexp"
	"strings"
	"time"
)

var (
	accountIDRegex = regexp.MustCompile(`^\d{12}$`)
	roleNameRegex  = regexp.MustCompile(`^[\w+=,.@-]{1,64}$`)
	eventArnRegex  = regexp.MustCompile(`^arn:aws:health:[a-z0-9-]*:[0-9]*:event/.+$`)
)

// ValidateAccountID reports whether the value is a 12-digit account ID.
func ValidateAccountID(accountID string) bool {
	return accountIDRegex.MatchString(accountID)
}

// ValidateRoleName reports whether the value is a usable IAM role name.
func ValidateRoleName(roleName string) bool {
	return roleNameRegex.MatchString(roleName)
}

// ValidateEventArn reports whether the value looks like a health event ARN.
func ValidateEventArn(arn string) bool {
	return eventArnRegex.MatchString(arn)
}

func ValidateRequired(value string) bool {
	return strings.TrimSpace(value) != ""
}

// ValidateRFC3339 reports whether the value parses as an RFC 3339 timestamp.
// Empty values are accepted; time filters are optional.
func ValidateRFC3339(value string) bool {
	if value == "" {
		return true
	}
	_, err := time.Parse(time.RFC3339, value)
	return err == nil
}
