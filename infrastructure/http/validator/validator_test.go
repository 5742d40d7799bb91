package validator

import "testing"

func TestValidateAccountID(t *testing.T) {
	cases := []struct {
		accountID string
		valid     bool
	}{
		{"111111111111", true},
		{"123456789012", true},
		{"12345", false},
		{"1234567890123", false},
		{"12345678901a", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := ValidateAccountID(tc.accountID); got != tc.valid {
			t.Errorf("ValidateAccountID(%q) = %v, want %v", tc.accountID, got, tc.valid)
		}
	}
}

func TestValidateRoleName(t *testing.T) {
	if !ValidateRoleName("HealthRole") {
		t.Error("a plain role name should validate")
	}
	if !ValidateRoleName("my-role_2.admin@corp") {
		t.Error("IAM role name characters should validate")
	}
	if ValidateRoleName("") {
		t.Error("an empty role name must not validate")
	}
	if ValidateRoleName("role with spaces") {
		t.Error("spaces are not allowed in role names")
	}
}

func TestValidateEventArn(t *testing.T) {
	if !ValidateEventArn("arn:aws:health:us-east-1::event/EC2/AWS_EC2_OPERATIONAL_ISSUE/abc-123") {
		t.Error("a health event ARN should validate")
	}
	if ValidateEventArn("arn:aws:iam::111111111111:role/HealthRole") {
		t.Error("a non-health ARN must not validate")
	}
	if ValidateEventArn("") {
		t.Error("an empty ARN must not validate")
	}
}

func TestValidateRFC3339(t *testing.T) {
	if !ValidateRFC3339("") {
		t.Error("time filters are optional, empty should pass")
	}
	if !ValidateRFC3339("2024-03-01T12:00:00Z") {
		t.Error("a valid timestamp should pass")
	}
	if ValidateRFC3339("yesterday") {
		t.Error("a non-timestamp must not pass")
	}
}

func TestValidateRequired(t *testing.T) {
	if ValidateRequired("   ") {
		t.Error("whitespace is not a value")
	}
	if !ValidateRequired("x") {
		t.Error("a non-empty value should pass")
	}
}
