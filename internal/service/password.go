package service

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

const (
	minPasswordLength = 8
	maxPasswordBytes  = 72
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func normalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// validateEmail expects an already normalized address.
func validateEmail(email string) error {
	if utf8.RuneCountInString(email) > domain.MaxEmailLength {
		return apperrors.NewValidationError(fmt.Sprintf("Email must be %d characters or fewer", domain.MaxEmailLength), nil)
	}
	if !emailPattern.MatchString(email) {
		return apperrors.NewValidationError("Invalid email format", nil)
	}
	return nil
}

// validatePassword reports the first unmet rule. Length counts UTF-16 code
// units and the character classes are ASCII. bcrypt reads at most 72 bytes,
// so longer passwords are rejected rather than truncated.
func validatePassword(password string) error {
	if utf16Length(password) < minPasswordLength {
		return apperrors.NewValidationError(fmt.Sprintf("Password must be at least %d characters", minPasswordLength), nil)
	}
	rules := []struct {
		lo, hi byte
		msg    string
	}{
		{'A', 'Z', "Password must contain at least one uppercase letter"},
		{'a', 'z', "Password must contain at least one lowercase letter"},
		{'0', '9', "Password must contain at least one digit"},
	}
	for _, rule := range rules {
		if !containsASCIIRange(password, rule.lo, rule.hi) {
			return apperrors.NewValidationError(rule.msg, nil)
		}
	}
	if len(password) > maxPasswordBytes {
		return apperrors.NewValidationError(fmt.Sprintf("Password must be %d bytes or fewer", maxPasswordBytes), nil)
	}
	return nil
}

func utf16Length(s string) int {
	return len(utf16.Encode([]rune(s)))
}

func containsASCIIRange(s string, lo, hi byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= lo && s[i] <= hi {
			return true
		}
	}
	return false
}

func validateName(value, label string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if utf8.RuneCountInString(trimmed) > domain.MaxNameLength {
		return "", apperrors.NewValidationError(fmt.Sprintf("%s must be %d characters or fewer", label, domain.MaxNameLength), nil)
	}
	return trimmed, nil
}
