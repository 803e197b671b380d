package auth

import (
	"regexp"
	"strings"

	"github.com/mesbahtanvir/docuchan/backend/internal/apperr"
)

const (
	maxEmailLength    = 254
	minPasswordLength = 8
	maxPasswordLength = 128
	specialChars      = `!@#$%^&*(),.?":{}|<>`
)

// emailPattern is an RFC-5322-inspired pattern, intentionally looser than
// the full grammar: a local part, an "@", and a domain with at least one
// dot, matching what spec.md §4.3 asks for.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// NormalizeEmail lowercases and trims an email for storage/comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks email against the policy in spec.md §4.3,
// returning apperr.InvalidEmail on any violation.
func ValidateEmail(email string) error {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return apperr.New(apperr.InvalidEmail, "email is required")
	}
	if len(normalized) > maxEmailLength {
		return apperr.New(apperr.InvalidEmail, "email exceeds maximum length of 254")
	}
	if !strings.Contains(normalized, "@") {
		return apperr.New(apperr.InvalidEmail, "email must contain @")
	}
	at := strings.LastIndex(normalized, "@")
	if !strings.Contains(normalized[at+1:], ".") {
		return apperr.New(apperr.InvalidEmail, "email domain must contain a dot")
	}
	if !emailPattern.MatchString(normalized) {
		return apperr.New(apperr.InvalidEmail, "email does not match the required format")
	}
	return nil
}

// ValidatePassword checks password against the policy in spec.md §4.3,
// returning apperr.InvalidPassword with every violated rule joined into
// one message when it fails any of them.
func ValidatePassword(password string) error {
	var reasons []string

	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		reasons = append(reasons, "must be between 8 and 128 characters")
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		case strings.ContainsRune(specialChars, r):
			hasSpecial = true
		}
	}
	if !hasUpper {
		reasons = append(reasons, "must contain an uppercase letter")
	}
	if !hasLower {
		reasons = append(reasons, "must contain a lowercase letter")
	}
	if !hasDigit {
		reasons = append(reasons, "must contain a digit")
	}
	if !hasSpecial {
		reasons = append(reasons, "must contain a special character")
	}
	if hasConsecutiveRepeat(password, 3) {
		reasons = append(reasons, "must not repeat a character 3 or more times consecutively")
	}

	if len(reasons) > 0 {
		return apperr.New(apperr.InvalidPassword, strings.Join(reasons, "; "))
	}
	return nil
}

// hasConsecutiveRepeat reports whether any rune repeats n or more times
// consecutively.
func hasConsecutiveRepeat(s string, n int) bool {
	runes := []rune(s)
	run := 1
	for i := 1; i < len(runes); i++ {
		if runes[i] == runes[i-1] {
			run++
			if run >= n {
				return true
			}
		} else {
			run = 1
		}
	}
	return false
}
