package auth

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/chillhabit/chillhabit/internal/common"
)

const minPasswordLength = 8

const passwordSymbols = `!@#$%^&*(),.?":{}|<>`

// commonPasswords never pass validation. The match is exact (case
// insensitive), a strong password may still contain one as a substring.
var commonPasswords = []string{
	"123456", "password", "qwerty", "abc123", "letmein", "welcome", "admin", "guest",
}

// ValidatePassword enforces the strength policy shared by registration and
// password reset. Username and email give personal context: a password must
// not contain the username or the local part of the email address.
func ValidatePassword(password, username, email string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters long", common.ErrorValidation, minPasswordLength)
	}

	lowered := strings.ToLower(password)
	for _, weak := range commonPasswords {
		if lowered == weak {
			return fmt.Errorf("%w: password is too common", common.ErrorValidation)
		}
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(passwordSymbols, r):
			hasSymbol = true
		}
	}
	switch {
	case !hasUpper:
		return fmt.Errorf("%w: password must contain an uppercase letter", common.ErrorValidation)
	case !hasLower:
		return fmt.Errorf("%w: password must contain a lowercase letter", common.ErrorValidation)
	case !hasDigit:
		return fmt.Errorf("%w: password must contain a digit", common.ErrorValidation)
	case !hasSymbol:
		return fmt.Errorf("%w: password must contain a special character", common.ErrorValidation)
	}

	if username != "" && strings.Contains(lowered, strings.ToLower(username)) {
		return fmt.Errorf("%w: password must not contain your username", common.ErrorValidation)
	}
	if local, _, ok := strings.Cut(email, "@"); ok && local != "" && strings.Contains(lowered, strings.ToLower(local)) {
		return fmt.Errorf("%w: password must not contain your email address", common.ErrorValidation)
	}

	return nil
}
