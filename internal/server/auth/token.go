package auth

import (
	"time"

	"github.com/chillhabit/chillhabit/internal/common"
)

// Action token lifetimes. Verification links ride along in a welcome email
// and get a generous window; reset links are short-lived.
const (
	VerificationTokenTTL = 24 * time.Hour
	ResetTokenTTL        = time.Hour
)

// actionTokenBytes is the entropy of a single-use token; the hex form is
// twice this many characters.
const actionTokenBytes = 32

// NewActionToken mints an unguessable single-use token for email
// verification and password reset links.
func NewActionToken() (string, error) {
	return common.MakeRandHexString(actionTokenBytes)
}
