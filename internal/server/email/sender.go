// Package email sends the transactional account mails: verification links,
// password reset links and change confirmations.
package email

import (
	"context"
)

// Sender is the outbound mail port used by the auth service. Tokens are
// passed raw; the sender embeds them into frontend links.
type Sender interface {
	SendVerificationEmail(ctx context.Context, to, username, token string) error
	SendPasswordResetEmail(ctx context.Context, to, username, token string) error
	SendPasswordChangeConfirmation(ctx context.Context, to, username string) error
}
