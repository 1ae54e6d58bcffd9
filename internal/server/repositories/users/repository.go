package users

import (
	"context"
	"time"

	"github.com/chillhabit/chillhabit/internal/server/models"
)

// Repository is the credential store. Mutations that participate in the
// lockout or single-use-token state machines are single atomic statements;
// see the postgres implementation.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// GetByResetToken matches the stored reset token together with its
	// expiry; an expired token behaves exactly like an absent one.
	GetByResetToken(ctx context.Context, token string, now time.Time) (*models.User, error)

	SetVerificationToken(ctx context.Context, userID, token string, expiresAt time.Time) error

	// ConsumeVerificationToken marks the email verified and clears the token
	// pair in one statement, keyed by the unexpired token itself so that a
	// token is consumed at most once.
	ConsumeVerificationToken(ctx context.Context, token string, now time.Time) (*models.User, error)

	SetResetToken(ctx context.Context, userID, token string, expiresAt time.Time) error

	// ResetPasswordByToken installs the new password hash, clears the reset
	// token pair and the lockout counters, and stamps password_changed_at,
	// all keyed by the unexpired token in one statement.
	ResetPasswordByToken(ctx context.Context, token string, now time.Time, passwordHash string, changedAt time.Time) (*models.User, error)

	SetPassword(ctx context.Context, userID, passwordHash string, changedAt time.Time) error

	// RecordLoginFailure atomically increments the failure counter and, when
	// the post-increment count reaches threshold on an unlocked account,
	// sets locked_until to lockUntil. It returns the post-increment count
	// and the current locked_until value.
	RecordLoginFailure(ctx context.Context, userID string, threshold int, lockUntil time.Time) (int, *time.Time, error)

	ClearLoginFailures(ctx context.Context, userID string) error

	LinkGoogleID(ctx context.Context, userID, googleID string) error
	SetProfilePicture(ctx context.Context, userID, url string) error
}
