package services

import (
	"context"
	"time"

	"github.com/chillhabit/chillhabit/internal/logging"
	"github.com/chillhabit/chillhabit/internal/server/models"
	"github.com/chillhabit/chillhabit/internal/server/repositories/users"
)

// Lockout parameters. Five wrong passwords lock the account for two hours;
// the lock expires lazily, nothing unlocks accounts in the background.
const (
	FailedLoginLimit = 5
	LockoutDuration  = 2 * time.Hour
)

// LockoutTracker maintains the per-account failed-login state. The
// increment-and-maybe-lock step is a single statement in the repository, so
// concurrent failures cannot both slip under the threshold.
type LockoutTracker struct {
	users  users.Repository
	logger logging.Logger
}

func NewLockoutTracker(users users.Repository, logger logging.Logger) *LockoutTracker {
	return &LockoutTracker{users: users, logger: logger}
}

// RegisterFailure records one failed password attempt and reports whether
// the account is locked afterwards. A previously armed lock that has
// already expired is cleared first, so the counter restarts instead of
// relocking on the first stale attempt.
func (t *LockoutTracker) RegisterFailure(ctx context.Context, user *models.User, now time.Time) (bool, error) {
	if user.LockedUntil != nil && !user.LockedUntil.After(now) {
		if err := t.users.ClearLoginFailures(ctx, user.ID); err != nil {
			return false, err
		}
	}

	count, lockedUntil, err := t.users.RecordLoginFailure(ctx, user.ID, FailedLoginLimit, now.Add(LockoutDuration))
	if err != nil {
		return false, err
	}

	locked := lockedUntil != nil && lockedUntil.After(now)
	if locked {
		t.logger.Warn(ctx, "account locked after repeated login failures",
			"user_id", user.ID, "failed_attempts", count, "locked_until", lockedUntil)
	}
	return locked, nil
}

// ClearOnSuccess wipes the failure state after a successful login. A clean
// account skips the write.
func (t *LockoutTracker) ClearOnSuccess(ctx context.Context, user *models.User) error {
	if user.FailedLoginCount == 0 && user.LockedUntil == nil {
		return nil
	}
	return t.users.ClearLoginFailures(ctx, user.ID)
}
