package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chillhabit/chillhabit/internal/common"
	"github.com/chillhabit/chillhabit/internal/dbx"
	"github.com/chillhabit/chillhabit/internal/logging"
	"github.com/chillhabit/chillhabit/internal/server/models"
	"github.com/chillhabit/chillhabit/internal/server/oauth"
	"github.com/chillhabit/chillhabit/internal/server/repositories/habits"
	"github.com/chillhabit/chillhabit/internal/server/repositories/users"
)

type nopLogger struct{}

func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}
func (l nopLogger) With(...any) logging.Logger          { return l }

// fakeUserRepo is an in-memory users.Repository that mirrors the atomic
// semantics of the postgres implementation, guarded by one mutex.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*models.User{}}
}

func (r *fakeUserRepo) Create(_ context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return nil, fmt.Errorf("%w: users_email_key", common.ErrorConflict)
		}
		if u.Username == user.Username {
			return nil, fmt.Errorf("%w: users_username_key", common.ErrorConflict)
		}
	}
	now := time.Now()
	user.PasswordChangedAt = now
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = user
	return user, nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeUserRepo) GetByResetToken(_ context.Context, token string, now time.Time) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.PasswordResetToken != nil && *u.PasswordResetToken == token &&
			u.PasswordResetExpires != nil && u.PasswordResetExpires.After(now) {
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeUserRepo) SetVerificationToken(_ context.Context, userID, token string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return common.ErrorNotFound
	}
	u.EmailVerificationToken = &token
	u.EmailVerificationExpires = &expiresAt
	return nil
}

func (r *fakeUserRepo) ConsumeVerificationToken(_ context.Context, token string, now time.Time) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.EmailVerificationToken != nil && *u.EmailVerificationToken == token &&
			u.EmailVerificationExpires != nil && u.EmailVerificationExpires.After(now) {
			u.IsEmailVerified = true
			u.EmailVerificationToken = nil
			u.EmailVerificationExpires = nil
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeUserRepo) SetResetToken(_ context.Context, userID, token string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return common.ErrorNotFound
	}
	u.PasswordResetToken = &token
	u.PasswordResetExpires = &expiresAt
	return nil
}

func (r *fakeUserRepo) ResetPasswordByToken(_ context.Context, token string, now time.Time, passwordHash string, changedAt time.Time) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.PasswordResetToken != nil && *u.PasswordResetToken == token &&
			u.PasswordResetExpires != nil && u.PasswordResetExpires.After(now) {
			u.PasswordHash = &passwordHash
			u.PasswordResetToken = nil
			u.PasswordResetExpires = nil
			u.FailedLoginCount = 0
			u.LockedUntil = nil
			u.PasswordChangedAt = changedAt
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeUserRepo) SetPassword(_ context.Context, userID, passwordHash string, changedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return common.ErrorNotFound
	}
	u.PasswordHash = &passwordHash
	u.PasswordChangedAt = changedAt
	return nil
}

func (r *fakeUserRepo) RecordLoginFailure(_ context.Context, userID string, threshold int, lockUntil time.Time) (int, *time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return 0, nil, common.ErrorNotFound
	}
	u.FailedLoginCount++
	if u.FailedLoginCount >= threshold && (u.LockedUntil == nil || !u.LockedUntil.After(time.Now())) {
		until := lockUntil
		u.LockedUntil = &until
	}
	return u.FailedLoginCount, u.LockedUntil, nil
}

func (r *fakeUserRepo) ClearLoginFailures(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return common.ErrorNotFound
	}
	u.FailedLoginCount = 0
	u.LockedUntil = nil
	return nil
}

func (r *fakeUserRepo) LinkGoogleID(_ context.Context, userID, googleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.GoogleID != nil && *u.GoogleID == googleID && u.ID != userID {
			return fmt.Errorf("%w: users_google_id_key", common.ErrorConflict)
		}
	}
	u, ok := r.users[userID]
	if !ok {
		return common.ErrorNotFound
	}
	u.GoogleID = &googleID
	u.IsEmailVerified = true
	return nil
}

func (r *fakeUserRepo) SetProfilePicture(_ context.Context, userID, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return common.ErrorNotFound
	}
	u.ProfilePicture = &url
	return nil
}

// sentMail records one outbound message.
type sentMail struct {
	kind     string
	to       string
	username string
	token    string
}

type fakeMailer struct {
	mu       sync.Mutex
	sent     []sentMail
	failNext error
}

func (m *fakeMailer) record(kind, to, username, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return err
	}
	m.sent = append(m.sent, sentMail{kind: kind, to: to, username: username, token: token})
	return nil
}

func (m *fakeMailer) SendVerificationEmail(_ context.Context, to, username, token string) error {
	return m.record("verification", to, username, token)
}

func (m *fakeMailer) SendPasswordResetEmail(_ context.Context, to, username, token string) error {
	return m.record("reset", to, username, token)
}

func (m *fakeMailer) SendPasswordChangeConfirmation(_ context.Context, to, username string) error {
	return m.record("changed", to, username, "")
}

func (m *fakeMailer) lastSent() (sentMail, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return sentMail{}, false
	}
	return m.sent[len(m.sent)-1], true
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type fakeVerifier struct {
	identity *oauth.Identity
	err      error
}

func (v *fakeVerifier) Verify(context.Context, string) (*oauth.Identity, error) {
	if v.err != nil {
		return nil, v.err
	}
	return v.identity, nil
}

// fakeRepoManager hands out the same fake repositories regardless of the
// transaction handle.
type fakeRepoManager struct {
	userRepo  users.Repository
	habitRepo habits.Repository
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository             { return m.userRepo }
func (m *fakeRepoManager) Habits(dbx.DBTX) habits.Repository           { return m.habitRepo }

var errTransport = errors.New("smtp unreachable")
