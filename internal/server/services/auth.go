// Package services contains server-side business logic. This file
// implements AuthService, which handles registration, login (password and
// Google), email verification, password reset and password change.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chillhabit/chillhabit/internal/common"
	"github.com/chillhabit/chillhabit/internal/logging"
	"github.com/chillhabit/chillhabit/internal/server/auth"
	"github.com/chillhabit/chillhabit/internal/server/config"
	"github.com/chillhabit/chillhabit/internal/server/email"
	"github.com/chillhabit/chillhabit/internal/server/models"
	"github.com/chillhabit/chillhabit/internal/server/oauth"
	"github.com/chillhabit/chillhabit/internal/server/repositories/repomanager"
)

// AuthResult bundles a session token with the authenticated user.
type AuthResult struct {
	Token string
	User  *models.User
}

// RegisterResult adds the verification-mail outcome to the session; a
// failed send is reported, not an error.
type RegisterResult struct {
	Token                 string
	User                  *models.User
	EmailVerificationSent bool
}

// AuthService provides the account operations:
//   - Register / Login / OAuthLogin: establish sessions
//   - VerifyEmail / ResendVerification: email verification lifecycle
//   - ForgotPassword / ResetPassword / ChangePassword: credential recovery
type AuthService struct {
	db                      *sql.DB
	repomanager             repomanager.RepositoryManager
	mailer                  email.Sender
	verifier                oauth.Verifier
	lockouts                *LockoutTracker
	linker                  *IdentityLinker
	logger                  logging.Logger
	jwtSecret               []byte
	sessionValidityDuration time.Duration
	now                     func() time.Time
}

// NewAuthService constructs an AuthService using repositories and server config.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config,
	mailer email.Sender, verifier oauth.Verifier, logger logging.Logger) *AuthService {
	return &AuthService{
		db:                      db,
		repomanager:             m,
		mailer:                  mailer,
		verifier:                verifier,
		lockouts:                NewLockoutTracker(m.Users(db), logger),
		linker:                  NewIdentityLinker(db, m, logger),
		logger:                  logger,
		jwtSecret:               []byte(cfg.SecretKey),
		sessionValidityDuration: cfg.SessionValidityDuration,
		now:                     time.Now,
	}
}

// Register creates an unverified account, emails the verification link and
// issues a session. The mail send happens after the account exists; a
// transport failure downgrades EmailVerificationSent instead of failing
// the registration.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*RegisterResult, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", common.ErrorValidation)
	}
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email address", common.ErrorValidation)
	}
	if err := auth.ValidatePassword(password, username, email); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, common.ErrorInternal
	}

	token, err := auth.NewActionToken()
	if err != nil {
		return nil, common.ErrorInternal
	}
	expires := s.now().Add(auth.VerificationTokenTTL)

	repo := s.repomanager.Users(s.db)
	user, err := repo.Create(ctx, &models.User{
		ID:                       uuid.NewString(),
		Username:                 username,
		Email:                    email,
		PasswordHash:             &hash,
		EmailVerificationToken:   &token,
		EmailVerificationExpires: &expires,
	})
	if err != nil {
		return nil, err
	}

	sent := true
	if err := s.mailer.SendVerificationEmail(ctx, user.Email, user.Username, token); err != nil {
		s.logger.Error(ctx, "verification email not sent", "user_id", user.ID, "error", err)
		sent = false
	}

	sessionToken, err := s.issueSession(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "account registered", "user_id", user.ID)
	return &RegisterResult{Token: sessionToken, User: user, EmailVerificationSent: sent}, nil
}

// Login verifies the password and issues a session. The lockout check runs
// before the password compare, so a locked account never burns bcrypt time
// and never reveals whether the password was right.
func (s *AuthService) Login(ctx context.Context, emailAddr, password string) (*AuthResult, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, normalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorInvalidCredentials
		}
		return nil, common.ErrorInternal
	}

	now := s.now()
	if user.IsLocked(now) {
		return nil, common.ErrorAccountLocked
	}

	if user.PasswordHash == nil || !auth.VerifyPassword(*user.PasswordHash, password) {
		if user.PasswordHash == nil {
			// Google-only account; indistinguishable from a wrong password.
			return nil, common.ErrorInvalidCredentials
		}
		locked, err := s.lockouts.RegisterFailure(ctx, user, now)
		if err != nil {
			return nil, common.ErrorInternal
		}
		if locked {
			return nil, common.ErrorAccountLocked
		}
		return nil, common.ErrorInvalidCredentials
	}

	if err := s.lockouts.ClearOnSuccess(ctx, user); err != nil {
		return nil, common.ErrorInternal
	}

	token, err := s.issueSession(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

// OAuthLogin verifies the Google credential, resolves it to a local
// account and issues a session.
func (s *AuthService) OAuthLogin(ctx context.Context, credential string) (*AuthResult, error) {
	identity, err := s.verifier.Verify(ctx, credential)
	if err != nil {
		return nil, err
	}

	user, err := s.linker.LinkOrCreate(ctx, identity)
	if err != nil {
		return nil, err
	}

	token, err := s.issueSession(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

// VerifyEmail consumes a verification token. The repository consumes the
// token in one statement, so a token verifies at most one request even
// under concurrent submission.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("%w: token is required", common.ErrorValidation)
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.ConsumeVerificationToken(ctx, token, s.now())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorActionTokenInvalid
		}
		return common.ErrorInternal
	}

	s.logger.Info(ctx, "email verified", "user_id", user.ID)
	return nil
}

// ResendVerification issues a fresh verification token, invalidating the
// previous one. A failed send is logged and swallowed; the token rotation
// already happened and the user can ask again.
func (s *AuthService) ResendVerification(ctx context.Context, emailAddr string) error {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, normalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return common.ErrorInternal
	}
	if user.IsEmailVerified {
		return common.ErrorAlreadyVerified
	}

	token, err := auth.NewActionToken()
	if err != nil {
		return common.ErrorInternal
	}
	if err := repo.SetVerificationToken(ctx, user.ID, token, s.now().Add(auth.VerificationTokenTTL)); err != nil {
		return common.ErrorInternal
	}

	if err := s.mailer.SendVerificationEmail(ctx, user.Email, user.Username, token); err != nil {
		s.logger.Error(ctx, "verification email not sent", "user_id", user.ID, "error", err)
	}
	return nil
}

// ForgotPassword issues a reset token and emails the link. An unknown
// email returns success without doing anything, so the endpoint does not
// reveal which addresses have accounts. A mail transport failure is the
// one case that surfaces, the user would otherwise wait for a link that
// never comes.
func (s *AuthService) ForgotPassword(ctx context.Context, emailAddr string) error {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, normalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Info(ctx, "password reset requested for unknown email")
			return nil
		}
		return common.ErrorInternal
	}

	token, err := auth.NewActionToken()
	if err != nil {
		return common.ErrorInternal
	}
	if err := repo.SetResetToken(ctx, user.ID, token, s.now().Add(auth.ResetTokenTTL)); err != nil {
		return common.ErrorInternal
	}

	if err := s.mailer.SendPasswordResetEmail(ctx, user.Email, user.Username, token); err != nil {
		return err
	}

	s.logger.Info(ctx, "password reset email sent", "user_id", user.ID)
	return nil
}

// ResetPassword validates the new password against the account the token
// belongs to, then swaps the hash in the same statement that consumes the
// token. Losing the race to a concurrent reset reads as an invalid token.
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	if token == "" {
		return fmt.Errorf("%w: token is required", common.ErrorValidation)
	}

	repo := s.repomanager.Users(s.db)
	now := s.now()

	user, err := repo.GetByResetToken(ctx, token, now)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorActionTokenInvalid
		}
		return common.ErrorInternal
	}

	if err := auth.ValidatePassword(password, user.Username, user.Email); err != nil {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return common.ErrorInternal
	}

	if _, err := repo.ResetPasswordByToken(ctx, token, now, hash, now); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorActionTokenInvalid
		}
		return common.ErrorInternal
	}

	if err := s.mailer.SendPasswordChangeConfirmation(ctx, user.Email, user.Username); err != nil {
		s.logger.Error(ctx, "password change confirmation not sent", "user_id", user.ID, "error", err)
	}

	s.logger.Info(ctx, "password reset completed", "user_id", user.ID)
	return nil
}

// ChangePassword swaps the password for an authenticated user after
// re-checking the current one. An account without a password (Google
// sign-in only) skips the check and sets its first password.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorUnauthenticated
		}
		return common.ErrorInternal
	}

	// A Google-only account has no password yet; it sets its first one
	// here, so the current-password check only applies when a hash exists.
	if user.PasswordHash != nil && !auth.VerifyPassword(*user.PasswordHash, currentPassword) {
		return common.ErrorInvalidCredentials
	}

	if err := auth.ValidatePassword(newPassword, user.Username, user.Email); err != nil {
		return err
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return common.ErrorInternal
	}
	if err := repo.SetPassword(ctx, user.ID, hash, s.now()); err != nil {
		return common.ErrorInternal
	}

	if err := s.mailer.SendPasswordChangeConfirmation(ctx, user.Email, user.Username); err != nil {
		s.logger.Error(ctx, "password change confirmation not sent", "user_id", user.ID, "error", err)
	}

	s.logger.Info(ctx, "password changed", "user_id", user.ID)
	return nil
}

// CurrentUser returns the account behind a verified session.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthenticated
		}
		return nil, common.ErrorInternal
	}
	return user, nil
}

// normalizeEmail canonicalizes an address the way it is stored: trimmed
// and lowercased. Every email-keyed read and write goes through this, so
// case variants of one address always resolve to the same account.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) issueSession(user *models.User) (string, error) {
	token, err := auth.GenerateToken(user.ID, s.jwtSecret, s.sessionValidityDuration)
	if err != nil {
		return "", common.ErrorInternal
	}
	return token, nil
}
