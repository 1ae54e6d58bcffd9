// Package users provides the PostgreSQL-backed credential store.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/chillhabit/chillhabit/internal/common"
	"github.com/chillhabit/chillhabit/internal/dbx"
	"github.com/chillhabit/chillhabit/internal/server/models"
)

const userColumns = `id, username, email, password_hash, google_id, profile_picture,
		is_email_verified, email_verification_token, email_verification_expires_at,
		password_reset_token, password_reset_expires_at,
		failed_login_count, locked_until, password_changed_at, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.GoogleID, &user.ProfilePicture,
		&user.IsEmailVerified, &user.EmailVerificationToken, &user.EmailVerificationExpires,
		&user.PasswordResetToken, &user.PasswordResetExpires,
		&user.FailedLoginCount, &user.LockedUntil, &user.PasswordChangedAt, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

// mapUniqueViolation translates a unique-constraint violation into
// common.ErrorConflict, keeping the constraint name for the caller.
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", common.ErrorConflict, pgErr.ConstraintName)
	}
	return fmt.Errorf("db error: %w", err)
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query := `
		INSERT INTO users (id, username, email, password_hash, google_id, profile_picture,
			is_email_verified, email_verification_token, email_verification_expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING password_changed_at, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Username, user.Email, user.PasswordHash, user.GoogleID, user.ProfilePicture,
		user.IsEmailVerified, user.EmailVerificationToken, user.EmailVerificationExpires,
	).Scan(&user.PasswordChangedAt, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		return nil, mapUniqueViolation(err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) GetByResetToken(ctx context.Context, token string, now time.Time) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		WHERE password_reset_token = $1 AND password_reset_expires_at > $2`
	return scanUser(r.db.QueryRowContext(ctx, query, token, now))
}

func (r *PostgresRepository) SetVerificationToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	query := `
		UPDATE users
		SET email_verification_token = $2, email_verification_expires_at = $3, updated_at = now()
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, userID, token, expiresAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ConsumeVerificationToken(ctx context.Context, token string, now time.Time) (*models.User, error) {
	query := `
		UPDATE users
		SET is_email_verified = true,
			email_verification_token = NULL,
			email_verification_expires_at = NULL,
			updated_at = now()
		WHERE email_verification_token = $1 AND email_verification_expires_at > $2
		RETURNING ` + userColumns
	return scanUser(r.db.QueryRowContext(ctx, query, token, now))
}

func (r *PostgresRepository) SetResetToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	query := `
		UPDATE users
		SET password_reset_token = $2, password_reset_expires_at = $3, updated_at = now()
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, userID, token, expiresAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ResetPasswordByToken(ctx context.Context, token string, now time.Time, passwordHash string, changedAt time.Time) (*models.User, error) {
	query := `
		UPDATE users
		SET password_hash = $3,
			password_changed_at = $4,
			password_reset_token = NULL,
			password_reset_expires_at = NULL,
			failed_login_count = 0,
			locked_until = NULL,
			updated_at = now()
		WHERE password_reset_token = $1 AND password_reset_expires_at > $2
		RETURNING ` + userColumns
	return scanUser(r.db.QueryRowContext(ctx, query, token, now, passwordHash, changedAt))
}

func (r *PostgresRepository) SetPassword(ctx context.Context, userID, passwordHash string, changedAt time.Time) error {
	query := `
		UPDATE users
		SET password_hash = $2, password_changed_at = $3, updated_at = now()
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, userID, passwordHash, changedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// RecordLoginFailure is a single increment-and-maybe-lock statement so that
// two concurrent failures cannot both observe the pre-lock count. The CASE
// only arms the lock when it is not already armed, so the transition fires
// exactly once.
func (r *PostgresRepository) RecordLoginFailure(ctx context.Context, userID string, threshold int, lockUntil time.Time) (int, *time.Time, error) {
	query := `
		UPDATE users
		SET failed_login_count = failed_login_count + 1,
			locked_until = CASE
				WHEN failed_login_count + 1 >= $2 AND (locked_until IS NULL OR locked_until <= now())
				THEN $3
				ELSE locked_until
			END,
			updated_at = now()
		WHERE id = $1
		RETURNING failed_login_count, locked_until
	`
	var count int
	var lockedUntil *time.Time
	err := r.db.QueryRowContext(ctx, query, userID, threshold, lockUntil).Scan(&count, &lockedUntil)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil, common.ErrorNotFound
		}
		return 0, nil, fmt.Errorf("db error: %w", err)
	}
	return count, lockedUntil, nil
}

func (r *PostgresRepository) ClearLoginFailures(ctx context.Context, userID string) error {
	query := `
		UPDATE users
		SET failed_login_count = 0, locked_until = NULL, updated_at = now()
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// LinkGoogleID attaches an external identity and upgrades the verification
// status; linking always implies a verified email.
func (r *PostgresRepository) LinkGoogleID(ctx context.Context, userID, googleID string) error {
	query := `
		UPDATE users
		SET google_id = $2, is_email_verified = true, updated_at = now()
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, userID, googleID); err != nil {
		return mapUniqueViolation(err)
	}
	return nil
}

func (r *PostgresRepository) SetProfilePicture(ctx context.Context, userID, url string) error {
	query := `
		UPDATE users
		SET profile_picture = $2, updated_at = now()
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, userID, url); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
