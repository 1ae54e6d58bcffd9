// Package common defines shared constants and sentinel errors used across
// the application layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal        = errors.New("internal error")
	ErrorValidation      = errors.New("validation error")
	ErrorUnauthenticated = errors.New("authentication required")

	// Login errors. ErrorInvalidCredentials deliberately covers both
	// "no such user" and "wrong password".
	ErrorInvalidCredentials = errors.New("invalid credentials")
	ErrorAccountLocked      = errors.New("account temporarily locked")

	// Session token errors (bad signature/payload vs past expiry).
	ErrorInvalidToken = errors.New("invalid token")
	ErrorTokenExpired = errors.New("token expired")

	// Single-use action tokens (email verification, password reset).
	// One value for both "wrong token" and "expired token".
	ErrorActionTokenInvalid = errors.New("invalid or expired token")

	ErrorAlreadyVerified = errors.New("email is already verified")

	// External collaborators.
	ErrorEmailSendFailed   = errors.New("email delivery failed")
	ErrorOAuthVerification = errors.New("oauth verification failed")
)
