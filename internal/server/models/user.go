// Package models contains the server-side data model.
package models

import "time"

// User is the credential store's unit of record. PasswordHash is nil for
// accounts created through Google sign-in that never set a password;
// GoogleID is nil for password-only accounts. A usable account always has
// at least one of the two.
type User struct {
	ID             string
	Username       string
	Email          string
	PasswordHash   *string
	GoogleID       *string
	ProfilePicture *string

	IsEmailVerified          bool
	EmailVerificationToken   *string
	EmailVerificationExpires *time.Time

	PasswordResetToken   *string
	PasswordResetExpires *time.Time

	FailedLoginCount int
	LockedUntil      *time.Time

	PasswordChangedAt time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsLocked reports whether the account is locked at the given instant.
// A LockedUntil value in the past counts as unlocked (lazy expiry).
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}

// Profile is the public projection returned after login and registration.
// Credential and token fields are never exposed.
type Profile struct {
	ID              string  `json:"id"`
	Username        string  `json:"username"`
	Email           string  `json:"email"`
	IsEmailVerified bool    `json:"isEmailVerified"`
	ProfilePicture  *string `json:"profilePicture"`
}

// Profile returns the public projection of the user.
func (u *User) Profile() Profile {
	return Profile{
		ID:              u.ID,
		Username:        u.Username,
		Email:           u.Email,
		IsEmailVerified: u.IsEmailVerified,
		ProfilePicture:  u.ProfilePicture,
	}
}
