package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/chillhabit/chillhabit/internal/common"
	"github.com/chillhabit/chillhabit/internal/dbx"
	"github.com/chillhabit/chillhabit/internal/logging"
	"github.com/chillhabit/chillhabit/internal/server/models"
	"github.com/chillhabit/chillhabit/internal/server/oauth"
	"github.com/chillhabit/chillhabit/internal/server/repositories/repomanager"
)

// IdentityLinker maps a verified Google identity onto a local account:
// attach to an existing account by email, or create a fresh verified one.
type IdentityLinker struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewIdentityLinker(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *IdentityLinker {
	return &IdentityLinker{db: db, repomanager: m, logger: logger}
}

// LinkOrCreate resolves the identity to a local user. An account whose
// email already carries a different Google id is never overwritten; the
// caller gets a conflict instead.
func (l *IdentityLinker) LinkOrCreate(ctx context.Context, identity *oauth.Identity) (*models.User, error) {
	repo := l.repomanager.Users(l.db)

	identity.Email = normalizeEmail(identity.Email)
	user, err := repo.GetByEmail(ctx, identity.Email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return l.createFromIdentity(ctx, identity)
		}
		return nil, err
	}

	if user.GoogleID != nil {
		if *user.GoogleID != identity.Subject {
			return nil, fmt.Errorf("%w: account is linked to a different Google identity", common.ErrorConflict)
		}
		return l.refreshPicture(ctx, user, identity)
	}

	// First Google sign-in on a password account: link and mark verified
	// together with the avatar update.
	err = dbx.WithTx(ctx, l.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repoTx := l.repomanager.Users(tx)
		if err := repoTx.LinkGoogleID(ctx, user.ID, identity.Subject); err != nil {
			return err
		}
		if identity.Picture != "" {
			return repoTx.SetProfilePicture(ctx, user.ID, identity.Picture)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info(ctx, "linked Google identity to existing account", "user_id", user.ID)

	googleID := identity.Subject
	user.GoogleID = &googleID
	user.IsEmailVerified = true
	if identity.Picture != "" {
		picture := identity.Picture
		user.ProfilePicture = &picture
	}
	return user, nil
}

func (l *IdentityLinker) refreshPicture(ctx context.Context, user *models.User, identity *oauth.Identity) (*models.User, error) {
	if identity.Picture == "" || (user.ProfilePicture != nil && *user.ProfilePicture == identity.Picture) {
		return user, nil
	}
	repo := l.repomanager.Users(l.db)
	if err := repo.SetProfilePicture(ctx, user.ID, identity.Picture); err != nil {
		return nil, err
	}
	picture := identity.Picture
	user.ProfilePicture = &picture
	return user, nil
}

// createFromIdentity provisions a verified account with no password. A
// username collision gets one retry with a random suffix.
func (l *IdentityLinker) createFromIdentity(ctx context.Context, identity *oauth.Identity) (*models.User, error) {
	repo := l.repomanager.Users(l.db)

	username := usernameFromIdentity(identity)
	user, err := repo.Create(ctx, newVerifiedUser(username, identity))
	if err == nil {
		l.logger.Info(ctx, "created account from Google identity", "user_id", user.ID)
		return user, nil
	}
	if !errors.Is(err, common.ErrorConflict) || !strings.Contains(err.Error(), "username") {
		return nil, err
	}

	suffix, randErr := common.MakeRandHexString(3)
	if randErr != nil {
		return nil, randErr
	}
	user, err = repo.Create(ctx, newVerifiedUser(username+suffix, identity))
	if err != nil {
		return nil, err
	}
	l.logger.Info(ctx, "created account from Google identity", "user_id", user.ID, "username_suffixed", true)
	return user, nil
}

func newVerifiedUser(username string, identity *oauth.Identity) *models.User {
	googleID := identity.Subject
	user := &models.User{
		ID:              uuid.NewString(),
		Username:        username,
		Email:           identity.Email,
		GoogleID:        &googleID,
		IsEmailVerified: true,
	}
	if identity.Picture != "" {
		picture := identity.Picture
		user.ProfilePicture = &picture
	}
	return user
}

// usernameFromIdentity derives a username from the profile name, falling
// back to the email local part.
func usernameFromIdentity(identity *oauth.Identity) string {
	name := strings.TrimSpace(identity.Name)
	if name == "" {
		name, _, _ = strings.Cut(identity.Email, "@")
	}
	return strings.ReplaceAll(name, " ", "")
}
