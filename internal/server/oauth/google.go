// Package oauth verifies Google sign-in credentials.
package oauth

import (
	"context"
	"fmt"

	"google.golang.org/api/idtoken"

	"github.com/chillhabit/chillhabit/internal/common"
)

// Identity is the subset of a verified ID token the auth service cares
// about. Subject is Google's stable account id.
type Identity struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

// Verifier validates an opaque credential from the sign-in widget and
// returns the identity it asserts.
type Verifier interface {
	Verify(ctx context.Context, credential string) (*Identity, error)
}

// GoogleVerifier checks ID tokens against Google's public keys and the
// configured OAuth client id.
type GoogleVerifier struct {
	clientID string
}

func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{clientID: clientID}
}

func (v *GoogleVerifier) Verify(ctx context.Context, credential string) (*Identity, error) {
	payload, err := idtoken.Validate(ctx, credential, v.clientID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorOAuthVerification, err)
	}

	identity := &Identity{Subject: payload.Subject}
	if email, ok := payload.Claims["email"].(string); ok {
		identity.Email = email
	}
	if name, ok := payload.Claims["name"].(string); ok {
		identity.Name = name
	}
	if picture, ok := payload.Claims["picture"].(string); ok {
		identity.Picture = picture
	}

	if identity.Email == "" {
		return nil, fmt.Errorf("%w: token carries no email claim", common.ErrorOAuthVerification)
	}

	return identity, nil
}
