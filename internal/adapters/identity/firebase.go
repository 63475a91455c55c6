// Package identity resolves bearer credentials to caller identities.
package identity

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"

	"github.com/mindwell-app/mindwell-backend/internal/domain"
)

// FirebaseVerifier validates Firebase ID tokens. The uid claim is the
// stable subject identifier; the email claim, when present, is the
// legacy alias older session records may be stored under.
type FirebaseVerifier struct {
	auth *auth.Client
}

func NewFirebaseVerifier(ctx context.Context, projectID string) (*FirebaseVerifier, error) {
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID})
	if err != nil {
		return nil, fmt.Errorf("initializing firebase app: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("initializing firebase auth client: %w", err)
	}

	return &FirebaseVerifier{auth: client}, nil
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (domain.Identity, error) {
	decoded, err := v.auth.VerifyIDToken(ctx, token)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}

	email, _ := decoded.Claims["email"].(string)
	return domain.Identity{
		StableID:    decoded.UID,
		LegacyAlias: email,
	}, nil
}
