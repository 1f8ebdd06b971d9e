package auth

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/asso-lecture/asso-backend/internal/domain"
)

type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// FirebaseVerifier checks Firebase ID tokens. The role is read from the
// "role" custom claim.
type FirebaseVerifier struct {
	client idTokenVerifier
}

// InitializeFirebase initializes the Firebase Admin SDK and returns a verifier backed by its Auth client
func InitializeFirebase(ctx context.Context, credentialsPath string) (*FirebaseVerifier, error) {
	if credentialsPath == "" {
		return nil, fmt.Errorf("FIREBASE_CREDENTIALS_PATH is required")
	}

	opt := option.WithCredentialsFile(credentialsPath)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get Auth client: %w", err)
	}

	return &FirebaseVerifier{client: client}, nil
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (Principal, error) {
	decoded, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		return Principal{}, fmt.Errorf("invalid token: %v: %w", err, domain.ErrUnauthenticated)
	}
	email, _ := decoded.Claims["email"].(string)
	role, _ := decoded.Claims["role"].(string)
	return principalFromClaims(decoded.UID, email, role)
}
