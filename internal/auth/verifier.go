package auth

import (
	"context"
	"fmt"

	"github.com/asso-lecture/asso-backend/config"
	"github.com/asso-lecture/asso-backend/internal/domain"
)

// Verifier turns a bearer token into a principal. Failures wrap
// domain.ErrUnauthenticated.
type Verifier interface {
	Verify(ctx context.Context, token string) (Principal, error)
}

// NewVerifier builds the verifier selected by cfg.Provider.
func NewVerifier(ctx context.Context, cfg *config.AuthConfig) (Verifier, error) {
	switch cfg.Provider {
	case "firebase":
		return InitializeFirebase(ctx, cfg.FirebaseCredentialsPath)
	case "jwt", "":
		return NewJWTVerifier(cfg.JWTSecret), nil
	default:
		return nil, fmt.Errorf("unknown auth provider %q", cfg.Provider)
	}
}

func principalFromClaims(subject, email, role string) (Principal, error) {
	if subject == "" {
		return Principal{}, fmt.Errorf("token has no subject: %w", domain.ErrUnauthenticated)
	}
	r := domain.Role(role)
	if r == "" {
		r = domain.RoleSimple
	}
	if !r.Valid() {
		return Principal{}, fmt.Errorf("token carries unknown role %q: %w", role, domain.ErrUnauthenticated)
	}
	return Principal{UserID: subject, Email: email, Role: r}, nil
}
