package auth

import (
	"context"
	"errors"
	"testing"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/asso-lecture/asso-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubIDTokens struct {
	token *fbauth.Token
	err   error
}

func (s stubIDTokens) VerifyIDToken(context.Context, string) (*fbauth.Token, error) {
	return s.token, s.err
}

func TestFirebaseVerifier(t *testing.T) {
	ctx := context.Background()

	t.Run("role from custom claim", func(t *testing.T) {
		v := &FirebaseVerifier{client: stubIDTokens{token: &fbauth.Token{
			UID:    "fb-1",
			Claims: map[string]interface{}{"email": "x@example.org", "role": "admin"},
		}}}
		p, err := v.Verify(ctx, "tok")
		require.NoError(t, err)
		assert.Equal(t, Principal{UserID: "fb-1", Email: "x@example.org", Role: domain.RoleAdmin}, p)
	})

	t.Run("rejected token", func(t *testing.T) {
		v := &FirebaseVerifier{client: stubIDTokens{err: errors.New("expired")}}
		_, err := v.Verify(ctx, "tok")
		assert.True(t, errors.Is(err, domain.ErrUnauthenticated))
	})

	t.Run("missing credentials path", func(t *testing.T) {
		_, err := InitializeFirebase(ctx, "")
		assert.Error(t, err)
	})
}
