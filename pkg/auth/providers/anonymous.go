package providers

import (
	"context"

	"github.com/google/uuid"
)

var _ AuthProvider = &AnonymousAuthProvider{}

// AnonymousAuthProvider accepts every token. A non-empty token is used as
// the user ID, otherwise a random one is generated.
type AnonymousAuthProvider struct{}

func NewAnonymousAuthProvider() *AnonymousAuthProvider {
	return &AnonymousAuthProvider{}
}

func (p *AnonymousAuthProvider) VerifyToken(ctx context.Context, idToken string) (*TokenClaims, error) {
	if idToken == "" {
		return &TokenClaims{UID: "anonymous-" + uuid.NewString()}, nil
	}
	return &TokenClaims{UID: idToken}, nil
}
