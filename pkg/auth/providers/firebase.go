package providers

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go"
	"firebase.google.com/go/auth"
	"google.golang.org/api/option"
)

var _ AuthProvider = &FirebaseAuthProvider{}

// FirebaseAuthProvider verifies Firebase ID tokens presented when joining a room.
type FirebaseAuthProvider struct {
	auth *auth.Client
}

// NewFirebaseAuthProvider creates a new FirebaseAuthProvider. The API key
// may be empty when application default credentials are available.
func NewFirebaseAuthProvider(ctx context.Context, projectID string, apiKey string) (*FirebaseAuthProvider, error) {
	if projectID == "" {
		return nil, errors.New("firebase project ID is required")
	}
	var opts []option.ClientOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %v", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get firebase auth client: %v", err)
	}

	return &FirebaseAuthProvider{auth: client}, nil
}

// VerifyToken verifies a Firebase ID token. Anonymous joins are rejected.
func (p *FirebaseAuthProvider) VerifyToken(ctx context.Context, idToken string) (*TokenClaims, error) {
	if idToken == "" {
		return nil, errors.New("missing ID token")
	}
	token, err := p.auth.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify ID token: %v", err)
	}

	return &TokenClaims{UID: token.UID}, nil
}
