package providers

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		target  string
		want    string
		wantErr bool
	}{
		{name: "header", header: "Bearer abc", target: "/", want: "abc"},
		{name: "lower case scheme", header: "bearer abc", target: "/", want: "abc"},
		{name: "query fallback", target: "/?token=xyz", want: "xyz"},
		{name: "missing", target: "/", wantErr: true},
		{name: "wrong scheme", header: "Basic abc", target: "/", wantErr: true},
		{name: "empty token", header: "Bearer  ", target: "/", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.target, nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			got, err := BearerToken(r)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAnonymousAuthProvider(t *testing.T) {
	p := NewAnonymousAuthProvider()

	claims, err := p.VerifyToken(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.UID)

	claims, err = p.VerifyToken(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(claims.UID, "anonymous-"))
}
