package repositories

import (
	"context"
	"fmt"
	"net/url"
)

// NewRepositoryFromURL opens the repository selected by the URL scheme:
// sqlite://<path> or postgres://... (postgresql:// is accepted too).
func NewRepositoryFromURL(ctx context.Context, connStr string) (Repository, error) {
	u, err := url.Parse(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %v", err)
	}

	switch u.Scheme {
	case "sqlite":
		path := u.Host + u.Path
		if path == "" {
			return nil, fmt.Errorf("sqlite connection string has no path")
		}
		return NewSQLiteRepository(ctx, path)
	case "postgres", "postgresql":
		return NewPostgresRepository(ctx, u.String())
	default:
		return nil, fmt.Errorf("unknown database type %s", u.Scheme)
	}
}
