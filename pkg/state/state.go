package state

import (
	"context"

	gametypes "github.com/cbodonnell/vibemod/pkg/game/types"
)

// StateManager provides shared access to the latest coordinator view.
// Implementations must be thread-safe.
type StateManager interface {
	// Get returns a copy of the current view.
	Get(ctx context.Context) (*gametypes.View, error)
	// Set replaces the current view.
	Set(ctx context.Context, view *gametypes.View) error
}
