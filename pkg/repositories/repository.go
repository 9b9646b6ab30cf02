package repositories

import (
	"context"

	"github.com/cbodonnell/vibemod/pkg/repositories/models"
)

// DefaultListLimit is used when ListRoundResults is called without a limit.
const DefaultListLimit = 20

type Repository interface {
	Close(ctx context.Context) error
	SaveRoundResult(ctx context.Context, result *models.RoundResult) error
	GetRoundResult(ctx context.Context, id string) (*models.RoundResult, error)
	// ListRoundResults returns the most recent results of a room, newest first.
	// An empty room lists results of every room.
	ListRoundResults(ctx context.Context, room string, limit int) ([]*models.RoundResult, error)
}
