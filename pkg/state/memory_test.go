package state

import (
	"context"
	"testing"

	gametypes "github.com/cbodonnell/vibemod/pkg/game/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStateManager(t *testing.T) {
	ctx := context.Background()
	m := NewInMemoryStateManager()

	assert.Error(t, m.Set(ctx, nil))

	view := &gametypes.View{
		LocalID:      "a",
		Participants: []gametypes.ParticipantState{{ID: "a", Role: gametypes.RoleSeeker}},
		Scores:       map[string]int{"a": 10},
	}
	require.NoError(t, m.Set(ctx, view))

	// later writes to the caller's view are not visible
	view.Scores["a"] = 99
	view.Participants[0].Role = gametypes.RoleHider

	got, err := m.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Scores["a"])
	assert.Equal(t, gametypes.RoleSeeker, got.Participants[0].Role)

	// nor are writes to a returned copy
	got.Scores["a"] = 0
	again, err := m.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, again.Scores["a"])
}
