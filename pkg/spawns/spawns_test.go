package spawns

import (
	"testing"

	"github.com/cbodonnell/vibemod/pkg/game/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSets_PointsFor(t *testing.T) {
	sets := Sets{
		Player: []Point{{X: 1}},
		Hide:   []Point{{X: 2}},
		Seek:   []Point{{X: 3}},
	}
	tests := []struct {
		name string
		role types.Role
		want []Point
	}{
		{name: "seeker", role: types.RoleSeeker, want: sets.Seek},
		{name: "infected", role: types.RoleInfected, want: sets.Seek},
		{name: "hider", role: types.RoleHider, want: sets.Hide},
		{name: "survivor", role: types.RoleSurvivor, want: sets.Hide},
		{name: "none", role: types.RoleNone, want: sets.Player},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sets.PointsFor(tt.role))
		})
	}
}

func TestSets_PointsFor_fallback(t *testing.T) {
	sets := Sets{Player: []Point{{X: 1}}}
	assert.Equal(t, sets.Player, sets.PointsFor(types.RoleSeeker))
}

func TestSetSpawner_Place(t *testing.T) {
	s := NewSetSpawner(Sets{Hide: []Point{{X: 5, Y: 6}}}, 1)

	p, err := s.Place("p1", types.RoleHider)
	require.NoError(t, err)
	assert.Equal(t, Point{X: 5, Y: 6}, p)

	_, err = s.Place("p2", types.RoleSeeker)
	assert.Error(t, err)
}

func TestPoint_Format(t *testing.T) {
	p := Point{X: 1.5, Y: -2, Z: 0}
	assert.Equal(t, "1.5,-2,0", p.Format())

	parsed, err := ParsePoints(p.Format())
	require.NoError(t, err)
	assert.Equal(t, []Point{p}, parsed)
}

func TestParsePoints(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []Point
		wantErr bool
	}{
		{name: "empty", in: ""},
		{name: "two points", in: "1,2,3; 4,5", want: []Point{{X: 1, Y: 2, Z: 3}, {X: 4, Y: 5}}},
		{name: "trailing separator", in: "1,2;", want: []Point{{X: 1, Y: 2}}},
		{name: "too few coords", in: "1", wantErr: true},
		{name: "not a number", in: "a,b", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePoints(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
