package game

import (
	"math/rand"
	"testing"
	"time"

	"github.com/cbodonnell/vibemod/pkg/game/types"
	"github.com/stretchr/testify/assert"
)

func TestRulesFor_defaults(t *testing.T) {
	tests := []struct {
		mode      types.GameMode
		roundTime time.Duration
		prepTime  time.Duration
		min       int
	}{
		{mode: types.GameModeHideAndSeek, roundTime: 300 * time.Second, prepTime: 30 * time.Second, min: 2},
		{mode: types.GameModeInfection, roundTime: 300 * time.Second, prepTime: 15 * time.Second, min: 3},
		{mode: types.GameModeSandbox, roundTime: 300 * time.Second, prepTime: 30 * time.Second, min: 1},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			got := Config{}.timingFor(tt.mode)
			assert.Equal(t, tt.roundTime, got.roundTime)
			assert.Equal(t, tt.prepTime, got.prepTime)
			assert.Equal(t, tt.min, got.minParticipants)
			assert.Equal(t, 16, got.maxParticipants)
		})
	}
}

func TestConfig_timingFor_overrides(t *testing.T) {
	cfg := Config{RoundTime: time.Minute, PrepTime: 5 * time.Second, MinParticipants: 4, MaxParticipants: 8}
	got := cfg.timingFor(types.GameModeInfection)
	assert.Equal(t, timing{roundTime: time.Minute, prepTime: 5 * time.Second, minParticipants: 4, maxParticipants: 8}, got)
}

func TestAssignRoles(t *testing.T) {
	tests := []struct {
		mode     types.GameMode
		selected types.Role
		rest     types.Role
	}{
		{mode: types.GameModeHideAndSeek, selected: types.RoleSeeker, rest: types.RoleHider},
		{mode: types.GameModeInfection, selected: types.RoleInfected, rest: types.RoleSurvivor},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			rng := rand.New(rand.NewSource(7))
			for n := 1; n <= 8; n++ {
				participants := participantIDs(n)
				roles := rulesFor(tt.mode).assignRoles(participants, rng)
				assert.Len(t, roles, n)
				selected := 0
				for _, id := range participants {
					switch roles[id] {
					case tt.selected:
						selected++
					case tt.rest:
					default:
						t.Fatalf("unexpected role %s", roles[id])
					}
				}
				assert.Equal(t, 1, selected)
			}
		})
	}

	t.Run("sandbox", func(t *testing.T) {
		roles := rulesFor(types.GameModeSandbox).assignRoles(participantIDs(3), rand.New(rand.NewSource(1)))
		for _, role := range roles {
			assert.Equal(t, types.RoleNone, role)
		}
	})

	t.Run("no participants", func(t *testing.T) {
		roles := rulesFor(types.GameModeHideAndSeek).assignRoles(nil, rand.New(rand.NewSource(1)))
		assert.Empty(t, roles)
	})
}

func TestAssignRoles_uniform(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	participants := participantIDs(4)
	picked := map[string]int{}
	for i := 0; i < 4000; i++ {
		for id, role := range rulesFor(types.GameModeHideAndSeek).assignRoles(participants, rng) {
			if role == types.RoleSeeker {
				picked[id]++
			}
		}
	}
	for _, id := range participants {
		assert.InDelta(t, 1000, picked[id], 150, "seeker draws for %s", id)
	}
}

func TestEndCondition(t *testing.T) {
	tests := []struct {
		name   string
		mode   types.GameMode
		counts RoundCounts
		want   bool
	}{
		{name: "hide and seek hiders left", mode: types.GameModeHideAndSeek, counts: RoundCounts{Total: 4, Hiding: 1}, want: false},
		{name: "hide and seek all found", mode: types.GameModeHideAndSeek, counts: RoundCounts{Total: 4, Hiding: 0}, want: true},
		{name: "infection all infected", mode: types.GameModeInfection, counts: RoundCounts{Total: 4, Infected: 4}, want: true},
		{name: "infection one survivor", mode: types.GameModeInfection, counts: RoundCounts{Total: 4, Infected: 3}, want: true},
		{name: "infection two survivors", mode: types.GameModeInfection, counts: RoundCounts{Total: 4, Infected: 2}, want: false},
		{name: "sandbox", mode: types.GameModeSandbox, counts: RoundCounts{Total: 1}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rulesFor(tt.mode).endCondition(tt.counts))
		})
	}
}

func TestRoster(t *testing.T) {
	r := newRoster()
	assert.True(t, r.add("a"))
	assert.False(t, r.add("a"))
	r.add("b")
	r.add("c")

	r.setRole("a", types.RoleSeeker)
	r.setRole("b", types.RoleHider)
	r.setRole("c", types.RoleHider)
	assert.Equal(t, []string{"b", "c"}, r.hidingIDs())

	assert.True(t, r.markFound("b"))
	assert.False(t, r.markFound("b"))
	assert.Equal(t, types.RoleHider, r.role("b"), "found hiders keep their role")

	r.award("a", 10)
	assert.True(t, r.remove("a"))
	assert.False(t, r.has("a"))
	assert.Equal(t, 10, r.scoreTable()["a"], "leavers keep their score entry")

	r.remove("c")
	assert.Empty(t, r.hidingIDs())
	assert.Equal(t, RoundCounts{Total: 1}, r.counts())
}
