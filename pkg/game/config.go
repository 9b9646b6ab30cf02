package game

import (
	"time"

	"github.com/cbodonnell/vibemod/pkg/game/constants"
	"github.com/cbodonnell/vibemod/pkg/game/types"
	"github.com/cbodonnell/vibemod/pkg/spawns"
)

// Config is the coordinator configuration. Zero durations and minimums
// fall back to the defaults of the selected game mode.
type Config struct {
	Mode            types.GameMode
	RoundTime       time.Duration
	PrepTime        time.Duration
	MinParticipants int
	MaxParticipants int
	// Seed seeds role assignment. Zero picks a random seed.
	Seed int64
	// Spawns places participants when a round starts. May be nil.
	Spawns spawns.Spawner
}

// timing is the effective timing of a mode under this configuration.
type timing struct {
	roundTime       time.Duration
	prepTime        time.Duration
	minParticipants int
	maxParticipants int
}

// timingFor resolves the configured overrides against the mode defaults.
// Overrides apply to every mode, since the configuration names one set of
// timers for the session.
func (c Config) timingFor(mode types.GameMode) timing {
	rules := rulesFor(mode)
	t := timing{
		roundTime:       rules.roundTime,
		prepTime:        rules.prepTime,
		minParticipants: rules.minParticipants,
		maxParticipants: constants.DefaultMaxParticipants,
	}
	if c.RoundTime > 0 {
		t.roundTime = c.RoundTime
	}
	if c.PrepTime > 0 {
		t.prepTime = c.PrepTime
	}
	if c.MinParticipants > 0 {
		t.minParticipants = c.MinParticipants
	}
	if c.MaxParticipants > 0 {
		t.maxParticipants = c.MaxParticipants
	}
	return t
}
