package game

import (
	"math/rand"
	"time"

	"github.com/cbodonnell/vibemod/pkg/game/constants"
	"github.com/cbodonnell/vibemod/pkg/game/types"
)

// RoundCounts summarizes the roster for end-condition evaluation.
type RoundCounts struct {
	Total    int
	Hiding   int
	Infected int
}

// modeRules holds everything that differs between game modes.
type modeRules struct {
	roundTime       time.Duration
	prepTime        time.Duration
	minParticipants int
	// assignRoles maps every participant to its role for a new round.
	assignRoles func(participants []string, rng *rand.Rand) map[string]types.Role
	// endCondition ends an active round early.
	endCondition func(c RoundCounts) bool
	// lateJoinRole is given to participants joining a running round.
	lateJoinRole types.Role
	// survivors returns who receives the survival bonus when the round ends.
	survivors func(r *roster) []string
}

var rulesByMode = map[types.GameMode]modeRules{
	types.GameModeHideAndSeek: {
		roundTime:       constants.HideAndSeekRoundTime,
		prepTime:        constants.HideAndSeekPrepTime,
		minParticipants: constants.HideAndSeekMinParticipants,
		assignRoles:     assignOne(types.RoleSeeker, types.RoleHider),
		endCondition: func(c RoundCounts) bool {
			return c.Hiding == 0
		},
		lateJoinRole: types.RoleSeeker,
		survivors: func(r *roster) []string {
			return r.hidingIDs()
		},
	},
	types.GameModeInfection: {
		roundTime:       constants.InfectionRoundTime,
		prepTime:        constants.InfectionPrepTime,
		minParticipants: constants.InfectionMinParticipants,
		assignRoles:     assignOne(types.RoleInfected, types.RoleSurvivor),
		endCondition: func(c RoundCounts) bool {
			// total-infected <= 1 already covers infected == total
			return c.Infected == c.Total || c.Total-c.Infected <= 1
		},
		lateJoinRole: types.RoleInfected,
		survivors: func(r *roster) []string {
			return r.notInfectedIDs()
		},
	},
	types.GameModeSandbox: {
		roundTime:       constants.SandboxRoundTime,
		prepTime:        constants.SandboxPrepTime,
		minParticipants: constants.SandboxMinParticipants,
		assignRoles:     assignAll(types.RoleNone),
		endCondition: func(RoundCounts) bool {
			return false
		},
		lateJoinRole: types.RoleNone,
		survivors: func(*roster) []string {
			return nil
		},
	},
}

func rulesFor(mode types.GameMode) modeRules {
	if rules, ok := rulesByMode[mode]; ok {
		return rules
	}
	return rulesByMode[types.GameModeSandbox]
}

// assignOne draws one participant uniformly for the selected role and
// gives every other participant the rest role.
func assignOne(selected, rest types.Role) func([]string, *rand.Rand) map[string]types.Role {
	return func(participants []string, rng *rand.Rand) map[string]types.Role {
		roles := make(map[string]types.Role, len(participants))
		if len(participants) == 0 {
			return roles
		}
		pick := rng.Intn(len(participants))
		for i, id := range participants {
			if i == pick {
				roles[id] = selected
			} else {
				roles[id] = rest
			}
		}
		return roles
	}
}

func assignAll(role types.Role) func([]string, *rand.Rand) map[string]types.Role {
	return func(participants []string, _ *rand.Rand) map[string]types.Role {
		roles := make(map[string]types.Role, len(participants))
		for _, id := range participants {
			roles[id] = role
		}
		return roles
	}
}
