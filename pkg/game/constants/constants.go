package constants

import "time"

const (
	// TickInterval is the fixed step of the coordinator loop
	TickInterval = 100 * time.Millisecond

	// FoundPoints is awarded to every seeker when a hider is found
	FoundPoints = 10
	// SurvivalPoints is awarded on round end to hiders never found and
	// participants never infected
	SurvivalPoints = 20

	// DefaultMaxParticipants is the room capacity when none is configured
	DefaultMaxParticipants = 16

	HideAndSeekRoundTime       = 300 * time.Second
	HideAndSeekPrepTime        = 30 * time.Second
	HideAndSeekMinParticipants = 2

	InfectionRoundTime       = 300 * time.Second
	InfectionPrepTime        = 15 * time.Second
	InfectionMinParticipants = 3

	SandboxRoundTime       = 300 * time.Second
	SandboxPrepTime        = 30 * time.Second
	SandboxMinParticipants = 1
)

// Replicated property keys
const (
	RoomPropertyMode        = "mode"
	RoomPropertyPhase       = "phase"
	RoomPropertyRemainingMs = "remaining_ms"
	RoomPropertyRound       = "round"

	ParticipantPropertyRole  = "role"
	ParticipantPropertySpawn = "spawn"
)
