package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// Phase is the tag of a RoundState.
type Phase uint8

const (
	PhaseLobby Phase = iota
	PhasePreparing
	PhaseActive
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseLobby:
		return "lobby"
	case PhasePreparing:
		return "preparing"
	case PhaseActive:
		return "active"
	case PhaseEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// ParsePhase parses the string form of a Phase.
func ParsePhase(s string) (Phase, error) {
	switch s {
	case "lobby":
		return PhaseLobby, nil
	case "preparing":
		return PhasePreparing, nil
	case "active":
		return PhaseActive, nil
	case "ended":
		return PhaseEnded, nil
	default:
		return PhaseLobby, fmt.Errorf("unknown phase: %s", s)
	}
}

func (p Phase) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Phase) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParsePhase(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// RoundState is the replicated round lifecycle state.
// Remaining is only meaningful while Preparing or Active.
type RoundState struct {
	Phase     Phase         `json:"phase"`
	Remaining time.Duration `json:"remaining"`
}

// Timed reports whether the phase has a running timer.
func (s RoundState) Timed() bool {
	return s.Phase == PhasePreparing || s.Phase == PhaseActive
}

// EndReason records why a round entered PhaseEnded.
type EndReason string

const (
	EndReasonTimeout      EndReason = "timeout"
	EndReasonCondition    EndReason = "condition"
	EndReasonUnderMinimum EndReason = "under-minimum"
	EndReasonStopped      EndReason = "stopped"
)
