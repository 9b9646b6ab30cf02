package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// GameMode selects the rules a round is played with.
type GameMode uint8

const (
	GameModeHideAndSeek GameMode = iota
	GameModeInfection
	GameModeSandbox
)

func (m GameMode) String() string {
	switch m {
	case GameModeHideAndSeek:
		return "hide-and-seek"
	case GameModeInfection:
		return "infection"
	case GameModeSandbox:
		return "sandbox"
	default:
		return "unknown"
	}
}

// ParseGameMode parses the string form of a GameMode.
func ParseGameMode(s string) (GameMode, error) {
	switch strings.ToLower(strings.ReplaceAll(s, "_", "-")) {
	case "hide-and-seek", "hideandseek":
		return GameModeHideAndSeek, nil
	case "infection":
		return GameModeInfection, nil
	case "sandbox":
		return GameModeSandbox, nil
	default:
		return GameModeSandbox, fmt.Errorf("unknown game mode: %s", s)
	}
}

func (m GameMode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *GameMode) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseGameMode(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
