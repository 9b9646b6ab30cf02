package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role is the part a participant plays in the current round.
type Role uint8

const (
	RoleNone Role = iota
	RoleSeeker
	RoleHider
	RoleInfected
	RoleSurvivor
)

func (r Role) String() string {
	switch r {
	case RoleNone:
		return "none"
	case RoleSeeker:
		return "seeker"
	case RoleHider:
		return "hider"
	case RoleInfected:
		return "infected"
	case RoleSurvivor:
		return "survivor"
	default:
		return "unknown"
	}
}

// ParseRole parses the string form of a Role.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(s) {
	case "none", "":
		return RoleNone, nil
	case "seeker":
		return RoleSeeker, nil
	case "hider":
		return RoleHider, nil
	case "infected":
		return RoleInfected, nil
	case "survivor":
		return RoleSurvivor, nil
	default:
		return RoleNone, fmt.Errorf("unknown role: %s", s)
	}
}

func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *Role) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
