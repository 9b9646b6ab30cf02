package types

// ParticipantState is the presentation view of one participant.
type ParticipantState struct {
	ID    string `json:"id"`
	Role  Role   `json:"role"`
	Score int    `json:"score"`
	// Spawn is where the participant was placed this round, if anywhere.
	Spawn *Point `json:"spawn,omitempty"`
}

// View is a read-only snapshot of a coordinator, handed to presentation.
type View struct {
	LocalID      string             `json:"localID"`
	AuthorityID  string             `json:"authorityID"`
	IsAuthority  bool               `json:"isAuthority"`
	Mode         GameMode           `json:"mode"`
	Round        uint32             `json:"round"`
	Seq          uint64             `json:"seq"`
	State        RoundState         `json:"state"`
	EndReason    EndReason          `json:"endReason,omitempty"`
	Participants []ParticipantState `json:"participants"`
	// Scores includes participants that have since left.
	Scores   map[string]int `json:"scores"`
	Hiding   int            `json:"hiding"`
	Infected int            `json:"infected"`
}

// Copy returns a deep copy of the view.
func (v *View) Copy() *View {
	c := *v
	c.Participants = make([]ParticipantState, len(v.Participants))
	copy(c.Participants, v.Participants)
	for i, p := range c.Participants {
		if p.Spawn != nil {
			spawn := *p.Spawn
			c.Participants[i].Spawn = &spawn
		}
	}
	c.Scores = make(map[string]int, len(v.Scores))
	for id, score := range v.Scores {
		c.Scores[id] = score
	}
	return &c
}

// CountRole returns how many current participants hold the role.
func (v *View) CountRole(role Role) int {
	n := 0
	for _, p := range v.Participants {
		if p.Role == role {
			n++
		}
	}
	return n
}
