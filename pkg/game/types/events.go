package types

// WelcomeEvent is delivered once when the local participant joins a room.
type WelcomeEvent struct {
	LocalID      string
	Participants []string // in join order, including LocalID
	AuthorityID  string
	// RoomProperties and ParticipantProperties are the replicated
	// properties at the time of joining.
	RoomProperties        map[string]string
	ParticipantProperties map[string]map[string]string
}

// JoinEvent is delivered when another participant joins the room.
type JoinEvent struct {
	ParticipantID string
}

// LeaveEvent is delivered when a participant leaves the room.
type LeaveEvent struct {
	ParticipantID string
}

// AuthoritySwitchEvent is delivered after the transport elects a new authority.
type AuthoritySwitchEvent struct {
	AuthorityID string
}
