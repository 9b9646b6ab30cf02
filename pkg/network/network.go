package network

import "errors"

var (
	ErrRoomFull     = errors.New("room is full")
	ErrNotMember    = errors.New("participant is not a member of the room")
	ErrNotAuthority = errors.New("participant is not the room authority")
)

type ConnectionEventType int

const (
	ConnectionEventTypeConnect ConnectionEventType = iota
	ConnectionEventTypeDisconnect
)

func (t ConnectionEventType) String() string {
	switch t {
	case ConnectionEventTypeConnect:
		return "connect"
	case ConnectionEventTypeDisconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// ConnectionEvent is emitted by the websocket server for the membership
// worker, which applies it to the room manager.
type ConnectionEvent struct {
	Type        ConnectionEventType
	RoomID      string
	Participant *Participant
}
