package messages

import (
	"encoding/json"
	"fmt"

	"github.com/cbodonnell/vibemod/pkg/game/types"
)

const (
	// MessageBufferSize represents the maximum size of a message
	MessageBufferSize = 1 << 16
)

type MessageType byte

// Game message types are relayed to every participant of a room.
const (
	MessageTypeRoundStateChanged MessageType = iota + 1
	MessageTypeFound
	MessageTypeInfected
	MessageTypeRoleAssigned
	MessageTypeScoreUpdate
	MessageTypeScoreTable
	MessageTypeGameModeChanged
	MessageTypeReportFound
	MessageTypeReportInfected
	MessageTypeSpawned
)

// Relay control message types are exchanged between a participant and the relay.
const (
	MessageTypeWelcome MessageType = iota + 64
	MessageTypeMembershipChanged
	MessageTypeSetRoomProperties
	MessageTypeSetParticipantProperties
	MessageTypePropertiesChanged
)

func (t MessageType) String() string {
	switch t {
	case MessageTypeRoundStateChanged:
		return "RoundStateChanged"
	case MessageTypeFound:
		return "Found"
	case MessageTypeInfected:
		return "Infected"
	case MessageTypeRoleAssigned:
		return "RoleAssigned"
	case MessageTypeScoreUpdate:
		return "ScoreUpdate"
	case MessageTypeScoreTable:
		return "ScoreTable"
	case MessageTypeGameModeChanged:
		return "GameModeChanged"
	case MessageTypeReportFound:
		return "ReportFound"
	case MessageTypeReportInfected:
		return "ReportInfected"
	case MessageTypeSpawned:
		return "Spawned"
	case MessageTypeWelcome:
		return "Welcome"
	case MessageTypeMembershipChanged:
		return "MembershipChanged"
	case MessageTypeSetRoomProperties:
		return "SetRoomProperties"
	case MessageTypeSetParticipantProperties:
		return "SetParticipantProperties"
	case MessageTypePropertiesChanged:
		return "PropertiesChanged"
	default:
		return fmt.Sprintf("MessageType(%d)", byte(t))
	}
}

// IsGameMessage reports whether the relay should fan the message out to the room.
func (t MessageType) IsGameMessage() bool {
	return t >= MessageTypeRoundStateChanged && t <= MessageTypeSpawned
}

// Message is the envelope every frame on the wire carries.
// ParticipantID is the sender as stamped by the relay; it is empty for
// messages originating from the relay itself.
type Message struct {
	ParticipantID string          `json:"participantID"`
	Type          MessageType     `json:"type"`
	Payload       json.RawMessage `json:"payload"`
}

// NewJSONMessage builds an envelope with a JSON encoded payload.
func NewJSONMessage(t MessageType, payload interface{}) (*Message, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %v", t, err)
	}
	return &Message{
		Type:    t,
		Payload: b,
	}, nil
}

// DecodeJSON unmarshals the payload of the message into v.
func (m *Message) DecodeJSON(v interface{}) error {
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s payload: %v", m.Type, err)
	}
	return nil
}

// RoundStateChanged is the snapshot of the authoritative round state.
// It is encoded as a flatbuffers table, see SerializeRoundStateChanged.
type RoundStateChanged struct {
	Phase           types.Phase
	RemainingMillis int64
	Mode            types.GameMode
	Round           uint32
	Seq             uint64
}

type Found struct {
	ParticipantID string `json:"participant"`
}

type Infected struct {
	ParticipantID string `json:"participant"`
}

type RoleAssigned struct {
	ParticipantID string     `json:"participant"`
	Role          types.Role `json:"role"`
}

type ScoreUpdate struct {
	ParticipantID string `json:"participant"`
	Score         int    `json:"score"`
}

type ScoreTable struct {
	Round  uint32         `json:"round"`
	Scores map[string]int `json:"scores"`
}

type GameModeChanged struct {
	Mode types.GameMode `json:"mode"`
}

// Spawned tells participants where the authority placed someone.
type Spawned struct {
	ParticipantID string      `json:"participant"`
	Point         types.Point `json:"point"`
}

// ReportRequest asks the authority to report a find or an infection.
// It is sent as MessageTypeReportFound or MessageTypeReportInfected.
type ReportRequest struct {
	ParticipantID string `json:"participant"`
}

type Properties map[string]string

type Welcome struct {
	ParticipantID         string                `json:"participant"`
	Participants          []string              `json:"participants"`
	AuthorityID           string                `json:"authority"`
	RoomProperties        Properties            `json:"roomProperties,omitempty"`
	ParticipantProperties map[string]Properties `json:"participantProperties,omitempty"`
}

type MembershipChange string

const (
	MembershipChangeJoin      MembershipChange = "join"
	MembershipChangeLeave     MembershipChange = "leave"
	MembershipChangeAuthority MembershipChange = "authority"
)

type MembershipChanged struct {
	Change        MembershipChange `json:"change"`
	ParticipantID string           `json:"participant"`
}

type SetRoomProperties struct {
	Properties Properties `json:"properties"`
}

type SetParticipantProperties struct {
	ParticipantID string     `json:"participant"`
	Properties    Properties `json:"properties"`
}

// PropertiesChanged carries room properties when ParticipantID is empty.
type PropertiesChanged struct {
	ParticipantID string     `json:"participant,omitempty"`
	Properties    Properties `json:"properties"`
}
