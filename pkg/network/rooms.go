package network

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cbodonnell/vibemod/pkg/log"
	"github.com/cbodonnell/vibemod/pkg/messages"
)

type room struct {
	id string
	// participants in join order; the authority is elected from the front
	participants          []*Participant
	authorityID           string
	properties            messages.Properties
	participantProperties map[string]messages.Properties
}

func (r *room) index(participantID string) int {
	for i, p := range r.participants {
		if p.ID == participantID {
			return i
		}
	}
	return -1
}

func (r *room) ids() []string {
	ids := make([]string, len(r.participants))
	for i, p := range r.participants {
		ids[i] = p.ID
	}
	return ids
}

// RoomManager tracks the rooms of the relay. Every mutation and fan-out
// happens under one lock so all participants observe the same order.
type RoomManager struct {
	lock            sync.Mutex
	rooms           map[string]*room
	maxParticipants int
}

func NewRoomManager(maxParticipants int) *RoomManager {
	return &RoomManager{
		rooms:           make(map[string]*room),
		maxParticipants: maxParticipants,
	}
}

// Join adds the participant to the room, creating the room if needed.
// The first participant of a room becomes its authority.
func (m *RoomManager) Join(roomID string, p *Participant) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	r, ok := m.rooms[roomID]
	if !ok {
		r = &room{
			id:                    roomID,
			properties:            messages.Properties{},
			participantProperties: make(map[string]messages.Properties),
		}
		m.rooms[roomID] = r
	}
	if r.index(p.ID) >= 0 {
		return fmt.Errorf("participant %s already joined room %s", p.ID, roomID)
	}
	if m.maxParticipants > 0 && len(r.participants) >= m.maxParticipants {
		return ErrRoomFull
	}

	r.participants = append(r.participants, p)
	if r.authorityID == "" {
		r.authorityID = p.ID
	}

	welcome, err := messages.NewJSONMessage(messages.MessageTypeWelcome, &messages.Welcome{
		ParticipantID:         p.ID,
		Participants:          r.ids(),
		AuthorityID:           r.authorityID,
		RoomProperties:        copyProperties(r.properties),
		ParticipantProperties: copyParticipantProperties(r.participantProperties),
	})
	if err != nil {
		return err
	}
	if err := sendTo(p, welcome); err != nil {
		return err
	}

	log.Info("Participant %s (%s) joined room %s", p.ID, p.Name, roomID)
	return m.broadcastMembership(r, messages.MembershipChangeJoin, p.ID, p.ID)
}

// Leave removes the participant. If it was the authority, the earliest
// joined remaining participant is elected. Empty rooms are removed.
func (m *RoomManager) Leave(roomID, participantID string) {
	m.lock.Lock()
	defer m.lock.Unlock()

	r, ok := m.rooms[roomID]
	if !ok {
		return
	}
	i := r.index(participantID)
	if i < 0 {
		return
	}
	r.participants = append(r.participants[:i], r.participants[i+1:]...)
	delete(r.participantProperties, participantID)
	log.Info("Participant %s left room %s", participantID, roomID)

	if len(r.participants) == 0 {
		delete(m.rooms, roomID)
		log.Info("Room %s removed", roomID)
		return
	}

	if err := m.broadcastMembership(r, messages.MembershipChangeLeave, participantID, ""); err != nil {
		log.Error("Failed to broadcast leave of %s: %v", participantID, err)
	}

	if r.authorityID == participantID {
		r.authorityID = r.participants[0].ID
		log.Info("Participant %s elected authority of room %s", r.authorityID, roomID)
		if err := m.broadcastMembership(r, messages.MembershipChangeAuthority, r.authorityID, ""); err != nil {
			log.Error("Failed to broadcast authority switch to %s: %v", r.authorityID, err)
		}
	}
}

// Relay handles a message sent by a participant of the room.
func (m *RoomManager) Relay(roomID, senderID string, msg *messages.Message) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	r, ok := m.rooms[roomID]
	if !ok || r.index(senderID) < 0 {
		return ErrNotMember
	}

	switch {
	case msg.Type.IsGameMessage():
		out := &messages.Message{
			ParticipantID: senderID,
			Type:          msg.Type,
			Payload:       msg.Payload,
		}
		return m.broadcast(r, out, "")
	case msg.Type == messages.MessageTypeSetRoomProperties:
		if senderID != r.authorityID {
			return ErrNotAuthority
		}
		set := &messages.SetRoomProperties{}
		if err := msg.DecodeJSON(set); err != nil {
			return err
		}
		mergeProperties(r.properties, set.Properties)
		return m.broadcastProperties(r, "", set.Properties)
	case msg.Type == messages.MessageTypeSetParticipantProperties:
		set := &messages.SetParticipantProperties{}
		if err := msg.DecodeJSON(set); err != nil {
			return err
		}
		if set.ParticipantID == "" {
			set.ParticipantID = senderID
		}
		if set.ParticipantID != senderID && senderID != r.authorityID {
			return ErrNotAuthority
		}
		if r.index(set.ParticipantID) < 0 {
			return ErrNotMember
		}
		props, ok := r.participantProperties[set.ParticipantID]
		if !ok {
			props = messages.Properties{}
			r.participantProperties[set.ParticipantID] = props
		}
		mergeProperties(props, set.Properties)
		return m.broadcastProperties(r, set.ParticipantID, set.Properties)
	default:
		return fmt.Errorf("unexpected message type %s from %s", msg.Type, senderID)
	}
}

type ParticipantInfo struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joinedAt"`
}

type RoomInfo struct {
	ID                    string                         `json:"id"`
	AuthorityID           string                         `json:"authority"`
	Participants          []ParticipantInfo              `json:"participants"`
	Properties            messages.Properties            `json:"properties"`
	ParticipantProperties map[string]messages.Properties `json:"participantProperties"`
}

func (m *RoomManager) Room(roomID string) (RoomInfo, bool) {
	m.lock.Lock()
	defer m.lock.Unlock()

	r, ok := m.rooms[roomID]
	if !ok {
		return RoomInfo{}, false
	}
	return r.info(), true
}

// Rooms returns every room ordered by ID.
func (m *RoomManager) Rooms() []RoomInfo {
	m.lock.Lock()
	defer m.lock.Unlock()

	infos := make([]RoomInfo, 0, len(m.rooms))
	for _, r := range m.rooms {
		infos = append(infos, r.info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

func (r *room) info() RoomInfo {
	participants := make([]ParticipantInfo, len(r.participants))
	for i, p := range r.participants {
		participants[i] = ParticipantInfo{ID: p.ID, Name: p.Name, JoinedAt: p.JoinedAt}
	}
	return RoomInfo{
		ID:                    r.id,
		AuthorityID:           r.authorityID,
		Participants:          participants,
		Properties:            copyProperties(r.properties),
		ParticipantProperties: copyParticipantProperties(r.participantProperties),
	}
}

func (m *RoomManager) broadcastMembership(r *room, change messages.MembershipChange, participantID, exclude string) error {
	msg, err := messages.NewJSONMessage(messages.MessageTypeMembershipChanged, &messages.MembershipChanged{
		Change:        change,
		ParticipantID: participantID,
	})
	if err != nil {
		return err
	}
	return m.broadcast(r, msg, exclude)
}

func (m *RoomManager) broadcastProperties(r *room, participantID string, props messages.Properties) error {
	msg, err := messages.NewJSONMessage(messages.MessageTypePropertiesChanged, &messages.PropertiesChanged{
		ParticipantID: participantID,
		Properties:    props,
	})
	if err != nil {
		return err
	}
	return m.broadcast(r, msg, "")
}

func (m *RoomManager) broadcast(r *room, msg *messages.Message, exclude string) error {
	frame, err := messages.SerializeMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to serialize message: %v", err)
	}
	for _, p := range r.participants {
		if p.ID == exclude {
			continue
		}
		if !p.Send(frame) {
			log.Warn("Dropped %s for participant %s in room %s", msg.Type, p.ID, r.id)
		}
	}
	return nil
}

func sendTo(p *Participant, msg *messages.Message) error {
	frame, err := messages.SerializeMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to serialize message: %v", err)
	}
	p.Send(frame)
	return nil
}

// mergeProperties applies changes to props. An empty value deletes the key.
func mergeProperties(props, changes messages.Properties) {
	for k, v := range changes {
		if v == "" {
			delete(props, k)
			continue
		}
		props[k] = v
	}
}

func copyProperties(props messages.Properties) messages.Properties {
	c := make(messages.Properties, len(props))
	for k, v := range props {
		c[k] = v
	}
	return c
}

func copyParticipantProperties(props map[string]messages.Properties) map[string]messages.Properties {
	c := make(map[string]messages.Properties, len(props))
	for id, p := range props {
		c[id] = copyProperties(p)
	}
	return c
}
