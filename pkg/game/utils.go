package game

import (
	"strconv"

	"github.com/cbodonnell/vibemod/pkg/game/constants"
	"github.com/cbodonnell/vibemod/pkg/game/types"
	"github.com/cbodonnell/vibemod/pkg/log"
	"github.com/cbodonnell/vibemod/pkg/messages"
	"github.com/cbodonnell/vibemod/pkg/workers"
)

// IsAuthority reports whether the local participant is the room authority.
func (c *Coordinator) IsAuthority() bool {
	return c.localID != "" && c.localID == c.authorityID
}

func (c *Coordinator) LocalID() string {
	return c.localID
}

func (c *Coordinator) Mode() types.GameMode {
	return c.mode
}

func (c *Coordinator) State() types.RoundState {
	return c.state
}

func (c *Coordinator) Round() uint32 {
	return c.round
}

func (c *Coordinator) Role(participantID string) types.Role {
	return c.roster.role(participantID)
}

// Scores returns a copy of the score table, including participants that left.
func (c *Coordinator) Scores() map[string]int {
	return c.roster.scoreTable()
}

// View builds a snapshot of the coordinator for presentation.
func (c *Coordinator) View() *types.View {
	participants := make([]types.ParticipantState, 0, c.roster.size())
	for _, id := range c.roster.order {
		state := types.ParticipantState{
			ID:    id,
			Role:  c.roster.role(id),
			Score: c.roster.scores[id],
		}
		if p, ok := c.roster.spawn(id); ok {
			state.Spawn = &p
		}
		participants = append(participants, state)
	}
	counts := c.roster.counts()
	return &types.View{
		LocalID:      c.localID,
		AuthorityID:  c.authorityID,
		IsAuthority:  c.IsAuthority(),
		Mode:         c.mode,
		Round:        c.round,
		Seq:          c.seq,
		State:        c.state,
		EndReason:    c.endReason,
		Participants: participants,
		Scores:       c.roster.scoreTable(),
		Hiding:       counts.Hiding,
		Infected:     counts.Infected,
	}
}

func (c *Coordinator) snapshot() *messages.RoundStateChanged {
	return &messages.RoundStateChanged{
		Phase:           c.state.Phase,
		RemainingMillis: c.state.Remaining.Milliseconds(),
		Mode:            c.mode,
		Round:           c.round,
		Seq:             c.seq,
	}
}

// broadcast hands a message to the broadcast worker without blocking the
// tick. The next snapshot and score table resynchronize phase, timer and
// scores after a drop, but a dropped Found, Infected or RoleAssigned is lost
// to replicas until the next full state broadcast, and for good if the
// authority changes first.
func (c *Coordinator) broadcast(t messages.MessageType, msg interface{}) {
	if c.broadcastChan == nil {
		return
	}
	select {
	case c.broadcastChan <- workers.BroadcastMessage{Type: t, Message: msg}:
	default:
		log.Error("Dropped %s: broadcast queue full", t)
	}
}

func (c *Coordinator) broadcastRoundState() {
	c.broadcast(messages.MessageTypeRoundStateChanged, c.snapshot())
}

func (c *Coordinator) broadcastRole(participantID string) {
	c.broadcast(messages.MessageTypeRoleAssigned, &messages.RoleAssigned{
		ParticipantID: participantID,
		Role:          c.roster.role(participantID),
	})
	c.broadcastParticipantProperties(participantID)
}

// broadcastParticipantProperties mirrors the role and placement of a
// participant into its replicated properties. An empty spawn clears it.
func (c *Coordinator) broadcastParticipantProperties(participantID string) {
	props := messages.Properties{
		constants.ParticipantPropertyRole:  c.roster.role(participantID).String(),
		constants.ParticipantPropertySpawn: "",
	}
	if p, ok := c.roster.spawn(participantID); ok {
		props[constants.ParticipantPropertySpawn] = p.Format()
	}
	c.broadcast(messages.MessageTypeSetParticipantProperties, &messages.SetParticipantProperties{
		ParticipantID: participantID,
		Properties:    props,
	})
}

func (c *Coordinator) broadcastRoomProperties() {
	c.broadcast(messages.MessageTypeSetRoomProperties, &messages.SetRoomProperties{
		Properties: messages.Properties{
			constants.RoomPropertyMode:        c.mode.String(),
			constants.RoomPropertyPhase:       c.state.Phase.String(),
			constants.RoomPropertyRemainingMs: strconv.FormatInt(c.state.Remaining.Milliseconds(), 10),
			constants.RoomPropertyRound:       strconv.FormatUint(uint64(c.round), 10),
		},
	})
}

// broadcastFullState resends everything a replica needs to resynchronize,
// without changing state: the snapshot keeps its sequence number.
func (c *Coordinator) broadcastFullState() {
	c.broadcastRoundState()
	for _, id := range c.roster.order {
		role := c.roster.role(id)
		if role == types.RoleNone {
			continue
		}
		c.broadcast(messages.MessageTypeRoleAssigned, &messages.RoleAssigned{ParticipantID: id, Role: role})
		if role == types.RoleHider && !c.roster.isHiding(id) {
			c.broadcast(messages.MessageTypeFound, &messages.Found{ParticipantID: id})
		}
	}
	for _, id := range c.roster.order {
		if p, ok := c.roster.spawn(id); ok {
			c.broadcast(messages.MessageTypeSpawned, &messages.Spawned{ParticipantID: id, Point: p})
		}
	}
	c.broadcast(messages.MessageTypeScoreTable, &messages.ScoreTable{Round: c.round, Scores: c.roster.scoreTable()})
	c.broadcastRoomProperties()
	for _, id := range c.roster.order {
		c.broadcastParticipantProperties(id)
	}
}
