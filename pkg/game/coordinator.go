package game

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/cbodonnell/vibemod/pkg/game/constants"
	"github.com/cbodonnell/vibemod/pkg/game/types"
	"github.com/cbodonnell/vibemod/pkg/log"
	"github.com/cbodonnell/vibemod/pkg/messages"
	"github.com/cbodonnell/vibemod/pkg/queue"
	"github.com/cbodonnell/vibemod/pkg/random"
	"github.com/cbodonnell/vibemod/pkg/spawns"
	"github.com/cbodonnell/vibemod/pkg/state"
	"github.com/cbodonnell/vibemod/pkg/workers"
)

// Coordinator runs the round lifecycle of one room for the local
// participant. Only the authority mutates round state; every other
// coordinator applies the snapshots the authority broadcasts.
//
// All state is owned by the goroutine running Start. Tick, the mutating
// operations and the accessors must be called from that goroutine; other
// goroutines enqueue commands on the inbound queue and read views through
// the state manager.
type Coordinator struct {
	roomID      string
	localID     string
	authorityID string
	config      Config
	mode        types.GameMode
	state       types.RoundState
	endReason   types.EndReason
	round       uint32
	seq         uint64
	roster      *roster
	rng         *rand.Rand

	inboundQueue        queue.Queue
	broadcastChan       chan<- workers.BroadcastMessage
	saveRoundResultChan chan<- workers.SaveRoundResultRequest
	stateManager        state.StateManager
	onChange            func(*types.View)
	tickInterval        time.Duration

	autoStart      bool
	autoLobbyDelay time.Duration
	endedFor       time.Duration

	dirty bool
}

// NewCoordinatorOptions contains options for creating a new Coordinator.
type NewCoordinatorOptions struct {
	RoomID              string
	Config              Config
	InboundQueue        queue.Queue
	BroadcastChan       chan<- workers.BroadcastMessage
	SaveRoundResultChan chan<- workers.SaveRoundResultRequest
	StateManager        state.StateManager
	// OnChange is called with a fresh view after every tick that changed state.
	OnChange     func(*types.View)
	TickInterval time.Duration
	// AutoStart makes the authority begin preparation as soon as enough
	// participants are present, and return to the lobby AutoLobbyDelay
	// after a round ended.
	AutoStart      bool
	AutoLobbyDelay time.Duration
}

func NewCoordinator(opts NewCoordinatorOptions) (*Coordinator, error) {
	if _, ok := rulesByMode[opts.Config.Mode]; !ok {
		return nil, fmt.Errorf("unknown game mode: %d", opts.Config.Mode)
	}
	if opts.InboundQueue == nil {
		return nil, fmt.Errorf("inbound queue is required")
	}

	seed := opts.Config.Seed
	if seed == 0 {
		var err error
		seed, err = random.NewSeed()
		if err != nil {
			return nil, fmt.Errorf("failed to seed role assignment: %v", err)
		}
	}

	tickInterval := opts.TickInterval
	if tickInterval <= 0 {
		tickInterval = constants.TickInterval
	}

	return &Coordinator{
		roomID:              opts.RoomID,
		config:              opts.Config,
		mode:                opts.Config.Mode,
		state:               types.RoundState{Phase: types.PhaseLobby},
		roster:              newRoster(),
		rng:                 rand.New(rand.NewSource(seed)),
		inboundQueue:        opts.InboundQueue,
		broadcastChan:       opts.BroadcastChan,
		saveRoundResultChan: opts.SaveRoundResultChan,
		stateManager:        opts.StateManager,
		onChange:            opts.OnChange,
		tickInterval:        tickInterval,
		autoStart:           opts.AutoStart,
		autoLobbyDelay:      opts.AutoLobbyDelay,
		dirty:               true,
	}, nil
}

// Start runs the coordinator loop until ctx is cancelled.
func (c *Coordinator) Start(ctx context.Context) error {
	defer c.Stop()

	ticker := time.NewTicker(c.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := c.gameTick(ctx); err != nil {
				log.Error("Failed to run game tick: %v", err)
			}
		}
	}
}

// Stop releases the observer and drops pending inbound items. It is called
// when Start returns and is safe to call more than once.
func (c *Coordinator) Stop() {
	c.onChange = nil
	c.inboundQueue.ClearQueue()
}

// gameTick runs one iteration of the coordinator loop.
func (c *Coordinator) gameTick(ctx context.Context) error {
	c.processEvents()
	c.Tick(c.tickInterval)
	if c.autoStart {
		c.autoAdvance(c.tickInterval)
	}
	return c.publish(ctx)
}

// Tick advances the round timers by dt. It does nothing on replicas.
func (c *Coordinator) Tick(dt time.Duration) {
	if !c.IsAuthority() || !c.state.Timed() {
		return
	}

	c.state.Remaining -= dt
	switch c.state.Phase {
	case types.PhasePreparing:
		if c.state.Remaining <= 0 {
			c.beginRound()
			return
		}
	case types.PhaseActive:
		if c.state.Remaining <= 0 {
			c.endRound(types.EndReasonTimeout)
			return
		}
		if c.checkEndCondition() {
			return
		}
	}

	c.seq++
	c.broadcastRoundState()
	c.dirty = true
}

func (c *Coordinator) autoAdvance(dt time.Duration) {
	if !c.IsAuthority() {
		return
	}
	switch c.state.Phase {
	case types.PhaseLobby:
		if c.roster.size() >= c.timing().minParticipants {
			c.BeginPreparation()
		}
	case types.PhaseEnded:
		c.endedFor += dt
		if c.endedFor >= c.autoLobbyDelay {
			c.ReturnToLobby()
		}
	}
}

// processEvents drains the inbound queue: membership events, local
// commands and messages relayed by the transport.
func (c *Coordinator) processEvents() {
	pending, err := c.inboundQueue.ReadAllMessages()
	if err != nil {
		log.Error("Failed to read inbound queue: %v", err)
		return
	}
	for _, item := range pending {
		c.handleItem(item)
	}
}

func (c *Coordinator) handleItem(item interface{}) {
	switch event := item.(type) {
	case *types.WelcomeEvent:
		c.handleWelcome(event)
	case *types.JoinEvent:
		c.handleJoin(event.ParticipantID)
	case *types.LeaveEvent:
		c.handleLeave(event.ParticipantID)
	case *types.AuthoritySwitchEvent:
		c.handleAuthoritySwitch(event.AuthorityID)
	case *messages.Message:
		c.handleMessage(event)
	case *types.BeginPreparationCommand:
		c.BeginPreparation()
	case *types.StopRoundCommand:
		c.StopRound()
	case *types.ReturnToLobbyCommand:
		c.ReturnToLobby()
	case *types.SetGameModeCommand:
		c.SetGameMode(event.Mode)
	case *types.ReportFoundCommand:
		if c.IsAuthority() {
			c.ReportFound(event.ParticipantID)
		} else {
			c.broadcast(messages.MessageTypeReportFound, &messages.ReportRequest{ParticipantID: event.ParticipantID})
		}
	case *types.ReportInfectedCommand:
		if c.IsAuthority() {
			c.ReportInfected(event.ParticipantID)
		} else {
			c.broadcast(messages.MessageTypeReportInfected, &messages.ReportRequest{ParticipantID: event.ParticipantID})
		}
	default:
		log.Error("Unhandled inbound item type: %T", item)
	}
}

// BeginPreparation moves the room from the lobby into preparation and
// assigns roles for the current game mode.
func (c *Coordinator) BeginPreparation() {
	if !c.IsAuthority() {
		log.Debug("Ignoring begin preparation: not authority")
		return
	}
	if c.state.Phase != types.PhaseLobby {
		log.Debug("Ignoring begin preparation in phase %s", c.state.Phase)
		return
	}
	t := c.timing()
	if n := c.roster.size(); n < t.minParticipants || n > t.maxParticipants {
		log.Debug("Ignoring begin preparation with %d participants, %s needs %d to %d", n, c.mode, t.minParticipants, t.maxParticipants)
		return
	}

	c.round++
	c.roster.resetRound()
	roles := rulesFor(c.mode).assignRoles(c.roster.ids(), c.rng)
	for _, id := range c.roster.ids() {
		c.roster.setRole(id, roles[id])
	}
	c.state = types.RoundState{Phase: types.PhasePreparing, Remaining: t.prepTime}
	c.endReason = ""
	c.seq++

	c.broadcastRoundState()
	for _, id := range c.roster.ids() {
		c.broadcastRole(id)
	}
	c.broadcastRoomProperties()
	c.spawnAll()
	c.dirty = true
	log.Info("Round %d of %s preparing with %d participants", c.round, c.mode, c.roster.size())
}

func (c *Coordinator) beginRound() {
	c.state = types.RoundState{Phase: types.PhaseActive, Remaining: c.timing().roundTime}
	c.seq++
	c.broadcastRoundState()
	c.broadcastRoomProperties()
	c.dirty = true
	log.Info("Round %d active", c.round)
}

// endRound applies the survival bonus when leaving an active round and
// publishes the final score table.
func (c *Coordinator) endRound(reason types.EndReason) {
	if c.state.Phase == types.PhaseActive {
		for _, id := range rulesFor(c.mode).survivors(c.roster) {
			score := c.roster.award(id, constants.SurvivalPoints)
			c.broadcast(messages.MessageTypeScoreUpdate, &messages.ScoreUpdate{ParticipantID: id, Score: score})
		}
	}

	c.state = types.RoundState{Phase: types.PhaseEnded}
	c.endReason = reason
	c.endedFor = 0
	c.seq++

	c.broadcastRoundState()
	c.broadcast(messages.MessageTypeScoreTable, &messages.ScoreTable{Round: c.round, Scores: c.roster.scoreTable()})
	c.broadcastRoomProperties()
	c.saveRoundResult(reason)
	c.dirty = true
	log.Info("Round %d ended: %s", c.round, reason)
}

// StopRound ends a preparing or active round immediately.
func (c *Coordinator) StopRound() {
	if !c.IsAuthority() || !c.state.Timed() {
		log.Debug("Ignoring stop round in phase %s", c.state.Phase)
		return
	}
	c.endRound(types.EndReasonStopped)
}

// ReturnToLobby acknowledges an ended round.
func (c *Coordinator) ReturnToLobby() {
	if !c.IsAuthority() || c.state.Phase != types.PhaseEnded {
		log.Debug("Ignoring return to lobby in phase %s", c.state.Phase)
		return
	}
	c.state = types.RoundState{Phase: types.PhaseLobby}
	c.seq++
	c.broadcastRoundState()
	c.broadcastRoomProperties()
	c.dirty = true
}

// SetGameMode selects the mode of the next round. Only allowed in the lobby.
func (c *Coordinator) SetGameMode(mode types.GameMode) {
	if !c.IsAuthority() || c.state.Phase != types.PhaseLobby {
		log.Debug("Ignoring set game mode in phase %s", c.state.Phase)
		return
	}
	if _, ok := rulesByMode[mode]; !ok {
		log.Warn("Ignoring unknown game mode %d", mode)
		return
	}
	if mode == c.mode {
		return
	}
	c.mode = mode
	c.seq++
	c.broadcast(messages.MessageTypeGameModeChanged, &messages.GameModeChanged{Mode: mode})
	c.broadcastRoundState()
	c.broadcastRoomProperties()
	c.dirty = true
	log.Info("Game mode set to %s", mode)
}

// ReportFound records that a hider was found. Repeated reports of the
// same hider have no further effect.
func (c *Coordinator) ReportFound(participantID string) {
	if !c.IsAuthority() || c.mode != types.GameModeHideAndSeek || c.state.Phase != types.PhaseActive {
		log.Trace("Ignoring found report for %s", participantID)
		return
	}
	if !c.roster.markFound(participantID) {
		return
	}

	seekers := c.roster.withRole(types.RoleSeeker)
	for _, id := range seekers {
		c.roster.award(id, constants.FoundPoints)
	}
	c.broadcast(messages.MessageTypeFound, &messages.Found{ParticipantID: participantID})
	for _, id := range seekers {
		c.broadcast(messages.MessageTypeScoreUpdate, &messages.ScoreUpdate{ParticipantID: id, Score: c.roster.scores[id]})
	}
	c.dirty = true
	log.Info("Participant %s found", participantID)

	c.checkEndCondition()
}

// ReportInfected records that a participant was infected. Repeated reports
// of the same participant have no further effect.
func (c *Coordinator) ReportInfected(participantID string) {
	if !c.IsAuthority() || c.mode != types.GameModeInfection || c.state.Phase != types.PhaseActive {
		log.Trace("Ignoring infected report for %s", participantID)
		return
	}
	if !c.roster.has(participantID) || c.roster.isInfected(participantID) {
		return
	}

	c.roster.setRole(participantID, types.RoleInfected)
	c.broadcast(messages.MessageTypeInfected, &messages.Infected{ParticipantID: participantID})
	c.broadcastParticipantProperties(participantID)
	c.dirty = true
	log.Info("Participant %s infected", participantID)

	c.checkEndCondition()
}

// checkEndCondition ends an active round that fell under the participant
// minimum or whose mode end condition holds.
func (c *Coordinator) checkEndCondition() bool {
	if !c.IsAuthority() || c.state.Phase != types.PhaseActive {
		return false
	}
	counts := c.roster.counts()
	if counts.Total < c.timing().minParticipants {
		c.endRound(types.EndReasonUnderMinimum)
		return true
	}
	if rulesFor(c.mode).endCondition(counts) {
		c.endRound(types.EndReasonCondition)
		return true
	}
	return false
}

func (c *Coordinator) handleWelcome(e *types.WelcomeEvent) {
	c.localID = e.LocalID
	c.authorityID = e.AuthorityID
	c.roster = newRoster()
	for _, id := range e.Participants {
		c.roster.add(id)
	}
	c.roster.add(c.localID)
	c.dirty = true
	log.Info("Joined room %s as %s, authority is %s", c.roomID, c.localID, c.authorityID)

	if c.IsAuthority() {
		c.broadcastFullState()
		return
	}
	c.applyProperties(e.RoomProperties, e.ParticipantProperties)
}

func (c *Coordinator) handleJoin(participantID string) {
	if !c.roster.add(participantID) {
		return
	}
	c.dirty = true
	log.Info("Participant %s joined", participantID)
	if !c.IsAuthority() {
		return
	}

	if c.state.Timed() {
		c.roster.setRole(participantID, rulesFor(c.mode).lateJoinRole)
		c.spawn(participantID)
	}
	c.broadcastFullState()
}

func (c *Coordinator) handleLeave(participantID string) {
	if !c.roster.remove(participantID) {
		return
	}
	c.dirty = true
	log.Info("Participant %s left", participantID)
	c.checkEndCondition()
}

func (c *Coordinator) handleAuthoritySwitch(authorityID string) {
	wasAuthority := c.IsAuthority()
	c.authorityID = authorityID
	c.dirty = true
	log.Info("Authority switched to %s", authorityID)
	if c.IsAuthority() && !wasAuthority {
		// resynchronize replicas with the state as last applied
		c.broadcastFullState()
	}
}

// handleMessage applies a message relayed by the transport.
func (c *Coordinator) handleMessage(msg *messages.Message) {
	if msg.ParticipantID == c.localID {
		return
	}

	switch msg.Type {
	case messages.MessageTypeReportFound, messages.MessageTypeReportInfected:
		if !c.IsAuthority() {
			return
		}
		req := &messages.ReportRequest{}
		if err := msg.DecodeJSON(req); err != nil {
			log.Error("Failed to decode report request: %v", err)
			return
		}
		if msg.Type == messages.MessageTypeReportFound {
			c.ReportFound(req.ParticipantID)
		} else {
			c.ReportInfected(req.ParticipantID)
		}
		return
	}

	if c.IsAuthority() || msg.ParticipantID != c.authorityID {
		log.Debug("Dropping %s from non-authority %s", msg.Type, msg.ParticipantID)
		return
	}
	if err := c.applySnapshot(msg); err != nil {
		log.Error("Failed to apply %s: %v", msg.Type, err)
		return
	}
	c.dirty = true
}

func (c *Coordinator) applySnapshot(msg *messages.Message) error {
	switch msg.Type {
	case messages.MessageTypeRoundStateChanged:
		s, err := messages.DeserializeRoundStateChanged(msg.Payload)
		if err != nil {
			return err
		}
		if s.Seq < c.seq {
			log.Debug("Dropping stale round state %d, applied %d", s.Seq, c.seq)
			return nil
		}
		if s.Round != c.round {
			c.roster.resetRound()
		}
		c.mode = s.Mode
		c.round = s.Round
		c.seq = s.Seq
		c.state = s.RoundState()
	case messages.MessageTypeFound:
		found := &messages.Found{}
		if err := msg.DecodeJSON(found); err != nil {
			return err
		}
		c.roster.markFound(found.ParticipantID)
	case messages.MessageTypeInfected:
		infected := &messages.Infected{}
		if err := msg.DecodeJSON(infected); err != nil {
			return err
		}
		c.roster.setRole(infected.ParticipantID, types.RoleInfected)
	case messages.MessageTypeRoleAssigned:
		assigned := &messages.RoleAssigned{}
		if err := msg.DecodeJSON(assigned); err != nil {
			return err
		}
		c.roster.setRole(assigned.ParticipantID, assigned.Role)
	case messages.MessageTypeScoreUpdate:
		update := &messages.ScoreUpdate{}
		if err := msg.DecodeJSON(update); err != nil {
			return err
		}
		c.roster.setScore(update.ParticipantID, update.Score)
	case messages.MessageTypeScoreTable:
		table := &messages.ScoreTable{}
		if err := msg.DecodeJSON(table); err != nil {
			return err
		}
		for id, score := range table.Scores {
			c.roster.setScore(id, score)
		}
	case messages.MessageTypeSpawned:
		spawned := &messages.Spawned{}
		if err := msg.DecodeJSON(spawned); err != nil {
			return err
		}
		c.roster.setSpawn(spawned.ParticipantID, spawned.Point)
	case messages.MessageTypeGameModeChanged:
		changed := &messages.GameModeChanged{}
		if err := msg.DecodeJSON(changed); err != nil {
			return err
		}
		c.mode = changed.Mode
	default:
		return fmt.Errorf("unexpected message type %s", msg.Type)
	}
	return nil
}

// applyProperties seeds replica state from replicated properties until
// the first snapshot arrives.
func (c *Coordinator) applyProperties(room map[string]string, participants map[string]map[string]string) {
	if v, ok := room[constants.RoomPropertyMode]; ok {
		if mode, err := types.ParseGameMode(v); err == nil {
			c.mode = mode
		}
	}
	if v, ok := room[constants.RoomPropertyPhase]; ok {
		if phase, err := types.ParsePhase(v); err == nil {
			c.state.Phase = phase
		}
	}
	if v, ok := room[constants.RoomPropertyRemainingMs]; ok {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.state.Remaining = time.Duration(ms) * time.Millisecond
		}
	}
	if v, ok := room[constants.RoomPropertyRound]; ok {
		if round, err := strconv.ParseUint(v, 10, 32); err == nil {
			c.round = uint32(round)
		}
	}
	for id, props := range participants {
		if v, ok := props[constants.ParticipantPropertyRole]; ok {
			if role, err := types.ParseRole(v); err == nil {
				c.roster.setRole(id, role)
			}
		}
		if v, ok := props[constants.ParticipantPropertySpawn]; ok {
			if points, err := spawns.ParsePoints(v); err == nil && len(points) == 1 {
				c.roster.setSpawn(id, points[0])
			}
		}
	}
}

func (c *Coordinator) timing() timing {
	return c.config.timingFor(c.mode)
}

func (c *Coordinator) spawnAll() {
	for _, id := range c.roster.ids() {
		c.spawn(id)
	}
}

func (c *Coordinator) spawn(participantID string) {
	if c.config.Spawns == nil {
		return
	}
	role := c.roster.role(participantID)
	p, err := c.config.Spawns.Place(participantID, role)
	if err != nil {
		log.Warn("Failed to place %s as %s: %v", participantID, role, err)
		return
	}
	c.roster.setSpawn(participantID, p)
	c.broadcast(messages.MessageTypeSpawned, &messages.Spawned{ParticipantID: participantID, Point: p})
	c.broadcastParticipantProperties(participantID)
	c.dirty = true
	log.Debug("Placed %s as %s at %s", participantID, role, p)
}

func (c *Coordinator) saveRoundResult(reason types.EndReason) {
	if c.saveRoundResultChan == nil {
		return
	}
	req := workers.SaveRoundResultRequest{
		Room:    c.roomID,
		Round:   c.round,
		Mode:    c.mode,
		Reason:  reason,
		Scores:  c.roster.scoreTable(),
		EndedAt: time.Now(),
	}
	select {
	case c.saveRoundResultChan <- req:
	default:
		log.Warn("Dropped result of round %d: save queue full", c.round)
	}
}

func (c *Coordinator) publish(ctx context.Context) error {
	if !c.dirty {
		return nil
	}
	c.dirty = false
	view := c.View()
	if c.onChange != nil {
		c.onChange(view)
	}
	if c.stateManager != nil {
		if err := c.stateManager.Set(ctx, view); err != nil {
			return fmt.Errorf("failed to set view: %v", err)
		}
	}
	return nil
}
