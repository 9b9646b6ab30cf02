package network

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/cbodonnell/vibemod/pkg/game/types"
	"github.com/cbodonnell/vibemod/pkg/log"
	"github.com/cbodonnell/vibemod/pkg/messages"
	servernetwork "github.com/cbodonnell/vibemod/pkg/network"
	"github.com/cbodonnell/vibemod/pkg/queue"
	"nhooyr.io/websocket"
)

// WSClient is the connection of a peer to a relay room.
type WSClient struct {
	serverURL    string
	messageQueue queue.Queue
	welcomeChan  chan<- *messages.Welcome

	connLock sync.RWMutex
	conn     *websocket.Conn

	properties *propertyCache
}

// NewWSClient creates a new WebSocket client. Relayed game messages and
// membership events are enqueued on messageQueue in arrival order.
func NewWSClient(serverURL string, messageQueue queue.Queue, welcomeChan chan<- *messages.Welcome) *WSClient {
	return &WSClient{
		serverURL:    serverURL,
		messageQueue: messageQueue,
		welcomeChan:  welcomeChan,
		properties:   newPropertyCache(),
	}
}

// RoomURL builds the websocket endpoint of a room on a relay.
func RoomURL(server, room, name string) (string, error) {
	u, err := url.Parse(server)
	if err != nil {
		return "", fmt.Errorf("failed to parse server url: %v", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported server url scheme: %s", u.Scheme)
	}
	// Path holds the decoded room, RawPath its escaped form, so u.String
	// escapes the room exactly once.
	base := strings.TrimSuffix(u.EscapedPath(), "/")
	u.Path = strings.TrimSuffix(u.Path, "/") + "/rooms/" + room + "/ws"
	u.RawPath = base + "/rooms/" + url.PathEscape(room) + "/ws"
	if name != "" {
		q := u.Query()
		q.Set("name", name)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Connect establishes a connection to the relay.
func (c *WSClient) Connect(ctx context.Context, token string) error {
	log.Info("Connecting to relay at %s", c.serverURL)
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, _, err := websocket.Dial(ctx, c.serverURL, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		return fmt.Errorf("failed to connect to relay: %v", err)
	}
	conn.SetReadLimit(messages.MessageBufferSize)

	c.connLock.Lock()
	c.conn = conn
	c.connLock.Unlock()
	return nil
}

func (c *WSClient) getConn() *websocket.Conn {
	c.connLock.RLock()
	defer c.connLock.RUnlock()
	return c.conn
}

// HandleMessages reads from the relay until the connection closes or ctx is
// cancelled. Messages are handled one at a time to keep relay order.
func (c *WSClient) HandleMessages(ctx context.Context) error {
	conn := c.getConn()
	if conn == nil {
		return ErrNotConnected
	}
	for {
		msg, err := servernetwork.ReadMessageFromWS(ctx, conn)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				return ErrConnectionClosedByServer
			}
			return fmt.Errorf("failed to read from relay: %v", err)
		}

		if err := c.handleMessage(msg); err != nil {
			if errors.Is(err, ErrMembershipDropped) {
				conn.Close(websocket.StatusTryAgainLater, "inbound queue full")
				return err
			}
			log.Error("Failed to handle message: %v", err)
		}
	}
}

// handleMessage processes a received message.
func (c *WSClient) handleMessage(msg *messages.Message) error {
	log.Trace("Received %s from relay", msg.Type)

	switch msg.Type {
	case messages.MessageTypeWelcome:
		welcome := &messages.Welcome{}
		if err := msg.DecodeJSON(welcome); err != nil {
			return err
		}
		c.properties.reset(welcome.RoomProperties, welcome.ParticipantProperties)
		if err := c.messageQueue.Enqueue(welcomeEvent(welcome)); err != nil {
			return fmt.Errorf("%w: failed to enqueue welcome: %v", ErrMembershipDropped, err)
		}
		if c.welcomeChan != nil {
			select {
			case c.welcomeChan <- welcome:
			default:
			}
		}
	case messages.MessageTypeMembershipChanged:
		changed := &messages.MembershipChanged{}
		if err := msg.DecodeJSON(changed); err != nil {
			return err
		}
		var event interface{}
		switch changed.Change {
		case messages.MembershipChangeJoin:
			event = &types.JoinEvent{ParticipantID: changed.ParticipantID}
		case messages.MembershipChangeLeave:
			c.properties.forget(changed.ParticipantID)
			event = &types.LeaveEvent{ParticipantID: changed.ParticipantID}
		case messages.MembershipChangeAuthority:
			event = &types.AuthoritySwitchEvent{AuthorityID: changed.ParticipantID}
		default:
			return fmt.Errorf("unknown membership change: %s", changed.Change)
		}
		if err := c.messageQueue.Enqueue(event); err != nil {
			return fmt.Errorf("%w: failed to enqueue %s of %s: %v", ErrMembershipDropped, changed.Change, changed.ParticipantID, err)
		}
	case messages.MessageTypePropertiesChanged:
		changed := &messages.PropertiesChanged{}
		if err := msg.DecodeJSON(changed); err != nil {
			return err
		}
		c.properties.merge(changed.ParticipantID, changed.Properties)
	default:
		if !msg.Type.IsGameMessage() {
			return fmt.Errorf("received unexpected message type from relay: %s", msg.Type)
		}
		if err := c.messageQueue.Enqueue(msg); err != nil {
			return fmt.Errorf("failed to enqueue message: %v", err)
		}
	}

	return nil
}

func welcomeEvent(w *messages.Welcome) *types.WelcomeEvent {
	participantProperties := make(map[string]map[string]string, len(w.ParticipantProperties))
	for id, props := range w.ParticipantProperties {
		participantProperties[id] = props
	}
	return &types.WelcomeEvent{
		LocalID:               w.ParticipantID,
		Participants:          w.Participants,
		AuthorityID:           w.AuthorityID,
		RoomProperties:        w.RoomProperties,
		ParticipantProperties: participantProperties,
	}
}

// SendMessage sends a message to the relay.
func (c *WSClient) SendMessage(ctx context.Context, msg *messages.Message) error {
	conn := c.getConn()
	if conn == nil {
		return ErrNotConnected
	}
	return servernetwork.WriteMessageToWS(ctx, conn, msg)
}

// Ping round-trips a websocket ping. HandleMessages must be running.
func (c *WSClient) Ping(ctx context.Context) error {
	conn := c.getConn()
	if conn == nil {
		return ErrNotConnected
	}
	return conn.Ping(ctx)
}

// Close closes the WebSocket connection.
func (c *WSClient) Close() error {
	c.connLock.Lock()
	defer c.connLock.Unlock()
	if c.conn == nil {
		log.Warn("WebSocket connection is already closed")
		return nil
	}
	err := c.conn.Close(websocket.StatusNormalClosure, "")
	c.conn = nil
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to close WebSocket connection: %v", err)
	}
	return nil
}

// RoomProperties returns a copy of the last known room properties.
func (c *WSClient) RoomProperties() map[string]string {
	return c.properties.room()
}

// ParticipantProperties returns a copy of the last known properties of a participant.
func (c *WSClient) ParticipantProperties(participantID string) map[string]string {
	return c.properties.participant(participantID)
}

// propertyCache mirrors the properties replicated by the relay.
type propertyCache struct {
	lock         sync.RWMutex
	roomProps    map[string]string
	participants map[string]map[string]string
}

func newPropertyCache() *propertyCache {
	return &propertyCache{
		roomProps:    make(map[string]string),
		participants: make(map[string]map[string]string),
	}
}

func (p *propertyCache) reset(room messages.Properties, participants map[string]messages.Properties) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.roomProps = copyProperties(room)
	p.participants = make(map[string]map[string]string, len(participants))
	for id, props := range participants {
		p.participants[id] = copyProperties(props)
	}
}

// merge applies a change; an empty value deletes the key.
func (p *propertyCache) merge(participantID string, props messages.Properties) {
	p.lock.Lock()
	defer p.lock.Unlock()
	target := p.roomProps
	if participantID != "" {
		target = p.participants[participantID]
		if target == nil {
			target = make(map[string]string)
			p.participants[participantID] = target
		}
	}
	for k, v := range props {
		if v == "" {
			delete(target, k)
			continue
		}
		target[k] = v
	}
}

func (p *propertyCache) forget(participantID string) {
	p.lock.Lock()
	defer p.lock.Unlock()
	delete(p.participants, participantID)
}

func (p *propertyCache) room() map[string]string {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return copyProperties(p.roomProps)
}

func (p *propertyCache) participant(participantID string) map[string]string {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return copyProperties(p.participants[participantID])
}

func copyProperties(props map[string]string) map[string]string {
	c := make(map[string]string, len(props))
	for k, v := range props {
		c[k] = v
	}
	return c
}
