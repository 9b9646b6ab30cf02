package network

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	authproviders "github.com/cbodonnell/vibemod/pkg/auth/providers"
	"github.com/cbodonnell/vibemod/pkg/log"
	"github.com/cbodonnell/vibemod/pkg/messages"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"nhooyr.io/websocket"
)

const (
	// DefaultSendBufferSize is the number of frames queued per participant
	// before it is considered too slow and disconnected.
	DefaultSendBufferSize = 256
	maxNameLength         = 32
	disconnectEmitTimeout = 5 * time.Second
)

// WSServer accepts participant websocket connections for rooms.
type WSServer struct {
	authProvider        authproviders.AuthProvider
	rooms               *RoomManager
	connectionEventChan chan<- ConnectionEvent
	sendBufferSize      int
	originPatterns      []string
}

type NewWSServerOptions struct {
	AuthProvider        authproviders.AuthProvider
	Rooms               *RoomManager
	ConnectionEventChan chan<- ConnectionEvent
	SendBufferSize      int
	// OriginPatterns are host patterns allowed for cross origin requests.
	OriginPatterns []string
}

func NewWSServer(opts NewWSServerOptions) *WSServer {
	sendBufferSize := opts.SendBufferSize
	if sendBufferSize <= 0 {
		sendBufferSize = DefaultSendBufferSize
	}
	return &WSServer{
		authProvider:        opts.AuthProvider,
		rooms:               opts.Rooms,
		connectionEventChan: opts.ConnectionEventChan,
		sendBufferSize:      sendBufferSize,
		originPatterns:      opts.OriginPatterns,
	}
}

// RoomVar returns the decoded {room} route variable. Routers serving it
// match on the encoded path so a room may contain a slash.
func RoomVar(r *http.Request) (string, error) {
	return url.PathUnescape(mux.Vars(r)["room"])
}

// HandleRoom serves GET /rooms/{room}/ws.
func (s *WSServer) HandleRoom(w http.ResponseWriter, r *http.Request) {
	roomID, err := RoomVar(r)
	if err != nil || roomID == "" {
		http.Error(w, "missing room", http.StatusBadRequest)
		return
	}

	// a missing token is only accepted by providers that allow it
	token, _ := authproviders.BearerToken(r)
	claims, err := s.authProvider.VerifyToken(r.Context(), token)
	if err != nil {
		log.Error("failed to verify token: %v", err)
		http.Error(w, "failed to verify token", http.StatusUnauthorized)
		return
	}

	name := r.URL.Query().Get("name")
	if len(name) > maxNameLength {
		name = name[:maxNameLength]
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.originPatterns,
	})
	if err != nil {
		log.Error("Failed to accept WebSocket: %v", err)
		return
	}
	conn.SetReadLimit(messages.MessageBufferSize)

	p := NewParticipant(uuid.NewString(), name, claims.UID, s.sendBufferSize)
	log.Debug("New WebSocket connection from %s for room %s as %s", r.RemoteAddr, roomID, p.ID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if !s.emit(ctx, ConnectionEvent{Type: ConnectionEventTypeConnect, RoomID: roomID, Participant: p}) {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}

	go s.writeLoop(ctx, cancel, conn, p)
	s.readLoop(ctx, conn, roomID, p)

	cancel()
	p.Close("connection closed")
	// the request context is already done
	emitCtx, emitCancel := context.WithTimeout(context.Background(), disconnectEmitTimeout)
	defer emitCancel()
	if !s.emit(emitCtx, ConnectionEvent{Type: ConnectionEventTypeDisconnect, RoomID: roomID, Participant: p}) {
		log.Warn("Dropped disconnect event for %s", p.ID)
	}
	conn.Close(websocket.StatusNormalClosure, "")
}

func (s *WSServer) emit(ctx context.Context, event ConnectionEvent) bool {
	select {
	case s.connectionEventChan <- event:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *WSServer) readLoop(ctx context.Context, conn *websocket.Conn, roomID string, p *Participant) {
	for {
		msg, err := ReadMessageFromWS(ctx, conn)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && !errors.Is(err, context.Canceled) {
				log.Error("Error reading WebSocket message from %s: %v", p.ID, err)
			}
			log.Trace("Connection closed for %s", p.ID)
			return
		}

		if err := s.rooms.Relay(roomID, p.ID, msg); err != nil {
			log.Debug("Failed to relay %s from %s: %v", msg.Type, p.ID, err)
		}
	}
}

func (s *WSServer) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, p *Participant) {
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.Done():
			if ctx.Err() == nil {
				conn.Close(websocket.StatusPolicyViolation, p.CloseReason())
			}
			return
		case frame := <-p.Outbound():
			if err := conn.Write(ctx, websocket.MessageBinary, frame); err != nil {
				log.Debug("Failed to write to %s: %v", p.ID, err)
				return
			}
		}
	}
}

// WriteMessageToWS writes a Message to a WebSocket connection
func WriteMessageToWS(ctx context.Context, conn *websocket.Conn, msg *messages.Message) error {
	b, err := messages.SerializeMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to serialize message: %v", err)
	}

	if err := conn.Write(ctx, websocket.MessageBinary, b); err != nil {
		return fmt.Errorf("failed to write message to WebSocket connection: %v", err)
	}

	return nil
}

// ReadMessageFromWS reads a Message from a WebSocket connection
func ReadMessageFromWS(ctx context.Context, conn *websocket.Conn) (*messages.Message, error) {
	for {
		typ, b, err := conn.Read(ctx)
		if err != nil {
			return nil, err
		}
		if typ != websocket.MessageBinary {
			log.Debug("Ignoring non-binary WebSocket message")
			continue
		}

		msg, err := messages.DeserializeMessage(b)
		if err != nil {
			log.Warn("Failed to deserialize message: %v", err)
			continue
		}
		return msg, nil
	}
}
