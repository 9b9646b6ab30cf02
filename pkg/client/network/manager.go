package network

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cbodonnell/vibemod/pkg/log"
	"github.com/cbodonnell/vibemod/pkg/messages"
	"github.com/cbodonnell/vibemod/pkg/queue"
)

const (
	DefaultWelcomeTimeout = 5 * time.Second
	DefaultPingInterval   = 5 * time.Second
)

// NetworkManager connects the local peer to one relay room and keeps the
// connection measured.
type NetworkManager struct {
	client         *WSClient
	token          string
	messageQueue   queue.Queue
	welcomeChan    chan *messages.Welcome
	welcomeTimeout time.Duration
	pingInterval   time.Duration

	clientErrChan   chan error
	cancelClientCtx context.CancelFunc
	clientWaitGroup *sync.WaitGroup

	lock       sync.Mutex
	localID    string
	ping       time.Duration
	recentRTTs []time.Duration
}

type NewNetworkManagerOptions struct {
	ServerURL      string
	Room           string
	Name           string
	Token          string
	MessageQueue   queue.Queue
	WelcomeTimeout time.Duration
	PingInterval   time.Duration
}

// NewNetworkManager creates a new network manager.
func NewNetworkManager(opts NewNetworkManagerOptions) (*NetworkManager, error) {
	if opts.MessageQueue == nil {
		return nil, fmt.Errorf("message queue is required")
	}
	roomURL, err := RoomURL(opts.ServerURL, opts.Room, opts.Name)
	if err != nil {
		return nil, err
	}

	welcomeTimeout := opts.WelcomeTimeout
	if welcomeTimeout <= 0 {
		welcomeTimeout = DefaultWelcomeTimeout
	}
	pingInterval := opts.PingInterval
	if pingInterval <= 0 {
		pingInterval = DefaultPingInterval
	}

	welcomeChan := make(chan *messages.Welcome, 1)
	return &NetworkManager{
		client:          NewWSClient(roomURL, opts.MessageQueue, welcomeChan),
		token:           opts.Token,
		messageQueue:    opts.MessageQueue,
		welcomeChan:     welcomeChan,
		welcomeTimeout:  welcomeTimeout,
		pingInterval:    pingInterval,
		clientErrChan:   make(chan error, 1),
		clientWaitGroup: &sync.WaitGroup{},
	}, nil
}

// Start connects to the relay and blocks until the room welcomed the peer.
func (m *NetworkManager) Start(ctx context.Context) error {
	if err := m.client.Connect(ctx, m.token); err != nil {
		return err
	}

	clientCtx, cancel := context.WithCancel(context.Background())
	m.cancelClientCtx = cancel

	m.clientWaitGroup.Add(1)
	go func() {
		defer m.clientWaitGroup.Done()
		if err := m.client.HandleMessages(clientCtx); err != nil {
			m.clientErrChan <- err
		}
	}()

	select {
	case welcome := <-m.welcomeChan:
		m.lock.Lock()
		m.localID = welcome.ParticipantID
		m.lock.Unlock()
		log.Info("Joined relay room as %s with %d participants", welcome.ParticipantID, len(welcome.Participants))
	case err := <-m.clientErrChan:
		m.Stop()
		return fmt.Errorf("failed to join room: %v", err)
	case <-time.After(m.welcomeTimeout):
		m.Stop()
		return ErrWelcomeTimeout
	case <-ctx.Done():
		m.Stop()
		return ctx.Err()
	}

	m.clientWaitGroup.Add(1)
	go func() {
		defer m.clientWaitGroup.Done()
		m.startPing(clientCtx)
	}()

	return nil
}

func (m *NetworkManager) startPing(ctx context.Context) {
	ticker := time.NewTicker(m.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			pingCtx, cancel := context.WithTimeout(ctx, m.pingInterval)
			err := m.client.Ping(pingCtx)
			cancel()
			if err != nil {
				if ctx.Err() == nil {
					log.Warn("Failed to ping relay: %v", err)
				}
				continue
			}
			m.recordRTT(time.Since(start))
		}
	}
}

func (m *NetworkManager) recordRTT(rtt time.Duration) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.recentRTTs, m.ping = averageRTT(m.recentRTTs, rtt)
	log.Trace("Relay ping: %s", m.ping)
}

// Stop closes the connection and clears the message queue.
func (m *NetworkManager) Stop() {
	if m.cancelClientCtx == nil {
		log.Warn("Network manager already stopped")
		return
	}
	m.cancelClientCtx()

	if err := m.client.Close(); err != nil {
		log.Warn("Failed to close relay connection: %v", err)
	}

	log.Debug("Waiting for client to stop")
	m.clientWaitGroup.Wait()
	m.messageQueue.ClearQueue()

	m.cancelClientCtx = nil
	log.Info("Network manager stopped")
}

// SendMessage implements workers.MessageSender.
func (m *NetworkManager) SendMessage(ctx context.Context, msg *messages.Message) error {
	msg.ParticipantID = m.LocalID()
	return m.client.SendMessage(ctx, msg)
}

// ClientErrChan reports the error that ended the connection.
func (m *NetworkManager) ClientErrChan() <-chan error {
	return m.clientErrChan
}

func (m *NetworkManager) LocalID() string {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.localID
}

func (m *NetworkManager) Ping() time.Duration {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.ping
}

func (m *NetworkManager) RoomProperties() map[string]string {
	return m.client.RoomProperties()
}
