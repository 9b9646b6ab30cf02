package network

import (
	"sync"
	"time"
)

// Participant is one websocket connection joined to a room.
type Participant struct {
	ID       string
	Name     string
	UserID   string
	JoinedAt time.Time

	outbound    chan []byte
	done        chan struct{}
	closeOnce   sync.Once
	closeReason string
}

func NewParticipant(id, name, userID string, bufferSize int) *Participant {
	return &Participant{
		ID:       id,
		Name:     name,
		UserID:   userID,
		JoinedAt: time.Now(),
		outbound: make(chan []byte, bufferSize),
		done:     make(chan struct{}),
	}
}

// Send queues a serialized frame for the participant's writer. It never
// blocks. A participant that cannot keep up is closed, since dropping a
// frame would break in-order delivery.
func (p *Participant) Send(frame []byte) bool {
	select {
	case <-p.done:
		return false
	default:
	}
	select {
	case p.outbound <- frame:
		return true
	default:
		p.Close("send buffer full")
		return false
	}
}

func (p *Participant) Outbound() <-chan []byte {
	return p.outbound
}

// Close marks the participant closed. Only the first reason is kept.
func (p *Participant) Close(reason string) {
	p.closeOnce.Do(func() {
		p.closeReason = reason
		close(p.done)
	})
}

func (p *Participant) Done() <-chan struct{} {
	return p.done
}

// CloseReason is only valid after Done is closed.
func (p *Participant) CloseReason() string {
	return p.closeReason
}
