package workers

import (
	"context"
	"fmt"

	"github.com/cbodonnell/vibemod/pkg/log"
	"github.com/cbodonnell/vibemod/pkg/messages"
)

// MessageSender delivers an encoded message to the transport.
type MessageSender interface {
	SendMessage(ctx context.Context, msg *messages.Message) error
}

type BroadcastMessageWorker struct {
	sender               MessageSender
	broadcastMessageChan <-chan BroadcastMessage
}

type BroadcastMessage struct {
	Type    messages.MessageType
	Message interface{}
}

type NewBroadcastMessageWorkerOptions struct {
	Sender               MessageSender
	BroadcastMessageChan <-chan BroadcastMessage
}

// NewBroadcastMessageWorker creates a new BroadcastMessageWorker.
// The worker encodes messages produced by the coordinator and hands them
// to the transport in the order they were produced.
func NewBroadcastMessageWorker(opts NewBroadcastMessageWorkerOptions) *BroadcastMessageWorker {
	return &BroadcastMessageWorker{
		sender:               opts.Sender,
		broadcastMessageChan: opts.BroadcastMessageChan,
	}
}

func (w *BroadcastMessageWorker) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case b := <-w.broadcastMessageChan:
			msg, err := EncodeBroadcastMessage(b)
			if err != nil {
				log.Error("Failed to encode %s message: %v", b.Type, err)
				continue
			}
			if err := w.sender.SendMessage(ctx, msg); err != nil {
				log.Error("Failed to send %s message: %v", b.Type, err)
			}
		}
	}
}

// EncodeBroadcastMessage builds the envelope for a broadcast message.
// Round state snapshots use their flatbuffer encoding, everything else JSON.
func EncodeBroadcastMessage(b BroadcastMessage) (*messages.Message, error) {
	if b.Type == messages.MessageTypeRoundStateChanged {
		snapshot, ok := b.Message.(*messages.RoundStateChanged)
		if !ok {
			return nil, fmt.Errorf("failed to cast round state changed message")
		}
		return messages.NewRoundStateChangedMessage(snapshot)
	}
	return messages.NewJSONMessage(b.Type, b.Message)
}
