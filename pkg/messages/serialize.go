package messages

import (
	"fmt"
	"sync"
	"time"

	messagefb "github.com/cbodonnell/vibemod/flatbuffers/message"
	snapshotfb "github.com/cbodonnell/vibemod/flatbuffers/snapshot"
	"github.com/cbodonnell/vibemod/pkg/game/types"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/klauspost/compress/zstd"
)

var (
	codecOnce sync.Once
	codecErr  error
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
)

func initCodec() error {
	codecOnce.Do(func() {
		encoder, codecErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
		if codecErr != nil {
			codecErr = fmt.Errorf("failed to create zstd writer: %v", codecErr)
			return
		}
		decoder, codecErr = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MessageBufferSize*16))
		if codecErr != nil {
			codecErr = fmt.Errorf("failed to create zstd reader: %v", codecErr)
		}
	})
	return codecErr
}

// SerializeMessage encodes the envelope as a flatbuffer and compresses it.
func SerializeMessage(m *Message) ([]byte, error) {
	if err := initCodec(); err != nil {
		return nil, err
	}
	b, err := SerializeMessageFlatbuffer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize message: %v", err)
	}
	return encoder.EncodeAll(b, make([]byte, 0, len(b))), nil
}

func DeserializeMessage(data []byte) (*Message, error) {
	if err := initCodec(); err != nil {
		return nil, err
	}
	b, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress message: %v", err)
	}

	message, err := DeserializeMessageFlatbuffer(b)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize message: %v", err)
	}

	return message, nil
}

func SerializeMessageFlatbuffer(m *Message) ([]byte, error) {
	if m.Type == 0 {
		return nil, fmt.Errorf("message type is not set")
	}
	builder := flatbuffers.NewBuilder(len(m.Payload) + 64)

	participantID := builder.CreateString(m.ParticipantID)
	payload := builder.CreateByteVector(m.Payload)

	messagefb.MessageStart(builder)
	messagefb.MessageAddParticipantId(builder, participantID)
	messagefb.MessageAddType(builder, byte(m.Type))
	messagefb.MessageAddPayload(builder, payload)
	messageOffset := messagefb.MessageEnd(builder)
	builder.Finish(messageOffset)

	return builder.FinishedBytes(), nil
}

func DeserializeMessageFlatbuffer(b []byte) (m *Message, err error) {
	// the generated accessors panic on truncated input
	defer func() {
		if r := recover(); r != nil {
			m, err = nil, fmt.Errorf("malformed message flatbuffer: %v", r)
		}
	}()
	if len(b) < flatbuffers.SizeUOffsetT {
		return nil, fmt.Errorf("message flatbuffer too short: %d bytes", len(b))
	}
	messageFlatbuffer := messagefb.GetRootAsMessage(b, 0)
	message := &Message{
		ParticipantID: string(messageFlatbuffer.ParticipantId()),
		Type:          MessageType(messageFlatbuffer.Type()),
	}
	if payload := messageFlatbuffer.PayloadBytes(); payload != nil {
		message.Payload = append([]byte(nil), payload...)
	}
	if message.Type == 0 {
		return nil, fmt.Errorf("message type is not set")
	}

	return message, nil
}

// SerializeRoundStateChanged encodes the snapshot. Equal snapshots always
// encode to equal bytes.
func SerializeRoundStateChanged(s *RoundStateChanged) ([]byte, error) {
	builder := flatbuffers.NewBuilder(64)
	snapshotfb.RoundStateChangedStart(builder)
	snapshotfb.RoundStateChangedAddSeq(builder, s.Seq)
	snapshotfb.RoundStateChangedAddRemainingMs(builder, s.RemainingMillis)
	snapshotfb.RoundStateChangedAddRound(builder, s.Round)
	snapshotfb.RoundStateChangedAddPhase(builder, byte(s.Phase))
	snapshotfb.RoundStateChangedAddMode(builder, byte(s.Mode))
	snapshot := snapshotfb.RoundStateChangedEnd(builder)
	builder.Finish(snapshot)
	return builder.FinishedBytes(), nil
}

func DeserializeRoundStateChanged(b []byte) (s *RoundStateChanged, err error) {
	defer func() {
		if r := recover(); r != nil {
			s, err = nil, fmt.Errorf("malformed round state flatbuffer: %v", r)
		}
	}()
	if len(b) < flatbuffers.SizeUOffsetT {
		return nil, fmt.Errorf("round state flatbuffer too short: %d bytes", len(b))
	}
	fb := snapshotfb.GetRootAsRoundStateChanged(b, 0)
	s = &RoundStateChanged{
		Phase:           types.Phase(fb.Phase()),
		RemainingMillis: fb.RemainingMs(),
		Mode:            types.GameMode(fb.Mode()),
		Round:           fb.Round(),
		Seq:             fb.Seq(),
	}
	if s.Phase > types.PhaseEnded {
		return nil, fmt.Errorf("unknown phase %d", s.Phase)
	}
	if s.Mode > types.GameModeSandbox {
		return nil, fmt.Errorf("unknown game mode %d", s.Mode)
	}
	return s, nil
}

// NewRoundStateChangedMessage wraps a snapshot in an envelope.
func NewRoundStateChangedMessage(s *RoundStateChanged) (*Message, error) {
	payload, err := SerializeRoundStateChanged(s)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize round state: %v", err)
	}
	return &Message{
		Type:    MessageTypeRoundStateChanged,
		Payload: payload,
	}, nil
}

// RoundState converts the snapshot into the replicated state it describes.
func (s *RoundStateChanged) RoundState() types.RoundState {
	return types.RoundState{
		Phase:     s.Phase,
		Remaining: time.Duration(s.RemainingMillis) * time.Millisecond,
	}
}
