package messages

import (
	"testing"
	"time"

	"github.com/cbodonnell/vibemod/pkg/game/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeDeserializeMessage(t *testing.T) {
	found, err := NewJSONMessage(MessageTypeFound, Found{ParticipantID: "p2"})
	require.NoError(t, err)
	found.ParticipantID = "p1"

	snapshot, err := NewRoundStateChangedMessage(&RoundStateChanged{
		Phase:           types.PhaseActive,
		RemainingMillis: 12_500,
		Mode:            types.GameModeInfection,
		Round:           3,
		Seq:             42,
	})
	require.NoError(t, err)

	tests := []struct {
		name string
		msg  *Message
	}{
		{name: "json payload", msg: found},
		{name: "flatbuffer payload", msg: snapshot},
		{name: "relay message without sender", msg: &Message{Type: MessageTypeMembershipChanged, Payload: []byte(`{"change":"join","participant":"p9"}`)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := SerializeMessage(tt.msg)
			require.NoError(t, err)

			got, err := DeserializeMessage(b)
			require.NoError(t, err)
			assert.Equal(t, tt.msg.ParticipantID, got.ParticipantID)
			assert.Equal(t, tt.msg.Type, got.Type)
			assert.Equal(t, []byte(tt.msg.Payload), []byte(got.Payload))
		})
	}
}

func TestSerializeMessage_missingType(t *testing.T) {
	_, err := SerializeMessage(&Message{Payload: []byte("{}")})
	assert.Error(t, err)
}

func TestDeserializeMessage_garbage(t *testing.T) {
	_, err := DeserializeMessage([]byte("not zstd"))
	assert.Error(t, err)
}

func TestRoundStateChanged(t *testing.T) {
	tests := []struct {
		name     string
		snapshot RoundStateChanged
	}{
		{name: "lobby zero values", snapshot: RoundStateChanged{}},
		{name: "preparing", snapshot: RoundStateChanged{Phase: types.PhasePreparing, RemainingMillis: 30_000, Mode: types.GameModeHideAndSeek, Round: 1, Seq: 1}},
		{name: "ended sandbox", snapshot: RoundStateChanged{Phase: types.PhaseEnded, Mode: types.GameModeSandbox, Round: 7, Seq: 9001}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b1, err := SerializeRoundStateChanged(&tt.snapshot)
			require.NoError(t, err)
			b2, err := SerializeRoundStateChanged(&tt.snapshot)
			require.NoError(t, err)
			assert.Equal(t, b1, b2, "encoding must be deterministic")

			got, err := DeserializeRoundStateChanged(b1)
			require.NoError(t, err)
			assert.Equal(t, tt.snapshot, *got)
		})
	}
}

func TestRoundStateChanged_RoundState(t *testing.T) {
	s := &RoundStateChanged{Phase: types.PhaseActive, RemainingMillis: 1500}
	assert.Equal(t, types.RoundState{Phase: types.PhaseActive, Remaining: 1500 * time.Millisecond}, s.RoundState())
}

func TestDeserializeRoundStateChanged_short(t *testing.T) {
	_, err := DeserializeRoundStateChanged([]byte{1})
	assert.Error(t, err)
}

func TestMessageType_IsGameMessage(t *testing.T) {
	assert.True(t, MessageTypeRoundStateChanged.IsGameMessage())
	assert.True(t, MessageTypeReportInfected.IsGameMessage())
	assert.True(t, MessageTypeSpawned.IsGameMessage())
	assert.False(t, MessageTypeWelcome.IsGameMessage())
	assert.False(t, MessageTypePropertiesChanged.IsGameMessage())
	assert.False(t, MessageType(0).IsGameMessage())
}
