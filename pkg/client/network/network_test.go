package network

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	authproviders "github.com/cbodonnell/vibemod/pkg/auth/providers"
	"github.com/cbodonnell/vibemod/pkg/game/types"
	"github.com/cbodonnell/vibemod/pkg/messages"
	servernetwork "github.com/cbodonnell/vibemod/pkg/network"
	"github.com/cbodonnell/vibemod/pkg/queue"
	"github.com/cbodonnell/vibemod/pkg/workers"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomURL(t *testing.T) {
	tests := []struct {
		name    string
		server  string
		room    string
		player  string
		want    string
		wantErr bool
	}{
		{name: "http", server: "http://localhost:8080", room: "r1", want: "ws://localhost:8080/rooms/r1/ws"},
		{name: "https with path", server: "https://relay.example.com/api/", room: "r1", want: "wss://relay.example.com/api/rooms/r1/ws"},
		{name: "name and escaping", server: "ws://localhost", room: "my room", player: "bob", want: "ws://localhost/rooms/my%20room/ws?name=bob"},
		{name: "slash in room", server: "http://localhost", room: "a/b", want: "ws://localhost/rooms/a%2Fb/ws"},
		{name: "escaped base path", server: "http://localhost/my%20relay", room: "r 1", want: "ws://localhost/my%20relay/rooms/r%201/ws"},
		{name: "bad scheme", server: "ftp://localhost", room: "r1", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RoomURL(tt.server, tt.room, tt.player)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAverageRTT(t *testing.T) {
	var recent []time.Duration
	var avg time.Duration
	for _, rtt := range []time.Duration{10, 12, 14} {
		recent, avg = averageRTT(recent, rtt*time.Millisecond)
	}
	assert.Equal(t, 12*time.Millisecond, avg)

	// a spike is ignored once it is an outlier
	recent, avg = averageRTT(recent, 500*time.Millisecond)
	assert.Equal(t, 12*time.Millisecond, avg)
	assert.Len(t, recent, 4)

	for i := 0; i < 20; i++ {
		recent, _ = averageRTT(recent, 10*time.Millisecond)
	}
	assert.Len(t, recent, maxRecentRTTs)
}

func TestMedianRTT(t *testing.T) {
	assert.Equal(t, time.Duration(0), medianRTT(nil))
	assert.Equal(t, 2*time.Millisecond, medianRTT([]time.Duration{3 * time.Millisecond, time.Millisecond, 2 * time.Millisecond}))
	assert.Equal(t, 15*time.Millisecond, medianRTT([]time.Duration{10 * time.Millisecond, 20 * time.Millisecond}))
}

func TestWSClient_handleMessage(t *testing.T) {
	q := queue.NewInMemoryQueue(16)
	welcomeChan := make(chan *messages.Welcome, 1)
	c := NewWSClient("ws://unused", q, welcomeChan)

	welcome, err := messages.NewJSONMessage(messages.MessageTypeWelcome, &messages.Welcome{
		ParticipantID:  "b",
		Participants:   []string{"a", "b"},
		AuthorityID:    "a",
		RoomProperties: messages.Properties{"mode": "infection"},
		ParticipantProperties: map[string]messages.Properties{
			"a": {"role": "infected"},
		},
	})
	require.NoError(t, err)
	require.NoError(t, c.handleMessage(welcome))

	for _, change := range []messages.MembershipChanged{
		{Change: messages.MembershipChangeJoin, ParticipantID: "c"},
		{Change: messages.MembershipChangeLeave, ParticipantID: "a"},
		{Change: messages.MembershipChangeAuthority, ParticipantID: "b"},
	} {
		msg, err := messages.NewJSONMessage(messages.MessageTypeMembershipChanged, &change)
		require.NoError(t, err)
		require.NoError(t, c.handleMessage(msg))
	}

	found, err := messages.NewJSONMessage(messages.MessageTypeFound, &messages.Found{ParticipantID: "c"})
	require.NoError(t, err)
	found.ParticipantID = "b"
	require.NoError(t, c.handleMessage(found))

	props, err := messages.NewJSONMessage(messages.MessageTypePropertiesChanged, &messages.PropertiesChanged{
		Properties: messages.Properties{"mode": "", "phase": "active"},
	})
	require.NoError(t, err)
	require.NoError(t, c.handleMessage(props))

	unexpected, err := messages.NewJSONMessage(messages.MessageTypeSetRoomProperties, &messages.SetRoomProperties{})
	require.NoError(t, err)
	assert.Error(t, c.handleMessage(unexpected))

	items, err := q.ReadAllMessages()
	require.NoError(t, err)
	require.Len(t, items, 5)
	assert.Equal(t, &types.WelcomeEvent{
		LocalID:               "b",
		Participants:          []string{"a", "b"},
		AuthorityID:           "a",
		RoomProperties:        map[string]string{"mode": "infection"},
		ParticipantProperties: map[string]map[string]string{"a": {"role": "infected"}},
	}, items[0])
	assert.Equal(t, &types.JoinEvent{ParticipantID: "c"}, items[1])
	assert.Equal(t, &types.LeaveEvent{ParticipantID: "a"}, items[2])
	assert.Equal(t, &types.AuthoritySwitchEvent{AuthorityID: "b"}, items[3])
	assert.Equal(t, found, items[4])

	select {
	case w := <-welcomeChan:
		assert.Equal(t, "b", w.ParticipantID)
	default:
		t.Fatal("expected welcome")
	}
	assert.Equal(t, map[string]string{"phase": "active"}, c.RoomProperties())
	assert.Empty(t, c.ParticipantProperties("a"), "leavers are forgotten")
}

func TestWSClient_handleMessage_queueFull(t *testing.T) {
	q := queue.NewInMemoryQueue(1)
	require.NoError(t, q.Enqueue("pending"))
	c := NewWSClient("ws://unused", q, nil)

	for _, change := range []messages.MembershipChanged{
		{Change: messages.MembershipChangeJoin, ParticipantID: "c"},
		{Change: messages.MembershipChangeLeave, ParticipantID: "a"},
		{Change: messages.MembershipChangeAuthority, ParticipantID: "b"},
	} {
		msg, err := messages.NewJSONMessage(messages.MessageTypeMembershipChanged, &change)
		require.NoError(t, err)
		assert.ErrorIs(t, c.handleMessage(msg), ErrMembershipDropped, string(change.Change))
	}

	welcome, err := messages.NewJSONMessage(messages.MessageTypeWelcome, &messages.Welcome{ParticipantID: "b"})
	require.NoError(t, err)
	assert.ErrorIs(t, c.handleMessage(welcome), ErrMembershipDropped)

	found, err := messages.NewJSONMessage(messages.MessageTypeFound, &messages.Found{ParticipantID: "c"})
	require.NoError(t, err)
	err = c.handleMessage(found)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMembershipDropped)
}

func startRelay(t *testing.T) (*httptest.Server, *servernetwork.RoomManager) {
	t.Helper()
	rooms := servernetwork.NewRoomManager(0)
	events := make(chan servernetwork.ConnectionEvent)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go workers.NewConnectionEventWorker(workers.NewConnectionEventWorkerOptions{
		ConnectionEventChan: events,
		Rooms:               rooms,
	}).Start(ctx)

	ws := servernetwork.NewWSServer(servernetwork.NewWSServerOptions{
		AuthProvider:        authproviders.NewAnonymousAuthProvider(),
		Rooms:               rooms,
		ConnectionEventChan: events,
	})
	r := mux.NewRouter().UseEncodedPath()
	r.HandleFunc("/rooms/{room}/ws", ws.HandleRoom)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, rooms
}

func waitForItems(t *testing.T, q queue.Queue, n int) []interface{} {
	t.Helper()
	var items []interface{}
	require.Eventually(t, func() bool {
		read, err := q.ReadAllMessages()
		require.NoError(t, err)
		items = append(items, read...)
		return len(items) >= n
	}, 5*time.Second, 10*time.Millisecond)
	return items
}

func TestNetworkManager_relay(t *testing.T) {
	srv, rooms := startRelay(t)
	ctx := context.Background()

	qa := queue.NewInMemoryQueue(64)
	a, err := NewNetworkManager(NewNetworkManagerOptions{ServerURL: srv.URL, Room: "team a/b", Name: "alice", MessageQueue: qa})
	require.NoError(t, err)
	require.NoError(t, a.Start(ctx))
	defer a.Stop()

	qb := queue.NewInMemoryQueue(64)
	b, err := NewNetworkManager(NewNetworkManagerOptions{ServerURL: srv.URL, Room: "team a/b", Name: "bob", Token: "user-b", MessageQueue: qb})
	require.NoError(t, err)
	require.NoError(t, b.Start(ctx))

	items := waitForItems(t, qa, 2)
	welcome, ok := items[0].(*types.WelcomeEvent)
	require.True(t, ok)
	assert.Equal(t, a.LocalID(), welcome.LocalID)
	assert.Equal(t, a.LocalID(), welcome.AuthorityID)
	assert.Equal(t, &types.JoinEvent{ParticipantID: b.LocalID()}, items[1])

	items = waitForItems(t, qb, 1)
	welcome, ok = items[0].(*types.WelcomeEvent)
	require.True(t, ok)
	assert.Equal(t, []string{a.LocalID(), b.LocalID()}, welcome.Participants)

	info, ok := rooms.Room("team a/b")
	require.True(t, ok, "room name is decoded once by the relay")
	assert.Len(t, info.Participants, 2)

	found, err := messages.NewJSONMessage(messages.MessageTypeFound, &messages.Found{ParticipantID: "x"})
	require.NoError(t, err)
	require.NoError(t, b.SendMessage(ctx, found))
	items = waitForItems(t, qa, 1)
	relayed, ok := items[0].(*messages.Message)
	require.True(t, ok)
	assert.Equal(t, messages.MessageTypeFound, relayed.Type)
	assert.Equal(t, b.LocalID(), relayed.ParticipantID)

	set, err := messages.NewJSONMessage(messages.MessageTypeSetRoomProperties, &messages.SetRoomProperties{
		Properties: messages.Properties{"mode": "infection"},
	})
	require.NoError(t, err)
	require.NoError(t, a.SendMessage(ctx, set))
	assert.Eventually(t, func() bool {
		return b.RoomProperties()["mode"] == "infection"
	}, 5*time.Second, 10*time.Millisecond)

	b.Stop()
	items = waitForItems(t, qa, 1)
	assert.Contains(t, items, &types.LeaveEvent{ParticipantID: b.LocalID()})
}

func TestNetworkManager_membershipDroppedEndsSession(t *testing.T) {
	srv, _ := startRelay(t)
	ctx := context.Background()

	// the welcome fills the queue, so the next join cannot be queued
	qa := queue.NewInMemoryQueue(1)
	a, err := NewNetworkManager(NewNetworkManagerOptions{ServerURL: srv.URL, Room: "r1", Name: "alice", MessageQueue: qa})
	require.NoError(t, err)
	require.NoError(t, a.Start(ctx))
	defer a.Stop()

	b, err := NewNetworkManager(NewNetworkManagerOptions{ServerURL: srv.URL, Room: "r1", Name: "bob", MessageQueue: queue.NewInMemoryQueue(64)})
	require.NoError(t, err)
	require.NoError(t, b.Start(ctx))
	defer b.Stop()

	select {
	case err := <-a.ClientErrChan():
		assert.ErrorIs(t, err, ErrMembershipDropped)
	case <-time.After(5 * time.Second):
		t.Fatal("expected the session to end")
	}
}

func TestNetworkManager_notConnected(t *testing.T) {
	_, err := NewNetworkManager(NewNetworkManagerOptions{ServerURL: "http://localhost"})
	assert.Error(t, err)

	c := NewWSClient("ws://unused", queue.NewInMemoryQueue(1), nil)
	assert.ErrorIs(t, c.SendMessage(context.Background(), &messages.Message{}), ErrNotConnected)
	assert.ErrorIs(t, c.HandleMessages(context.Background()), ErrNotConnected)
}
