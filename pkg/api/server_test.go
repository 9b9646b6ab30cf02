package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	authproviders "github.com/cbodonnell/vibemod/pkg/auth/providers"
	"github.com/cbodonnell/vibemod/pkg/game/types"
	"github.com/cbodonnell/vibemod/pkg/network"
	"github.com/cbodonnell/vibemod/pkg/queue"
	"github.com/cbodonnell/vibemod/pkg/repositories"
	"github.com/cbodonnell/vibemod/pkg/repositories/models"
	"github.com/cbodonnell/vibemod/pkg/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepository struct {
	results   []*models.RoundResult
	lastRoom  string
	lastLimit int
}

func (r *fakeRepository) Close(ctx context.Context) error { return nil }

func (r *fakeRepository) SaveRoundResult(ctx context.Context, result *models.RoundResult) error {
	r.results = append(r.results, result)
	return nil
}

func (r *fakeRepository) GetRoundResult(ctx context.Context, id string) (*models.RoundResult, error) {
	for _, result := range r.results {
		if result.ID == id {
			return result, nil
		}
	}
	return nil, &repositories.ErrNotFound{}
}

func (r *fakeRepository) ListRoundResults(ctx context.Context, room string, limit int) ([]*models.RoundResult, error) {
	r.lastRoom = room
	r.lastLimit = limit
	return r.results, nil
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestPeerRouter_commands(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		status int
		want   interface{}
	}{
		{name: "set mode", method: http.MethodPost, target: "/mode/infection", status: http.StatusAccepted, want: &types.SetGameModeCommand{Mode: types.GameModeInfection}},
		{name: "unknown mode", method: http.MethodPost, target: "/mode/tag", status: http.StatusBadRequest},
		{name: "start", method: http.MethodPost, target: "/round/start", status: http.StatusAccepted, want: &types.BeginPreparationCommand{}},
		{name: "stop", method: http.MethodPost, target: "/round/stop", status: http.StatusAccepted, want: &types.StopRoundCommand{}},
		{name: "lobby", method: http.MethodPost, target: "/round/lobby", status: http.StatusAccepted, want: &types.ReturnToLobbyCommand{}},
		{name: "found", method: http.MethodPost, target: "/report/found/p2", status: http.StatusAccepted, want: &types.ReportFoundCommand{ParticipantID: "p2"}},
		{name: "infected", method: http.MethodPost, target: "/report/infected/p3", status: http.StatusAccepted, want: &types.ReportInfectedCommand{ParticipantID: "p3"}},
		{name: "wrong method", method: http.MethodGet, target: "/round/start", status: http.StatusMethodNotAllowed},
		{name: "preflight", method: http.MethodOptions, target: "/round/start", status: http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := queue.NewInMemoryQueue(4)
			r := NewPeerRouter(NewPeerRouterOptions{Room: "r1", StateManager: state.NewInMemoryStateManager(), InboundQueue: q})

			rec := serve(r, tt.method, tt.target)
			assert.Equal(t, tt.status, rec.Code)

			items, err := q.ReadAllMessages()
			require.NoError(t, err)
			if tt.want == nil {
				assert.Empty(t, items)
				return
			}
			require.Len(t, items, 1)
			assert.Equal(t, tt.want, items[0])
		})
	}
}

func TestPeerRouter_queueFull(t *testing.T) {
	q := queue.NewInMemoryQueue(1)
	r := NewPeerRouter(NewPeerRouterOptions{StateManager: state.NewInMemoryStateManager(), InboundQueue: q})

	assert.Equal(t, http.StatusAccepted, serve(r, http.MethodPost, "/round/start").Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(r, http.MethodPost, "/round/start").Code)
}

func TestPeerRouter_state(t *testing.T) {
	sm := state.NewInMemoryStateManager()
	require.NoError(t, sm.Set(context.Background(), &types.View{
		LocalID:     "p1",
		AuthorityID: "p1",
		IsAuthority: true,
		Mode:        types.GameModeInfection,
		Round:       2,
		State:       types.RoundState{Phase: types.PhaseActive, Remaining: time.Minute},
		Scores:      map[string]int{"p1": 20},
	}))
	r := NewPeerRouter(NewPeerRouterOptions{StateManager: sm, InboundQueue: queue.NewInMemoryQueue(1)})

	rec := serve(r, http.MethodGet, "/state")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	body := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "infection", body["mode"])
	assert.Equal(t, true, body["isAuthority"])
	assert.Equal(t, "active", body["state"].(map[string]interface{})["phase"])
}

func TestPeerRouter_results(t *testing.T) {
	repo := &fakeRepository{results: []*models.RoundResult{{ID: "r-1", Room: "r1", Round: 1, Mode: "infection", Reason: "timeout"}}}
	r := NewPeerRouter(NewPeerRouterOptions{Room: "r1", StateManager: state.NewInMemoryStateManager(), InboundQueue: queue.NewInMemoryQueue(1), Repository: repo})

	tests := []struct {
		name      string
		target    string
		status    int
		wantLimit int
	}{
		{name: "default limit", target: "/results", status: http.StatusOK, wantLimit: repositories.DefaultListLimit},
		{name: "limit", target: "/results?limit=5", status: http.StatusOK, wantLimit: 5},
		{name: "bad limit", target: "/results?limit=zero", status: http.StatusBadRequest},
		{name: "limit too large", target: "/results?limit=1000", status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo.lastLimit = 0
			rec := serve(r, http.MethodGet, tt.target)
			assert.Equal(t, tt.status, rec.Code)
			if tt.status != http.StatusOK {
				return
			}
			assert.Equal(t, tt.wantLimit, repo.lastLimit)
			assert.Equal(t, "r1", repo.lastRoom)

			var results []*models.RoundResult
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
			assert.Equal(t, repo.results, results)
		})
	}

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/results/r-1").Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/results/missing").Code)

	noRepo := NewPeerRouter(NewPeerRouterOptions{StateManager: state.NewInMemoryStateManager(), InboundQueue: queue.NewInMemoryQueue(1)})
	assert.Equal(t, http.StatusServiceUnavailable, serve(noRepo, http.MethodGet, "/results").Code)
}

func TestRelayRouter(t *testing.T) {
	rooms := network.NewRoomManager(0)
	require.NoError(t, rooms.Join("r1", network.NewParticipant("a", "alice", "u1", 8)))
	r := NewRelayRouter(NewRelayRouterOptions{
		AuthProvider: authproviders.NewAnonymousAuthProvider(),
		Rooms:        rooms,
		WSServer:     network.NewWSServer(network.NewWSServerOptions{AuthProvider: authproviders.NewAnonymousAuthProvider(), Rooms: rooms}),
	})

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/healthz").Code)

	rec := serve(r, http.MethodGet, "/rooms")
	require.Equal(t, http.StatusOK, rec.Code)
	var infos []network.RoomInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &infos))
	require.Len(t, infos, 1)
	assert.Equal(t, "a", infos[0].AuthorityID)

	rec = serve(r, http.MethodGet, "/rooms/r1")
	require.Equal(t, http.StatusOK, rec.Code)
	var info network.RoomInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "alice", info.Participants[0].Name)

	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/rooms/missing").Code)

	require.NoError(t, rooms.Join("team a/b", network.NewParticipant("b", "bob", "u2", 8)))
	rec = serve(r, http.MethodGet, "/rooms/team%20a%2Fb")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "team a/b", info.ID)
}
