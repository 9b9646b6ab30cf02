package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/cbodonnell/vibemod/pkg/api/handlers"
	"github.com/cbodonnell/vibemod/pkg/api/middleware"
	authproviders "github.com/cbodonnell/vibemod/pkg/auth/providers"
	"github.com/cbodonnell/vibemod/pkg/game/types"
	"github.com/cbodonnell/vibemod/pkg/log"
	"github.com/cbodonnell/vibemod/pkg/network"
	"github.com/cbodonnell/vibemod/pkg/queue"
	"github.com/cbodonnell/vibemod/pkg/repositories"
	"github.com/cbodonnell/vibemod/pkg/state"
	"github.com/gorilla/mux"
)

type APIServer struct {
	name   string
	server *http.Server
	tls    *TLSConfig
}

type TLSConfig struct {
	CertFile string
	KeyFile  string
}

type NewAPIServerOptions struct {
	// Name identifies the server in logs
	Name    string
	Port    int
	TLS     *TLSConfig
	Handler http.Handler
}

// NewAPIServer creates a new http.Server for handling API requests
func NewAPIServer(opts NewAPIServerOptions) *APIServer {
	name := opts.Name
	if name == "" {
		name = "API"
	}
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: opts.Handler,
	}
	return &APIServer{
		name:   name,
		server: server,
		tls:    opts.TLS,
	}
}

// Start starts the APIServer
func (s *APIServer) Start() {
	var listenAndServe func() error
	if s.tls != nil {
		log.Info("%s server listening on %s with TLS", s.name, s.server.Addr)
		listenAndServe = func() error {
			return s.server.ListenAndServeTLS(s.tls.CertFile, s.tls.KeyFile)
		}
	} else {
		log.Info("%s server listening on %s", s.name, s.server.Addr)
		listenAndServe = s.server.ListenAndServe
	}
	if err := listenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			log.Info("%s server closed", s.name)
			return
		}
		log.Error("%s server error: %v", s.name, err)
	}
}

// Stop stops the APIServer
func (s *APIServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type NewRelayRouterOptions struct {
	AuthProvider authproviders.AuthProvider
	Rooms        *network.RoomManager
	WSServer     *network.WSServer
}

// NewRelayRouter routes the relay websocket endpoint and its inspection API.
func NewRelayRouter(opts NewRelayRouterOptions) *mux.Router {
	authMiddleware := middleware.NewAuthMiddleware(opts.AuthProvider)

	r := mux.NewRouter().UseEncodedPath()
	r.Use(middleware.Logging)
	r.HandleFunc("/healthz", handlers.HandleHealthz()).Methods(http.MethodGet)
	r.HandleFunc("/rooms/{room}/ws", opts.WSServer.HandleRoom).Methods(http.MethodGet)

	rooms := r.PathPrefix("/rooms").Subrouter()
	rooms.Use(middleware.CORS, authMiddleware)
	rooms.HandleFunc("", handlers.HandleListRooms(opts.Rooms)).Methods(http.MethodGet, http.MethodOptions)
	rooms.HandleFunc("/{room}", handlers.HandleGetRoom(opts.Rooms)).Methods(http.MethodGet, http.MethodOptions)
	return r
}

type NewPeerRouterOptions struct {
	Room         string
	StateManager state.StateManager
	InboundQueue queue.Queue
	// Repository may be nil when results are not persisted.
	Repository repositories.Repository
}

// NewPeerRouter routes the local control API of a peer. Control requests
// are queued for the coordinator tick.
func NewPeerRouter(opts NewPeerRouterOptions) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Logging, middleware.CORS)
	r.HandleFunc("/healthz", handlers.HandleHealthz()).Methods(http.MethodGet)
	r.HandleFunc("/state", handlers.HandleGetState(opts.StateManager)).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/results", handlers.HandleListResults(opts.Repository, opts.Room)).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/results/{id}", handlers.HandleGetResult(opts.Repository)).Methods(http.MethodGet, http.MethodOptions)

	commands := []struct {
		path  string
		build func(*http.Request) (interface{}, error)
	}{
		{path: "/mode/{mode}", build: handlers.SetGameModeCommand},
		{path: "/round/start", build: handlers.StaticCommand(&types.BeginPreparationCommand{})},
		{path: "/round/stop", build: handlers.StaticCommand(&types.StopRoundCommand{})},
		{path: "/round/lobby", build: handlers.StaticCommand(&types.ReturnToLobbyCommand{})},
		{path: "/report/found/{participant}", build: handlers.ReportFoundCommand},
		{path: "/report/infected/{participant}", build: handlers.ReportInfectedCommand},
	}
	for _, c := range commands {
		r.HandleFunc(c.path, handlers.HandleCommand(opts.InboundQueue, c.build)).Methods(http.MethodPost, http.MethodOptions)
	}
	return r
}
