package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cbodonnell/vibemod/pkg/api"
	clientnetwork "github.com/cbodonnell/vibemod/pkg/client/network"
	"github.com/cbodonnell/vibemod/pkg/config"
	"github.com/cbodonnell/vibemod/pkg/game"
	"github.com/cbodonnell/vibemod/pkg/game/types"
	"github.com/cbodonnell/vibemod/pkg/log"
	"github.com/cbodonnell/vibemod/pkg/queue"
	"github.com/cbodonnell/vibemod/pkg/repositories"
	"github.com/cbodonnell/vibemod/pkg/state"
	"github.com/cbodonnell/vibemod/pkg/version"
	"github.com/cbodonnell/vibemod/pkg/workers"
)

func main() {
	cfg, err := config.LoadPeer(os.Args[1:])
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	parsedLogLevel, err := log.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("Failed to parse log level: %v", err))
	}

	logger := log.New(os.Stdout, "", log.DefaultLoggerFlag, parsedLogLevel).With("room", cfg.Room)
	log.SetDefaultLogger(logger)
	log.Info("Log level set to %s", parsedLogLevel)

	gameConfig, err := cfg.GameConfig()
	if err != nil {
		panic(fmt.Sprintf("Failed to build game config: %v", err))
	}

	log.Info("Starting peer version %s", version.Get())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var repository repositories.Repository
	var saveRoundResultChan chan workers.SaveRoundResultRequest
	if cfg.DatabaseURL != "" {
		repository, err = repositories.NewRepositoryFromURL(ctx, cfg.DatabaseURL)
		if err != nil {
			panic(fmt.Sprintf("Failed to create repository: %v", err))
		}
		defer repository.Close(context.Background())

		saveRoundResultChan = make(chan workers.SaveRoundResultRequest, 100)
		saveRoundResultWorker := workers.NewSaveRoundResultWorker(workers.NewSaveRoundResultWorkerOptions{
			Repository:          repository,
			SaveRoundResultChan: saveRoundResultChan,
			Timeout:             5 * time.Second,
		})
		go saveRoundResultWorker.Start(ctx)
	}

	inboundQueue := queue.NewInMemoryQueue(10000)

	networkManager, err := clientnetwork.NewNetworkManager(clientnetwork.NewNetworkManagerOptions{
		ServerURL:    cfg.RelayURL,
		Room:         cfg.Room,
		Name:         cfg.Name,
		Token:        cfg.Token,
		MessageQueue: inboundQueue,
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to create network manager: %v", err))
	}
	if err := networkManager.Start(ctx); err != nil {
		panic(fmt.Sprintf("Failed to join room %s: %v", cfg.Room, err))
	}
	defer networkManager.Stop()
	log.SetDefaultLogger(logger.With("participant", networkManager.LocalID()))
	log.Info("Joined room %s", cfg.Room)

	broadcastChan := make(chan workers.BroadcastMessage, 1000)
	broadcastWorker := workers.NewBroadcastMessageWorker(workers.NewBroadcastMessageWorkerOptions{
		Sender:               networkManager,
		BroadcastMessageChan: broadcastChan,
	})
	go broadcastWorker.Start(ctx)

	stateManager := state.NewInMemoryStateManager()

	var lastPhase types.Phase
	var lastRound uint32
	coordinator, err := game.NewCoordinator(game.NewCoordinatorOptions{
		RoomID:              cfg.Room,
		Config:              gameConfig,
		InboundQueue:        inboundQueue,
		BroadcastChan:       broadcastChan,
		SaveRoundResultChan: saveRoundResultChan,
		StateManager:        stateManager,
		OnChange: func(v *types.View) {
			if v.State.Phase == lastPhase && v.Round == lastRound {
				return
			}
			lastPhase, lastRound = v.State.Phase, v.Round
			log.Info("Round %d of %s is %s (authority %s)", v.Round, v.Mode, v.State.Phase, v.AuthorityID)
		},
		TickInterval:   cfg.TickInterval,
		AutoStart:      cfg.AutoStart,
		AutoLobbyDelay: cfg.AutoLobbyDelay,
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to create coordinator: %v", err))
	}

	var server *api.APIServer
	if cfg.APIPort > 0 {
		server = api.NewAPIServer(api.NewAPIServerOptions{
			Name: "Peer API",
			Port: cfg.APIPort,
			Handler: api.NewPeerRouter(api.NewPeerRouterOptions{
				Room:         cfg.Room,
				StateManager: stateManager,
				InboundQueue: inboundQueue,
				Repository:   repository,
			}),
		})
		go server.Start()
	}

	log.Info("Starting coordinator")
	go func() {
		if err := coordinator.Start(ctx); err != nil {
			log.Error("Coordinator stopped: %v", err)
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	select {
	case <-interrupt:
		log.Info("Shutting down peer")
	case err := <-networkManager.ClientErrChan():
		log.Error("Lost connection to relay: %v", err)
	}
	cancel()

	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := server.Stop(shutdownCtx); err != nil {
			log.Error("Failed to stop server: %v", err)
		}
	}
}
