package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cbodonnell/vibemod/pkg/api"
	authproviders "github.com/cbodonnell/vibemod/pkg/auth/providers"
	"github.com/cbodonnell/vibemod/pkg/config"
	"github.com/cbodonnell/vibemod/pkg/log"
	"github.com/cbodonnell/vibemod/pkg/network"
	"github.com/cbodonnell/vibemod/pkg/version"
	"github.com/cbodonnell/vibemod/pkg/workers"
)

func main() {
	cfg, err := config.LoadRelay(os.Args[1:])
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	parsedLogLevel, err := log.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("Failed to parse log level: %v", err))
	}

	logger := log.New(os.Stdout, "", log.DefaultLoggerFlag, parsedLogLevel)
	log.SetDefaultLogger(logger)
	log.Info("Log level set to %s", parsedLogLevel)

	log.Info("Starting relay version %s", version.Get())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var authProvider authproviders.AuthProvider
	if cfg.FirebaseProjectID != "" {
		authProvider, err = authproviders.NewFirebaseAuthProvider(ctx, cfg.FirebaseProjectID, cfg.FirebaseAPIKey)
		if err != nil {
			panic(fmt.Sprintf("Failed to create Firebase auth provider: %v", err))
		}
	} else {
		log.Warn("No Firebase project configured, accepting anonymous participants")
		authProvider = authproviders.NewAnonymousAuthProvider()
	}

	rooms := network.NewRoomManager(cfg.MaxParticipants)
	connectionEventChan := make(chan network.ConnectionEvent, 1000)

	connectionEventWorker := workers.NewConnectionEventWorker(workers.NewConnectionEventWorkerOptions{
		ConnectionEventChan: connectionEventChan,
		Rooms:               rooms,
	})
	go connectionEventWorker.Start(ctx)

	wsServer := network.NewWSServer(network.NewWSServerOptions{
		AuthProvider:        authProvider,
		Rooms:               rooms,
		ConnectionEventChan: connectionEventChan,
		SendBufferSize:      cfg.SendBufferSize,
		OriginPatterns:      cfg.OriginPatterns,
	})

	apiServerOpts := api.NewAPIServerOptions{
		Name: "Relay",
		Port: cfg.Port,
		Handler: api.NewRelayRouter(api.NewRelayRouterOptions{
			AuthProvider: authProvider,
			Rooms:        rooms,
			WSServer:     wsServer,
		}),
	}
	if cfg.TLSCertFile != "" {
		apiServerOpts.TLS = &api.TLSConfig{
			CertFile: cfg.TLSCertFile,
			KeyFile:  cfg.TLSKeyFile,
		}
	}
	server := api.NewAPIServer(apiServerOpts)
	go server.Start()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	<-interrupt
	log.Info("Shutting down relay")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("Failed to stop server: %v", err)
	}
}
