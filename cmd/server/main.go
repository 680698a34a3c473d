package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	authproviders "github.com/cbodonnell/hexconquest/pkg/auth/providers"
	"github.com/cbodonnell/hexconquest/pkg/config"
	"github.com/cbodonnell/hexconquest/pkg/election"
	"github.com/cbodonnell/hexconquest/pkg/game/rules"
	"github.com/cbodonnell/hexconquest/pkg/locks"
	"github.com/cbodonnell/hexconquest/pkg/log"
	"github.com/cbodonnell/hexconquest/pkg/network"
	"github.com/cbodonnell/hexconquest/pkg/presence"
	"github.com/cbodonnell/hexconquest/pkg/repositories"
	"github.com/cbodonnell/hexconquest/pkg/rooms"
	"github.com/cbodonnell/hexconquest/pkg/version"
	"github.com/cbodonnell/hexconquest/pkg/workers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	port := flag.Int("port", cfg.Port, "Port to listen on")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level")
	databaseURL := flag.String("database-url", cfg.DatabaseURL, "Database connection string")
	seedFile := flag.String("seed-file", cfg.SeedFile, "JSON file of games and users to load on startup")
	flag.Parse()

	parsedLogLevel, err := log.ParseLogLevel(*logLevel)
	if err != nil {
		panic(fmt.Sprintf("Failed to parse log level: %v", err))
	}

	logger := log.New(os.Stdout, "", log.DefaultLoggerFlag, parsedLogLevel)
	log.SetDefaultLogger(logger)
	log.Info("Log level set to %s", parsedLogLevel)

	log.Info("Starting game server version %s", version.Get())
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repository, err := repositories.Open(ctx, repositories.OpenOptions{
		ConnStr:       *databaseURL,
		MongoDatabase: cfg.MongoDatabase,
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to open repository: %v", err))
	}
	defer repository.Close(context.Background())

	if *seedFile != "" {
		if err := repositories.LoadSeedFile(ctx, repository, *seedFile); err != nil {
			panic(fmt.Sprintf("Failed to load seed file: %v", err))
		}
	}

	var tracker presence.Tracker
	if cfg.RedisURL != "" {
		tracker, err = presence.NewRedisTracker(ctx, presence.NewRedisTrackerOptions{URL: cfg.RedisURL})
		if err != nil {
			panic(fmt.Sprintf("Failed to connect to Redis: %v", err))
		}
		log.Info("Using Redis presence tracker")
	} else {
		tracker = presence.NewMemoryTracker()
	}
	defer tracker.Close()

	authProvider, err := newAuthProvider(ctx, cfg)
	if err != nil {
		panic(fmt.Sprintf("Failed to create auth provider: %v", err))
	}

	autoPlayElection := election.NewElection(election.NewElectionOptions{Repository: repository})
	// Controllers left behind by a previous run name connections that are gone.
	reset, err := autoPlayElection.Reset(ctx)
	if err != nil {
		panic(fmt.Sprintf("Failed to reset auto play controllers: %v", err))
	}
	if reset > 0 {
		log.Info("Released auto play control of %d games held before startup", reset)
	}

	clientManager := network.NewClientManager(network.NewClientManagerOptions{
		SendQueueSize: cfg.SendQueueSize,
	})

	synchronizer := rooms.NewSynchronizer(rooms.NewSynchronizerOptions{
		Repository:     repository,
		Engine:         rules.NewEngine(rules.NewEngineOptions{}),
		Election:       autoPlayElection,
		Presence:       tracker,
		Sender:         clientManager,
		GameLocks:      locks.NewKeyedMutex(),
		ActionTimeout:  cfg.ActionTimeout,
		MaxTurnRetries: cfg.MaxTurnRetries,
	})

	connectionEventWorker := workers.NewConnectionEventWorker(workers.NewConnectionEventWorkerOptions{
		ConnectionEventChan: clientManager.GetConnectionEventChan(),
		Handler:             synchronizer,
	})
	go connectionEventWorker.Start(ctx)

	roomSweepWorker := workers.NewRoomSweepWorker(workers.NewRoomSweepWorkerOptions{
		Sweeper:  synchronizer,
		Interval: cfg.SweepInterval,
	})
	go roomSweepWorker.Start(ctx)

	var tlsConfig *network.TLSConfig
	if cfg.TLSCertFile != "" {
		tlsConfig = &network.TLSConfig{
			CertFile: cfg.TLSCertFile,
			KeyFile:  cfg.TLSKeyFile,
		}
	}

	networkManager := network.NewNetworkManager(network.NewNetworkManagerOptions{
		AuthProvider:  authProvider,
		ClientManager: clientManager,
		Presence:      tracker,
		Handler:       synchronizer,
		WSPort:        *port,
		WSServerTLS:   tlsConfig,
		AllowOrigin:   cfg.AllowOrigin,
	})

	log.Info("Starting network manager")
	if err := networkManager.Start(ctx); err != nil {
		panic(fmt.Sprintf("Failed to start network manager: %v", err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ActionTimeout)
	defer cancel()
	released := synchronizer.ReleaseClaims(shutdownCtx)
	log.Info("Released auto play control of %d games on shutdown", released)
}

func newAuthProvider(ctx context.Context, cfg *config.Config) (authproviders.AuthProvider, error) {
	switch cfg.AuthMode {
	case config.AuthModeJWT:
		log.Info("Authenticating connections with JWT")
		return authproviders.NewJWTAuthProvider(authproviders.NewJWTAuthProviderOptions{
			Secret: cfg.JWTSecret,
		})
	case config.AuthModeFirebase:
		log.Info("Authenticating connections with Firebase project %s", cfg.FirebaseProjectID)
		return authproviders.NewFirebaseAuthProvider(ctx, authproviders.NewFirebaseAuthProviderOptions{
			ProjectID:       cfg.FirebaseProjectID,
			APIKey:          cfg.FirebaseAPIKey,
			CredentialsFile: cfg.FirebaseCredentials,
		})
	default:
		log.Warn("Authentication is disabled, connections are anonymous")
		return nil, nil
	}
}
