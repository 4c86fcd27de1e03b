package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"messenger/auth"
	"messenger/connection"
	"messenger/ids"
	"messenger/moderation"
	"messenger/protocol"
	"messenger/protocol/control"
	"messenger/protocol/peer"
	"messenger/repositories"
	"messenger/rtc"
	"messenger/runtime"
	"messenger/runtime/workers"
	"messenger/server"
	"messenger/services"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/spf13/pflag"
)

// Single process, single node.
const nodeID = 1

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Flags, .env & configuration
	flagSet := pflag.NewFlagSet("messenger", pflag.ContinueOnError)
	envFile := flagSet.String("env-file", "", "load environment variables from this file before reading the configuration")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			return fmt.Errorf("cannot load %s: %w", *envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}
	config, err := loadConfig()
	if err != nil {
		return err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Store
	db, err := repositories.OpenInMemory()
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	generator, err := ids.NewGenerator(nodeID)
	if err != nil {
		return err
	}
	issuer, err := auth.NewTokenIssuer(config.SessionTokenSecret)
	if err != nil {
		return err
	}
	var censor services.ICensor
	if config.ModerationEnabled {
		if censor, err = newModerator(config, log); err != nil {
			return err
		}
	}

	// 3. Registries, fan-out & domain services
	controls := runtime.NewRegistry[control.Message]("control", log)
	peers := runtime.NewRegistry[peer.Message]("peer", log)
	defer controls.Close()
	defer peers.Close()

	users := repositories.NewUserRepository(db)
	messages := repositories.NewMessageRepository(db, log, config.LimitMessages)
	fanout := workers.NewEventFanout(log, users, peers, config.FanoutBufferSize).
		WithPublishTimeout(config.FanoutPublishTimeout)

	sessionService := services.NewSessionService(repositories.NewSessionRepository(db), issuer, generator, log)
	roomService := services.NewRoomService(repositories.NewRoomRepository(db), users, messages,
		repositories.NewPresenceRepository(db), fanout, generator, log)
	messageService := services.NewMessageService(messages, censor, fanout, generator, log)

	// 4. Supervision
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sup := workers.NewSupervisor(log)
	sup.Add(fanout)
	if config.ReportInterval > 0 {
		sup.Add(workers.NewReporter(log, config.ReportInterval, map[string]workers.Counter{
			"control_connections": controls,
			"peer_connections":    peers,
			"fanout_backlog":      fanout,
		}))
	}
	supervised := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(supervised)
	}()

	// 5. Connections & HTTP
	peerFactory := connection.NewPeerFactory(
		rtc.NewPionFactory(rtc.Config{
			ICEServers:      config.ICEServerURLs(),
			IncludeLoopback: config.WebRTCIncludeLoopback,
		}, log),
		connection.PeerConfig{
			HeartbeatInterval: config.WebRTCHeartbeatInterval,
			ClientTimeout:     config.WebRTCClientTimeout,
			BufferSize:        config.WebRTCDataChannelBufferSize,
			MailboxSize:       config.MailboxSize,
		},
		connection.PeerDependencies{Log: log, Rooms: roomService, Messages: messageService, Peers: peers},
	)
	srv := server.NewServer(config.Address(), config.StaticDir,
		connection.ControlConfig{
			HeartbeatInterval: config.WebSocketHeartbeatInterval,
			ClientTimeout:     config.WebSocketClientTimeout,
			ReadLimit:         config.WebSocketReadLimit,
			MailboxSize:       config.MailboxSize,
		},
		connection.ControlDependencies{
			Log:       log,
			Sessions:  sessionService,
			Rooms:     roomService,
			Generator: generator,
			Controls:  controls,
		},
		func(codec protocol.Codec) connection.PeerStarter { return peerFactory.WithCodec(codec) },
		log,
	)
	srv.WithOrigins(config.OriginPatterns(), config.WebSocketAllowAnyOrigin)
	if config.WebSocketAllowAnyOrigin {
		log.Warn("WebSocket Origin check disabled")
	}

	// 6. Serve until a signal, then stop everything in order
	err = srv.ListenAndServe(ctx)
	stop()
	sup.Stop()
	<-supervised
	if err != nil {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	log.Info("Program stopped cleanly")
	return nil
}

func newModerator(config Config, log *slog.Logger) (*moderation.Moderator, error) {
	censored, err := moderation.LoadCensoredWords()
	if err != nil {
		return nil, fmt.Errorf("cannot load censored words: %w", err)
	}
	char, err := config.CharacterRune()
	if err != nil {
		return nil, err
	}
	log.Info("Moderation enabled", "words", len(censored.Words), "languages", censored.Languages)
	return moderation.NewModerator(censored.Words, char, log)
}
