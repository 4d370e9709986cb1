package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/DoyleJ11/spock-server/internal/config"
	"github.com/DoyleJ11/spock-server/internal/history"
	"github.com/DoyleJ11/spock-server/internal/hub"
	"github.com/DoyleJ11/spock-server/internal/lobby"
	"github.com/DoyleJ11/spock-server/internal/server"
	"github.com/DoyleJ11/spock-server/internal/transport"
)

func main() {
	cfg, err := config.Load(".env", os.Args[1:])
	if err != nil {
		config.Exitf("%v\nusage: %s <port> <numPlayers>", err, os.Args[0])
	}

	log, err := server.NewLogger(cfg.LogLevel, cfg.Dev)
	if err != nil {
		config.Exitf("logger: %v", err)
	}
	defer func() { _ = log.Sync() }()

	var recorder history.Recorder = history.NewMemory(cfg.HistoryLimit)
	if cfg.DatabaseURL != "" {
		gr, err := history.OpenPostgres(cfg.DatabaseURL, log)
		if err != nil {
			log.Fatal("open history database", zap.Error(err))
		}
		defer func() { _ = gr.Close() }()
		recorder = gr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Sessions outlive the signal so the server can drain them with QUIT.
	h := hub.NewHub(context.WithoutCancel(ctx), hub.Options{
		Players:     cfg.Players,
		MaxSessions: cfg.MaxSessions,
		Logger:      log,
		Recorder:    recorder,
		Lobby: lobby.Options{
			RoundTimeout: cfg.RoundTimeout,
			WriteTimeout: cfg.WriteTimeout,
			OutboxSize:   cfg.OutboxSize,
			Welcome:      cfg.Welcome,
		},
	})

	opts := server.Options{
		TCPAddr:  cfg.TCPAddr(),
		HTTPAddr: cfg.HTTPAddr,
		Logger:   log,
	}
	if cfg.LocalPlayer {
		opts.Console = transport.NewConsoleConn(os.Stdin, os.Stdout)
	}

	log.Info("waiting for players", zap.Int("players", cfg.Players), zap.Int("max_sessions", cfg.MaxSessions))
	if err := server.New(h, opts).Run(ctx); err != nil {
		log.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
	log.Info("server exiting")
}
