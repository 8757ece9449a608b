package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/wfunc/drawguess/assets"
	"github.com/wfunc/drawguess/broadcast"
	"github.com/wfunc/drawguess/config"
	"github.com/wfunc/drawguess/game"
	"github.com/wfunc/drawguess/judge"
	"github.com/wfunc/drawguess/logger"
	"github.com/wfunc/drawguess/monitor"
	"github.com/wfunc/drawguess/room"
	"github.com/wfunc/drawguess/server"
	"github.com/wfunc/drawguess/session"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Init("info")
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Init(cfg.Log.Level)
	defer logger.Sync()

	policy, err := game.ParseReadyPolicy(cfg.Game.ReadyPolicy)
	if err != nil {
		logger.Log.Fatalf("Invalid game configuration: %v", err)
	}

	mon := monitor.NewMonitor(cfg.Metrics.Namespace)
	sessions := session.NewManager()
	broadcaster := broadcast.NewRoomBroadcaster(sessions)

	completer := judge.NewOpenAICompleter(cfg.Oracle.BaseURL, cfg.Oracle.APIKey, cfg.Oracle.Model, cfg.Oracle.UserPrompt, cfg.Oracle.Timeout)
	oracle := judge.NewClient(completer, cfg.Oracle.MaxRetries, cfg.Oracle.BackoffBase)

	g := game.New(room.NewRoomManager(), broadcaster, oracle, assets.NewOSStore(cfg.Assets.ImagesDir), policy, mon)
	dispatcher := game.NewDispatcher(broadcaster, mon)
	g.RegisterHandlers(dispatcher)

	gameServer := server.NewGameServer(cfg.Server, sessions, g, dispatcher, oracle, mon)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start Server
	logger.Log.Infof("Starting game server on %s (rpc %s, ready policy %s)", cfg.Server.HTTPAddress, cfg.Server.RPCAddress, policy)
	if err := gameServer.Start(ctx); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
	logger.Log.Info("Game server stopped.")
}
