package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/stratushq/stratus"
	"github.com/stratushq/stratus/codec"
	"github.com/stratushq/stratus/config"
	"github.com/stratushq/stratus/server"
)

func main() {
	configPath := flag.String("config", "stratus.yml", "Path to the configuration file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting stratus example", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	if cfg.Server.Verbose {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		slog.SetDefault(logger)
	}

	wire, err := codec.ForName(cfg.Serialization)
	if err != nil {
		logger.Error("failed to select codec", "error", err)
		os.Exit(1)
	}

	engine := stratus.New(
		stratus.WithCodec(wire),
		stratus.WithLogger(logger),
	)

	adminKey := "demo-admin-key"
	if len(cfg.Security.APIKeys) > 0 {
		adminKey = cfg.Security.APIKeys[0]
	}

	if err := engine.RegisterController(NewUserController(adminKey)); err != nil {
		logger.Error("failed to register users controller", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"routes", len(engine.Routes()),
		"rate_limiting", cfg.RateLimit.Enabled,
		"serialization", cfg.Serialization)

	srv, err := server.New(cfg, engine, logger)
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}
