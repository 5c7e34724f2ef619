package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mcoot/chessladder/internal/api"
	"github.com/mcoot/chessladder/internal/config"
	"github.com/mcoot/chessladder/internal/factory"
)

func main() {
	configPath := flag.String("config", os.Getenv("LADDER_CONFIG"), "Path to a config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up logging at the configured level and format
	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Create application factory
	app, err := factory.New(ctx, factory.Config{
		Storage: cfg.Storage,
		Ladder:  cfg.Ladder,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("failed to close storage", slog.String("error", err.Error()))
		}
	}()

	apiRouter := api.NewRouter(api.RouterConfig{
		Logger:            logger,
		LadderController:  app.LadderController,
		ScoreboardService: app.ScoreboardService,
		HistoryService:    app.HistoryService,
		FunFactsService:   app.FunFactsService,
		Events:            app.Events,
	})

	// Combine the API with the metrics endpoint
	mux := http.NewServeMux()
	mux.Handle("/api/", apiRouter)
	mux.Handle("/metrics", promhttp.Handler())

	server := api.NewServer(mux, api.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, logger)
	// Event streams never finish on their own
	server.RegisterOnShutdown(app.Events.Close)

	logger.Info("server starting",
		slog.String("addr", server.Addr()),
		slog.String("storage", cfg.Storage.Type),
		slog.String("timezone", cfg.Ladder.Timezone))

	if err := server.Run(ctx); err != nil {
		return err
	}

	logger.Info("server stopped")
	return nil
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
