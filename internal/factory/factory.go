package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mcoot/chessladder/internal/config"
	"github.com/mcoot/chessladder/internal/dependencies/clock"
	"github.com/mcoot/chessladder/internal/dependencies/random"
	"github.com/mcoot/chessladder/internal/events"
	"github.com/mcoot/chessladder/internal/retry"
	"github.com/mcoot/chessladder/internal/services/funfacts"
	"github.com/mcoot/chessladder/internal/services/history"
	"github.com/mcoot/chessladder/internal/services/ladder"
	"github.com/mcoot/chessladder/internal/services/rating"
	"github.com/mcoot/chessladder/internal/services/scoreboard"
	"github.com/mcoot/chessladder/internal/storage"
	boltstorage "github.com/mcoot/chessladder/internal/storage/bolt"
	"github.com/mcoot/chessladder/internal/storage/memory"
	redisstorage "github.com/mcoot/chessladder/internal/storage/redis"
	"github.com/mcoot/chessladder/internal/storage/sqldb"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	Engine            rating.Engine
	LadderController  *ladder.Controller
	ScoreboardService *scoreboard.Service
	HistoryService    *history.Service
	FunFactsService   *funfacts.Service
	Events            *events.Hub
}

// Config holds configuration for the application factory
type Config struct {
	// Storage selects and locates the backend. A zero value means memory.
	Storage config.StorageConfig
	// Ladder holds rating and view settings. Zero values use the defaults.
	Ladder config.LadderConfig
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
}

// New creates a new application with all dependencies wired
func New(ctx context.Context, cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	loc, err := cfg.Ladder.Location()
	if err != nil {
		return nil, fmt.Errorf("ladder timezone: %w", err)
	}

	store, err := OpenStorage(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, err
	}

	return newWithDependencies(store, clock.New(), random.New(), cfg.Ladder, loc, logger), nil
}

// OpenStorage opens the configured backend. Network backends are retried
// with backoff up to ConnectAttempts times.
func OpenStorage(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (storage.Storage, error) {
	switch cfg.Type {
	case "", config.StorageMemory:
		return memory.New(), nil

	case config.StorageSQLite:
		if cfg.SQLitePath == "" {
			return nil, errors.New("sqlite storage requires a path")
		}
		sqlCfg := sqldb.DefaultConfig()
		sqlCfg.DSN = cfg.SQLitePath
		return sqldb.New(sqlCfg)

	case config.StoragePostgres:
		if cfg.PostgresDSN == "" {
			return nil, errors.New("postgres storage requires a DSN")
		}
		sqlCfg := sqldb.DefaultConfig()
		sqlCfg.Driver = sqldb.DriverPostgres
		sqlCfg.DSN = cfg.PostgresDSN
		return connect(ctx, cfg, logger, func() (storage.Storage, error) {
			return sqldb.New(sqlCfg)
		})

	case config.StorageRedis:
		if cfg.RedisURL == "" {
			return nil, errors.New("redis storage requires a URL")
		}
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.RedisURL
		return connect(ctx, cfg, logger, func() (storage.Storage, error) {
			return redisstorage.New(redisCfg)
		})

	case config.StorageBolt:
		if cfg.BoltPath == "" {
			return nil, errors.New("bolt storage requires a path")
		}
		boltCfg := boltstorage.DefaultConfig()
		boltCfg.Path = cfg.BoltPath
		return boltstorage.New(boltCfg)
	}
	return nil, fmt.Errorf("invalid storage type %q", cfg.Type)
}

func connect(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger, open func() (storage.Storage, error)) (storage.Storage, error) {
	opts := retry.DefaultOptions()
	opts.MaxAttempts = max(cfg.ConnectAttempts, 1)
	opts.OnRetry = func(attempt int, err error, wait time.Duration) {
		logger.Warn("storage connection failed, retrying",
			slog.String("storage", cfg.Type),
			slog.Int("attempt", attempt),
			slog.Duration("wait", wait),
			slog.Any("error", err))
	}

	var store storage.Storage
	err := retry.Do(ctx, func() error {
		var err error
		store, err = open()
		return err
	}, opts)
	if err != nil {
		return nil, fmt.Errorf("connect to %s storage: %w", cfg.Type, err)
	}
	return store, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	clk clock.Clock,
	rnd random.Random,
	ladderCfg config.LadderConfig,
	loc *time.Location,
	logger *slog.Logger,
) *App {
	engine := rating.NewEngine(ladderCfg.KFactor)

	hub := events.NewHub(logger)
	go hub.Run()

	controller := ladder.NewController(store, engine, clk, rnd, hub, logger)
	controller.SetRecentLimit(ladderCfg.RecentMatches)

	return &App{
		Storage:           store,
		Clock:             clk,
		Random:            rnd,
		Engine:            engine,
		LadderController:  controller,
		ScoreboardService: scoreboard.New(store, engine, clk, loc),
		HistoryService:    history.New(store, engine),
		FunFactsService:   funfacts.New(store, clk, rnd, loc, logger),
		Events:            hub,
	}
}

// Close stops the event hub and releases the storage backend
func (a *App) Close() error {
	a.Events.Close()
	return a.Storage.Close()
}
