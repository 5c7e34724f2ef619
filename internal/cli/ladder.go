package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mcoot/chessladder/internal/api/response"
	"github.com/mcoot/chessladder/internal/config"
	"github.com/mcoot/chessladder/internal/factory"
)

// ErrInconsistent is returned by verify when stored ratings diverge from a replay
var ErrInconsistent = errors.New("stored ratings diverge from history")

func newRecalcCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recalc",
		Short: "Recalculate every rating from match history",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Recalculate
			if err := client.Post("/api/v1/ladder/recalculate", nil, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check stored ratings against a replay of history",
		Long: `Replay every match and compare the result with the stored ratings.

Exits non-zero when any player diverges. Run "ladder recalc" to repair.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Verify
			if err := client.Get("/api/v1/ladder/verify", &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			if !result.Consistent {
				return ErrInconsistent
			}
			return nil
		},
	}
}

func newTransferCmd() *cobra.Command {
	var fromType, from, toType, to string

	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Copy a ladder between storage backends",
		Long: `Copy every player and match from one storage backend to another and
replay ratings at the destination. The destination must be empty.

This talks to the storage directly, not to a server.

Backends and their locations:
  - sqlite: database file path
  - postgres: connection DSN
  - redis: redis:// URL
  - bolt: database file path`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			src, err := storageConfig(fromType, from)
			if err != nil {
				return fmt.Errorf("--from-type: %w", err)
			}
			dst, err := storageConfig(toType, to)
			if err != nil {
				return fmt.Errorf("--to-type: %w", err)
			}

			result, err := transfer(ctx, src, dst, transferLogger(cmd))
			if err != nil {
				return err
			}

			output(cmd).PrintMessage(fmt.Sprintf("Transferred %d players and %d matches", result.Players, result.Matches))
			return nil
		},
	}

	cmd.Flags().StringVar(&fromType, "from-type", "", "Source backend (required)")
	cmd.Flags().StringVar(&from, "from", "", "Source location (required)")
	cmd.Flags().StringVar(&toType, "to-type", "", "Destination backend (required)")
	cmd.Flags().StringVar(&to, "to", "", "Destination location (required)")
	for _, name := range []string{"from-type", "from", "to-type", "to"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

// TransferResult counts what a transfer copied
type TransferResult struct {
	Players int
	Matches int
}

func transfer(ctx context.Context, src, dst config.StorageConfig, logger *slog.Logger) (*TransferResult, error) {
	source, err := factory.OpenStorage(ctx, src, logger)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer func() { _ = source.Close() }()

	app, err := factory.New(ctx, factory.Config{
		Storage: dst,
		Ladder:  config.Default().Ladder,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("open destination: %w", err)
	}
	defer func() { _ = app.Close() }()

	imported, err := app.LadderController.Import(ctx, source)
	if err != nil {
		return nil, err
	}
	return &TransferResult{Players: imported.Players, Matches: imported.Matches}, nil
}

// storageConfig builds a single-backend storage configuration
func storageConfig(kind, location string) (config.StorageConfig, error) {
	cfg := config.Default().Storage
	cfg.Type = kind
	switch kind {
	case config.StorageSQLite:
		cfg.SQLitePath = location
	case config.StoragePostgres:
		cfg.PostgresDSN = location
	case config.StorageRedis:
		cfg.RedisURL = location
	case config.StorageBolt:
		cfg.BoltPath = location
	default:
		return config.StorageConfig{}, fmt.Errorf("unsupported backend %q", kind)
	}
	return cfg, nil
}

func transferLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}
