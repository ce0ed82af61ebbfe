package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/varekai/pagepilot/internal/config"
	"github.com/varekai/pagepilot/internal/llmclient"
	"github.com/varekai/pagepilot/internal/observability"
	"github.com/varekai/pagepilot/internal/server"
	"github.com/varekai/pagepilot/internal/store"
	"github.com/varekai/pagepilot/internal/turn"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the turn-processing HTTP service.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.NewConfigFromViper(viper.GetViper())
		if err != nil {
			return err
		}
		return runServe(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logger := observability.GetLogger()
	defer observability.Sync()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, cleanup, err := newRepository(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	model, err := llmclient.NewClient(cfg.LLM, logger)
	if err != nil {
		return err
	}
	defer model.Close()

	orch := turn.New(repo, model, float64(cfg.LLM.Temperature), logger)
	srv := server.New(cfg.Server, orch, logger)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(srv.ListenAndServe)
	g.Go(func() error {
		<-gCtx.Done()
		return srv.Shutdown(context.Background())
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server terminated: %w", err)
	}
	logger.Info("Shutdown complete")
	return nil
}

// newRepository selects the Postgres store when a database URL is configured
// and the in-memory store otherwise.
func newRepository(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (turn.Repository, func(), error) {
	if cfg.URL == "" {
		logger.Warn("No database configured; sessions will not survive restarts")
		return store.NewMemory(), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	pg, err := store.New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	if err := pg.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return pg, pool.Close, nil
}
