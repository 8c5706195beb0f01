package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/poisearch/internal/config"
	dbRedis "github.com/kailas-cloud/poisearch/internal/db/redis"
	dompoi "github.com/kailas-cloud/poisearch/internal/domain/poi"
	logpkg "github.com/kailas-cloud/poisearch/internal/logger"
	poirepo "github.com/kailas-cloud/poisearch/internal/repository/poi"
	"github.com/kailas-cloud/poisearch/internal/version"
)

// poiStore is what the subcommands need from the POI repository.
type poiStore interface {
	EnsureIndex(ctx context.Context) (bool, error)
	RecreateIndex(ctx context.Context) error
	Upsert(ctx context.Context, pois []dompoi.POI) error
	Delete(ctx context.Context, id string) error
}

// app holds the connections opened in PersistentPreRunE.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	store  *dbRedis.Store
	pois   poiStore
}

func newRootCmd() *cobra.Command {
	var env string
	a := &app{}

	cmd := &cobra.Command{
		Use:   "poiload",
		Short: "Manage the poisearch index and load POIs",
		Long: `poiload creates the RediSearch POI index and bulk-imports POIs.

Connection and index settings come from config/<env>.yaml, the same file
the API server reads.`,
		Version:      version.String(),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.Context(), env)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.close()
		},
	}
	cmd.SetVersionTemplate("poiload {{.Version}}\n")
	cmd.PersistentFlags().StringVar(&env, "env", config.GetEnv(), "Config environment (reads config/<env>.yaml)")

	cmd.AddCommand(newIndexCmd(a), newImportCmd(a), newDeleteCmd(a))
	return cmd
}

func (a *app) open(ctx context.Context, env string) error {
	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	a.logger = logger

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:      cfg.Database.Addrs,
		Username:   cfg.Database.Username,
		Password:   cfg.Database.Password,
		DB:         cfg.Database.DB,
		ClientName: "poiload",
	})
	if err != nil {
		return fmt.Errorf("create database store: %w", err)
	}
	a.store = store

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}

	a.pois = poirepo.New(store, poirepo.Config{
		Index:     cfg.Search.Index,
		KeyPrefix: cfg.Search.KeyPrefix,
		Language:  cfg.Search.Language,
	})
	return nil
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}
