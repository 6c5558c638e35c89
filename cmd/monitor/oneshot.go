package main

import (
	"context"
	"fmt"
	"time"

	"portfolio_monitor/internal/modules/config"
	okxClient "portfolio_monitor/internal/modules/okx_client/service"
	"portfolio_monitor/internal/modules/postgres"
	snapshot "portfolio_monitor/internal/modules/snapshot/service"
	"portfolio_monitor/internal/modules/snapshot/service/pg"
	"portfolio_monitor/pkg/db"
	"portfolio_monitor/pkg/logger"

	"github.com/spf13/cobra"
)

func openStore(ctx context.Context, cfg *config.Config) (*db.PgTxManager, *pg.Store, error) {
	tx, err := postgres.NewTxManager(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	store := pg.NewStore(tx)
	if err := store.EnsureSchema(ctx); err != nil {
		tx.Close()
		return nil, nil, err
	}
	return tx, store, nil
}

func newCollectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "collect",
		Short: "take one balance snapshot of every account via REST and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Snapshot.TickTimeout+10*time.Second)
			defer cancel()

			tx, store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer tx.Close()

			if cfg.Snapshot.Source == config.SnapshotSourceCache {
				logger.Warn("[SNAPSHOT] collect has no live cache, using REST")
			}
			sampler := snapshot.NewSampler(okxClient.NewRegistry(cfg), store, cfg.AccountIDs(),
				cfg.Snapshot.MaxConcurrent, cfg.Snapshot.Retention())

			n := sampler.CollectAll(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "collected %d/%d accounts\n", n, len(cfg.Accounts))
			if n < len(cfg.Accounts) {
				return fmt.Errorf("%d accounts failed, see log", len(cfg.Accounts)-n)
			}
			return nil
		},
	}
}

func newPruneCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "delete snapshots older than the retention window and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()
			if days > 0 {
				cfg.Snapshot.RetentionDays = days
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			tx, store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer tx.Close()

			sampler := snapshot.NewSampler(nil, store, nil, 1, cfg.Snapshot.Retention())
			n := sampler.Cleanup(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d snapshots older than %d days\n", n, cfg.Snapshot.RetentionDays)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "retention-days", 0, "override snapshot.retention_days")
	return cmd
}
