package main

import (
	"context"
	"fmt"
	"time"

	"portfolio_monitor/internal/modules/api"
	"portfolio_monitor/internal/modules/bootstrap"
	"portfolio_monitor/internal/modules/broadcast"
	"portfolio_monitor/internal/modules/config"
	"portfolio_monitor/internal/modules/health"
	"portfolio_monitor/internal/modules/okx_client"
	"portfolio_monitor/internal/modules/okx_websocket"
	"portfolio_monitor/internal/modules/postgres"
	"portfolio_monitor/internal/modules/snapshot"
	"portfolio_monitor/internal/modules/state_cache"
	telegram "portfolio_monitor/internal/modules/telegram_bot"
	"portfolio_monitor/internal/modules/tracing"
	"portfolio_monitor/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run connectors, observers hub, snapshot sampler and HTTP surfaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()

			app := fx.New(
				fx.WithLogger(func() fxevent.Logger {
					return &fxevent.ZapLogger{Logger: logger.InfoLogger}
				}),
				fx.Provide(
					func() context.Context {
						return context.Background()
					},
				),
				config.Module(cfg),
				// postgres первым: его Invoke строит пул раньше остальных хуков, пул закрывается последним
				postgres.Module(),
				tracing.Module(),
				broadcast.Module(),
				state_cache.Module(),
				okx_client.Module(),
				bootstrap.Module(),
				okx_websocket.Module(),
				snapshot.Module(),
				telegram.Module(),
				api.Module(),
				health.Module(),
			)
			if err := app.Err(); err != nil {
				return fmt.Errorf("build app: %w", err)
			}

			startCtx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if err := app.Start(startCtx); err != nil {
				return fmt.Errorf("start app: %w", err)
			}
			logger.Info("[BOOT] started: %d accounts", len(cfg.Accounts))

			sig := <-app.Wait()
			logger.Info("[BOOT] %s, shutting down", sig.Signal)

			stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer stopCancel()
			return app.Stop(stopCtx)
		},
	}
}
