package okx_websocket

import (
	"context"

	bootstrap "portfolio_monitor/internal/modules/bootstrap/service"
	"portfolio_monitor/internal/modules/config"
	"portfolio_monitor/internal/modules/okx_websocket/service"
	cache "portfolio_monitor/internal/modules/state_cache/service"

	"go.uber.org/fx"
)

// Module поднимает приватные стримы OKX по всем аккаунтам и льёт события в кеш.
func Module() fx.Option {
	return fx.Module("okx_websocket",
		fx.Provide(
			func(cfg *config.Config, c *cache.Cache, seeder *bootstrap.Seeder) *service.Manager {
				return service.NewManager(cfg, c, seeder)
			},
		),
		fx.Invoke(func(lc fx.Lifecycle, m *service.Manager) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					m.Start()
					return nil
				},
				OnStop: func(ctx context.Context) error {
					return m.Stop(ctx)
				},
			})
		}),
	)
}
