package bootstrap

import (
	bootstrap "portfolio_monitor/internal/modules/bootstrap/service"
	"portfolio_monitor/internal/modules/config"
	okx "portfolio_monitor/internal/modules/okx_client/service"
	cache "portfolio_monitor/internal/modules/state_cache/service"

	"go.uber.org/fx"
)

// Module: прогрев кеша из REST; сам Seed вызывает менеджер коннекторов перед первым подключением.
func Module() fx.Option {
	return fx.Module("bootstrap",
		fx.Provide(
			func(cfg *config.Config, r *okx.Registry, c *cache.Cache) *bootstrap.Seeder {
				return bootstrap.NewSeeder(r, c, cfg.OKX.RequestTimeout)
			},
		),
	)
}
