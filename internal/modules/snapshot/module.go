package snapshot

import (
	"context"

	"portfolio_monitor/internal/modules/config"
	okxClient "portfolio_monitor/internal/modules/okx_client/service"
	"portfolio_monitor/internal/modules/snapshot/service"
	"portfolio_monitor/internal/modules/snapshot/service/pg"
	cache "portfolio_monitor/internal/modules/state_cache/service"
	"portfolio_monitor/pkg/db"
	"portfolio_monitor/pkg/logger"

	"go.uber.org/fx"
)

// NewBalanceSource: по умолчанию баланс снимаем через REST, кеш - по snapshot.source: cache.
func NewBalanceSource(cfg *config.Config, registry *okxClient.Registry, c *cache.Cache) service.BalanceSource {
	if cfg.Snapshot.Source == config.SnapshotSourceCache {
		return service.NewCacheSource(c)
	}
	return registry
}

func NewSampler(cfg *config.Config, source service.BalanceSource, store *pg.Store) *service.Sampler {
	return service.NewSampler(source, store, cfg.AccountIDs(), cfg.Snapshot.MaxConcurrent, cfg.Snapshot.Retention())
}

func NewScheduler(cfg *config.Config, sampler *service.Sampler) *service.Scheduler {
	return service.NewScheduler(sampler, cfg.Snapshot.Interval, cfg.Snapshot.TickTimeout)
}

func Module() fx.Option {
	return fx.Module("snapshot",
		fx.Provide(
			func(tx db.TxManager) *pg.Store { return pg.NewStore(tx) },
			NewBalanceSource,
			NewSampler,
			NewScheduler,
		),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, store *pg.Store, s *service.Scheduler) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					if err := store.EnsureSchema(ctx); err != nil {
						return err
					}
					if !cfg.Snapshot.Enabled {
						logger.Info("[SNAPSHOT] disabled by config")
						return nil
					}
					s.Start()
					return nil
				},
				OnStop: func(ctx context.Context) error {
					return s.Stop(ctx)
				},
			})
		}),
	)
}
