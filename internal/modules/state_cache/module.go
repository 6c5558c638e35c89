package state_cache

import (
	broadcastSvc "portfolio_monitor/internal/modules/broadcast/service"
	"portfolio_monitor/internal/modules/config"
	"portfolio_monitor/internal/modules/state_cache/service"

	"go.uber.org/fx"
)

// Module: кеш состояния аккаунтов. Хаб получает кеш через Attach: прямой зависимостью был бы цикл.
func Module() fx.Option {
	return fx.Module("state_cache",
		fx.Provide(
			func(cfg *config.Config, hub *broadcastSvc.Hub) *service.Cache {
				return service.NewCache(cfg.Identities(), hub)
			},
		),
		fx.Invoke(func(hub *broadcastSvc.Hub, cache *service.Cache) {
			hub.Attach(cache)
		}),
	)
}

var _ broadcastSvc.SnapshotSource = (*service.Cache)(nil)
