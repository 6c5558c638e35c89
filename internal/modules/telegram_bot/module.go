package telegram

import (
	"context"

	broadcast "portfolio_monitor/internal/modules/broadcast/service"
	"portfolio_monitor/internal/modules/state_cache/service"
	tg "portfolio_monitor/internal/modules/telegram_bot/service"
	"portfolio_monitor/pkg/logger"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("telegram",
		fx.Provide(
			func(cache *service.Cache) tg.StateReader { return cache },
			tg.NewTelegram,
		),
		fx.Invoke(
			func(lc fx.Lifecycle, t *tg.Telegram, hub *broadcast.Hub) {
				if !t.Enabled() {
					logger.Info("[TG] token is empty, alerts disabled")
					return
				}
				ctx, cancel := context.WithCancel(context.Background())
				lc.Append(fx.Hook{
					OnStart: func(context.Context) error {
						go t.Run(ctx)
						go t.Start(ctx)
						return hub.Register(t)
					},
					OnStop: func(context.Context) error {
						hub.Unregister(t)
						cancel()
						t.Stop()
						return nil
					},
				})
			},
		),
	)
}
