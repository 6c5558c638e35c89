package broadcast

import (
	"context"

	"portfolio_monitor/internal/modules/broadcast/service"
	"portfolio_monitor/internal/modules/config"
	"portfolio_monitor/pkg/logger"

	"go.uber.org/fx"
)

// Module: хаб наблюдателей. Websocket-наблюдатели приходят из api (/ws),
// kafka-наблюдатель включается, если заданы брокеры.
func Module() fx.Option {
	return fx.Module("broadcast",
		fx.Provide(
			service.NewHub,
		),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, hub *service.Hub) {
			if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.Topic == "" {
				return
			}
			obs := service.NewKafkaObserver(service.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic), 0)
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					logger.Info("[HUB] kafka mirror -> %s", cfg.Kafka.Topic)
					return hub.Register(obs)
				},
				OnStop: func(context.Context) error {
					hub.Unregister(obs)
					return obs.Close()
				},
			})
		}),
	)
}
