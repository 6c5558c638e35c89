package tracing

import (
	"context"

	"portfolio_monitor/internal/modules/config"
	"portfolio_monitor/pkg/logger"
	"portfolio_monitor/pkg/tracing"

	"github.com/opentracing/opentracing-go"
	"go.uber.org/fx"
)

// Module ставит глобальный трейсер; при tracing.enabled=false это NoopTracer.
func Module() fx.Option {
	return fx.Module("tracing",
		fx.Provide(
			func(lc fx.Lifecycle, cfg *config.Config) (opentracing.Tracer, error) {
				tracer, closer, err := tracing.InitTracer(tracing.Config{
					Enabled: cfg.Tracing.Enabled,
					Host:    cfg.Tracing.Host,
					Port:    cfg.Tracing.Port,
				})
				if err != nil {
					return nil, err
				}
				if cfg.Tracing.Enabled {
					logger.Info("[TRACE] jaeger agent %s:%d", cfg.Tracing.Host, cfg.Tracing.Port)
				}
				lc.Append(fx.Hook{
					OnStop: func(context.Context) error {
						closer()
						return nil
					},
				})
				return tracer, nil
			},
		),
		fx.Invoke(func(opentracing.Tracer) {}),
	)
}
