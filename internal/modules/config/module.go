package config

import (
	"portfolio_monitor/pkg/logger"
	"strings"

	"go.uber.org/fx"
)

// Module регистрирует конфиг как fx-провайдер. Уже загруженный (из cmd) кладётся как есть.
func Module(loaded *Config) fx.Option {
	provide := fx.Provide(NewConfig)
	if loaded != nil {
		provide = fx.Supply(loaded)
	}
	return fx.Module("config",
		provide,
		fx.Invoke(func(cfg *Config) {
			if skipped := cfg.SkippedAccounts(); len(skipped) > 0 {
				logger.Warn("[CONFIG] incomplete accounts skipped: %s", strings.Join(skipped, ","))
			}
			if len(cfg.Accounts) == 0 {
				logger.Warn("[CONFIG] no OKX accounts configured")
			}
		}),
	)
}
