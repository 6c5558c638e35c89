package postgres

import (
	"context"
	"fmt"
	"portfolio_monitor/internal/modules/config"
	"portfolio_monitor/pkg/db"
	"portfolio_monitor/pkg/logger"
	"time"

	"go.uber.org/fx"
)

// NewTxManager открывает пул и проверяет, что база отвечает; недоступная БД - фатально на старте.
func NewTxManager(ctx context.Context, cfg *config.Config) (*db.PgTxManager, error) {
	poolMaster, err := db.NewPool(ctx, db.PoolConfig{
		DSN: cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create poolMaster: %w", err)
	}

	err = poolMaster.Ping(ctx)
	if err != nil {
		poolMaster.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return db.NewPgTxManager(poolMaster), nil
}

var openTxManager = NewTxManager

// Module регистрируем первым в fx.New. Хуки fx добавляются при вызове конструктора,
// поэтому пул строим сразу в Invoke: его OnStop встаёт первым и выполняется последним.
func Module() fx.Option {
	return fx.Module("postgres",
		fx.Provide(
			func(ctx context.Context, lc fx.Lifecycle, cfg *config.Config) (*db.PgTxManager, error) {
				ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
				defer cancel()

				m, err := openTxManager(ctx, cfg)
				if err != nil {
					return nil, err
				}
				lc.Append(fx.Hook{
					OnStop: func(context.Context) error {
						logger.Info("[PG] closing pool")
						m.Close()
						return nil
					},
				})
				return m, nil
			},
			func(m *db.PgTxManager) db.TxManager { return m },
		),
		fx.Invoke(func(db.TxManager) {}),
	)
}
