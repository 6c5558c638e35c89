package okx_client

import (
	"portfolio_monitor/internal/modules/okx_client/service"

	"go.uber.org/fx"
)

// Module: REST OKX: холодный старт кеша, сэмплер снапшотов, отмена ордеров из API.
func Module() fx.Option {
	return fx.Module("okx_client",
		fx.Provide(
			service.NewRegistry,
		),
	)
}
