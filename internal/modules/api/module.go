package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"portfolio_monitor/internal/modules/api/service"
	broadcast "portfolio_monitor/internal/modules/broadcast/service"
	"portfolio_monitor/internal/modules/config"
	okxClient "portfolio_monitor/internal/modules/okx_client/service"
	okxWS "portfolio_monitor/internal/modules/okx_websocket/service"
	"portfolio_monitor/internal/modules/snapshot/service/pg"
	cache "portfolio_monitor/internal/modules/state_cache/service"
	"portfolio_monitor/pkg/logger"

	"go.uber.org/fx"
)

const observerQueueSize = 256

func NewServer(
	cfg *config.Config,
	c *cache.Cache,
	m *okxWS.Manager,
	registry *okxClient.Registry,
	store *pg.Store,
	hub *broadcast.Hub,
) *service.Server {
	return service.NewServer(service.Deps{
		Accounts:  cfg.Identities(),
		State:     c,
		Sessions:  m,
		Exchange:  registry,
		Snapshots: store,
		Hub:       hub,
		QueueSize: observerQueueSize,
	})
}

func RunHTTP(lc fx.Lifecycle, cfg *config.Config, s *service.Server) {
	addr := fmt.Sprintf("%s:%d", cfg.Service.Host, cfg.Service.PublicPort)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			logger.Info("[HTTP] public api on %s", addr)
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("[HTTP] public api: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

// Module: публичный HTTP: REST по аккаунтам и /ws для наблюдателей.
func Module() fx.Option {
	return fx.Module("api",
		fx.Provide(NewServer),
		fx.Invoke(RunHTTP),
	)
}
