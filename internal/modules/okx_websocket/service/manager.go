package service

import (
	"context"
	"sync"

	"portfolio_monitor/internal/models"
	"portfolio_monitor/internal/modules/config"
	"portfolio_monitor/pkg/logger"
)

// Seeder заполняет кеш из REST до первого подключения.
type Seeder interface {
	Seed(ctx context.Context, accountID string)
}

// Manager держит по коннектору на аккаунт, каждый в своей горутине.
type Manager struct {
	connectors []*Connector
	seeder     Seeder

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewManager(cfg *config.Config, sink StateSink, seeder Seeder) *Manager {
	m := &Manager{seeder: seeder}
	for _, acc := range cfg.Accounts {
		c := NewConnector(acc.Identity(), Credentials{
			APIKey:     acc.APIKey,
			SecretKey:  acc.SecretKey,
			Passphrase: acc.Passphrase,
		}, Config{
			URL:            cfg.OKX.WSURLFor(acc),
			InstType:       cfg.OKX.InstType,
			PingInterval:   cfg.OKX.PingInterval,
			ReconnectDelay: cfg.OKX.ReconnectDelay,
			LoginTimeout:   cfg.OKX.LoginTimeout,
		}, sink)
		c.SetListener(logTransition)
		m.connectors = append(m.connectors, c)
	}
	return m
}

func logTransition(accountID string, s models.ConnState) {
	logger.Debug("[WS] account=%s state=%s", accountID, s)
}

func (m *Manager) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	for _, c := range m.connectors {
		c := c
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			if m.seeder != nil {
				m.seeder.Seed(ctx, c.AccountID())
			}
			c.Run(ctx)
		}()
	}
	logger.Info("[WS] started %d account connectors", len(m.connectors))
}

// Stop отменяет все коннекторы и ждёт их выхода (не дольше ctx).
func (m *Manager) Stop(ctx context.Context) error {
	if m.cancel == nil {
		return nil
	}
	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) Sessions() map[string]models.ConnectionSession {
	out := make(map[string]models.ConnectionSession, len(m.connectors))
	for _, c := range m.connectors {
		out[c.AccountID()] = c.Session()
	}
	return out
}

func (m *Manager) LiveCount() int {
	n := 0
	for _, c := range m.connectors {
		if c.Session().State == models.ConnLive {
			n++
		}
	}
	return n
}

func (m *Manager) Total() int { return len(m.connectors) }
