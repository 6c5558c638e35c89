package service

import (
	"context"
	"time"

	"portfolio_monitor/internal/models"
	"portfolio_monitor/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// Fetcher: REST-запросы холодного старта.
type Fetcher interface {
	FetchBalance(ctx context.Context, accountID string) (models.Balance, error)
	FetchPositions(ctx context.Context, accountID string) ([]models.PositionEntry, error)
	FetchPendingOrders(ctx context.Context, accountID string) ([]models.PendingOrder, error)
}

// Target: куда кладём результат (кеш).
type Target interface {
	SeedBalance(accountID string, b models.Balance)
	SeedPositions(accountID string, entries []models.PositionEntry)
	SeedPendingOrders(accountID string, orders []models.PendingOrder)
}

// Seeder прогревает кеш аккаунта до того, как стрим дойдёт до LIVE.
// Ошибки только логируются: стрим всё равно пришлёт полный срез после подписки.
type Seeder struct {
	f       Fetcher
	t       Target
	timeout time.Duration
}

func NewSeeder(f Fetcher, t Target, timeout time.Duration) *Seeder {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Seeder{f: f, t: t, timeout: timeout}
}

func (s *Seeder) Seed(ctx context.Context, accountID string) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		balance   models.Balance
		positions []models.PositionEntry
		orders    []models.PendingOrder
		okB       bool
		okP       bool
		okO       bool
	)

	var g errgroup.Group
	g.Go(func() error {
		b, err := s.f.FetchBalance(ctx, accountID)
		if err != nil {
			logger.Warn("[BOOT] account=%s balance: %v", accountID, err)
			return nil
		}
		balance, okB = b, true
		return nil
	})
	g.Go(func() error {
		p, err := s.f.FetchPositions(ctx, accountID)
		if err != nil {
			logger.Warn("[BOOT] account=%s positions: %v", accountID, err)
			return nil
		}
		positions, okP = p, true
		return nil
	})
	g.Go(func() error {
		o, err := s.f.FetchPendingOrders(ctx, accountID)
		if err != nil {
			logger.Warn("[BOOT] account=%s pending orders: %v", accountID, err)
			return nil
		}
		orders, okO = o, true
		return nil
	})
	_ = g.Wait()

	if okB {
		s.t.SeedBalance(accountID, balance)
	}
	if okP {
		s.t.SeedPositions(accountID, positions)
	}
	if okO {
		s.t.SeedPendingOrders(accountID, orders)
	}
	logger.Info("[BOOT] account=%s seeded: balance=%t positions=%d orders=%d",
		accountID, okB, len(positions), len(orders))
}
