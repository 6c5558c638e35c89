package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"portfolio_monitor/internal/models"
	"portfolio_monitor/pkg/logger"
	"portfolio_monitor/pkg/metrics"
	"portfolio_monitor/pkg/tracing"

	"golang.org/x/sync/errgroup"
)

// BalanceSource: откуда берём баланс для снапшота: REST или кеш.
type BalanceSource interface {
	FetchBalance(ctx context.Context, accountID string) (models.Balance, error)
}

type Store interface {
	UpsertSnapshot(ctx context.Context, rec models.SnapshotRecord) (int64, error)
	DeleteSnapshotsOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type Sampler struct {
	source        BalanceSource
	store         Store
	accounts      []string
	maxConcurrent int
	retention     time.Duration

	now func() time.Time
}

func NewSampler(source BalanceSource, store Store, accounts []string, maxConcurrent int, retention time.Duration) *Sampler {
	if maxConcurrent <= 0 {
		maxConcurrent = 5
	}
	if retention <= 0 {
		retention = 90 * 24 * time.Hour
	}
	return &Sampler{
		source:        source,
		store:         store,
		accounts:      append([]string(nil), accounts...),
		maxConcurrent: maxConcurrent,
		retention:     retention,
		now:           time.Now,
	}
}

// CollectAll снимает баланс всех аккаунтов параллельно (не больше maxConcurrent).
// Ошибка одного аккаунта не трогает остальные; возвращает число записанных снапшотов.
func (s *Sampler) CollectAll(ctx context.Context) int {
	span, ctx := tracing.StartSpan(ctx, "snapshot.CollectAll")
	defer span.Finish()

	bucketAt := s.now()
	var ok atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)
	for _, id := range s.accounts {
		id := id
		g.Go(func() error {
			if err := s.collectOne(gctx, id, bucketAt); err != nil {
				logger.Warn("[SNAPSHOT] account=%s: %v", id, err)
				return nil
			}
			ok.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	n := int(ok.Load())
	span.SetTag("accounts", len(s.accounts))
	span.SetTag("written", n)
	logger.Info("[SNAPSHOT] collected %d/%d accounts bucket=%s",
		n, len(s.accounts), models.BucketMinute(bucketAt).Format(time.RFC3339))
	return n
}

func (s *Sampler) collectOne(ctx context.Context, accountID string, at time.Time) (err error) {
	span, ctx := tracing.StartSpan(ctx, "snapshot.collectOne")
	span.SetTag("account", accountID)
	defer func() { tracing.FinishSpan(span, err) }()

	bal, err := s.source.FetchBalance(ctx, accountID)
	if err != nil {
		metrics.SnapshotFailures.WithLabelValues("fetch").Inc()
		return fmt.Errorf("fetch balance: %w", err)
	}

	rec := models.NewSnapshotRecord(accountID, at, bal)
	if _, err = s.store.UpsertSnapshot(ctx, rec); err != nil {
		metrics.SnapshotFailures.WithLabelValues("upsert").Inc()
		return fmt.Errorf("%w: upsert: %v", models.ErrPersistence, err)
	}
	metrics.SnapshotsWritten.Inc()
	return nil
}

// Cleanup удаляет снапшоты старше retention, ошибки только логирует.
func (s *Sampler) Cleanup(ctx context.Context) int64 {
	span, ctx := tracing.StartSpan(ctx, "snapshot.Cleanup")
	defer span.Finish()

	cutoff := s.now().UTC().Add(-s.retention)
	n, err := s.store.DeleteSnapshotsOlderThan(ctx, cutoff)
	if err != nil {
		metrics.SnapshotFailures.WithLabelValues("cleanup").Inc()
		logger.Error("[SNAPSHOT] cleanup before %s: %v", cutoff.Format(time.RFC3339), err)
		return 0
	}
	metrics.SnapshotsDeleted.Add(float64(n))
	logger.Info("[SNAPSHOT] cleanup: deleted %d records older than %s", n, cutoff.Format(time.RFC3339))
	return n
}
