package service

import (
	"context"
	"fmt"

	"portfolio_monitor/internal/models"
)

type snapshotReader interface {
	Snapshot(accountID string) (models.AccountSnapshot, bool)
}

// CacheSource: баланс из кеша вместо REST (snapshot.source: cache).
type CacheSource struct {
	cache snapshotReader
}

func NewCacheSource(c snapshotReader) *CacheSource {
	return &CacheSource{cache: c}
}

func (s *CacheSource) FetchBalance(_ context.Context, accountID string) (models.Balance, error) {
	snap, ok := s.cache.Snapshot(accountID)
	if !ok {
		return models.Balance{}, fmt.Errorf("%w: %s", models.ErrAccountNotFound, accountID)
	}
	if snap.Balance == nil {
		return models.Balance{}, fmt.Errorf("account %s: no balance in cache yet", accountID)
	}
	return snap.Balance.Clone(), nil
}
