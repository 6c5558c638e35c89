package service

import (
	"portfolio_monitor/internal/models"
	"portfolio_monitor/pkg/metrics"
)

// ApplyBalance: берём первый элемент, Balance заменяется целиком. Пустой payload ничего не меняет.
func (c *Cache) ApplyBalance(accountID string, raw []models.OkxBalance) {
	if len(raw) == 0 {
		return
	}
	c.SeedBalance(accountID, raw[0].ToBalance())
}

func (c *Cache) SeedBalance(accountID string, b models.Balance) {
	a := c.get(accountID)

	a.mu.Lock()
	defer a.mu.Unlock()

	stored := b.Clone()
	a.balance = &stored
	a.seq++
	c.publish(accountID, models.KindBalance, a.seq, b.Clone())
}

// ApplyPositions: payload - полный срез, нулевые позиции в итоговый набор не попадают.
func (c *Cache) ApplyPositions(accountID string, raw []models.OkxPosition) {
	entries := make([]models.PositionEntry, 0, len(raw))
	for _, r := range raw {
		if e, ok := r.ToEntry(); ok {
			entries = append(entries, e)
		}
	}
	c.SeedPositions(accountID, entries)
}

func (c *Cache) SeedPositions(accountID string, entries []models.PositionEntry) {
	next := make(map[models.PositionKey]models.PositionEntry, len(entries))
	for _, e := range entries {
		if e.Pos == 0 {
			continue
		}
		next[e.Key()] = clonePosition(e)
	}

	a := c.get(accountID)

	a.mu.Lock()
	defer a.mu.Unlock()

	a.positions = next
	a.hasPositions = true
	a.seq++
	c.publish(accountID, models.KindPositions, a.seq, a.positionList())
}

// ApplyOrderUpdate: live/partially_filled - upsert по ordId, любой другой статус - удаление.
func (c *Cache) ApplyOrderUpdate(accountID string, raw []models.OkxOrder) {
	a := c.get(accountID)

	a.mu.Lock()
	defer a.mu.Unlock()

	for _, r := range raw {
		if r.OrdID == "" {
			continue
		}
		if r.IsPending() {
			a.pendingOrders[r.OrdID] = r.ToPendingOrder()
			continue
		}
		delete(a.pendingOrders, r.OrdID)
	}
	a.hasPendingOrders = true
	a.seq++
	c.publish(accountID, models.KindPendingOrders, a.seq, a.orderList())
}

// SeedPendingOrders: полная таблица из REST на холодном старте.
func (c *Cache) SeedPendingOrders(accountID string, orders []models.PendingOrder) {
	next := make(map[string]models.PendingOrder, len(orders))
	for _, o := range orders {
		if o.OrderID == "" || !models.IsPendingState(o.State) {
			continue
		}
		next[o.OrderID] = cloneOrder(o)
	}

	a := c.get(accountID)

	a.mu.Lock()
	defer a.mu.Unlock()

	a.pendingOrders = next
	a.hasPendingOrders = true
	a.seq++
	c.publish(accountID, models.KindPendingOrders, a.seq, a.orderList())
}

// вызывается под замком аккаунта: порядок публикаций = порядок применений.
func (c *Cache) publish(accountID string, kind models.MessageKind, seq uint64, payload any) {
	metrics.CacheUpdates.WithLabelValues(accountID, string(kind)).Inc()
	if c.pub == nil {
		return
	}
	c.pub.Publish(accountID, kind, seq, payload)
}
