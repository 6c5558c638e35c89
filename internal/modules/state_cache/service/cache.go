package service

import (
	"sync"

	"portfolio_monitor/internal/models"
)

// Publisher: куда кеш отдаёт изменения (реализует broadcast.Hub).
// Вызывается под замком аккаунта, поэтому не должен блокироваться и не должен звать кеш обратно.
type Publisher interface {
	Publish(accountID string, kind models.MessageKind, seq uint64, payload any)
	PublishError(accountID, message string)
}

type account struct {
	mu sync.Mutex

	seq           uint64
	balance       *models.Balance
	positions     map[models.PositionKey]models.PositionEntry
	pendingOrders map[string]models.PendingOrder

	hasPositions     bool
	hasPendingOrders bool
}

// Cache: единственный владелец AccountState. Замок на аккаунт, глобального замка на мутации нет.
type Cache struct {
	mu       sync.RWMutex
	accounts map[string]*account
	order    []string

	pub Publisher
}

func NewCache(ids []models.AccountIdentity, pub Publisher) *Cache {
	c := &Cache{
		accounts: make(map[string]*account, len(ids)),
		pub:      pub,
	}
	for _, id := range ids {
		if _, ok := c.accounts[id.ID]; ok {
			continue
		}
		c.accounts[id.ID] = newAccount()
		c.order = append(c.order, id.ID)
	}
	return c
}

func newAccount() *account {
	return &account{
		positions:     make(map[models.PositionKey]models.PositionEntry),
		pendingOrders: make(map[string]models.PendingOrder),
	}
}

// get отдаёт запись аккаунта; незнакомый аккаунт заводится на лету.
func (c *Cache) get(accountID string) *account {
	c.mu.RLock()
	a, ok := c.accounts[accountID]
	c.mu.RUnlock()
	if ok {
		return a
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if a, ok = c.accounts[accountID]; ok {
		return a
	}
	a = newAccount()
	c.accounts[accountID] = a
	c.order = append(c.order, accountID)
	return a
}

func (c *Cache) lookup(accountID string) (*account, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.accounts[accountID]
	return a, ok
}

// Snapshot: глубокая копия состояния; живые структуры наружу не уходят.
func (c *Cache) Snapshot(accountID string) (models.AccountSnapshot, bool) {
	a, ok := c.lookup(accountID)
	if !ok {
		return models.AccountSnapshot{}, false
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshot(accountID), true
}

// SnapshotAll: все аккаунты в порядке конфига.
func (c *Cache) SnapshotAll() []models.AccountSnapshot {
	c.mu.RLock()
	ids := make([]string, len(c.order))
	copy(ids, c.order)
	c.mu.RUnlock()

	out := make([]models.AccountSnapshot, 0, len(ids))
	for _, id := range ids {
		if s, ok := c.Snapshot(id); ok {
			out = append(out, s)
		}
	}
	return out
}

func (c *Cache) AccountIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, len(c.order))
	copy(ids, c.order)
	return ids
}

// OnError: ошибки коннектора уходят наблюдателям как сообщения типа error.
func (c *Cache) OnError(accountID, msg string) {
	if c.pub != nil {
		c.pub.PublishError(accountID, msg)
	}
}

// вызывается под a.mu
func (a *account) snapshot(accountID string) models.AccountSnapshot {
	s := models.AccountSnapshot{
		AccountID:        accountID,
		Seq:              a.seq,
		Positions:        a.positionList(),
		PendingOrders:    a.orderList(),
		HasPositions:     a.hasPositions,
		HasPendingOrders: a.hasPendingOrders,
	}
	if a.balance != nil {
		b := a.balance.Clone()
		s.Balance = &b
	}
	return s
}

func (a *account) positionList() []models.PositionEntry {
	out := make([]models.PositionEntry, 0, len(a.positions))
	for _, p := range a.positions {
		out = append(out, clonePosition(p))
	}
	models.SortPositions(out)
	return out
}

func (a *account) orderList() []models.PendingOrder {
	out := make([]models.PendingOrder, 0, len(a.pendingOrders))
	for _, o := range a.pendingOrders {
		out = append(out, cloneOrder(o))
	}
	models.SortPendingOrders(out)
	return out
}

func clonePosition(p models.PositionEntry) models.PositionEntry {
	if p.LiqPx != nil {
		v := *p.LiqPx
		p.LiqPx = &v
	}
	if p.CreatedAt != nil {
		t := *p.CreatedAt
		p.CreatedAt = &t
	}
	return p
}

func cloneOrder(o models.PendingOrder) models.PendingOrder {
	if o.Px != nil {
		v := *o.Px
		o.Px = &v
	}
	if o.AvgPx != nil {
		v := *o.AvgPx
		o.AvgPx = &v
	}
	if o.CreatedAt != nil {
		t := *o.CreatedAt
		o.CreatedAt = &t
	}
	if o.UpdatedAt != nil {
		t := *o.UpdatedAt
		o.UpdatedAt = &t
	}
	return o
}
