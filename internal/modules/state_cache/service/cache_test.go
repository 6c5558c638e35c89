package service

import (
	"fmt"
	"sync"
	"testing"

	"portfolio_monitor/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type published struct {
	account string
	kind    models.MessageKind
	seq     uint64
	payload any
}

type recorder struct {
	mu   sync.Mutex
	msgs []published
	errs []string
}

func (r *recorder) Publish(accountID string, kind models.MessageKind, seq uint64, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, published{accountID, kind, seq, payload})
}

func (r *recorder) PublishError(accountID, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, accountID+": "+message)
}

func (r *recorder) last() published {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.msgs[len(r.msgs)-1]
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) Publish(accountID string, kind models.MessageKind, seq uint64, payload any) {
	m.Called(accountID, kind, seq, payload)
}

func (m *mockPublisher) PublishError(accountID, message string) {
	m.Called(accountID, message)
}

func ids(n ...string) []models.AccountIdentity {
	out := make([]models.AccountIdentity, 0, len(n))
	for _, id := range n {
		out = append(out, models.AccountIdentity{ID: id})
	}
	return out
}

func TestApplyBalanceScenario(t *testing.T) {
	rec := &recorder{}
	c := NewCache(ids("1"), rec)

	c.ApplyBalance("1", []models.OkxBalance{{
		TotalEq: "10000.5",
		Details: []models.OkxBalanceDetail{
			{Ccy: "USDT", CashBal: "8500", AvailBal: "8000", FrozenBal: "500", Eq: "10000.5", EqUsd: "10000.5"},
			{Ccy: "BTC", CashBal: "0.4", Eq: "0.4", EqUsd: "25000"},
		},
	}})

	s, ok := c.Snapshot("1")
	require.True(t, ok)
	require.NotNil(t, s.Balance)
	assert.Equal(t, 10000.5, s.Balance.TotalEquity)
	assert.Equal(t, 8000.0, s.Balance.Available)
	assert.Equal(t, 500.0, s.Balance.Frozen)
	require.Len(t, s.Balance.Assets, 2)
	assert.Equal(t, "BTC", s.Balance.Assets[0].Ccy)
	assert.Equal(t, "USDT", s.Balance.Assets[1].Ccy)

	p := rec.last()
	assert.Equal(t, models.KindBalance, p.kind)
	assert.Equal(t, uint64(1), p.seq)
}

func TestApplyBalanceLastEventWins(t *testing.T) {
	c := NewCache(ids("1"), nil)

	c.ApplyBalance("1", []models.OkxBalance{{TotalEq: "1", Imr: "5", Details: []models.OkxBalanceDetail{
		{Ccy: "ETH", CashBal: "1", Eq: "1", EqUsd: "3000"},
	}}})
	c.ApplyBalance("1", []models.OkxBalance{{TotalEq: "2"}})

	s, _ := c.Snapshot("1")
	assert.Equal(t, 2.0, s.Balance.TotalEquity)
	assert.Zero(t, s.Balance.MarginUsed)
	assert.Empty(t, s.Balance.Assets)
}

func TestApplyBalanceEmptyPayloadIsNoop(t *testing.T) {
	pub := &mockPublisher{}
	c := NewCache(ids("1"), pub)

	c.ApplyBalance("1", nil)

	s, _ := c.Snapshot("1")
	assert.Nil(t, s.Balance)
	assert.Zero(t, s.Seq)
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestApplyPositionsReplacesSet(t *testing.T) {
	rec := &recorder{}
	c := NewCache(ids("1"), rec)

	c.ApplyPositions("1", []models.OkxPosition{
		{InstID: "BTC-USDT-SWAP", PosSide: "long", Pos: "2", AvgPx: "60000", Lever: "10"},
		{InstID: "ETH-USDT-SWAP", PosSide: "short", Pos: "-3"},
	})
	c.ApplyPositions("1", []models.OkxPosition{
		{InstID: "BTC-USDT-SWAP", PosSide: "long", Pos: "0"},
		{InstID: "ETH-USDT-SWAP", PosSide: "short", Pos: "-1", MarkPx: "3100"},
	})

	s, _ := c.Snapshot("1")
	require.Len(t, s.Positions, 1)
	assert.Equal(t, "ETH-USDT-SWAP", s.Positions[0].InstID)
	assert.Equal(t, -1.0, s.Positions[0].Pos)
	assert.Equal(t, 3100.0, s.Positions[0].MarkPx)
	assert.True(t, s.HasPositions)

	p := rec.last()
	assert.Equal(t, models.KindPositions, p.kind)
	assert.Len(t, p.payload, 1)
}

func TestApplyOrderUpdate(t *testing.T) {
	pub := &mockPublisher{}
	pub.On("Publish", "1", models.KindPendingOrders, mock.AnythingOfType("uint64"), mock.Anything).Return()
	c := NewCache(ids("1"), pub)

	c.ApplyOrderUpdate("1", []models.OkxOrder{
		{OrdID: "a", InstID: "BTC-USDT-SWAP", State: "live", Sz: "1", Px: "50000"},
		{OrdID: "b", InstID: "BTC-USDT-SWAP", State: "partially_filled", Sz: "2", FillSz: "1"},
	})
	c.ApplyOrderUpdate("1", []models.OkxOrder{
		{OrdID: "a", State: "filled"},
		{OrdID: "c", State: "canceled"},
		{OrdID: "b", InstID: "BTC-USDT-SWAP", State: "partially_filled", Sz: "2", FillSz: "1.5"},
	})

	s, _ := c.Snapshot("1")
	require.Len(t, s.PendingOrders, 1)
	assert.Equal(t, "b", s.PendingOrders[0].OrderID)
	assert.Equal(t, 1.5, s.PendingOrders[0].FillSz)
	pub.AssertNumberOfCalls(t, "Publish", 2)
}

func TestSnapshotIsIsolatedCopy(t *testing.T) {
	c := NewCache(ids("1"), nil)
	c.ApplyBalance("1", []models.OkxBalance{{TotalEq: "1", Details: []models.OkxBalanceDetail{{Ccy: "USDT", CashBal: "1", Eq: "1"}}}})
	c.ApplyOrderUpdate("1", []models.OkxOrder{{OrdID: "a", State: "live", Px: "10"}})

	s, _ := c.Snapshot("1")
	s.Balance.Assets[0].Ccy = "XXX"
	*s.PendingOrders[0].Px = 99

	again, _ := c.Snapshot("1")
	assert.Equal(t, "USDT", again.Balance.Assets[0].Ccy)
	assert.Equal(t, 10.0, *again.PendingOrders[0].Px)
}

func TestSeedPathsPublish(t *testing.T) {
	rec := &recorder{}
	c := NewCache(ids("1"), rec)

	c.SeedBalance("1", models.Balance{TotalEquity: 3})
	c.SeedPositions("1", []models.PositionEntry{{InstID: "X", PosSide: "net", Pos: 1}, {InstID: "Y", PosSide: "net"}})
	c.SeedPendingOrders("1", []models.PendingOrder{{OrderID: "o", State: "live"}, {OrderID: "p", State: "filled"}})

	s, _ := c.Snapshot("1")
	assert.Equal(t, uint64(3), s.Seq)
	assert.Len(t, s.Positions, 1)
	assert.Len(t, s.PendingOrders, 1)
	assert.Len(t, rec.msgs, 3)
}

func TestSnapshotAllKeepsConfigOrder(t *testing.T) {
	c := NewCache(ids("b", "a"), nil)
	c.ApplyBalance("z", []models.OkxBalance{{TotalEq: "1"}})

	all := c.SnapshotAll()
	require.Len(t, all, 3)
	assert.Equal(t, []string{"b", "a", "z"}, []string{all[0].AccountID, all[1].AccountID, all[2].AccountID})

	_, ok := c.Snapshot("missing")
	assert.False(t, ok)
}

func TestOnErrorForwards(t *testing.T) {
	rec := &recorder{}
	c := NewCache(ids("1"), rec)

	c.OnError("1", "login failed")
	assert.Equal(t, []string{"1: login failed"}, rec.errs)
}

func TestPublishOrderFollowsApplyOrderPerAccount(t *testing.T) {
	rec := &recorder{}
	c := NewCache(ids("1", "2"), rec)

	var wg sync.WaitGroup
	for _, acc := range []string{"1", "2"} {
		wg.Add(1)
		go func(acc string) {
			defer wg.Done()
			for i := 1; i <= 100; i++ {
				c.ApplyBalance(acc, []models.OkxBalance{{TotalEq: fmt.Sprint(i)}})
			}
		}(acc)
	}
	wg.Wait()

	last := map[string]uint64{}
	for _, m := range rec.msgs {
		require.Greater(t, m.seq, last[m.account])
		last[m.account] = m.seq
		assert.Equal(t, float64(m.seq), m.payload.(models.Balance).TotalEquity)
	}
	assert.Equal(t, uint64(100), last["1"])
	assert.Equal(t, uint64(100), last["2"])
}
