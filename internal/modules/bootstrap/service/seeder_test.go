package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"portfolio_monitor/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockFetcher struct{ mock.Mock }

func (m *mockFetcher) FetchBalance(ctx context.Context, id string) (models.Balance, error) {
	args := m.Called(id)
	return args.Get(0).(models.Balance), args.Error(1)
}

func (m *mockFetcher) FetchPositions(ctx context.Context, id string) ([]models.PositionEntry, error) {
	args := m.Called(id)
	return args.Get(0).([]models.PositionEntry), args.Error(1)
}

func (m *mockFetcher) FetchPendingOrders(ctx context.Context, id string) ([]models.PendingOrder, error) {
	args := m.Called(id)
	return args.Get(0).([]models.PendingOrder), args.Error(1)
}

type fakeTarget struct {
	mu        sync.Mutex
	balance   *models.Balance
	positions []models.PositionEntry
	orders    []models.PendingOrder
	calls     int
}

func (f *fakeTarget) SeedBalance(_ string, b models.Balance) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balance = &b
	f.calls++
}

func (f *fakeTarget) SeedPositions(_ string, p []models.PositionEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.positions = p
	f.calls++
}

func (f *fakeTarget) SeedPendingOrders(_ string, o []models.PendingOrder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = o
	f.calls++
}

func TestSeedAll(t *testing.T) {
	f := &mockFetcher{}
	f.On("FetchBalance", "1").Return(models.Balance{TotalEquity: 10}, nil)
	f.On("FetchPositions", "1").Return([]models.PositionEntry{{InstID: "BTC-USDT-SWAP", Pos: 1}}, nil)
	f.On("FetchPendingOrders", "1").Return([]models.PendingOrder{{OrderID: "a", State: "live"}}, nil)
	target := &fakeTarget{}

	NewSeeder(f, target, 0).Seed(context.Background(), "1")

	assert.Equal(t, 3, target.calls)
	assert.Equal(t, 10.0, target.balance.TotalEquity)
	assert.Len(t, target.positions, 1)
	assert.Len(t, target.orders, 1)
	f.AssertExpectations(t)
}

func TestSeedPartialFailure(t *testing.T) {
	f := &mockFetcher{}
	f.On("FetchBalance", "1").Return(models.Balance{}, errors.New("timeout"))
	f.On("FetchPositions", "1").Return([]models.PositionEntry{}, nil)
	f.On("FetchPendingOrders", "1").Return([]models.PendingOrder(nil), errors.New("50113"))
	target := &fakeTarget{}

	NewSeeder(f, target, 0).Seed(context.Background(), "1")

	assert.Equal(t, 1, target.calls)
	assert.Nil(t, target.balance)
}
