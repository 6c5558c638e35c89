package service

import (
	"context"
	"fmt"
	"net/http"

	"portfolio_monitor/internal/models"
	"portfolio_monitor/internal/modules/config"
)

// Registry: REST-клиенты по всем аккаунтам конфига.
type Registry struct {
	clients map[string]*Client
	order   []string
}

func NewRegistry(cfg *config.Config) *Registry {
	return NewRegistryWithHTTP(cfg, nil)
}

func NewRegistryWithHTTP(cfg *config.Config, httpClient *http.Client) *Registry {
	r := &Registry{clients: make(map[string]*Client, len(cfg.Accounts))}
	for _, acc := range cfg.Accounts {
		r.clients[acc.ID] = NewClient(acc, cfg.OKX, httpClient)
		r.order = append(r.order, acc.ID)
	}
	return r
}

func (r *Registry) Client(accountID string) (*Client, error) {
	c, ok := r.clients[accountID]
	if !ok {
		return nil, fmt.Errorf("okx client %s: %w", accountID, models.ErrAccountNotFound)
	}
	return c, nil
}

func (r *Registry) AccountIDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) FetchBalance(ctx context.Context, accountID string) (models.Balance, error) {
	c, err := r.Client(accountID)
	if err != nil {
		return models.Balance{}, err
	}
	return c.FetchBalance(ctx)
}

func (r *Registry) FetchPositions(ctx context.Context, accountID string) ([]models.PositionEntry, error) {
	c, err := r.Client(accountID)
	if err != nil {
		return nil, err
	}
	return c.FetchPositions(ctx)
}

func (r *Registry) FetchPendingOrders(ctx context.Context, accountID string) ([]models.PendingOrder, error) {
	c, err := r.Client(accountID)
	if err != nil {
		return nil, err
	}
	return c.FetchPendingOrders(ctx)
}

func (r *Registry) CancelOrder(ctx context.Context, accountID, instID, ordID string) error {
	c, err := r.Client(accountID)
	if err != nil {
		return err
	}
	return c.CancelOrder(ctx, instID, ordID)
}
