package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"portfolio_monitor/internal/models"

	"github.com/bytedance/sonic"
)

// FetchBalanceRaw: /account/balance как есть (для кеша).
func (c *Client) FetchBalanceRaw(ctx context.Context) ([]models.OkxBalance, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/v5/account/balance", nil, nil)
	if err != nil {
		return nil, err
	}
	var out []models.OkxBalance
	if err := sonic.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("FetchBalance decode data: %w", err)
	}
	return out, nil
}

// FetchBalance: пустой ответ биржи -> нулевой баланс, не ошибка.
func (c *Client) FetchBalance(ctx context.Context) (models.Balance, error) {
	raw, err := c.FetchBalanceRaw(ctx)
	if err != nil {
		return models.Balance{}, err
	}
	if len(raw) == 0 {
		return models.Balance{Assets: []models.CurrencyAsset{}}, nil
	}
	return raw[0].ToBalance(), nil
}

func (c *Client) FetchPositionsRaw(ctx context.Context) ([]models.OkxPosition, error) {
	q := url.Values{}
	q.Set("instType", c.instType)

	data, err := c.do(ctx, http.MethodGet, "/api/v5/account/positions", q, nil)
	if err != nil {
		return nil, err
	}
	var out []models.OkxPosition
	if err := sonic.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("FetchPositions decode data: %w", err)
	}
	return out, nil
}

func (c *Client) FetchPositions(ctx context.Context) ([]models.PositionEntry, error) {
	raw, err := c.FetchPositionsRaw(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.PositionEntry, 0, len(raw))
	for _, r := range raw {
		if e, ok := r.ToEntry(); ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (c *Client) FetchPendingOrdersRaw(ctx context.Context) ([]models.OkxOrder, error) {
	q := url.Values{}
	q.Set("instType", c.instType)

	data, err := c.do(ctx, http.MethodGet, "/api/v5/trade/orders-pending", q, nil)
	if err != nil {
		return nil, err
	}
	var out []models.OkxOrder
	if err := sonic.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("FetchPendingOrders decode data: %w", err)
	}
	return out, nil
}

func (c *Client) FetchPendingOrders(ctx context.Context) ([]models.PendingOrder, error) {
	raw, err := c.FetchPendingOrdersRaw(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.PendingOrder, 0, len(raw))
	for _, r := range raw {
		if r.IsPending() {
			out = append(out, r.ToPendingOrder())
		}
	}
	return out, nil
}

// CancelOrder: отмена по запросу пользователя; сами мы ордера не трогаем.
func (c *Client) CancelOrder(ctx context.Context, instID, ordID string) error {
	body := map[string]string{"instId": instID, "ordId": ordID}

	data, err := c.do(ctx, http.MethodPost, "/api/v5/trade/cancel-order", nil, body)
	if err != nil {
		return err
	}

	var res []cancelOrderResult
	if err := sonic.Unmarshal(data, &res); err != nil {
		return fmt.Errorf("CancelOrder decode data: %w", err)
	}
	if len(res) == 0 || res[0].SCode != "0" {
		return fmt.Errorf("CancelOrder reject RAW=%s", string(data))
	}
	return nil
}
