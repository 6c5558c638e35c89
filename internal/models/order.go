package models

import "time"

const (
	OrderStateLive            = "live"
	OrderStatePartiallyFilled = "partially_filled"
)

// PendingOrder: только «живые» ордера (live / partially_filled), истории здесь нет.
type PendingOrder struct {
	OrderID   string     `json:"order_id"`
	InstID    string     `json:"inst_id"`
	Side      string     `json:"side"`
	PosSide   string     `json:"pos_side"`
	OrderType string     `json:"order_type"`
	Sz        float64    `json:"sz"`
	Px        *float64   `json:"px"`
	FillSz    float64    `json:"fill_sz"`
	AvgPx     *float64   `json:"avg_px"`
	State     string     `json:"state"`
	Lever     int        `json:"lever"`
	CreatedAt *time.Time `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

func IsPendingState(state string) bool {
	return state == OrderStateLive || state == OrderStatePartiallyFilled
}
