package models

import "time"

// AccountSnapshot: копия состояния аккаунта из кеша, безопасна для чтения без блокировок.
// Seq растёт на каждую мутацию аккаунта.
type AccountSnapshot struct {
	AccountID     string          `json:"account_id"`
	Seq           uint64          `json:"seq"`
	Balance       *Balance        `json:"balance"`
	Positions     []PositionEntry `json:"positions"`
	PendingOrders []PendingOrder  `json:"pending_orders"`

	HasPositions     bool `json:"-"`
	HasPendingOrders bool `json:"-"`
}

type CurrencySnapshot struct {
	Ccy       string  `json:"ccy"`
	Bal       float64 `json:"bal"`
	AvailBal  float64 `json:"avail_bal"`
	FrozenBal float64 `json:"frozen_bal"`
	Eq        float64 `json:"eq"`
	EqUsd     float64 `json:"eq_usd"`
}

// SnapshotRecord идентифицируется парой (AccountID, BucketTS).
type SnapshotRecord struct {
	ID            int64              `json:"id"`
	AccountID     string             `json:"account_id"`
	BucketTS      time.Time          `json:"timestamp"`
	TotalEquity   float64            `json:"total_equity"`
	Available     float64            `json:"available"`
	Frozen        float64            `json:"frozen"`
	MarginUsed    float64            `json:"margin_used"`
	UnrealizedPnl float64            `json:"unrealized_pnl"`
	Currencies    []CurrencySnapshot `json:"currencies,omitempty"`
}

// NewSnapshotRecord собирает запись из баланса; bucket выравнивается вниз до минуты.
func NewSnapshotRecord(accountID string, at time.Time, b Balance) SnapshotRecord {
	rec := SnapshotRecord{
		AccountID:     accountID,
		BucketTS:      BucketMinute(at),
		TotalEquity:   b.TotalEquity,
		Available:     b.Available,
		Frozen:        b.Frozen,
		MarginUsed:    b.MarginUsed,
		UnrealizedPnl: b.UnrealizedPnl,
		Currencies:    make([]CurrencySnapshot, 0, len(b.Assets)),
	}
	for _, a := range b.Assets {
		rec.Currencies = append(rec.Currencies, CurrencySnapshot(a))
	}
	return rec
}

func BucketMinute(t time.Time) time.Time {
	return t.UTC().Truncate(time.Minute)
}
