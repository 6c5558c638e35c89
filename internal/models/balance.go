package models

// CurrencyAsset: строка по одной валюте внутри Balance.
type CurrencyAsset struct {
	Ccy       string  `json:"ccy"`
	Bal       float64 `json:"bal"`
	AvailBal  float64 `json:"avail_bal"`
	FrozenBal float64 `json:"frozen_bal"`
	Eq        float64 `json:"eq"`
	EqUsd     float64 `json:"eq_usd"`
}

// Balance заменяется целиком на каждое событие канала account.
type Balance struct {
	TotalEquity   float64         `json:"total_equity"`
	Available     float64         `json:"available"`
	Frozen        float64         `json:"frozen"`
	MarginUsed    float64         `json:"margin_used"`
	UnrealizedPnl float64         `json:"unrealized_pnl"`
	Assets        []CurrencyAsset `json:"assets"`
}

func (b Balance) Clone() Balance {
	out := b
	out.Assets = make([]CurrencyAsset, len(b.Assets))
	copy(out.Assets, b.Assets)
	return out
}
