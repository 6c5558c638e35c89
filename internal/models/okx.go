package models

import (
	"portfolio_monitor/internal/helper"
	"sort"
)

// Сырые payload'ы OKX (REST и WS отдают одинаковую форму, все числа - строки).

type OkxBalanceDetail struct {
	Ccy       string `json:"ccy"`
	CashBal   string `json:"cashBal"`
	AvailBal  string `json:"availBal"`
	FrozenBal string `json:"frozenBal"`
	Eq        string `json:"eq"`
	EqUsd     string `json:"eqUsd"`
}

type OkxBalance struct {
	TotalEq string             `json:"totalEq"`
	Imr     string             `json:"imr"`
	Upl     string             `json:"upl"`
	UTime   string             `json:"uTime"`
	Details []OkxBalanceDetail `json:"details"`
}

type OkxPosition struct {
	InstID   string `json:"instId"`
	InstType string `json:"instType"`
	PosSide  string `json:"posSide"`
	Pos      string `json:"pos"`
	AvgPx    string `json:"avgPx"`
	MarkPx   string `json:"markPx"`
	Upl      string `json:"upl"`
	UplRatio string `json:"uplRatio"`
	Margin   string `json:"margin"`
	Lever    string `json:"lever"`
	LiqPx    string `json:"liqPx"`
	CTime    string `json:"cTime"`
	UTime    string `json:"uTime"`
}

type OkxOrder struct {
	OrdID   string `json:"ordId"`
	InstID  string `json:"instId"`
	Side    string `json:"side"`
	PosSide string `json:"posSide"`
	OrdType string `json:"ordType"`
	Sz      string `json:"sz"`
	Px      string `json:"px"`
	FillSz  string `json:"fillSz"`
	AvgPx   string `json:"avgPx"`
	State   string `json:"state"`
	Lever   string `json:"lever"`
	CTime   string `json:"cTime"`
	UTime   string `json:"uTime"`
}

const quoteCcy = "USDT"

// ToBalance: available/frozen берём из строки USDT, total_equity - только из totalEq верхнего уровня.
// Валюты без баланса и без оценки выкидываем, остальные сортируем по оценке в USD по убыванию.
func (r OkxBalance) ToBalance() Balance {
	b := Balance{
		TotalEquity:   helper.SafeFloat(r.TotalEq, 0),
		MarginUsed:    helper.SafeFloat(r.Imr, 0),
		UnrealizedPnl: helper.SafeFloat(r.Upl, 0),
		Assets:        make([]CurrencyAsset, 0, len(r.Details)),
	}

	for _, d := range r.Details {
		if d.Ccy == quoteCcy {
			b.Available = helper.SafeFloat(d.AvailBal, 0)
			b.Frozen = helper.SafeFloat(d.FrozenBal, 0)
		}

		a := CurrencyAsset{
			Ccy:       d.Ccy,
			Bal:       helper.SafeFloat(d.CashBal, 0),
			AvailBal:  helper.SafeFloat(d.AvailBal, 0),
			FrozenBal: helper.SafeFloat(d.FrozenBal, 0),
			Eq:        helper.SafeFloat(d.Eq, 0),
			EqUsd:     helper.SafeFloat(d.EqUsd, 0),
		}
		if a.Bal == 0 && a.Eq == 0 && a.EqUsd == 0 {
			continue
		}
		b.Assets = append(b.Assets, a)
	}

	sort.SliceStable(b.Assets, func(i, j int) bool {
		if b.Assets[i].EqUsd != b.Assets[j].EqUsd {
			return b.Assets[i].EqUsd > b.Assets[j].EqUsd
		}
		return b.Assets[i].Eq > b.Assets[j].Eq
	})
	return b
}

// ToEntry: ok=false для закрытой позиции (pos == 0).
func (r OkxPosition) ToEntry() (PositionEntry, bool) {
	pos := helper.SafeFloat(r.Pos, 0)
	if pos == 0 {
		return PositionEntry{}, false
	}

	side := r.PosSide
	if side == "" {
		side = "net"
	}

	return PositionEntry{
		InstID:    r.InstID,
		PosSide:   side,
		Pos:       pos,
		AvgPx:     helper.SafeFloat(r.AvgPx, 0),
		MarkPx:    helper.SafeFloat(r.MarkPx, 0),
		Upl:       helper.SafeFloat(r.Upl, 0),
		UplRatio:  helper.SafeFloat(r.UplRatio, 0),
		Margin:    helper.SafeFloat(r.Margin, 0),
		Lever:     helper.SafeInt(r.Lever, 1),
		LiqPx:     helper.OptFloat(r.LiqPx),
		CreatedAt: helper.MillisToTime(r.CTime),
	}, true
}

func (r OkxOrder) IsPending() bool {
	return IsPendingState(r.State)
}

func (r OkxOrder) ToPendingOrder() PendingOrder {
	side := r.PosSide
	if side == "" {
		side = "net"
	}

	return PendingOrder{
		OrderID:   r.OrdID,
		InstID:    r.InstID,
		Side:      r.Side,
		PosSide:   side,
		OrderType: r.OrdType,
		Sz:        helper.SafeFloat(r.Sz, 0),
		Px:        helper.OptFloat(r.Px),
		FillSz:    helper.SafeFloat(r.FillSz, 0),
		AvgPx:     helper.OptFloat(r.AvgPx),
		State:     r.State,
		Lever:     helper.SafeInt(r.Lever, 1),
		CreatedAt: helper.MillisToTime(r.CTime),
		UpdatedAt: helper.MillisToTime(r.UTime),
	}
}

// SortPositions: порядок только для отображения.
func SortPositions(list []PositionEntry) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].InstID != list[j].InstID {
			return list[i].InstID < list[j].InstID
		}
		return list[i].PosSide < list[j].PosSide
	})
}

// SortPendingOrders: сначала свежие, при равенстве - по id.
func SortPendingOrders(list []PendingOrder) {
	sort.Slice(list, func(i, j int) bool {
		ci, cj := list[i].CreatedAt, list[j].CreatedAt
		switch {
		case ci != nil && cj != nil && !ci.Equal(*cj):
			return ci.After(*cj)
		case ci != nil && cj == nil:
			return true
		case ci == nil && cj != nil:
			return false
		}
		return list[i].OrderID < list[j].OrderID
	})
}
