package models

import "time"

type PositionKey struct {
	InstID  string
	PosSide string // long/short/net
}

type PositionEntry struct {
	InstID    string     `json:"inst_id"`
	PosSide   string     `json:"pos_side"`
	Pos       float64    `json:"pos"`
	AvgPx     float64    `json:"avg_px"`
	MarkPx    float64    `json:"mark_px"`
	Upl       float64    `json:"upl"`
	UplRatio  float64    `json:"upl_ratio"`
	Margin    float64    `json:"margin"`
	Lever     int        `json:"lever"`
	LiqPx     *float64   `json:"liq_px"`
	CreatedAt *time.Time `json:"created_at"`
}

func (p PositionEntry) Key() PositionKey {
	return PositionKey{InstID: p.InstID, PosSide: p.PosSide}
}
