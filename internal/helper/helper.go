package helper

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// SafeFloat: пустая строка / мусор -> def. Биржа отдаёт числа строками и иногда "".
// NaN и ±Inf тоже мусор: JSON их не кодирует.
func SafeFloat(s string, def float64) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}

// OptFloat: nil если поля нет, иначе значение (битое -> 0).
func OptFloat(s string) *float64 {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	v := SafeFloat(s, 0)
	return &v
}

// SafeInt понимает и "10", и "10.0".
func SafeInt(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(s, 64)
	// за пределами int конверсия не определена
	if err != nil || math.IsNaN(f) || f >= math.MaxInt || f < math.MinInt {
		return def
	}
	return int(f)
}

// MillisToTime: OKX cTime/uTime (ms) -> UTC; пусто или битое -> nil.
func MillisToTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil || ms <= 0 {
		return nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t
}
