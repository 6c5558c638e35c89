package helper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeFloat(t *testing.T) {
	tests := []struct {
		name string
		in   string
		def  float64
		want float64
	}{
		{"plain", "10000.5", 0, 10000.5},
		{"padded", " 42 ", 0, 42},
		{"empty", "", 0, 0},
		{"empty custom default", "", 1, 1},
		{"garbage", "abc", 0, 0},
		{"negative", "-0.25", 0, -0.25},
		{"nan", "NaN", 0, 0},
		{"inf", "Inf", 7, 7},
		{"negative infinity", "-Infinity", 0, 0},
		{"overflow", "1e400", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeFloat(tt.in, tt.def))
		})
	}
}

func TestOptFloat(t *testing.T) {
	assert.Nil(t, OptFloat(""))
	assert.Nil(t, OptFloat("   "))

	v := OptFloat("61000.1")
	require.NotNil(t, v)
	assert.Equal(t, 61000.1, *v)

	bad := OptFloat("n/a")
	require.NotNil(t, bad)
	assert.Equal(t, 0.0, *bad)
}

func TestSafeInt(t *testing.T) {
	assert.Equal(t, 10, SafeInt("10", 1))
	assert.Equal(t, 3, SafeInt("3.0", 1))
	assert.Equal(t, 1, SafeInt("", 1))
	assert.Equal(t, 1, SafeInt("x", 1))
	assert.Equal(t, 1, SafeInt("NaN", 1))
	assert.Equal(t, 1, SafeInt("+Inf", 1))
	assert.Equal(t, 1, SafeInt("1e30", 1))
	assert.Equal(t, 1, SafeInt("-1e30", 1))
	assert.Equal(t, -2, SafeInt("-2.5", 1))
}

func TestMillisToTime(t *testing.T) {
	assert.Nil(t, MillisToTime(""))
	assert.Nil(t, MillisToTime("0"))
	assert.Nil(t, MillisToTime("oops"))

	got := MillisToTime("1700000000000")
	require.NotNil(t, got)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), *got)
}
