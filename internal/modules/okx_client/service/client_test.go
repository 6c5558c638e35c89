package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"portfolio_monitor/internal/modules/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc, simulated bool) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	acc := config.Account{ID: "1", APIKey: "key", SecretKey: "secret", Passphrase: "pass", Simulated: simulated}
	c := NewClient(acc, config.OKX{RESTURL: srv.URL, InstType: "SWAP", RequestTimeout: time.Second}, nil)
	c.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 6_000_000, time.UTC) }
	return c
}

func expectedSign(ts, method, path, body string) string {
	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write([]byte(ts + method + path + body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestFetchBalanceSignsRequest(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v5/account/balance", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("OK-ACCESS-KEY"))
		assert.Equal(t, "pass", r.Header.Get("OK-ACCESS-PASSPHRASE"))
		assert.Equal(t, "2026-01-02T03:04:05.006Z", r.Header.Get("OK-ACCESS-TIMESTAMP"))
		assert.Equal(t,
			expectedSign("2026-01-02T03:04:05.006Z", http.MethodGet, "/api/v5/account/balance", ""),
			r.Header.Get("OK-ACCESS-SIGN"))
		assert.Equal(t, "1", r.Header.Get("x-simulated-trading"))

		_, _ = io.WriteString(w, `{"code":"0","msg":"","data":[{"totalEq":"10000.5","imr":"1","upl":"2",
			"details":[{"ccy":"USDT","cashBal":"9000","availBal":"8000","frozenBal":"500","eq":"10000.5","eqUsd":"10000.5"},
			{"ccy":"BTC","cashBal":"0.4","eq":"0.4","eqUsd":"25000"}]}]}`)
	}, true)

	b, err := c.FetchBalance(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 10000.5, b.TotalEquity)
	assert.Equal(t, 8000.0, b.Available)
	require.Len(t, b.Assets, 2)
	assert.Equal(t, "BTC", b.Assets[0].Ccy)
}

func TestFetchBalanceEmptyData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"code":"0","data":[]}`)
	}, false)

	b, err := c.FetchBalance(context.Background())
	require.NoError(t, err)
	assert.Zero(t, b.TotalEquity)
	assert.Empty(t, b.Assets)
}

func TestFetchPositionsSkipsClosed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "SWAP", r.URL.Query().Get("instType"))
		assert.Empty(t, r.Header.Get("x-simulated-trading"))
		assert.Equal(t,
			expectedSign("2026-01-02T03:04:05.006Z", http.MethodGet, "/api/v5/account/positions?instType=SWAP", ""),
			r.Header.Get("OK-ACCESS-SIGN"))
		_, _ = io.WriteString(w, `{"code":"0","data":[
			{"instId":"BTC-USDT-SWAP","posSide":"long","pos":"1","lever":"5"},
			{"instId":"ETH-USDT-SWAP","posSide":"short","pos":"0"}]}`)
	}, false)

	list, err := c.FetchPositions(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "BTC-USDT-SWAP", list[0].InstID)
	assert.Equal(t, 5, list[0].Lever)
}

func TestFetchPendingOrders(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v5/trade/orders-pending", r.URL.Path)
		_, _ = io.WriteString(w, `{"code":"0","data":[
			{"ordId":"1","instId":"BTC-USDT-SWAP","state":"live","sz":"1","px":"60000"},
			{"ordId":"2","instId":"BTC-USDT-SWAP","state":"filled","sz":"1"}]}`)
	}, false)

	list, err := c.FetchPendingOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "1", list[0].OrderID)
}

func TestOkxErrorCode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"code":"50113","msg":"Invalid Sign","data":[]}`)
	}, false)

	_, err := c.FetchBalance(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "50113")
}

func TestHTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}, false)

	_, err := c.FetchPositions(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http 502")
}

func TestCancelOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"instId":"BTC-USDT-SWAP","ordId":"42"}`, string(body))
		assert.Equal(t,
			expectedSign("2026-01-02T03:04:05.006Z", http.MethodPost, "/api/v5/trade/cancel-order", string(body)),
			r.Header.Get("OK-ACCESS-SIGN"))
		_, _ = io.WriteString(w, `{"code":"0","data":[{"ordId":"42","sCode":"0","sMsg":""}]}`)
	}, false)

	require.NoError(t, c.CancelOrder(context.Background(), "BTC-USDT-SWAP", "42"))
}

func TestCancelOrderRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"code":"0","data":[{"ordId":"42","sCode":"51400","sMsg":"already filled"}]}`)
	}, false)

	err := c.CancelOrder(context.Background(), "BTC-USDT-SWAP", "42")
	require.Error(t, err)
}

func TestRegistryUnknownAccount(t *testing.T) {
	r := NewRegistry(&config.Config{Accounts: []config.Account{{ID: "1"}, {ID: "2"}}})

	assert.Equal(t, []string{"1", "2"}, r.AccountIDs())
	_, err := r.FetchBalance(context.Background(), "9")
	require.Error(t, err)
}
