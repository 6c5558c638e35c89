package service

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"portfolio_monitor/internal/modules/config"
	"portfolio_monitor/pkg/tracing"

	"github.com/bytedance/sonic"
)

const okxTimeLayout = "2006-01-02T15:04:05.000Z"

// Client: подписанный REST-клиент OKX v5 для одного аккаунта.
type Client struct {
	http    *http.Client
	baseURL string

	accountID string
	apiKey    string
	apiSecret string
	passph    string
	simulated bool
	instType  string

	now func() time.Time
}

func NewClient(acc config.Account, okx config.OKX, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: okx.RequestTimeout}
	}
	instType := okx.InstType
	if instType == "" {
		instType = "SWAP"
	}
	return &Client{
		http:      httpClient,
		baseURL:   strings.TrimRight(okx.RESTURL, "/"),
		accountID: acc.ID,
		apiKey:    acc.APIKey,
		apiSecret: acc.SecretKey,
		passph:    acc.Passphrase,
		simulated: acc.Simulated,
		instType:  instType,
		now:       time.Now,
	}
}

func (c *Client) AccountID() string { return c.accountID }

// sign: base64(HMAC-SHA256(secret, ts + METHOD + requestPath + body)).
func (c *Client) sign(ts, method, requestPath, body string) string {
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(ts + method + requestPath + body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// do выполняет подписанный запрос и возвращает сырой data из обёртки.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (_ []byte, err error) {
	span, ctx := tracing.StartSpan(ctx, "okx.rest "+method+" "+path)
	span.SetTag("account_id", c.accountID)
	defer func() { tracing.FinishSpan(span, err) }()

	requestPath := path
	if len(query) > 0 {
		requestPath += "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		payload, err = sonic.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s marshal body: %w", path, err)
		}
	}

	ts := c.now().UTC().Format(okxTimeLayout)
	sign := c.sign(ts, method, requestPath, string(payload))

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+requestPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%s new request: %w", path, err)
	}

	req.Header.Set("OK-ACCESS-KEY", c.apiKey)
	req.Header.Set("OK-ACCESS-SIGN", sign)
	req.Header.Set("OK-ACCESS-TIMESTAMP", ts)
	req.Header.Set("OK-ACCESS-PASSPHRASE", c.passph)
	req.Header.Set("Content-Type", "application/json")
	if c.simulated {
		req.Header.Set("x-simulated-trading", "1")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s do: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s read body: %w", path, err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("%s http %d: %s", path, resp.StatusCode, string(data))
	}

	var env envelope
	if err := sonic.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%s decode: %w", path, err)
	}
	if env.Code != "0" {
		return nil, fmt.Errorf("%s okx error: code=%s msg=%s", path, env.Code, env.Msg)
	}
	return env.Data, nil
}
