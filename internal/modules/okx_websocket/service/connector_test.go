package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"portfolio_monitor/internal/models"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	mu        sync.Mutex
	balances  [][]models.OkxBalance
	positions [][]models.OkxPosition
	orders    [][]models.OkxOrder
	errs      []string
}

func (f *fakeSink) ApplyBalance(_ string, raw []models.OkxBalance) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances = append(f.balances, raw)
}

func (f *fakeSink) ApplyPositions(_ string, raw []models.OkxPosition) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.positions = append(f.positions, raw)
}

func (f *fakeSink) ApplyOrderUpdate(_ string, raw []models.OkxOrder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, raw)
}

func (f *fakeSink) OnError(_ string, msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs = append(f.errs, msg)
}

func (f *fakeSink) counts() (int, int, int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.balances), len(f.positions), len(f.orders), len(f.errs)
}

type stateLog struct {
	mu     sync.Mutex
	states []models.ConnState
}

func (s *stateLog) record(_ string, st models.ConnState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, st)
}

func (s *stateLog) snapshot() []models.ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ConnState(nil), s.states...)
}

func (s *stateLog) has(st models.ConnState) bool {
	for _, x := range s.snapshot() {
		if x == st {
			return true
		}
	}
	return false
}

// fakeOKX: приватный WS OKX: логин, подписка, дальше кадры из push.
type fakeOKX struct {
	t *testing.T

	rejectLogin bool
	push        chan string
	kick        chan struct{}

	mu     sync.Mutex
	logins []loginRequest
	subs   []string
	pings  int
}

func newFakeOKX(t *testing.T, rejectLogin bool) (*fakeOKX, string) {
	f := &fakeOKX{t: t, rejectLogin: rejectLogin, push: make(chan string, 16), kick: make(chan struct{}, 1)}
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		f.serve(conn)
	}))
	t.Cleanup(srv.Close)
	return f, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func (f *fakeOKX) serve(conn *websocket.Conn) {
	defer conn.Close()

	_, data, err := conn.ReadMessage()
	if err != nil {
		return
	}
	var login loginRequest
	_ = sonic.Unmarshal(data, &login)
	f.mu.Lock()
	f.logins = append(f.logins, login)
	f.mu.Unlock()

	if f.rejectLogin {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"error","code":"60009","msg":"Login failed."}`))
		return
	}
	_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"login","code":"0","msg":""}`))

	_, data, err = conn.ReadMessage()
	if err != nil {
		return
	}
	f.mu.Lock()
	f.subs = append(f.subs, string(data))
	f.mu.Unlock()

	var wmu sync.Mutex
	write := func(s string) error {
		wmu.Lock()
		defer wmu.Unlock()
		return conn.WriteMessage(websocket.TextMessage, []byte(s))
	}

	go func() {
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if string(msg) == "ping" {
				f.mu.Lock()
				f.pings++
				f.mu.Unlock()
				_ = write("pong")
			}
		}
	}()

	for {
		select {
		case s := <-f.push:
			if err := write(s); err != nil {
				return
			}
		case <-f.kick:
			return
		}
	}
}

func (f *fakeOKX) loginCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.logins)
}

func newTestConnector(url string, sink StateSink, log *stateLog) *Connector {
	c := NewConnector(
		models.AccountIdentity{ID: "1", Name: "main"},
		Credentials{APIKey: "key", SecretKey: "secret", Passphrase: "pass"},
		Config{URL: url, PingInterval: 50 * time.Millisecond, ReconnectDelay: 50 * time.Millisecond, LoginTimeout: time.Second},
		sink,
	)
	c.wsDialer.Proxy = nil
	c.SetListener(log.record)
	return c
}

func TestConnectorLoginSubscribeAndDispatch(t *testing.T) {
	okx, url := newFakeOKX(t, false)
	sink := &fakeSink{}
	log := &stateLog{}
	c := newTestConnector(url, sink, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	require.Eventually(t, func() bool { return c.Session().State == models.ConnLive }, 2*time.Second, 5*time.Millisecond)

	okx.push <- `{"event":"subscribe","arg":{"channel":"account"},"connId":"x"}`
	okx.push <- `{"arg":{"channel":"account","uid":"1"},"data":[{"totalEq":"10000.5","details":[]}]}`
	okx.push <- `{"arg":{"channel":"positions","instType":"SWAP"},"data":[{"instId":"BTC-USDT-SWAP","pos":"1"}]}`
	okx.push <- `{"arg":{"channel":"orders","instType":"SWAP"},"data":[{"ordId":"1","state":"live"}]}`
	okx.push <- `not json at all`
	okx.push <- `{"arg":{"channel":"account"},"data":{"oops":1}}`
	okx.push <- `{"arg":{"channel":"tickers"},"data":[]}`
	okx.push <- `{"arg":{"channel":"account"},"data":[]}`

	require.Eventually(t, func() bool {
		b, p, o, _ := sink.counts()
		return b == 2 && p == 1 && o == 1
	}, 2*time.Second, 5*time.Millisecond)

	_, _, _, errs := sink.counts()
	assert.Zero(t, errs)
	assert.Equal(t, models.ConnLive, c.Session().State)

	okx.mu.Lock()
	require.Len(t, okx.logins, 1)
	login := okx.logins[0]
	require.Len(t, okx.subs, 1)
	sub := okx.subs[0]
	okx.mu.Unlock()

	assert.Equal(t, "login", login.Op)
	require.Len(t, login.Args, 1)
	assert.Equal(t, "key", login.Args[0].APIKey)
	assert.Equal(t, "pass", login.Args[0].Passphrase)
	_, err := strconv.ParseInt(login.Args[0].Timestamp, 10, 64)
	require.NoError(t, err)
	assert.Equal(t, loginSign("secret", login.Args[0].Timestamp), login.Args[0].Sign)

	assert.JSONEq(t, `{"op":"subscribe","args":[{"channel":"account"},
		{"channel":"positions","instType":"SWAP"},{"channel":"orders","instType":"SWAP"}]}`, sub)

	assert.Equal(t, []models.ConnState{
		models.ConnConnecting, models.ConnAuthenticating, models.ConnSubscribing, models.ConnLive,
	}, log.snapshot()[:4])
}

func TestConnectorHeartbeat(t *testing.T) {
	okx, url := newFakeOKX(t, false)
	c := newTestConnector(url, &fakeSink{}, &stateLog{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	require.Eventually(t, func() bool {
		okx.mu.Lock()
		defer okx.mu.Unlock()
		return okx.pings >= 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, models.ConnLive, c.Session().State)
}

func TestConnectorLoginRejectedRetries(t *testing.T) {
	okx, url := newFakeOKX(t, true)
	sink := &fakeSink{}
	log := &stateLog{}
	c := newTestConnector(url, sink, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	require.Eventually(t, func() bool { return okx.loginCount() >= 2 }, 2*time.Second, 5*time.Millisecond)

	assert.False(t, log.has(models.ConnLive))
	assert.True(t, log.has(models.ConnReconnectWait))

	sink.mu.Lock()
	require.NotEmpty(t, sink.errs)
	assert.Contains(t, sink.errs[0], models.ErrAuth.Error())
	assert.Contains(t, sink.errs[0], "60009")
	sink.mu.Unlock()
	assert.GreaterOrEqual(t, c.Session().ReconnectAttempts, 1)
}

func TestConnectorReconnectAfterTransportClose(t *testing.T) {
	okx, url := newFakeOKX(t, false)
	sink := &fakeSink{}
	log := &stateLog{}
	c := newTestConnector(url, sink, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	require.Eventually(t, func() bool { return c.Session().State == models.ConnLive }, 2*time.Second, 5*time.Millisecond)
	okx.kick <- struct{}{}

	require.Eventually(t, func() bool { return okx.loginCount() >= 2 }, 2*time.Second, 5*time.Millisecond)

	states := log.snapshot()
	i := indexOf(states, models.ConnLive)
	require.GreaterOrEqual(t, i, 0)
	require.Greater(t, len(states), i+2)
	assert.Equal(t, models.ConnReconnectWait, states[i+1])
	assert.Equal(t, models.ConnConnecting, states[i+2])

	b, _, _, errs := sink.counts()
	assert.Zero(t, b)
	assert.GreaterOrEqual(t, errs, 1)
}

func TestConnectorStopsOnCancel(t *testing.T) {
	_, url := newFakeOKX(t, false)
	log := &stateLog{}
	c := newTestConnector(url, &fakeSink{}, log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return c.Session().State == models.ConnLive }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("connector did not stop")
	}
	assert.Equal(t, models.ConnStopped, c.Session().State)
	assert.False(t, log.has(models.ConnReconnectWait))
}

func TestConnectorDialFailureKeepsRetrying(t *testing.T) {
	sink := &fakeSink{}
	log := &stateLog{}
	c := newTestConnector("ws://127.0.0.1:1/ws", sink, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	require.Eventually(t, func() bool {
		_, _, _, errs := sink.counts()
		return errs >= 2
	}, 2*time.Second, 5*time.Millisecond)

	sink.mu.Lock()
	assert.Contains(t, sink.errs[0], models.ErrTransport.Error())
	sink.mu.Unlock()
}

func indexOf(states []models.ConnState, s models.ConnState) int {
	for i, x := range states {
		if x == s {
			return i
		}
	}
	return -1
}

func TestCheckLoginReply(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		wantErr bool
	}{
		{"ok", `{"event":"login","code":"0","msg":""}`, false},
		{"error event", `{"event":"error","code":"60009","msg":"Login failed."}`, true},
		{"bad code", `{"event":"login","code":"60024","msg":"Wrong passphrase"}`, true},
		{"no code", `{"event":"login"}`, true},
		{"garbage", `pong`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkLoginReply([]byte(tt.reply))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, models.ErrAuth))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestDispatchProtocolErrors(t *testing.T) {
	c := &Connector{account: models.AccountIdentity{ID: "1"}, sink: &fakeSink{}}

	assert.NoError(t, c.dispatch([]byte("pong")))
	assert.NoError(t, c.dispatch([]byte(`{"event":"error","code":"60012","msg":"bad request"}`)))
	assert.ErrorIs(t, c.dispatch([]byte(`{"arg":`)), models.ErrProtocol)
	assert.ErrorIs(t, c.dispatch([]byte(`{"arg":{"channel":"positions"}}`)), models.ErrProtocol)
	assert.ErrorIs(t, c.dispatch([]byte(`{"arg":{"channel":"orders"},"data":[{"ordId":1}]}`)), models.ErrProtocol)
}

func TestLoginSign(t *testing.T) {
	a := loginSign("secret", "1700000000")
	assert.Equal(t, a, loginSign("secret", "1700000000"))
	assert.NotEqual(t, a, loginSign("secret", "1700000001"))
	assert.NotEqual(t, a, loginSign("other", "1700000000"))
}

func TestProxyFromEnv(t *testing.T) {
	for _, k := range []string{"all_proxy", "ALL_PROXY", "https_proxy", "HTTPS_PROXY"} {
		t.Setenv(k, "")
	}
	assert.Nil(t, proxyFromEnv())

	t.Setenv("HTTPS_PROXY", "http://proxy:3128")
	t.Setenv("all_proxy", "socks5://127.0.0.1:1080")
	p := proxyFromEnv()
	require.NotNil(t, p)

	u, err := p(&http.Request{})
	require.NoError(t, err)
	assert.Equal(t, "socks5", u.Scheme)
	assert.Equal(t, "127.0.0.1:1080", u.Host)
}
