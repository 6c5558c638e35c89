package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"portfolio_monitor/internal/models"
	"portfolio_monitor/pkg/logger"
	"portfolio_monitor/pkg/metrics"

	"github.com/gorilla/websocket"
)

// StateSink: всё, что коннектор умеет делать с состоянием. Реализует кеш, в тестах - фейк.
type StateSink interface {
	ApplyBalance(accountID string, raw []models.OkxBalance)
	ApplyPositions(accountID string, raw []models.OkxPosition)
	ApplyOrderUpdate(accountID string, raw []models.OkxOrder)
	OnError(accountID, msg string)
}

type Credentials struct {
	APIKey     string
	SecretKey  string
	Passphrase string
}

type Config struct {
	URL              string
	InstType         string
	PingInterval     time.Duration
	ReconnectDelay   time.Duration
	LoginTimeout     time.Duration
	HandshakeTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.InstType == "" {
		c.InstType = "SWAP"
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 25 * time.Second
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = 5 * time.Second
	}
	if c.LoginTimeout <= 0 {
		c.LoginTimeout = 10 * time.Second
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
	return c
}

// StateListener получает каждый переход состояния коннектора.
type StateListener func(accountID string, state models.ConnState)

// Connector: одно приватное WS-соединение OKX на аккаунт. Сам не сдаётся никогда:
// любая ошибка -> RECONNECT_WAIT -> новая попытка, STOPPED только по отмене ctx.
type Connector struct {
	account models.AccountIdentity
	creds   Credentials
	cfg     Config
	sink    StateSink

	wsDialer *websocket.Dialer
	now      func() time.Time

	mu       sync.Mutex
	session  models.ConnectionSession
	listener StateListener
}

func NewConnector(account models.AccountIdentity, creds Credentials, cfg Config, sink StateSink) *Connector {
	cfg = cfg.withDefaults()
	return &Connector{
		account: account,
		creds:   creds,
		cfg:     cfg,
		sink:    sink,
		wsDialer: &websocket.Dialer{
			Proxy:            proxyFromEnv(),
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		now:     time.Now,
		session: models.ConnectionSession{State: models.ConnDisconnected},
	}
}

func (c *Connector) AccountID() string { return c.account.ID }

// SetListener: до Run.
func (c *Connector) SetListener(l StateListener) {
	c.mu.Lock()
	c.listener = l
	c.mu.Unlock()
}

// Session: копия, наружу живая структура не отдаётся.
func (c *Connector) Session() models.ConnectionSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *Connector) setState(s models.ConnState) {
	c.mu.Lock()
	c.session.State = s
	switch s {
	case models.ConnLive:
		c.session.LastConnectedAt = c.now()
		c.session.ReconnectAttempts = 0
	case models.ConnReconnectWait:
		c.session.ReconnectAttempts++
	}
	l := c.listener
	c.mu.Unlock()

	live := 0.0
	if s == models.ConnLive {
		live = 1
	}
	metrics.ConnectorState.WithLabelValues(c.account.ID).Set(live)

	if l != nil {
		l(c.account.ID, s)
	}
}

// Run крутит цикл сессий до отмены ctx.
func (c *Connector) Run(ctx context.Context) {
	defer c.setState(models.ConnStopped)

	for {
		if ctx.Err() != nil {
			return
		}

		err := c.runSession(ctx)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			err = fmt.Errorf("%w: session ended", models.ErrTransport)
		}
		logger.Warn("[WS] account=%s session error: %v", c.account.ID, err)
		c.sink.OnError(c.account.ID, err.Error())

		c.setState(models.ConnReconnectWait)
		metrics.ConnectorReconnects.WithLabelValues(c.account.ID).Inc()

		t := time.NewTimer(c.cfg.ReconnectDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

func (c *Connector) runSession(ctx context.Context) error {
	c.setState(models.ConnConnecting)

	conn, resp, err := c.wsDialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("%w: dial %s: %v (http %d)", models.ErrTransport, c.cfg.URL, err, resp.StatusCode)
		}
		return fmt.Errorf("%w: dial %s: %v", models.ErrTransport, c.cfg.URL, err)
	}
	logger.Info("[WS] account=%s connected", c.account.ID)

	sessCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ws := &wsConn{conn: conn}
	defer ws.close()

	// отмена ctx должна разблокировать ReadMessage
	go func() {
		<-sessCtx.Done()
		ws.close()
	}()

	c.setState(models.ConnAuthenticating)
	if err := c.login(ws); err != nil {
		return err
	}

	c.setState(models.ConnSubscribing)
	if err := c.subscribe(ws); err != nil {
		return err
	}

	c.setState(models.ConnLive)
	logger.Info("[WS] account=%s live", c.account.ID)

	go c.heartbeat(sessCtx, ws)

	return c.readLoop(ws)
}

func (c *Connector) readLoop(ws *wsConn) error {
	idle := 2*c.cfg.PingInterval + 5*time.Second
	for {
		_ = ws.conn.SetReadDeadline(time.Now().Add(idle))
		_, data, err := ws.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("%w: read: %v", models.ErrTransport, err)
		}
		if err := c.dispatch(data); err != nil {
			metrics.ConnectorDropped.WithLabelValues(c.account.ID).Inc()
			logger.Warn("[WS] account=%s drop message: %v", c.account.ID, err)
		}
	}
}

// heartbeat: OKX рвёт соединение без трафика 30s, шлём "ping" чаще.
func (c *Connector) heartbeat(ctx context.Context, ws *wsConn) {
	t := time.NewTicker(c.cfg.PingInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := ws.writeText("ping"); err != nil {
				logger.Warn("[WS] account=%s ping: %v", c.account.ID, err)
				ws.close()
				return
			}
		}
	}
}

func (c *Connector) subscribe(ws *wsConn) error {
	sub := map[string]any{
		"op": "subscribe",
		"args": []map[string]string{
			{"channel": "account"},
			{"channel": "positions", "instType": c.cfg.InstType},
			{"channel": "orders", "instType": c.cfg.InstType},
		},
	}
	if err := ws.writeJSON(sub); err != nil {
		return fmt.Errorf("%w: subscribe: %v", models.ErrTransport, err)
	}
	return nil
}

// wsConn: gorilla допускает одного писателя, пишем под мьютексом.
type wsConn struct {
	conn *websocket.Conn

	wmu       sync.Mutex
	closeOnce sync.Once
}

func (w *wsConn) writeText(s string) error {
	w.wmu.Lock()
	defer w.wmu.Unlock()
	return w.conn.WriteMessage(websocket.TextMessage, []byte(s))
}

func (w *wsConn) writeJSON(v any) error {
	data, err := marshal(v)
	if err != nil {
		return err
	}
	w.wmu.Lock()
	defer w.wmu.Unlock()
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

func (w *wsConn) close() {
	w.closeOnce.Do(func() {
		_ = w.conn.Close()
	})
}
