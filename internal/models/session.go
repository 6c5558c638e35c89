package models

import "time"

// ConnState: состояние стримингового коннектора аккаунта.
type ConnState string

const (
	ConnDisconnected   ConnState = "DISCONNECTED"
	ConnConnecting     ConnState = "CONNECTING"
	ConnAuthenticating ConnState = "AUTHENTICATING"
	ConnSubscribing    ConnState = "SUBSCRIBING"
	ConnLive           ConnState = "LIVE"
	ConnReconnectWait  ConnState = "RECONNECT_WAIT"
	ConnStopped        ConnState = "STOPPED"
)

// ConnectionSession принадлежит только своему коннектору, наружу отдаётся копией.
type ConnectionSession struct {
	State             ConnState `json:"state"`
	LastConnectedAt   time.Time `json:"last_connected_at"`
	ReconnectAttempts int       `json:"reconnect_attempts"`
}
