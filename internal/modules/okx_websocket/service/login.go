package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"portfolio_monitor/internal/models"

	"github.com/tidwall/gjson"
)

const loginVerifyPath = "/users/self/verify"

type loginArgs struct {
	APIKey     string `json:"apiKey"`
	Passphrase string `json:"passphrase"`
	Timestamp  string `json:"timestamp"`
	Sign       string `json:"sign"`
}

type loginRequest struct {
	Op   string      `json:"op"`
	Args []loginArgs `json:"args"`
}

// loginSign: base64(HMAC-SHA256(secret, ts + "GET" + "/users/self/verify")), ts - unix-секунды.
func loginSign(secret, ts string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts + "GET" + loginVerifyPath))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (c *Connector) login(ws *wsConn) error {
	ts := strconv.FormatInt(c.now().Unix(), 10)
	req := loginRequest{
		Op: "login",
		Args: []loginArgs{{
			APIKey:     c.creds.APIKey,
			Passphrase: c.creds.Passphrase,
			Timestamp:  ts,
			Sign:       loginSign(c.creds.SecretKey, ts),
		}},
	}
	if err := ws.writeJSON(req); err != nil {
		return fmt.Errorf("%w: send login: %v", models.ErrTransport, err)
	}

	_ = ws.conn.SetReadDeadline(time.Now().Add(c.cfg.LoginTimeout))
	_, data, err := ws.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("%w: no login reply: %v", models.ErrAuth, err)
	}
	_ = ws.conn.SetReadDeadline(time.Time{})

	return checkLoginReply(data)
}

func checkLoginReply(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("%w: login reply is not json: %.100s", models.ErrAuth, string(data))
	}
	reply := gjson.ParseBytes(data)
	event := reply.Get("event").String()
	code := reply.Get("code").String()
	if event == "error" || code != "0" {
		return fmt.Errorf("%w: login failed: code=%s msg=%s", models.ErrAuth, code, reply.Get("msg").String())
	}
	return nil
}
