package service

import (
	"bytes"
	"fmt"

	"portfolio_monitor/internal/models"
	"portfolio_monitor/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/tidwall/gjson"
)

var marshal = sonic.Marshal

// dispatch разбирает кадр LIVE-сессии. Ошибка = битый payload, сессия при этом живёт дальше.
func (c *Connector) dispatch(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "pong" {
		return nil
	}
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("%w: invalid json: %.100s", models.ErrProtocol, string(data))
	}

	frame := gjson.ParseBytes(data)

	// служебные конверты (subscribe ack, error) - не данные
	if ev := frame.Get("event"); ev.Exists() {
		if ev.String() == "error" {
			logger.Warn("[WS] account=%s event error: code=%s msg=%s",
				c.account.ID, frame.Get("code").String(), frame.Get("msg").String())
		}
		return nil
	}

	channel := frame.Get("arg.channel").String()
	payload := frame.Get("data")

	switch channel {
	case "account":
		var raw []models.OkxBalance
		if err := decodeData(payload, &raw); err != nil {
			return fmt.Errorf("account: %w", err)
		}
		c.sink.ApplyBalance(c.account.ID, raw)
	case "positions":
		var raw []models.OkxPosition
		if err := decodeData(payload, &raw); err != nil {
			return fmt.Errorf("positions: %w", err)
		}
		c.sink.ApplyPositions(c.account.ID, raw)
	case "orders":
		var raw []models.OkxOrder
		if err := decodeData(payload, &raw); err != nil {
			return fmt.Errorf("orders: %w", err)
		}
		c.sink.ApplyOrderUpdate(c.account.ID, raw)
	default:
		// чужие каналы нам не интересны
	}
	return nil
}

func decodeData(payload gjson.Result, out any) error {
	if !payload.Exists() || !payload.IsArray() {
		return fmt.Errorf("%w: data is not an array", models.ErrProtocol)
	}
	if err := sonic.UnmarshalString(payload.Raw, out); err != nil {
		return fmt.Errorf("%w: %v", models.ErrProtocol, err)
	}
	return nil
}
