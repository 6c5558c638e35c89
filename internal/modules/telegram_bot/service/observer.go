package service

import (
	"portfolio_monitor/internal/models"
	"portfolio_monitor/pkg/logger"
)

func (t *Telegram) ID() string { return "telegram" }

// Send: наблюдатель хаба: интересны только ошибки. Повтор той же ошибки по аккаунту
// раньше cooldown глушится (битый ключ ретраится бесконечно).
// Переполненная очередь алертов - не повод выкидывать наблюдателя из хаба.
func (t *Telegram) Send(msg models.Message) error {
	if msg.Type != models.KindError {
		return nil
	}

	key := msg.AccountID + "|" + msg.Message
	now := t.now()

	t.mu.Lock()
	if last, ok := t.lastSent[key]; ok && now.Sub(last) < t.cooldown {
		t.mu.Unlock()
		return nil
	}
	// тексты ошибок с адресами и таймаутами почти не повторяются, старые ключи выкидываем
	for k, last := range t.lastSent {
		if now.Sub(last) >= t.cooldown {
			delete(t.lastSent, k)
		}
	}
	t.lastSent[key] = now
	t.mu.Unlock()

	select {
	case t.queue <- formatAlert(t.accountName(msg.AccountID), msg):
	default:
		logger.Warn("[TG] alert queue full, dropped alert for account %s", msg.AccountID)
	}
	return nil
}

func (t *Telegram) accountName(id string) string {
	if n := t.names[id]; n != "" {
		return n
	}
	return id
}
