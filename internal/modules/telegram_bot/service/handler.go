package service

import (
	"context"

	"portfolio_monitor/pkg/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (t *Telegram) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || !msg.IsCommand() {
		return
	}
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start":
		if _, err := t.SendText(ctx, chatID, startText(chatID)); err != nil {
			logger.Error("[TG] handleStart error: %v", err)
		}
	case "status":
		t.handleStatus(ctx, chatID)
	default:
		// остальные команды не поддерживаем
	}
}

func (t *Telegram) handleStatus(ctx context.Context, chatID int64) {
	var text string
	if t.state == nil {
		text = "⚠️ Состояние аккаунтов недоступно"
	} else {
		text = formatStatus(t.state.SnapshotAll(), t.accountName)
	}

	m := tgbotapi.NewMessage(chatID, text)
	m.ParseMode = "Markdown"
	if _, err := t.SendMessage(ctx, m); err != nil {
		logger.Error("[TG] handleStatus error: %v", err)
	}
}
