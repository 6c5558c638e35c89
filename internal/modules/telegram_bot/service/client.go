package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"portfolio_monitor/internal/models"
	"portfolio_monitor/internal/modules/config"
	"portfolio_monitor/pkg/logger"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	alertQueueSize = 64
	alertCooldown  = 5 * time.Minute
)

type sender interface {
	Send(c tgbot.Chattable) (tgbot.Message, error)
}

// StateReader: срез кеша для /status.
type StateReader interface {
	SnapshotAll() []models.AccountSnapshot
}

// Telegram: алерты об ошибках аккаунтов в чат + команда /status.
type Telegram struct {
	bot    *tgbot.BotAPI
	api    sender
	chatID int64

	names map[string]string
	state StateReader

	queue    chan string
	cooldown time.Duration

	mu       sync.Mutex
	lastSent map[string]time.Time

	now func() time.Time
}

// NewTelegram: без токена возвращает выключенный клиент (Enabled() == false).
func NewTelegram(cfg *config.Config, state StateReader) (*Telegram, error) {
	t := newTelegram(nil, cfg.Telegram.ChatID, cfg.Identities(), state)
	if cfg.Telegram.Token == "" {
		return t, nil
	}

	b, err := tgbot.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	t.bot = b
	t.api = b
	return t, nil
}

func newTelegram(api sender, chatID int64, ids []models.AccountIdentity, state StateReader) *Telegram {
	names := make(map[string]string, len(ids))
	for _, id := range ids {
		names[id.ID] = id.Name
	}
	return &Telegram{
		api:      api,
		chatID:   chatID,
		names:    names,
		state:    state,
		queue:    make(chan string, alertQueueSize),
		cooldown: alertCooldown,
		lastSent: make(map[string]time.Time),
		now:      time.Now,
	}
}

func (t *Telegram) Enabled() bool { return t.api != nil }

func (t *Telegram) SendText(ctx context.Context, chatID int64, msg string) (tgbot.Message, error) {
	return t.api.Send(tgbot.NewMessage(chatID, msg))
}

func (t *Telegram) SendMessage(_ context.Context, message tgbot.MessageConfig) (tgbot.Message, error) {
	return t.api.Send(message)
}

// Run разгребает очередь алертов до отмены ctx.
func (t *Telegram) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case text := <-t.queue:
			if t.chatID == 0 {
				continue
			}
			if _, err := t.SendText(ctx, t.chatID, text); err != nil {
				logger.Warn("[TG] send alert: %v", err)
			}
		}
	}
}

// Start: long polling апдейтов бота.
func (t *Telegram) Start(ctx context.Context) {
	if t.bot == nil {
		return
	}
	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	updates := t.bot.GetUpdatesChan(u)
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			t.handleUpdate(ctx, update)
		}
	}
}

func (t *Telegram) Stop() {
	if t.bot != nil {
		t.bot.StopReceivingUpdates()
	}
}
