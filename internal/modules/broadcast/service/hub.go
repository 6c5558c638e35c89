package service

import (
	"io"
	"sync"
	"time"

	"portfolio_monitor/internal/models"
	"portfolio_monitor/pkg/logger"
	"portfolio_monitor/pkg/metrics"
)

// Observer: любой получатель обновлений. Send не должен блокироваться:
// ошибка означает «наблюдатель мёртв», хаб удалит его после прохода.
type Observer interface {
	ID() string
	Send(msg models.Message) error
}

// SnapshotSource: откуда хаб берёт полный срез для догоняющей отправки.
type SnapshotSource interface {
	SnapshotAll() []models.AccountSnapshot
}

type member struct {
	obs Observer

	// пока наблюдатель получает реплей, живые сообщения копятся здесь
	catchingUp bool
	backlog    []models.Message
}

// Hub раздаёт изменения кеша всем наблюдателям. Замков аккаунтов не берёт никогда.
type Hub struct {
	mu      sync.Mutex
	members map[string]*member
	src     SnapshotSource

	now func() time.Time
}

func NewHub() *Hub {
	return &Hub{
		members: make(map[string]*member),
		now:     time.Now,
	}
}

// Attach подключает источник реплея (кеш). Делается один раз при сборке приложения.
func (h *Hub) Attach(src SnapshotSource) {
	h.mu.Lock()
	h.src = src
	h.mu.Unlock()
}

func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.members)
}

// Register добавляет наблюдателя и досылает ему (только ему) текущее состояние всех аккаунтов.
// Живые сообщения, пришедшие во время реплея, доставляются после него, без дублей.
func (h *Hub) Register(obs Observer) error {
	h.mu.Lock()
	h.members[obs.ID()] = &member{obs: obs, catchingUp: true}
	src := h.src
	metrics.HubObservers.Set(float64(len(h.members)))
	h.mu.Unlock()

	var snaps []models.AccountSnapshot
	if src != nil {
		snaps = src.SnapshotAll()
	}

	for _, msg := range h.replay(snaps) {
		if err := obs.Send(msg); err != nil {
			h.evict(obs, err)
			return err
		}
	}

	seen := make(map[string]uint64, len(snaps))
	for _, s := range snaps {
		seen[s.AccountID] = s.Seq
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	m, ok := h.members[obs.ID()]
	if !ok || m.obs != obs {
		return nil
	}
	for _, msg := range m.backlog {
		if msg.Seq != 0 && msg.Seq <= seen[msg.AccountID] {
			continue
		}
		if err := obs.Send(msg); err != nil {
			h.removeLocked(obs, err)
			return err
		}
	}
	m.backlog = nil
	m.catchingUp = false

	logger.Info("[HUB] observer %s registered, replayed %d accounts", obs.ID(), len(snaps))
	return nil
}

// Unregister идемпотентен.
func (h *Hub) Unregister(obs Observer) {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, ok := h.members[obs.ID()]
	if !ok || m.obs != obs {
		return
	}
	delete(h.members, obs.ID())
	metrics.HubObservers.Set(float64(len(h.members)))
}

// Publish никогда не паникует и не возвращает ошибку: сломанные наблюдатели просто удаляются.
func (h *Hub) Publish(accountID string, kind models.MessageKind, seq uint64, payload any) {
	h.broadcast(models.Message{
		Type:      kind,
		AccountID: accountID,
		Data:      payload,
		Seq:       seq,
		Timestamp: h.stamp(),
	})
}

func (h *Hub) PublishError(accountID, message string) {
	h.broadcast(models.Message{
		Type:      models.KindError,
		AccountID: accountID,
		Message:   message,
		Timestamp: h.stamp(),
	})
}

func (h *Hub) broadcast(msg models.Message) {
	metrics.HubMessages.WithLabelValues(string(msg.Type)).Inc()

	h.mu.Lock()
	defer h.mu.Unlock()

	type failure struct {
		obs Observer
		err error
	}
	var failed []failure

	for _, m := range h.members {
		if m.catchingUp {
			m.backlog = append(m.backlog, msg)
			continue
		}
		if err := m.obs.Send(msg); err != nil {
			failed = append(failed, failure{obs: m.obs, err: err})
		}
	}

	for _, f := range failed {
		h.removeLocked(f.obs, f.err)
	}
}

func (h *Hub) evict(obs Observer, cause error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(obs, cause)
}

func (h *Hub) removeLocked(obs Observer, cause error) {
	m, ok := h.members[obs.ID()]
	if !ok || m.obs != obs {
		return
	}
	delete(h.members, obs.ID())
	metrics.HubEvictions.Inc()
	metrics.HubObservers.Set(float64(len(h.members)))
	logger.Warn("[HUB] observer %s removed: %v", obs.ID(), cause)

	if c, ok := obs.(io.Closer); ok {
		_ = c.Close()
	}
}

// replay: сначала балансы всех аккаунтов, потом позиции, потом ордера.
func (h *Hub) replay(snaps []models.AccountSnapshot) []models.Message {
	ts := h.stamp()
	out := make([]models.Message, 0, len(snaps)*3)

	for _, s := range snaps {
		if s.Balance == nil {
			continue
		}
		out = append(out, models.Message{Type: models.KindBalance, AccountID: s.AccountID, Data: *s.Balance, Seq: s.Seq, Timestamp: ts})
	}
	for _, s := range snaps {
		if !s.HasPositions {
			continue
		}
		out = append(out, models.Message{Type: models.KindPositions, AccountID: s.AccountID, Data: s.Positions, Seq: s.Seq, Timestamp: ts})
	}
	for _, s := range snaps {
		if !s.HasPendingOrders {
			continue
		}
		out = append(out, models.Message{Type: models.KindPendingOrders, AccountID: s.AccountID, Data: s.PendingOrders, Seq: s.Seq, Timestamp: ts})
	}
	return out
}

func (h *Hub) stamp() string {
	return h.now().UTC().Format(time.RFC3339Nano)
}
