package service

import (
	"errors"
	"strings"
	"sync"
	"time"

	"portfolio_monitor/internal/models"
	"portfolio_monitor/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	ErrObserverClosed = errors.New("observer closed")
	ErrQueueFull      = errors.New("observer queue full")
)

const (
	defaultQueueSize = 256
	writeWait        = 10 * time.Second
)

// WSObserver: наблюдатель поверх серверного websocket-соединения.
// Исходящие сообщения идут через очередь и отдельную горутину-писателя.
type WSObserver struct {
	id   string
	conn *websocket.Conn

	out       chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewWSObserver(conn *websocket.Conn, queueSize int) *WSObserver {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &WSObserver{
		id:   uuid.NewString(),
		conn: conn,
		out:  make(chan []byte, queueSize),
		done: make(chan struct{}),
	}
}

func (o *WSObserver) ID() string { return o.id }

func (o *WSObserver) Send(msg models.Message) error {
	select {
	case <-o.done:
		return ErrObserverClosed
	default:
	}

	data, err := sonic.Marshal(msg)
	if err != nil {
		return err
	}

	select {
	case o.out <- data:
		return nil
	case <-o.done:
		return ErrObserverClosed
	default:
		return ErrQueueFull
	}
}

func (o *WSObserver) Close() error {
	o.closeOnce.Do(func() {
		close(o.done)
		_ = o.conn.Close()
	})
	return nil
}

func (o *WSObserver) Done() <-chan struct{} { return o.done }

// Serve регистрирует наблюдателя в хабе и крутит read-loop до разрыва соединения.
// Входящий текст "ping" получает ответ {"type":"pong"}, остальное игнорируется.
func (o *WSObserver) Serve(hub *Hub) {
	go o.writeLoop()
	defer func() {
		hub.Unregister(o)
		_ = o.Close()
	}()

	if err := hub.Register(o); err != nil {
		logger.Warn("[WS-OUT] observer %s register failed: %v", o.id, err)
		return
	}

	for {
		_, data, err := o.conn.ReadMessage()
		if err != nil {
			logger.Debug("[WS-OUT] observer %s read: %v", o.id, err)
			return
		}
		if strings.TrimSpace(string(data)) == "ping" {
			if err := o.Send(models.Message{Type: models.KindPong}); err != nil {
				return
			}
		}
	}
}

func (o *WSObserver) writeLoop() {
	for {
		select {
		case <-o.done:
			return
		case data := <-o.out:
			_ = o.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := o.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Debug("[WS-OUT] observer %s write: %v", o.id, err)
				_ = o.Close()
				return
			}
		}
	}
}
