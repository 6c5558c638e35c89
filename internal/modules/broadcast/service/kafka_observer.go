package service

import (
	"context"
	"sync"
	"time"

	"portfolio_monitor/internal/models"
	"portfolio_monitor/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaObserver зеркалит все сообщения хаба в топик (ключ - account_id,
// так в пределах аккаунта порядок сохраняется и в партиции).
type KafkaObserver struct {
	w     messageWriter
	queue chan kafka.Message

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}
}

func NewKafkaObserver(w messageWriter, queueSize int) *KafkaObserver {
	if queueSize <= 0 {
		queueSize = 1024
	}
	o := &KafkaObserver{
		w:     w,
		queue: make(chan kafka.Message, queueSize),
		done:  make(chan struct{}),
	}
	o.wg.Add(1)
	go o.loop()
	return o
}

func (o *KafkaObserver) ID() string { return "kafka" }

func (o *KafkaObserver) Send(msg models.Message) error {
	select {
	case <-o.done:
		return ErrObserverClosed
	default:
	}

	value, err := sonic.Marshal(msg)
	if err != nil {
		return err
	}

	select {
	case o.queue <- kafka.Message{Key: []byte(msg.AccountID), Value: value}:
	default:
		// брокер тормозит: теряем сообщение, но хаб не держим
		logger.Warn("[KAFKA] queue full, dropped %s for account %s", msg.Type, msg.AccountID)
	}
	return nil
}

func (o *KafkaObserver) loop() {
	defer o.wg.Done()
	for {
		select {
		case <-o.done:
			return
		case m := <-o.queue:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := o.w.WriteMessages(ctx, m); err != nil {
				logger.Warn("[KAFKA] write: %v", err)
			}
			cancel()
		}
	}
}

func (o *KafkaObserver) Close() error {
	var err error
	o.closeOnce.Do(func() {
		close(o.done)
		o.wg.Wait()
		err = o.w.Close()
	})
	return err
}
