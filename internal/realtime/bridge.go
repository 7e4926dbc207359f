package realtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shaiso/Fabrika/internal/mq"
)

// Bridge доставляет события из fanout-обменника в Hub инстанса.
//
// Воркеры и планировщик публикуют события в RabbitMQ; каждый
// gateway-инстанс привязывает собственную эксклюзивную очередь и
// раздаёт поток своим живым подключениям.
type Bridge struct {
	conn   *mq.Connection
	hub    *Hub
	logger *slog.Logger
}

// NewBridge создаёт Bridge.
func NewBridge(conn *mq.Connection, hub *Hub, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{conn: conn, hub: hub, logger: logger}
}

// Start привязывает очередь инстанса и потребляет события до отмены
// контекста.
func (b *Bridge) Start(ctx context.Context) error {
	queue, err := mq.DeclareEventsQueue(ctx, b.conn)
	if err != nil {
		return fmt.Errorf("declare events queue: %w", err)
	}

	consumer := mq.NewConsumer(b.conn, b.logger, mq.ConsumerConfig{
		Queue:    queue,
		Handler:  b.handleEvent,
		Prefetch: 32,
	})
	return consumer.Start(ctx)
}

// handleEvent раздаёт одно событие соединениям пользователя.
func (b *Bridge) handleEvent(_ context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.UserEventPayload](&delivery.Message)
	if err != nil {
		b.logger.Error("failed to parse user event payload", "error", err)
		// Нечитаемое событие повтором не чинится.
		return nil
	}

	b.hub.Send(payload.UserID, payload.Event)
	return nil
}
