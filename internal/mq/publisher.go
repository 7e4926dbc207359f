package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Fabrika/internal/domain"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeJobQueued MessageType = "job.queued"
	MessageTypeUserEvent MessageType = "user.event"
)

// Message — конверт сообщения.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// JobQueuedPayload — payload сообщения о новом job.
// Несёт только идентификатор: сам job durable в Postgres, очередь —
// лишь сигнал "есть работа" (at-least-once).
type JobQueuedPayload struct {
	JobID uuid.UUID `json:"job_id"`
}

// UserEventPayload — payload realtime-события для пользователя.
type UserEventPayload struct {
	UserID string       `json:"user_id"`
	Event  domain.Event `json:"event"`
}

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{conn: conn, logger: logger}
}

// Publish публикует сообщение в exchange с указанным routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),
			string(routingKey),
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent, // переживает рестарт RabbitMQ
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)
		return nil
	})
}

// PublishJobQueued сигналит воркерам о новом job.
func (p *Publisher) PublishJobQueued(ctx context.Context, jobID uuid.UUID) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeJobQueued,
		Payload:   JobQueuedPayload{JobID: jobID},
		Timestamp: time.Now(),
	}
	return p.Publish(ctx, ExchangeJobs, RoutingKeyJobsReady, msg)
}

// PublishUserEvent рассылает realtime-событие всем gateway-инстансам;
// каждый доставляет его своим живым подключениям пользователя.
func (p *Publisher) PublishUserEvent(ctx context.Context, userID string, event domain.Event) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeUserEvent,
		Payload:   UserEventPayload{UserID: userID, Event: event},
		Timestamp: time.Now(),
	}
	return p.Publish(ctx, ExchangeEvents, RoutingKeyEvents, msg)
}
