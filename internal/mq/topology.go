package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — имя обменника.
type Exchange string

// Queue — имя очереди.
type Queue string

// RoutingKey — ключ маршрутизации.
type RoutingKey string

// Exchanges.
const (
	// ExchangeJobs — jobs производства контента.
	ExchangeJobs Exchange = "fabrika.jobs"

	// ExchangeEvents — realtime-события для пользователей (fanout:
	// каждый gateway-инстанс получает полный поток и доставляет
	// своим подключениям).
	ExchangeEvents Exchange = "fabrika.events"

	// ExchangeDLQ — dead letter exchange.
	ExchangeDLQ Exchange = "fabrika.dlq"
)

// Queues.
const (
	// QueueJobsReady — durable-очередь jobs, потребляется воркерами.
	QueueJobsReady Queue = "jobs.ready"

	// QueueDLQJobs — нечитаемые сообщения jobs, ручной разбор.
	QueueDLQJobs Queue = "dlq.jobs"
)

// Routing keys.
const (
	RoutingKeyJobsReady RoutingKey = "ready"
	RoutingKeyEvents    RoutingKey = "event"
	RoutingKeyDLQJobs   RoutingKey = "jobs"
)

// SetupTopology объявляет exchanges, очереди и bindings.
// Идемпотентна: безопасно вызывать на старте каждого бинарника.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		exchanges := []struct {
			name Exchange
			kind string
		}{
			{ExchangeJobs, "direct"},
			{ExchangeEvents, "fanout"},
			{ExchangeDLQ, "direct"},
		}
		for _, ex := range exchanges {
			if err := ch.ExchangeDeclare(string(ex.name), ex.kind, true, false, false, false, nil); err != nil {
				return fmt.Errorf("declare exchange %s: %w", ex.name, err)
			}
		}

		// jobs.ready — с DLQ: сообщения, которые не удалось разобрать,
		// уходят на ручной разбор, а не крутятся в очереди вечно.
		dlqArgs := amqp.Table{
			"x-dead-letter-exchange":    string(ExchangeDLQ),
			"x-dead-letter-routing-key": string(RoutingKeyDLQJobs),
		}

		queues := []struct {
			name Queue
			args amqp.Table
		}{
			{QueueJobsReady, dlqArgs},
			{QueueDLQJobs, nil},
		}
		for _, q := range queues {
			if _, err := ch.QueueDeclare(string(q.name), true, false, false, false, q.args); err != nil {
				return fmt.Errorf("declare queue %s: %w", q.name, err)
			}
		}

		bindings := []struct {
			queue      Queue
			routingKey RoutingKey
			exchange   Exchange
		}{
			{QueueJobsReady, RoutingKeyJobsReady, ExchangeJobs},
			{QueueDLQJobs, RoutingKeyDLQJobs, ExchangeDLQ},
		}
		for _, b := range bindings {
			if err := ch.QueueBind(string(b.queue), string(b.routingKey), string(b.exchange), false, nil); err != nil {
				return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
			}
		}

		return nil
	})
}

// DeclareEventsQueue объявляет эксклюзивную очередь инстанса,
// привязанную к fanout-обменнику событий. Возвращает её имя
// (сгенерированное сервером). Очередь умирает вместе с соединением —
// события не реплеятся, как и realtime-канал в целом.
func DeclareEventsQueue(ctx context.Context, conn *Connection) (string, error) {
	var name string
	err := conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		q, err := ch.QueueDeclare("", false, true, true, false, nil)
		if err != nil {
			return fmt.Errorf("declare events queue: %w", err)
		}
		if err := ch.QueueBind(q.Name, string(RoutingKeyEvents), string(ExchangeEvents), false, nil); err != nil {
			return fmt.Errorf("bind events queue: %w", err)
		}
		name = q.Name
		return nil
	})
	return name, err
}
