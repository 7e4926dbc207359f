// Package mq предоставляет инфраструктуру RabbitMQ.
//
// Структура:
//   - connection.go — соединение с reconnect и graceful shutdown
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация сообщений
//   - consumer.go   — потребление сообщений
//
// Топология:
//   - fabrika.jobs (direct) → jobs.ready — сигналы о новых jobs,
//     потребляются воркерами; нечитаемые сообщения уходят в
//     fabrika.dlq → dlq.jobs.
//   - fabrika.events (fanout) — realtime-события; каждый
//     gateway-инстанс привязывает собственную эксклюзивную очередь.
//
// Очередь несёт только идентификаторы: сами jobs durable в Postgres,
// поэтому потеря брокера деградирует доставку до polling, не теряя
// работу.
package mq
