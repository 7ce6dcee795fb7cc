// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация сообщений в очереди
//   - consumer.go   — потребление сообщений из очередей
//
// Типы сообщений:
//   - trigger.event — trigger-событие: запуск workflow
//   - node.status   — live-статус узла для UI
//
// Exchanges:
//   - conveyor.triggers — trigger-события (direct)
//   - conveyor.status   — статусы узлов по типу (topic)
//   - conveyor.dlq      — dead letter queue
package mq
