// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация сообщений в очереди
//   - consumer.go   — потребление сообщений из очередей
//
// Типы сообщений:
//   - run.trigger   — execution ожидает выполнения
//   - run.completed — выполнение workflow завершено
//
// Exchanges:
//   - nodeflow.runs — события выполнений
//   - nodeflow.dlq  — dead letter queue
package mq
