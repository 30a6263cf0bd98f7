// Package telemetry обеспечивает наблюдаемость системы.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики запусков workflow, выполнений
//     узлов и обращений к кэшу результатов
//
// Все сервисы (api, worker, scheduler) используют единый формат
// логирования и экспортируют метрики на /metrics endpoint.
package telemetry
