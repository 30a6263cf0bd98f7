// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go           — Handler с DI (репозитории, runner, publisher, logger)
//   - routes.go            — регистрация маршрутов
//   - middleware.go        — middleware (logging, recovery)
//   - response.go          — унифицированные JSON-ответы и обработка ошибок
//   - dto.go               — Data Transfer Objects (request/response)
//   - workflow_handler.go  — обработчики для /workflows
//   - execution_handler.go — обработчики для /executions и запуска workflow
//   - node_handler.go      — обработчики для /node-types и /cache
//   - schedule_handler.go  — обработчики для /schedules
//
// API предоставляет REST endpoints для управления workflows, их запуска
// (синхронного и через очередь), просмотра executions, реестра типов
// узлов и расписаний.
package api
