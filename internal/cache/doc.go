// Package cache предоставляет детерминированный кэш результатов
// выполнения узлов workflow.
//
// Ключ кэша — SHA-256 от канонической сериализации тройки
// (тип узла, конфигурация, входные данные), поэтому узел с теми же
// конфигурацией и входами не выполняется повторно. Записи имеют
// опциональный TTL с ленивым истечением при чтении.
package cache
