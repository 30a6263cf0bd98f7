package worker

import "errors"

// Ошибки воркера.
var (
	// ErrExecutionNotFound — execution не найден в БД.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrExecutionNotPending — execution не в статусе pending.
	ErrExecutionNotPending = errors.New("execution is not in pending status")

	// ErrWorkflowNotFound — workflow для execution не найден.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrWorkerStopped — воркер остановлен.
	ErrWorkerStopped = errors.New("worker stopped")
)
