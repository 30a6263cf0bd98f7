package domain

// ExecutionStatus — статус выполнения execution.
//
// Жизненный цикл:
//
//	pending → running → success
//	                  ↘ failed
//	          (зарезервировано) → cancelled
//
// Статус cancelled сохраняется в БД и отдаётся через API,
// но через обычный поток выполнения недостижим.
type ExecutionStatus string

const (
	// StatusPending — execution создан, но ещё не начал выполняться.
	StatusPending ExecutionStatus = "pending"

	// StatusRunning — execution в процессе выполнения.
	StatusRunning ExecutionStatus = "running"

	// StatusSuccess — все запланированные узлы завершились успешно.
	StatusSuccess ExecutionStatus = "success"

	// StatusFailed — хотя бы один узел упал либо run прерван структурной ошибкой.
	StatusFailed ExecutionStatus = "failed"

	// StatusCancelled — execution отменён. Зарезервировано на будущее.
	StatusCancelled ExecutionStatus = "cancelled"
)

// IsTerminal возвращает true, если статус финальный.
func (s ExecutionStatus) IsTerminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// ParseExecutionStatus парсит строку в ExecutionStatus.
// Неизвестные значения трактуются как pending.
func ParseExecutionStatus(s string) ExecutionStatus {
	switch ExecutionStatus(s) {
	case StatusPending, StatusRunning, StatusSuccess, StatusFailed, StatusCancelled:
		return ExecutionStatus(s)
	default:
		return StatusPending
	}
}
