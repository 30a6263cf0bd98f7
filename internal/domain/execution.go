package domain

import (
	"time"

	"github.com/google/uuid"
)

// Execution — запись об одном выполнении workflow.
//
// Execution создаётся когда:
// - Пользователь запускает workflow вручную (через API/CLI)
// - Scheduler создаёт execution по расписанию
// - Worker получает trigger из очереди
//
// Это форма, которую сохраняет storage-слой и возвращает API.
type Execution struct {
	// ID — уникальный идентификатор execution (run id).
	ID uuid.UUID `json:"id"`

	// WorkflowID — ссылка на выполняемый workflow.
	WorkflowID uuid.UUID `json:"workflow_id"`

	// Status — текущий статус выполнения.
	Status ExecutionStatus `json:"status"`

	// InputData — входные данные, переданные при запуске.
	InputData map[string]any `json:"input_data,omitempty"`

	// OutputData — финальный выход run.
	// Выход output-узла либо полная карта node_outputs.
	OutputData any `json:"output_data,omitempty"`

	// Error — текст ошибки уровня run, если status=failed.
	Error string `json:"error,omitempty"`

	// NodeResults — результаты по узлам (node id → NodeResult).
	NodeResults map[string]*NodeResult `json:"node_results,omitempty"`

	// ExecutionOrder — порядок, в котором узлы были запланированы.
	ExecutionOrder []string `json:"execution_order,omitempty"`

	// StartedAt — время перехода в running. Nil, если run не начался.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения. Nil, если run ещё выполняется.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// ExecutionTime — длительность выполнения в секундах.
	ExecutionTime float64 `json:"execution_time,omitempty"`

	// IdempotencyKey — ключ идемпотентности для предотвращения дубликатов.
	// Для scheduled executions: "{schedule_id}_{next_due_at}".
	IdempotencyKey string `json:"idempotency_key,omitempty"`

	// CreatedAt — время создания записи.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего обновления записи.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewExecution создаёт pending execution для workflow.
func NewExecution(workflowID uuid.UUID, inputData map[string]any) *Execution {
	now := time.Now().UTC()
	return &Execution{
		ID:         uuid.New(),
		WorkflowID: workflowID,
		Status:     StatusPending,
		InputData:  inputData,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если execution ещё не завершён.
func (e *Execution) Duration() time.Duration {
	if e.StartedAt == nil || e.FinishedAt == nil {
		return 0
	}
	return e.FinishedAt.Sub(*e.StartedAt)
}

// IsFinished возвращает true, если execution завершён (в любом статусе).
func (e *Execution) IsFinished() bool {
	return e.Status.IsTerminal()
}

// MarkRunning переводит execution в статус running.
func (e *Execution) MarkRunning() {
	now := time.Now().UTC()
	e.Status = StatusRunning
	e.StartedAt = &now
	e.UpdatedAt = now
}

// MarkSuccess переводит execution в статус success.
func (e *Execution) MarkSuccess() {
	now := time.Now().UTC()
	e.Status = StatusSuccess
	e.FinishedAt = &now
	e.UpdatedAt = now
}

// MarkFailed переводит execution в статус failed с ошибкой.
func (e *Execution) MarkFailed(errMsg string) {
	now := time.Now().UTC()
	e.Status = StatusFailed
	e.FinishedAt = &now
	e.Error = errMsg
	e.UpdatedAt = now
}

// MarkCancelled переводит execution в статус cancelled.
func (e *Execution) MarkCancelled() {
	now := time.Now().UTC()
	e.Status = StatusCancelled
	e.FinishedAt = &now
	e.UpdatedAt = now
}
