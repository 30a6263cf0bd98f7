package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Nodeflow/internal/domain"
)

// Workflow DTOs

// CreateWorkflowRequest — запрос на создание workflow.
type CreateWorkflowRequest struct {
	Name        string                      `json:"name"`
	Description string                      `json:"description,omitempty"`
	Nodes       []domain.WorkflowNode       `json:"nodes,omitempty"`
	Connections []domain.WorkflowConnection `json:"connections,omitempty"`
	Metadata    map[string]any              `json:"metadata,omitempty"`
}

// UpdateWorkflowRequest — запрос на обновление workflow.
// Nil-поля не изменяются.
type UpdateWorkflowRequest struct {
	Name        *string                      `json:"name,omitempty"`
	Description *string                      `json:"description,omitempty"`
	Nodes       *[]domain.WorkflowNode       `json:"nodes,omitempty"`
	Connections *[]domain.WorkflowConnection `json:"connections,omitempty"`
	Metadata    *map[string]any              `json:"metadata,omitempty"`
}

// ValidateWorkflowRequest — запрос на валидацию определения workflow.
type ValidateWorkflowRequest struct {
	Nodes       []domain.WorkflowNode       `json:"nodes"`
	Connections []domain.WorkflowConnection `json:"connections,omitempty"`
}

// ValidateWorkflowResponse — результат валидации.
type ValidateWorkflowResponse struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// Execution DTOs

// ExecuteRequest — запрос на запуск workflow.
type ExecuteRequest struct {
	// InputData — входные данные запуска.
	InputData map[string]any `json:"input_data,omitempty"`

	// UseCache — переопределяет настройку кэша для этого запуска.
	UseCache *bool `json:"use_cache,omitempty"`

	// ErrorPolicy — fail_fast (default) или continue.
	ErrorPolicy string `json:"error_policy,omitempty"`

	// IdempotencyKey — для асинхронных запусков: повторный запрос
	// с тем же ключом вернёт существующий execution.
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// Schedule DTOs

// CreateScheduleRequest — запрос на создание schedule.
type CreateScheduleRequest struct {
	Name        string         `json:"name"`
	CronExpr    string         `json:"cron_expr,omitempty"`
	IntervalSec int            `json:"interval_sec,omitempty"`
	Timezone    string         `json:"timezone,omitempty"`
	Enabled     bool           `json:"enabled"`
	InputData   map[string]any `json:"input_data,omitempty"`
}

// UpdateScheduleRequest — запрос на обновление schedule.
type UpdateScheduleRequest struct {
	Name        *string         `json:"name,omitempty"`
	CronExpr    *string         `json:"cron_expr,omitempty"`
	IntervalSec *int            `json:"interval_sec,omitempty"`
	Timezone    *string         `json:"timezone,omitempty"`
	InputData   *map[string]any `json:"input_data,omitempty"`
}

// SetEnabledRequest — запрос на включение/выключение.
type SetEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// ScheduleResponse — ответ с schedule.
type ScheduleResponse struct {
	ID              uuid.UUID      `json:"id"`
	WorkflowID      uuid.UUID      `json:"workflow_id"`
	Name            string         `json:"name"`
	CronExpr        string         `json:"cron_expr,omitempty"`
	IntervalSec     int            `json:"interval_sec,omitempty"`
	Timezone        string         `json:"timezone"`
	Enabled         bool           `json:"enabled"`
	NextDueAt       *time.Time     `json:"next_due_at,omitempty"`
	LastRunAt       *time.Time     `json:"last_run_at,omitempty"`
	LastExecutionID *uuid.UUID     `json:"last_execution_id,omitempty"`
	InputData       map[string]any `json:"input_data,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// ScheduleFromDomain конвертирует domain.Schedule в ScheduleResponse.
func ScheduleFromDomain(s *domain.Schedule) ScheduleResponse {
	if s == nil {
		return ScheduleResponse{}
	}
	return ScheduleResponse{
		ID:              s.ID,
		WorkflowID:      s.WorkflowID,
		Name:            s.Name,
		CronExpr:        s.CronExpr,
		IntervalSec:     s.IntervalSec,
		Timezone:        s.Timezone,
		Enabled:         s.Enabled,
		NextDueAt:       s.NextDueAt,
		LastRunAt:       s.LastRunAt,
		LastExecutionID: s.LastExecutionID,
		InputData:       s.InputData,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

// Node DTOs

// NodePreviewRequest — запрос на пробный запуск одного узла.
type NodePreviewRequest struct {
	Config map[string]any `json:"config,omitempty"`
	Inputs map[string]any `json:"inputs,omitempty"`
	Vars   map[string]any `json:"vars,omitempty"`
}
