package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/shaiso/Nodeflow/internal/domain"
	"github.com/shaiso/Nodeflow/internal/repo"
	"github.com/shaiso/Nodeflow/internal/runner"
)

// ExecuteWorkflow запускает workflow синхронно и возвращает результат.
// POST /api/v1/workflows/{id}/execute
func (h *Handler) ExecuteWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	req, ok := decodeExecuteRequest(w, r)
	if !ok {
		return
	}

	wf, err := h.workflowRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}

	opts := h.buildRunOptions(req)
	result := h.runner.Run(r.Context(), wf, opts)

	// Сохраняем execution, чтобы синхронные запуски тоже попадали в историю
	h.recordExecution(r, wf.ID, req, result)

	Success(w, result)
}

// EnqueueExecution создаёт pending execution и публикует триггер.
// Выполнением займётся worker.
// POST /api/v1/workflows/{id}/executions
func (h *Handler) EnqueueExecution(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	req, ok := decodeExecuteRequest(w, r)
	if !ok {
		return
	}

	wf, err := h.workflowRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}

	// Idempotency: повторный запрос с тем же ключом возвращает существующий execution
	if req.IdempotencyKey != "" {
		existing, err := h.executionRepo.GetByIdempotencyKey(r.Context(), req.IdempotencyKey)
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			InternalError(w, h.logger, err)
			return
		}
		if existing != nil {
			Success(w, existing)
			return
		}
	}

	ex := domain.NewExecution(wf.ID, req.InputData)
	ex.IdempotencyKey = req.IdempotencyKey

	if err := h.executionRepo.Create(r.Context(), ex); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	// Публикуем триггер; при сбое worker подхватит execution через polling
	if h.publisher != nil {
		if err := h.publisher.PublishRunTrigger(r.Context(), ex.ID, wf.ID); err != nil {
			h.logger.Warn("failed to publish run.trigger", "execution_id", ex.ID, "error", err)
		}
	}

	JSON(w, http.StatusAccepted, DataResponse{Data: ex})
}

// ListExecutions возвращает список executions с фильтрацией.
// GET /api/v1/executions?workflow_id=...&status=...&limit=...&offset=...
func (h *Handler) ListExecutions(w http.ResponseWriter, r *http.Request) {
	filter := repo.ExecutionFilter{}

	if workflowIDStr := r.URL.Query().Get("workflow_id"); workflowIDStr != "" {
		workflowID, err := uuid.Parse(workflowIDStr)
		if err != nil {
			BadRequest(w, "invalid workflow_id")
			return
		}
		filter.WorkflowID = &workflowID
	}

	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status = domain.ExecutionStatus(status)
	}

	filter.Limit = int(mustParseInt(r.URL.Query().Get("limit"), 50))
	filter.Offset = int(mustParseInt(r.URL.Query().Get("offset"), 0))

	executions, err := h.executionRepo.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	List(w, executions, len(executions))
}

// GetExecution возвращает execution по ID.
// GET /api/v1/executions/{id}
func (h *Handler) GetExecution(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid execution id")
		return
	}

	ex, err := h.executionRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "execution not found") {
		return
	}

	Success(w, ex)
}

// CancelExecution отменяет pending execution.
// POST /api/v1/executions/{id}/cancel
func (h *Handler) CancelExecution(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid execution id")
		return
	}

	ex, err := h.executionRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "execution not found") {
		return
	}

	if ex.IsFinished() {
		InvalidState(w, "execution is already finished")
		return
	}

	ex.MarkCancelled()

	if err := h.executionRepo.Update(r.Context(), ex); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	Success(w, ex)
}

// --- Helpers ---

// decodeExecuteRequest декодирует тело запроса на запуск.
// Пустое тело допустимо (запуск без входных данных).
func decodeExecuteRequest(w http.ResponseWriter, r *http.Request) (ExecuteRequest, bool) {
	var req ExecuteRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			BadRequest(w, "invalid request body")
			return req, false
		}
	}
	return req, true
}

// buildRunOptions собирает опции запуска из дефолтов и запроса.
func (h *Handler) buildRunOptions(req ExecuteRequest) runner.Options {
	opts := h.runOpts
	opts.InputData = req.InputData
	if req.UseCache != nil {
		opts.UseCache = *req.UseCache
	}
	if req.ErrorPolicy != "" {
		opts.ErrorPolicy = runner.ErrorPolicy(req.ErrorPolicy)
	}
	return opts
}

// recordExecution сохраняет результат синхронного запуска в историю.
func (h *Handler) recordExecution(r *http.Request, workflowID uuid.UUID, req ExecuteRequest, result *runner.RunResult) {
	if h.executionRepo == nil {
		return
	}

	ex := &domain.Execution{
		ID:             result.RunID,
		WorkflowID:     workflowID,
		Status:         result.Status,
		InputData:      req.InputData,
		OutputData:     result.OutputData,
		Error:          result.Error,
		NodeResults:    result.NodeResults,
		ExecutionOrder: result.ExecutionOrder,
		StartedAt:      &result.StartedAt,
		FinishedAt:     &result.FinishedAt,
		ExecutionTime:  result.ExecutionTime,
		CreatedAt:      result.StartedAt,
		UpdatedAt:      result.FinishedAt,
	}

	if err := h.executionRepo.Create(r.Context(), ex); err != nil {
		h.logger.Warn("failed to record execution", "execution_id", ex.ID, "error", err)
	}
}
