package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shaiso/Nodeflow/internal/domain"
	"github.com/shaiso/Nodeflow/internal/mq"
	"github.com/shaiso/Nodeflow/internal/repo"
)

// handleRunTrigger обрабатывает триггер из очереди runs.trigger.
func (w *Worker) handleRunTrigger(ctx context.Context, delivery *mq.Delivery) error {
	// Парсим payload
	payload, err := mq.ParsePayload[mq.RunTriggerPayload](&delivery.Message)
	if err != nil {
		w.logger.Error("failed to parse run.trigger payload", "error", err)
		return err
	}

	w.logger.Debug("received run.trigger event",
		"execution_id", payload.ExecutionID,
		"workflow_id", payload.WorkflowID,
	)

	// Обрабатываем execution
	if err := w.processExecution(ctx, payload.ExecutionID); err != nil {
		// Ожидаемые ситуации — не возвращаем ошибку (ack)
		if errors.Is(err, ErrExecutionNotFound) || errors.Is(err, ErrExecutionNotPending) {
			w.logger.Debug("execution not processed", "execution_id", payload.ExecutionID, "reason", err)
			return nil
		}
		w.logger.Error("failed to process execution", "execution_id", payload.ExecutionID, "error", err)
		return err
	}

	return nil
}

// processExecution забирает execution, выполняет workflow и сохраняет результат.
func (w *Worker) processExecution(ctx context.Context, executionID uuid.UUID) error {
	// 1. Загружаем execution из БД
	ex, err := w.executionRepo.GetByID(ctx, executionID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrExecutionNotFound, executionID)
		}
		return fmt.Errorf("get execution: %w", err)
	}

	// 2. Проверяем статус
	if ex.Status != domain.StatusPending {
		return ErrExecutionNotPending
	}

	// 3. Атомарно забираем (pending → running).
	// Если execution уже забрал другой worker — выходим.
	if err := w.executionRepo.MarkRunning(ctx, ex.ID); err != nil {
		if errors.Is(err, repo.ErrInvalidState) {
			return ErrExecutionNotPending
		}
		return fmt.Errorf("mark execution running: %w", err)
	}
	ex.MarkRunning()

	w.logger.Info("execution started",
		"execution_id", ex.ID,
		"workflow_id", ex.WorkflowID,
	)

	// 4. Загружаем workflow
	wf, err := w.workflowRepo.GetByID(ctx, ex.WorkflowID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return w.failExecution(ctx, ex, fmt.Sprintf("workflow not found: %s", ex.WorkflowID))
		}
		return w.failExecution(ctx, ex, fmt.Sprintf("load workflow: %v", err))
	}

	// 5. Выполняем workflow
	opts := w.runOpts
	opts.InputData = ex.InputData
	opts.RunID = ex.ID

	result := w.runner.Run(ctx, wf, opts)

	// 6. Переносим результат в execution и сохраняем
	ex.Status = result.Status
	ex.Error = result.Error
	ex.OutputData = result.OutputData
	ex.NodeResults = result.NodeResults
	ex.ExecutionOrder = result.ExecutionOrder
	ex.StartedAt = &result.StartedAt
	ex.FinishedAt = &result.FinishedAt
	ex.ExecutionTime = result.ExecutionTime

	if err := w.executionRepo.Update(ctx, ex); err != nil {
		return fmt.Errorf("save execution result: %w", err)
	}

	if ex.Status == domain.StatusSuccess {
		w.logger.Info("execution succeeded",
			"execution_id", ex.ID,
			"workflow_id", ex.WorkflowID,
			"execution_time", ex.ExecutionTime,
		)
	} else {
		w.logger.Warn("execution failed",
			"execution_id", ex.ID,
			"workflow_id", ex.WorkflowID,
			"error", ex.Error,
		)
	}

	return w.publishCompletion(ctx, ex)
}

// failExecution помечает execution как failed и публикует событие.
func (w *Worker) failExecution(ctx context.Context, ex *domain.Execution, errMsg string) error {
	ex.MarkFailed(errMsg)
	if err := w.executionRepo.Update(ctx, ex); err != nil {
		return fmt.Errorf("update execution to failed: %w", err)
	}

	w.logger.Warn("execution failed",
		"execution_id", ex.ID,
		"workflow_id", ex.WorkflowID,
		"error", errMsg,
	)

	return w.publishCompletion(ctx, ex)
}

// publishCompletion публикует событие run.completed.
func (w *Worker) publishCompletion(ctx context.Context, ex *domain.Execution) error {
	if w.publisher == nil {
		w.logger.Warn("publisher not available, skipping run.completed publish",
			"execution_id", ex.ID,
		)
		return nil
	}

	payload := mq.RunCompletedPayload{
		ExecutionID:   ex.ID,
		WorkflowID:    ex.WorkflowID,
		Status:        string(ex.Status),
		Error:         ex.Error,
		ExecutionTime: ex.ExecutionTime,
	}

	if err := w.publisher.PublishRunCompleted(ctx, payload); err != nil {
		w.logger.Warn("failed to publish run.completed",
			"execution_id", ex.ID,
			"error", err,
		)
		// Не возвращаем ошибку — execution уже обновлён в БД
	}

	return nil
}
