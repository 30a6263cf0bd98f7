package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Nodeflow/internal/domain"
)

// ExecutionRepo — репозиторий для работы с executions.
type ExecutionRepo struct {
	pool *pgxpool.Pool
}

// NewExecutionRepo создаёт новый ExecutionRepo.
func NewExecutionRepo(pool *pgxpool.Pool) *ExecutionRepo {
	return &ExecutionRepo{pool: pool}
}

const executionColumns = `id, workflow_id, status, input_data, output_data, error,
       node_results, execution_order, started_at, finished_at, execution_time,
       idempotency_key, created_at, updated_at`

// Create создаёт новый execution.
func (r *ExecutionRepo) Create(ctx context.Context, ex *domain.Execution) error {
	inputJSON, outputJSON, resultsJSON, orderJSON, err := marshalExecution(ex)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO executions (id, workflow_id, status, input_data, output_data, error,
		                        node_results, execution_order, started_at, finished_at,
		                        execution_time, idempotency_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err = r.pool.Exec(ctx, query,
		ex.ID,
		ex.WorkflowID,
		ex.Status,
		inputJSON,
		outputJSON,
		nullString(ex.Error),
		resultsJSON,
		orderJSON,
		ex.StartedAt,
		ex.FinishedAt,
		ex.ExecutionTime,
		nullString(ex.IdempotencyKey),
		ex.CreatedAt,
		ex.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}
	return nil
}

// GetByID возвращает execution по ID.
func (r *ExecutionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Execution, error) {
	query := `SELECT ` + executionColumns + ` FROM executions WHERE id = $1`
	return scanExecution(r.pool.QueryRow(ctx, query, id))
}

// GetByIdempotencyKey возвращает execution по ключу идемпотентности.
// Используется scheduler-ом, чтобы не создать дубликат за один tick.
func (r *ExecutionRepo) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Execution, error) {
	query := `SELECT ` + executionColumns + ` FROM executions WHERE idempotency_key = $1`
	return scanExecution(r.pool.QueryRow(ctx, query, key))
}

// ExecutionFilter — параметры фильтрации executions.
type ExecutionFilter struct {
	WorkflowID *uuid.UUID
	Status     domain.ExecutionStatus
	Limit      int
	Offset     int
}

// List возвращает список executions с фильтрацией, новые первыми.
func (r *ExecutionRepo) List(ctx context.Context, filter ExecutionFilter) ([]domain.Execution, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT ` + executionColumns + `
		FROM executions
		WHERE ($1::uuid IS NULL OR workflow_id = $1)
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query,
		nullUUID(filter.WorkflowID),
		nullString(string(filter.Status)),
		limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	return collectExecutions(rows)
}

// ListPending возвращает pending executions, старые первыми.
// Это рабочая очередь worker-а при поллинге.
func (r *ExecutionRepo) ListPending(ctx context.Context, limit int) ([]domain.Execution, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT ` + executionColumns + `
		FROM executions
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, domain.StatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending executions: %w", err)
	}
	defer rows.Close()

	return collectExecutions(rows)
}

// Update обновляет execution.
func (r *ExecutionRepo) Update(ctx context.Context, ex *domain.Execution) error {
	inputJSON, outputJSON, resultsJSON, orderJSON, err := marshalExecution(ex)
	if err != nil {
		return err
	}

	query := `
		UPDATE executions
		SET status = $2, input_data = $3, output_data = $4, error = $5,
		    node_results = $6, execution_order = $7, started_at = $8,
		    finished_at = $9, execution_time = $10, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		ex.ID,
		ex.Status,
		inputJSON,
		outputJSON,
		nullString(ex.Error),
		resultsJSON,
		orderJSON,
		ex.StartedAt,
		ex.FinishedAt,
		ex.ExecutionTime,
	)
	if err != nil {
		return fmt.Errorf("update execution: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkRunning атомарно переводит pending execution в running.
// Возвращает ErrInvalidState, если execution уже взят другим worker-ом.
func (r *ExecutionRepo) MarkRunning(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE executions
		SET status = $2, started_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = $3
	`
	result, err := r.pool.Exec(ctx, query, id, domain.StatusRunning, domain.StatusPending)
	if err != nil {
		return fmt.Errorf("mark execution running: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrInvalidState
	}
	return nil
}

// CountByStatus возвращает количество executions по статусам.
func (r *ExecutionRepo) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM executions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count executions: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// --- Helpers ---

func marshalExecution(ex *domain.Execution) (input, output, results, order []byte, err error) {
	if input, err = json.Marshal(ex.InputData); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal input_data: %w", err)
	}
	if output, err = json.Marshal(ex.OutputData); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal output_data: %w", err)
	}
	if results, err = json.Marshal(ex.NodeResults); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal node_results: %w", err)
	}
	if order, err = json.Marshal(ex.ExecutionOrder); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal execution_order: %w", err)
	}
	return input, output, results, order, nil
}

// scanExecution сканирует одну строку в Execution.
func scanExecution(row pgx.Row) (*domain.Execution, error) {
	var ex domain.Execution
	var inputJSON, outputJSON, resultsJSON, orderJSON []byte
	var execError, idempotencyKey *string

	err := row.Scan(
		&ex.ID,
		&ex.WorkflowID,
		&ex.Status,
		&inputJSON,
		&outputJSON,
		&execError,
		&resultsJSON,
		&orderJSON,
		&ex.StartedAt,
		&ex.FinishedAt,
		&ex.ExecutionTime,
		&idempotencyKey,
		&ex.CreatedAt,
		&ex.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan execution: %w", err)
	}

	if inputJSON != nil {
		if err := json.Unmarshal(inputJSON, &ex.InputData); err != nil {
			return nil, fmt.Errorf("unmarshal input_data: %w", err)
		}
	}
	if outputJSON != nil {
		if err := json.Unmarshal(outputJSON, &ex.OutputData); err != nil {
			return nil, fmt.Errorf("unmarshal output_data: %w", err)
		}
	}
	if resultsJSON != nil {
		if err := json.Unmarshal(resultsJSON, &ex.NodeResults); err != nil {
			return nil, fmt.Errorf("unmarshal node_results: %w", err)
		}
	}
	if orderJSON != nil {
		if err := json.Unmarshal(orderJSON, &ex.ExecutionOrder); err != nil {
			return nil, fmt.Errorf("unmarshal execution_order: %w", err)
		}
	}
	if execError != nil {
		ex.Error = *execError
	}
	if idempotencyKey != nil {
		ex.IdempotencyKey = *idempotencyKey
	}
	return &ex, nil
}

func collectExecutions(rows pgx.Rows) ([]domain.Execution, error) {
	var executions []domain.Execution
	for rows.Next() {
		ex, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		executions = append(executions, *ex)
	}
	return executions, rows.Err()
}
