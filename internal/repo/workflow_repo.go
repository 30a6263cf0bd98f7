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

// WorkflowRepo — репозиторий для работы с workflows.
//
// Узлы, соединения и метаданные хранятся как JSONB: определение
// workflow — документ, его интерпретирует только Runner.
type WorkflowRepo struct {
	pool *pgxpool.Pool
}

// NewWorkflowRepo создаёт новый WorkflowRepo.
func NewWorkflowRepo(pool *pgxpool.Pool) *WorkflowRepo {
	return &WorkflowRepo{pool: pool}
}

// Create создаёт новый workflow.
func (r *WorkflowRepo) Create(ctx context.Context, wf *domain.Workflow) error {
	nodesJSON, connsJSON, metaJSON, err := marshalDefinition(wf)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO workflows (id, name, description, nodes, connections, metadata,
		                       version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.pool.Exec(ctx, query,
		wf.ID,
		wf.Name,
		nullString(wf.Description),
		nodesJSON,
		connsJSON,
		metaJSON,
		wf.Version,
		wf.CreatedAt,
		wf.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert workflow: %w", err)
	}
	return nil
}

// GetByID возвращает workflow по ID.
func (r *WorkflowRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Workflow, error) {
	query := `
		SELECT id, name, description, nodes, connections, metadata,
		       version, created_at, updated_at
		FROM workflows
		WHERE id = $1
	`
	return scanWorkflow(r.pool.QueryRow(ctx, query, id))
}

// GetByName возвращает workflow по имени.
func (r *WorkflowRepo) GetByName(ctx context.Context, name string) (*domain.Workflow, error) {
	query := `
		SELECT id, name, description, nodes, connections, metadata,
		       version, created_at, updated_at
		FROM workflows
		WHERE name = $1
	`
	return scanWorkflow(r.pool.QueryRow(ctx, query, name))
}

// List возвращает список workflows, новые первыми.
func (r *WorkflowRepo) List(ctx context.Context, limit, offset int) ([]domain.Workflow, error) {
	query := `
		SELECT id, name, description, nodes, connections, metadata,
		       version, created_at, updated_at
		FROM workflows
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	defer rows.Close()

	var workflows []domain.Workflow
	for rows.Next() {
		wf, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, *wf)
	}
	return workflows, rows.Err()
}

// Update обновляет определение workflow и инкрементирует версию.
func (r *WorkflowRepo) Update(ctx context.Context, wf *domain.Workflow) error {
	nodesJSON, connsJSON, metaJSON, err := marshalDefinition(wf)
	if err != nil {
		return err
	}

	query := `
		UPDATE workflows
		SET name = $2, description = $3, nodes = $4, connections = $5,
		    metadata = $6, version = version + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING version, updated_at
	`
	err = r.pool.QueryRow(ctx, query,
		wf.ID,
		wf.Name,
		nullString(wf.Description),
		nodesJSON,
		connsJSON,
		metaJSON,
	).Scan(&wf.Version, &wf.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update workflow: %w", err)
	}
	return nil
}

// Delete удаляет workflow.
func (r *WorkflowRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM workflows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete workflow: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Count возвращает количество workflows.
func (r *WorkflowRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM workflows`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count workflows: %w", err)
	}
	return count, nil
}

// --- Helpers ---

func marshalDefinition(wf *domain.Workflow) (nodes, conns, meta []byte, err error) {
	if nodes, err = json.Marshal(wf.Nodes); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal nodes: %w", err)
	}
	if conns, err = json.Marshal(wf.Connections); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal connections: %w", err)
	}
	if meta, err = json.Marshal(wf.Metadata); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal metadata: %w", err)
	}
	return nodes, conns, meta, nil
}

// scanWorkflow сканирует строку в Workflow.
func scanWorkflow(row pgx.Row) (*domain.Workflow, error) {
	var wf domain.Workflow
	var description *string
	var nodesJSON, connsJSON, metaJSON []byte

	err := row.Scan(
		&wf.ID,
		&wf.Name,
		&description,
		&nodesJSON,
		&connsJSON,
		&metaJSON,
		&wf.Version,
		&wf.CreatedAt,
		&wf.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan workflow: %w", err)
	}

	if description != nil {
		wf.Description = *description
	}
	if nodesJSON != nil {
		if err := json.Unmarshal(nodesJSON, &wf.Nodes); err != nil {
			return nil, fmt.Errorf("unmarshal nodes: %w", err)
		}
	}
	if connsJSON != nil {
		if err := json.Unmarshal(connsJSON, &wf.Connections); err != nil {
			return nil, fmt.Errorf("unmarshal connections: %w", err)
		}
	}
	if metaJSON != nil {
		if err := json.Unmarshal(metaJSON, &wf.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return &wf, nil
}
