package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/conveyor/internal/domain"
)

// ExecutionRepo — репозиторий для работы с executions.
//
// Таблица executions несёт UNIQUE(workflow_id, event_id): это и есть
// идемпотентный ключ trigger-событий.
type ExecutionRepo struct {
	pool *pgxpool.Pool
}

// NewExecutionRepo создаёт новый ExecutionRepo.
func NewExecutionRepo(pool *pgxpool.Pool) *ExecutionRepo {
	return &ExecutionRepo{pool: pool}
}

// CreateIdempotent создаёт execution, если записи с такой парой
// (workflow_id, event_id) ещё нет. Возвращает актуальную запись и
// признак того, была ли она создана этим вызовом.
// Реализует runner.ExecutionStore.
func (r *ExecutionRepo) CreateIdempotent(ctx context.Context, execution *domain.Execution) (*domain.Execution, bool, error) {
	inputJSON, err := json.Marshal(execution.Input)
	if err != nil {
		return nil, false, fmt.Errorf("marshal input: %w", err)
	}

	// ON CONFLICT DO NOTHING + RETURNING: при конфликте строк не
	// возвращается, тогда выбираем существующую запись отдельно.
	query := `
		INSERT INTO executions (id, workflow_id, event_id, status, input, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (workflow_id, event_id) DO NOTHING
		RETURNING id
	`
	var insertedID uuid.UUID
	err = r.pool.QueryRow(ctx, query,
		execution.ID,
		execution.WorkflowID,
		execution.EventID,
		execution.Status,
		inputJSON,
		execution.StartedAt,
	).Scan(&insertedID)

	if err == nil {
		return execution, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("insert execution: %w", err)
	}

	existing, err := r.GetByEventID(ctx, execution.WorkflowID, execution.EventID)
	if err != nil {
		return nil, false, fmt.Errorf("load existing execution: %w", err)
	}
	return existing, false, nil
}

// Update сохраняет изменённые поля execution.
func (r *ExecutionRepo) Update(ctx context.Context, execution *domain.Execution) error {
	outputJSON, err := json.Marshal(execution.Output)
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}

	query := `
		UPDATE executions
		SET status = $2, output = $3, error = $4, error_stack = $5, finished_at = $6
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		execution.ID,
		execution.Status,
		outputJSON,
		nullString(execution.Error),
		nullString(execution.ErrorStack),
		execution.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("update execution: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID возвращает execution по ID.
func (r *ExecutionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Execution, error) {
	query := executionSelect + ` WHERE id = $1`
	return scanExecution(r.pool.QueryRow(ctx, query, id))
}

// GetByEventID возвращает execution по идемпотентному ключу.
func (r *ExecutionRepo) GetByEventID(ctx context.Context, workflowID uuid.UUID, eventID string) (*domain.Execution, error) {
	query := executionSelect + ` WHERE workflow_id = $1 AND event_id = $2`
	return scanExecution(r.pool.QueryRow(ctx, query, workflowID, eventID))
}

// List возвращает executions с фильтрацией.
func (r *ExecutionRepo) List(ctx context.Context, filter ExecutionFilter) ([]domain.Execution, error) {
	query := executionSelect + `
		WHERE ($1::uuid IS NULL OR workflow_id = $1)
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY started_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query,
		nullUUID(filter.WorkflowID),
		nullString(string(filter.Status)),
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	return collectExecutions(rows)
}

// ListUnfinished возвращает executions в нетерминальных статусах.
// Используется polling fallback. Реализует runner.UnfinishedLister.
func (r *ExecutionRepo) ListUnfinished(ctx context.Context, limit int) ([]domain.Execution, error) {
	query := executionSelect + `
		WHERE status IN ('CREATED', 'RUNNING')
		ORDER BY started_at ASC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list unfinished executions: %w", err)
	}
	defer rows.Close()

	return collectExecutions(rows)
}

// --- Helpers ---

// ExecutionFilter — параметры фильтрации executions.
type ExecutionFilter struct {
	WorkflowID *uuid.UUID
	Status     domain.ExecutionStatus
	Limit      int
	Offset     int
}

const executionSelect = `
	SELECT id, workflow_id, event_id, status, input, output,
	       error, error_stack, started_at, finished_at
	FROM executions
`

func scanExecution(row pgx.Row) (*domain.Execution, error) {
	var execution domain.Execution
	var inputJSON, outputJSON []byte
	var execError, execErrorStack *string

	err := row.Scan(
		&execution.ID,
		&execution.WorkflowID,
		&execution.EventID,
		&execution.Status,
		&inputJSON,
		&outputJSON,
		&execError,
		&execErrorStack,
		&execution.StartedAt,
		&execution.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan execution: %w", err)
	}

	if inputJSON != nil {
		if err := json.Unmarshal(inputJSON, &execution.Input); err != nil {
			return nil, fmt.Errorf("unmarshal input: %w", err)
		}
	}
	if outputJSON != nil {
		if err := json.Unmarshal(outputJSON, &execution.Output); err != nil {
			return nil, fmt.Errorf("unmarshal output: %w", err)
		}
	}
	if execError != nil {
		execution.Error = *execError
	}
	if execErrorStack != nil {
		execution.ErrorStack = *execErrorStack
	}

	return &execution, nil
}

func collectExecutions(rows pgx.Rows) ([]domain.Execution, error) {
	var executions []domain.Execution
	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		executions = append(executions, *execution)
	}
	return executions, rows.Err()
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nullUUID возвращает nil для пустого UUID.
func nullUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	return id
}
