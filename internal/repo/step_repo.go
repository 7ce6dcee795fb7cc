package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StepRepo — хранилище чекпоинтов durable steps.
//
// Ключ — пара (execution key, step name). Реализует
// stepengine.CheckpointStore.
type StepRepo struct {
	pool *pgxpool.Pool
}

// NewStepRepo создаёт новый StepRepo.
func NewStepRepo(pool *pgxpool.Pool) *StepRepo {
	return &StepRepo{pool: pool}
}

// Get возвращает чекпоинт шага, если он существует.
func (r *StepRepo) Get(ctx context.Context, key, name string) (json.RawMessage, bool, error) {
	query := `
		SELECT result
		FROM step_checkpoints
		WHERE execution_key = $1 AND step_name = $2
	`
	var result []byte
	err := r.pool.QueryRow(ctx, query, key, name).Scan(&result)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get step checkpoint: %w", err)
	}
	return result, true, nil
}

// Put сохраняет чекпоинт шага. Повторная запись того же шага
// идемпотентна (первый результат побеждает).
func (r *StepRepo) Put(ctx context.Context, key, name string, result json.RawMessage) error {
	query := `
		INSERT INTO step_checkpoints (execution_key, step_name, result, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (execution_key, step_name) DO NOTHING
	`
	if _, err := r.pool.Exec(ctx, query, key, name, []byte(result)); err != nil {
		return fmt.Errorf("put step checkpoint: %w", err)
	}
	return nil
}
