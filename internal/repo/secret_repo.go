package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/conveyor/internal/secrets"
)

// SecretRepo — хранилище значений секретов, ключом служит
// непрозрачная ссылка. Реализует secrets.Store.
//
// Значения лежат в отдельной таблице и никогда не джойнятся с
// credentials в выборках движка: метаданные и секреты ходят по коду
// разными путями.
type SecretRepo struct {
	pool *pgxpool.Pool
}

// NewSecretRepo создаёт новый SecretRepo.
func NewSecretRepo(pool *pgxpool.Pool) *SecretRepo {
	return &SecretRepo{pool: pool}
}

// Get возвращает значение секрета по ссылке.
func (r *SecretRepo) Get(ctx context.Context, ref string) (string, error) {
	query := `SELECT value FROM secrets WHERE ref = $1`

	var value string
	err := r.pool.QueryRow(ctx, query, ref).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", secrets.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get secret: %w", err)
	}
	return value, nil
}

// Upsert записывает значение секрета по ссылке.
func (r *SecretRepo) Upsert(ctx context.Context, ref, value string) error {
	query := `
		INSERT INTO secrets (ref, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (ref) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`
	if _, err := r.pool.Exec(ctx, query, ref, value); err != nil {
		return fmt.Errorf("upsert secret: %w", err)
	}
	return nil
}

// Delete удаляет секрет. Удаление несуществующей ссылки не ошибка.
func (r *SecretRepo) Delete(ctx context.Context, ref string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM secrets WHERE ref = $1`, ref); err != nil {
		return fmt.Errorf("delete secret: %w", err)
	}
	return nil
}
