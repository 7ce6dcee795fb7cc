package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/conveyor/internal/domain"
)

// CredentialRepo — репозиторий для работы с credentials.
//
// Хранит только метаданные: тип, имя и непрозрачную ссылку на секрет.
// Само значение секрета живёт в secrets (см. SecretRepo).
type CredentialRepo struct {
	pool *pgxpool.Pool
}

// NewCredentialRepo создаёт новый CredentialRepo.
func NewCredentialRepo(pool *pgxpool.Pool) *CredentialRepo {
	return &CredentialRepo{pool: pool}
}

// Create создаёт credential.
func (r *CredentialRepo) Create(ctx context.Context, credential *domain.Credential) error {
	query := `
		INSERT INTO credentials (id, user_id, type, name, secret_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query,
		credential.ID,
		credential.UserID,
		credential.Type,
		credential.Name,
		credential.SecretRef,
		credential.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}

// GetCredential возвращает credential по id, скоупленный владельцем:
// чужой credential неотличим от несуществующего.
// Реализует executor.CredentialSource.
func (r *CredentialRepo) GetCredential(ctx context.Context, id uuid.UUID, userID string) (*domain.Credential, error) {
	query := `
		SELECT id, user_id, type, name, secret_ref, created_at
		FROM credentials
		WHERE id = $1 AND user_id = $2
	`
	var credential domain.Credential
	err := r.pool.QueryRow(ctx, query, id, userID).Scan(
		&credential.ID,
		&credential.UserID,
		&credential.Type,
		&credential.Name,
		&credential.SecretRef,
		&credential.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get credential: %w", err)
	}
	return &credential, nil
}

// ListByUser возвращает credentials пользователя.
func (r *CredentialRepo) ListByUser(ctx context.Context, userID string) ([]domain.Credential, error) {
	query := `
		SELECT id, user_id, type, name, secret_ref, created_at
		FROM credentials
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	var credentials []domain.Credential
	for rows.Next() {
		var credential domain.Credential
		if err := rows.Scan(
			&credential.ID,
			&credential.UserID,
			&credential.Type,
			&credential.Name,
			&credential.SecretRef,
			&credential.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		credentials = append(credentials, credential)
	}
	return credentials, rows.Err()
}

// Delete удаляет credential пользователя.
func (r *CredentialRepo) Delete(ctx context.Context, id uuid.UUID, userID string) error {
	query := `DELETE FROM credentials WHERE id = $1 AND user_id = $2`
	result, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
