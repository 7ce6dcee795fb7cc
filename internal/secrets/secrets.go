// Package secrets определяет хранилище значений секретов.
//
// Значение секрета (API-ключ, webhook URL) никогда не хранится рядом
// с графом или метаданными credential — только непрозрачная ссылка
// SecretRef. Само значение запрашивается через Store непосредственно
// перед вызовом внешнего API и нигде не кэшируется.
package secrets

import (
	"context"
	"errors"
)

// ErrNotFound — секрет с такой ссылкой не существует.
var ErrNotFound = errors.New("secret not found")

// Store — хранилище секретов, ключом служит непрозрачная ссылка.
type Store interface {
	// Get возвращает значение секрета по ссылке.
	Get(ctx context.Context, ref string) (string, error)

	// Upsert записывает значение секрета по ссылке.
	Upsert(ctx context.Context, ref, value string) error

	// Delete удаляет секрет. Удаление несуществующей ссылки не ошибка.
	Delete(ctx context.Context, ref string) error
}
