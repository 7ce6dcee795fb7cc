package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shaiso/conveyor/internal/domain"
	"github.com/shaiso/conveyor/internal/engine"
	"github.com/shaiso/conveyor/internal/stepengine"
)

// requireString извлекает обязательное непустое строковое поле.
func requireString(config map[string]any, key string) (string, error) {
	raw, ok := config[key]
	if !ok {
		return "", fmt.Errorf("%w: missing required field %q", ErrConfig, key)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: field %q must be a string, got %T", ErrConfig, key, raw)
	}
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("%w: field %q is empty", ErrConfig, key)
	}
	return s, nil
}

// optionalString извлекает строковое поле или возвращает fallback.
func optionalString(config map[string]any, key, fallback string) string {
	raw, ok := config[key]
	if !ok {
		return fallback
	}
	s, ok := raw.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

// requireUUID извлекает обязательное поле-UUID.
func requireUUID(config map[string]any, key string) (uuid.UUID, error) {
	s, err := requireString(config, key)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: field %q is not a valid uuid: %v", ErrConfig, key, err)
	}
	return id, nil
}

// fail публикует статус "error" и возвращает ошибку как есть
// (retriable ошибки остаются retriable).
func fail(ctx context.Context, in Input, err error) (*engine.Context, error) {
	in.Publish(ctx, domain.NodeStatusError)
	return nil, err
}

// failConfig — ошибка конфигурации: статус "error" + non-retriable.
func failConfig(ctx context.Context, in Input, err error) (*engine.Context, error) {
	return fail(ctx, in, stepengine.NonRetriable(err))
}
