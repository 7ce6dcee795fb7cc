package stepengine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// StepFunc — тело одного durable step.
// Возвращаемое значение сериализуется в JSON и чекпоинтится.
type StepFunc func(ctx context.Context) (any, error)

// Runner — контракт запуска durable steps в рамках одного execution.
//
// Идентичное имя шага внутри execution не выполняется повторно после
// успешного завершения: возвращается чекпоинт. Результат всегда
// приходит в виде JSON (и при свежем выполнении, и при replay) —
// вызывающая сторона декодирует его через Do.
type Runner interface {
	Run(ctx context.Context, name string, fn StepFunc) (json.RawMessage, error)
}

// FailureHook вызывается ровно один раз, если тело Execute завершилось
// ошибкой — независимо от того, какой шаг упал и сколько было retry.
type FailureHook func(ctx context.Context, cause error)

// CheckpointStore — хранилище чекпоинтов шагов.
// Ключ — пара (execution key, step name). Запись идемпотентна.
type CheckpointStore interface {
	Get(ctx context.Context, key, name string) (json.RawMessage, bool, error)
	Put(ctx context.Context, key, name string, result json.RawMessage) error
}

// NonRetriableError помечает ошибку, при которой повтор бессмыслен
// (сломанная конфигурация, отсутствующий credential, цикл в графе).
type NonRetriableError struct {
	Err error
}

// Error реализует интерфейс error.
func (e *NonRetriableError) Error() string {
	return e.Err.Error()
}

// Unwrap возвращает исходную ошибку.
func (e *NonRetriableError) Unwrap() error {
	return e.Err
}

// NonRetriable оборачивает ошибку как не подлежащую retry.
func NonRetriable(err error) error {
	if err == nil {
		return nil
	}
	return &NonRetriableError{Err: err}
}

// IsNonRetriable проверяет, помечена ли ошибка как non-retriable.
func IsNonRetriable(err error) bool {
	var target *NonRetriableError
	return errors.As(err, &target)
}

// RetryPolicy — политика повторных попыток для transient ошибок.
type RetryPolicy struct {
	// MaxAttempts — максимальное количество попыток (включая первую).
	MaxAttempts int

	// Backoff — стратегия задержки: "fixed", "exponential".
	Backoff string

	// InitialDelay — начальная задержка.
	InitialDelay time.Duration

	// MaxDelay — максимальная задержка.
	MaxDelay time.Duration
}

// DefaultRetryPolicy — политика по умолчанию: 3 попытки,
// экспоненциальный backoff от 1s до 30s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		Backoff:      "exponential",
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
	}
}

// delay вычисляет задержку перед попыткой attempt (нумерация с 1).
func (p RetryPolicy) delay(attempt int) time.Duration {
	initial := p.InitialDelay
	if initial <= 0 {
		initial = time.Second
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}

	d := initial
	if p.Backoff == "exponential" {
		for i := 1; i < attempt; i++ {
			d *= 2
			if d > maxDelay {
				break
			}
		}
	}
	if d > maxDelay {
		d = maxDelay
	}
	return d
}

// Do запускает durable step и декодирует его результат в T.
// Работает одинаково для свежего выполнения и для replay чекпоинта.
func Do[T any](ctx context.Context, r Runner, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T

	raw, err := r.Run(ctx, name, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		return out, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return out, nil
	}

	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode step %q result: %w", name, err)
	}
	return out, nil
}
