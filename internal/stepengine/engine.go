package stepengine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// Engine выполняет durable steps поверх хранилища чекпоинтов.
//
// Один Engine обслуживает все executions процесса; сессия конкретного
// execution создаётся внутри Execute и скоупит имена шагов ключом
// execution'а.
type Engine struct {
	store  CheckpointStore
	policy RetryPolicy
	logger *slog.Logger
}

// New создаёт Engine.
func New(store CheckpointStore, policy RetryPolicy, logger *slog.Logger) *Engine {
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, policy: policy, logger: logger}
}

// Execute запускает тело выполнения с привязанной к key сессией шагов.
//
// Если body возвращает ошибку, onFailure вызывается ровно один раз —
// независимо от того, какой шаг упал и сколько retry было сделано, —
// после чего ошибка возвращается вызывающему.
func (e *Engine) Execute(ctx context.Context, key string, body func(ctx context.Context, steps Runner) error, onFailure FailureHook) error {
	session := &session{engine: e, key: key}

	err := body(ctx, session)
	if err != nil {
		if onFailure != nil {
			onFailure(ctx, err)
		}
		return err
	}
	return nil
}

// session — Runner, привязанный к одному execution.
type session struct {
	engine *Engine
	key    string
}

// Run выполняет durable step.
//
// Порядок:
//  1. Если чекпоинт с таким именем уже есть — replay без выполнения.
//  2. Иначе выполняем fn; transient ошибки повторяются с backoff
//     согласно RetryPolicy, non-retriable падают сразу.
//  3. Успешный результат сериализуется и чекпоинтится.
func (s *session) Run(ctx context.Context, name string, fn StepFunc) (json.RawMessage, error) {
	if raw, ok, err := s.engine.store.Get(ctx, s.key, name); err != nil {
		return nil, fmt.Errorf("load checkpoint %q: %w", name, err)
	} else if ok {
		s.engine.logger.Debug("step replayed from checkpoint",
			"execution", s.key,
			"step", name,
		)
		return raw, nil
	}

	var lastErr error

	for attempt := 1; attempt <= s.engine.policy.MaxAttempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			raw, merr := json.Marshal(result)
			if merr != nil {
				return nil, NonRetriable(fmt.Errorf("marshal step %q result: %w", name, merr))
			}
			if perr := s.engine.store.Put(ctx, s.key, name, raw); perr != nil {
				return nil, fmt.Errorf("save checkpoint %q: %w", name, perr)
			}
			return raw, nil
		}

		lastErr = err

		// Non-retriable ошибки не расходуют retry-бюджет.
		if IsNonRetriable(err) {
			return nil, err
		}
		if attempt == s.engine.policy.MaxAttempts {
			break
		}

		delay := s.engine.policy.delay(attempt)
		s.engine.logger.Debug("retrying step",
			"execution", s.key,
			"step", name,
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}
