package stepengine

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"
)

func testEngine(policy RetryPolicy) (*Engine, *MemoryStore) {
	store := NewMemoryStore()
	return New(store, policy, slog.Default()), store
}

func fastPolicy(maxAttempts int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  maxAttempts,
		Backoff:      "fixed",
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
	}
}

func TestEngine_StepCheckpointed_NotReExecuted(t *testing.T) {
	engine, _ := testEngine(fastPolicy(1))

	calls := 0
	body := func(ctx context.Context, steps Runner) error {
		_, err := Do(ctx, steps, "fetch", func(ctx context.Context) (string, error) {
			calls++
			return "result", nil
		})
		return err
	}

	// Два прогона с одним ключом: второй должен replay'ить чекпоинт.
	for i := 0; i < 2; i++ {
		if err := engine.Execute(context.Background(), "exec-1", body, nil); err != nil {
			t.Fatalf("run %d: unexpected error: %v", i, err)
		}
	}

	if calls != 1 {
		t.Errorf("step must execute exactly once, got %d calls", calls)
	}
}

func TestEngine_ReplayReturnsStoredResult(t *testing.T) {
	engine, _ := testEngine(fastPolicy(1))

	var first, second map[string]any
	body := func(out *map[string]any) func(ctx context.Context, steps Runner) error {
		return func(ctx context.Context, steps Runner) error {
			result, err := Do(ctx, steps, "compute", func(ctx context.Context) (map[string]any, error) {
				return map[string]any{"value": "42"}, nil
			})
			*out = result
			return err
		}
	}

	if err := engine.Execute(context.Background(), "exec-2", body(&first), nil); err != nil {
		t.Fatal(err)
	}
	if err := engine.Execute(context.Background(), "exec-2", body(&second), nil); err != nil {
		t.Fatal(err)
	}

	if second["value"] != "42" {
		t.Errorf("replay must return the stored result, got %v", second)
	}
}

func TestEngine_TransientError_Retried(t *testing.T) {
	engine, _ := testEngine(fastPolicy(3))

	calls := 0
	err := engine.Execute(context.Background(), "exec-3", func(ctx context.Context, steps Runner) error {
		_, err := steps.Run(ctx, "flaky", func(ctx context.Context) (any, error) {
			calls++
			if calls < 3 {
				return nil, errors.New("transient failure")
			}
			return "ok", nil
		})
		return err
	}, nil)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestEngine_RetryExhausted_Fails(t *testing.T) {
	engine, _ := testEngine(fastPolicy(2))

	calls := 0
	cause := errors.New("downstream unavailable")
	err := engine.Execute(context.Background(), "exec-4", func(ctx context.Context, steps Runner) error {
		_, err := steps.Run(ctx, "broken", func(ctx context.Context) (any, error) {
			calls++
			return nil, cause
		})
		return err
	}, nil)

	if !errors.Is(err, cause) {
		t.Errorf("expected underlying cause, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 attempts, got %d", calls)
	}
}

func TestEngine_NonRetriable_NoRetry(t *testing.T) {
	engine, _ := testEngine(fastPolicy(5))

	calls := 0
	err := engine.Execute(context.Background(), "exec-5", func(ctx context.Context, steps Runner) error {
		_, err := steps.Run(ctx, "bad-config", func(ctx context.Context) (any, error) {
			calls++
			return nil, NonRetriable(errors.New("variable name is missing"))
		})
		return err
	}, nil)

	if !IsNonRetriable(err) {
		t.Errorf("expected non-retriable error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("non-retriable error must not consume retry budget, got %d calls", calls)
	}
}

func TestEngine_FailureHook_ExactlyOnce(t *testing.T) {
	engine, _ := testEngine(fastPolicy(2))

	hookCalls := 0
	var hookCause error
	err := engine.Execute(context.Background(), "exec-6", func(ctx context.Context, steps Runner) error {
		_, err := steps.Run(ctx, "always-fails", func(ctx context.Context) (any, error) {
			return nil, errors.New("boom")
		})
		return err
	}, func(ctx context.Context, cause error) {
		hookCalls++
		hookCause = cause
	})

	if err == nil {
		t.Fatal("expected error")
	}
	if hookCalls != 1 {
		t.Errorf("failure hook must run exactly once, got %d", hookCalls)
	}
	if hookCause == nil || hookCause.Error() != "boom" {
		t.Errorf("hook must receive the cause, got %v", hookCause)
	}
}

func TestEngine_FailureHook_NotCalledOnSuccess(t *testing.T) {
	engine, _ := testEngine(fastPolicy(1))

	hookCalls := 0
	err := engine.Execute(context.Background(), "exec-7", func(ctx context.Context, steps Runner) error {
		return nil
	}, func(ctx context.Context, cause error) {
		hookCalls++
	})

	if err != nil {
		t.Fatal(err)
	}
	if hookCalls != 0 {
		t.Errorf("failure hook must not run on success, got %d", hookCalls)
	}
}

func TestEngine_DifferentExecutions_Isolated(t *testing.T) {
	engine, _ := testEngine(fastPolicy(1))

	calls := 0
	body := func(ctx context.Context, steps Runner) error {
		_, err := steps.Run(ctx, "step", func(ctx context.Context) (any, error) {
			calls++
			return calls, nil
		})
		return err
	}

	_ = engine.Execute(context.Background(), "exec-a", body, nil)
	_ = engine.Execute(context.Background(), "exec-b", body, nil)

	if calls != 2 {
		t.Errorf("checkpoints must be scoped per execution, got %d calls", calls)
	}
}

func TestRetryPolicy_ExponentialBackoff(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts:  5,
		Backoff:      "exponential",
		InitialDelay: time.Second,
		MaxDelay:     5 * time.Second,
	}

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 5 * time.Second}, // упирается в MaxDelay
	}
	for _, tc := range cases {
		if got := policy.delay(tc.attempt); got != tc.want {
			t.Errorf("attempt %d: expected %v, got %v", tc.attempt, tc.want, got)
		}
	}
}
