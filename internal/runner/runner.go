package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shaiso/conveyor/internal/domain"
	"github.com/shaiso/conveyor/internal/engine"
	"github.com/shaiso/conveyor/internal/executor"
	"github.com/shaiso/conveyor/internal/stepengine"
	"github.com/shaiso/conveyor/internal/telemetry"
)

// Default configuration values.
const defaultNodeTimeout = 5 * time.Minute

// Runner выполняет workflow по trigger-событиям.
type Runner struct {
	graphs     GraphStore
	executions ExecutionStore
	status     StatusPublisher
	steps      *stepengine.Engine
	executors  *executor.Registry

	// Active executions — защита от параллельной обработки дубликата
	// события в рамках одного процесса (executionID → struct{}).
	active map[uuid.UUID]struct{}
	mu     sync.Mutex

	nodeTimeout time.Duration
	logger      *slog.Logger
	metrics     *telemetry.Metrics
}

// Config — конфигурация Runner.
type Config struct {
	Graphs     GraphStore
	Executions ExecutionStore
	Status     StatusPublisher
	Steps      *stepengine.Engine
	Executors  *executor.Registry

	// NodeTimeout — wall-clock лимит на один узел (default: 5m).
	NodeTimeout time.Duration

	Logger  *slog.Logger
	Metrics *telemetry.Metrics
}

// New создаёт Runner.
func New(cfg Config) *Runner {
	nodeTimeout := cfg.NodeTimeout
	if nodeTimeout <= 0 {
		nodeTimeout = defaultNodeTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	status := cfg.Status
	if status == nil {
		status = NopStatusPublisher{}
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = telemetry.NewMetrics(prometheus.NewRegistry())
	}

	return &Runner{
		graphs:      cfg.Graphs,
		executions:  cfg.Executions,
		status:      status,
		steps:       cfg.Steps,
		executors:   cfg.Executors,
		active:      make(map[uuid.UUID]struct{}),
		nodeTimeout: nodeTimeout,
		logger:      logger,
		metrics:     metrics,
	}
}

// HandleTriggerEvent обрабатывает одно trigger-событие от начала до
// терминального статуса execution.
//
// Идемпотентность: пара (workflow_id, event_id) порождает не более
// одной записи execution. Повтор события с завершённым execution —
// no-op; повтор с незавершённым — возобновление с durable replay
// чекпоинтов (завершённые узлы повторно не выполняются).
func (r *Runner) HandleTriggerEvent(ctx context.Context, event domain.TriggerEvent) error {
	if event.WorkflowID == uuid.Nil {
		return stepengine.NonRetriable(errors.New("trigger event has no workflow id"))
	}
	if event.EventID == "" {
		return stepengine.NonRetriable(errors.New("trigger event has no event id"))
	}

	logger := telemetry.WithWorkflowID(r.logger, event.WorkflowID.String()).
		With("event_id", event.EventID)

	// 1. Идемпотентная запись execution.
	execution, created, err := r.executions.CreateIdempotent(ctx, &domain.Execution{
		ID:         uuid.New(),
		WorkflowID: event.WorkflowID,
		EventID:    event.EventID,
		Status:     domain.ExecutionStatusCreated,
		Input:      event.InitialData,
		StartedAt:  time.Now(),
	})
	if err != nil {
		return fmt.Errorf("create execution: %w", err)
	}

	if !created {
		if execution.IsFinished() {
			logger.Info("duplicate trigger event ignored",
				"execution_id", execution.ID,
				"status", execution.Status,
			)
			r.metrics.ExecutionsDeduplicated.Inc()
			return nil
		}
		logger.Info("resuming unfinished execution", "execution_id", execution.ID)
	}

	// 2. Защита от параллельной обработки в одном процессе.
	if !r.markActive(execution.ID) {
		logger.Debug("execution already active, skipping", "execution_id", execution.ID)
		return nil
	}
	defer r.unmarkActive(execution.ID)

	return r.run(ctx, logger, execution)
}

// run выполняет execution: порядок узлов, fold, терминальный статус.
func (r *Runner) run(ctx context.Context, logger *slog.Logger, execution *domain.Execution) error {
	logger = telemetry.WithExecutionID(logger, execution.ID.String())

	// 3. Граф и детерминированный порядок — до каких-либо side effects
	// узлов. Цикл в графе фатален и не тратит retry-бюджет.
	graph, err := r.graphs.GetWorkflowGraph(ctx, execution.WorkflowID)
	if err != nil {
		if errors.Is(err, ErrWorkflowNotFound) {
			return r.failExecution(ctx, logger, execution, stepengine.NonRetriable(err))
		}
		// Transient ошибка БД: запись остаётся незавершённой, polling
		// подхватит execution позже.
		return fmt.Errorf("load workflow graph: %w", err)
	}

	ordered, err := engine.Order(graph.Nodes, graph.Connections)
	if err != nil {
		return r.failExecution(ctx, logger, execution, stepengine.NonRetriable(err))
	}

	// 4. CREATED → RUNNING.
	execution.MarkRunning()
	if err := r.executions.Update(ctx, execution); err != nil {
		return fmt.Errorf("update execution to running: %w", err)
	}

	r.metrics.ExecutionsStarted.Inc()
	logger.Info("execution started", "nodes", len(ordered))

	// 5. Fold по упорядоченным узлам внутри durable-сессии.
	var final *engine.Context

	err = r.steps.Execute(ctx, execution.ID.String(), func(ctx context.Context, steps stepengine.Runner) error {
		execCtx := engine.NewContext(execution.Input)

		for _, node := range ordered {
			out, err := r.runNode(ctx, logger, steps, execution, graph, node, execCtx)
			if err != nil {
				return fmt.Errorf("node %s (%s): %w", node.ID, node.Type, err)
			}
			execCtx = out
		}

		final = execCtx
		return nil
	}, func(ctx context.Context, cause error) {
		// Ровно один вызов на упавший execution.
		execution.MarkFailed(cause.Error(), errorChain(cause))
		if uerr := r.executions.Update(ctx, execution); uerr != nil {
			logger.Error("failed to persist failed execution", "error", uerr)
		}
		r.metrics.ExecutionsFailed.Inc()
		r.metrics.ExecutionDuration.Observe(execution.Duration().Seconds())

		logger.Warn("execution failed",
			"error", cause,
			"duration", execution.Duration(),
		)
	})
	if err != nil {
		return err
	}

	// 6. Терминальное обновление SUCCEEDED с итоговым контекстом.
	execution.MarkSucceeded(final.Snapshot())
	if err := r.executions.Update(ctx, execution); err != nil {
		return fmt.Errorf("update execution to succeeded: %w", err)
	}

	r.metrics.ExecutionsSucceeded.Inc()
	r.metrics.ExecutionDuration.Observe(execution.Duration().Seconds())

	logger.Info("execution succeeded",
		"duration", execution.Duration(),
		"context_keys", final.Len(),
	)
	return nil
}

// runNode выполняет один узел и чекпоинтит итоговый контекст.
//
// Durable steps узла скоупятся префиксом "node:<id>:", чтобы два узла
// одного типа в одном workflow не делили чекпоинты. Итоговый контекст
// узла чекпоинтится отдельным шагом: после рестарта завершённый узел
// восстанавливается из чекпоинта с тем же результатом.
func (r *Runner) runNode(ctx context.Context, logger *slog.Logger, steps stepengine.Runner, execution *domain.Execution, graph *domain.WorkflowGraph, node domain.Node, execCtx *engine.Context) (*engine.Context, error) {
	exec, err := r.executors.Resolve(node.Type)
	if err != nil {
		// Неизвестный тип узла — ошибка целостности данных, запуск
		// прерывается целиком.
		return nil, stepengine.NonRetriable(err)
	}

	nodeCtx, cancel := context.WithTimeout(ctx, r.nodeTimeout)
	defer cancel()

	nodeLogger := telemetry.WithNodeID(logger, node.ID.String())
	nodeLogger.Debug("node started", "node_type", node.Type)

	scope := "node:" + node.ID.String() + ":"
	started := time.Now()

	out, err := exec.Execute(nodeCtx, executor.Input{
		NodeID:  node.ID,
		UserID:  graph.OwnerUserID,
		Config:  node.Config,
		Context: execCtx,
		Steps:   scopedRunner{inner: steps, prefix: scope},
		Publish: r.publishFunc(execution, node),
	})

	r.metrics.NodeDuration.WithLabelValues(string(node.Type)).Observe(time.Since(started).Seconds())

	if err != nil {
		r.metrics.NodeErrors.WithLabelValues(string(node.Type)).Inc()
		return nil, err
	}

	nodeLogger.Debug("node finished",
		"node_type", node.Type,
		"duration", time.Since(started),
	)

	return stepengine.Do(nodeCtx, steps, scope+"context", func(context.Context) (*engine.Context, error) {
		return out, nil
	})
}

// publishFunc возвращает fire-and-forget публикацию статусов узла.
func (r *Runner) publishFunc(execution *domain.Execution, node domain.Node) executor.PublishFunc {
	return func(ctx context.Context, status domain.NodeStatus) {
		update := domain.NodeStatusUpdate{
			WorkflowID:  execution.WorkflowID,
			ExecutionID: execution.ID,
			NodeID:      node.ID,
			NodeType:    node.Type,
			Status:      status,
			At:          time.Now(),
		}
		if err := r.status.PublishNodeStatus(ctx, update); err != nil {
			r.metrics.StatusPublishErrors.Inc()
			r.logger.Warn("failed to publish node status",
				"execution_id", execution.ID,
				"node_id", node.ID,
				"status", status,
				"error", err,
			)
		}
	}
}

// failExecution переводит execution в FAILED до запуска узлов
// (граф не загрузился, цикл, пустой граф).
func (r *Runner) failExecution(ctx context.Context, logger *slog.Logger, execution *domain.Execution, cause error) error {
	execution.MarkFailed(cause.Error(), errorChain(cause))
	if err := r.executions.Update(ctx, execution); err != nil {
		return fmt.Errorf("update execution to failed: %w", err)
	}

	r.metrics.ExecutionsFailed.Inc()
	logger.Warn("execution failed before running nodes", "error", cause)
	return cause
}

func (r *Runner) markActive(executionID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.active[executionID]; exists {
		return false
	}
	r.active[executionID] = struct{}{}
	return true
}

func (r *Runner) unmarkActive(executionID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, executionID)
}

// ActiveCount возвращает количество executions в обработке.
func (r *Runner) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

// scopedRunner префиксует имена шагов идентификатором узла.
type scopedRunner struct {
	inner  stepengine.Runner
	prefix string
}

func (s scopedRunner) Run(ctx context.Context, name string, fn stepengine.StepFunc) (json.RawMessage, error) {
	return s.inner.Run(ctx, s.prefix+name, fn)
}

// errorChain разворачивает цепочку ошибок в многострочный вид для
// поля error_stack.
func errorChain(err error) string {
	var lines []string
	for err != nil {
		lines = append(lines, err.Error())
		err = errors.Unwrap(err)
	}
	return strings.Join(lines, "\n")
}
