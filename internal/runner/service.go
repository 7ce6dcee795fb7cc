package runner

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/conveyor/internal/domain"
	"github.com/shaiso/conveyor/internal/mq"
	"github.com/shaiso/conveyor/internal/stepengine"
)

// Default configuration values.
const (
	defaultPollInterval = 10 * time.Second
	defaultBatchSize    = 100
)

// UnfinishedLister — выборка незавершённых executions для polling.
type UnfinishedLister interface {
	// ListUnfinished возвращает executions в статусах CREATED и RUNNING,
	// отсортированные по времени старта.
	ListUnfinished(ctx context.Context, limit int) ([]domain.Execution, error)
}

// Service запускает Runner как сервис.
//
// Источники работы:
//   - Consumer очереди triggers.pending (event-driven)
//   - Периодический polling незавершённых executions (fallback:
//     подхват работ после рестарта и потерянных сообщений)
type Service struct {
	runner     *Runner
	unfinished UnfinishedLister

	conn     *mq.Connection
	consumer *mq.Consumer

	pollInterval time.Duration
	batchSize    int

	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// ServiceConfig — конфигурация Service.
type ServiceConfig struct {
	Runner     *Runner
	Unfinished UnfinishedLister
	Conn       *mq.Connection

	// PollInterval — интервал polling fallback (default: 10s).
	PollInterval time.Duration

	// BatchSize — количество executions за один poll (default: 100).
	BatchSize int

	Logger *slog.Logger
}

// NewService создаёт Service.
func NewService(cfg ServiceConfig) *Service {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		runner:       cfg.Runner,
		unfinished:   cfg.Unfinished,
		conn:         cfg.Conn,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		logger:       logger,
	}
}

// Start запускает consumer trigger-событий и polling горутину.
func (s *Service) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancelFunc = cancel

	s.logger.Info("starting engine service",
		"poll_interval", s.pollInterval,
		"batch_size", s.batchSize,
	)

	s.consumer = mq.NewConsumer(s.conn, s.logger, mq.ConsumerConfig{
		Queue:    string(mq.QueueTriggersPending),
		Handler:  s.handleTriggerMessage,
		Prefetch: 10,
	})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("trigger consumer error", "error", err)
		}
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.pollLoop(ctx)
	}()

	s.logger.Info("engine service started")
	return nil
}

// Stop останавливает Service.
func (s *Service) Stop() {
	s.logger.Info("stopping engine service...")

	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	if s.consumer != nil {
		s.consumer.Stop()
	}

	s.wg.Wait()

	s.logger.Info("engine service stopped",
		"active_executions", s.runner.ActiveCount(),
	)
}

// handleTriggerMessage обрабатывает одно сообщение trigger-события.
//
// Non-retriable ошибки (нет workflow id, цикл в графе, сломанная
// конфигурация) ack'аются: execution уже помечен FAILED, повторная
// доставка ничего не изменит. Transient ошибки уходят в requeue.
func (s *Service) handleTriggerMessage(ctx context.Context, delivery *mq.Delivery) error {
	event, err := mq.ParsePayload[domain.TriggerEvent](&delivery.Message)
	if err != nil {
		s.logger.Error("failed to parse trigger event payload", "error", err)
		return err
	}

	s.logger.Debug("received trigger event",
		"workflow_id", event.WorkflowID,
		"event_id", event.EventID,
	)

	if err := s.runner.HandleTriggerEvent(ctx, event); err != nil {
		if stepengine.IsNonRetriable(err) {
			s.logger.Warn("trigger event not retriable, dropping",
				"workflow_id", event.WorkflowID,
				"event_id", event.EventID,
				"error", err,
			)
			return nil
		}
		s.logger.Error("failed to handle trigger event",
			"workflow_id", event.WorkflowID,
			"event_id", event.EventID,
			"error", err,
		)
		return err
	}

	return nil
}

// pollLoop — цикл polling fallback.
func (s *Service) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	// Первый poll сразу при старте: подхватываем executions, зависшие
	// пока сервис был выключен.
	s.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

// poll выполняет один цикл polling.
func (s *Service) poll(ctx context.Context) {
	executions, err := s.unfinished.ListUnfinished(ctx, s.batchSize)
	if err != nil {
		s.logger.Error("failed to list unfinished executions", "error", err)
		return
	}

	if len(executions) == 0 {
		return
	}

	s.logger.Debug("poll found unfinished executions", "count", len(executions))

	for i := range executions {
		execution := &executions[i]

		// Trigger-событие восстанавливается из записи: Input хранит
		// исходные данные, чекпоинты делают resume детерминированным.
		event := domain.TriggerEvent{
			WorkflowID:  execution.WorkflowID,
			EventID:     execution.EventID,
			InitialData: execution.Input,
		}

		if err := s.runner.HandleTriggerEvent(ctx, event); err != nil {
			if stepengine.IsNonRetriable(err) {
				continue
			}
			s.logger.Error("failed to process execution from poll",
				"execution_id", execution.ID,
				"error", err,
			)
		}
	}
}
