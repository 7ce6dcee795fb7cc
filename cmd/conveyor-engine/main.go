// Conveyor Engine — выполняет workflows по trigger-событиям.
//
// Engine:
//   - Получает trigger-события из RabbitMQ (плюс polling fallback)
//   - Строит детерминированный порядок узлов workflow
//   - Выполняет узлы через durable steps с чекпоинтами в PostgreSQL
//   - Публикует статусы узлов и финализирует executions
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/conveyor/internal/config"
	"github.com/shaiso/conveyor/internal/executor"
	"github.com/shaiso/conveyor/internal/mq"
	"github.com/shaiso/conveyor/internal/repo"
	"github.com/shaiso/conveyor/internal/runner"
	"github.com/shaiso/conveyor/internal/stepengine"
	"github.com/shaiso/conveyor/internal/telemetry"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting conveyor-engine")

	cfg, err := config.Load("")
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// DB pool
	pool, err := repo.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	// Создаём репозитории
	workflowRepo := repo.NewWorkflowRepo(pool)
	executionRepo := repo.NewExecutionRepo(pool)
	credentialRepo := repo.NewCredentialRepo(pool)
	secretRepo := repo.NewSecretRepo(pool)
	stepRepo := repo.NewStepRepo(pool)

	// RabbitMQ
	mqURL := cfg.RabbitMQURL
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}

	mqConn, err := mq.NewConnection(mqURL, logger)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer mqConn.Close()
	logger.Info("RabbitMQ connected")

	if err := mq.SetupTopology(ctx, mqConn); err != nil {
		logger.Error("failed to setup topology", "error", err)
		os.Exit(1)
	}

	publisher := mq.NewPublisher(mqConn, logger)

	// Метрики
	registry := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(registry)

	// Durable steps поверх PostgreSQL
	steps := stepengine.New(stepRepo, stepengine.RetryPolicy{
		MaxAttempts:  cfg.Engine.Retry.MaxAttempts,
		Backoff:      cfg.Engine.Retry.Backoff,
		InitialDelay: cfg.Engine.Retry.InitialDelay,
		MaxDelay:     cfg.Engine.Retry.MaxDelay,
	}, logger)

	// Executors всех типов узлов
	registryExec := executor.NewRegistry(executor.Deps{
		Credentials: credentialRepo,
		Secrets:     secretRepo,
		Logger:      logger,
	})

	// Runner + Service
	run := runner.New(runner.Config{
		Graphs:      workflowRepo,
		Executions:  executionRepo,
		Status:      publisher,
		Steps:       steps,
		Executors:   registryExec,
		NodeTimeout: cfg.Engine.NodeTimeout,
		Logger:      logger,
		Metrics:     metrics,
	})

	service := runner.NewService(runner.ServiceConfig{
		Runner:       run,
		Unfinished:   executionRepo,
		Conn:         mqConn,
		PollInterval: cfg.Engine.PollInterval,
		BatchSize:    cfg.Engine.BatchSize,
		Logger:       logger,
	})

	if err := service.Start(ctx); err != nil {
		logger.Error("failed to start engine service", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	go func() {
		logger.Info("listening", "addr", cfg.MetricsAddr)
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	service.Stop()
	logger.Info("conveyor-engine stopped")
}
