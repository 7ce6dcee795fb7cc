// Package config загружает конфигурацию сервисов.
//
// Источники в порядке приоритета: значения по умолчанию, YAML-файл
// (CONVEYOR_CONFIG или config.yaml рядом с бинарём), переменные
// окружения. Переменные окружения побеждают файл: так конфигурация
// доезжает до контейнера без пересборки образа.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Значения по умолчанию для локальной разработки.
const (
	defaultHTTPAddr    = ":8080"
	defaultMetricsAddr = ":9090"

	defaultNodeTimeout  = 5 * time.Minute
	defaultPollInterval = 10 * time.Second
	defaultBatchSize    = 100

	defaultRetryMaxAttempts  = 3
	defaultRetryBackoff      = "exponential"
	defaultRetryInitialDelay = time.Second
	defaultRetryMaxDelay     = 30 * time.Second
)

// RetryConfig — политика повторов durable steps.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	Backoff      string        `yaml:"backoff"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
}

// EngineConfig — настройки движка выполнения.
type EngineConfig struct {
	// NodeTimeout — wall-clock лимит на один узел.
	NodeTimeout time.Duration `yaml:"node_timeout"`

	// PollInterval — интервал polling fallback.
	PollInterval time.Duration `yaml:"poll_interval"`

	// BatchSize — количество executions за один poll.
	BatchSize int `yaml:"batch_size"`

	// Retry — политика повторов transient ошибок шагов.
	Retry RetryConfig `yaml:"retry"`
}

// Config — конфигурация процесса.
type Config struct {
	// DatabaseURL — DSN PostgreSQL.
	DatabaseURL string `yaml:"database_url"`

	// RabbitMQURL — URL RabbitMQ.
	RabbitMQURL string `yaml:"rabbitmq_url"`

	// HTTPAddr — адрес HTTP API.
	HTTPAddr string `yaml:"http_addr"`

	// MetricsAddr — адрес /metrics и /healthz.
	MetricsAddr string `yaml:"metrics_addr"`

	// Engine — настройки движка.
	Engine EngineConfig `yaml:"engine"`
}

// Default возвращает конфигурацию по умолчанию.
func Default() Config {
	return Config{
		HTTPAddr:    defaultHTTPAddr,
		MetricsAddr: defaultMetricsAddr,
		Engine: EngineConfig{
			NodeTimeout:  defaultNodeTimeout,
			PollInterval: defaultPollInterval,
			BatchSize:    defaultBatchSize,
			Retry: RetryConfig{
				MaxAttempts:  defaultRetryMaxAttempts,
				Backoff:      defaultRetryBackoff,
				InitialDelay: defaultRetryInitialDelay,
				MaxDelay:     defaultRetryMaxDelay,
			},
		},
	}
}

// Load загружает конфигурацию: defaults → YAML-файл → env.
//
// path пустой — берётся CONVEYOR_CONFIG, затем ./config.yaml.
// Отсутствие файла не ошибка: defaults + env достаточно для запуска.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("CONVEYOR_CONFIG")
	}
	if path == "" {
		path = "config.yaml"
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// Файл опционален.
	case err != nil:
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// applyEnv накладывает переменные окружения поверх файла.
func (c *Config) applyEnv() {
	if v := os.Getenv("DB_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		c.RabbitMQURL = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		c.HTTPAddr = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		c.MetricsAddr = v
	}
	if v := os.Getenv("ENGINE_NODE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Engine.NodeTimeout = d
		}
	}
	if v := os.Getenv("ENGINE_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Engine.PollInterval = d
		}
	}
}

// applyDefaults заполняет нулевые значения дефолтами
// (важно после частичного YAML).
func (c *Config) applyDefaults() {
	def := Default()

	if c.HTTPAddr == "" {
		c.HTTPAddr = def.HTTPAddr
	}
	if c.MetricsAddr == "" {
		c.MetricsAddr = def.MetricsAddr
	}
	if c.Engine.NodeTimeout <= 0 {
		c.Engine.NodeTimeout = def.Engine.NodeTimeout
	}
	if c.Engine.PollInterval <= 0 {
		c.Engine.PollInterval = def.Engine.PollInterval
	}
	if c.Engine.BatchSize <= 0 {
		c.Engine.BatchSize = def.Engine.BatchSize
	}
	if c.Engine.Retry.MaxAttempts <= 0 {
		c.Engine.Retry.MaxAttempts = def.Engine.Retry.MaxAttempts
	}
	if c.Engine.Retry.Backoff == "" {
		c.Engine.Retry.Backoff = def.Engine.Retry.Backoff
	}
	if c.Engine.Retry.InitialDelay <= 0 {
		c.Engine.Retry.InitialDelay = def.Engine.Retry.InitialDelay
	}
	if c.Engine.Retry.MaxDelay <= 0 {
		c.Engine.Retry.MaxDelay = def.Engine.Retry.MaxDelay
	}
}

func (c *Config) validate() error {
	switch c.Engine.Retry.Backoff {
	case "fixed", "exponential":
	default:
		return fmt.Errorf("engine.retry.backoff must be 'fixed' or 'exponential', got %q", c.Engine.Retry.Backoff)
	}
	if c.Engine.Retry.InitialDelay > c.Engine.Retry.MaxDelay {
		return fmt.Errorf("engine.retry.initial_delay exceeds max_delay")
	}
	return nil
}
